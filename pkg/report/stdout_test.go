package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
)

func TestStdoutSinkJSON(t *testing.T) {
	var buf bytes.Buffer
	sink := &stdoutSink{id: "out", format: FormatJSON, w: &buf}

	evt := NewEvent("groups_info", false, map[string]any{"id_list": "G1,G2"}, nil)
	if err := sink.Send(context.Background(), evt); err != nil {
		t.Fatalf("Send: %v", err)
	}

	var decoded Event
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not JSON: %v\n%s", err, buf.String())
	}
	if decoded.ID != evt.ID || decoded.Task != "groups_info" || decoded.Data["id_list"] != "G1,G2" {
		t.Fatalf("unexpected decoded event %#v", decoded)
	}
}

func TestStdoutSinkYAML(t *testing.T) {
	var buf bytes.Buffer
	sink := &stdoutSink{id: "out", format: FormatYAML, w: &buf}

	if err := sink.Send(context.Background(), NewEvent("baseline", true, nil, nil)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "task: baseline") || !strings.Contains(out, "changed: true") {
		t.Fatalf("unexpected yaml output:\n%s", out)
	}
}

func TestStdoutSinkText(t *testing.T) {
	var buf bytes.Buffer
	sink := &stdoutSink{id: "out", format: FormatText, w: &buf}

	evt := NewEvent("computers_info", false, map[string]any{
		"id_list":   "",
		"computers": []any{map[string]any{"computerName": "a"}},
	}, []string{"Unable to compile id_list"})
	if err := sink.Send(context.Background(), evt); err != nil {
		t.Fatalf("Send: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"computers_info", "computers: 1 item(s)", "id_list: ", "Unable to compile id_list"} {
		if !strings.Contains(out, want) {
			t.Fatalf("text output missing %q:\n%s", want, out)
		}
	}

	buf.Reset()
	failed := FailedEvent("scan_endpoints", errors.New("Failed to schedule Scan"), map[string]any{"errorCode": "400"})
	if err := sink.Send(context.Background(), failed); err != nil {
		t.Fatalf("Send failed event: %v", err)
	}
	if out := buf.String(); !strings.Contains(out, "Failed to schedule Scan") || !strings.Contains(out, `sepm_data: {"errorCode":"400"}`) {
		t.Fatalf("unexpected failed output:\n%s", out)
	}
}

func TestFailedEventWithoutData(t *testing.T) {
	evt := FailedEvent("groups_info", errors.New("boom"), nil)
	if !evt.Failed || evt.Message != "boom" || evt.Data != nil || evt.ID == "" {
		t.Fatalf("unexpected failed event %#v", evt)
	}
}
