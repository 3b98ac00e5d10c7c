package report

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"
)

var (
	okLabel      = color.New(color.FgGreen, color.Bold).Sprint("ok")
	changedLabel = color.New(color.FgYellow, color.Bold).Sprint("changed")
	failedLabel  = color.New(color.FgRed, color.Bold).Sprint("failed")
	warnLabel    = color.New(color.FgYellow).Sprint("warning:")
)

// stdoutSink prints events for a human or a shell pipeline.
type stdoutSink struct {
	id     string
	format string
	w      io.Writer
}

func newStdoutSink(_ context.Context, cfg SinkConfig, _ Logger) (Sink, error) {
	format := FormatJSON
	if cfg.Stdout != nil && cfg.Stdout.Format != "" {
		format = cfg.Stdout.Format
	}
	return &stdoutSink{id: cfg.ID, format: format, w: os.Stdout}, nil
}

func (s *stdoutSink) ID() string   { return s.id }
func (s *stdoutSink) Type() string { return TypeStdout }

func (s *stdoutSink) Send(_ context.Context, evt Event) error {
	switch s.format {
	case FormatYAML:
		enc := yaml.NewEncoder(s.w)
		enc.SetIndent(2)
		if err := enc.Encode(evt); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	case FormatText:
		return writeText(s.w, evt)
	default:
		enc := json.NewEncoder(s.w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(evt); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}

func writeText(w io.Writer, evt Event) error {
	label := okLabel
	switch {
	case evt.Failed:
		label = failedLabel
	case evt.Changed:
		label = changedLabel
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\n", label, evt.Task)
	if evt.Message != "" {
		fmt.Fprintf(&b, "  %s\n", evt.Message)
	}

	keys := make([]string, 0, len(evt.Data))
	for k := range evt.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "  %s: %s\n", k, textValue(evt.Data[k]))
	}
	for _, warning := range evt.Warnings {
		fmt.Fprintf(&b, "  %s %s\n", warnLabel, warning)
	}

	_, err := io.WriteString(w, b.String())
	return err
}

func textValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case []any:
		return fmt.Sprintf("%d item(s)", len(x))
	case []string:
		return strings.Join(x, ",")
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(raw)
}
