package tasks

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Adda-Baaj/sepm-epm/pkg/httpclient"
	"github.com/Adda-Baaj/sepm-epm/pkg/sepm"
)

type seenRequest struct {
	method string
	path   string
	query  string
	ctype  string
	body   string
}

// newTestRunner serves canned replies keyed by "METHOD path".
func newTestRunner(t *testing.T, replies map[string]string) (*Runner, *[]seenRequest) {
	t.Helper()
	var seen []seenRequest
	srv := httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		seen = append(seen, seenRequest{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			ctype:  r.Header.Get("Content-Type"),
			body:   string(raw),
		})
		reply, ok := replies[r.Method+" "+r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{"errorCode":"404","errorMessage":"not found"}`)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)

	client := httpclient.NewRestyClient(httpclient.Options{Timeout: 2 * time.Second, InsecureSkipVerify: true})
	session, err := sepm.NewSession(srv.URL, client, nil)
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	runner := NewRunner(sepm.NewRequester(session, sepm.RequesterOptions{}), nil)
	runner.now = func() time.Time { return time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC) }
	return runner, &seen
}

func TestComputersBuildsIDListAndDropsEmptyFilters(t *testing.T) {
	runner, seen := newTestRunner(t, map[string]string{
		"GET /sepm/api/v1/computers": `{"content":[{"uniqueId":"C1","computerName":"a"},{"uniqueId":"C2","computerName":"b"}],"totalElements":2}`,
	})

	res, err := runner.Computers(context.Background(), ComputersQuery{Domain: "D1", OS: []string{"Win7", "WinXP"}})
	if err != nil {
		t.Fatalf("Computers: %v", err)
	}
	if got := res.Data["id_list"]; got != "C1,C2" {
		t.Fatalf("id_list = %v", got)
	}
	if computers := res.Data["computers"].([]any); len(computers) != 2 {
		t.Fatalf("expected 2 computers, got %d", len(computers))
	}
	if res.Changed || len(res.Warnings) != 0 {
		t.Fatalf("unexpected result flags %+v", res)
	}
	if q := (*seen)[0].query; q != "domain=D1&os=Win7%2CWinXP" {
		t.Fatalf("query = %q", q)
	}
}

func TestComputersRejectsUnknownOS(t *testing.T) {
	runner, seen := newTestRunner(t, nil)
	if _, err := runner.Computers(context.Background(), ComputersQuery{OS: []string{"Plan9"}}); err == nil {
		t.Fatalf("expected validation error")
	}
	if len(*seen) != 0 {
		t.Fatalf("no request expected on invalid input")
	}
}

func TestComputersWarnsWhenIDMissing(t *testing.T) {
	runner, _ := newTestRunner(t, map[string]string{
		"GET /sepm/api/v1/computers": `{"content":[{"uniqueId":"C1"},{"computerName":"orphan"}]}`,
	})

	res, err := runner.Computers(context.Background(), ComputersQuery{})
	if err != nil {
		t.Fatalf("Computers: %v", err)
	}
	if res.Data["id_list"] != "" {
		t.Fatalf("expected empty id_list, got %v", res.Data["id_list"])
	}
	if len(res.Warnings) != 1 || res.Warnings[0] != idListWarning {
		t.Fatalf("expected id_list warning, got %v", res.Warnings)
	}
}

func TestGroupsFailsWithoutContent(t *testing.T) {
	runner, _ := newTestRunner(t, map[string]string{
		"GET /sepm/api/v1/groups": `{"errorCode":"500"}`,
	})

	_, err := runner.Groups(context.Background(), GroupsQuery{})
	var taskErr *TaskError
	if !errors.As(err, &taskErr) || taskErr.Msg != "Unable to query groups data" {
		t.Fatalf("expected groups TaskError, got %v", err)
	}
}

func TestGroupsListsIDs(t *testing.T) {
	runner, seen := newTestRunner(t, map[string]string{
		"GET /sepm/api/v1/groups": `{"content":[{"id":"G1"},{"id":"G2"}]}`,
	})

	res, err := runner.Groups(context.Background(), GroupsQuery{Domain: "D1"})
	if err != nil {
		t.Fatalf("Groups: %v", err)
	}
	if res.Data["id_list"] != "G1,G2" {
		t.Fatalf("id_list = %v", res.Data["id_list"])
	}
	if (*seen)[0].query != "domain=D1" {
		t.Fatalf("query = %q", (*seen)[0].query)
	}
}

func TestDomainsAllAndSingle(t *testing.T) {
	runner, _ := newTestRunner(t, map[string]string{
		"GET /sepm/api/v1/domains":    `[{"id":"D1","name":"Default"},{"id":"D2","name":"Lab"}]`,
		"GET /sepm/api/v1/domains/D2": `{"id":"D2","name":"Lab"}`,
	})
	ctx := context.Background()

	all, err := runner.Domains(ctx, DomainsQuery{})
	if err != nil {
		t.Fatalf("Domains: %v", err)
	}
	if all.Data["id_list"] != "D1,D2" {
		t.Fatalf("id_list = %v", all.Data["id_list"])
	}

	one, err := runner.Domains(ctx, DomainsQuery{Domain: "D2"})
	if err != nil {
		t.Fatalf("Domains single: %v", err)
	}
	if one.Data["id_list"] != "D2" || len(one.Data["domains"].([]any)) != 1 {
		t.Fatalf("unexpected single domain result %+v", one.Data)
	}
}

func TestQuarantineSendsUndoOnlyWhenReleasing(t *testing.T) {
	runner, seen := newTestRunner(t, map[string]string{
		"POST /sepm/api/v1/command-queue/quarantine": `{"commandID_computer":"CMD-C","commandID_group":"CMD-G"}`,
	})
	ctx := context.Background()

	res, err := runner.Quarantine(ctx, QuarantineRequest{Computers: "C1,C2", Groups: "G1"})
	if err != nil {
		t.Fatalf("Quarantine: %v", err)
	}
	ids := res.Data["command_ids"].([]string)
	if len(ids) != 2 || ids[0] != "CMD-C" || ids[1] != "CMD-G" {
		t.Fatalf("command_ids = %v", ids)
	}
	if !res.Changed {
		t.Fatalf("expected changed result")
	}
	if q := (*seen)[0].query; q != "computer_ids=C1%2CC2&group_ids=G1" {
		t.Fatalf("quarantine query = %q", q)
	}

	if _, err := runner.Quarantine(ctx, QuarantineRequest{Groups: "G1", Undo: true}); err != nil {
		t.Fatalf("Quarantine undo: %v", err)
	}
	if q := (*seen)[1].query; q != "group_ids=G1&undo=true" {
		t.Fatalf("undo query = %q", q)
	}
}

func TestCommandTasksRequireTargets(t *testing.T) {
	runner, seen := newTestRunner(t, nil)
	ctx := context.Background()

	if _, err := runner.Quarantine(ctx, QuarantineRequest{}); err == nil {
		t.Fatalf("expected quarantine validation error")
	}
	if _, err := runner.Baseline(ctx, BaselineRequest{}); err == nil {
		t.Fatalf("expected baseline validation error")
	}
	if _, err := runner.Scan(ctx, ScanRequest{Computers: "C1", Type: "DEEP_SCAN"}); err == nil {
		t.Fatalf("expected scan type validation error")
	}
	if _, err := runner.CommandStatus(ctx, CommandStatusRequest{}); err == nil {
		t.Fatalf("expected command status validation error")
	}
	if len(*seen) != 0 {
		t.Fatalf("no requests expected, got %d", len(*seen))
	}
}

func TestBaselinePostsWithoutBody(t *testing.T) {
	runner, seen := newTestRunner(t, map[string]string{
		"POST /sepm/api/v1/command-queue/baseline": `{"commandID_group":"CMD-G"}`,
	})

	res, err := runner.Baseline(context.Background(), BaselineRequest{Groups: "G1"})
	if err != nil {
		t.Fatalf("Baseline: %v", err)
	}
	if ids := res.Data["command_ids"].([]string); len(ids) != 1 || ids[0] != "CMD-G" {
		t.Fatalf("command_ids = %v", ids)
	}
	req := (*seen)[0]
	if req.query != "group_ids=G1" || req.body != "" {
		t.Fatalf("unexpected baseline request %+v", req)
	}
}

func TestScanPostsEOCDocument(t *testing.T) {
	runner, seen := newTestRunner(t, map[string]string{
		"POST /sepm/api/v1/command-queue/eoc": `{"commandID_computer":"CMD-C"}`,
	})

	if _, err := runner.Scan(context.Background(), ScanRequest{Computers: "C1", Type: ScanFull}); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	req := (*seen)[0]
	if req.ctype != "application/xml" {
		t.Fatalf("Content-Type = %q", req.ctype)
	}
	if req.query != "computer_ids=C1" {
		t.Fatalf("query = %q", req.query)
	}
	for _, want := range []string{"<ScanType>FULL_SCAN</ScanType>", "<Description>epm scan: 2024-05-01 10:00:00</Description>"} {
		if !strings.Contains(req.body, want) {
			t.Fatalf("payload missing %s: %s", want, req.body)
		}
	}
}

func TestScheduleFailsOnErrorCode(t *testing.T) {
	runner, _ := newTestRunner(t, map[string]string{
		"POST /sepm/api/v1/command-queue/eoc": `{"errorCode":"400","errorMessage":"invalid computer id"}`,
	})

	_, err := runner.Scan(context.Background(), ScanRequest{Computers: "bad"})
	var taskErr *TaskError
	if !errors.As(err, &taskErr) || taskErr.Msg != "Failed to schedule Scan" {
		t.Fatalf("expected scan TaskError, got %v", err)
	}
	if taskErr.SEPMData == nil {
		t.Fatalf("expected sepm data on failure")
	}
}

func TestCommandStatusSurfacesClassifiedError(t *testing.T) {
	runner, _ := newTestRunner(t, map[string]string{
		"GET /sepm/api/v1/command-queue/CMD1": `{"content":[{"computerName":"a","stateId":2}]}`,
	})
	ctx := context.Background()

	res, err := runner.CommandStatus(ctx, CommandStatusRequest{ID: "CMD1"})
	if err != nil {
		t.Fatalf("CommandStatus: %v", err)
	}
	if _, ok := res.Data["sepm_data"].(map[string]any); !ok {
		t.Fatalf("missing sepm_data: %+v", res.Data)
	}

	_, err = runner.CommandStatus(ctx, CommandStatusRequest{ID: "missing"})
	var apiErr *sepm.APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode() != http.StatusNotFound {
		t.Fatalf("expected wrapped APIError 404, got %v", err)
	}
}

func TestCommandIDsKeepPresentKeys(t *testing.T) {
	ids, err := commandIDs(map[string]any{"commandID_computer": "", "commandID_group": "CMD-G"})
	if err != nil {
		t.Fatalf("commandIDs: %v", err)
	}
	if len(ids) != 2 || ids[0] != "" || ids[1] != "CMD-G" {
		t.Fatalf("command_ids = %q", ids)
	}

	ids, err = commandIDs(map[string]any{"commandID_group": "CMD-G"})
	if err != nil || len(ids) != 1 || ids[0] != "CMD-G" {
		t.Fatalf("command_ids = %q (%v)", ids, err)
	}
}
