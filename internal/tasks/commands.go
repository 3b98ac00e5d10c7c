package tasks

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/Adda-Baaj/sepm-epm/pkg/sepm"
	"github.com/mitchellh/mapstructure"
)

// Scan types accepted by the EOC command.
const (
	ScanQuick = "QUICK_SCAN"
	ScanFull  = "FULL_SCAN"
)

// ScanRequest schedules an endpoint scan. Computers and Groups are comma
// delimited SEPM IDs; at least one is required.
type ScanRequest struct {
	Computers   string `validate:"required_without=Groups"`
	Groups      string `validate:"required_without=Computers"`
	Type        string `validate:"omitempty,oneof=FULL_SCAN QUICK_SCAN"`
	Description string
}

// QuarantineRequest quarantines endpoints, or releases them when Undo is set.
type QuarantineRequest struct {
	Computers string `validate:"required_without=Groups"`
	Groups    string `validate:"required_without=Computers"`
	Undo      bool
}

// BaselineRequest schedules a baseline application information upload.
type BaselineRequest struct {
	Computers string `validate:"required_without=Groups"`
	Groups    string `validate:"required_without=Computers"`
}

// commandQueueResponse is the reply of every command-queue POST.
type commandQueueResponse struct {
	CommandIDComputer string `mapstructure:"commandID_computer"`
	CommandIDGroup    string `mapstructure:"commandID_group"`
}

// Scan schedules an evidence-of-compromise scan on the targets.
func (r *Runner) Scan(ctx context.Context, req ScanRequest) (*Result, error) {
	if err := r.check(TaskScan, req); err != nil {
		return nil, err
	}
	if req.Type == "" {
		req.Type = ScanQuick
	}
	if req.Description == "" {
		req.Description = fmt.Sprintf("epm scan: %s", r.now().UTC().Format("2006-01-02 15:04:05"))
	}
	payload, err := eocPayload(req.Type, req.Description, r.now())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", TaskScan, err)
	}

	return r.schedule(TaskScan, "Failed to schedule Scan", func() (any, error) {
		resp, err := r.api.Execute(ctx, sepm.Request{
			Method:  http.MethodPost,
			Path:    commandQueuePath + "/eoc",
			Params:  targetParams(req.Computers, req.Groups),
			Headers: map[string]string{"Content-Type": "application/xml"},
			Body:    sepm.Raw(payload),
		})
		return bodyOf(resp), err
	})
}

// Quarantine schedules a quarantine (or un-quarantine) command.
func (r *Runner) Quarantine(ctx context.Context, req QuarantineRequest) (*Result, error) {
	if err := r.check(TaskQuarantine, req); err != nil {
		return nil, err
	}
	params := targetParams(req.Computers, req.Groups)
	if req.Undo {
		params["undo"] = true
	} else {
		params["undo"] = nil
	}

	return r.schedule(TaskQuarantine, "Failed to quarantine", func() (any, error) {
		resp, err := r.api.Execute(ctx, sepm.Request{
			Method: http.MethodPost,
			Path:   commandQueuePath + "/quarantine",
			Params: params,
		})
		return bodyOf(resp), err
	})
}

// Baseline schedules a baseline application information upload.
func (r *Runner) Baseline(ctx context.Context, req BaselineRequest) (*Result, error) {
	if err := r.check(TaskBaseline, req); err != nil {
		return nil, err
	}
	rest := "sepm/api/v1/command-queue/baseline"
	if query := sepm.EncodeQuery(targetParams(req.Computers, req.Groups)); query != "" {
		rest += "?" + query
	}

	return r.schedule(TaskBaseline, "Failed to schedule Baseline Application Data Upload", func() (any, error) {
		return r.api.PostByPath(ctx, rest, sepm.NoBody())
	})
}

// CommandStatusRequest names a command-queue job.
type CommandStatusRequest struct {
	ID string `validate:"required"`
}

// CommandStatus fetches the status of a command-queue job.
func (r *Runner) CommandStatus(ctx context.Context, req CommandStatusRequest) (*Result, error) {
	if err := r.check(TaskCommandStatus, req); err != nil {
		return nil, err
	}
	resp, err := r.api.Execute(ctx, sepm.Request{
		Method: http.MethodGet,
		Path:   commandQueuePath + "/" + url.PathEscape(req.ID),
	})
	if err != nil {
		return nil, &TaskError{Task: TaskCommandStatus, Msg: "Unable to query command status", SEPMData: bodyOf(resp), Err: err}
	}
	return r.done(&Result{
		Task: TaskCommandStatus,
		Data: map[string]any{"sepm_data": resp.Body},
	}), nil
}

func (r *Runner) schedule(task, failMsg string, call func() (any, error)) (*Result, error) {
	body, err := call()
	if err != nil {
		return nil, &TaskError{Task: task, Msg: failMsg, SEPMData: body, Err: err}
	}
	data, _ := body.(map[string]any)
	if _, failed := data["errorCode"]; failed {
		return nil, &TaskError{Task: task, Msg: failMsg, SEPMData: body}
	}

	ids, err := commandIDs(data)
	if err != nil {
		return nil, &TaskError{Task: task, Msg: "decode command ids", SEPMData: body, Err: err}
	}
	return r.done(&Result{
		Task:    task,
		Changed: true,
		Data: map[string]any{
			"sepm_data":   body,
			"command_ids": ids,
		},
	}), nil
}

// commandIDs returns the computer then group command IDs for every key
// present in data, empty values included.
func commandIDs(data map[string]any) ([]string, error) {
	ids := []string{}
	if len(data) == 0 {
		return ids, nil
	}
	var out commandQueueResponse
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &out,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := dec.Decode(data); err != nil {
		return nil, err
	}
	if _, ok := data["commandID_computer"]; ok {
		ids = append(ids, out.CommandIDComputer)
	}
	if _, ok := data["commandID_group"]; ok {
		ids = append(ids, out.CommandIDGroup)
	}
	return ids, nil
}

func targetParams(computers, groups string) map[string]any {
	return map[string]any{
		"computer_ids": optional(computers),
		"group_ids":    optional(groups),
	}
}
