package tasks

import (
	"context"
	"fmt"
	"time"

	"github.com/Adda-Baaj/sepm-epm/internal/logger"
	"github.com/Adda-Baaj/sepm-epm/pkg/sepm"
	"github.com/go-playground/validator/v10"
)

// Task names as reported downstream.
const (
	TaskComputersInfo = "computers_info"
	TaskGroupsInfo    = "groups_info"
	TaskDomainsInfo   = "domains_info"
	TaskCommandStatus = "command_status"
	TaskScan          = "scan_endpoints"
	TaskQuarantine    = "quarantine_endpoints"
	TaskBaseline      = "baseline"
)

const (
	computersPath    = sepm.BasePath + "/computers"
	groupsPath       = sepm.BasePath + "/groups"
	domainsPath      = sepm.BasePath + "/domains"
	commandQueuePath = sepm.BasePath + "/command-queue"
)

// API is the subset of sepm.Requester the tasks use.
type API interface {
	Execute(ctx context.Context, req sepm.Request) (*sepm.Response, error)
	PostByPath(ctx context.Context, restPath string, body sepm.Body) (any, error)
}

// Result is the outcome of one task.
type Result struct {
	Task     string         `json:"task" yaml:"task"`
	Changed  bool           `json:"changed" yaml:"changed"`
	Data     map[string]any `json:"data" yaml:"data"`
	Warnings []string       `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

// TaskError reports a task that SEPM refused or answered unexpectedly.
type TaskError struct {
	Task     string
	Msg      string
	SEPMData any
	Err      error
}

func (e *TaskError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Task, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Task, e.Msg)
}

func (e *TaskError) Unwrap() error { return e.Err }

// Runner executes tasks against one authenticated requester.
type Runner struct {
	api      API
	log      logger.Logger
	validate *validator.Validate
	now      func() time.Time
}

// NewRunner builds a task runner.
func NewRunner(api API, log logger.Logger) *Runner {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Runner{
		api:      api,
		log:      log,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

func (r *Runner) check(task string, input any) error {
	if err := r.validate.Struct(input); err != nil {
		return fmt.Errorf("%s: invalid arguments: %w", task, err)
	}
	return nil
}

func (r *Runner) done(res *Result) *Result {
	r.log.InfoObj("task completed", "task_result", map[string]any{
		"task":     res.Task,
		"changed":  res.Changed,
		"warnings": len(res.Warnings),
	})
	return res
}

// optional turns empty strings into nil so they are dropped from queries.
func optional(s string) any {
	if s == "" {
		return nil
	}
	return s
}
