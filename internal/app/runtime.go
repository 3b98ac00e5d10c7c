package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adda-Baaj/sepm-epm/internal/config"
	"github.com/Adda-Baaj/sepm-epm/internal/logger"
	"github.com/Adda-Baaj/sepm-epm/internal/tasks"
	"github.com/Adda-Baaj/sepm-epm/pkg/httpclient"
	"github.com/Adda-Baaj/sepm-epm/pkg/report"
	"github.com/Adda-Baaj/sepm-epm/pkg/sepm"
)

const logoutTimeout = 10 * time.Second

// TaskFunc runs one task against an authenticated runner.
type TaskFunc func(ctx context.Context, r *tasks.Runner) (*tasks.Result, error)

// Runtime wires the SEPM session, the task runner and the report sinks for
// one CLI invocation. It handles login/logout around every task and reports
// the outcome to every enabled sink.
type Runtime struct {
	cfg     *config.Config
	session *sepm.Session
	runner  *tasks.Runner
	fanout  *report.Fanout
	log     logger.Logger
}

// New builds a runtime from config.
func New(ctx context.Context, cfg *config.Config, log logger.Logger) (*Runtime, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if log == nil {
		log = logger.NopLogger{}
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := cfg.ValidateServer(); err != nil {
		return nil, err
	}

	client := httpclient.NewRestyClient(httpclient.Options{
		Timeout:            cfg.Timeout,
		InsecureSkipVerify: !cfg.ValidateCerts,
	})
	session, err := sepm.NewSession(cfg.Host, client, log)
	if err != nil {
		return nil, fmt.Errorf("init sepm session: %w", err)
	}
	requester := sepm.NewRequester(session, sepm.RequesterOptions{})

	sinkReg := report.StdoutRegistry(cfg.ReportFormat)
	if cfg.ReportSinksFile != "" {
		if sinkReg, err = report.LoadRegistry(cfg.ReportSinksFile); err != nil {
			return nil, fmt.Errorf("load sinks registry: %w", err)
		}
	}
	enabledSinks := sinkReg.Enabled()
	if len(enabledSinks) == 0 {
		return nil, fmt.Errorf("no report sinks enabled")
	}
	sinks, err := report.BuildAll(ctx, report.DefaultRegistry(), enabledSinks, log)
	if err != nil {
		return nil, fmt.Errorf("build sinks: %w", err)
	}
	sinkSummaries := make([]map[string]string, 0, len(enabledSinks))
	for _, sinkCfg := range enabledSinks {
		sinkSummaries = append(sinkSummaries, map[string]string{
			"id":   sinkCfg.ID,
			"type": sinkCfg.Type,
		})
	}
	log.DebugObj("report sinks loaded", "sinks_meta", map[string]any{
		"count": len(sinkSummaries),
		"sinks": sinkSummaries,
	})

	return &Runtime{
		cfg:     cfg,
		session: session,
		runner:  tasks.NewRunner(requester, log),
		fanout:  report.NewFanout(sinks),
		log:     log,
	}, nil
}

// Run logs in, executes fn, logs out and reports the outcome. The task error
// takes precedence over a reporting error.
func (r *Runtime) Run(ctx context.Context, task string, fn TaskFunc) (*tasks.Result, error) {
	if r == nil || r.runner == nil {
		return nil, fmt.Errorf("runtime is not initialized")
	}
	start := time.Now()

	res, err := r.execute(ctx, fn)
	if err == nil && res == nil {
		res = &tasks.Result{Task: task}
	}

	var evt report.Event
	if err != nil {
		var taskErr *tasks.TaskError
		var sepmData any
		if errors.As(err, &taskErr) {
			sepmData = taskErr.SEPMData
		}
		evt = report.FailedEvent(task, err, sepmData)
		r.log.ErrorObj("task failed", "task_error", map[string]any{
			"task":  task,
			"error": err.Error(),
		})
	} else {
		evt = report.NewEvent(res.Task, res.Changed, res.Data, res.Warnings)
	}

	delivered, sendErr := r.fanout.Send(ctx, evt)
	r.log.InfoObj("task reported", "task_meta", map[string]any{
		"task":       task,
		"event_id":   evt.ID,
		"failed":     evt.Failed,
		"delivered":  delivered,
		"sinks":      r.fanout.Size(),
		"elapsed_ms": time.Since(start).Milliseconds(),
	})

	if err != nil {
		return nil, err
	}
	if sendErr != nil {
		return res, fmt.Errorf("report %s: %w", task, sendErr)
	}
	return res, nil
}

func (r *Runtime) execute(ctx context.Context, fn TaskFunc) (*tasks.Result, error) {
	if err := r.session.Login(ctx, r.cfg.Username, r.cfg.Password); err != nil {
		return nil, fmt.Errorf("login: %w", err)
	}
	defer func() {
		// Logout must reach the server even when ctx was cancelled mid-task.
		logoutCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), logoutTimeout)
		defer cancel()
		if err := r.session.Logout(logoutCtx); err != nil {
			r.log.WarnObj("sepm logout failed", "error", err.Error())
		}
	}()
	return fn(ctx, r.runner)
}

// Close releases the report sinks.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	return r.fanout.Close()
}
