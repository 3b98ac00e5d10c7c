package cli

import (
	"context"

	"github.com/Adda-Baaj/sepm-epm/internal/tasks"
	"github.com/spf13/cobra"
)

func newComputersCmd() *cobra.Command {
	var q tasks.ComputersQuery
	cmd := &cobra.Command{
		Use:   "computers",
		Short: "List computers and their IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTask(cmd, tasks.TaskComputersInfo, func(ctx context.Context, r *tasks.Runner) (*tasks.Result, error) {
				return r.Computers(ctx, q)
			})
		},
	}
	cmd.Flags().StringVar(&q.Name, "name", "", "computer name, '*' wildcards allowed")
	cmd.Flags().StringVar(&q.Domain, "domain", "", "domain ID")
	cmd.Flags().StringVar(&q.MAC, "mac", "", "MAC address, '*' wildcards allowed")
	cmd.Flags().StringSliceVar(&q.OS, "os", nil, "operating systems, e.g. Win10,Win2K16")
	return cmd
}

func newGroupsCmd() *cobra.Command {
	var q tasks.GroupsQuery
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List groups and their IDs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTask(cmd, tasks.TaskGroupsInfo, func(ctx context.Context, r *tasks.Runner) (*tasks.Result, error) {
				return r.Groups(ctx, q)
			})
		},
	}
	cmd.Flags().StringVar(&q.Domain, "domain", "", "domain ID")
	return cmd
}

func newDomainsCmd() *cobra.Command {
	var q tasks.DomainsQuery
	cmd := &cobra.Command{
		Use:   "domains",
		Short: "List domains, or show one domain",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTask(cmd, tasks.TaskDomainsInfo, func(ctx context.Context, r *tasks.Runner) (*tasks.Result, error) {
				return r.Domains(ctx, q)
			})
		},
	}
	cmd.Flags().StringVar(&q.Domain, "domain", "", "domain ID")
	return cmd
}

func newCommandStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "command-status COMMAND_ID",
		Short: "Show the status of a queued command",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := tasks.CommandStatusRequest{ID: args[0]}
			return runTask(cmd, tasks.TaskCommandStatus, func(ctx context.Context, r *tasks.Runner) (*tasks.Result, error) {
				return r.CommandStatus(ctx, req)
			})
		},
	}
}

func newScanCmd() *cobra.Command {
	var req tasks.ScanRequest
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Schedule a scan on computers and/or groups",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTask(cmd, tasks.TaskScan, func(ctx context.Context, r *tasks.Runner) (*tasks.Result, error) {
				return r.Scan(ctx, req)
			})
		},
	}
	addTargetFlags(cmd, &req.Computers, &req.Groups)
	cmd.Flags().StringVar(&req.Type, "type", tasks.ScanQuick, "scan type (QUICK_SCAN, FULL_SCAN)")
	cmd.Flags().StringVar(&req.Description, "description", "", "scan description (defaults to a timestamp)")
	return cmd
}

func newQuarantineCmd() *cobra.Command {
	var req tasks.QuarantineRequest
	var quarantine bool
	cmd := &cobra.Command{
		Use:   "quarantine",
		Short: "Quarantine computers and/or groups, or release them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req.Undo = !quarantine
			return runTask(cmd, tasks.TaskQuarantine, func(ctx context.Context, r *tasks.Runner) (*tasks.Result, error) {
				return r.Quarantine(ctx, req)
			})
		},
	}
	addTargetFlags(cmd, &req.Computers, &req.Groups)
	cmd.Flags().BoolVar(&quarantine, "quarantine", true, "quarantine when true, release when false")
	return cmd
}

func newBaselineCmd() *cobra.Command {
	var req tasks.BaselineRequest
	cmd := &cobra.Command{
		Use:   "baseline",
		Short: "Schedule a baseline application data upload",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runTask(cmd, tasks.TaskBaseline, func(ctx context.Context, r *tasks.Runner) (*tasks.Result, error) {
				return r.Baseline(ctx, req)
			})
		},
	}
	addTargetFlags(cmd, &req.Computers, &req.Groups)
	return cmd
}

func addTargetFlags(cmd *cobra.Command, computers, groups *string) {
	cmd.Flags().StringVar(computers, "computers", "", "comma-separated computer IDs")
	cmd.Flags().StringVar(groups, "groups", "", "comma-separated group IDs")
}
