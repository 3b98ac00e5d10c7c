package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/Adda-Baaj/sepm-epm/internal/app"
	"github.com/Adda-Baaj/sepm-epm/internal/config"
	"github.com/Adda-Baaj/sepm-epm/internal/logger"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var errorLabel = color.New(color.FgRed)

// NewRootCmd builds the epm command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "epm [command] [flags]",
		Short: "Query and command a Symantec Endpoint Protection Manager",
		Long: `epm talks to the SEPM REST API (/sepm/api/v1). Every task logs in,
runs one request, logs out and reports the result to the configured sinks.

Connection settings come from flags, SEPM_* environment variables or
configs/.env.

Examples:
  # List computers in a domain
  epm computers --host https://sepm.local:8446 --domain D1

  # Quarantine two endpoints
  epm quarantine --computers C1,C2

  # Release them again
  epm quarantine --computers C1,C2 --quarantine=false

  # Decode a fingerprint list export without a server
  epm fingerprint decode export.zip --out list.txt`,
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := root.PersistentFlags()
	flags.String("host", "", "SEPM base URL, e.g. https://sepm.local:8446")
	flags.String("username", "", "SEPM username")
	flags.String("password", "", "SEPM password")
	flags.Bool("validate-certs", true, "verify the SEPM TLS certificate")
	flags.Int64("timeout", 30, "request timeout in seconds")
	flags.String("log-level", "info", "log level (debug, info, warn, error)")
	flags.String("sinks-file", "", "YAML/JSON file declaring report sinks")
	flags.String("format", "json", "stdout report format (json, yaml, text)")

	root.AddCommand(
		newComputersCmd(),
		newGroupsCmd(),
		newDomainsCmd(),
		newCommandStatusCmd(),
		newScanCmd(),
		newQuarantineCmd(),
		newBaselineCmd(),
		newFingerprintCmd(),
	)
	return root
}

// Execute runs the command tree and prints any error to stderr.
func Execute(ctx context.Context) error {
	err := NewRootCmd().ExecuteContext(ctx)
	if err != nil {
		errorLabel.Fprintf(os.Stderr, "Error: %v\n", err)
	}
	return err
}

// runTask loads config from the command's flags, builds the runtime and runs
// one task through it.
func runTask(cmd *cobra.Command, task string, fn app.TaskFunc) error {
	cfg, err := config.Load(cmd.Flags())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log, err := logger.Init(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Close()

	logger.DebugObj("epm starting", "config", cfg.Redacted())

	rt, err := app.New(cmd.Context(), cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			log.WarnObj("close sinks failed", "error", err.Error())
		}
	}()

	_, err = rt.Run(cmd.Context(), task, fn)
	return err
}
