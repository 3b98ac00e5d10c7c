package cli

import (
	"fmt"
	"os"

	"github.com/Adda-Baaj/sepm-epm/pkg/sepm"
	"github.com/spf13/cobra"
)

func newFingerprintCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fingerprint",
		Short: "Work with fingerprint list exports",
	}
	cmd.AddCommand(newFingerprintDecodeCmd())
	return cmd
}

func newFingerprintDecodeCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "decode ARCHIVE",
		Short: "Decode a fingerprint list archive downloaded from SEPM",
		Long: `Decode the XOR-obfuscated hash list inside a SEPM fingerprint export.
The decoded list goes to stdout, or to --out with a summary on stdout.
No server connection is made.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read archive: %w", err)
			}
			content, err := sepm.DecodeFingerprintArchive(blob)
			if err != nil {
				return fmt.Errorf("decode %s: %w", args[0], err)
			}

			if out == "" {
				_, err = cmd.OutOrStdout().Write(content.Data)
				return err
			}
			if err := os.WriteFile(out, content.Data, 0o644); err != nil {
				return fmt.Errorf("write %s: %w", out, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "hash=%s key=%d bytes=%d out=%s\n", content.Hash, content.Key, len(content.Data), out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the decoded list to this file")
	return cmd
}
