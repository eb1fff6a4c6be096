package main

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Write a JSONL snapshot of the local store",
		Long: `Export writes every JSONL data file of the local store into dir. The
snapshot can be opened later with --data-dir <dir>.`,
		Args: userArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLocal("export"); err != nil {
				return err
			}
			dir, err := filepath.Abs(args[0])
			if err != nil {
				return userError(err)
			}
			b, err := a.openLocal()
			if err != nil {
				return err
			}
			defer b.Detach()

			if err := b.Export(cmd.Context(), dir); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", b.DataDir(), dir)
			return nil
		},
	}
}
