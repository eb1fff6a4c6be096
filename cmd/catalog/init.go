package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/paths"
	"github.com/mesh-intelligence/catalog/internal/sqlite"
)

func newInitCmd(a *app) *cobra.Command {
	var demo, user bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize the local catalog store",
		Long: `Create the configuration and data directories and initialize the local
store. With --demo the built-in demo catalog is seeded. With --user the store
lives in the per-user data directory ($XDG_DATA_HOME/catalog on Linux) and
config.yaml records it as data_dir, so later commands use it from any working
directory.`,
		Args: userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if user {
				if a.dataDir != "" {
					return userErrorf("--user cannot be combined with --data-dir")
				}
				dir, err := paths.UserDir(paths.Data)
				if err != nil {
					return fmt.Errorf("locating user data dir: %w", err)
				}
				if err := saveConfigValue(a.configFile, cfgKeyDataDir, dir); err != nil {
					return err
				}
				a.cfg.Set(cfgKeyDataDir, dir)
				fmt.Fprintf(out, "Recorded data_dir in %s\n", a.configFile)
			}

			b, err := a.openLocal()
			if err != nil {
				return err
			}
			defer b.Detach()

			if demo {
				doc, err := sqlite.DemoSeed()
				if err != nil {
					return err
				}
				res, err := b.Seed(cmd.Context(), doc)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Seeded %d entity types, %d attributes, %d entities\n",
					res.EntityTypes, res.Attributes, res.Entities)
			}
			fmt.Fprintf(out, "Catalog initialized in %s\n", b.DataDir())
			return nil
		},
	}
	cmd.Flags().BoolVar(&demo, "demo", false, "seed the built-in demo catalog")
	cmd.Flags().BoolVar(&user, "user", false, "keep the store in the per-user data directory and record it in config.yaml")
	return cmd
}
