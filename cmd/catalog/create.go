package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/view"
)

func newCreateCmd(a *app) *cobra.Command {
	var sets []string
	cmd := &cobra.Command{
		Use:   "create <type> <name>",
		Short: "Create an entity",
		Long: `Create an entity of the given type (ID or name). The slug is derived from
the name, and the name is also stored as the entity's "name" value. Further
scalar values may be given with --set.

Example:
  catalog create color "Sea Green" --set hex=#2E8B57`,
		Args: userArgs(cobra.ExactArgs(2)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			assignments, err := parseAssignments("set", sets)
			if err != nil {
				return err
			}
			store, release, err := a.openStore()
			if err != nil {
				return err
			}
			defer release()

			et, err := resolveType(ctx, store, args[0])
			if err != nil {
				return err
			}
			opts := view.Options{Logger: a.logger}
			tv, err := view.LoadType(ctx, store, et.ID, opts)
			if err != nil {
				return err
			}
			created, err := tv.CreateEntity(ctx, args[1])
			if err != nil {
				return err
			}

			if len(assignments) > 0 {
				v, err := view.LoadEntity(ctx, store, created.ID, opts)
				if err != nil {
					return err
				}
				defer v.Close()
				for _, as := range assignments {
					if err := v.Editor(as.slug).Input(as.value); err != nil {
						return editError(as, err)
					}
				}
				if created, err = v.Commit(ctx); err != nil {
					return err
				}
			}

			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), created)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %s/%s (%s)\n", et.Name, created.Slug, created.ID)
			return nil
		},
	}
	cmd.Flags().StringArrayVar(&sets, "set", nil, "set a scalar value: slug=value")
	return cmd
}
