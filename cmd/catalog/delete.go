package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id|type/slug>",
		Short: "Delete an entity and every relation to it",
		Args:  userArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, release, err := a.openStore()
			if err != nil {
				return err
			}
			defer release()

			e, err := resolveEntity(ctx, store, args[0])
			if err != nil {
				return err
			}
			if err := store.DeleteEntity(ctx, e.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s/%s (%s)\n", e.EntityTypeName, e.Slug, e.ID)
			return nil
		},
	}
}
