package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/display"
	"github.com/mesh-intelligence/catalog/internal/view"
)

func newShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id|type/slug>",
		Short: "Show an entity with its values",
		Long: `Show renders each attribute value by its shape: colors as swatches,
booleans as yes/no, relations as links with their own values nested below.

Example:
  catalog show product/trail-backpack`,
		Args: userArgs(cobra.ExactArgs(1)),
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
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), e)
			}
			v, err := view.LoadEntity(ctx, store, e.ID, view.Options{Logger: a.logger})
			if err != nil {
				return err
			}
			defer v.Close()
			writeEntityView(cmd.OutOrStdout(), v, view.Viewing)
			return nil
		},
	}
}

// writeEntityView prints the entity heading and one line per row. Edited
// rows are marked with an asterisk.
func writeEntityView(w io.Writer, v *view.EntityView, mode view.Mode) {
	e := v.Entity()
	fmt.Fprintf(w, "%s  %s  %s\n",
		display.KeyStyle.Render(e.Label()),
		display.BadgeStyle.Render(e.EntityTypeName+"/"+e.Slug),
		display.BadgeStyle.Render(e.ID))

	rows := v.Rows(mode)
	width := 0
	for _, r := range rows {
		if n := len(r.Label()); n > width {
			width = n
		}
	}
	for _, r := range rows {
		mark := " "
		if r.Edited {
			mark = "*"
		}
		value := display.Format(v.Display(r.Slug))
		pad := strings.Repeat(" ", width+4)
		value = strings.ReplaceAll(value, "\n", "\n"+pad)
		fmt.Fprintf(w, "%s %-*s  %s\n", mark, width, r.Label(), value)
	}
}
