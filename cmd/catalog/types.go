package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/display"
	"github.com/mesh-intelligence/catalog/internal/view"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

func newTypesCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "types",
		Short: "List entity types",
		Args:  userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, release, err := a.openStore()
			if err != nil {
				return err
			}
			defer release()

			list, err := store.ListEntityTypes(cmd.Context())
			if err != nil {
				return err
			}
			if a.jsonOut {
				if list == nil {
					list = []types.EntityType{}
				}
				return printJSON(cmd.OutOrStdout(), list)
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entity types. Run \"catalog seed\" to create some.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tCATEGORY\tID\tDESCRIPTION")
			for _, et := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", et.Name, orDash(et.Category), et.ID, et.Description)
			}
			return tw.Flush()
		},
	}
}

func newTypeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "type <id|name>",
		Short: "Show an entity type's attributes and entities",
		Args:  userArgs(cobra.ExactArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, release, err := a.openStore()
			if err != nil {
				return err
			}
			defer release()

			et, err := resolveType(ctx, store, args[0])
			if err != nil {
				return err
			}
			tv, err := view.LoadType(ctx, store, et.ID, view.Options{Logger: a.logger})
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), struct {
					types.EntityTypeDetail
					Entities []types.Entity `json:"entities"`
				}{tv.Type(), nonNil(tv.Entities())})
			}
			return writeTypeView(cmd.OutOrStdout(), tv)
		},
	}
}

func writeTypeView(w io.Writer, tv *view.TypeView) error {
	detail := tv.Type()
	fmt.Fprintln(w, display.KeyStyle.Render(detail.Name)+"  "+display.BadgeStyle.Render(detail.ID))
	if detail.Description != "" {
		fmt.Fprintln(w, detail.Description)
	}

	fmt.Fprintln(w)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ATTRIBUTE\tSLUG\tTYPE\tREQUIRED\tDEFAULT")
	for _, attr := range tv.Attributes() {
		typ := string(attr.Type)
		if attr.RelatedEntityType != nil {
			typ += " → " + attr.RelatedEntityType.Name
		}
		if attr.Misconfigured() {
			typ += " (no target)"
		}
		def := display.Dash
		if attr.DefaultValue != nil {
			def = *attr.DefaultValue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", attr.Name, attr.Slug, typ, yesNo(attr.IsRequired), def)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	entities := tv.Entities()
	fmt.Fprintf(w, "\n%s (%d)\n", tv.Title(), len(entities))
	if len(entities) == 0 {
		fmt.Fprintln(w, "  none yet")
		return nil
	}
	tw = tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, e := range entities {
		fmt.Fprintf(tw, "  %s\t%s\t%s\n", e.Label(), e.Slug, e.ID)
	}
	return tw.Flush()
}

func newListCmd(a *app) *cobra.Command {
	var typeRef string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List entities",
		Long: `List entities of every type, or of one type with --type.

Example:
  catalog list
  catalog list --type product`,
		Args: userArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			store, release, err := a.openStore()
			if err != nil {
				return err
			}
			defer release()

			var typeID string
			if typeRef != "" {
				et, err := resolveType(ctx, store, typeRef)
				if err != nil {
					return err
				}
				typeID = et.ID
			}
			list, err := store.ListEntities(ctx, typeID)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), nonNil(list))
			}
			if len(list) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No entities.")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tNAME\tSLUG\tID")
			for _, e := range list {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", e.EntityTypeName, e.Name, e.Slug, e.ID)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&typeRef, "type", "", "entity type ID or name")
	return cmd
}

func nonNil(list []types.Entity) []types.Entity {
	if list == nil {
		return []types.Entity{}
	}
	return list
}

func orDash(s string) string {
	if s == "" {
		return display.Dash
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
