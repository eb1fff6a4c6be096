package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/sqlite"
)

func newSeedCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "seed [file.yaml]",
		Short: "Apply a YAML seed of entity types and entities",
		Long: `Seed declares entity types, their attributes and entities in YAML and
applies them to the local store. Existing types, attributes and entities are
left alone, so seeding is repeatable. Without a file the demo catalog is
applied.

Example:
  catalog seed schema.yaml`,
		Args: userArgs(cobra.MaximumNArgs(1)),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.requireLocal("seed"); err != nil {
				return err
			}
			doc, err := readSeed(args)
			if err != nil {
				return err
			}

			b, err := a.openLocal()
			if err != nil {
				return err
			}
			defer b.Detach()

			res, err := b.Seed(cmd.Context(), doc)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(cmd.OutOrStdout(), map[string]int{
					"entity_types": res.EntityTypes,
					"attributes":   res.Attributes,
					"entities":     res.Entities,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created %d entity types, %d attributes, %d entities\n",
				res.EntityTypes, res.Attributes, res.Entities)
			return nil
		},
	}
}

func readSeed(args []string) (sqlite.SeedDoc, error) {
	if len(args) == 0 {
		return sqlite.DemoSeed()
	}
	data, err := os.ReadFile(args[0])
	if err != nil {
		return sqlite.SeedDoc{}, userError(err)
	}
	doc, err := sqlite.ParseSeed(data)
	if err != nil {
		return sqlite.SeedDoc{}, userError(err)
	}
	return doc, nil
}
