package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mesh-intelligence/catalog/internal/editor"
	"github.com/mesh-intelligence/catalog/internal/slug"
	"github.com/mesh-intelligence/catalog/internal/view"
)

type editFlags struct {
	set     []string
	sel     []string
	remove  []string
	create  []string
	dryRun  bool
	timeloc string
}

// plannedCreate is a --new that a dry run reports instead of creating.
type plannedCreate struct {
	Attribute  string `json:"attribute"`
	EntityType string `json:"entity_type"`
	Name       string `json:"name"`
	Slug       string `json:"slug"`
}

type dryRunResult struct {
	Values any             `json:"values"`
	Create []plannedCreate `json:"create,omitempty"`
}

func newEditCmd(a *app) *cobra.Command {
	var f editFlags
	cmd := &cobra.Command{
		Use:   "edit <id|type/slug>",
		Short: "Edit an entity's values",
		Long: `Edit stages changes through the attribute editors and commits them in one
update. Scalars are typed in with --set; relations take candidates with
--select (ID or label), lose them with --remove, or get a newly created
entity with --new. --dry-run prints the staged changes and the entities --new
would create, without writing anything.

Example:
  catalog edit product/oak-stool --set price=95 --select color=Red
  catalog edit product/oak-stool --new tags="Limited edition" --dry-run`,
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
			opts := view.Options{Logger: a.logger}
			if f.timeloc != "" {
				loc, err := loadLocation(f.timeloc)
				if err != nil {
					return err
				}
				opts.Location = loc
			}
			v, err := view.LoadEntity(ctx, store, e.ID, opts)
			if err != nil {
				return err
			}
			defer v.Close()

			planned, err := applyEdits(ctx, v, f)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !v.Session().HasChanges() && len(planned) == 0 {
				fmt.Fprintln(out, "No changes.")
				return nil
			}
			if f.dryRun {
				if a.jsonOut {
					return printJSON(out, dryRunResult{Values: v.Session().Overlay(), Create: planned})
				}
				if v.Session().HasChanges() {
					writeEntityView(out, v, view.Editing)
				}
				for _, p := range planned {
					fmt.Fprintf(out, "Would create %s %q (%s) for %s\n", p.EntityType, p.Name, p.Slug, p.Attribute)
				}
				return v.Discard()
			}
			updated, err := v.Commit(ctx)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return printJSON(out, updated)
			}
			writeEntityView(out, v, view.Viewing)
			return nil
		},
	}
	fl := cmd.Flags()
	fl.StringArrayVar(&f.set, "set", nil, "set a scalar value: slug=value (blank clears numbers and dates)")
	fl.StringArrayVar(&f.sel, "select", nil, "select a related entity: slug=<id|label>")
	fl.StringArrayVar(&f.remove, "remove", nil, "remove an entity from a multi relation: slug=<id|label>")
	fl.StringArrayVar(&f.create, "new", nil, "create a related entity and select it: slug=<name>")
	fl.BoolVar(&f.dryRun, "dry-run", false, "print staged changes without committing or creating entities")
	fl.StringVar(&f.timeloc, "tz", "", "time zone for datetime input without an offset (default UTC)")
	return cmd
}

// applyEdits drives the entity's editors in flag order: sets, selects,
// removals, then creations. In a dry run creations are validated and
// returned instead of sent to the store.
func applyEdits(ctx context.Context, v *view.EntityView, f editFlags) ([]plannedCreate, error) {
	sets, err := parseAssignments("set", f.set)
	if err != nil {
		return nil, err
	}
	for _, as := range sets {
		if err := v.Editor(as.slug).Input(as.value); err != nil {
			return nil, editError(as, err)
		}
	}

	sels, err := parseAssignments("select", f.sel)
	if err != nil {
		return nil, err
	}
	for _, as := range sels {
		ed := v.Editor(as.slug)
		if err := ed.LoadCandidates(ctx); err != nil {
			return nil, editError(as, err)
		}
		id, err := candidateID(ed, as.value)
		if err != nil {
			return nil, editError(as, err)
		}
		if err := ed.Select(id); err != nil {
			return nil, editError(as, err)
		}
	}

	removals, err := parseAssignments("remove", f.remove)
	if err != nil {
		return nil, err
	}
	for _, as := range removals {
		ed := v.Editor(as.slug)
		id := as.value
		for _, r := range ed.Selected() {
			if strings.EqualFold(r.Label(), as.value) {
				id = r.ID
				break
			}
		}
		if err := ed.Deselect(id); err != nil {
			return nil, editError(as, err)
		}
	}

	creates, err := parseAssignments("new", f.create)
	if err != nil {
		return nil, err
	}
	var planned []plannedCreate
	for _, as := range creates {
		ed := v.Editor(as.slug)
		if err := ed.LoadCandidates(ctx); err != nil {
			return nil, editError(as, err)
		}
		if f.dryRun {
			name, s, err := slug.For(as.value)
			if err != nil {
				return nil, editError(as, err)
			}
			p := plannedCreate{Attribute: as.slug, Name: name, Slug: s}
			if target := ed.Target(); target != nil {
				p.EntityType = target.Name
			}
			planned = append(planned, p)
			continue
		}
		if err := ed.BeginCreate(); err != nil {
			return nil, editError(as, err)
		}
		if err := ed.SetNewName(as.value); err != nil {
			return nil, editError(as, err)
		}
		if _, err := ed.SubmitCreate(ctx); err != nil {
			return nil, editError(as, err)
		}
	}
	return planned, nil
}

// candidateID matches ref against candidate IDs first, then labels.
func candidateID(ed *editor.Editor, ref string) (string, error) {
	opts := ed.Options()
	for _, o := range opts {
		if o.ID == ref {
			return o.ID, nil
		}
	}
	for _, o := range opts {
		if strings.EqualFold(o.Label, ref) {
			return o.ID, nil
		}
	}
	return "", fmt.Errorf("%w: %s", editor.ErrUnknownCandidate, ref)
}

func editError(as assignment, err error) error {
	return fmt.Errorf("%s: %w", as.slug, err)
}
