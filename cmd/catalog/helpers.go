package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mesh-intelligence/catalog/internal/client"
	"github.com/mesh-intelligence/catalog/internal/editor"
	"github.com/mesh-intelligence/catalog/internal/paths"
	"github.com/mesh-intelligence/catalog/internal/session"
	"github.com/mesh-intelligence/catalog/internal/sqlite"
	"github.com/mesh-intelligence/catalog/pkg/types"
)

// userErrors are failures caused by input rather than by the system.
var userErrors = []error{
	types.ErrNotFound,
	types.ErrEntityTypeNotFound,
	types.ErrInvalidName,
	types.ErrInvalidSlug,
	types.ErrDuplicateSlug,
	types.ErrUnknownAttribute,
	types.ErrInvalidValue,
	types.ErrInvalidRelation,
	types.ErrBackendEmpty,
	types.ErrBackendUnknown,
	editor.ErrReadOnly,
	editor.ErrNotRelation,
	editor.ErrNotScalar,
	editor.ErrInvalidInput,
	editor.ErrUnknownCandidate,
	editor.ErrAlreadySelected,
	editor.ErrNotSelected,
	editor.ErrDeselectSingle,
	session.ErrCommitInProgress,
}

// openLocal attaches the SQLite store in the resolved data directory. The
// caller must Detach it.
func (a *app) openLocal() (*sqlite.Backend, error) {
	dataDir, err := paths.ResolveDataDir(a.dataDir, a.cfg.GetString(cfgKeyDataDir))
	if err != nil {
		return nil, fmt.Errorf("resolving data dir: %w", err)
	}
	b := sqlite.NewBackend(sqlite.WithLogger(a.logger))
	cfg := types.Config{Backend: a.cfg.GetString(cfgKeyBackend), DataDir: dataDir}
	if err := b.Attach(cfg); err != nil {
		return nil, fmt.Errorf("attaching store: %w", err)
	}
	a.logger.Debug("attached local store", zap.String("data_dir", dataDir))
	return b, nil
}

// openStore returns the server client when a server URL is configured,
// otherwise the local store. release frees it.
func (a *app) openStore() (store types.Store, release func(), err error) {
	if a.serverURL != "" {
		c, err := client.New(a.serverURL, client.WithLogger(a.logger))
		if err != nil {
			return nil, nil, userError(err)
		}
		return c, func() {}, nil
	}
	b, err := a.openLocal()
	if err != nil {
		return nil, nil, err
	}
	return b, func() {
		if err := b.Detach(); err != nil {
			a.logger.Warn("detaching store", zap.Error(err))
		}
	}, nil
}

// requireLocal rejects commands that only work against the local store.
func (a *app) requireLocal(command string) error {
	if a.serverURL != "" {
		return userErrorf("%s works on the local store only; unset --server", command)
	}
	return nil
}

// resolveType finds an entity type by ID or by name.
func resolveType(ctx context.Context, store types.Store, ref string) (types.EntityType, error) {
	list, err := store.ListEntityTypes(ctx)
	if err != nil {
		return types.EntityType{}, fmt.Errorf("listing entity types: %w", err)
	}
	for _, et := range list {
		if et.ID == ref || et.Name == ref {
			return et, nil
		}
	}
	return types.EntityType{}, fmt.Errorf("%w: %s", types.ErrEntityTypeNotFound, ref)
}

// resolveEntity finds an entity by ID or by "type/slug".
func resolveEntity(ctx context.Context, store types.Store, ref string) (types.Entity, error) {
	if typeName, s, ok := strings.Cut(ref, "/"); ok {
		e, err := store.GetEntityBySlug(ctx, typeName, s)
		if err == nil || !errors.Is(err, types.ErrNotFound) {
			return e, err
		}
	}
	return store.GetEntity(ctx, ref)
}

// assignment is a parsed slug=value flag.
type assignment struct {
	slug  string
	value string
}

func parseAssignments(flag string, raw []string) ([]assignment, error) {
	out := make([]assignment, 0, len(raw))
	for _, r := range raw {
		k, v, ok := strings.Cut(r, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, userErrorf("--%s %q: expected slug=value", flag, r)
		}
		out = append(out, assignment{slug: k, value: v})
	}
	return out, nil
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}

func loadLocation(name string) (*time.Location, error) {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, userErrorf("--tz %q: %w", name, err)
	}
	return loc, nil
}
