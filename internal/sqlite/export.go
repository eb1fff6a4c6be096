package sqlite

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mesh-intelligence/catalog/pkg/types"
)

// Export writes a consistent snapshot of every data file to dir. The
// snapshot is a complete data directory: attaching a backend to dir loads
// it.
func (b *Backend) Export(ctx context.Context, dir string) error {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if !b.attached {
		return types.ErrDetached
	}

	abs, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", dir, err)
	}
	own, err := filepath.Abs(b.config.DataDir)
	if err != nil {
		return fmt.Errorf("resolving data dir: %w", err)
	}
	if abs == own {
		return fmt.Errorf("export target %s is the live data directory", dir)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tx, err := b.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning export: %w", err)
	}
	defer tx.Rollback()

	for _, name := range dataFiles {
		if err := writeTableJSONL(ctx, tx, abs, name); err != nil {
			return err
		}
	}
	return nil
}
