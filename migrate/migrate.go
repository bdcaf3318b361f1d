package migrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"
	"sort"

	"github.com/jackc/pgx/v5/pgxpool"
)

// CoreDir resolves the repository's migrations directory relative to this file
// so tests and the CLI agree on a single schema source.
func CoreDir() string {
	if _, file, _, ok := runtime.Caller(0); ok {
		return filepath.Join(filepath.Dir(file), "..", "migrations")
	}
	return "migrations"
}

// Apply executes the .sql files of each directory in lexical order against the
// pool. Missing directories are skipped.
func Apply(ctx context.Context, pool *pgxpool.Pool, dirs ...string) error {
	for _, dir := range dirs {
		if err := execDir(ctx, pool, dir); err != nil {
			return err
		}
	}
	return nil
}

func execDir(ctx context.Context, pool *pgxpool.Pool, dir string) error {
	if dir == "" {
		return nil
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("migrate: read dir %s: %w", dir, err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return fmt.Errorf("migrate: read %s: %w", e.Name(), err)
		}
		if _, err := pool.Exec(ctx, string(data)); err != nil {
			return fmt.Errorf("migrate: apply %s: %w", e.Name(), err)
		}
	}

	return nil
}
