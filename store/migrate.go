package store

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
)

// One statement per file: the MySQL driver rejects multi-statement Exec.
//
//go:embed migrations/mysql/*.sql migrations/postgres/*.sql
var migrationsFS embed.FS

type migration struct {
	Name string
	SQL  string
}

func loadMigrations(dialect string) ([]migration, error) {
	names, err := fs.Glob(migrationsFS, "migrations/"+dialect+"/*.sql")
	if err != nil {
		return nil, fmt.Errorf("list migrations: %w", err)
	}
	sort.Strings(names)
	out := make([]migration, 0, len(names))
	for _, name := range names {
		b, err := migrationsFS.ReadFile(name)
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		out = append(out, migration{Name: name, SQL: string(b)})
	}
	return out, nil
}

// Migrate applies the embedded MySQL schema. Statements are idempotent.
func (s *MySQL) Migrate(ctx context.Context) ([]string, error) {
	ms, err := loadMigrations("mysql")
	if err != nil {
		return nil, err
	}
	applied := make([]string, 0, len(ms))
	for _, m := range ms {
		if _, err := s.db.ExecContext(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		applied = append(applied, m.Name)
	}
	return applied, nil
}

// Migrate applies the embedded Postgres schema. Statements are idempotent.
func (s *Postgres) Migrate(ctx context.Context) ([]string, error) {
	ms, err := loadMigrations("postgres")
	if err != nil {
		return nil, err
	}
	applied := make([]string, 0, len(ms))
	for _, m := range ms {
		if _, err := s.pool.Exec(ctx, m.SQL); err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", m.Name, err)
		}
		applied = append(applied, m.Name)
	}
	return applied, nil
}
