package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func Open(ctx context.Context, uri string) (*sql.DB, error) {
	db, err := sql.Open("postgres", uri)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("database is unreachable: %w", err)
	}
	return db, nil
}

// Migrations returns the embedded migration file names in apply order.
func Migrations() ([]string, error) {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return nil, err
	}
	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)
	return files, nil
}

// Statements splits one migration file into executable statements.
func Statements(file string) ([]string, error) {
	content, err := fs.ReadFile(migrationsFS, "migrations/"+file)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, q := range strings.Split(string(content), ";") {
		if q = strings.TrimSpace(q); q != "" {
			out = append(out, q)
		}
	}
	return out, nil
}

// Migrate applies every embedded migration. Statements are idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	files, err := Migrations()
	if err != nil {
		return err
	}
	for _, file := range files {
		stmts, err := Statements(file)
		if err != nil {
			return err
		}
		for _, q := range stmts {
			if _, err := db.ExecContext(ctx, q); err != nil {
				if strings.Contains(err.Error(), "already exists") {
					continue
				}
				return fmt.Errorf("execute query in %s: %w", file, err)
			}
		}
		slog.Info("migration applied", "file", file)
	}
	return nil
}
