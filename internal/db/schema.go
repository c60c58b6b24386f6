package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
)

//go:embed sql/*.sql
var schemaFS embed.FS

// Ensure runs every embedded schema file in name order. Each file only
// contains IF NOT EXISTS statements, so running it on every start is safe.
func Ensure(ctx context.Context, db *sql.DB) error {
	names, err := fs.Glob(schemaFS, "sql/*.sql")
	if err != nil {
		return fmt.Errorf("schema glob: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		body, err := schemaFS.ReadFile(name)
		if err != nil {
			return fmt.Errorf("schema read %s: %w", name, err)
		}
		for _, stmt := range statements(string(body)) {
			if _, err := db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("schema apply %s: %w", name, err)
			}
		}
	}
	return nil
}

// statements splits a schema file so each statement goes through its own
// prepare; a prepared statement only runs the first statement of a batch.
func statements(body string) []string {
	var out []string
	for _, part := range strings.Split(body, ";") {
		if s := strings.TrimSpace(part); s != "" {
			out = append(out, s)
		}
	}
	return out
}
