package db

import (
	"context"
	_ "embed"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the patch_result table and its indexes if missing.
// Intended as a bootstrap.WithDBInitHook hook.
func EnsureSchema(database *DB) error {
	ctx := context.Background()

	if _, err := database.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}

	database.log.Info("database schema ensured", "table", "patch_result")
	return nil
}
