package nostrstore

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/pool"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 1 - Baseline: events and event_seen_by_relays tables
const currentSchemaVersion = 1

// migrate brings the schema to currentSchemaVersion through the pool.
// The baseline script is idempotent, so re-execution at every open (and
// after a wipe) is harmless.
func migrate(ctx context.Context, p *pool.Pool) error {
	_, err := pool.Interact(ctx, p, func(ctx context.Context, conn *sql.Conn) (struct{}, error) {
		return struct{}{}, applySchema(ctx, conn)
	})
	if err != nil {
		return &MigrationError{Version: currentSchemaVersion, Err: err}
	}
	return nil
}

// applySchema runs the baseline script and advances user_version. It must be
// called with exclusive access to the connection; wipe reuses it inside its
// own pool task.
func applySchema(ctx context.Context, conn *sql.Conn) error {
	if _, err := conn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("execute schema: %w", err)
	}

	var version int
	if err := conn.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	// Incremental migrations slot in here as versions accrue; the baseline
	// script already creates the version-1 layout.
	if version < currentSchemaVersion {
		stmt := fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("set user_version: %w", err)
		}
	}

	return nil
}
