package nostrstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/nostr"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/observability"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/pool"
)

// DeleteByFilter removes the events the index matches against the filter.
// When the index signals delete-all the whole table is cleared; a filter
// matching zero events deletes nothing. Those two outcomes never collapse
// into each other.
func (s *Store) DeleteByFilter(ctx context.Context, filter nostr.Filter) (err error) {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	ctx, span := s.spans.StartOpSpan(ctx, "delete")
	defer func() { s.spans.EndSpanWithError(span, err) }()

	ids, all := s.index.Delete(ctx, filter)
	if all {
		_, err = pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) (struct{}, error) {
			_, err := conn.ExecContext(ctx, "DELETE FROM events")
			return struct{}{}, err
		})
		return err
	}
	return s.deleteIDs(ctx, ids)
}

// Wipe physically resets storage: drops all tables, vacuums, re-applies the
// baseline schema, then clears the index. The reset and re-initialization run
// inside one pool task, so no caller ever observes a half-reset state.
func (s *Store) Wipe(ctx context.Context) (err error) {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	ctx, span := s.spans.StartOpSpan(ctx, "wipe")
	start := time.Now()
	defer func() {
		if err == nil {
			elapsed := time.Since(start)
			s.metrics.RecordWipe(ctx, elapsed)
			observability.LogWipe(s.logger, float64(elapsed.Milliseconds()))
		}
		s.spans.EndSpanWithError(span, err)
	}()

	_, err = pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) (struct{}, error) {
		drops := []string{
			"DROP TABLE IF EXISTS events",
			"DROP TABLE IF EXISTS event_seen_by_relays",
			"PRAGMA user_version = 0",
			"VACUUM",
		}
		for _, stmt := range drops {
			if _, err := conn.ExecContext(ctx, stmt); err != nil {
				return struct{}{}, fmt.Errorf("reset database: %w", err)
			}
		}
		if err := applySchema(ctx, conn); err != nil {
			return struct{}{}, &MigrationError{Version: currentSchemaVersion, Err: err}
		}
		return struct{}{}, nil
	})
	if err != nil {
		return err
	}

	s.index.Clear(ctx)
	return nil
}
