package nostrstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/nostr"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/observability"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/pool"
)

const insertEventSQL = "INSERT OR IGNORE INTO events (event_id, event) VALUES (?, ?)"

// SaveEvent asks the index to decide the candidate's fate, applies any
// discards, and persists the event if accepted. Re-saving an already-present
// id is a successful no-op. Returns whether the event was stored.
//
// The index is always consulted before any storage mutation, so storage can
// never contradict a concurrently revised index decision.
func (s *Store) SaveEvent(ctx context.Context, ev *nostr.Event) (stored bool, err error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}
	ctx, span := s.spans.StartOpSpan(ctx, "save")
	start := time.Now()
	defer func() {
		s.metrics.RecordSave(ctx, stored, time.Since(start), err)
		s.spans.EndSpanWithError(span, err)
	}()

	res := s.index.IndexEvent(ctx, ev)

	if err := s.deleteIDs(ctx, res.ToDiscard); err != nil {
		return false, err
	}

	if !res.ToStore {
		observability.LogSave(s.logger, ev.ID.Hex(), false, len(res.ToDiscard))
		return false, nil
	}

	// Encode before touching the connection: index decision, then scratch
	// buffer, then connection is the fixed lock order everywhere.
	encoded := s.builder.Encode(ev)
	idHex := ev.ID.Hex()

	_, err = pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) (struct{}, error) {
		_, err := conn.ExecContext(ctx, insertEventSQL, idHex, encoded)
		return struct{}{}, err
	})
	if err != nil {
		return false, err
	}

	observability.LogSave(s.logger, idHex, true, len(res.ToDiscard))
	return true, nil
}

// BulkImport persists the subset of events the index accepts, inside one
// transaction: either every accepted event becomes durable or none do, and
// the caller retries the whole batch. The index resolves intra-batch
// conflicts before storage sees anything.
func (s *Store) BulkImport(ctx context.Context, events []*nostr.Event) (err error) {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	ctx, span := s.spans.StartOpSpan(ctx, "bulk_import")
	start := time.Now()

	accepted := s.index.BulkImport(ctx, events)

	defer func() {
		elapsed := time.Since(start)
		s.metrics.RecordBulkImport(ctx, len(accepted), elapsed, err)
		s.spans.EndSpanWithError(span, err)
		if err == nil {
			observability.LogBulkImport(s.logger, len(events), len(accepted), float64(elapsed.Milliseconds()))
		}
	}()

	if len(accepted) == 0 {
		return nil
	}

	// Encode everything before the transaction starts; the scratch buffer is
	// never held while waiting on the connection.
	type record struct {
		id   string
		data []byte
	}
	records := make([]record, 0, len(accepted))
	for _, ev := range accepted {
		records = append(records, record{id: ev.ID.Hex(), data: s.builder.Encode(ev)})
	}

	_, err = pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) (struct{}, error) {
		tx, err := conn.BeginTx(ctx, nil)
		if err != nil {
			return struct{}{}, err
		}
		for _, r := range records {
			if _, err := tx.ExecContext(ctx, insertEventSQL, r.id, r.data); err != nil {
				_ = tx.Rollback()
				return struct{}{}, err
			}
		}
		return struct{}{}, tx.Commit()
	})
	return err
}
