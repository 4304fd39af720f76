package nostrstore

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/codec"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/nostr"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/observability"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/pool"
)

// reconcile makes persisted storage consistent with the index's authoritative
// view at startup. It decodes every stored record, hands the full ordered,
// deduplicated collection to the index, and purges exactly the ids the index
// rejects. Storage carries no domain policy of its own, so this is a pure
// ask-and-obey step.
//
// A decode failure on any record aborts the whole load; no partial index is
// built. A purge failure partway leaves a superset of the valid rows, which
// the next startup corrects.
func (s *Store) reconcile(ctx context.Context) (err error) {
	ctx, span := s.spans.StartOpSpan(ctx, "reconcile")
	defer func() { s.spans.EndSpanWithError(span, err) }()
	start := time.Now()

	events, err := s.loadAll(ctx)
	if err != nil {
		return err
	}

	nostr.SortEvents(events)
	events = nostr.DedupEvents(events)

	toDiscard := s.index.BulkLoad(ctx, events)
	if err := s.deleteIDs(ctx, toDiscard); err != nil {
		// The remaining rows are a superset of the valid set; the next
		// startup reconciliation purges them again.
		observability.LogReconcileError(s.logger, err, len(toDiscard))
		return fmt.Errorf("purge discarded events: %w", err)
	}

	elapsed := time.Since(start)
	observability.LogReconcile(s.logger, len(events), len(toDiscard), float64(elapsed.Milliseconds()))
	s.metrics.RecordReconcile(ctx, len(events), len(toDiscard), elapsed)
	return nil
}

// loadAll reads and decodes every stored event record in one pool task.
func (s *Store) loadAll(ctx context.Context) ([]*nostr.Event, error) {
	return pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) ([]*nostr.Event, error) {
		rows, err := conn.QueryContext(ctx, "SELECT event FROM events")
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var events []*nostr.Event
		for rows.Next() {
			var buf []byte
			if err := rows.Scan(&buf); err != nil {
				return nil, err
			}
			ev, err := codec.Decode(buf)
			if err != nil {
				return nil, err
			}
			events = append(events, ev)
		}
		return events, rows.Err()
	})
}
