package nostrstore

import (
	"context"
	"database/sql"
	"errors"

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/codec"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/nostr"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/pool"
)

// EventByID fetches one event directly from storage by id.
// Returns ErrEventNotFound if no row exists.
func (s *Store) EventByID(ctx context.Context, id nostr.ID) (*nostr.Event, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	idHex := id.Hex()
	return pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) (*nostr.Event, error) {
		var buf []byte
		err := conn.QueryRowContext(ctx, "SELECT event FROM events WHERE event_id = ?", idHex).Scan(&buf)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrEventNotFound
		}
		if err != nil {
			return nil, err
		}
		return codec.Decode(buf)
	})
}

// HasEventAlreadyBeenSaved reports whether the id is known: either the index
// records it as deleted (fast authoritative path) or a storage row exists.
// The two views are reconciled no more strongly than the next startup bulk load.
func (s *Store) HasEventAlreadyBeenSaved(ctx context.Context, id nostr.ID) (bool, error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}
	if s.index.HasEventIDBeenDeleted(ctx, id) {
		return true, nil
	}
	idHex := id.Hex()
	return pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) (bool, error) {
		return rowExists(ctx, conn, "SELECT EXISTS(SELECT 1 FROM events WHERE event_id = ? LIMIT 1)", idHex)
	})
}

// HasEventAlreadyBeenSeen reports whether any relay-seen association exists
// for the id.
func (s *Store) HasEventAlreadyBeenSeen(ctx context.Context, id nostr.ID) (bool, error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}
	idHex := id.Hex()
	return pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) (bool, error) {
		return rowExists(ctx, conn, "SELECT EXISTS(SELECT 1 FROM event_seen_by_relays WHERE event_id = ? LIMIT 1)", idHex)
	})
}

// HasEventIDBeenDeleted delegates to the index; storage is never consulted.
func (s *Store) HasEventIDBeenDeleted(ctx context.Context, id nostr.ID) (bool, error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}
	return s.index.HasEventIDBeenDeleted(ctx, id), nil
}

// HasCoordinateBeenDeleted delegates to the index; storage is never consulted.
func (s *Store) HasCoordinateBeenDeleted(ctx context.Context, c nostr.Coordinate, t nostr.Timestamp) (bool, error) {
	if s.closed.Load() {
		return false, ErrStoreClosed
	}
	return s.index.HasCoordinateBeenDeleted(ctx, c, t), nil
}

// EventIDSeen records that an event was seen on a relay. Idempotent: repeated
// calls with the same pair leave exactly one association row.
func (s *Store) EventIDSeen(ctx context.Context, id nostr.ID, relayURL string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}
	idHex := id.Hex()
	_, err := pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) (struct{}, error) {
		_, err := conn.ExecContext(ctx,
			"INSERT OR IGNORE INTO event_seen_by_relays (event_id, relay_url) VALUES (?, ?)",
			idHex, relayURL)
		return struct{}{}, err
	})
	return err
}

// EventSeenOnRelays returns the set of relay urls the event was seen on,
// empty if none were recorded.
func (s *Store) EventSeenOnRelays(ctx context.Context, id nostr.ID) ([]string, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	idHex := id.Hex()
	return pool.Interact(ctx, s.pool, func(ctx context.Context, conn *sql.Conn) ([]string, error) {
		rows, err := conn.QueryContext(ctx,
			"SELECT relay_url FROM event_seen_by_relays WHERE event_id = ?", idHex)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		relays := make([]string, 0)
		for rows.Next() {
			var url string
			if err := rows.Scan(&url); err != nil {
				return nil, err
			}
			relays = append(relays, url)
		}
		return relays, rows.Err()
	})
}

// Count delegates filter evaluation to the index.
func (s *Store) Count(ctx context.Context, filters []nostr.Filter) (int, error) {
	if s.closed.Load() {
		return 0, ErrStoreClosed
	}
	return s.index.Count(ctx, filters), nil
}

// Query delegates filter evaluation and ordering to the index.
func (s *Store) Query(ctx context.Context, filters []nostr.Filter, order nostr.Order) ([]*nostr.Event, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	return s.index.Query(ctx, filters, order), nil
}

// NegentropyItems delegates to the index.
func (s *Store) NegentropyItems(ctx context.Context, filter nostr.Filter) ([]nostr.NegentropyItem, error) {
	if s.closed.Load() {
		return nil, ErrStoreClosed
	}
	return s.index.NegentropyItems(ctx, filter), nil
}

// rowExists runs an EXISTS query with one bind argument.
func rowExists(ctx context.Context, conn *sql.Conn, query, arg string) (bool, error) {
	var exists int
	if err := conn.QueryRowContext(ctx, query, arg).Scan(&exists); err != nil {
		return false, err
	}
	return exists == 1, nil
}
