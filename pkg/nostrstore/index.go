package nostrstore

import (
	"context"

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/nostr"
)

// IndexResult is the index's verdict on a candidate event: whether to persist
// it, and which previously stored events it supersedes.
type IndexResult struct {
	ToStore   bool
	ToDiscard []nostr.ID
}

// Index is the authoritative in-memory collaborator owning all domain policy:
// filter evaluation, deduplication, and replaceable-event supersession. The
// store never duplicates or overrides its decisions; it only applies them
// durably. Implementations must be safe for concurrent use and must never
// require the storage connection while evaluating policy.
type Index interface {
	// BulkLoad ingests every persisted event at startup and returns the IDs
	// that must not be retained (duplicates, superseded replaceables, events
	// covered by a deletion, or otherwise policy-invalid).
	BulkLoad(ctx context.Context, events []*nostr.Event) []nostr.ID

	// IndexEvent decides whether one candidate is stored and what it evicts.
	IndexEvent(ctx context.Context, ev *nostr.Event) IndexResult

	// BulkImport returns the accepted subset of a batch, resolving
	// intra-batch conflicts (e.g. two candidates for the same coordinate).
	BulkImport(ctx context.Context, events []*nostr.Event) []*nostr.Event

	// HasEventIDBeenDeleted reports whether the ID is covered by a deletion.
	HasEventIDBeenDeleted(ctx context.Context, id nostr.ID) bool

	// HasCoordinateBeenDeleted reports whether the coordinate was deleted at
	// or after the given timestamp.
	HasCoordinateBeenDeleted(ctx context.Context, c nostr.Coordinate, t nostr.Timestamp) bool

	// Count returns the number of indexed events matching the filters.
	Count(ctx context.Context, filters []nostr.Filter) int

	// Query returns the indexed events matching the filters in the given order.
	Query(ctx context.Context, filters []nostr.Filter, order nostr.Order) []*nostr.Event

	// NegentropyItems returns (id, timestamp) pairs matching the filter.
	NegentropyItems(ctx context.Context, filter nostr.Filter) []nostr.NegentropyItem

	// Delete removes matching events from the index. all=true means every
	// event was removed and storage must clear the whole table; all=false
	// with an empty ids slice means nothing matched and nothing is deleted.
	// The two cases must stay distinguishable.
	Delete(ctx context.Context, filter nostr.Filter) (ids []nostr.ID, all bool)

	// Clear resets the index's in-memory state.
	Clear(ctx context.Context)
}
