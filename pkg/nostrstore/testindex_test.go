package nostrstore

import (
	"context"
	"sync"

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/nostr"
)

// fakeIndex is a minimal in-memory Index for store tests. It applies
// first-write-wins dedup plus whatever rejections and deletions the test
// configures; it makes no attempt at real replaceable-event policy.
type fakeIndex struct {
	mu      sync.Mutex
	events  map[nostr.ID]*nostr.Event
	deleted map[nostr.ID]struct{}

	// rejectIDs are refused by BulkLoad and BulkImport.
	rejectIDs map[nostr.ID]struct{}
	// discardOnSave is returned as the eviction set by the next IndexEvent
	// that stores an event.
	discardOnSave []nostr.ID
	// deletedCoordinates answers HasCoordinateBeenDeleted.
	deletedCoordinates map[nostr.Coordinate]nostr.Timestamp
}

func newFakeIndex() *fakeIndex {
	return &fakeIndex{
		events:             make(map[nostr.ID]*nostr.Event),
		deleted:            make(map[nostr.ID]struct{}),
		rejectIDs:          make(map[nostr.ID]struct{}),
		deletedCoordinates: make(map[nostr.Coordinate]nostr.Timestamp),
	}
}

var _ Index = (*fakeIndex)(nil)

func (f *fakeIndex) BulkLoad(_ context.Context, events []*nostr.Event) []nostr.ID {
	f.mu.Lock()
	defer f.mu.Unlock()
	var discard []nostr.ID
	for _, ev := range events {
		if _, reject := f.rejectIDs[ev.ID]; reject {
			discard = append(discard, ev.ID)
			continue
		}
		f.events[ev.ID] = ev
	}
	return discard
}

func (f *fakeIndex) IndexEvent(_ context.Context, ev *nostr.Event) IndexResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.events[ev.ID]; dup {
		return IndexResult{}
	}
	if _, del := f.deleted[ev.ID]; del {
		return IndexResult{}
	}
	f.events[ev.ID] = ev
	discard := f.discardOnSave
	f.discardOnSave = nil
	for _, id := range discard {
		delete(f.events, id)
	}
	return IndexResult{ToStore: true, ToDiscard: discard}
}

func (f *fakeIndex) BulkImport(_ context.Context, events []*nostr.Event) []*nostr.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var accepted []*nostr.Event
	for _, ev := range events {
		if _, reject := f.rejectIDs[ev.ID]; reject {
			continue
		}
		if _, dup := f.events[ev.ID]; dup {
			continue
		}
		f.events[ev.ID] = ev
		accepted = append(accepted, ev)
	}
	return accepted
}

func (f *fakeIndex) HasEventIDBeenDeleted(_ context.Context, id nostr.ID) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.deleted[id]
	return ok
}

func (f *fakeIndex) HasCoordinateBeenDeleted(_ context.Context, c nostr.Coordinate, t nostr.Timestamp) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	at, ok := f.deletedCoordinates[c]
	return ok && at >= t
}

func (f *fakeIndex) Count(_ context.Context, filters []nostr.Filter) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(filters) == 0 {
		return len(f.events)
	}
	n := 0
	for _, ev := range f.events {
		if matchesAny(ev, filters) {
			n++
		}
	}
	return n
}

func (f *fakeIndex) Query(_ context.Context, filters []nostr.Filter, order nostr.Order) []*nostr.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []*nostr.Event
	for _, ev := range f.events {
		if len(filters) == 0 || matchesAny(ev, filters) {
			out = append(out, ev)
		}
	}
	nostr.SortEvents(out)
	if order == nostr.Ascending {
		for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
			out[i], out[j] = out[j], out[i]
		}
	}
	return out
}

func (f *fakeIndex) NegentropyItems(_ context.Context, filter nostr.Filter) []nostr.NegentropyItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []nostr.NegentropyItem
	for _, ev := range f.events {
		if matchesAny(ev, []nostr.Filter{filter}) {
			out = append(out, nostr.NegentropyItem{ID: ev.ID, CreatedAt: ev.CreatedAt})
		}
	}
	return out
}

func (f *fakeIndex) Delete(_ context.Context, filter nostr.Filter) ([]nostr.ID, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(filter.IDs) == 0 && len(filter.Authors) == 0 && len(filter.Kinds) == 0 {
		f.events = make(map[nostr.ID]*nostr.Event)
		return nil, true
	}
	ids := make([]nostr.ID, 0)
	for id, ev := range f.events {
		if matchesAny(ev, []nostr.Filter{filter}) {
			ids = append(ids, id)
		}
	}
	for _, id := range ids {
		delete(f.events, id)
	}
	return ids, false
}

func (f *fakeIndex) Clear(_ context.Context) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = make(map[nostr.ID]*nostr.Event)
	f.deleted = make(map[nostr.ID]struct{})
}

// matchesAny implements just enough filter matching for the tests: IDs,
// Authors, and Kinds, each ANDed when present.
func matchesAny(ev *nostr.Event, filters []nostr.Filter) bool {
	for _, fl := range filters {
		if matches(ev, fl) {
			return true
		}
	}
	return false
}

func matches(ev *nostr.Event, fl nostr.Filter) bool {
	if len(fl.IDs) > 0 && !containsID(fl.IDs, ev.ID) {
		return false
	}
	if len(fl.Authors) > 0 && !containsAuthor(fl.Authors, ev.PubKey) {
		return false
	}
	if len(fl.Kinds) > 0 && !containsKind(fl.Kinds, ev.Kind) {
		return false
	}
	return true
}

func containsID(ids []nostr.ID, id nostr.ID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

func containsAuthor(keys []nostr.PubKey, pk nostr.PubKey) bool {
	for _, v := range keys {
		if v == pk {
			return true
		}
	}
	return false
}

func containsKind(kinds []nostr.Kind, k nostr.Kind) bool {
	for _, v := range kinds {
		if v == k {
			return true
		}
	}
	return false
}
