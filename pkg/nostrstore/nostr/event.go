// Package nostr defines the domain types stored and exchanged by nostrstore:
// content-addressed events, their natural ordering, and the filter and
// coordinate types used when talking to the index.
//
// The storage layer treats events as opaque beyond their ID and ordering.
// All policy over these types (filter evaluation, deduplication, replacement)
// lives in the index collaborator, not here.
package nostr

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
)

// ID is the content hash identifying an event. Hex-encoded when used as a
// storage key.
type ID [32]byte

// Hex returns the lowercase hex encoding of the ID.
func (id ID) Hex() string {
	return hex.EncodeToString(id[:])
}

// String implements fmt.Stringer.
func (id ID) String() string {
	return id.Hex()
}

// IDFromHex parses a 64-character hex string into an ID.
func IDFromHex(s string) (ID, error) {
	var id ID
	if len(s) != 64 {
		return id, fmt.Errorf("event id must be 64 hex characters, got %d", len(s))
	}
	if _, err := hex.Decode(id[:], []byte(s)); err != nil {
		return id, fmt.Errorf("parse event id: %w", err)
	}
	return id, nil
}

// PubKey is the author public key of an event.
type PubKey [32]byte

// Hex returns the lowercase hex encoding of the key.
func (pk PubKey) Hex() string {
	return hex.EncodeToString(pk[:])
}

// PubKeyFromHex parses a 64-character hex string into a PubKey.
func PubKeyFromHex(s string) (PubKey, error) {
	var pk PubKey
	if len(s) != 64 {
		return pk, fmt.Errorf("pubkey must be 64 hex characters, got %d", len(s))
	}
	if _, err := hex.Decode(pk[:], []byte(s)); err != nil {
		return pk, fmt.Errorf("parse pubkey: %w", err)
	}
	return pk, nil
}

// Signature is the event signature. Opaque to this layer; never validated here.
type Signature [64]byte

// Timestamp is a creation time in whole seconds since the Unix epoch.
type Timestamp int64

// Kind classifies an event. Kind ranges follow the protocol conventions for
// replaceable and addressable events; the index uses these to decide
// supersession, the storage layer never does.
type Kind uint16

// IsReplaceable reports whether later events from the same author supersede
// earlier ones of this kind.
func (k Kind) IsReplaceable() bool {
	return k == 0 || k == 3 || (k >= 10000 && k < 20000)
}

// IsEphemeral reports whether events of this kind are never persisted.
func (k Kind) IsEphemeral() bool {
	return k >= 20000 && k < 30000
}

// IsAddressable reports whether events of this kind are replaceable per
// identifier tag (one slot per coordinate).
func (k Kind) IsAddressable() bool {
	return k >= 30000 && k < 40000
}

// Tag is an ordered list of strings; the first element is the tag name.
type Tag []string

// Event is an immutable, content-addressed protocol event.
type Event struct {
	ID        ID
	PubKey    PubKey
	CreatedAt Timestamp
	Kind      Kind
	Tags      []Tag
	Content   string
	Sig       Signature
}

// Identifier returns the value of the first "d" tag, or "" if none. It keys
// the coordinate of addressable events.
func (e *Event) Identifier() string {
	for _, t := range e.Tags {
		if len(t) >= 2 && t[0] == "d" {
			return t[1]
		}
	}
	return ""
}

// Coordinate returns the logical replacement slot this event occupies.
// Meaningful only for replaceable and addressable kinds.
func (e *Event) Coordinate() Coordinate {
	c := Coordinate{Kind: e.Kind, PubKey: e.PubKey}
	if e.Kind.IsAddressable() {
		c.Identifier = e.Identifier()
	}
	return c
}

// Compare orders events by their natural total order: newer CreatedAt first,
// ties broken by ascending ID bytes. Returns -1, 0, or 1.
func (e *Event) Compare(other *Event) int {
	if e.CreatedAt != other.CreatedAt {
		if e.CreatedAt > other.CreatedAt {
			return -1
		}
		return 1
	}
	return bytes.Compare(e.ID[:], other.ID[:])
}

// SortEvents sorts events in place by their natural total order.
func SortEvents(events []*Event) {
	sort.Slice(events, func(i, j int) bool {
		return events[i].Compare(events[j]) < 0
	})
}

// DedupEvents removes events with duplicate IDs from a sorted or unsorted
// slice, keeping the first occurrence. The input slice is reused.
func DedupEvents(events []*Event) []*Event {
	seen := make(map[ID]struct{}, len(events))
	out := events[:0]
	for _, e := range events {
		if _, ok := seen[e.ID]; ok {
			continue
		}
		seen[e.ID] = struct{}{}
		out = append(out, e)
	}
	return out
}
