package nostr

// Coordinate identifies the logical slot of a replaceable or addressable
// event: author plus kind, plus the identifier tag for addressable kinds.
// It is independent of any specific event ID.
type Coordinate struct {
	Kind       Kind
	PubKey     PubKey
	Identifier string
}

// Filter describes a subscription-style query. It is a plain data carrier
// here: evaluation, matching, and ordering are owned entirely by the index.
type Filter struct {
	IDs     []ID
	Authors []PubKey
	Kinds   []Kind
	// Tags maps a single-letter tag name (e.g. "e", "p", "d") to accepted values.
	Tags   map[string][]string
	Since  *Timestamp
	Until  *Timestamp
	Limit  int
	Search string
}

// Order selects the direction of query results.
type Order int

const (
	// Descending returns newest events first (the natural order).
	Descending Order = iota
	// Ascending returns oldest events first.
	Ascending
)

// NegentropyItem is the compact (id, timestamp) pair consumed by the
// negentropy set-reconciliation protocol.
type NegentropyItem struct {
	ID        ID
	CreatedAt Timestamp
}
