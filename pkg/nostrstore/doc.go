/*
Package nostrstore provides durable SQLite persistence for an immutable,
content-addressed event store.

# Overview

nostrstore sits behind an authoritative in-memory index that owns all domain
policy: filter evaluation, deduplication, and replaceable-event supersession.
The store's job is to keep a relational table convergent with the index's
decisions while serializing every statement through one non-shareable
connection without blocking callers.

The division of labor is strict. The index decides; the store applies. An
event row exists only because the index, at some point, returned an accept
decision that no later discard revoked. At startup the store reloads every
persisted record, hands the collection to the index, and purges whatever the
index rejects, so the two views converge after every open.

# Basic Usage

Open a store with an index implementation, save events, and query:

	idx := myindex.New() // your Index implementation
	store, err := nostrstore.Open(ctx, "events.db", idx)
	if err != nil {
	    log.Fatal(err)
	}
	defer store.Close()

	stored, err := store.SaveEvent(ctx, event) // true if newly persisted
	events, err := store.Query(ctx, filters, nostr.Descending)

# Concurrency

Many goroutines may call the store concurrently. Statements are serialized
through an internal single-connection pool: callers suspend on a result
channel while a dedicated worker runs their task to completion. Cancelling a
caller's context abandons the result, never the mutation.

# Observability

Structured logging (slog), OpenTelemetry tracing, and metrics are opt-in via
WithLogger, WithSpanManager, and WithMetrics; see the observability package.
*/
package nostrstore
