package benchmarks

import (
	"testing"

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/codec"
	"github.com/randalmurphal/nostrstore/pkg/nostrstore/nostr"
)

// BenchmarkEncode_Small measures encoding a short text note.
func BenchmarkEncode_Small(b *testing.B) {
	builder := codec.NewBuilder(codec.DefaultScratchCapacity)
	ev := benchEvent(1, 64, 2)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = builder.Encode(ev)
	}
}

// BenchmarkEncode_Large measures encoding an event near the scratch capacity.
func BenchmarkEncode_Large(b *testing.B) {
	builder := codec.NewBuilder(codec.DefaultScratchCapacity)
	ev := benchEvent(2, 60_000, 20)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = builder.Encode(ev)
	}
}

// BenchmarkDecode_Small measures decoding a short text note.
func BenchmarkDecode_Small(b *testing.B) {
	builder := codec.NewBuilder(codec.DefaultScratchCapacity)
	data := builder.Encode(benchEvent(3, 64, 2))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Decode(data); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkDecode_Large measures decoding an event near the scratch capacity.
func BenchmarkDecode_Large(b *testing.B) {
	builder := codec.NewBuilder(codec.DefaultScratchCapacity)
	data := builder.Encode(benchEvent(4, 60_000, 20))

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := codec.Decode(data); err != nil {
			b.Fatal(err)
		}
	}
}

// benchEvent builds an event with deterministic content of the given size.
func benchEvent(seed byte, contentLen, tagCount int) *nostr.Event {
	ev := &nostr.Event{
		CreatedAt: nostr.Timestamp(1_700_000_000) + nostr.Timestamp(seed),
		Kind:      1,
		Content:   string(make([]byte, contentLen)),
	}
	for i := range ev.ID {
		ev.ID[i] = seed
	}
	for i := range ev.PubKey {
		ev.PubKey[i] = seed + 1
	}
	for i := range ev.Sig {
		ev.Sig[i] = seed + 2
	}
	for i := 0; i < tagCount; i++ {
		ev.Tags = append(ev.Tags, nostr.Tag{"t", "topic"})
	}
	return ev
}
