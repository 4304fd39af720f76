// Package codec converts events to and from the compact binary records held
// in the events table.
//
// The format is a single version byte followed by the fixed-width fields
// (id, pubkey, sig, created_at, kind) and uvarint length-prefixed variable
// fields (content, tags). Decoding validates structure strictly: short input,
// unknown versions, and trailing bytes are all errors, so no field can be
// silently dropped or truncated.
package codec

import (
	"encoding/binary"
	"fmt"
	"sync"

	"github.com/randalmurphal/nostrstore/pkg/nostrstore/nostr"
)

// formatVersion is the first byte of every encoded record.
const formatVersion byte = 1

// DefaultScratchCapacity is the initial scratch buffer size of a Builder.
// Sized for a large event so typical workloads never regrow it.
const DefaultScratchCapacity = 70_000

// DecodeError reports structurally invalid stored bytes.
type DecodeError struct {
	Reason string
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode event: %s", e.Reason)
}

func decodeErrf(format string, args ...any) *DecodeError {
	return &DecodeError{Reason: fmt.Sprintf(format, args...)}
}

// Builder encodes events through one reusable scratch buffer, amortizing
// allocation across calls. The buffer is held under a mutex: only one encode
// runs at a time, independent of any other lock in the store.
type Builder struct {
	mu      sync.Mutex
	scratch []byte
}

// NewBuilder returns a Builder with the given initial scratch capacity.
// Capacity values <= 0 use DefaultScratchCapacity.
func NewBuilder(capacity int) *Builder {
	if capacity <= 0 {
		capacity = DefaultScratchCapacity
	}
	return &Builder{scratch: make([]byte, 0, capacity)}
}

// Encode serializes an event and returns a copy of the encoded bytes. The
// scratch buffer is retained for the next call.
func (b *Builder) Encode(ev *nostr.Event) []byte {
	b.mu.Lock()
	defer b.mu.Unlock()

	buf := b.scratch[:0]
	buf = append(buf, formatVersion)
	buf = append(buf, ev.ID[:]...)
	buf = append(buf, ev.PubKey[:]...)
	buf = append(buf, ev.Sig[:]...)
	buf = binary.BigEndian.AppendUint64(buf, uint64(ev.CreatedAt))
	buf = binary.BigEndian.AppendUint16(buf, uint16(ev.Kind))
	buf = appendString(buf, ev.Content)
	buf = binary.AppendUvarint(buf, uint64(len(ev.Tags)))
	for _, tag := range ev.Tags {
		buf = binary.AppendUvarint(buf, uint64(len(tag)))
		for _, elem := range tag {
			buf = appendString(buf, elem)
		}
	}
	b.scratch = buf[:0]

	out := make([]byte, len(buf))
	copy(out, buf)
	return out
}

func appendString(buf []byte, s string) []byte {
	buf = binary.AppendUvarint(buf, uint64(len(s)))
	return append(buf, s...)
}

// Decode reconstructs an event from its encoded record. It returns a
// *DecodeError for any structural violation, including bytes left over after
// the last field.
func Decode(data []byte) (*nostr.Event, error) {
	r := reader{buf: data}

	version, err := r.byte()
	if err != nil {
		return nil, err
	}
	if version != formatVersion {
		return nil, decodeErrf("unsupported format version %d", version)
	}

	var ev nostr.Event
	if err := r.fixed(ev.ID[:], "id"); err != nil {
		return nil, err
	}
	if err := r.fixed(ev.PubKey[:], "pubkey"); err != nil {
		return nil, err
	}
	if err := r.fixed(ev.Sig[:], "sig"); err != nil {
		return nil, err
	}
	createdAt, err := r.uint64("created_at")
	if err != nil {
		return nil, err
	}
	ev.CreatedAt = nostr.Timestamp(createdAt)
	kind, err := r.uint16("kind")
	if err != nil {
		return nil, err
	}
	ev.Kind = nostr.Kind(kind)
	if ev.Content, err = r.str("content"); err != nil {
		return nil, err
	}

	tagCount, err := r.uvarint("tag count")
	if err != nil {
		return nil, err
	}
	if tagCount > uint64(len(r.buf)-r.off) {
		return nil, decodeErrf("tag count %d exceeds remaining input", tagCount)
	}
	if tagCount > 0 {
		ev.Tags = make([]nostr.Tag, 0, tagCount)
	}
	for i := uint64(0); i < tagCount; i++ {
		elemCount, err := r.uvarint("tag element count")
		if err != nil {
			return nil, err
		}
		if elemCount > uint64(len(r.buf)-r.off) {
			return nil, decodeErrf("tag element count %d exceeds remaining input", elemCount)
		}
		tag := make(nostr.Tag, 0, elemCount)
		for j := uint64(0); j < elemCount; j++ {
			elem, err := r.str("tag element")
			if err != nil {
				return nil, err
			}
			tag = append(tag, elem)
		}
		ev.Tags = append(ev.Tags, tag)
	}

	if r.off != len(r.buf) {
		return nil, decodeErrf("%d trailing bytes after event", len(r.buf)-r.off)
	}
	return &ev, nil
}

// reader tracks a decode cursor over the input buffer.
type reader struct {
	buf []byte
	off int
}

func (r *reader) byte() (byte, error) {
	if r.off >= len(r.buf) {
		return 0, decodeErrf("empty input")
	}
	b := r.buf[r.off]
	r.off++
	return b, nil
}

func (r *reader) fixed(dst []byte, field string) error {
	if len(r.buf)-r.off < len(dst) {
		return decodeErrf("truncated %s: need %d bytes, have %d", field, len(dst), len(r.buf)-r.off)
	}
	copy(dst, r.buf[r.off:r.off+len(dst)])
	r.off += len(dst)
	return nil
}

func (r *reader) uint64(field string) (uint64, error) {
	if len(r.buf)-r.off < 8 {
		return 0, decodeErrf("truncated %s", field)
	}
	v := binary.BigEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, nil
}

func (r *reader) uint16(field string) (uint16, error) {
	if len(r.buf)-r.off < 2 {
		return 0, decodeErrf("truncated %s", field)
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v, nil
}

func (r *reader) uvarint(field string) (uint64, error) {
	v, n := binary.Uvarint(r.buf[r.off:])
	if n <= 0 {
		return 0, decodeErrf("invalid %s varint", field)
	}
	r.off += n
	return v, nil
}

func (r *reader) str(field string) (string, error) {
	n, err := r.uvarint(field + " length")
	if err != nil {
		return "", err
	}
	if n > uint64(len(r.buf)-r.off) {
		return "", decodeErrf("truncated %s: need %d bytes, have %d", field, n, len(r.buf)-r.off)
	}
	s := string(r.buf[r.off : r.off+int(n)])
	r.off += int(n)
	return s, nil
}
