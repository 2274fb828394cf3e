// Package buffer implements Corvus's pooled byte buffers and the byte-range
// pointers used to reference slices of them without copying.
//
// A Buffer is owned by exactly one worker goroutine at a time, so its
// reference count is a plain int, not
// an atomic: cross-goroutine buffer sharing never happens, only passing
// ownership, which always happens-before any later access via a channel
// send/receive or a direct call on the same goroutine.
package buffer

import "fmt"

// DefaultSize is the buffer size used when a worker's configuration does
// not override it (see config.Config.BufSize).
const DefaultSize = 16 * 1024

// Buffer is a fixed-capacity byte block with two cursors: pos marks the
// next unread byte, last marks the end of valid data. Bytes between pos
// and last are uncommitted-but-written payload; bytes after last are free
// space a producer may still write into.
type Buffer struct {
	data []byte
	pos  int
	last int

	// refcount counts live holders: 1 for the connection's read/write
	// chain plus 1 for every outstanding Span that still covers bytes of
	// this buffer. The buffer returns to its pool only when this reaches
	// zero.
	refcount int

	next *Buffer // next buffer in a connection's read/write chain
}

// NewBuffer allocates a standalone buffer of the given capacity. Buffers
// handed out by a Pool use this internally; callers normally go through
// Pool.Get instead of calling this directly.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{data: make([]byte, capacity)}
}

// Cap returns the buffer's total capacity.
func (b *Buffer) Cap() int { return len(b.data) }

// Readable returns the number of bytes available between pos and last.
func (b *Buffer) Readable() int { return b.last - b.pos }

// Writable returns the number of free bytes after last.
func (b *Buffer) Writable() int { return len(b.data) - b.last }

// WriteSlice exposes the free region of the buffer for a Read() call to
// fill. Advance must be called afterward with the number of bytes
// actually written.
func (b *Buffer) WriteSlice() []byte { return b.data[b.last:] }

// Advance commits n freshly written bytes, moving last forward.
func (b *Buffer) Advance(n int) {
	b.last += n
	if b.last > len(b.data) {
		panic("buffer: advance past capacity")
	}
}

// ReadSlice exposes the unread region of the buffer, from pos to last.
func (b *Buffer) ReadSlice() []byte { return b.data[b.pos:b.last] }

// Consume marks n bytes as read, moving pos forward. It never moves pos
// past last.
func (b *Buffer) Consume(n int) {
	b.pos += n
	if b.pos > b.last {
		b.pos = b.last
	}
}

// ByteAt returns the byte at the given absolute offset into the buffer's
// backing array, used by the RESP parser's resumable cursor.
func (b *Buffer) ByteAt(offset int) byte { return b.data[offset] }

// Slice returns the backing bytes between two absolute offsets, without
// copying.
func (b *Buffer) Slice(start, end int) []byte { return b.data[start:end] }

// Reset restores the buffer to an empty state, ready for reuse. Callers
// must only do this once refcount has reached zero.
func (b *Buffer) Reset() {
	b.pos = 0
	b.last = 0
	b.next = nil
}

// Retain increments the reference count, taken whenever a new Span is
// created over this buffer or the buffer is linked into a chain.
func (b *Buffer) Retain() { b.refcount++ }

// Release decrements the reference count and reports whether the buffer
// has become free (refcount reached zero).
func (b *Buffer) Release() bool {
	if b.refcount <= 0 {
		panic(fmt.Sprintf("buffer: over-release (refcount=%d)", b.refcount))
	}
	b.refcount--
	return b.refcount == 0
}

// Refcount reports the current reference count, used by tests asserting
// invariant.
func (b *Buffer) Refcount() int { return b.refcount }

// Next returns the next buffer in a connection's chain, or nil.
func (b *Buffer) Next() *Buffer { return b.next }

// SetNext links the next buffer in a connection's chain.
func (b *Buffer) SetNext(n *Buffer) { b.next = n }
