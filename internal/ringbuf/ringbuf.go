// Package ringbuf provides a fixed-capacity circular buffer for one writer and
// one reader.
//
// The buffer is lock-structured rather than lock-free: it is safe for exactly one
// goroutine calling the writing methods (Write, WriteSpans, AdvanceWrite) while a
// different goroutine calls the reading methods (Read, ReadSpans, AdvanceRead).
// Two goroutines on the same side, or Reserve/Clear racing with anything, is a
// caller bug and is not detected.
//
// A cursor is published with an atomic store only after the elements it moves past
// have been copied, so a reader that observes an advanced write cursor also observes
// the data behind it (and symmetrically for the writer and the read cursor).
package ringbuf

import "sync/atomic"

// Span is a contiguous window of a Buffer's storage, expressed as an offset and a
// length so that callers never hold raw pointers into the buffer.
type Span struct {
	Off int
	Len int
}

// End returns the offset one past the last element of the span.
func (s Span) End() int { return s.Off + s.Len }

// Buffer is a circular buffer of T.
//
// readPos == writePos means empty. The backing array is always larger than the
// usable capacity: blockSize elements plus one sentinel slot are never filled, so a
// full buffer can not be mistaken for an empty one and writes can stay aligned to a
// logical block.
type Buffer[T any] struct {
	data      []T
	capacity  int
	blockSize int
	fill      T

	readPos  atomic.Int64
	writePos atomic.Int64
}

// New returns an empty buffer with no storage. Call Reserve before use.
//
// fill is written over every element once it has been read, so a stale span held
// by a caller after AdvanceRead shows up as fill values rather than plausible data.
func New[T any](fill T) *Buffer[T] {
	return &Buffer[T]{fill: fill, blockSize: 1}
}

// Reserve reallocates the buffer to hold exactly n usable elements, keeping a
// blockSize margin. Existing contents are discarded.
//
// A blockSize below 1 is treated as 1.
func (b *Buffer[T]) Reserve(n, blockSize int) {
	if blockSize < 1 {
		blockSize = 1
	}
	if n < 0 {
		n = 0
	}

	b.Clear()
	b.blockSize = blockSize
	b.capacity = n
	b.data = nil

	if n == 0 {
		return
	}

	b.data = make([]T, roundUp(n+blockSize+1, blockSize))
}

// Clear resets both cursors. It does not release storage.
func (b *Buffer[T]) Clear() {
	b.writePos.Store(0)
	b.readPos.Store(0)
}

// Capacity returns the number of elements the buffer can hold.
func (b *Buffer[T]) Capacity() int { return b.capacity }

// Size returns the length of the backing array.
func (b *Buffer[T]) Size() int { return len(b.data) }

// BlockSize returns the alignment margin set by Reserve.
func (b *Buffer[T]) BlockSize() int { return b.blockSize }

// Readable returns the number of elements available to read.
func (b *Buffer[T]) Readable() int {
	return b.readable(b.readPos.Load(), b.writePos.Load())
}

// Writable returns the number of elements that can be written before the buffer is full.
func (b *Buffer[T]) Writable() int {
	return b.capacity - b.Readable()
}

func (b *Buffer[T]) readable(r, w int64) int {
	if r <= w {
		return int(w - r)
	}

	return len(b.data) - int(r-w)
}

// WriteSpans returns where the next write may land without copying.
//
// The first span starts at the write cursor. The second span, starting at offset 0,
// is non-empty only when the free region wraps past the end of the backing array.
// The combined length always equals Writable at the time of the call.
func (b *Buffer[T]) WriteSpans() [2]Span {
	var spans [2]Span
	if len(b.data) == 0 {
		return spans
	}

	w := b.writePos.Load()
	r := b.readPos.Load()
	size := len(b.data)

	if r <= w {
		// "eeeeDDDDeeee" or "eeeeeeeeeeee"
		spans[0] = Span{Off: int(w), Len: size - int(w)}
		spans[1] = Span{Off: 0, Len: int(r)}
	} else {
		// "DDeeeeeeeeDD"
		spans[0] = Span{Off: int(w), Len: int(r - w)}
	}

	// The reserved margin sits directly in front of the read cursor, so trim from the tail.
	free := b.capacity - b.readable(r, w)
	spans[0].Len = min(spans[0].Len, free)
	spans[1].Len = min(spans[1].Len, free-spans[0].Len)
	if spans[1].Len == 0 {
		spans[1] = Span{}
	}

	return spans
}

// ReadSpans returns where the readable elements are, in order.
//
// The second span is non-empty only when the data wraps past the end of the backing array.
func (b *Buffer[T]) ReadSpans() [2]Span {
	var spans [2]Span
	if len(b.data) == 0 {
		return spans
	}

	r := b.readPos.Load()
	w := b.writePos.Load()

	switch {
	case r < w:
		spans[0] = Span{Off: int(r), Len: int(w - r)}
	case r > w:
		spans[0] = Span{Off: int(r), Len: len(b.data) - int(r)}
		spans[1] = Span{Off: 0, Len: int(w)}
	}

	return spans
}

// Slice returns the storage covered by s. The result aliases the buffer and is only
// valid until the matching cursor is advanced.
func (b *Buffer[T]) Slice(s Span) []T {
	return b.data[s.Off:s.End():s.End()]
}

// AdvanceWrite publishes n elements previously placed through WriteSpans.
func (b *Buffer[T]) AdvanceWrite(n int) {
	if n <= 0 || len(b.data) == 0 {
		return
	}
	b.writePos.Store((b.writePos.Load() + int64(n)) % int64(len(b.data)))
}

// AdvanceRead releases n elements previously consumed through ReadSpans.
func (b *Buffer[T]) AdvanceRead(n int) {
	if n <= 0 || len(b.data) == 0 {
		return
	}
	b.readPos.Store((b.readPos.Load() + int64(n)) % int64(len(b.data)))
}

// Write copies min(len(src), Writable()) elements into the buffer and returns the
// count. A short count is a capacity signal, not an error.
func (b *Buffer[T]) Write(src []T) int {
	n := 0
	for _, s := range b.WriteSpans() {
		if n == len(src) {
			break
		}
		n += copy(b.Slice(s), src[n:])
	}
	b.AdvanceWrite(n)

	return n
}

// Read copies up to len(dst) elements out of the buffer, overwrites what it
// consumed with the fill value and returns the count.
func (b *Buffer[T]) Read(dst []T) int {
	spans := b.ReadSpans()

	n := 0
	for _, s := range spans {
		if n == len(dst) {
			break
		}
		n += copy(dst[n:], b.Slice(s))
	}

	left := n
	for _, s := range spans {
		if left == 0 {
			break
		}
		seg := b.Slice(s)[:min(s.Len, left)]
		for i := range seg {
			seg[i] = b.fill
		}
		left -= len(seg)
	}
	b.AdvanceRead(n)

	return n
}

func roundUp(n, align int) int {
	return ((n + align - 1) / align) * align
}
