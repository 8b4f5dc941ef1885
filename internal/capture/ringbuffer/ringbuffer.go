// Package ringbuffer implements a fixed-capacity, power-of-two,
// single-producer/single-consumer lock-free queue.
//
// It generalizes the atomic-counter idiom the teacher's framebus package
// uses for its drop/sent statistics (sync/atomic counters read and written
// without a mutex) to a full SPSC transport: two atomic indices, head
// (written only by the producer) and tail (written only by the consumer),
// published with release semantics and observed with acquire semantics so
// that a pushed frame's contents are visible to the consumer before the
// slot is considered readable.
//
// Philosophy, same as framebus: drop frames, never queue. try_push on a
// full buffer returns false instead of blocking the camera thread.
package ringbuffer

import (
	"sync/atomic"

	"github.com/eyed-system/eyed/internal/capture/frame"
)

// RingBuffer is a bounded SPSC queue of frame.Frame. Capacity must be a
// power of two (e.g. 4, 8, 16) — this is the number of frames the buffer
// can hold at once.
//
// The classic single-slot-reserved SPSC layout (full when (head+1) mod
// len(slots) == tail) only ever exposes len(slots)-1 usable entries. The
// spec's own worked example (push 10 frames into a "capacity 4" buffer:
// 4 succeed, 6 fail) requires all 4 configured slots to be usable, so the
// backing array is sized capacity+1 and indices wrap with plain modulo
// instead of a bitmask. This keeps N itself — the value callers configure
// and the one the full/empty conditions are phrased against — equal to the
// usable capacity, at the cost of one integer division per operation
// instead of an AND.
type RingBuffer struct {
	size  uint32 // len(slots); capacity+1
	slots []frame.Frame

	// head is advanced only by the producer (try_push); tail only by the
	// consumer (try_pop). Cross-goroutine visibility is established purely
	// through the atomic load/store pairing below — no mutex is needed
	// because there is exactly one writer per field.
	head atomic.Uint32
	tail atomic.Uint32
}

// New creates a RingBuffer holding up to capacity frames. capacity must be
// a power of two.
func New(capacity int) *RingBuffer {
	if capacity <= 0 || capacity&(capacity-1) != 0 {
		panic("ringbuffer: capacity must be a power of two")
	}
	return &RingBuffer{
		size:  uint32(capacity + 1),
		slots: make([]frame.Frame, capacity+1),
	}
}

// TryPush attempts to enqueue f. It returns false, leaving the buffer
// untouched, if the buffer is full — the caller (the camera producer loop)
// should drop the frame rather than block.
func (r *RingBuffer) TryPush(f frame.Frame) bool {
	h := r.head.Load()
	next := (h + 1) % r.size
	if next == r.tail.Load() {
		return false // full
	}
	r.slots[h] = f
	r.head.Store(next) // release: publishes the write above to the consumer
	return true
}

// TryPop attempts to dequeue the oldest frame. The second return value is
// false if the buffer is empty.
func (r *RingBuffer) TryPop() (frame.Frame, bool) {
	t := r.tail.Load()
	if t == r.head.Load() { // acquire: observes the producer's release store
		return frame.Frame{}, false
	}
	f := r.slots[t]
	r.slots[t] = frame.Frame{} // drop the reference so a full buffer doesn't pin pixel data
	r.tail.Store((t + 1) % r.size)
	return f, true
}

// Len returns a snapshot of the number of frames currently queued. It is
// advisory only — concurrent Push/Pop calls may change the count before
// the caller observes it.
func (r *RingBuffer) Len() int {
	h := r.head.Load()
	t := r.tail.Load()
	return int((h + r.size - t) % r.size)
}

// Cap returns the usable capacity.
func (r *RingBuffer) Cap() int {
	return int(r.size) - 1
}
