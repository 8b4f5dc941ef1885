package ringbuffer

import (
	"testing"

	"github.com/eyed-system/eyed/internal/capture/frame"
)

func TestTryPushTryPopFIFO(t *testing.T) {
	rb := New(4)
	for i := uint32(0); i < 4; i++ {
		if !rb.TryPush(frame.Frame{ID: i}) {
			t.Fatalf("push %d: want accepted", i)
		}
	}
	for i := uint32(0); i < 4; i++ {
		f, ok := rb.TryPop()
		if !ok {
			t.Fatalf("pop %d: want a frame", i)
		}
		if f.ID != i {
			t.Fatalf("pop %d: got id %d, want %d (FIFO order)", i, f.ID, i)
		}
	}
	if _, ok := rb.TryPop(); ok {
		t.Fatal("pop on empty buffer: want false")
	}
}

// TestDropOnOverflow matches spec.md §8 scenario 2: capacity 4, push 10
// frames without draining — 4 succeed, 6 fail, and nothing reported as
// pushed is lost on subsequent pops.
func TestDropOnOverflow(t *testing.T) {
	rb := New(4)
	var accepted int
	for i := uint32(0); i < 10; i++ {
		if rb.TryPush(frame.Frame{ID: i}) {
			accepted++
		}
	}
	if accepted != 4 {
		t.Fatalf("accepted = %d, want 4", accepted)
	}

	var popped []uint32
	for {
		f, ok := rb.TryPop()
		if !ok {
			break
		}
		popped = append(popped, f.ID)
	}
	if len(popped) != 4 {
		t.Fatalf("popped %d frames, want 4", len(popped))
	}
	for i, id := range popped {
		if id != uint32(i) {
			t.Fatalf("popped[%d] = %d, want %d", i, id, i)
		}
	}
}

func TestTryPushFullDoesNotOverwrite(t *testing.T) {
	rb := New(4)
	for i := uint32(0); i < 4; i++ {
		rb.TryPush(frame.Frame{ID: i})
	}
	if rb.TryPush(frame.Frame{ID: 99}) {
		t.Fatal("push on full buffer: want rejected")
	}
	f, _ := rb.TryPop()
	if f.ID != 0 {
		t.Fatalf("first pop after rejected push = %d, want 0 (unchanged)", f.ID)
	}
}

func TestLenAndCap(t *testing.T) {
	rb := New(8)
	if rb.Cap() != 8 {
		t.Fatalf("Cap() = %d, want 8", rb.Cap())
	}
	for i := 0; i < 5; i++ {
		rb.TryPush(frame.Frame{ID: uint32(i)})
	}
	if got := rb.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}
	rb.TryPop()
	if got := rb.Len(); got != 4 {
		t.Fatalf("Len() after one pop = %d, want 4", got)
	}
}

func TestNewPanicsOnNonPowerOfTwo(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("New(3): want panic for non power-of-two capacity")
		}
	}()
	New(3)
}
