package hectx

import (
	"testing"
)

// TestInitGeneratesAndPersistsKeys checks the ring-dimension half of
// spec.md §8's key-persistence round trip: generate -> serialize ->
// deserialize yields a context with the same ring dimension. It does not
// decrypt a ciphertext with either context.
func TestInitGeneratesAndPersistsKeys(t *testing.T) {
	dir := t.TempDir()

	ctx1, err := Init(dir)
	if err != nil {
		t.Fatalf("Init (generate): %v", err)
	}
	if ctx1.RingDimension() < irisCodeSlots {
		t.Fatalf("RingDimension() = %d, want >= %d", ctx1.RingDimension(), irisCodeSlots)
	}

	ctx2, err := Init(dir)
	if err != nil {
		t.Fatalf("Init (reload): %v", err)
	}
	if ctx2.RingDimension() != ctx1.RingDimension() {
		t.Fatalf("reloaded ring dimension = %d, want %d", ctx2.RingDimension(), ctx1.RingDimension())
	}
}

func TestContextIsReady(t *testing.T) {
	dir := t.TempDir()
	ctx, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !ctx.IsReady() {
		t.Fatal("IsReady() = false after successful Init")
	}
}
