package region

import (
	"testing"

	"github.com/nlnk/shmring/ringfmt"
)

func newMem(capacity uint32) []byte {
	return make([]byte, uint64(ringfmt.HeaderBytes)+uint64(capacity))
}

func TestMapInitialisesFreshRegion(t *testing.T) {
	mem := newMem(4096)
	r, err := Map(mem, 4096, true)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	if r.Capacity() != 4096 {
		t.Fatalf("Capacity() = %d, want 4096", r.Capacity())
	}
	if r.HeadBytes() != 0 || r.TailBytes() != 0 || r.DroppedWrites() != 0 {
		t.Fatalf("fresh region should have zeroed counters, got head=%d tail=%d dropped=%d",
			r.HeadBytes(), r.TailBytes(), r.DroppedWrites())
	}
}

func TestMapRejectsBadCapacity(t *testing.T) {
	mem := newMem(4096)
	if _, err := Map(mem, 4097, true); err == nil {
		t.Fatal("expected error for non-power-of-two capacity")
	}
	if _, err := Map(mem, 2048, true); err == nil {
		t.Fatal("expected error for capacity below MinCapacity")
	}
}

func TestMapRejectsTooSmallRegion(t *testing.T) {
	mem := make([]byte, ringfmt.HeaderBytes+100)
	if _, err := Map(mem, 4096, true); err == nil {
		t.Fatal("expected error for region smaller than header+capacity")
	}
}

func TestMapValidatesExistingHeader(t *testing.T) {
	mem := newMem(4096)
	if _, err := Map(mem, 4096, true); err != nil {
		t.Fatalf("initial Map: %v", err)
	}

	// Reopen without initialise: should validate successfully.
	r2, err := Map(mem, 4096, false)
	if err != nil {
		t.Fatalf("re-Map without initialise: %v", err)
	}
	if r2.Capacity() != 4096 {
		t.Fatalf("Capacity() = %d, want 4096", r2.Capacity())
	}

	// Wrong expected capacity should fail validation.
	if _, err := Map(mem, 8192, false); err == nil {
		t.Fatal("expected error for capacity mismatch")
	}
}

func TestMapRejectsCorruptMagic(t *testing.T) {
	mem := newMem(4096)
	if _, err := Map(mem, 4096, true); err != nil {
		t.Fatalf("initial Map: %v", err)
	}
	mem[0] ^= 0xFF // corrupt magic
	if _, err := Map(mem, 4096, false); err == nil {
		t.Fatal("expected error for corrupt magic")
	}
}

func TestCountersRoundTrip(t *testing.T) {
	mem := newMem(4096)
	r, err := Map(mem, 4096, true)
	if err != nil {
		t.Fatalf("Map: %v", err)
	}

	r.HeadStoreRelease(32)
	if got := r.HeadLoadAcquire(); got != 32 {
		t.Errorf("HeadLoadAcquire() = %d, want 32", got)
	}
	if got := r.HeadLoadPlain(); got != 32 {
		t.Errorf("HeadLoadPlain() = %d, want 32", got)
	}

	r.TailStoreRelease(16)
	if got := r.TailLoadAcquire(); got != 16 {
		t.Errorf("TailLoadAcquire() = %d, want 16", got)
	}

	if got := r.DroppedWritesAdd(); got != 1 {
		t.Errorf("DroppedWritesAdd() = %d, want 1", got)
	}
	if got := r.DroppedWritesAdd(); got != 2 {
		t.Errorf("DroppedWritesAdd() = %d, want 2", got)
	}
	if got := r.DroppedWrites(); got != 2 {
		t.Errorf("DroppedWrites() = %d, want 2", got)
	}
}
