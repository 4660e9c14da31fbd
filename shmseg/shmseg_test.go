package shmseg

import (
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/nlnk/shmring/ringerr"
)

func uniqueName(t *testing.T) string {
	t.Helper()
	return fmt.Sprintf("shmring_test-%s-%d", t.Name(), time.Now().UnixNano())
}

func TestCreateOpenCloseRemove(t *testing.T) {
	if mmapFile == nil {
		t.Skip("mmap not supported on this platform")
	}
	name := uniqueName(t)

	seg, err := Create(name, 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer Remove(name)

	payload := []byte("hello, shared memory")
	if ok, err := seg.Ring.TryWrite(payload, 1, 100, 0); err != nil || !ok {
		t.Fatalf("TryWrite: ok=%v err=%v", ok, err)
	}
	if err := seg.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	seg2, err := Open(name, 4096)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}

	dest := make([]byte, len(payload))
	rec, ok, err := seg2.Ring.TryRead(dest)
	if err != nil || !ok {
		t.Fatalf("TryRead after reopen: ok=%v err=%v", ok, err)
	}
	if rec.Type != 1 || rec.Timestamp != 100 || string(dest) != string(payload) {
		t.Fatalf("round trip mismatch: rec=%+v dest=%q", rec, dest)
	}
	if err := seg2.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	if err := Remove(name); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := os.Stat(segmentPath(name)); !os.IsNotExist(err) {
		t.Fatalf("expected segment file removed, stat err = %v", err)
	}
	// Remove is idempotent: removing an already-removed segment is not an error.
	if err := Remove(name); err != nil {
		t.Fatalf("second Remove should be a no-op, got %v", err)
	}
}

func TestCreateRejectsExistingSegment(t *testing.T) {
	if mmapFile == nil {
		t.Skip("mmap not supported on this platform")
	}
	name := uniqueName(t)

	seg, err := Create(name, 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() {
		seg.Close()
		Remove(name)
	}()

	if _, err := Create(name, 4096); err == nil {
		t.Fatal("expected second Create of the same segment to fail")
	}
}

func TestOpenRejectsCapacityMismatch(t *testing.T) {
	if mmapFile == nil {
		t.Skip("mmap not supported on this platform")
	}
	name := uniqueName(t)

	seg, err := Create(name, 4096)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	defer func() {
		seg.Close()
		Remove(name)
	}()
	seg.Close()

	if _, err := Open(name, 8192); err == nil {
		t.Fatal("expected Open with mismatched capacity to fail")
	}
}

func TestOpenRejectsMissingSegment(t *testing.T) {
	if _, err := Open(uniqueName(t), 4096); err == nil {
		t.Fatal("expected Open of a nonexistent segment to fail")
	}
}

func TestCreateRejectsInvalidCapacity(t *testing.T) {
	if mmapFile == nil {
		t.Skip("mmap not supported on this platform")
	}
	_, err := Create(uniqueName(t), 4097) // not a power of two
	if !errors.Is(err, ringerr.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
