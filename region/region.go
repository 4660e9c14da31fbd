// Package region binds the ring protocol to a caller-supplied shared
// memory region: it validates the region's size and header, initialises
// the header on first attach when asked to, and exposes typed access to
// the three monotonic counters and the ring's backing bytes.
//
// The region never allocates, maps, or unmaps memory itself: it is
// handed a []byte by the caller (in this repository, package shmseg) and
// only interprets the bytes already there.
package region

import (
	"unsafe"

	"code.hybscloud.com/atomix"

	"github.com/nlnk/shmring/ringerr"
	"github.com/nlnk/shmring/ringfmt"
)

// header is the 256-byte region header, laid out to match ringfmt's
// offsets exactly. The three counters are atomix.Uint64 fields so every
// load/store on them carries an explicit ordering in its method name
// instead of living only in a comment next to a sync/atomic call.
type header struct {
	magic         uint32
	version       uint32
	capacityBytes uint32
	_reserved0    uint32
	_pad0         [ringfmt.OffHeadBytes - 16]byte

	headBytes atomix.Uint64
	_pad1     [ringfmt.OffTailBytes - ringfmt.OffHeadBytes - 8]byte

	tailBytes atomix.Uint64
	_pad2     [ringfmt.OffDroppedWrites - ringfmt.OffTailBytes - 8]byte

	droppedWrites atomix.Uint64
	_pad3         [ringfmt.HeaderBytes - ringfmt.OffDroppedWrites - 8]byte
}

// Region is the validated view over a mapped shared-memory buffer: a
// header at offset 0 and capacityBytes contiguous ring bytes right after
// it.
type Region struct {
	mem      []byte
	hdr      *header
	ring     []byte
	capacity uint32
}

// Map validates mem against capacityBytes, optionally (re)initialising
// the header, and returns a Region ready for use by package ring.
//
// initialise requests initialisation-if-needed: if the region's current
// magic/version/capacity don't all match, the header is overwritten and
// the three counters zeroed. This is a demo convenience and is racy if
// two processes both attach with initialise=true on a fresh region;
// production integrations should arrange a single initialiser out of
// band.
func Map(mem []byte, capacityBytes uint32, initialise bool) (*Region, error) {
	if !ringfmt.ValidCapacity(capacityBytes) {
		return nil, ringerr.Configuration("capacity %d is not a power of two in [%d, %d]",
			capacityBytes, ringfmt.MinCapacity, ringfmt.MaxCapacity)
	}
	if uint64(len(mem)) < uint64(ringfmt.HeaderBytes)+uint64(capacityBytes) {
		return nil, ringerr.Configuration("region has %d bytes, need at least %d",
			len(mem), uint64(ringfmt.HeaderBytes)+uint64(capacityBytes))
	}

	hdr := (*header)(unsafe.Pointer(&mem[0]))

	if initialise {
		matches := hdr.magic == ringfmt.Magic &&
			hdr.version == ringfmt.Version &&
			hdr.capacityBytes == capacityBytes
		if !matches {
			hdr.magic = ringfmt.Magic
			hdr.version = ringfmt.Version
			hdr.capacityBytes = capacityBytes
			hdr.headBytes.StoreRelaxed(0)
			hdr.tailBytes.StoreRelaxed(0)
			hdr.droppedWrites.StoreRelaxed(0)
		}
	}

	if hdr.magic != ringfmt.Magic {
		return nil, ringerr.Configuration("bad magic %#x, want %#x", hdr.magic, ringfmt.Magic)
	}
	if hdr.version != ringfmt.Version {
		return nil, ringerr.Configuration("unsupported version %d, want %d", hdr.version, ringfmt.Version)
	}
	if hdr.capacityBytes != capacityBytes {
		return nil, ringerr.Configuration("region capacity %d does not match expected %d",
			hdr.capacityBytes, capacityBytes)
	}

	return &Region{
		mem:      mem,
		hdr:      hdr,
		ring:     mem[ringfmt.HeaderBytes : uint64(ringfmt.HeaderBytes)+uint64(capacityBytes)],
		capacity: capacityBytes,
	}, nil
}

// Capacity returns the ring's data-area capacity in bytes.
func (r *Region) Capacity() uint32 { return r.capacity }

// RingBytes returns the raw ring data area. Only package ring should
// address into this; it is exported within the module boundary because
// the ring protocol needs to compute record offsets and copy payloads.
func (r *Region) RingBytes() []byte { return r.ring }

// HeadLoadPlain reads head_bytes with a plain load, for use by the
// producer that owns the field.
func (r *Region) HeadLoadPlain() uint64 { return r.hdr.headBytes.LoadRelaxed() }

// HeadLoadAcquire reads head_bytes with an acquire load, for use by the
// consumer observing the producer's publication.
func (r *Region) HeadLoadAcquire() uint64 { return r.hdr.headBytes.LoadAcquire() }

// HeadStoreRelease publishes a new head_bytes value with a release store.
func (r *Region) HeadStoreRelease(v uint64) { r.hdr.headBytes.StoreRelease(v) }

// TailLoadPlain reads tail_bytes with a plain load, for use by the
// consumer that owns the field.
func (r *Region) TailLoadPlain() uint64 { return r.hdr.tailBytes.LoadRelaxed() }

// TailLoadAcquire reads tail_bytes with an acquire load, for use by the
// producer observing the consumer's progress.
func (r *Region) TailLoadAcquire() uint64 { return r.hdr.tailBytes.LoadAcquire() }

// TailStoreRelease publishes a new tail_bytes value with a release store.
func (r *Region) TailStoreRelease(v uint64) { r.hdr.tailBytes.StoreRelease(v) }

// DroppedWritesAdd atomically increments dropped_writes by one and
// returns the new value.
func (r *Region) DroppedWritesAdd() uint64 { return r.hdr.droppedWrites.AddAcqRel(1) }

// DroppedWrites returns the current admission-failure count.
func (r *Region) DroppedWrites() uint64 { return r.hdr.droppedWrites.LoadAcquire() }

// HeadBytes returns the current published byte count (read-only accessor).
func (r *Region) HeadBytes() uint64 { return r.hdr.headBytes.LoadAcquire() }

// TailBytes returns the current consumed byte count (read-only accessor).
func (r *Region) TailBytes() uint64 { return r.hdr.tailBytes.LoadAcquire() }
