// Package ring implements the single-producer/single-consumer publication
// protocol over a region.Region: TryWrite frames and admits a payload,
// TryRead drains the next committed record. Neither call blocks,
// allocates on the hot path, or performs I/O; callers that need to wait
// for space or data implement their own backoff (see the cmd/producer and
// cmd/consumer demos, which use code.hybscloud.com/spin).
//
// At most one goroutine may call TryWrite and at most one goroutine may
// call TryRead over the lifetime of a Ring. Violating this is undefined
// behavior the package does not detect.
package ring

import (
	"unsafe"

	"code.hybscloud.com/atomix"

	"github.com/nlnk/shmring/region"
	"github.com/nlnk/shmring/ringerr"
	"github.com/nlnk/shmring/ringfmt"
)

// recordHeader is the 24-byte record header, laid out to match
// ringfmt's RecOff* offsets. Only length needs atomic ordering: it is
// the sole field whose visibility to the consumer is contractual, set
// last during the two-phase commit. type/timestamp/sequence are plain
// writes made visible transitively by the length release.
type recordHeader struct {
	length    atomix.Int32
	typ       uint32
	timestamp uint64
	sequence  uint32
	_reserved uint32
}

// Record is the metadata returned by TryRead for a successfully drained
// record; the payload itself is copied into the caller's dest buffer.
type Record struct {
	Type      uint32
	Timestamp uint64
	Sequence  uint32
	Length    int32
}

// Ring is the SPSC protocol bound to a region.Region.
type Ring struct {
	r *region.Region
}

// New wraps a mapped region for SPSC use.
func New(r *region.Region) *Ring {
	return &Ring{r: r}
}

func recordAt(buf []byte, off uint32) *recordHeader {
	return (*recordHeader)(unsafe.Pointer(&buf[off]))
}

// DroppedWrites returns the region's admission-failure count, visible to
// any process attached to the segment regardless of which side is the
// producer.
func (rg *Ring) DroppedWrites() uint64 { return rg.r.DroppedWrites() }

// TryWrite frames payload with the given type/timestamp/sequence and
// admits it into the ring. It returns false (with dropped_writes
// incremented) if the ring does not currently have room: the drop-newest
// admission policy. payload must be non-empty and its framed size must
// fit in half the ring capacity; violating either is a bug in the
// caller, not a runtime condition, so TryWrite panics through a wrapped
// ringerr.ErrPrecondition rather than returning it.
func (rg *Ring) TryWrite(payload []byte, typ uint32, timestamp uint64, sequence uint32) (bool, error) {
	capacity := rg.r.Capacity()

	if len(payload) == 0 {
		panic(ringerr.Precondition("try_write: payload must be non-empty"))
	}
	total := ringfmt.AlignUp8(ringfmt.RecordHeaderBytes + uint32(len(payload)))
	if total > capacity/2 {
		panic(ringerr.Precondition("try_write: framed size %d exceeds half capacity %d", total, capacity/2))
	}

	buf := rg.r.RingBytes()

	head := rg.r.HeadLoadPlain()
	tail := rg.r.TailLoadAcquire()
	used := head - tail
	if used > uint64(capacity) {
		return false, ringerr.Corruption("try_write: used %d exceeds capacity %d", used, capacity)
	}

	if uint64(capacity)-used < uint64(total) {
		rg.r.DroppedWritesAdd()
		return false, nil
	}

	off := ringfmt.Offset(capacity, head)
	rem := capacity - off

	if rem < ringfmt.RecordHeaderBytes {
		// Header doesn't fit before the end of the ring: pad past it.
		// No wrap marker is needed because no header could ever start here.
		rg.r.HeadStoreRelease(head + uint64(rem))
		head += uint64(rem)
		off = 0
		rem = capacity
	}

	if rem < total {
		// Record doesn't fit in the remaining space but a header does:
		// publish a wrap marker and retry from offset 0.
		wrap := recordAt(buf, off)
		wrap.typ, wrap.timestamp, wrap.sequence, wrap._reserved = 0, 0, 0, 0
		wrap.length.StoreRelease(ringfmt.WrapMarker)

		rg.r.HeadStoreRelease(head + uint64(rem))
		head += uint64(rem)
		off = 0
		rem = capacity

		tail = rg.r.TailLoadAcquire()
		used = head - tail
		if uint64(capacity)-used < uint64(total) {
			rg.r.DroppedWritesAdd()
			return false, nil
		}
	}

	rec := recordAt(buf, off)
	rec.typ = typ
	rec.timestamp = timestamp
	rec.sequence = sequence
	rec._reserved = 0
	rec.length.StoreRelease(-int32(len(payload)))
	copy(buf[off+ringfmt.RecordHeaderBytes:], payload)
	rec.length.StoreRelease(int32(len(payload)))

	rg.r.HeadStoreRelease(head + uint64(total))
	return true, nil
}

// TryRead drains the next committed record into dest. ok is false with
// no error for an empty ring, an in-progress (uncommitted) record, or a
// dest buffer too small for the next record's payload; in the last case
// tail is not advanced and the same record is returned again on retry
// once a larger buffer is supplied. A distinct ringerr.ErrCorruption is
// returned if the region's invariants are violated.
func (rg *Ring) TryRead(dest []byte) (rec Record, ok bool, err error) {
	capacity := rg.r.Capacity()
	buf := rg.r.RingBytes()

	tail := rg.r.TailLoadPlain()
	head := rg.r.HeadLoadAcquire()
	if tail == head {
		return Record{}, false, nil
	}

	off := ringfmt.Offset(capacity, tail)
	rem := capacity - off

	if rem < ringfmt.RecordHeaderBytes {
		rg.r.TailStoreRelease(tail + uint64(rem))
		return Record{}, false, nil
	}

	hdr := recordAt(buf, off)
	length := hdr.length.LoadAcquire()

	switch {
	case length == ringfmt.WrapMarker:
		rg.r.TailStoreRelease(tail + uint64(rem))
		return Record{}, false, nil
	case length < 0:
		// In-progress: producer has not yet committed. Do not advance tail.
		return Record{}, false, nil
	case length == 0:
		return Record{}, false, ringerr.Corruption("try_read: zero-length record header at offset %d", off)
	}

	total := ringfmt.AlignUp8(ringfmt.RecordHeaderBytes + uint32(length))
	if total > rem {
		return Record{}, false, ringerr.Corruption(
			"try_read: record of total size %d at offset %d spans the end of the ring (rem=%d) without a wrap marker",
			total, off, rem)
	}

	if int(length) > len(dest) {
		return Record{}, false, nil
	}

	rec = Record{
		Type:      hdr.typ,
		Timestamp: hdr.timestamp,
		Sequence:  hdr.sequence,
		Length:    length,
	}
	copy(dest, buf[off+ringfmt.RecordHeaderBytes:off+ringfmt.RecordHeaderBytes+uint32(length)])

	rg.r.TailStoreRelease(tail + uint64(total))
	return rec, true, nil
}
