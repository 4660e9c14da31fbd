// Command debug-capacity probes a fresh ring's usable capacity: how
// large a single record it will admit, and where the drop-newest
// admission policy kicks in as the ring fills. It is a diagnostic tool,
// not a benchmark; see cmd/producer and cmd/consumer for throughput
// measurement.
package main

import (
	"fmt"
	"log"

	"github.com/nlnk/shmring/ringfmt"
	"github.com/nlnk/shmring/shmseg"
)

const capacity = 65536

func main() {
	const name = "debug-capacity"
	_ = shmseg.Remove(name)

	seg, err := shmseg.Create(name, capacity)
	if err != nil {
		log.Fatalf("debug-capacity: create segment: %v", err)
	}
	defer func() {
		seg.Close()
		shmseg.Remove(name)
	}()

	fmt.Printf("=== ring capacity ===\n")
	fmt.Printf("configured capacity:   %d bytes\n", capacity)
	fmt.Printf("max single record:     %d bytes (half capacity minus %d-byte header)\n",
		capacity/2-ringfmt.RecordHeaderBytes, ringfmt.RecordHeaderBytes)

	fmt.Printf("\n=== single write tests ===\n")
	testSizes := []int{10, 20, 30, 40, 50, 100, 200, 500, 1000, 5000, 10000, capacity/2 - ringfmt.RecordHeaderBytes}
	for _, size := range testSizes {
		data := make([]byte, size)
		ok, err := seg.Ring.TryWrite(data, 0, 0, 0)
		if err != nil {
			fmt.Printf("size %6d bytes: ERROR (%v)\n", size, err)
			break
		}
		if !ok {
			fmt.Printf("size %6d bytes: DROPPED\n", size)
			break
		}
		fmt.Printf("size %6d bytes: OK\n", size)

		readBack := make([]byte, size)
		if _, ok, err := seg.Ring.TryRead(readBack); err != nil || !ok {
			fmt.Printf("  (unexpected read-back failure: ok=%v err=%v)\n", ok, err)
		}
	}

	fmt.Printf("\n=== backpressure test ===\n")
	const chunkSize = 1000
	written := 0
	for i := 0; i < 200; i++ {
		data := make([]byte, chunkSize)
		ok, err := seg.Ring.TryWrite(data, 0, 0, uint32(i))
		if err != nil {
			fmt.Printf("stopped after %d bytes (%d chunks): error %v\n", written, i, err)
			break
		}
		if !ok {
			fmt.Printf("stopped after %d bytes (%d chunks): admission dropped, dropped_writes=%d\n",
				written, i, seg.Ring.DroppedWrites())
			break
		}
		written += chunkSize
	}
	fmt.Printf("wrote %d bytes without draining the ring\n", written)
}
