// Command producer publishes framed records into a named shared-memory
// ring for a consumer to drain. It never blocks on a full ring: on
// admission failure it backs off with code.hybscloud.com/spin and moves
// on to the next record, the same drop-newest policy the ring itself
// implements.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"time"

	"code.hybscloud.com/spin"

	"github.com/nlnk/shmring/shmseg"
)

func main() {
	name := flag.String("segment", "shmring-demo", "shared-memory segment name")
	capacity := flag.Uint("capacity", 1<<20, "ring data-area capacity in bytes, must be a power of two")
	count := flag.Uint64("count", 100000, "number of records to publish")
	payloadSize := flag.Uint("payload", 64, "payload size in bytes")
	rateHz := flag.Float64("rate", 0, "target publish rate in records/sec, 0 for unthrottled")
	create := flag.Bool("create", true, "create the segment (false attaches to one already created by another process)")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: producer [options]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Publishes framed records into a shared-memory ring.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	var seg *shmseg.Segment
	var err error
	if *create {
		seg, err = shmseg.Create(*name, uint32(*capacity))
	} else {
		seg, err = shmseg.Open(*name, uint32(*capacity))
	}
	if err != nil {
		log.Fatalf("producer: attach segment %q: %v", *name, err)
	}
	defer seg.Close()

	log.Printf("producer: attached %q, capacity=%d bytes, publishing %d records of %d bytes",
		*name, *capacity, *count, *payloadSize)

	payload := make([]byte, *payloadSize)
	rng := rand.New(rand.NewSource(1))
	rng.Read(payload)

	var minInterval time.Duration
	if *rateHz > 0 {
		minInterval = time.Duration(float64(time.Second) / *rateHz)
	}

	var admitted, dropped uint64
	sw := spin.Wait{}
	start := time.Now()
	next := start

	for seq := uint64(0); seq < *count; seq++ {
		if minInterval > 0 {
			now := time.Now()
			if now.Before(next) {
				time.Sleep(next.Sub(now))
			}
			next = next.Add(minInterval)
		}

		binary.LittleEndian.PutUint64(payload, seq)
		timestamp := uint64(time.Now().UnixNano())

		ok, err := seg.Ring.TryWrite(payload, 0, timestamp, uint32(seq))
		if err != nil {
			log.Fatalf("producer: TryWrite: %v", err)
		}
		if ok {
			admitted++
			sw = spin.Wait{}
		} else {
			dropped++
			sw.Once()
		}
	}

	elapsed := time.Since(start)
	fmt.Printf("=== producer summary ===\n")
	fmt.Printf("admitted:   %d\n", admitted)
	fmt.Printf("dropped:    %d\n", dropped)
	fmt.Printf("elapsed:    %s\n", elapsed)
	fmt.Printf("throughput: %.0f records/sec\n", float64(admitted)/elapsed.Seconds())
}
