// Command consumer drains framed records from a named shared-memory
// ring and reports end-to-end publish-to-drain latency percentiles. It
// attaches to a segment created by a separate producer process (see
// cmd/producer) and never creates one itself.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"code.hybscloud.com/spin"

	"github.com/nlnk/shmring/shmseg"
)

func main() {
	name := flag.String("segment", "shmring-demo", "shared-memory segment name")
	capacity := flag.Uint("capacity", 1<<20, "ring data-area capacity in bytes, must match the producer")
	count := flag.Uint64("count", 100000, "number of records to drain before reporting and exiting")
	payloadSize := flag.Uint("payload", 64, "expected payload size in bytes, for the read buffer")
	idleTimeout := flag.Duration("idle-timeout", 5*time.Second, "give up if no record arrives for this long")

	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: consumer [options]")
		fmt.Fprintln(os.Stderr)
		fmt.Fprintln(os.Stderr, "Drains a shared-memory ring and reports latency percentiles.")
		fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}
	flag.Parse()

	seg, err := shmseg.Open(*name, uint32(*capacity))
	if err != nil {
		log.Fatalf("consumer: attach segment %q: %v", *name, err)
	}
	defer seg.Close()

	log.Printf("consumer: attached %q, capacity=%d bytes, draining %d records", *name, *capacity, *count)

	dest := make([]byte, *payloadSize)
	latencies := make([]time.Duration, 0, *count)

	sw := spin.Wait{}
	lastRecordAt := time.Now()

	for uint64(len(latencies)) < *count {
		rec, ok, err := seg.Ring.TryRead(dest)
		if err != nil {
			log.Fatalf("consumer: TryRead: %v", err)
		}
		if !ok {
			if time.Since(lastRecordAt) > *idleTimeout {
				log.Printf("consumer: idle for %s, stopping early after %d records", *idleTimeout, len(latencies))
				break
			}
			sw.Once()
			continue
		}

		now := uint64(time.Now().UnixNano())
		if now >= rec.Timestamp {
			latencies = append(latencies, time.Duration(now-rec.Timestamp))
		}
		lastRecordAt = time.Now()
		sw = spin.Wait{}
	}

	report(latencies, seg)
}

func report(latencies []time.Duration, seg *shmseg.Segment) {
	fmt.Printf("=== consumer summary ===\n")
	fmt.Printf("received:      %d\n", len(latencies))
	fmt.Printf("dropped_total: %d\n", seg.Ring.DroppedWrites())
	if len(latencies) == 0 {
		return
	}

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	percentile := func(p float64) time.Duration {
		idx := int(p * float64(len(latencies)-1))
		return latencies[idx]
	}

	fmt.Printf("p50: %s\n", percentile(0.50))
	fmt.Printf("p90: %s\n", percentile(0.90))
	fmt.Printf("p99: %s\n", percentile(0.99))
	fmt.Printf("max: %s\n", latencies[len(latencies)-1])
}
