//go:build linux && (amd64 || arm64)

package shmseg

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

func init() {
	mmapFile = mmapFileUnix
	unmapMemory = unix.Munmap
}

func mmapFileUnix(f *os.File, size int) ([]byte, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap: %w", err)
	}
	return data, nil
}
