// Package shmseg provides the platform-specific mechanics of obtaining a
// named shared-memory mapping: creating or opening a file under /dev/shm
// (or a temp-dir fallback) and mapping it into the process. It hands the
// mapped []byte to package region and never interprets the bytes itself.
package shmseg

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/nlnk/shmring/region"
	"github.com/nlnk/shmring/ring"
	"github.com/nlnk/shmring/ringerr"
	"github.com/nlnk/shmring/ringfmt"
)

// pathPrefix names segment files under /dev/shm or the temp dir.
const pathPrefix = "nlnk_"

// Segment owns a memory-mapped file backing a region and the Ring built
// on top of it.
type Segment struct {
	File *os.File
	Mem  []byte
	Ring *ring.Ring
	Path string
}

// segmentPath returns the file path for a named segment, preferring
// /dev/shm and falling back to the OS temp directory when it is absent.
func segmentPath(name string) string {
	if isDevShmAvailable() {
		return filepath.Join("/dev/shm", pathPrefix+name)
	}
	return filepath.Join(os.TempDir(), pathPrefix+name)
}

func isDevShmAvailable() bool {
	info, err := os.Stat("/dev/shm")
	return err == nil && info.IsDir()
}

// Close unmaps the memory and closes the backing file.
func (s *Segment) Close() error {
	var firstErr error
	if s.Mem != nil {
		if err := unmapMemory(s.Mem); err != nil && firstErr == nil {
			firstErr = err
		}
		s.Mem = nil
	}
	if s.File != nil {
		if err := s.File.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
		s.File = nil
	}
	return firstErr
}

// totalSize is the number of bytes a segment of the given ring capacity occupies.
func totalSize(capacityBytes uint32) int64 {
	return int64(ringfmt.HeaderBytes) + int64(capacityBytes)
}

var (
	// mmapFile and unmapMemory are platform-supplied by the build-tagged
	// sibling files (shmseg_unix.go / shmseg_stub.go); Create and Open
	// report errUnsupported when neither is wired.
	mmapFile    func(f *os.File, size int) ([]byte, error)
	unmapMemory func([]byte) error
)

// errUnsupported is returned by Create and Open when the platform has no
// mmap-backed implementation (the stub build leaves mmapFile nil).
var errUnsupported = ringerr.Configuration("shmseg: shared-memory segments are not supported on this platform")

// Create creates a new named segment sized for capacityBytes and
// initialises its header. Fails if a segment with this name already
// exists.
func Create(name string, capacityBytes uint32) (*Segment, error) {
	if mmapFile == nil {
		return nil, errUnsupported
	}
	if !ringfmt.ValidCapacity(capacityBytes) {
		return nil, ringerr.Configuration("capacity %d is not a power of two in [%d, %d]",
			capacityBytes, ringfmt.MinCapacity, ringfmt.MaxCapacity)
	}

	path := segmentPath(name)
	file, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_RDWR, 0600)
	if err != nil {
		return nil, fmt.Errorf("shmseg: create segment file %s: %w", path, err)
	}
	cleanup := func() {
		file.Close()
		os.Remove(path)
	}

	size := totalSize(capacityBytes)
	if err := file.Truncate(size); err != nil {
		cleanup()
		return nil, fmt.Errorf("shmseg: resize segment file %s: %w", path, err)
	}

	mem, err := mmapFile(file, int(size))
	if err != nil {
		cleanup()
		return nil, fmt.Errorf("shmseg: mmap segment %s: %w", path, err)
	}

	reg, err := region.Map(mem, capacityBytes, true)
	if err != nil {
		unmapMemory(mem)
		cleanup()
		return nil, err
	}

	return &Segment{File: file, Mem: mem, Ring: ring.New(reg), Path: path}, nil
}

// Open attaches to an existing named segment created by another process
// and validates it against capacityBytes.
func Open(name string, capacityBytes uint32) (*Segment, error) {
	if mmapFile == nil {
		return nil, errUnsupported
	}

	path := segmentPath(name)
	file, err := os.OpenFile(path, os.O_RDWR, 0)
	if err != nil {
		return nil, fmt.Errorf("shmseg: open segment file %s: %w", path, err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shmseg: stat segment file %s: %w", path, err)
	}
	want := totalSize(capacityBytes)
	if info.Size() < want {
		file.Close()
		return nil, ringerr.Configuration("segment file %s is %d bytes, need at least %d", path, info.Size(), want)
	}

	mem, err := mmapFile(file, int(info.Size()))
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("shmseg: mmap segment %s: %w", path, err)
	}

	reg, err := region.Map(mem, capacityBytes, false)
	if err != nil {
		unmapMemory(mem)
		file.Close()
		return nil, err
	}

	return &Segment{File: file, Mem: mem, Ring: ring.New(reg), Path: path}, nil
}

// Remove deletes a named segment's backing file. Safe to call after all
// participants have closed their mappings.
func Remove(name string) error {
	path := segmentPath(name)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
