//go:build unix

package shm

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"
	"unsafe"

	"golang.org/x/sys/unix"
)

// eventSize is the backing size of an event: one state word, padded.
const eventSize = 8

// DefaultNamespace returns /dev/shm when it exists, the temp directory otherwise.
func DefaultNamespace() Namespace {
	if fi, err := os.Stat("/dev/shm"); err == nil && fi.IsDir() {
		return Namespace{Dir: "/dev/shm"}
	}
	return Namespace{Dir: os.TempDir()}
}

func (ns Namespace) path(name string) string {
	dir := ns.Dir
	if dir == "" {
		dir = DefaultNamespace().Dir
	}
	return filepath.Join(dir, ns.Prefix+name)
}

func openFile(path string, flags int) (int, error) {
	for {
		fd, err := unix.Open(path, flags|unix.O_RDWR|unix.O_CLOEXEC, 0o600)
		switch {
		case err == nil:
			return fd, nil
		case errors.Is(err, unix.EINTR):
			continue
		case errors.Is(err, unix.ENOENT):
			return -1, fmt.Errorf("%w: %s", ErrNotExist, path)
		case errors.Is(err, unix.EEXIST):
			return -1, fmt.Errorf("%w: %s", ErrExist, path)
		default:
			return -1, fmt.Errorf("shm: open %s: %w", path, err)
		}
	}
}

// mapFile opens path and maps it. A positive size grows the file to at least
// size bytes; size 0 maps whatever the creator sized it to.
func mapFile(path string, flags int, size int) (int, []byte, error) {
	fd, err := openFile(path, flags)
	if err != nil {
		return -1, nil, err
	}

	var st unix.Stat_t
	if err := unix.Fstat(fd, &st); err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("shm: stat %s: %w", path, err)
	}

	length := int(st.Size)
	if size > length {
		if err := unix.Ftruncate(fd, int64(size)); err != nil {
			unix.Close(fd)
			return -1, nil, fmt.Errorf("shm: resize %s: %w", path, err)
		}
		length = size
	}
	if length == 0 {
		// Created but not sized yet.
		unix.Close(fd)
		return -1, nil, fmt.Errorf("%w: %s is empty", ErrNotExist, path)
	}

	data, err := unix.Mmap(fd, 0, length, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return -1, nil, fmt.Errorf("shm: mmap %s: %w", path, err)
	}
	return fd, data, nil
}

func segment(ns Namespace, name string, flags int, size int, owner bool) (*SharedMemory, error) {
	path := ns.path(name)
	fd, data, err := mapFile(path, flags, size)
	if err != nil {
		return nil, err
	}
	return &SharedMemory{
		name:  name,
		size:  len(data),
		fd:    uintptr(fd),
		data:  data,
		path:  path,
		owner: owner,
	}, nil
}

// CreateSegment creates the named segment, or opens it if it already exists,
// and makes it at least size bytes long.
func (ns Namespace) CreateSegment(name string, size int) (*SharedMemory, error) {
	return segment(ns, name, unix.O_CREAT, size, true)
}

// CreateNewSegment creates the named segment and fails with ErrExist if it already exists.
func (ns Namespace) CreateNewSegment(name string, size int) (*SharedMemory, error) {
	return segment(ns, name, unix.O_CREAT|unix.O_EXCL, size, true)
}

// OpenSegment maps an existing segment.
func (ns Namespace) OpenSegment(name string) (*SharedMemory, error) {
	return segment(ns, name, 0, 0, false)
}

func (s *SharedMemory) close() error {
	err := unix.Munmap(s.data)
	if cerr := unix.Close(int(s.fd)); err == nil {
		err = cerr
	}
	if s.owner {
		if rerr := unix.Unlink(s.path); rerr != nil && !errors.Is(rerr, unix.ENOENT) && err == nil {
			err = rerr
		}
	}
	return err
}

func mutex(ns Namespace, name string, flags int, owner bool) (*Mutex, error) {
	path := ns.path(name)
	fd, err := openFile(path, flags)
	if err != nil {
		return nil, err
	}
	return &Mutex{name: name, fd: uintptr(fd), path: path, owner: owner}, nil
}

// CreateMutex creates the named mutex, or opens it if it already exists.
func (ns Namespace) CreateMutex(name string) (*Mutex, error) {
	return mutex(ns, name, unix.O_CREAT, true)
}

// OpenMutex opens an existing named mutex.
func (ns Namespace) OpenMutex(name string) (*Mutex, error) {
	return mutex(ns, name, 0, false)
}

func (m *Mutex) lock() error {
	for {
		err := unix.Flock(int(m.fd), unix.LOCK_EX)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		return err
	}
}

func (m *Mutex) unlock() error {
	return unix.Flock(int(m.fd), unix.LOCK_UN)
}

func (m *Mutex) close() error {
	err := unix.Close(int(m.fd))
	if m.owner {
		if rerr := unix.Unlink(m.path); rerr != nil && !errors.Is(rerr, unix.ENOENT) && err == nil {
			err = rerr
		}
	}
	return err
}

func event(ns Namespace, name string, flags int, size int, owner bool) (*Event, error) {
	path := ns.path(name)
	fd, data, err := mapFile(path, flags, size)
	if err != nil {
		return nil, err
	}
	if len(data) < 4 {
		unix.Munmap(data)
		unix.Close(fd)
		return nil, fmt.Errorf("%w: %s is not an event", ErrNotExist, path)
	}
	return &Event{name: name, fd: uintptr(fd), data: data, path: path, owner: owner}, nil
}

// CreateEvent creates the named event in the unsignaled state, or opens it if
// it already exists. An opened event keeps its current state.
func (ns Namespace) CreateEvent(name string) (*Event, error) {
	return event(ns, name, unix.O_CREAT, eventSize, true)
}

// OpenEvent opens an existing named event.
func (ns Namespace) OpenEvent(name string) (*Event, error) {
	return event(ns, name, 0, 0, false)
}

func (e *Event) word() *uint32 {
	return (*uint32)(unsafe.Pointer(&e.data[0]))
}

// Set signals the event.
func (e *Event) Set() error {
	if e.closed {
		return ErrClosed
	}
	atomic.StoreUint32(e.word(), 1)
	return nil
}

// Reset clears the event.
func (e *Event) Reset() error {
	if e.closed {
		return ErrClosed
	}
	atomic.StoreUint32(e.word(), 0)
	return nil
}

// Wait consumes the signal if the event is set. A zero timeout only probes,
// Infinite blocks until the event is set. It reports whether the signal was consumed.
func (e *Event) Wait(timeout time.Duration) (bool, error) {
	if e.closed {
		return false, ErrClosed
	}

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}

	w := e.word()
	for {
		if atomic.CompareAndSwapUint32(w, 1, 0) {
			return true, nil
		}
		if timeout == 0 || (timeout > 0 && !time.Now().Before(deadline)) {
			return false, nil
		}
		time.Sleep(EventPollInterval)
	}
}

func (e *Event) close() error {
	err := unix.Munmap(e.data)
	e.data = nil
	if cerr := unix.Close(int(e.fd)); err == nil {
		err = cerr
	}
	if e.owner {
		if rerr := unix.Unlink(e.path); rerr != nil && !errors.Is(rerr, unix.ENOENT) && err == nil {
			err = rerr
		}
	}
	return err
}
