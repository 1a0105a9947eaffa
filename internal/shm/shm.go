// Package shm provides the named operating-system objects a frame channel is
// built from: a shared memory segment, a cross-process mutex and an auto-reset
// event. Every object is identified by a name so that unrelated processes can
// find it.
//
// On Windows the objects are native named kernel objects. On unix systems they
// are small files in a namespace directory (normally /dev/shm): the segment is
// mapped with mmap, the mutex is an flock on its file and the event is a
// mapped 32-bit word.
package shm

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrNotExist = errors.New("shm: object does not exist")
	ErrExist    = errors.New("shm: object already exists")
	ErrClosed   = errors.New("shm: object closed")
)

// Infinite makes Event.Wait block until the event is signaled.
const Infinite time.Duration = -1

// EventPollInterval is how often a blocking Event.Wait re-checks the event on
// platforms without native named events.
var EventPollInterval = 100 * time.Microsecond

// Namespace scopes object names. Dir is the backing directory on unix systems,
// Prefix is prepended to every name (e.g. `Global\` on Windows).
type Namespace struct {
	Dir    string
	Prefix string
}

// SharedMemory represents a named shared memory segment mapped into this process.
type SharedMemory struct {
	name  string  // Name of the segment
	size  int     // Size of the mapping in bytes
	fd    uintptr // File descriptor or mapping handle
	data  []byte  // Mapped region
	path  string  // Backing file (unix only)
	owner bool    // Created by this process; removes the backing file on Close
}

// Name returns the name of the segment.
func (s *SharedMemory) Name() string {
	return s.name
}

// Size returns the size of the mapped region in bytes.
func (s *SharedMemory) Size() int {
	return s.size
}

// FD returns the file descriptor (unix) or file mapping handle (Windows).
func (s *SharedMemory) FD() uintptr {
	return s.fd
}

// Bytes returns the mapped region. The slice is invalid after Close.
func (s *SharedMemory) Bytes() []byte {
	return s.data
}

// Close unmaps the region and releases the handle. Closing a nil or closed
// segment is a no-op.
func (s *SharedMemory) Close() error {
	if s == nil || s.data == nil {
		return nil
	}
	err := s.close()
	s.data = nil
	return err
}

// Mutex is a named mutex shared between processes.
//
// The OS-level lock is not reentrant for goroutines sharing one Mutex value,
// so an in-process lock serializes them first.
type Mutex struct {
	name   string
	local  sync.Mutex
	fd     uintptr
	path   string
	owner  bool
	closed bool
}

// Name returns the name of the mutex.
func (m *Mutex) Name() string {
	return m.name
}

// Lock blocks until the mutex is held by the caller.
func (m *Mutex) Lock() error {
	m.local.Lock()
	if m.closed {
		m.local.Unlock()
		return ErrClosed
	}
	if err := m.lock(); err != nil {
		m.local.Unlock()
		return err
	}
	return nil
}

// Unlock releases a mutex acquired with Lock.
func (m *Mutex) Unlock() error {
	err := m.unlock()
	m.local.Unlock()
	return err
}

// Close releases the handle. It must not be called while the mutex is held.
func (m *Mutex) Close() error {
	if m == nil {
		return nil
	}
	m.local.Lock()
	defer m.local.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	return m.close()
}

// Event is a named auto-reset event: a successful Wait consumes the signal.
type Event struct {
	name   string
	fd     uintptr
	data   []byte
	path   string
	owner  bool
	closed bool
}

// Name returns the name of the event.
func (e *Event) Name() string {
	return e.name
}

// Close releases the handle.
func (e *Event) Close() error {
	if e == nil || e.closed {
		return nil
	}
	e.closed = true
	return e.close()
}
