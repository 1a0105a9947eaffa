//go:build windows

package shm

import (
	"errors"
	"fmt"
	"runtime"
	"time"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	modkernel32          = windows.NewLazySystemDLL("kernel32.dll")
	procOpenFileMappingW = modkernel32.NewProc("OpenFileMappingW")
)

// DefaultNamespace returns the session-local namespace.
func DefaultNamespace() Namespace {
	return Namespace{}
}

func (ns Namespace) name(name string) (*uint16, error) {
	return windows.UTF16PtrFromString(ns.Prefix + name)
}

func openFileMapping(access uint32, name *uint16) (windows.Handle, error) {
	r0, _, e1 := procOpenFileMappingW.Call(uintptr(access), 0, uintptr(unsafe.Pointer(name)))
	if r0 == 0 {
		return 0, e1
	}
	return windows.Handle(r0), nil
}

func translate(op, name string, err error) error {
	switch {
	case errors.Is(err, windows.ERROR_FILE_NOT_FOUND):
		return fmt.Errorf("%w: %s", ErrNotExist, name)
	case errors.Is(err, windows.ERROR_ALREADY_EXISTS):
		return fmt.Errorf("%w: %s", ErrExist, name)
	default:
		return fmt.Errorf("shm: %s %s: %w", op, name, err)
	}
}

func mapView(h windows.Handle, name string, owner bool) (*SharedMemory, error) {
	addr, err := windows.MapViewOfFile(h, windows.FILE_MAP_WRITE, 0, 0, 0)
	if err != nil {
		windows.CloseHandle(h)
		return nil, translate("map", name, err)
	}

	var info windows.MemoryBasicInformation
	if err := windows.VirtualQuery(addr, &info, unsafe.Sizeof(info)); err != nil {
		windows.UnmapViewOfFile(addr)
		windows.CloseHandle(h)
		return nil, translate("query", name, err)
	}

	return &SharedMemory{
		name:  name,
		size:  int(info.RegionSize),
		fd:    uintptr(h),
		data:  unsafe.Slice((*byte)(unsafe.Pointer(addr)), info.RegionSize),
		owner: owner,
	}, nil
}

func createSegment(ns Namespace, name string, size int, exclusive bool) (*SharedMemory, error) {
	n, err := ns.name(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateFileMapping(windows.InvalidHandle, nil, windows.PAGE_READWRITE,
		uint32(uint64(size)>>32), uint32(size), n)
	if h == 0 {
		return nil, translate("create", name, err)
	}
	if exclusive && errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		windows.CloseHandle(h)
		return nil, translate("create", name, err)
	}
	return mapView(h, name, true)
}

// CreateSegment creates the named segment, or opens it if it already exists.
func (ns Namespace) CreateSegment(name string, size int) (*SharedMemory, error) {
	return createSegment(ns, name, size, false)
}

// CreateNewSegment creates the named segment and fails with ErrExist if it already exists.
func (ns Namespace) CreateNewSegment(name string, size int) (*SharedMemory, error) {
	return createSegment(ns, name, size, true)
}

// OpenSegment maps an existing segment.
func (ns Namespace) OpenSegment(name string) (*SharedMemory, error) {
	n, err := ns.name(name)
	if err != nil {
		return nil, err
	}
	h, err := openFileMapping(windows.FILE_MAP_WRITE, n)
	if err != nil {
		return nil, translate("open", name, err)
	}
	return mapView(h, name, false)
}

func (s *SharedMemory) close() error {
	err := windows.UnmapViewOfFile(uintptr(unsafe.Pointer(&s.data[0])))
	if cerr := windows.CloseHandle(windows.Handle(s.fd)); err == nil {
		err = cerr
	}
	return err
}

// CreateMutex creates the named mutex, or opens it if it already exists.
func (ns Namespace) CreateMutex(name string) (*Mutex, error) {
	n, err := ns.name(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateMutex(nil, false, n)
	if h == 0 {
		return nil, translate("create", name, err)
	}
	return &Mutex{name: name, fd: uintptr(h), owner: true}, nil
}

// OpenMutex opens an existing named mutex.
func (ns Namespace) OpenMutex(name string) (*Mutex, error) {
	n, err := ns.name(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.OpenMutex(windows.SYNCHRONIZE, false, n)
	if err != nil {
		return nil, translate("open", name, err)
	}
	return &Mutex{name: name, fd: uintptr(h)}, nil
}

// Windows mutexes are owned by a thread, so the goroutine stays on its
// thread between lock and unlock.
func (m *Mutex) lock() error {
	runtime.LockOSThread()
	ev, err := windows.WaitForSingleObject(windows.Handle(m.fd), windows.INFINITE)
	if err != nil {
		runtime.UnlockOSThread()
		return fmt.Errorf("shm: lock %s: %w", m.name, err)
	}
	if ev != windows.WAIT_OBJECT_0 && ev != windows.WAIT_ABANDONED {
		runtime.UnlockOSThread()
		return fmt.Errorf("shm: lock %s: wait returned %#x", m.name, ev)
	}
	return nil
}

func (m *Mutex) unlock() error {
	defer runtime.UnlockOSThread()
	return windows.ReleaseMutex(windows.Handle(m.fd))
}

func (m *Mutex) close() error {
	return windows.CloseHandle(windows.Handle(m.fd))
}

// CreateEvent creates the named auto-reset event in the unsignaled state,
// or opens it if it already exists.
func (ns Namespace) CreateEvent(name string) (*Event, error) {
	n, err := ns.name(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.CreateEvent(nil, 0, 0, n)
	if h == 0 {
		return nil, translate("create", name, err)
	}
	return &Event{name: name, fd: uintptr(h), owner: true}, nil
}

// OpenEvent opens an existing named event.
func (ns Namespace) OpenEvent(name string) (*Event, error) {
	n, err := ns.name(name)
	if err != nil {
		return nil, err
	}
	h, err := windows.OpenEvent(windows.EVENT_MODIFY_STATE|windows.SYNCHRONIZE, false, n)
	if err != nil {
		return nil, translate("open", name, err)
	}
	return &Event{name: name, fd: uintptr(h)}, nil
}

// Set signals the event.
func (e *Event) Set() error {
	if e.closed {
		return ErrClosed
	}
	return windows.SetEvent(windows.Handle(e.fd))
}

// Reset clears the event.
func (e *Event) Reset() error {
	if e.closed {
		return ErrClosed
	}
	return windows.ResetEvent(windows.Handle(e.fd))
}

// Wait consumes the signal if the event is set. A zero timeout only probes,
// Infinite blocks until the event is set. It reports whether the signal was consumed.
func (e *Event) Wait(timeout time.Duration) (bool, error) {
	if e.closed {
		return false, ErrClosed
	}

	ms := uint32(windows.INFINITE)
	if timeout >= 0 {
		ms = uint32(timeout.Milliseconds())
	}

	ev, err := windows.WaitForSingleObject(windows.Handle(e.fd), ms)
	if err != nil {
		return false, fmt.Errorf("shm: wait %s: %w", e.name, err)
	}
	return ev == windows.WAIT_OBJECT_0, nil
}

func (e *Event) close() error {
	return windows.CloseHandle(windows.Handle(e.fd))
}
