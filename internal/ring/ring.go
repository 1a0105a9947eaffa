// Package ring builds the triple-buffered frame queue layout used by
// OBS-style virtual camera consumers.
//
// The package only computes and writes the layout. Slots are addressed by
// integer byte offsets from the start of the segment, and are resolved to
// slices of the mapping at the point of use, so nothing stored in shared
// memory is a process-local address.
package ring

import (
	"errors"
	"math"
	"sync/atomic"
	"unsafe"
)

// Slots is the number of frame slots in a queue.
const Slots = 3

// Alignment of the header end and of every slot.
const Alignment = 32

// SlotHeaderSize is reserved at the start of each slot; the first 8 bytes hold the frame timestamp.
const SlotHeaderSize = 32

// HeaderSize is the size of the queue header at offset 0.
const HeaderSize = 80

// DefaultName is the segment name OBS-style consumers look for.
const DefaultName = "OBSVirtualCamVideo"

// State of the queue as advertised in the header.
type State uint32

const (
	StateInvalid  State = 0
	StateStarting State = 1
	StateReady    State = 2
	StateStopping State = 3
)

var (
	ErrInvalidSize = errors.New("ring: invalid frame size")
	ErrMemorySmall = errors.New("ring: memory too small for layout")
	ErrMemoryAlign = errors.New("ring: memory alignment violation")
	ErrCorrupt     = errors.New("ring: header offsets are inconsistent")
)

// Header is the queue header stored at the start of the segment.
type Header struct {
	WriteIndex uint32        // Written by the producer
	ReadIndex  uint32        // Written by the consumer
	State      uint32        // See State
	Offsets    [Slots]uint32 // Byte offset of each slot from the segment start
	Type       uint32        // Frame type, 0 = NV12
	Width      uint32        // cx
	Height     uint32        // cy
	Interval   uint64        // Frame interval in 100ns units
	Reserved   [8]uint32
}

// Compile-time check that Header matches the wire size.
var (
	_ [HeaderSize - unsafe.Sizeof(Header{})]struct{}
	_ [unsafe.Sizeof(Header{}) - HeaderSize]struct{}
)

// Queue Memory Layout:
//
// <<<< SEGMENT_START
// HEADER                               // Header, padded to a 32-byte boundary
// <<<< ALIGN 32
// SLOT 0: [TIMESTAMP u64][PAD][FRAME]  // SlotHeaderSize bytes, then FrameSize bytes
// <<<< ALIGN 32
// SLOT 1
// <<<< ALIGN 32
// SLOT 2
// <<<< ALIGN 32 / SEGMENT_END

// Layout describes where every slot lives inside the segment.
type Layout struct {
	Width     uint32
	Height    uint32
	FrameSize uint32        // Bytes of pixel data per slot
	Offsets   [Slots]uint32 // Slot offsets, strictly increasing and 32-byte aligned
	Size      uint32        // Total segment size
}

func alignUp(v, a uint64) uint64 {
	return ((v + a - 1) / a) * a
}

// FrameSize returns the size of one planar 4:2:0 frame.
func FrameSize(width, height uint32) uint64 {
	return uint64(width) * uint64(height) * 3 / 2
}

// Compute calculates the queue layout for frames of the given dimensions.
//
// Parameters:
//   - width, height: Frame dimensions in pixels, both non-zero
//
// Returns ErrInvalidSize if a dimension is zero or the segment would not fit
// in 32-bit offsets.
func Compute(width, height uint32) (Layout, error) {
	if width == 0 || height == 0 {
		return Layout{}, ErrInvalidSize
	}

	frameSize := FrameSize(width, height)
	l := Layout{Width: width, Height: height, FrameSize: uint32(frameSize)}

	size := alignUp(HeaderSize, Alignment)
	for i := 0; i < Slots; i++ {
		l.Offsets[i] = uint32(size)
		size += frameSize + SlotHeaderSize
		size = alignUp(size, Alignment)
		if size > math.MaxUint32 {
			return Layout{}, ErrInvalidSize
		}
	}
	l.Size = uint32(size)

	return l, nil
}

// Header returns the header a producer writes for this layout.
func (l Layout) Header(interval uint64) Header {
	return Header{
		State:    uint32(StateStarting),
		Offsets:  l.Offsets,
		Width:    l.Width,
		Height:   l.Height,
		Interval: interval,
	}
}

// Queue is a layout bound to a mapped segment.
type Queue struct {
	mem    []byte
	layout Layout
}

func header(mem []byte) *Header {
	return (*Header)(unsafe.Pointer(&mem[0]))
}

// Init writes the layout into mem and returns the queue over it.
// mem must be 8-byte aligned and at least l.Size bytes.
//
// Parameters:
//   - mem: Mapped segment, starting at the queue header
//   - l: Layout from Compute
//   - interval: Frame interval in 100ns units
func Init(mem []byte, l Layout, interval uint64) (*Queue, error) {
	if len(mem) < int(l.Size) || len(mem) < HeaderSize {
		return nil, ErrMemorySmall
	}
	if uintptr(unsafe.Pointer(&mem[0]))%8 != 0 {
		return nil, ErrMemoryAlign
	}

	clear(mem[:l.Size])

	h := header(mem)
	*h = l.Header(interval)
	atomic.StoreUint32(&h.WriteIndex, 0)
	atomic.StoreUint32(&h.ReadIndex, 0)

	return &Queue{mem: mem, layout: l}, nil
}

// Attach reads and validates the layout already stored in mem.
func Attach(mem []byte) (*Queue, error) {
	if len(mem) < HeaderSize {
		return nil, ErrMemorySmall
	}
	if uintptr(unsafe.Pointer(&mem[0]))%8 != 0 {
		return nil, ErrMemoryAlign
	}

	h := header(mem)
	l, err := Compute(h.Width, h.Height)
	if err != nil {
		return nil, err
	}
	if l.Offsets != h.Offsets {
		return nil, ErrCorrupt
	}
	if len(mem) < int(l.Size) {
		return nil, ErrMemorySmall
	}

	return &Queue{mem: mem, layout: l}, nil
}

// Layout returns the layout of the queue.
func (q *Queue) Layout() Layout {
	return q.layout
}

// Header returns a snapshot of the queue header.
func (q *Queue) Header() Header {
	h := header(q.mem)
	snap := *h
	snap.WriteIndex = atomic.LoadUint32(&h.WriteIndex)
	snap.ReadIndex = atomic.LoadUint32(&h.ReadIndex)
	snap.State = atomic.LoadUint32(&h.State)
	return snap
}

// SetState publishes a new queue state.
func (q *Queue) SetState(s State) {
	atomic.StoreUint32(&header(q.mem).State, uint32(s))
}

// Slot is one frame slot resolved against the mapping.
type Slot struct {
	Timestamp []byte // SlotHeaderSize bytes, timestamp in the first 8
	Frame     []byte // FrameSize bytes
}

// Slot resolves slot i. It panics if i is out of range.
func (q *Queue) Slot(i int) Slot {
	off := q.layout.Offsets[i]
	frame := off + SlotHeaderSize
	end := frame + q.layout.FrameSize
	return Slot{
		Timestamp: q.mem[off:frame:frame],
		Frame:     q.mem[frame:end:end],
	}
}
