// Package shmcam delivers video frames from a producer process to a virtual
// camera consumer over named shared memory.
//
// A channel is a bundle of named OS objects: a mutex, a "frame wanted" event,
// a "frame sent" event and a shared memory segment holding a small header
// followed by the pixel payload. The consumer creates the objects, the
// producer opens them by name and delivers frames with a mutex-guarded copy
// followed by a signal and a non-blocking probe for demand.
package shmcam

import (
	"errors"
	"math"
	"time"

	"gosuda.org/shmcam/internal/names"
	"gosuda.org/shmcam/internal/protocol"
	"gosuda.org/shmcam/internal/ring"
)

//go:generate go tool stringer -type=Result,Role,BackendKind -output=enums_string.go

// Role selects which side of the channel a handle plays.
// The consumer creates the named objects, the producer opens them.
type Role uint32

const (
	RoleProducer Role = iota // Producer: opens existing objects and sends frames
	RoleConsumer             // Consumer: creates objects and reads frames
)

// BackendKind selects the shared memory backend of a channel.
type BackendKind uint32

const (
	BackendSingleSlot BackendKind = iota // Single-slot mutex/event handshake
	BackendRing                          // Triple-slot ring layout, layout only
)

// Result classifies the outcome of one Send.
type Result uint32

const (
	ResultSent         Result = iota // Delivered and the consumer had asked for a frame
	ResultFrameSkipped               // Delivered, but the consumer had not asked for a frame
	ResultTooLarge                   // Rejected, payload exceeds the advertised capacity
	ResultNotReady                   // Rejected, the channel is not open
	ResultFailed                     // Rejected, an OS primitive failed
)

// Delivered reports whether the payload reached the shared buffer.
func (r Result) Delivered() bool {
	return r == ResultSent || r == ResultFrameSkipped
}

// Error definitions for channel operations
var (
	ErrNotFound       = errors.New("shmcam: device not found")
	ErrNotReady       = errors.New("shmcam: channel not ready")
	ErrTooLarge       = errors.New("shmcam: frame too large")
	ErrFrameSkipped   = errors.New("shmcam: frame skipped")
	ErrUnknownFailure = errors.New("shmcam: unknown failure")
	ErrAlreadyExists  = errors.New("shmcam: channel already exists")
	ErrNotSupported   = names.ErrNotSupported
)

// Pixel formats, resize and mirror modes understood by consumers.
type (
	Format     = protocol.Format
	ResizeMode = protocol.ResizeMode
	MirrorMode = protocol.MirrorMode
)

const (
	FormatUint8      = protocol.FormatUint8
	FormatFp16Gamma  = protocol.FormatFp16Gamma
	FormatFp16Linear = protocol.FormatFp16Linear

	ResizeDisabled = protocol.ResizeDisabled
	ResizeLinear   = protocol.ResizeLinear

	MirrorDisabled   = protocol.MirrorDisabled
	MirrorHorizontal = protocol.MirrorHorizontal
)

// HeaderSize is the size of the shared buffer header that precedes the payload.
const HeaderSize = protocol.HeaderSize

// DefaultMaxPayload is the payload capacity a consumer advertises by default.
const DefaultMaxPayload = protocol.DefaultMaxPayload

// DefaultTimeout is the frame timeout advertised by Camera: effectively forever.
const DefaultTimeout = (math.MaxInt32 - 200) * time.Millisecond

// RingLayout describes the triple-slot ring backend layout.
type RingLayout = ring.Layout

// ComputeRingLayout returns the ring layout for frames of width x height.
func ComputeRingLayout(width, height uint32) (RingLayout, error) {
	return ring.Compute(width, height)
}

// Frame is one video frame and the metadata advertised with it.
type Frame struct {
	Width      int32
	Height     int32
	Stride     int32 // Pixels per row
	Format     Format
	ResizeMode ResizeMode
	MirrorMode MirrorMode
	Timeout    time.Duration // How long the consumer should wait for the next frame
	Payload    []byte
}

func (f Frame) header() protocol.Header {
	ms := f.Timeout.Milliseconds()
	switch {
	case ms > math.MaxInt32:
		ms = math.MaxInt32
	case ms < math.MinInt32:
		ms = math.MinInt32
	}
	return protocol.Header{
		Width:      f.Width,
		Height:     f.Height,
		Stride:     f.Stride,
		Format:     f.Format,
		ResizeMode: f.ResizeMode,
		MirrorMode: f.MirrorMode,
		TimeoutMs:  int32(ms),
	}
}

func frameFromHeader(h protocol.Header, payload []byte) Frame {
	return Frame{
		Width:      h.Width,
		Height:     h.Height,
		Stride:     h.Stride,
		Format:     h.Format,
		ResizeMode: h.ResizeMode,
		MirrorMode: h.MirrorMode,
		Timeout:    time.Duration(h.TimeoutMs) * time.Millisecond,
		Payload:    payload,
	}
}

// Config selects the backend and where its named objects live.
type Config struct {
	Backend BackendKind

	// Dir holds the backing files of named objects on unix systems.
	// Empty selects /dev/shm, or the temp directory where that is missing.
	Dir string

	// Prefix is prepended to every object name.
	Prefix string

	// MaxPayload is the capacity a consumer advertises.
	MaxPayload uint32

	// Ring backend parameters.
	RingName     string
	RingWidth    uint32
	RingHeight   uint32
	RingInterval time.Duration
}

// DefaultConfig returns the single-slot configuration consumers expect.
func DefaultConfig() Config {
	return Config{
		Backend:      BackendSingleSlot,
		MaxPayload:   DefaultMaxPayload,
		RingName:     ring.DefaultName,
		RingWidth:    1920,
		RingHeight:   1080,
		RingInterval: time.Second / 30,
	}
}

// Stats is a snapshot of a channel's send counters.
type Stats struct {
	Sent             uint64    // Frames delivered on demand
	Skipped          uint64    // Frames delivered without demand
	TooLarge         uint64    // Frames rejected for size
	NotReady         uint64    // Sends attempted on a closed channel
	Failed           uint64    // Sends that hit an OS failure
	ConsecutiveSkips uint64    // Current run of skipped frames, reset by a Sent
	LastSentAt       time.Time // Time of the last delivered frame
}
