package protocol

import (
	"encoding/binary"
	"sync/atomic"
	"unsafe"
)

//go:generate go tool stringer -type=Format,ResizeMode,MirrorMode -output=enums_string.go

// Format describes the pixel encoding of a payload.
type Format int32

const (
	// Uint8: 4 bytes per pixel, 8-bit RGBA
	FormatUint8 Format = 0

	// Fp16Gamma: 8 bytes per pixel, half-float RGBA in gamma space
	FormatFp16Gamma Format = 1

	// Fp16Linear: 8 bytes per pixel, half-float RGBA in linear space
	FormatFp16Linear Format = 2
)

// BytesPerPixel returns the payload bytes occupied by one pixel, or 0 for an unknown format.
func (f Format) BytesPerPixel() int {
	switch f {
	case FormatUint8:
		return 4
	case FormatFp16Gamma, FormatFp16Linear:
		return 8
	}
	return 0
}

// ResizeMode tells the consumer how to fit a frame of a different size.
type ResizeMode int32

const (
	ResizeDisabled ResizeMode = 0
	ResizeLinear   ResizeMode = 1
)

// MirrorMode tells the consumer whether to flip the frame.
type MirrorMode int32

const (
	MirrorDisabled   MirrorMode = 0
	MirrorHorizontal MirrorMode = 1
)

// Shared Buffer Layout (native byte order):
//
//	0  maxSize    u32  set once by the consumer
//	4  width      i32
//	8  height     i32
//	12 stride     i32  pixels per row
//	16 format     i32
//	20 resizeMode i32
//	24 mirrorMode i32
//	28 timeoutMs  i32  how long the consumer should wait for the next frame
//	32 payload...
const (
	OffsetMaxSize    = 0
	OffsetWidth      = 4
	OffsetHeight     = 8
	OffsetStride     = 12
	OffsetFormat     = 16
	OffsetResizeMode = 20
	OffsetMirrorMode = 24
	OffsetTimeout    = 28

	HeaderSize = 32
)

// DefaultMaxPayload is the capacity consumers advertise: 4K RGBA at 16 bits per channel.
const DefaultMaxPayload = 3840 * 2160 * 4 * 2

// Header is the metadata block written before every payload.
type Header struct {
	MaxSize    uint32
	Width      int32
	Height     int32
	Stride     int32
	Format     Format
	ResizeMode ResizeMode
	MirrorMode MirrorMode
	TimeoutMs  int32
}

// PayloadLen returns the number of payload bytes the header describes.
func (h Header) PayloadLen() int {
	if h.Stride <= 0 || h.Height <= 0 {
		return 0
	}
	n := int(h.Stride) * int(h.Height) * h.Format.BytesPerPixel()
	if n > int(h.MaxSize) {
		n = int(h.MaxSize)
	}
	return n
}

// View is a shared buffer header followed by its payload region.
// The backing slice must start on a 4-byte boundary.
type View []byte

// Valid reports whether the view can hold at least a header.
func (v View) Valid() bool {
	return len(v) >= HeaderSize
}

// MaxSize loads the capacity advertised by the consumer.
func (v View) MaxSize() uint32 {
	return atomic.LoadUint32((*uint32)(unsafe.Pointer(&v[OffsetMaxSize])))
}

// SetMaxSize stores the capacity. Only the consumer writes it.
func (v View) SetMaxSize(n uint32) {
	atomic.StoreUint32((*uint32)(unsafe.Pointer(&v[OffsetMaxSize])), n)
}

// Capacity returns how many payload bytes fit behind the header in this mapping.
func (v View) Capacity() int {
	return len(v) - HeaderSize
}

// Payload returns the payload region.
func (v View) Payload() []byte {
	return v[HeaderSize:]
}

// PutMetadata writes every header field except maxSize.
func (v View) PutMetadata(h Header) {
	binary.NativeEndian.PutUint32(v[OffsetWidth:], uint32(h.Width))
	binary.NativeEndian.PutUint32(v[OffsetHeight:], uint32(h.Height))
	binary.NativeEndian.PutUint32(v[OffsetStride:], uint32(h.Stride))
	binary.NativeEndian.PutUint32(v[OffsetFormat:], uint32(h.Format))
	binary.NativeEndian.PutUint32(v[OffsetResizeMode:], uint32(h.ResizeMode))
	binary.NativeEndian.PutUint32(v[OffsetMirrorMode:], uint32(h.MirrorMode))
	binary.NativeEndian.PutUint32(v[OffsetTimeout:], uint32(h.TimeoutMs))
}

// Header decodes the full header.
func (v View) Header() Header {
	return Header{
		MaxSize:    v.MaxSize(),
		Width:      int32(binary.NativeEndian.Uint32(v[OffsetWidth:])),
		Height:     int32(binary.NativeEndian.Uint32(v[OffsetHeight:])),
		Stride:     int32(binary.NativeEndian.Uint32(v[OffsetStride:])),
		Format:     Format(binary.NativeEndian.Uint32(v[OffsetFormat:])),
		ResizeMode: ResizeMode(binary.NativeEndian.Uint32(v[OffsetResizeMode:])),
		MirrorMode: MirrorMode(binary.NativeEndian.Uint32(v[OffsetMirrorMode:])),
		TimeoutMs:  int32(binary.NativeEndian.Uint32(v[OffsetTimeout:])),
	}
}
