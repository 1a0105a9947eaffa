// Package pattern generates synthetic RGBA test frames.
package pattern

import (
	"context"
	"image"
	"image/color"
	"time"
)

// Bars are the colors of the test pattern, left to right.
var Bars = []color.RGBA{
	{0xc0, 0xc0, 0xc0, 0xff}, // gray
	{0xc0, 0xc0, 0x00, 0xff}, // yellow
	{0x00, 0xc0, 0xc0, 0xff}, // cyan
	{0x00, 0xc0, 0x00, 0xff}, // green
	{0xc0, 0x00, 0xc0, 0xff}, // magenta
	{0xc0, 0x00, 0x00, 0xff}, // red
	{0x00, 0x00, 0xc0, 0xff}, // blue
}

// Marker is the color of the column that sweeps across the bars.
var Marker = color.RGBA{0xff, 0xff, 0xff, 0xff}

// Frame is one generated image.
type Frame struct {
	Sequence  int64
	Timestamp time.Time
	Image     *image.RGBA
}

// Source produces color bars with a sweeping marker column at a fixed rate.
type Source struct {
	width    int
	height   int
	interval time.Duration
}

// New returns a Source of width x height frames at fps frames per second.
func New(width, height, fps int) *Source {
	if fps <= 0 {
		fps = 30
	}
	return &Source{width: width, height: height, interval: time.Second / time.Duration(fps)}
}

// Interval returns the time between frames.
func (s *Source) Interval() time.Duration {
	return s.interval
}

// Render draws frame seq into img. img must be width x height.
func (s *Source) Render(img *image.RGBA, seq int64) {
	marker := int(seq % int64(s.width))
	row := img.Pix[:s.width*4]
	for x := 0; x < s.width; x++ {
		c := Bars[x*len(Bars)/s.width]
		if x == marker {
			c = Marker
		}
		row[x*4+0] = c.R
		row[x*4+1] = c.G
		row[x*4+2] = c.B
		row[x*4+3] = c.A
	}
	for y := 1; y < s.height; y++ {
		copy(img.Pix[y*img.Stride:y*img.Stride+s.width*4], row)
	}
}

// Stream sends frames to out until ctx is done. It renders into two
// alternating images: a frame stays valid until the receiver takes the next
// one.
func (s *Source) Stream(ctx context.Context, out chan<- Frame) error {
	rect := image.Rect(0, 0, s.width, s.height)
	imgs := [2]*image.RGBA{image.NewRGBA(rect), image.NewRGBA(rect)}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for seq := int64(0); ; seq++ {
		img := imgs[seq%2]
		s.Render(img, seq)

		select {
		case out <- Frame{Sequence: seq, Timestamp: time.Now(), Image: img}:
		case <-ctx.Done():
			return ctx.Err()
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
