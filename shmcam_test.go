package shmcam

import (
	"bytes"
	"errors"
	"math"
	"os"
	"testing"
	"time"

	"golang.org/x/sync/errgroup"

	"gosuda.org/shmcam/internal/registry"
)

// testConfig returns a single-slot config whose objects live in a private directory.
func testConfig(t *testing.T, maxPayload uint32) Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Dir = t.TempDir()
	cfg.MaxPayload = maxPayload
	return cfg
}

// openPair opens a consumer and a producer on channel id.
func openPair(t *testing.T, id int, cfg Config) (consumer, producer *Channel) {
	t.Helper()

	consumer, err := NewChannel(id, RoleConsumer, cfg)
	if err != nil {
		t.Fatalf("NewChannel(consumer) failed: %v", err)
	}
	if err := consumer.TryOpen(); err != nil {
		t.Fatalf("consumer TryOpen failed: %v", err)
	}
	t.Cleanup(func() { consumer.Close() })

	producer, err = NewChannel(id, RoleProducer, cfg)
	if err != nil {
		t.Fatalf("NewChannel(producer) failed: %v", err)
	}
	if err := producer.TryOpen(); err != nil {
		t.Fatalf("producer TryOpen failed: %v", err)
	}
	t.Cleanup(func() { producer.Close() })

	return consumer, producer
}

func testFrame(width, height int32, fill byte) Frame {
	return Frame{
		Width:   width,
		Height:  height,
		Stride:  width,
		Format:  FormatUint8,
		Timeout: time.Second,
		Payload: bytes.Repeat([]byte{fill}, int(width*height*4)),
	}
}

// TestProducerNotReady verifies a producer cannot open before the consumer
// exists and creates nothing while trying.
func TestProducerNotReady(t *testing.T) {
	cfg := testConfig(t, 1<<16)

	producer, err := NewChannel(0, RoleProducer, cfg)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if producer.Open() {
		t.Fatal("producer opened without a consumer")
	}
	if err := producer.TryOpen(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("TryOpen error = %v, want ErrNotReady", err)
	}

	res, err := producer.Send(testFrame(2, 2, 1))
	if res != ResultNotReady || !errors.Is(err, ErrNotReady) {
		t.Fatalf("Send = (%v, %v), want (ResultNotReady, ErrNotReady)", res, err)
	}
	if got := producer.Stats().NotReady; got != 1 {
		t.Errorf("Stats.NotReady = %d, want 1", got)
	}

	entries, err := os.ReadDir(cfg.Dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("producer left %d objects behind", len(entries))
	}
}

// TestOpenIdempotent verifies that opening an open channel is a no-op.
func TestOpenIdempotent(t *testing.T) {
	cfg := testConfig(t, 1<<16)
	consumer, producer := openPair(t, 2, cfg)

	for i := 0; i < 3; i++ {
		if !consumer.Open() {
			t.Fatalf("consumer Open #%d returned false", i)
		}
		if !producer.Open() {
			t.Fatalf("producer Open #%d returned false", i)
		}
	}
	if !producer.IsOpen() {
		t.Error("IsOpen = false after Open")
	}
}

// TestSendHandshake verifies the Sent and FrameSkipped outcomes of the
// handshake and that the want signal is consumed by a send.
func TestSendHandshake(t *testing.T) {
	cfg := testConfig(t, 1<<16)
	consumer, producer := openPair(t, 1, cfg)

	// No request: delivered but skipped.
	res, err := producer.Send(testFrame(4, 2, 0x11))
	if res != ResultFrameSkipped || !errors.Is(err, ErrFrameSkipped) {
		t.Fatalf("Send = (%v, %v), want (ResultFrameSkipped, ErrFrameSkipped)", res, err)
	}
	if !res.Delivered() {
		t.Error("skipped frame not reported as delivered")
	}

	ok, err := consumer.WaitFrame(0)
	if err != nil || !ok {
		t.Fatalf("WaitFrame = (%v, %v), want (true, nil)", ok, err)
	}
	frame, err := consumer.ReadFrame(nil)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if frame.Width != 4 || frame.Height != 2 || frame.Stride != 4 {
		t.Errorf("ReadFrame dimensions = %dx%d/%d, want 4x2/4", frame.Width, frame.Height, frame.Stride)
	}
	if !bytes.Equal(frame.Payload, bytes.Repeat([]byte{0x11}, 32)) {
		t.Errorf("ReadFrame payload = %x", frame.Payload)
	}

	// Requested: sent.
	if err := consumer.RequestFrame(); err != nil {
		t.Fatalf("RequestFrame failed: %v", err)
	}
	res, err = producer.Send(testFrame(4, 2, 0x22))
	if res != ResultSent || err != nil {
		t.Fatalf("Send = (%v, %v), want (ResultSent, nil)", res, err)
	}

	// The request was consumed by the previous send.
	res, _ = producer.Send(testFrame(4, 2, 0x33))
	if res != ResultFrameSkipped {
		t.Fatalf("Send after consumed request = %v, want ResultFrameSkipped", res)
	}

	st := producer.Stats()
	if st.Sent != 1 || st.Skipped != 2 || st.ConsecutiveSkips != 1 {
		t.Errorf("Stats = %+v, want Sent=1 Skipped=2 ConsecutiveSkips=1", st)
	}
	if st.LastSentAt.IsZero() {
		t.Error("Stats.LastSentAt not set")
	}
}

// TestCameraSizedFrame delivers a full HD RGBA frame through the default capacity.
func TestCameraSizedFrame(t *testing.T) {
	cfg := testConfig(t, DefaultMaxPayload)
	consumer, producer := openPair(t, 0, cfg)

	const width, height = 1920, 1080
	payload := make([]byte, width*height*4)
	for i := range payload {
		payload[i] = byte(i)
	}
	frame := Frame{
		Width:      width,
		Height:     height,
		Stride:     width,
		Format:     FormatUint8,
		ResizeMode: ResizeLinear,
		MirrorMode: MirrorHorizontal,
		Timeout:    DefaultTimeout,
		Payload:    payload,
	}

	if res, _ := producer.Send(frame); res != ResultFrameSkipped {
		t.Fatalf("first Send = %v, want ResultFrameSkipped", res)
	}
	if err := consumer.RequestFrame(); err != nil {
		t.Fatalf("RequestFrame failed: %v", err)
	}
	if res, err := producer.Send(frame); res != ResultSent {
		t.Fatalf("second Send = (%v, %v), want ResultSent", res, err)
	}

	got, err := consumer.ReadFrame(nil)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if !bytes.Equal(got.Payload, payload) {
		t.Error("payload mismatch")
	}
	if got.ResizeMode != ResizeLinear || got.MirrorMode != MirrorHorizontal {
		t.Errorf("modes = %v/%v", got.ResizeMode, got.MirrorMode)
	}
	if got.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", got.Timeout, DefaultTimeout)
	}
}

// TestSendTooLarge verifies an oversized payload is rejected without touching
// the shared buffer.
func TestSendTooLarge(t *testing.T) {
	const maxPayload = 64
	cfg := testConfig(t, maxPayload)
	consumer, producer := openPair(t, 3, cfg)

	if _, err := producer.Send(testFrame(4, 4, 0x5a)); err != nil && !errors.Is(err, ErrFrameSkipped) {
		t.Fatalf("Send failed: %v", err)
	}
	before, err := consumer.ReadFrame(nil)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	consumer.WaitFrame(0)

	big := testFrame(8, 8, 0xff)
	res, err := producer.Send(big)
	if res != ResultTooLarge || !errors.Is(err, ErrTooLarge) {
		t.Fatalf("Send = (%v, %v), want (ResultTooLarge, ErrTooLarge)", res, err)
	}

	after, err := consumer.ReadFrame(nil)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if after.Width != before.Width || after.Height != before.Height || !bytes.Equal(after.Payload, before.Payload) {
		t.Error("shared buffer changed after a rejected send")
	}
	if ok, _ := consumer.WaitFrame(0); ok {
		t.Error("rejected send signaled the consumer")
	}
	if got := producer.Stats().TooLarge; got != 1 {
		t.Errorf("Stats.TooLarge = %d, want 1", got)
	}
}

// TestSendZeroCapacity verifies a consumer advertising no capacity rejects any payload.
func TestSendZeroCapacity(t *testing.T) {
	cfg := testConfig(t, 0)
	_, producer := openPair(t, 4, cfg)

	tests := []struct {
		name    string
		payload []byte
	}{
		{"one byte", []byte{1}},
		{"empty", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := producer.Send(Frame{Width: 1, Height: 1, Stride: 1, Payload: tt.payload})
			if res != ResultTooLarge || !errors.Is(err, ErrTooLarge) {
				t.Fatalf("Send = (%v, %v), want (ResultTooLarge, ErrTooLarge)", res, err)
			}
		})
	}
}

// TestConsumerClearsStaleRequest verifies a consumer reusing existing objects
// starts without the frame request of an earlier consumer.
func TestConsumerClearsStaleRequest(t *testing.T) {
	cfg := testConfig(t, 1<<16)

	first, err := NewChannel(7, RoleConsumer, cfg)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if err := first.TryOpen(); err != nil {
		t.Fatalf("first consumer TryOpen failed: %v", err)
	}
	defer first.Close()
	if err := first.RequestFrame(); err != nil {
		t.Fatalf("RequestFrame failed: %v", err)
	}

	// The second consumer opens the same objects without removing them.
	_, producer := openPair(t, 7, cfg)

	res, err := producer.Send(testFrame(2, 2, 1))
	if res != ResultFrameSkipped || !errors.Is(err, ErrFrameSkipped) {
		t.Fatalf("Send = (%v, %v), want (ResultFrameSkipped, ErrFrameSkipped)", res, err)
	}
}

// TestUnsupportedID verifies ids without object names are rejected.
func TestUnsupportedID(t *testing.T) {
	cfg := testConfig(t, 1<<16)
	for _, id := range []int{-1, 10, 11, MaxChannelIDs} {
		if _, err := NewChannel(id, RoleProducer, cfg); !errors.Is(err, ErrNotSupported) {
			t.Errorf("NewChannel(%d) error = %v, want ErrNotSupported", id, err)
		}
	}
}

// TestCloseReopen verifies Close is idempotent and a closed channel can be opened again.
func TestCloseReopen(t *testing.T) {
	cfg := testConfig(t, 1<<16)
	consumer, producer := openPair(t, 5, cfg)

	if err := producer.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := producer.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if res, _ := producer.Send(testFrame(2, 2, 1)); res != ResultNotReady {
		t.Fatalf("Send after Close = %v, want ResultNotReady", res)
	}
	if !producer.Open() {
		t.Fatal("reopen failed")
	}

	// Closing the consumer removes the objects, so new producers cannot open.
	if err := consumer.Close(); err != nil {
		t.Fatalf("consumer Close failed: %v", err)
	}
	late, err := NewChannel(5, RoleProducer, cfg)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if late.Open() {
		t.Error("producer opened after the consumer closed")
	}
}

// TestConcurrentSendsDoNotInterleave verifies that writes are serialized by
// the channel mutex: a reader never observes a mix of two frames.
func TestConcurrentSendsDoNotInterleave(t *testing.T) {
	cfg := testConfig(t, 1<<16)
	consumer, producer := openPair(t, 6, cfg)

	const senders, frames, height = 4, 200, 8

	// Sender i writes width 8*i filled with byte i, so every header pins
	// down the payload it must be read with.
	var g errgroup.Group
	for i := 1; i <= senders; i++ {
		fill := byte(i)
		g.Go(func() error {
			f := testFrame(int32(8*i), height, fill)
			for n := 0; n < frames; n++ {
				if res, err := producer.Send(f); !res.Delivered() {
					return err
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		var buf []byte
		for n := 0; n < senders*frames; n++ {
			f, err := consumer.ReadFrame(buf)
			if err != nil {
				return err
			}
			buf = f.Payload
			if len(f.Payload) == 0 {
				continue
			}
			if want := int32(8 * int(f.Payload[0])); f.Width != want || f.Stride != want {
				t.Errorf("header %dx%d/%d read with payload of sender %d", f.Width, f.Height, f.Stride, f.Payload[0])
				return nil
			}
			if len(f.Payload) != int(f.Width)*height*4 {
				t.Errorf("payload length %d for width %d", len(f.Payload), f.Width)
				return nil
			}
			for _, b := range f.Payload {
				if b != f.Payload[0] {
					t.Errorf("interleaved frame observed: %x vs %x", b, f.Payload[0])
					return nil
				}
			}
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		t.Fatalf("concurrent send failed: %v", err)
	}

	st := producer.Stats()
	if st.Sent+st.Skipped != senders*frames {
		t.Errorf("delivered %d frames, want %d", st.Sent+st.Skipped, senders*frames)
	}
}

// TestRingBackend verifies the ring backend lays out an exclusive segment and
// refuses frame delivery.
func TestRingBackend(t *testing.T) {
	cfg := testConfig(t, 0)
	cfg.Backend = BackendRing
	cfg.RingWidth, cfg.RingHeight = 640, 480

	writer, err := NewChannel(0, RoleProducer, cfg)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if err := writer.TryOpen(); err != nil {
		t.Fatalf("TryOpen failed: %v", err)
	}
	defer writer.Close()

	second, _ := NewChannel(0, RoleProducer, cfg)
	if err := second.TryOpen(); !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second writer TryOpen error = %v, want ErrAlreadyExists", err)
	}

	res, err := writer.Send(testFrame(2, 2, 1))
	if res != ResultFailed || !errors.Is(err, ErrNotSupported) {
		t.Fatalf("Send = (%v, %v), want (ResultFailed, ErrNotSupported)", res, err)
	}

	reader, _ := NewChannel(0, RoleConsumer, cfg)
	if err := reader.TryOpen(); err != nil {
		t.Fatalf("reader TryOpen failed: %v", err)
	}
	defer reader.Close()

	want, err := ComputeRingLayout(640, 480)
	if err != nil {
		t.Fatalf("ComputeRingLayout failed: %v", err)
	}
	got, err := reader.RingLayout()
	if err != nil {
		t.Fatalf("RingLayout failed: %v", err)
	}
	if got != want {
		t.Errorf("RingLayout = %+v, want %+v", got, want)
	}
	if err := reader.RequestFrame(); !errors.Is(err, ErrNotSupported) {
		t.Errorf("RequestFrame on ring error = %v, want ErrNotSupported", err)
	}
}

// TestRingReaderBeforeLayout verifies a reader attaching to a sized but
// uninitialized ring segment is told to retry.
func TestRingReaderBeforeLayout(t *testing.T) {
	cfg := testConfig(t, 0)
	cfg.Backend = BackendRing

	l, err := ComputeRingLayout(64, 64)
	if err != nil {
		t.Fatalf("ComputeRingLayout failed: %v", err)
	}
	mem, err := cfg.namespace().CreateSegment(cfg.RingName, int(l.Size))
	if err != nil {
		t.Fatalf("CreateSegment failed: %v", err)
	}
	defer mem.Close()

	reader, err := NewChannel(0, RoleConsumer, cfg)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if err := reader.TryOpen(); !errors.Is(err, ErrNotReady) {
		t.Fatalf("TryOpen error = %v, want ErrNotReady", err)
	}
	if reader.IsOpen() {
		t.Error("reader open on a segment without layout")
	}
}

// TestLocator verifies device lookup by registered name.
func TestLocator(t *testing.T) {
	reg := registry.NewMap(nil)
	reg.Register(0, "Unity Video Capture")
	reg.Register(3, "Studio Cam")
	reg.Register(7, "Studio Cam")

	l := NewLocator(reg)
	tests := []struct {
		device string
		id     int
		err    error
	}{
		{"Unity Video Capture", 0, nil},
		{"Studio Cam", 3, nil},
		{"Missing", -1, ErrNotFound},
	}
	for _, tt := range tests {
		id, err := l.Find(tt.device)
		if !errors.Is(err, tt.err) || id != tt.id {
			t.Errorf("Find(%q) = (%d, %v), want (%d, %v)", tt.device, id, err, tt.id, tt.err)
		}
	}
}

// TestCamera verifies the facade resolves its device, opens lazily and sends
// with the fixed metadata.
func TestCamera(t *testing.T) {
	cfg := testConfig(t, 1<<16)
	reg := registry.NewMap(nil)
	reg.Register(2, "Test Cam")

	if _, err := NewCamera(8, 8, "Other", WithRegistry(reg), WithConfig(cfg)); !errors.Is(err, ErrNotFound) {
		t.Fatalf("NewCamera error = %v, want ErrNotFound", err)
	}

	cam, err := NewCamera(8, 4, "Test Cam", WithRegistry(reg), WithConfig(cfg))
	if err != nil {
		t.Fatalf("NewCamera failed: %v", err)
	}
	defer cam.Close()

	data := bytes.Repeat([]byte{0x7f}, 8*4*4)
	if res, _ := cam.Send(data); res != ResultNotReady {
		t.Fatalf("Send before consumer = %v, want ResultNotReady", res)
	}

	consumer, err := NewChannel(2, RoleConsumer, cfg)
	if err != nil {
		t.Fatalf("NewChannel failed: %v", err)
	}
	if err := consumer.TryOpen(); err != nil {
		t.Fatalf("consumer TryOpen failed: %v", err)
	}
	defer consumer.Close()

	if res, _ := cam.Send(data); res != ResultFrameSkipped {
		t.Fatalf("Send = %v, want ResultFrameSkipped", res)
	}
	f, err := consumer.ReadFrame(nil)
	if err != nil {
		t.Fatalf("ReadFrame failed: %v", err)
	}
	if f.Stride != 8 || f.Format != FormatUint8 || f.ResizeMode != ResizeLinear || f.MirrorMode != MirrorHorizontal {
		t.Errorf("frame metadata = %+v", f)
	}
	if f.Timeout != (math.MaxInt32-200)*time.Millisecond {
		t.Errorf("Timeout = %v", f.Timeout)
	}
	if !bytes.Equal(f.Payload, data) {
		t.Error("payload mismatch")
	}
}

func TestFrameTimeoutClamp(t *testing.T) {
	tests := []struct {
		in   time.Duration
		want int32
	}{
		{time.Second, 1000},
		{0, 0},
		{1000 * time.Hour, math.MaxInt32},
		{-1000 * time.Hour, math.MinInt32},
	}
	for _, tt := range tests {
		if got := (Frame{Timeout: tt.in}).header().TimeoutMs; got != tt.want {
			t.Errorf("timeout %v -> %d ms, want %d", tt.in, got, tt.want)
		}
	}
}

func TestResultString(t *testing.T) {
	if ResultSent.String() != "ResultSent" || ResultFailed.String() != "ResultFailed" {
		t.Errorf("unexpected names %q, %q", ResultSent, ResultFailed)
	}
	if Result(42).String() != "Result(42)" {
		t.Errorf("out of range name = %q", Result(42))
	}
	if ResultTooLarge.Delivered() || ResultNotReady.Delivered() {
		t.Error("rejected results reported as delivered")
	}
}
