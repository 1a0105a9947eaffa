package shmcam

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"gosuda.org/shmcam/internal/names"
	"gosuda.org/shmcam/internal/ring"
	"gosuda.org/shmcam/internal/shm"
)

// Channel is one end of a numbered frame channel.
//
// Open and Close may be called from any goroutine. Send and the consumer
// methods run concurrently with each other but never with Open or Close.
type Channel struct {
	id      int
	role    Role
	kind    BackendKind
	names   names.ResourceNames
	backend Backend

	mu     sync.RWMutex
	opened bool

	sent, skipped, tooLarge, notReady, failed atomic.Uint64
	consecutiveSkips                          atomic.Uint64
	lastSentAt                                atomic.Int64
}

// NewChannel returns a closed channel handle for id. No OS objects are
// acquired until Open.
//
// Returns ErrNotSupported if id has no object names.
func NewChannel(id int, role Role, cfg Config) (*Channel, error) {
	n, err := names.Derive(id)
	if err != nil {
		return nil, err
	}

	c := &Channel{id: id, role: role, kind: cfg.Backend, names: n}
	switch cfg.Backend {
	case BackendSingleSlot:
		c.backend = newSingleSlot(n, role, cfg)
	case BackendRing:
		c.backend = newRingQueue(role, cfg)
	default:
		return nil, fmt.Errorf("%w: backend %v", ErrNotSupported, cfg.Backend)
	}
	return c, nil
}

// ID returns the channel id.
func (c *Channel) ID() int {
	return c.id
}

// Role returns the role the channel was created with.
func (c *Channel) Role() Role {
	return c.role
}

// Names returns the object names of the channel.
func (c *Channel) Names() names.ResourceNames {
	return c.names
}

func (c *Channel) logger() logrus.FieldLogger {
	return log.WithFields(logrus.Fields{"channel": c.id, "role": c.role, "backend": c.kind})
}

// TryOpen acquires the channel objects. It is a no-op on an open channel.
//
// Returns nil on success, an error matching ErrNotReady when an object does
// not exist yet, ErrAlreadyExists when a ring segment is owned by another
// writer, or an error matching ErrUnknownFailure otherwise. Objects acquired
// by a failed attempt are released.
func (c *Channel) TryOpen() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.opened {
		return nil
	}

	err := c.backend.Open()
	switch {
	case err == nil:
	case errors.Is(err, shm.ErrNotExist):
		return fmt.Errorf("%w: %w", ErrNotReady, err)
	case errors.Is(err, ErrAlreadyExists):
		return err
	default:
		return fmt.Errorf("%w: %w", ErrUnknownFailure, err)
	}

	c.opened = true
	c.logger().Debug("channel opened")
	return nil
}

// Open reports whether the channel is ready to send, acquiring the channel
// objects if needed. A false result is expected while the consumer is not
// running; callers poll until it turns true.
func (c *Channel) Open() bool {
	if err := c.TryOpen(); err != nil {
		c.logger().WithError(err).Debug("channel not ready")
		return false
	}
	return true
}

// IsOpen reports whether the channel currently holds its objects.
func (c *Channel) IsOpen() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.opened
}

// Close releases the channel objects. A consumer also removes them from the
// namespace. Close is idempotent and the channel may be opened again.
func (c *Channel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.opened {
		return nil
	}
	c.opened = false
	if err := c.backend.Close(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnknownFailure, err)
	}
	c.logger().Debug("channel closed")
	return nil
}

// Send delivers one frame.
//
// The payload is rejected with ResultTooLarge before anything is written if
// it exceeds the capacity the consumer advertised. Otherwise header and
// payload are copied under the channel mutex, the consumer is signaled and
// the result tells whether it had asked for a frame (ResultSent) or not
// (ResultFrameSkipped, with ErrFrameSkipped). A skipped frame has still been
// delivered.
func (c *Channel) Send(f Frame) (Result, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.opened {
		c.notReady.Add(1)
		return ResultNotReady, ErrNotReady
	}

	res, err := c.backend.Send(f)
	c.record(res)
	switch res {
	case ResultFrameSkipped:
		c.logger().Debug("frame skipped")
	case ResultTooLarge:
		c.logger().WithError(err).Warn("frame too large")
	case ResultFailed:
		c.logger().WithError(err).Warn("send failed")
	}
	return res, err
}

func (c *Channel) record(res Result) {
	switch res {
	case ResultSent:
		c.sent.Add(1)
		c.consecutiveSkips.Store(0)
		c.lastSentAt.Store(time.Now().UnixNano())
	case ResultFrameSkipped:
		c.skipped.Add(1)
		c.consecutiveSkips.Add(1)
		c.lastSentAt.Store(time.Now().UnixNano())
	case ResultTooLarge:
		c.tooLarge.Add(1)
	case ResultNotReady:
		c.notReady.Add(1)
	case ResultFailed:
		c.failed.Add(1)
	}
}

// Stats returns a snapshot of the send counters.
func (c *Channel) Stats() Stats {
	s := Stats{
		Sent:             c.sent.Load(),
		Skipped:          c.skipped.Load(),
		TooLarge:         c.tooLarge.Load(),
		NotReady:         c.notReady.Load(),
		Failed:           c.failed.Load(),
		ConsecutiveSkips: c.consecutiveSkips.Load(),
	}
	if ns := c.lastSentAt.Load(); ns != 0 {
		s.LastSentAt = time.Unix(0, ns)
	}
	return s
}

func (c *Channel) singleSlot() (*singleSlot, error) {
	if !c.opened {
		return nil, ErrNotReady
	}
	b, ok := c.backend.(*singleSlot)
	if !ok {
		return nil, fmt.Errorf("%w: consumer handshake over %T", ErrNotSupported, c.backend)
	}
	return b, nil
}

// RequestFrame tells the producer the consumer wants the next frame.
func (c *Channel) RequestFrame() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, err := c.singleSlot()
	if err != nil {
		return err
	}
	return b.requestFrame()
}

// WaitFrame waits up to timeout for the producer to deliver a frame.
// A negative timeout waits forever. It reports false on timeout.
func (c *Channel) WaitFrame(timeout time.Duration) (bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, err := c.singleSlot()
	if err != nil {
		return false, err
	}
	if timeout < 0 {
		timeout = shm.Infinite
	}
	return b.waitFrame(timeout)
}

// ReadFrame copies the current frame out of the shared buffer. The payload
// is appended to dst[:0], so a dst with enough capacity is reused.
func (c *Channel) ReadFrame(dst []byte) (Frame, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	b, err := c.singleSlot()
	if err != nil {
		return Frame{}, err
	}
	return b.readFrame(dst)
}

// RingLayout returns the layout of an open ring channel.
func (c *Channel) RingLayout() (ring.Layout, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if !c.opened {
		return ring.Layout{}, ErrNotReady
	}
	b, ok := c.backend.(*ringQueue)
	if !ok {
		return ring.Layout{}, fmt.Errorf("%w: ring layout over %T", ErrNotSupported, c.backend)
	}
	return b.layout()
}
