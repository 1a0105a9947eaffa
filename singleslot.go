package shmcam

import (
	"fmt"
	"time"

	"gosuda.org/shmcam/internal/names"
	"gosuda.org/shmcam/internal/protocol"
	"gosuda.org/shmcam/internal/shm"
)

// singleSlot is the mutex/event handshake backend: one header and one
// payload buffer, overwritten by every Send.
type singleSlot struct {
	names      names.ResourceNames
	role       Role
	ns         shm.Namespace
	maxPayload uint32

	mu   *shm.Mutex
	want *shm.Event
	sent *shm.Event
	mem  *shm.SharedMemory
	view protocol.View
}

func newSingleSlot(n names.ResourceNames, role Role, cfg Config) *singleSlot {
	return &singleSlot{
		names:      n,
		role:       role,
		ns:         cfg.namespace(),
		maxPayload: cfg.MaxPayload,
	}
}

func (b *singleSlot) Open() (err error) {
	if b.view != nil {
		return nil
	}

	var (
		mu         *shm.Mutex
		want, sent *shm.Event
		mem        *shm.SharedMemory
	)
	defer func() {
		if err != nil {
			closeAll(mem, sent, want, mu)
		}
	}()

	if b.role == RoleConsumer {
		if mu, err = b.ns.CreateMutex(b.names.Mutex); err != nil {
			return err
		}
		if want, err = b.ns.CreateEvent(b.names.WantEvent); err != nil {
			return err
		}
		if sent, err = b.ns.CreateEvent(b.names.SentEvent); err != nil {
			return err
		}
		if mem, err = b.ns.CreateSegment(b.names.Memory, protocol.HeaderSize+int(b.maxPayload)); err != nil {
			return err
		}
		// Existing objects keep their state. Drop signals left by an earlier consumer.
		if err = want.Reset(); err != nil {
			return err
		}
		if err = sent.Reset(); err != nil {
			return err
		}
	} else {
		if mu, err = b.ns.OpenMutex(b.names.Mutex); err != nil {
			return err
		}
		if want, err = b.ns.OpenEvent(b.names.WantEvent); err != nil {
			return err
		}
		if sent, err = b.ns.OpenEvent(b.names.SentEvent); err != nil {
			return err
		}
		if mem, err = b.ns.OpenSegment(b.names.Memory); err != nil {
			return err
		}
	}

	view := protocol.View(mem.Bytes())
	if !view.Valid() {
		return fmt.Errorf("%w: segment %s holds %d bytes", shm.ErrNotExist, b.names.Memory, len(view))
	}

	if b.role == RoleConsumer {
		// The consumer owns the header. Publish capacity under the mutex so a
		// producer never observes a half-written header.
		if err = mu.Lock(); err != nil {
			return err
		}
		if view.MaxSize() != b.maxPayload {
			view.SetMaxSize(b.maxPayload)
		}
		if err = mu.Unlock(); err != nil {
			return err
		}
	}

	b.mu, b.want, b.sent, b.mem, b.view = mu, want, sent, mem, view
	return nil
}

func (b *singleSlot) Send(f Frame) (Result, error) {
	if b.view == nil {
		return ResultNotReady, ErrNotReady
	}

	// Size checks come before any mutation of the shared buffer. A zero
	// capacity means the consumer has not sized the buffer yet.
	n := len(f.Payload)
	maxSize := b.view.MaxSize()
	if maxSize == 0 || uint64(n) > uint64(maxSize) || n > b.view.Capacity() {
		return ResultTooLarge, fmt.Errorf("%w: %d bytes exceeds capacity %d", ErrTooLarge, n, maxSize)
	}

	if err := b.mu.Lock(); err != nil {
		return ResultFailed, fmt.Errorf("%w: lock %s: %w", ErrUnknownFailure, b.names.Mutex, err)
	}
	b.view.PutMetadata(f.header())
	copy(b.view.Payload(), f.Payload)
	if err := b.mu.Unlock(); err != nil {
		return ResultFailed, fmt.Errorf("%w: unlock %s: %w", ErrUnknownFailure, b.names.Mutex, err)
	}

	if err := b.sent.Set(); err != nil {
		return ResultFailed, fmt.Errorf("%w: signal %s: %w", ErrUnknownFailure, b.names.SentEvent, err)
	}

	wanted, err := b.want.Wait(0)
	if err != nil {
		return ResultFailed, fmt.Errorf("%w: probe %s: %w", ErrUnknownFailure, b.names.WantEvent, err)
	}
	if !wanted {
		return ResultFrameSkipped, ErrFrameSkipped
	}
	return ResultSent, nil
}

// requestFrame signals that the consumer wants the next frame.
func (b *singleSlot) requestFrame() error {
	if b.view == nil {
		return ErrNotReady
	}
	return b.want.Set()
}

// waitFrame waits up to timeout for the producer to signal a new frame.
func (b *singleSlot) waitFrame(timeout time.Duration) (bool, error) {
	if b.view == nil {
		return false, ErrNotReady
	}
	return b.sent.Wait(timeout)
}

// readFrame copies the current header and payload out of the shared buffer.
func (b *singleSlot) readFrame(dst []byte) (Frame, error) {
	if b.view == nil {
		return Frame{}, ErrNotReady
	}
	if err := b.mu.Lock(); err != nil {
		return Frame{}, err
	}
	h := b.view.Header()
	n := h.PayloadLen()
	if limit := min(int(h.MaxSize), b.view.Capacity()); n > limit {
		n = limit
	}
	dst = append(dst[:0], b.view.Payload()[:n]...)
	if err := b.mu.Unlock(); err != nil {
		return Frame{}, err
	}
	return frameFromHeader(h, dst), nil
}

func (b *singleSlot) Close() error {
	if b.view == nil {
		return nil
	}
	err := closeAll(b.mem, b.sent, b.want, b.mu)
	b.mu, b.want, b.sent, b.mem, b.view = nil, nil, nil, nil, nil
	return err
}
