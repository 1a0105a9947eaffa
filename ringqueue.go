package shmcam

import (
	"errors"
	"fmt"
	"time"

	"gosuda.org/shmcam/internal/ring"
	"gosuda.org/shmcam/internal/shm"
)

// ringQueue lays out a triple-slot ring segment. The producer creates the
// segment and writes the layout; frame delivery over it is not implemented.
type ringQueue struct {
	name     string
	role     Role
	ns       shm.Namespace
	width    uint32
	height   uint32
	interval time.Duration

	mem   *shm.SharedMemory
	queue *ring.Queue
}

func newRingQueue(role Role, cfg Config) *ringQueue {
	return &ringQueue{
		name:     cfg.RingName,
		role:     role,
		ns:       cfg.namespace(),
		width:    cfg.RingWidth,
		height:   cfg.RingHeight,
		interval: cfg.RingInterval,
	}
}

func (b *ringQueue) Open() (err error) {
	if b.queue != nil {
		return nil
	}

	var mem *shm.SharedMemory
	defer func() {
		if err != nil {
			mem.Close()
		}
	}()

	var q *ring.Queue
	if b.role == RoleProducer {
		var l ring.Layout
		if l, err = ring.Compute(b.width, b.height); err != nil {
			return err
		}
		mem, err = b.ns.CreateNewSegment(b.name, int(l.Size))
		if errors.Is(err, shm.ErrExist) {
			return fmt.Errorf("%w: %s", ErrAlreadyExists, b.name)
		}
		if err != nil {
			return err
		}
		// Interval is advertised in 100ns units.
		if q, err = ring.Init(mem.Bytes(), l, uint64(b.interval/100)); err != nil {
			return err
		}
	} else {
		if mem, err = b.ns.OpenSegment(b.name); err != nil {
			return err
		}
		q, err = ring.Attach(mem.Bytes())
		if errors.Is(err, ring.ErrInvalidSize) {
			// Sized by the producer but no layout written yet.
			return fmt.Errorf("%w: %s has no layout: %w", shm.ErrNotExist, b.name, err)
		}
		if err != nil {
			return err
		}
	}

	b.mem, b.queue = mem, q
	return nil
}

func (b *ringQueue) Send(Frame) (Result, error) {
	if b.queue == nil {
		return ResultNotReady, ErrNotReady
	}
	return ResultFailed, fmt.Errorf("%w: frame delivery over %s", ErrNotSupported, b.name)
}

// layout returns the layout of the open segment.
func (b *ringQueue) layout() (ring.Layout, error) {
	if b.queue == nil {
		return ring.Layout{}, ErrNotReady
	}
	return b.queue.Layout(), nil
}

func (b *ringQueue) Close() error {
	if b.queue == nil {
		return nil
	}
	if b.role == RoleProducer {
		b.queue.SetState(ring.StateStopping)
	}
	err := b.mem.Close()
	b.mem, b.queue = nil, nil
	return err
}
