package shmcam

import (
	"errors"

	"gosuda.org/shmcam/internal/shm"
)

// Backend is the shared memory transport behind a Channel.
type Backend interface {
	// Open acquires the named objects. Calling Open on an open backend is a no-op.
	Open() error
	// Send delivers one frame.
	Send(f Frame) (Result, error)
	// Close releases every object held. Closing a closed backend is a no-op.
	Close() error
}

// namespace resolves the object namespace of cfg, filling in platform defaults.
func (cfg Config) namespace() shm.Namespace {
	ns := shm.DefaultNamespace()
	if cfg.Dir != "" {
		ns.Dir = cfg.Dir
	}
	if cfg.Prefix != "" {
		ns.Prefix = cfg.Prefix
	}
	return ns
}

type closer interface {
	Close() error
}

// closeAll closes every non-nil object and joins the errors.
func closeAll(objs ...closer) error {
	var errs []error
	for _, o := range objs {
		if o == nil {
			continue
		}
		if err := o.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
