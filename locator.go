package shmcam

import (
	"fmt"

	"gosuda.org/shmcam/internal/registry"
)

// MaxChannelIDs bounds the ids a Locator scans.
const MaxChannelIDs = 74

// Registry resolves registry keys to device names.
type Registry = registry.Registry

// RegistryKey returns the key under which channel id registers its device name.
func RegistryKey(id int) string {
	return registry.Key(id)
}

// DefaultRegistry returns the registry of the host: the system registry on
// Windows, the device file under the user's home directory elsewhere.
func DefaultRegistry() Registry {
	return registry.Default()
}

// Locator finds the channel id of a named device.
type Locator struct {
	reg Registry
}

// NewLocator returns a Locator backed by reg. A nil reg selects DefaultRegistry.
func NewLocator(reg Registry) *Locator {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Locator{reg: reg}
}

// Find returns the lowest channel id whose registered name equals device.
// Keys that cannot be read are treated as absent.
func (l *Locator) Find(device string) (int, error) {
	for id := 0; id < MaxChannelIDs; id++ {
		key := registry.Key(id)
		name, ok, err := l.reg.Lookup(key)
		if err != nil {
			log.WithError(err).WithField("key", key).Debug("registry lookup failed")
			continue
		}
		if ok && name == device {
			return id, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrNotFound, device)
}
