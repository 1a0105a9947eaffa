//go:build windows

package registry

import (
	"errors"

	"golang.org/x/sys/windows/registry"
)

// System reads device names from HKEY_CLASSES_ROOT.
type System struct{}

// Default returns the registry consumers register with on this platform.
func Default() Registry {
	return System{}
}

// Lookup implements Registry by reading the default value of the key.
func (System) Lookup(key string) (string, bool, error) {
	k, err := registry.OpenKey(registry.CLASSES_ROOT, key, registry.QUERY_VALUE)
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	defer k.Close()

	name, _, err := k.GetStringValue("")
	if err != nil {
		if errors.Is(err, registry.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	return name, true, nil
}
