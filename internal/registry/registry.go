// Package registry maps virtual camera channel ids to the device names
// their consumers registered.
package registry

import (
	"fmt"
	"sync"
)

// guidOffset is the low byte of the CLSID of id 0. Low byte 0x11 is never
// used, so ids from 1 up map to 0x12 and above.
const guidOffset = 0x10

// Key returns the registry key under which channel id registers its friendly name.
func Key(id int) string {
	n := guidOffset + id
	if id != 0 {
		n++
	}
	return fmt.Sprintf(`CLSID\{5C2CD55C-92AD-4999-8666-912BD3E700%02X}`, n&0xff)
}

// Registry resolves a registry key to the device name stored under it.
type Registry interface {
	// Lookup returns the name and true, or false if the key is absent.
	Lookup(key string) (string, bool, error)
}

// Map is an in-memory Registry.
type Map struct {
	mu      sync.RWMutex
	entries map[string]string
}

// NewMap returns a Map holding entries.
func NewMap(entries map[string]string) *Map {
	m := &Map{entries: make(map[string]string, len(entries))}
	for k, v := range entries {
		m.entries[k] = v
	}
	return m
}

// Register stores name for channel id.
func (m *Map) Register(id int, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.entries == nil {
		m.entries = make(map[string]string)
	}
	m.entries[Key(id)] = name
}

// Lookup implements Registry.
func (m *Map) Lookup(key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	name, ok := m.entries[key]
	return name, ok, nil
}
