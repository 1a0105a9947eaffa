package names

import (
	"errors"
	"fmt"
)

// Base names of the named OS objects that make up one channel.
const (
	MutexBase     = "UnityCapture_Mutx"
	WantEventBase = "UnityCapture_Want"
	SentEventBase = "UnityCapture_Sent"
	MemoryBase    = "UnityCapture_Data"
)

// Supported channel ids are [MinID, MaxID). Consumers only understand a
// single decimal digit appended to the base names.
const (
	MinID = 0
	MaxID = 10
)

// ErrNotSupported is returned for channel ids outside the supported range.
var ErrNotSupported = errors.New("shmcam: channel id not supported")

// ResourceNames holds the names of the named OS objects bound to one channel.
type ResourceNames struct {
	Mutex     string
	WantEvent string
	SentEvent string
	Memory    string
}

// Derive returns the resource names for channel id.
// Id 0 uses the base names, ids 1-9 append the id as a single digit.
func Derive(id int) (ResourceNames, error) {
	if id < MinID || id >= MaxID {
		return ResourceNames{}, fmt.Errorf("%w: %d (supported range [%d, %d))", ErrNotSupported, id, MinID, MaxID)
	}

	suffix := ""
	if id != 0 {
		suffix = fmt.Sprintf("%d", id)
	}

	return ResourceNames{
		Mutex:     MutexBase + suffix,
		WantEvent: WantEventBase + suffix,
		SentEvent: SentEventBase + suffix,
		Memory:    MemoryBase + suffix,
	}, nil
}

// Supported reports whether id can be mapped to resource names.
func Supported(id int) bool {
	return id >= MinID && id < MaxID
}
