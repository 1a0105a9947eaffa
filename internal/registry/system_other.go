//go:build !windows

package registry

// Default returns the registry consumers register with on this platform.
func Default() Registry {
	return File{Path: DefaultFilePath()}
}
