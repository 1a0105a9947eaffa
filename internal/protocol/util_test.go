package protocol

import "unsafe"

// unsafeBytes views a word slice as bytes so the header lands on a 4-byte boundary.
func unsafeBytes(words []uint32) []byte {
	return unsafe.Slice((*byte)(unsafe.Pointer(&words[0])), len(words)*4)
}
