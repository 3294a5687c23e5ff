package smalloc

import "unsafe"

// AllocResult describes a successful allocation
type AllocResult struct {
	// Pointer is the address of the first payload byte. It is valid until it is passed to Release.
	// A zero-size allocation at the very end of the arena points at the arena's end and must not
	// be dereferenced.
	Pointer unsafe.Pointer
	// Offset is the distance in bytes from the arena base to Pointer
	Offset int
	// Hops is the number of free segments the first-fit search passed over before choosing one.
	// It is purely diagnostic.
	Hops int
	// Payload views the allocated bytes. Its length is the requested size and its capacity covers
	// every usable byte of the segment, which may be slightly more.
	Payload []byte
}
