// Package smalloc is a drop-in style allocator that serves variable-sized allocations out of one
// contiguous region reserved from the operating system.
//
// An Allocator is created with New and armed with Init, which reserves the region and installs a
// single free segment across it. Allocate hands out memory with a first-fit search over an
// address-ordered free list, splitting oversized segments, and Release returns memory, merging it
// with any free neighbor right away. Close gives the region back.
//
// The allocation policy is first-fit, not best-fit: the lowest-addressed segment that is large
// enough is used even when a tighter fit exists further on. This keeps allocation simple and its
// cost bounded by the length of the free list, but it accepts internal fragmentation.
//
// Allocators assume a single owner. Nothing is locked unless the allocator is created with
// AllocatorCreateSynchronized, in which case every operation takes one allocator-wide lock.
package smalloc
