package metadata

// AllocationRequest is a type returned from BlockMetadata.CreateAllocationRequest which indicates where and how
// the metadata intends to allocate new memory. It can be committed with BlockMetadata.Alloc.
type AllocationRequest struct {
	// Offset is the offset of the chosen segment's header within the block
	Offset int
	// Size is the total segment size the request needs, header included and aligned
	Size int
	// PayloadSize is the number of bytes the consumer asked for
	PayloadSize int
	// SegmentSize is the size of the chosen free segment at the time of the search
	SegmentSize int
	// Hops is the zero-based position of the chosen segment in the free list scan
	Hops int
}

// WillSplit reports whether committing the request will carve a new free segment out of the
// chosen one. Leftovers too small to hold a header stay attached to the allocation.
func (r AllocationRequest) WillSplit() bool {
	return r.SegmentSize-r.Size >= HeaderSize
}
