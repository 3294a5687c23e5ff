package metadata

import (
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/vkngwrapper/segalloc/memutils"
)

// BlockMetadata represents a single large region of memory carved into segments. It manages
// the segments within the region, allowing allocations to be requested and freed, as well as
// enumerated and queried.
type BlockMetadata interface {
	// Init must be called before the BlockMetadata is used. The implementation takes ownership of
	// data, lays its bookkeeping out inside it, and treats the whole slice as a single free region.
	Init(data []byte) error
	// Size retrieves the size in bytes that the block was initialized with
	Size() int

	// Validate performs internal consistency checks on the metadata. These checks walk every segment
	// and should be treated as diagnostic. When the implementation is functioning correctly, it should
	// not be possible for this method to return an error.
	Validate() error
	// AllocationCount returns the number of live allocations. This number should generally be the
	// number of successful allocations minus the number of successful frees.
	AllocationCount() int
	// FreeRegionsCount returns the number of free segments. Adjacent free segments are always merged,
	// so this is also the number of unique regions of free memory in the block.
	FreeRegionsCount() int
	// SumFreeSize returns the number of free bytes in the block, headers of free segments included.
	SumFreeSize() int
	// IsEmpty will return true if this block has no live allocations
	IsEmpty() bool

	// VisitAllRegions will call the provided callback once for each segment, free or in use, in address
	// order. This walks the whole block and should generally only be used for diagnostics.
	VisitAllRegions(handleRegion func(offset int, size int, free bool) error) error
	// FreeSegments returns the free list in order, as a snapshot.
	FreeSegments() []Suballocation
	// AllocationPayloadSize returns the payload size originally requested for the live allocation whose
	// segment begins at offset.
	AllocationPayloadSize(offset int) (int, error)

	// AddDetailedStatistics sums this block's statistics into the provided memutils.DetailedStatistics.
	AddDetailedStatistics(stats *memutils.DetailedStatistics)
	// AddStatistics sums this block's running counters into the provided memutils.Statistics.
	AddStatistics(stats *memutils.Statistics)

	// Clear instantly frees all allocations
	Clear()
	// BlockJsonData populates a json object with information about this block
	BlockJsonData(json jwriter.ObjectState)

	// CreateAllocationRequest retrieves an AllocationRequest indicating which segment the implementation
	// would use for a payload of payloadSize bytes. It never modifies the block. The returned boolean is
	// false when no free segment is large enough. The request can be passed to Alloc to commit it.
	CreateAllocationRequest(payloadSize int) (bool, AllocationRequest, error)
	// Alloc commits an AllocationRequest. The implementation must return an error if the request is no
	// longer valid: the segment no longer exists, is not free, or is no longer large enough.
	Alloc(request AllocationRequest) error

	// Free returns the in-use segment beginning at offset to the free list, merging it with any free
	// neighbors.
	//
	// The implementation must return an error, and leave the block untouched, if offset does not begin
	// a live allocation.
	Free(offset int) error
}

// BlockMetadataBase is a simple struct that provides a few shared utilities for BlockMetadata
// implementations in the memutils module.
type BlockMetadataBase struct {
	size int
}

// Init prepares this structure for allocations and sizes the block in bytes based on the parameter size.
func (m *BlockMetadataBase) Init(size int) {
	m.size = size
}

// Size returns the size of the block in bytes
func (m *BlockMetadataBase) Size() int { return m.size }

// BlockJsonData populates a json object with information about this block
func (m *BlockMetadataBase) BlockJsonData(json jwriter.ObjectState, unusedBytes, allocationCount, unusedRangeCount int) {
	json.Name("TotalBytes").Int(m.Size())
	json.Name("UnusedBytes").Int(unusedBytes)
	json.Name("Allocations").Int(allocationCount)
	json.Name("UnusedRanges").Int(unusedRangeCount)
}
