package metadata

import (
	cerrors "github.com/cockroachdb/errors"
	"github.com/dolthub/swiss"
	"github.com/launchdarkly/go-jsonstream/v3/jwriter"
	"github.com/pkg/errors"
	"github.com/vkngwrapper/segalloc/memutils"
)

// FirstFitBlockMetadata is a BlockMetadata implementation that keeps its bookkeeping inside the
// block it manages. The block is tiled by segments, each a HeaderSize header followed by payload.
// Free segments are threaded onto a doubly linked free list in increasing address order, with
// block offsets standing in for pointers.
//
// Allocation is first-fit: the free list is scanned from the lowest address and the first segment
// large enough wins, even when a later segment would fit more tightly. This keeps the search simple
// and predictable, at the cost of internal fragmentation near the front of the block. Oversized
// segments are split when the leftover can hold a header of its own. Freed segments are merged
// with any free neighbor immediately, so two free segments are never adjacent.
//
// FirstFitBlockMetadata is not safe for concurrent use.
type FirstFitBlockMetadata struct {
	BlockMetadataBase

	data       []byte
	freeHead   uint32
	freeCount  int
	freeSize   int
	allocCount int

	// offset of every in-use segment -> payload size requested for it
	live *swiss.Map[uint32, int]
}

var _ BlockMetadata = &FirstFitBlockMetadata{}

// NewFirstFitBlockMetadata creates an empty FirstFitBlockMetadata. Init must be called before use.
func NewFirstFitBlockMetadata() *FirstFitBlockMetadata {
	return &FirstFitBlockMetadata{
		freeHead: NoSegment,
	}
}

func (m *FirstFitBlockMetadata) header(offset uint32) segmentHeader {
	return segmentHeader(m.data[offset : offset+HeaderSize])
}

// Init lays a single free segment across data. The block is left untouched if data cannot be managed.
func (m *FirstFitBlockMetadata) Init(data []byte) error {
	size := len(data)
	if size < HeaderSize {
		return errors.Errorf("a block of %d bytes cannot hold a segment header", size)
	}
	if size%Alignment != 0 {
		return errors.Errorf("block size %d is not a multiple of %d", size, Alignment)
	}
	if size > MaxRegionSize {
		return errors.Errorf("block size %d exceeds the maximum of %d", size, MaxRegionSize)
	}

	m.BlockMetadataBase.Init(size)
	m.data = data
	m.live = swiss.NewMap[uint32, int](42)
	m.reset()

	return nil
}

func (m *FirstFitBlockMetadata) reset() {
	m.freeHead = NoSegment
	m.freeCount = 0
	m.freeSize = 0
	m.allocCount = 0

	seg := m.header(0)
	seg.SetSize(uint32(m.size))
	seg.SetNextFree(NoSegment)
	seg.SetPrevFree(NoSegment)
	m.insertFreeSegment(0)
}

func (m *FirstFitBlockMetadata) Validate() error {
	if m.data == nil {
		return errors.New("metadata has not been initialized")
	}
	if len(m.data) != m.size {
		return errors.Errorf("the metadata was initialized with %d bytes but holds %d", m.size, len(m.data))
	}

	var allocCount, freeCount, freeSize int
	expectedFree := m.freeHead
	prevFree := NoSegment
	prevFreeEnd := -1

	// The free list is address ordered, so walking the segments in order must meet the free
	// list entries one at a time.
	for offset := 0; offset < m.size; {
		if offset+HeaderSize > m.size {
			return errors.Errorf("segment at offset %d runs past the end of the block", offset)
		}

		seg := m.header(uint32(offset))
		size := int(seg.Size())
		if size < HeaderSize || size%Alignment != 0 {
			return errors.Errorf("segment at offset %d has invalid size %d", offset, size)
		}
		if offset+size > m.size {
			return errors.Errorf("segment at offset %d with size %d runs past the end of the block", offset, size)
		}

		switch seg.State() {
		case SegmentFree:
			if uint32(offset) != expectedFree {
				return errors.Errorf("free segment at offset %d is not the next entry in the free list", offset)
			}
			if seg.PrevFree() != prevFree {
				return errors.Errorf("free segment at offset %d lists %d as its previous entry, but the previous entry is %d", offset, seg.PrevFree(), prevFree)
			}
			if prevFreeEnd == offset {
				return errors.Errorf("free segment at offset %d is adjacent to the free segment before it", offset)
			}
			if m.live.Has(uint32(offset)) {
				return errors.Errorf("free segment at offset %d is indexed as a live allocation", offset)
			}

			freeCount++
			freeSize += size
			prevFree = uint32(offset)
			prevFreeEnd = offset + size
			expectedFree = seg.NextFree()
		case SegmentInUse:
			payload, live := m.live.Get(uint32(offset))
			if !live {
				return errors.Errorf("in-use segment at offset %d is not indexed as a live allocation", offset)
			}
			if HeaderSize+payload > size {
				return errors.Errorf("in-use segment at offset %d has size %d, too small for its %d byte payload", offset, size, payload)
			}

			allocCount++
		default:
			return errors.Errorf("segment at offset %d has corrupt state %#x", offset, uint32(seg.State()))
		}

		offset += size
	}

	if expectedFree != NoSegment {
		return errors.Errorf("the free list continues to offset %d past the last free segment", expectedFree)
	}

	if freeCount != m.freeCount {
		return errors.Errorf("the free segment count of the metadata is %d, but there were %d free segments", m.freeCount, freeCount)
	}

	if freeSize != m.freeSize {
		return errors.Errorf("the free size of the metadata is %d, but the free segments added up to %d", m.freeSize, freeSize)
	}

	if allocCount != m.allocCount {
		return errors.Errorf("the allocation count of the metadata is %d, but there were %d in-use segments", m.allocCount, allocCount)
	}

	if allocCount != m.live.Count() {
		return errors.Errorf("there were %d in-use segments, but %d live allocations are indexed", allocCount, m.live.Count())
	}

	return nil
}

func (m *FirstFitBlockMetadata) AddDetailedStatistics(stats *memutils.DetailedStatistics) {
	stats.RegionBytes += m.size

	_ = m.VisitAllRegions(func(offset int, size int, free bool) error {
		if free {
			stats.AddFreeSegment(size)
		} else {
			payload, _ := m.live.Get(uint32(offset))
			stats.AddAllocation(size, payload)
		}
		return nil
	})
}

func (m *FirstFitBlockMetadata) AddStatistics(stats *memutils.Statistics) {
	stats.SegmentCount += m.allocCount + m.freeCount
	stats.AllocationCount += m.allocCount
	stats.RegionBytes += m.size
	stats.AllocationBytes += m.size - m.freeSize
}

func (m *FirstFitBlockMetadata) AllocationCount() int {
	return m.allocCount
}

func (m *FirstFitBlockMetadata) FreeRegionsCount() int {
	return m.freeCount
}

func (m *FirstFitBlockMetadata) SumFreeSize() int {
	return m.freeSize
}

func (m *FirstFitBlockMetadata) IsEmpty() bool {
	return m.allocCount == 0
}

// CreateAllocationRequest performs the first-fit search. Hops counts the free segments passed over
// before the chosen one, so a hit on the head of the free list has zero hops.
func (m *FirstFitBlockMetadata) CreateAllocationRequest(payloadSize int) (bool, AllocationRequest, error) {
	var request AllocationRequest

	if payloadSize < 0 {
		return false, request, cerrors.Wrapf(memutils.ErrInvalidSize, "payload size %d", payloadSize)
	}

	memutils.DebugValidate(m)

	// Also guards the size arithmetic below against overflow
	if payloadSize > m.size-HeaderSize {
		return false, request, nil
	}

	required := memutils.AlignUp(HeaderSize+payloadSize, Alignment)
	if required > m.freeSize {
		return false, request, nil
	}

	hops := 0
	for offset := m.freeHead; offset != NoSegment; offset = m.header(offset).NextFree() {
		size := int(m.header(offset).Size())
		if size >= required {
			request.Offset = int(offset)
			request.Size = required
			request.PayloadSize = payloadSize
			request.SegmentSize = size
			request.Hops = hops
			return true, request, nil
		}

		hops++
	}

	return false, request, nil
}

// isListed reports whether the free segment header at offset is linked into the free list. Headers
// left behind by merged segments still read as free but are always unlinked.
func (m *FirstFitBlockMetadata) isListed(offset uint32) bool {
	prev := m.header(offset).PrevFree()
	if prev == NoSegment {
		return m.freeHead == offset
	}

	if prev >= offset || int(prev)+HeaderSize > m.size {
		return false
	}

	return m.header(prev).NextFree() == offset
}

func (m *FirstFitBlockMetadata) Alloc(request AllocationRequest) error {
	if request.Offset < 0 || request.Offset%Alignment != 0 || request.Offset+HeaderSize > m.size {
		return errors.Errorf("allocation request offset %d is not a segment offset within the block", request.Offset)
	}
	if request.Size < HeaderSize || request.Size%Alignment != 0 {
		return errors.Errorf("allocation request size %d is not a valid segment size", request.Size)
	}
	if request.PayloadSize < 0 || HeaderSize+request.PayloadSize > request.Size {
		return errors.Errorf("allocation request payload size %d does not fit a segment of %d bytes", request.PayloadSize, request.Size)
	}

	offset := uint32(request.Offset)
	seg := m.header(offset)
	if seg.State() != SegmentFree || !m.isListed(offset) {
		return errors.Errorf("allocation request names the segment at offset %d, which is not free", request.Offset)
	}

	size := int(seg.Size())
	if size < request.Size {
		return errors.Errorf("allocation request needs %d bytes, but the segment at offset %d only has %d", request.Size, request.Offset, size)
	}

	m.removeFreeSegment(offset)

	if size-request.Size >= HeaderSize {
		remainderOffset := offset + uint32(request.Size)
		remainder := m.header(remainderOffset)
		remainder.SetSize(uint32(size - request.Size))
		remainder.SetNextFree(NoSegment)
		remainder.SetPrevFree(NoSegment)
		m.insertFreeSegment(remainderOffset)

		seg.SetSize(uint32(request.Size))
	}

	seg.SetState(SegmentInUse)
	m.allocCount++
	m.live.Put(offset, request.PayloadSize)

	memutils.DebugValidate(m)

	return nil
}

func (m *FirstFitBlockMetadata) Free(offset int) error {
	if offset < 0 || offset%Alignment != 0 || offset+HeaderSize > m.size {
		return cerrors.Wrapf(memutils.ErrInvalidPointer, "offset %d is misaligned or outside the block", offset)
	}

	segOffset := uint32(offset)
	seg := m.header(segOffset)

	if !m.live.Has(segOffset) {
		if seg.State() == SegmentFree && m.freeSegmentContaining(segOffset) != NoSegment {
			return cerrors.Wrapf(memutils.ErrDoubleFree, "segment at offset %d", offset)
		}

		return cerrors.Wrapf(memutils.ErrInvalidPointer, "no allocation begins at offset %d", offset)
	}

	size := int(seg.Size())
	if seg.State() != SegmentInUse || size < HeaderSize || size%Alignment != 0 || offset+size > m.size {
		return cerrors.Wrapf(memutils.ErrInvalidPointer, "segment header at offset %d is corrupt (state %s, size %d)", offset, seg.State(), size)
	}

	m.live.Delete(segOffset)
	m.allocCount--

	m.insertFreeSegment(segOffset)
	m.mergeAdjacent(segOffset)

	memutils.DebugValidate(m)

	return nil
}

// freeSegmentContaining returns the free segment whose bytes include offset, or NoSegment
func (m *FirstFitBlockMetadata) freeSegmentContaining(offset uint32) uint32 {
	for cur := m.freeHead; cur != NoSegment && cur <= offset; cur = m.header(cur).NextFree() {
		if offset < cur+m.header(cur).Size() {
			return cur
		}
	}

	return NoSegment
}

// insertFreeSegment marks the segment at offset free and links it into the free list in address order
func (m *FirstFitBlockMetadata) insertFreeSegment(offset uint32) {
	seg := m.header(offset)
	seg.SetState(SegmentFree)
	m.freeCount++
	m.freeSize += int(seg.Size())

	if m.freeHead == NoSegment || offset < m.freeHead {
		seg.SetPrevFree(NoSegment)
		seg.SetNextFree(m.freeHead)
		if m.freeHead != NoSegment {
			m.header(m.freeHead).SetPrevFree(offset)
		}
		m.freeHead = offset
		return
	}

	runner := m.freeHead
	next := m.header(runner).NextFree()
	for next != NoSegment && next < offset {
		runner = next
		next = m.header(runner).NextFree()
	}

	seg.SetNextFree(next)
	seg.SetPrevFree(runner)
	if next != NoSegment {
		m.header(next).SetPrevFree(offset)
	}
	m.header(runner).SetNextFree(offset)
}

// removeFreeSegment unlinks the segment at offset from the free list. Its state marker is left alone.
func (m *FirstFitBlockMetadata) removeFreeSegment(offset uint32) {
	seg := m.header(offset)
	prev := seg.PrevFree()
	next := seg.NextFree()

	if prev == NoSegment {
		m.freeHead = next
	} else {
		m.header(prev).SetNextFree(next)
	}

	if next != NoSegment {
		m.header(next).SetPrevFree(prev)
	}

	seg.SetNextFree(NoSegment)
	seg.SetPrevFree(NoSegment)
	m.freeCount--
	m.freeSize -= int(seg.Size())
}

// mergeAdjacent merges the listed free segment at offset with its free neighbors and returns
// the offset of the merged segment.
//
// The predecessor is found with a linear scan of the free list, so each merge is
// O(free list length).
func (m *FirstFitBlockMetadata) mergeAdjacent(offset uint32) uint32 {
	seg := m.header(offset)

	next := offset + seg.Size()
	if int(next) < m.size && m.header(next).State() == SegmentFree {
		nextSize := m.header(next).Size()
		m.removeFreeSegment(next)
		seg.SetSize(seg.Size() + nextSize)
		m.freeSize += int(nextSize)
	}

	prev := NoSegment
	for cur := m.freeHead; cur != NoSegment; cur = m.header(cur).NextFree() {
		if cur+m.header(cur).Size() == offset {
			prev = cur
			break
		}
	}

	if prev == NoSegment {
		return offset
	}

	m.removeFreeSegment(prev)
	m.removeFreeSegment(offset)

	prevSeg := m.header(prev)
	prevSeg.SetSize(prevSeg.Size() + seg.Size())
	m.insertFreeSegment(prev)

	return prev
}

func (m *FirstFitBlockMetadata) VisitAllRegions(handleRegion func(offset int, size int, free bool) error) error {
	for offset := 0; offset < m.size; {
		seg := m.header(uint32(offset))
		size := int(seg.Size())
		if size < HeaderSize {
			return errors.Errorf("segment at offset %d has invalid size %d", offset, size)
		}

		err := handleRegion(offset, size, seg.State() == SegmentFree)
		if err != nil {
			return err
		}

		offset += size
	}

	return nil
}

func (m *FirstFitBlockMetadata) FreeSegments() []Suballocation {
	segments := make([]Suballocation, 0, m.freeCount)
	for cur := m.freeHead; cur != NoSegment; cur = m.header(cur).NextFree() {
		segments = append(segments, Suballocation{
			Offset: int(cur),
			Size:   int(m.header(cur).Size()),
			Free:   true,
		})
	}

	return segments
}

func (m *FirstFitBlockMetadata) AllocationPayloadSize(offset int) (int, error) {
	if offset < 0 || offset+HeaderSize > m.size {
		return 0, cerrors.Wrapf(memutils.ErrInvalidPointer, "offset %d is outside the block", offset)
	}

	payload, live := m.live.Get(uint32(offset))
	if !live {
		return 0, cerrors.Wrapf(memutils.ErrInvalidPointer, "no allocation begins at offset %d", offset)
	}

	return payload, nil
}

func (m *FirstFitBlockMetadata) Clear() {
	if m.data == nil {
		return
	}

	m.live = swiss.NewMap[uint32, int](42)
	m.reset()
}

func (m *FirstFitBlockMetadata) BlockJsonData(json jwriter.ObjectState) {
	m.BlockMetadataBase.BlockJsonData(json, m.freeSize, m.allocCount, m.freeCount)
}
