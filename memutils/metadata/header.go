package metadata

import (
	"encoding/binary"
	"math"
)

const (
	// HeaderSize is the size of the header at the front of every segment
	HeaderSize = 16
	// Alignment is the granularity of every segment size and offset
	Alignment = 8
	// MaxRegionSize is the largest block a FirstFitBlockMetadata can manage. Offsets are stored
	// as uint32 inside segment headers.
	MaxRegionSize = 0x7FFF0000

	// NoSegment terminates the free list
	NoSegment uint32 = math.MaxUint32
)

// SegmentState is the marker written into every segment header. Both values are nonzero so
// zeroed or foreign memory never reads as a valid header.
type SegmentState uint32

const (
	SegmentFree  SegmentState = 0x45455246
	SegmentInUse SegmentState = 0x44455355
)

var segmentStateMapping = map[SegmentState]string{
	SegmentFree:  "FREE",
	SegmentInUse: "USED",
}

func (s SegmentState) String() string {
	str, ok := segmentStateMapping[s]
	if !ok {
		return "CORRUPT"
	}
	return str
}

const (
	sizeField  = 0
	stateField = 4
	nextField  = 8
	prevField  = 12
)

// segmentHeader is a view of the HeaderSize bytes at the front of a segment
type segmentHeader []byte

func (h segmentHeader) Size() uint32 {
	return binary.LittleEndian.Uint32(h[sizeField:])
}

func (h segmentHeader) SetSize(size uint32) {
	binary.LittleEndian.PutUint32(h[sizeField:], size)
}

func (h segmentHeader) State() SegmentState {
	return SegmentState(binary.LittleEndian.Uint32(h[stateField:]))
}

func (h segmentHeader) SetState(state SegmentState) {
	binary.LittleEndian.PutUint32(h[stateField:], uint32(state))
}

func (h segmentHeader) NextFree() uint32 {
	return binary.LittleEndian.Uint32(h[nextField:])
}

func (h segmentHeader) SetNextFree(offset uint32) {
	binary.LittleEndian.PutUint32(h[nextField:], offset)
}

func (h segmentHeader) PrevFree() uint32 {
	return binary.LittleEndian.Uint32(h[prevField:])
}

func (h segmentHeader) SetPrevFree(offset uint32) {
	binary.LittleEndian.PutUint32(h[prevField:], offset)
}
