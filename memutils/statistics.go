package memutils

import "math"

// Statistics is a cheap summary of an arena, computed from running counters
type Statistics struct {
	SegmentCount    int
	AllocationCount int
	RegionBytes     int
	AllocationBytes int
}

func (s *Statistics) Clear() {
	s.SegmentCount = 0
	s.AllocationCount = 0
	s.RegionBytes = 0
	s.AllocationBytes = 0
}

// DetailedStatistics is computed by walking every segment in an arena. AllocationBytes and the
// allocation size bounds count whole segments, headers included; RequestedBytes counts only the
// payload bytes callers asked for, so the difference is the arena's internal fragmentation.
type DetailedStatistics struct {
	Statistics
	FreeSegmentCount   int
	FreeBytes          int
	RequestedBytes     int
	AllocationSizeMin  int
	AllocationSizeMax  int
	FreeSegmentSizeMin int
	FreeSegmentSizeMax int
}

func (s *DetailedStatistics) Clear() {
	s.Statistics.Clear()
	s.FreeSegmentCount = 0
	s.FreeBytes = 0
	s.RequestedBytes = 0
	s.AllocationSizeMin = math.MaxInt
	s.AllocationSizeMax = 0
	s.FreeSegmentSizeMin = math.MaxInt
	s.FreeSegmentSizeMax = 0
}

func (s *DetailedStatistics) AddFreeSegment(size int) {
	s.SegmentCount++
	s.FreeSegmentCount++
	s.FreeBytes += size

	if size < s.FreeSegmentSizeMin {
		s.FreeSegmentSizeMin = size
	}

	if size > s.FreeSegmentSizeMax {
		s.FreeSegmentSizeMax = size
	}
}

func (s *DetailedStatistics) AddAllocation(size, requested int) {
	s.SegmentCount++
	s.AllocationCount++
	s.AllocationBytes += size
	s.RequestedBytes += requested

	if size < s.AllocationSizeMin {
		s.AllocationSizeMin = size
	}

	if size > s.AllocationSizeMax {
		s.AllocationSizeMax = size
	}
}
