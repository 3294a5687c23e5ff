package memutils_test

import (
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/segalloc/memutils"
	"testing"
)

func TestCheckPow2(t *testing.T) {
	for _, number := range []int{1, 2, 8, 4096, 1 << 20} {
		require.NoError(t, memutils.CheckPow2(number, "number"))
	}

	for _, number := range []int{0, 3, 12, 4095, -4} {
		err := memutils.CheckPow2(number, "number")
		require.True(t, errors.Is(err, memutils.PowerOfTwoError))
	}

	require.NoError(t, memutils.CheckPow2(uint32(16), "alignment"))
}

func TestAlign(t *testing.T) {
	require.Equal(t, 0, memutils.AlignUp(0, 8))
	require.Equal(t, 8, memutils.AlignUp(1, 8))
	require.Equal(t, 120, memutils.AlignUp(116, 8))
	require.Equal(t, 4096, memutils.AlignUp(4096, 4096))
	require.Equal(t, 8192, memutils.AlignUp(4097, 4096))

	require.Equal(t, 0, memutils.AlignDown(7, 8))
	require.Equal(t, 112, memutils.AlignDown(116, 8))
	require.Equal(t, 0x7FFF0000, memutils.AlignDown(0x7FFF0000, 4096))
	require.Equal(t, 0x7FFF0000, memutils.AlignDown(0x7FFF0000, 65536))
}

func TestDetailedStatistics(t *testing.T) {
	var stats memutils.DetailedStatistics
	stats.Clear()

	stats.AddAllocation(120, 100)
	stats.AddAllocation(16, 0)
	stats.AddFreeSegment(56)
	stats.AddFreeSegment(3904)

	require.Equal(t, memutils.DetailedStatistics{
		Statistics: memutils.Statistics{
			SegmentCount:    4,
			AllocationCount: 2,
			AllocationBytes: 136,
		},
		FreeSegmentCount:   2,
		FreeBytes:          3960,
		RequestedBytes:     100,
		AllocationSizeMin:  16,
		AllocationSizeMax:  120,
		FreeSegmentSizeMin: 56,
		FreeSegmentSizeMax: 3904,
	}, stats)
}
