//go:build unix

package region_test

import (
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/segalloc/region"
	"testing"
)

func TestMmapReserve(t *testing.T) {
	reserver := region.MmapReserver{}
	pageSize := reserver.PageSize()
	require.Greater(t, pageSize, 0)

	mem, err := reserver.Reserve(pageSize * 2)
	require.NoError(t, err)
	require.Len(t, mem, pageSize*2)

	for _, b := range mem {
		require.Zero(t, b)
	}

	mem[0] = 1
	mem[len(mem)-1] = 2

	require.NoError(t, reserver.Release(mem))
}

func TestMmapReserveRejectsPartialPages(t *testing.T) {
	reserver := region.MmapReserver{}

	_, err := reserver.Reserve(reserver.PageSize() + 1)
	require.Error(t, err)

	_, err = reserver.Reserve(0)
	require.Error(t, err)
}

func TestDefaultIsMmap(t *testing.T) {
	require.IsType(t, region.MmapReserver{}, region.Default())
}
