package region_test

import (
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/segalloc/region"
	"os"
	"testing"
)

func TestHeapReserve(t *testing.T) {
	reserver := region.HeapReserver{Page: 4096}
	require.Equal(t, 4096, reserver.PageSize())

	mem, err := reserver.Reserve(8192)
	require.NoError(t, err)
	require.Len(t, mem, 8192)
	require.Greater(t, cap(mem), len(mem))
	require.NoError(t, reserver.Release(mem))

	_, err = reserver.Reserve(100)
	require.Error(t, err)
	_, err = reserver.Reserve(-4096)
	require.Error(t, err)
}

func TestHeapDefaultPageSize(t *testing.T) {
	require.Equal(t, os.Getpagesize(), region.HeapReserver{}.PageSize())
}
