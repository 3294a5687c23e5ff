package smalloc_test

import (
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/require"
	"github.com/vkngwrapper/segalloc/region"
	"github.com/vkngwrapper/segalloc/smalloc"
	"math/rand"
	"sync"
	"testing"
)

func TestCreateFlagsString(t *testing.T) {
	require.Equal(t, "None", smalloc.CreateFlags(0).String())
	require.Equal(t, "AllocatorCreateSynchronized", smalloc.AllocatorCreateSynchronized.String())
	require.Equal(t, "AllocatorCreateSynchronized|0x4", (smalloc.AllocatorCreateSynchronized | 4).String())
}

func TestSynchronizedAllocator(t *testing.T) {
	allocator := smalloc.New(discardLogger(), smalloc.CreateOptions{
		Flags:    smalloc.AllocatorCreateSynchronized,
		Reserver: region.HeapReserver{Page: 4096},
	})
	require.NoError(t, allocator.Init(1<<20))
	defer func() {
		require.NoError(t, allocator.Close())
	}()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)

	for worker := 0; worker < workers; worker++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			random := rand.New(rand.NewSource(seed))

			var held []smalloc.AllocResult
			for step := 0; step < 500; step++ {
				if len(held) > 0 && random.Intn(2) == 0 {
					index := random.Intn(len(held))
					err := allocator.Release(held[index].Pointer)
					if err != nil {
						errs <- err
						return
					}
					held = append(held[:index], held[index+1:]...)
					continue
				}

				result, err := allocator.Allocate(random.Intn(256))
				if err != nil {
					errs <- err
					return
				}

				for i := range result.Payload {
					result.Payload[i] = byte(seed)
				}
				held = append(held, result)
			}

			for _, result := range held {
				for _, b := range result.Payload {
					if b != byte(seed) {
						errs <- errors.New("allocation overwritten by another goroutine")
						return
					}
				}
				err := allocator.Release(result.Pointer)
				if err != nil {
					errs <- err
					return
				}
			}
		}(int64(worker + 1))
	}

	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	require.NoError(t, allocator.Validate())
	stats := statistics(t, allocator)
	require.Equal(t, 0, stats.AllocationCount)
	require.Equal(t, 1, stats.FreeSegmentCount)
}
