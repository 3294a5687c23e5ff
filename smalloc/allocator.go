package smalloc

import (
	"context"
	"github.com/cockroachdb/errors"
	"github.com/vkngwrapper/segalloc/internal/utils"
	"github.com/vkngwrapper/segalloc/memutils"
	"github.com/vkngwrapper/segalloc/memutils/metadata"
	"github.com/vkngwrapper/segalloc/region"
	"golang.org/x/exp/slog"
	"unsafe"
)

// Allocator carves variable-sized allocations out of a single region reserved at Init.
//
// The zero value is not usable: call New. Unless the allocator was created with
// AllocatorCreateSynchronized, it must not be used from more than one goroutine at a time.
type Allocator struct {
	logger      *slog.Logger
	createFlags CreateFlags
	reserver    region.Reserver
	mutex       utils.OptionalRWMutex

	data     []byte
	base     unsafe.Pointer
	metadata *metadata.FirstFitBlockMetadata
}

// Init reserves the arena and installs a single free segment spanning it. requestedSize is
// rounded up to a multiple of the reserver's page size, and a request of 0 reserves one page.
//
// Any failure leaves the allocator uninitialized and matches memutils.ErrInit. Calling Init on an
// allocator that has already been initialized, and not closed since, fails with
// memutils.ErrAlreadyInitialized.
func (a *Allocator) Init(requestedSize int) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("Allocator::Init", slog.Int("RequestedSize", requestedSize))

	if a.metadata != nil {
		return errors.Wrapf(memutils.ErrAlreadyInitialized, "arena of %d bytes is already reserved", len(a.data))
	}

	if requestedSize < 0 {
		return errors.Mark(errors.Wrapf(memutils.ErrInvalidSize, "requested arena size %d", requestedSize), memutils.ErrInit)
	}

	pageSize := a.reserver.PageSize()
	err := memutils.CheckPow2(pageSize, "page size")
	if err != nil {
		return errors.Mark(err, memutils.ErrInit)
	}

	limit := memutils.AlignDown(metadata.MaxRegionSize, uint(pageSize))
	if requestedSize > limit {
		return errors.Mark(errors.Newf("requested arena size %d exceeds the maximum of %d", requestedSize, limit), memutils.ErrInit)
	}

	regionSize := memutils.AlignUp(requestedSize, uint(pageSize))
	if regionSize == 0 {
		regionSize = pageSize
	}

	data, err := a.reserver.Reserve(regionSize)
	if err != nil {
		return errors.Mark(errors.Wrapf(err, "failed to reserve a %d byte arena", regionSize), memutils.ErrInit)
	}

	if len(data) != regionSize {
		err = errors.Newf("reserver returned %d bytes when %d were requested", len(data), regionSize)
		return errors.Mark(errors.CombineErrors(err, a.reserver.Release(data)), memutils.ErrInit)
	}

	blockMetadata := metadata.NewFirstFitBlockMetadata()
	err = blockMetadata.Init(data)
	if err != nil {
		return errors.Mark(errors.CombineErrors(err, a.reserver.Release(data)), memutils.ErrInit)
	}

	a.data = data
	a.base = unsafe.Pointer(&data[0])
	a.metadata = blockMetadata

	a.logger.Debug("  Allocator::Init reserved arena", slog.Int("Size", regionSize), slog.Int("PageSize", pageSize))
	return nil
}

func (a *Allocator) checkInitialized() error {
	if a.metadata == nil {
		return errors.WithStack(memutils.ErrNotInitialized)
	}

	return nil
}

// Size returns the number of bytes in the arena, or 0 if the allocator has not been initialized
func (a *Allocator) Size() int {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	if a.metadata == nil {
		return 0
	}

	return a.metadata.Size()
}

// Allocate hands out payloadSize bytes from the first free segment, in address order, that can
// hold them along with a segment header. If that segment is large enough to leave a usable
// remainder, the remainder goes back on the free list as a new free segment.
//
// If no single free segment is large enough, Allocate fails with memutils.ErrOutOfMemory and the
// arena is untouched. This happens both when the arena is exhausted and when the free bytes
// exist but are fragmented.
func (a *Allocator) Allocate(payloadSize int) (AllocResult, error) {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("Allocator::Allocate", slog.Int("PayloadSize", payloadSize))

	var result AllocResult
	err := a.checkInitialized()
	if err != nil {
		return result, err
	}

	success, request, err := a.metadata.CreateAllocationRequest(payloadSize)
	if err != nil {
		return result, err
	}

	if !success {
		a.logger.Debug("  Allocator::Allocate FAILED",
			slog.Int("FreeBytes", a.metadata.SumFreeSize()),
			slog.Int("FreeSegments", a.metadata.FreeRegionsCount()),
		)
		return result, errors.Wrapf(memutils.ErrOutOfMemory, "no free segment can hold %d bytes", payloadSize)
	}

	err = a.metadata.Alloc(request)
	if err != nil {
		return result, err
	}

	segmentEnd := request.Offset + request.SegmentSize
	if request.WillSplit() {
		segmentEnd = request.Offset + request.Size
	}

	payloadOffset := request.Offset + metadata.HeaderSize
	result.Pointer = unsafe.Add(a.base, payloadOffset)
	result.Offset = payloadOffset
	result.Hops = request.Hops
	result.Payload = a.data[payloadOffset : payloadOffset+payloadSize : segmentEnd]

	return result, nil
}

// Release returns an allocation to the arena and merges it with any free neighbor. ptr must be
// the Pointer of an AllocResult that has not been released yet. A nil ptr does nothing.
//
// A pointer that does not designate a live allocation fails with memutils.ErrInvalidPointer,
// or memutils.ErrDoubleFree when it designates one that was already released. The arena is
// untouched in both cases.
func (a *Allocator) Release(ptr unsafe.Pointer) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("Allocator::Release")

	err := a.checkInitialized()
	if err != nil {
		return err
	}

	if ptr == nil {
		return nil
	}

	base := uintptr(a.base)
	address := uintptr(ptr)
	if address < base+metadata.HeaderSize || address > base+uintptr(len(a.data)) {
		return errors.Wrapf(memutils.ErrInvalidPointer, "pointer %p lies outside the arena", ptr)
	}

	return a.release(int(address - base))
}

// ReleaseOffset behaves like Release for the allocation whose payload begins offset bytes into
// the arena, as reported by AllocResult.Offset.
func (a *Allocator) ReleaseOffset(offset int) error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("Allocator::ReleaseOffset", slog.Int("Offset", offset))

	err := a.checkInitialized()
	if err != nil {
		return err
	}

	if offset < metadata.HeaderSize || offset > len(a.data) {
		return errors.Wrapf(memutils.ErrInvalidPointer, "offset %d lies outside the arena", offset)
	}

	return a.release(offset)
}

func (a *Allocator) release(payloadOffset int) error {
	err := a.metadata.Free(payloadOffset - metadata.HeaderSize)
	if err != nil {
		a.logger.Debug("  Allocator::Release FAILED", slog.Int("Offset", payloadOffset), slog.Any("error", err))
		return err
	}

	return nil
}

// Reset releases every allocation at once, leaving a single free segment spanning the arena.
// Pointers handed out before Reset must not be used afterward.
func (a *Allocator) Reset() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("Allocator::Reset")

	err := a.checkInitialized()
	if err != nil {
		return err
	}

	a.metadata.Clear()
	return nil
}

// Close returns the arena to the reserver and leaves the allocator uninitialized, so Init may be
// called again. Allocations that were never released are logged as warnings. Calling Close on an
// uninitialized allocator does nothing.
func (a *Allocator) Close() error {
	a.mutex.Lock()
	defer a.mutex.Unlock()

	a.logger.Debug("Allocator::Close")

	if a.metadata == nil {
		return nil
	}

	if !a.metadata.IsEmpty() {
		err := a.metadata.VisitAllRegions(func(offset int, size int, free bool) error {
			if free {
				return nil
			}

			a.logUnreleasedMemory(offset, size)
			return nil
		})
		if err != nil {
			a.logger.LogAttrs(context.Background(),
				slog.LevelError,
				"[UNRELEASED MEMORY] error while iterating unreleased memory",
				slog.Any("error", err))
		}
	}

	data := a.data
	a.data = nil
	a.base = nil
	a.metadata = nil

	err := a.reserver.Release(data)
	if err != nil {
		a.logger.Error("error attempting to release arena", slog.Any("error", err))
		return errors.Wrap(err, "failed to release arena")
	}

	return nil
}

func (a *Allocator) logUnreleasedMemory(offset, size int) {
	attrs := []slog.Attr{
		slog.Int("offset", offset+metadata.HeaderSize),
		slog.Int("size", size),
	}

	payloadSize, err := a.metadata.AllocationPayloadSize(offset)
	if err == nil {
		attrs = append(attrs, slog.Int("payloadSize", payloadSize))
	}

	a.logger.LogAttrs(context.Background(), slog.LevelWarn, "[UNRELEASED MEMORY] unreleased allocation", attrs...)
}

// Validate walks every segment in the arena and the whole free list, and returns an error
// describing the first inconsistency it finds
func (a *Allocator) Validate() error {
	a.mutex.RLock()
	defer a.mutex.RUnlock()

	err := a.checkInitialized()
	if err != nil {
		return err
	}

	return a.metadata.Validate()
}
