//go:build unix

package region

import (
	"github.com/cockroachdb/errors"
	"golang.org/x/sys/unix"
)

// MmapReserver reserves regions as private anonymous mappings. The kernel zero-fills them and they
// live outside the Go heap, so their addresses are stable.
type MmapReserver struct{}

var _ Reserver = MmapReserver{}

// Default returns the preferred Reserver for the platform
func Default() Reserver {
	return MmapReserver{}
}

func (MmapReserver) PageSize() int {
	return unix.Getpagesize()
}

func (r MmapReserver) Reserve(size int) ([]byte, error) {
	if err := checkReservation(size, r.PageSize()); err != nil {
		return nil, err
	}

	mem, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANON)
	if err != nil {
		return nil, errors.Wrapf(err, "region: failed to map %d bytes", size)
	}
	return mem, nil
}

func (MmapReserver) Release(mem []byte) error {
	err := unix.Munmap(mem)
	if err != nil {
		return errors.Wrap(err, "region: failed to unmap region")
	}
	return nil
}
