package region

import (
	"github.com/cockroachdb/errors"
	"os"
)

// tailPadding keeps the address one past the end of a heap region inside the same Go allocation, so
// a zero-size allocation at the very end of an arena is still a valid pointer
const tailPadding = 8

// HeapReserver reserves regions from the Go heap. It is available on every platform and is used where
// anonymous mappings are not. Regions must not be used after Release.
type HeapReserver struct {
	// Page overrides the page size reported by PageSize when nonzero
	Page int
}

var _ Reserver = HeapReserver{}

func (r HeapReserver) PageSize() int {
	if r.Page != 0 {
		return r.Page
	}
	return os.Getpagesize()
}

func (r HeapReserver) Reserve(size int) ([]byte, error) {
	if err := checkReservation(size, r.PageSize()); err != nil {
		return nil, err
	}

	return make([]byte, size, size+tailPadding), nil
}

func (r HeapReserver) Release(mem []byte) error {
	if mem == nil {
		return errors.New("region: release of a nil region")
	}
	return nil
}

func checkReservation(size, pageSize int) error {
	if size <= 0 {
		return errors.Newf("region: cannot reserve %d bytes", size)
	}
	if size%pageSize != 0 {
		return errors.Newf("region: size %d is not a multiple of the page size %d", size, pageSize)
	}
	return nil
}
