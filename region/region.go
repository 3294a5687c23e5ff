// Package region reserves the single block of memory an arena is carved from.
package region

// Reserver hands out zero-initialized, read/write, page-aligned regions of memory whose base address
// never moves for the lifetime of the reservation.
type Reserver interface {
	// PageSize returns the granularity of reservations. Reserve must only be called with multiples of it.
	PageSize() int
	// Reserve returns a region of exactly size bytes, or an error if the region cannot be provided.
	// The address one past the last byte must remain a valid pointer: Go heap regions need spare
	// capacity behind them for this.
	Reserve(size int) ([]byte, error)
	// Release returns a region obtained from Reserve. It must be passed the same slice Reserve returned.
	Release(mem []byte) error
}
