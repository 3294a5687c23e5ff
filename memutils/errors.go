package memutils

import "github.com/pkg/errors"

// PowerOfTwoError is the error returned from CheckPow2 or other methods if the number being tested is not a power of two
var PowerOfTwoError error = errors.New("number must be a power of two")

var (
	// ErrInit is matched by every error returned from a failed arena initialization, including
	// failures of the underlying region reservation
	ErrInit = errors.New("arena initialization failed")
	// ErrAlreadyInitialized is returned when an arena is initialized a second time without being closed
	ErrAlreadyInitialized = errors.New("arena is already initialized")
	// ErrNotInitialized is returned when an operation is attempted before a successful initialization
	ErrNotInitialized = errors.New("arena is not initialized")
	// ErrOutOfMemory is returned when no free segment is large enough for a request. It covers both
	// true exhaustion and fragmentation.
	ErrOutOfMemory = errors.New("no free segment large enough")
	// ErrInvalidPointer is returned when a release names memory that does not begin an in-use segment
	ErrInvalidPointer = errors.New("pointer does not refer to a live allocation")
	// ErrDoubleFree is returned when a release names a segment that is already free
	ErrDoubleFree = errors.New("segment is already free")
	// ErrInvalidSize is returned for negative sizes
	ErrInvalidSize = errors.New("size must not be negative")
)
