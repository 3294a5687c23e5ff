package smalloc

import (
	"fmt"
	"github.com/vkngwrapper/segalloc/internal/utils"
	"github.com/vkngwrapper/segalloc/region"
	"golang.org/x/exp/slog"
	"strings"
)

// CreateFlags indicate specific allocator behaviors to activate or deactivate
type CreateFlags int32

const (
	// AllocatorCreateSynchronized guards every operation on the allocator with a single allocator-wide
	// lock, so it may be shared between goroutines. Without it the consumer must guarantee that the
	// allocator is used from only one goroutine at a time.
	AllocatorCreateSynchronized CreateFlags = 1 << iota
)

var createFlagsMapping = map[CreateFlags]string{
	AllocatorCreateSynchronized: "AllocatorCreateSynchronized",
}

func (f CreateFlags) String() string {
	if f == 0 {
		return "None"
	}

	var names []string
	for bit := CreateFlags(1); bit > 0 && bit <= f; bit <<= 1 {
		if f&bit == 0 {
			continue
		}

		name, ok := createFlagsMapping[bit]
		if !ok {
			name = fmt.Sprintf("%#x", int32(bit))
		}
		names = append(names, name)
	}

	return strings.Join(names, "|")
}

// CreateOptions contains optional settings when creating an allocator
type CreateOptions struct {
	// Flags indicates specific allocator behaviors to activate or deactivate
	Flags CreateFlags
	// Reserver provides the region the allocator is carved from. region.Default() is used when
	// it is nil.
	Reserver region.Reserver
}

// New creates a new Allocator. The allocator does not own any memory until Init is called.
//
// logger - Receives debug output for every operation, and warnings for memory still allocated at
// Close. slog.Default() is used when it is nil.
//
// options - Optional parameters: it is valid to leave all the fields blank
func New(logger *slog.Logger, options CreateOptions) *Allocator {
	if logger == nil {
		logger = slog.Default()
	}

	reserver := options.Reserver
	if reserver == nil {
		reserver = region.Default()
	}

	return &Allocator{
		logger:      logger,
		createFlags: options.Flags,
		reserver:    reserver,
		mutex: utils.OptionalRWMutex{
			UseMutex: options.Flags&AllocatorCreateSynchronized != 0,
		},
	}
}
