//go:build !unix

package region

// Default returns the preferred Reserver for the platform
func Default() Reserver {
	return HeapReserver{}
}
