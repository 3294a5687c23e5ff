package metadata

// Suballocation describes one segment of a block
type Suballocation struct {
	Offset int
	Size   int
	Free   bool
}
