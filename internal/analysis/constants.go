package analysis

// Constants for analysis operations
const (
	// SelectorWindow is how many instructions after a PUSH4 may hold the EQ
	// of a dispatcher comparison.
	SelectorWindow = 3

	// MinStringLength is the shortest printable push operand reported as a string.
	MinStringLength = 4

	// metadataLengthSize is the size of the big-endian length that ends a
	// compiler metadata trailer.
	metadataLengthSize = 2
)
