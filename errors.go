package radix

import "errors"

// All failures reported by this package wrap one of these sentinel errors,
// so callers can classify them with errors.Is. A failed operation never
// leaves the tree partially mutated.
var (
	// ErrInvalidFormat means a textual or packed address could not be parsed.
	ErrInvalidFormat = errors.New("invalid address format")

	// ErrBitlenRange means a prefix length is outside the family's 0..width range.
	ErrBitlenRange = errors.New("prefix length out of range")

	// ErrFamilyMismatch means an IPv4 prefix was offered to an IPv6 tree or
	// vice versa. A tree's family is fixed by its first Add.
	ErrFamilyMismatch = errors.New("mixing IPv4 and IPv6 in a single tree is not supported")

	// ErrNotFound means an exact delete did not find the prefix.
	ErrNotFound = errors.New("no such prefix")

	// ErrConcurrentMutation means the tree was modified while an iteration
	// (or an eager enumeration) was in flight. The iteration is aborted and
	// must be restarted by the caller.
	ErrConcurrentMutation = errors.New("tree modified during iteration")
)
