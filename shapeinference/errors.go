package shapeinference

import "github.com/pkg/errors"

// Errors returned by the inference methods wrap exactly one of the following sentinels, so callers can
// tell them apart with errors.Is.
//
// ErrMissingInput, ErrUnresolved and ErrIncompatible are expected outcomes for a graph: the caller may leave the
// output shape unknown and continue. ErrInvalidArgument means the request itself was malformed (a permutation of the
// wrong length, two -1 in a reshape target, an axis out of range): it signals a bug in the caller, not a property of
// the graph.
var (
	ErrMissingInput    = errors.New("input shape not found")
	ErrUnresolved      = errors.New("unresolved symbolic dimension")
	ErrIncompatible    = errors.New("incompatible shapes")
	ErrInvalidArgument = errors.New("invalid argument")
)

// IsInvalidArgument reports whether err is (or wraps) ErrInvalidArgument.
func IsInvalidArgument(err error) bool {
	return errors.Is(err, ErrInvalidArgument)
}
