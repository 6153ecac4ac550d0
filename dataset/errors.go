package dataset

import "errors"

// Error taxonomy. InvalidArgument and OutOfBounds are caller mistakes,
// fatal to the call and never retried. InconsistentState marks defensive
// invariant checks that should be unreachable with a well-behaved caller;
// they are still checked because estimation-driven fetches can mis-target
// a row boundary. Transport errors from the row source propagate to the
// Fetch caller unmodified.
var (
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrOutOfBounds        = errors.New("out of bounds")
	ErrInconsistentState  = errors.New("inconsistent coverage state")
	ErrColumnOutOfRange   = errors.New("column out of range")
	ErrOrderByUnsupported = errors.New("ordering is not supported")
	ErrNoData             = errors.New("no data row found")
	ErrFetchInProgress    = errors.New("a fetch is already in progress")
)
