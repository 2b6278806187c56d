package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidConfig    = errors.New("invalid configuration")
	ErrEmptyTrainingSet = errors.New("empty training set")
	ErrLengthMismatch   = errors.New("length mismatch")
	ErrUnknownLabel     = errors.New("unknown label")
	ErrDegenerateClass  = errors.New("degenerate class")
	ErrNotTrained       = errors.New("classifier not trained")
	ErrZeroProbability  = errors.New("zero word probability")
	ErrEmptyInput       = errors.New("empty input")
)
