package detection

import "errors"

var (
	// ErrInvalidInput marks a malformed raw detection: unknown class id or a
	// confidence outside [0, 1].
	ErrInvalidInput = errors.New("invalid input")

	// ErrDetectorUnavailable marks a detector that failed to initialize.
	ErrDetectorUnavailable = errors.New("detector unavailable")

	// ErrInferenceFailure marks a single failed inference call.
	ErrInferenceFailure = errors.New("inference failure")
)
