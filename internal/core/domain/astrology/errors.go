package astrology

import "errors"

// Error kinds. Callers classify with errors.Is; adapters wrap with %w.
var (
	ErrValidation          = errors.New("validation failed")
	ErrUpstreamAuth        = errors.New("upstream authentication failed")
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	ErrUpstreamMalformed   = errors.New("upstream returned a malformed response")
	ErrUpstreamRejected    = errors.New("upstream rejected the request")
	ErrCacheIO             = errors.New("cache io failure")
)

// ValidationError carries a client-facing message and matches ErrValidation.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

var (
	ErrMissingBirthDetails    = &ValidationError{Message: "Missing birth details"}
	ErrMissingExplanationData = &ValidationError{Message: "Missing explanation data"}
)
