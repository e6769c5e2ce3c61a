package domain

import "errors"

var (
	// ErrSourceUnavailable marks transient network or remote-service failures.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrRateLimited marks upstream throttling; callers should back off.
	ErrRateLimited = errors.New("rate limited")
	// ErrMalformedResponse marks upstream payloads that could not be understood.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrStoreUnavailable marks local persistence failures.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrUnregistered is returned when no destination is configured.
	ErrUnregistered    = errors.New("destination not registered")
	ErrNotFound        = errors.New("not found")
	ErrAlreadyTracked  = errors.New("identity already tracked")
	ErrInvalidArgument = errors.New("invalid argument")
)

// IsTransient reports whether err is worth retrying on the next cycle.
func IsTransient(err error) bool {
	return errors.Is(err, ErrSourceUnavailable) ||
		errors.Is(err, ErrRateLimited) ||
		errors.Is(err, ErrMalformedResponse)
}
