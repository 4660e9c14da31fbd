// Package ringerr defines the error taxonomy shared by ringfmt, region,
// and ring: configuration failures are fatal at construction time,
// precondition failures are bugs in the caller, and corruption failures
// mean the region must no longer be used.
package ringerr

import (
	"errors"
	"fmt"
)

// ErrConfiguration marks a fatal setup error: bad capacity, a header that
// does not match the caller's expectations, or a region too small to hold
// the header plus the requested capacity. Not recoverable by retry.
var ErrConfiguration = errors.New("shmring: configuration error")

// ErrPrecondition marks a violated caller contract: empty or oversize
// payload, or a non-power-of-two capacity passed to a helper that
// requires one. These are programming errors, not runtime conditions.
var ErrPrecondition = errors.New("shmring: precondition violated")

// ErrCorruption marks a runtime invariant violation observed in the
// region itself: used bytes out of range, a zero-length record header,
// or a record that spans the end of the ring without a wrap marker. The
// only safe response is to stop using the region.
var ErrCorruption = errors.New("shmring: region corrupt")

// Configuration wraps ErrConfiguration with detail, joinable via errors.Is.
func Configuration(format string, args ...any) error {
	return wrap(ErrConfiguration, format, args...)
}

// Precondition wraps ErrPrecondition with detail, joinable via errors.Is.
func Precondition(format string, args ...any) error {
	return wrap(ErrPrecondition, format, args...)
}

// Corruption wraps ErrCorruption with detail, joinable via errors.Is.
func Corruption(format string, args ...any) error {
	return wrap(ErrCorruption, format, args...)
}

func wrap(sentinel error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", sentinel, fmt.Sprintf(format, args...))
}
