package core

import (
	"github.com/cockroachdb/errors"
)

var (
	// Sources could not be merged into an array. Recoverable, the asset ends up with zero slices.
	ErrIncompatibleSources = errors.New("source textures are incompatible")
	// More sources than an array can hold.
	ErrTooManySlices = errors.New("too many texture array slices")
	// Requested first resident mip outside the generated mip range. Programming error.
	ErrInvalidMipBias = errors.New("invalid mip bias")
	// The active platform cannot create the resource. Recoverable.
	ErrUnsupportedOnPlatform = errors.New("unsupported on platform")
	// The asset has no cooked mips. Recoverable.
	ErrNoMips = errors.New("texture contains no mip levels")
	ErrRenderThreadStopped = errors.New("render thread stopped")
	ErrResourceState       = errors.New("invalid resource state transition")
	ErrInvalidArchive      = errors.New("invalid texture array archive")
	ErrUnknown             = errors.New("unknown")
)

// IsAssertionFailure reports whether err describes an internal inconsistency
// rather than bad user data.
func IsAssertionFailure(err error) bool {
	return errors.HasAssertionFailure(err)
}
