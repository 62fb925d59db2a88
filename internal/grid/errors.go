package grid

import "errors"

var (
	// ErrUnset indicates kpnt or dband has not been configured.
	ErrUnset = errors.New("grid: kpnt and dband must both be set")

	// ErrTooSmall indicates a grid with fewer than two points.
	ErrTooSmall = errors.New("grid: at least two points are required")

	// ErrTooLarge indicates a grid longer than MaxPoints.
	ErrTooLarge = errors.New("grid: too many points")

	// ErrBandwidth indicates a non-positive bandwidth.
	ErrBandwidth = errors.New("grid: dband must be positive")
)
