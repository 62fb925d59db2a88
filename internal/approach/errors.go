package approach

import (
	"errors"
	"fmt"
)

var (
	// ErrInconsistent indicates a combination of settings the solver cannot honour.
	ErrInconsistent = errors.New("approach: inconsistent configuration")

	// ErrSingular indicates the kernel matrix could not be solved.
	ErrSingular = errors.New("approach: kernel matrix singular or ill-conditioned")

	// ErrNoBackend indicates no matrix-free backend is registered for the solmethod.
	ErrNoBackend = errors.New("approach: no matrix-free backend registered")

	// ErrDimension indicates the kernel does not match its declared dimension.
	ErrDimension = errors.New("approach: dimension mismatch")

	// ErrNotConverged indicates a matrix-free iteration stopped short of the tolerance.
	ErrNotConverged = errors.New("approach: matrix-free iteration did not converge")
)

// InconsistencyError names the setting that failed the consistency check.
type InconsistencyError struct {
	Field  string
	Reason string
}

func (e *InconsistencyError) Error() string {
	return fmt.Sprintf("%v: %s: %s", ErrInconsistent, e.Field, e.Reason)
}

func (e *InconsistencyError) Unwrap() error {
	return ErrInconsistent
}
