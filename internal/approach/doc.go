// Package approach drives one stationary solve of a transport kernel.
//
// Kernel assembly is supplied by the caller through [Kernel]. The package
// checks the session configuration, picks the solution strategy from it and
// routes every failure through the session's single-shot diagnostics:
//
//   - [Check]: configuration consistency for a state vector of a given size
//   - [Approach.Solve]: direct, least-squares or matrix-free solution
//   - [Registry]: matrix-free backends by solmethod name
//
// A failed solve is not returned as an error. Callers read
// [Approach.Success] instead, so repeated solves in a sweep print each
// failure class only once.
package approach
