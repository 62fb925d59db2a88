// Package diag provides single-shot diagnostic reporting for solver sessions.
//
// A [Policy] prints an error or a warning at most once per condition class
// and then stays silent for the rest of its lifetime. The flags it leaves
// behind can be inspected afterwards:
//
//   - [Policy.SuppressErr]: the error message has been printed
//   - [Policy.SuppressWrn]: the warning in a given slot has been printed
//
// There is no reset. A new session needs a new Policy.
//
// # Thread Safety
//
// Policy is NOT thread-safe. Concurrent solves must each own a Policy,
// usually by owning a separate config.Properties.
package diag
