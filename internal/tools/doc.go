// Package tools provides host process helpers used by the command executor.
//
// Ownership boundary:
// - shell command spawning
// - process-group cleanup on cancellation and after exit
package tools
