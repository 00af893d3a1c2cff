// Package output provides the bounded capture buffer for supervised
// process output.
//
// The ring buffer holds the most recent lines emitted by the child on
// stdout and stderr. Readers take point-in-time snapshots for health
// assessment and shutdown dumps; writers append as lines arrive from
// the pipe readers. The buffer is reset at every restart so output from
// a previous run can never influence the judgment of the current one.
package output
