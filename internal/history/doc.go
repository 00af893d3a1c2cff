// Package history persists the supervision record: one row per child
// process incarnation (runs) and one row per oracle assessment
// (verdicts).
//
// The supervisor writes as it goes; the status API reads the same
// tables for its runs and verdicts endpoints. Storage is SQLite via
// the infrastructure/database package, so history survives restarts of
// coverseer itself. Classification is stored as plain text to keep
// this package free of oracle types.
package history
