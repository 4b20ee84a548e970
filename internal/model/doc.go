// Package model defines the domain types and value objects for the
// liftoff CLI.
//
// This package contains pure data structures with no external dependencies.
// All entities (Phase, PhaseResult, RunRecord, etc.) describe pipeline
// executions and their observable outcomes; durable copies live in the
// run-history database and are reconstructed from it.
//
// The package also defines exit codes (ExitCode) and the error types
// (CLIError, PhaseError) that carry exit codes for proper OS process
// exit handling.
package model
