// Package model defines the domain types and value objects for kittynode.
//
// This package contains pure data structures with no external dependencies.
// Package manifests (Package, Container, Binding) are immutable values that
// the manifest registry builds fresh on every query; nothing here is cached
// or persisted by the lifecycle manager itself.
//
// The package also defines the structured error taxonomy (Error, ErrorKind,
// PartialStateError) shared by every layer, and the exit codes (ExitCode,
// CLIError) the command-line boundary translates those errors into.
package model
