package model

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failure so that boundary layers (CLI, front-ends)
// can react to it without parsing error strings.
type ErrorKind string

const (
	// KindNotFound indicates an unknown package (or container) name.
	KindNotFound ErrorKind = "not-found"

	// KindRuntimeUnavailable indicates the container daemon could not be
	// reached.
	KindRuntimeUnavailable ErrorKind = "runtime-unavailable"

	// KindOperationFailed indicates a runtime create/start/connect/remove
	// call failed.
	KindOperationFailed ErrorKind = "operation-failed"

	// KindFilesystem indicates a stat or remove failure on a bound host
	// path. An already-absent path is not an error.
	KindFilesystem ErrorKind = "filesystem"

	// KindInvalidConfig indicates a package configuration value was
	// rejected while building a manifest.
	KindInvalidConfig ErrorKind = "invalid-config"
)

// String returns the string representation of ErrorKind.
func (k ErrorKind) String() string {
	return string(k)
}

// Error is the structured error returned by every kittynode layer.
// It records which operation failed against which resource, so a single
// terminal error is enough to tell which step of a sequence broke.
type Error struct {
	// Kind classifies the failure.
	Kind ErrorKind

	// Op is the operation that failed (e.g. "create container").
	Op string

	// Resource is the name of the resource the operation targeted.
	Resource string

	// Err is the underlying error, if any.
	Err error
}

// Error formats as `<op> "<resource>": <cause>`, omitting empty parts.
func (e *Error) Error() string {
	var b strings.Builder
	switch {
	case e.Op != "" && e.Resource != "":
		fmt.Fprintf(&b, "%s %q", e.Op, e.Resource)
	case e.Op != "":
		b.WriteString(e.Op)
	case e.Resource != "":
		fmt.Fprintf(&b, "%q", e.Resource)
	default:
		b.WriteString(e.Kind.String())
	}
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is a kind sentinel matching e's kind.
// Only bare sentinels (no Op, Resource or Err) match by kind; any other
// *Error is compared by identity through the default errors.Is path.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || t.Op != "" || t.Resource != "" || t.Err != nil {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels for errors.Is.
var (
	ErrNotFound           = &Error{Kind: KindNotFound}
	ErrRuntimeUnavailable = &Error{Kind: KindRuntimeUnavailable}
	ErrOperationFailed    = &Error{Kind: KindOperationFailed}
	ErrFilesystem         = &Error{Kind: KindFilesystem}
	ErrInvalidConfig      = &Error{Kind: KindInvalidConfig}
)

// NewError creates an Error of the given kind.
func NewError(kind ErrorKind, op, resource string, err error) *Error {
	return &Error{Kind: kind, Op: op, Resource: resource, Err: err}
}

// NotFoundError reports an unknown resource of the given type
// (e.g. "package").
func NotFoundError(resourceType, name string) *Error {
	return &Error{
		Kind:     KindNotFound,
		Op:       "find " + resourceType,
		Resource: name,
		Err:      fmt.Errorf("%s %q not found", resourceType, name),
	}
}

// KindOf returns the kind of the first *Error in err's chain, or the empty
// kind when err carries no classification.
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PartialStateError wraps the fatal error of a multi-step install or
// delete that halted after some steps had already taken effect. The
// completed steps are not rolled back; Completed lists them so the caller
// can see what is left behind.
type PartialStateError struct {
	// Op is "install" or "delete".
	Op string

	// Package is the package name the operation targeted.
	Package string

	// Completed lists the steps applied before the failure, in order
	// (e.g. "network ethereum-network", "container reth-node").
	Completed []string

	// Err is the fatal error that halted the sequence.
	Err error
}

// Error satisfies the error interface.
func (e *PartialStateError) Error() string {
	return fmt.Sprintf("%s of package %q halted after %d step(s) [%s]: %v",
		e.Op, e.Package, len(e.Completed), strings.Join(e.Completed, ", "), e.Err)
}

// Unwrap returns the fatal error so kind checks see through the wrapper.
func (e *PartialStateError) Unwrap() error {
	return e.Err
}

// ExitCode defines standard CLI exit codes. These codes allow scripts to
// programmatically determine the outcome of a command.
type ExitCode int

const (
	// ExitSuccess indicates the command completed successfully.
	ExitSuccess ExitCode = 0

	// ExitGeneralError indicates an unspecified error occurred.
	ExitGeneralError ExitCode = 1

	// ExitPackageNotFound indicates the named package (or container)
	// does not exist.
	ExitPackageNotFound ExitCode = 2

	// ExitDockerNotRunning indicates the Docker daemon is not accessible.
	ExitDockerNotRunning ExitCode = 3

	// ExitOperationFailed indicates a runtime call failed.
	ExitOperationFailed ExitCode = 4

	// ExitFilesystemError indicates a bound host path could not be
	// inspected or removed.
	ExitFilesystemError ExitCode = 5

	// ExitInvalidConfig indicates a package configuration value was
	// rejected.
	ExitInvalidConfig ExitCode = 6

	// ExitUserCancelled indicates the user cancelled an interactive prompt.
	ExitUserCancelled ExitCode = 7
)

// ExitCodeFor maps an error to the exit code the CLI should return.
// CLIError carries its own code; classified errors map by kind.
func ExitCodeFor(err error) ExitCode {
	if err == nil {
		return ExitSuccess
	}

	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return cliErr.Code
	}

	switch KindOf(err) {
	case KindNotFound:
		return ExitPackageNotFound
	case KindRuntimeUnavailable:
		return ExitDockerNotRunning
	case KindOperationFailed:
		return ExitOperationFailed
	case KindFilesystem:
		return ExitFilesystemError
	case KindInvalidConfig:
		return ExitInvalidConfig
	default:
		return ExitGeneralError
	}
}

// CLIError is an error that carries an explicit exit code. It is used
// for conditions that originate at the CLI itself (bad arguments, a
// declined prompt) rather than in the lifecycle core.
type CLIError struct {
	// Code is the exit code to return to the OS.
	Code ExitCode

	// Message is the human-readable error description.
	Message string

	// Err is the underlying error, if any.
	Err error
}

// Error satisfies the error interface. It returns the human-readable
// error message, optionally including the underlying error.
func (e *CLIError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for use with errors.Is/errors.As.
func (e *CLIError) Unwrap() error {
	return e.Err
}

// NewCLIError creates a new CLIError with the given exit code and message.
func NewCLIError(code ExitCode, message string) *CLIError {
	return &CLIError{Code: code, Message: message}
}

// WrapCLIError creates a new CLIError that wraps an existing error.
func WrapCLIError(code ExitCode, message string, err error) *CLIError {
	return &CLIError{Code: code, Message: message, Err: err}
}
