// Copyright (c) 2024 santosr2
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

// Package sinderr defines the closed set of error kinds the engine surfaces
// to callers, and the exit-code mapping used by the CLI layer.
package sinderr

import "fmt"

// Kind is a closed enum of error categories used for telemetry and exit-code
// mapping. New kinds must be added here, never inferred from message text.
type Kind string

const (
	ManifestParse        Kind = "ManifestParse"
	ManifestSchema       Kind = "ManifestSchema"
	UnknownExtension     Kind = "UnknownExtension"
	UnknownDependency    Kind = "UnknownDependency"
	DependencyCycle      Kind = "DependencyCycle"
	ConflictingExtensions Kind = "ConflictingExtensions"
	DNSValidation        Kind = "DnsValidation"
	RateLimited          Kind = "RateLimited"
	AuthMissing          Kind = "AuthMissing"
	AuthInvalid          Kind = "AuthInvalid"
	InstallFailed        Kind = "InstallFailed"
	InstallTimeout       Kind = "InstallTimeout"
	ChecksumMismatch     Kind = "ChecksumMismatch"
	PathEscape           Kind = "PathEscape"
	CommandFailed        Kind = "CommandFailed"
	ValidationFailed     Kind = "ValidationFailed"
	CollisionUnresolved  Kind = "CollisionUnresolved"
	MergeFailed          Kind = "MergeFailed"
	StateCorrupt         Kind = "StateCorrupt"
)

// Error wraps an underlying error with a closed Kind and a message. The
// message is not sanitised: many call sites pass file paths, often absolute
// ones, as the message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind around an underlying error.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// As extracts a *Error from err, if any, via errors.As semantics without
// importing errors here (callers already do `errors.As(err, &sinderr.Error{})`
// style checks; this helper covers the common single-level case).
func As(err error) (*Error, bool) {
	se, ok := err.(*Error)
	return se, ok
}

// ExitCode maps an error kind to the CLI exit codes declared by the external
// interface: 0 success, 1 generic failure, 2 usage error, 3 dependency/
// conflict error, 4 DNS/network error, 5 auth error, 6 rate-limited.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	se, ok := As(err)
	if !ok {
		return 1
	}
	switch se.Kind {
	case UnknownExtension, UnknownDependency, DependencyCycle, ConflictingExtensions:
		return 3
	case DNSValidation:
		return 4
	case AuthMissing, AuthInvalid:
		return 5
	case RateLimited:
		return 6
	default:
		return 1
	}
}
