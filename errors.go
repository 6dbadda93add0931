package ftp

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies what went wrong, independent of the Go error type used to
// carry it. Callers that need to branch on failure category should inspect
// Kind via errors.As rather than matching error strings.
type Kind int

const (
	// KindProtocol means the server answered with an unexpected status code
	// at some decision point. Response carries the server's own text.
	KindProtocol Kind = iota
	// KindTransport means the underlying connection failed: dial, TLS
	// handshake, read, write, or reset.
	KindTransport
	// KindPrecondition means the client issued an operation that requires
	// state it doesn't have (not connected, not authenticated).
	KindPrecondition
	// KindCancelled means the caller's context was cancelled while a
	// blocking primitive (semaphore acquire, line read) was in flight.
	KindCancelled
	// KindConfig means required configuration is missing or contradictory.
	KindConfig
)

func (k Kind) String() string {
	switch k {
	case KindProtocol:
		return "protocol"
	case KindTransport:
		return "transport"
	case KindPrecondition:
		return "precondition"
	case KindCancelled:
		return "cancelled"
	case KindConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Error is the error type this package uses for protocol, transport,
// precondition, cancellation and configuration failures. A reply that
// arrives with an acceptable code but an unparsable body (PWD, SIZE, MDTM,
// HASH, MLST) is reported as a plain error instead. Command/Response/Code
// are populated for KindProtocol; the other kinds generally leave them
// zero and rely on Cause for detail.
type Error struct {
	Kind Kind

	// Command is the FTP command that was sent (e.g., "STOR file.txt").
	Command string

	// Response is the raw response message from the server.
	Response string

	// Code is the numeric FTP response code (0 if not applicable).
	Code int

	// Cause is the underlying error, if any (I/O failure, TLS error, ...).
	Cause error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindProtocol:
		return fmt.Sprintf("ftp: %s failed: %s (code %d)", e.Command, e.Response, e.Code)
	case e.Cause != nil:
		return fmt.Sprintf("ftp: %s: %v", e.Kind, e.Cause)
	default:
		return fmt.Sprintf("ftp: %s", e.Kind)
	}
}

func (e *Error) Unwrap() error { return e.Cause }

// Is2xx returns true if the error code is in the 2xx range (success).
func (e *Error) Is2xx() bool { return e.Code >= 200 && e.Code < 300 }

// Is3xx returns true if the error code is in the 3xx range (intermediate).
func (e *Error) Is3xx() bool { return e.Code >= 300 && e.Code < 400 }

// Is4xx returns true if the error code is in the 4xx range (temporary failure).
func (e *Error) Is4xx() bool { return e.Code >= 400 && e.Code < 500 }

// Is5xx returns true if the error code is in the 5xx range (permanent failure).
func (e *Error) Is5xx() bool { return e.Code >= 500 && e.Code < 600 }

// IsTemporary reports whether the failure is worth retrying (4xx).
func (e *Error) IsTemporary() bool { return e.Is4xx() }

// IsPermanent reports whether the failure is not worth retrying (5xx).
func (e *Error) IsPermanent() bool { return e.Is5xx() }

func protocolErr(command string, resp *Response) *Error {
	return &Error{
		Kind:     KindProtocol,
		Command:  command,
		Response: resp.Message,
		Code:     resp.Code,
	}
}

func transportErr(op string, cause error) *Error {
	return &Error{
		Kind:  KindTransport,
		Cause: errors.Wrapf(cause, "ftp: %s", op),
	}
}

func preconditionErr(msg string) *Error {
	return &Error{Kind: KindPrecondition, Cause: errors.New(msg)}
}

func cancelledErr(cause error) *Error {
	return &Error{Kind: KindCancelled, Cause: cause}
}

func configErr(msg string) *Error {
	return &Error{Kind: KindConfig, Cause: errors.New(msg)}
}
