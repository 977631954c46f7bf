// Package common defines the shared error taxonomy and sentinel errors used
// across FileVault layers. Callers should use errors.Is / errors.As to match
// these values.
package common

import (
	"errors"
	"fmt"
)

// Kind classifies an error for the transport layer. Every error crossing the
// service boundary carries exactly one Kind; everything unclassified is
// treated as KindInternal.
type Kind int

const (
	// KindValidation marks malformed client input. No state was mutated.
	KindValidation Kind = iota + 1
	// KindAuthentication marks a missing, invalid or expired token, or an
	// unknown identity. The response shape is identical for every sub-case.
	KindAuthentication
	// KindPolicy marks a request that is well-formed but not allowed:
	// quota exceeded, subscription expired, size over the per-upload ceiling.
	KindPolicy
	// KindNotFound marks a file that is absent, deleted, or owned by another
	// tenant. The three cases are indistinguishable to the caller.
	KindNotFound
	// KindUpstreamVerification marks a failed or timed-out object-store probe
	// during completion. Retryable by the client; no ledger mutation occurred.
	KindUpstreamVerification
	// KindConfiguration marks a server-side misconfiguration (missing secret,
	// unresolvable shard). Never exposes configuration values.
	KindConfiguration
	// KindInternal is the fallback for unexpected failures.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuthentication:
		return "authentication"
	case KindPolicy:
		return "policy"
	case KindNotFound:
		return "not_found"
	case KindUpstreamVerification:
		return "upstream_verification"
	case KindConfiguration:
		return "configuration"
	default:
		return "internal"
	}
}

// Error is a classified error. Message is safe to show to a client; the
// wrapped cause is for server-side logs only.
type Error struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// NewError builds a classified error with a client-safe message.
func NewError(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// WrapError classifies an underlying cause without leaking it to the client.
func WrapError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, cause: cause}
}

// KindOf extracts the Kind from err, or KindInternal if it is unclassified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Auth errors (invalid, malformed or expired token — deliberately one value).
	ErrInvalidToken = errors.New("invalid token")

	// Identity errors.
	ErrInvalidIdentity = errors.New("invalid identity")
)
