// Package apperrors defines the error taxonomy the search core surfaces to
// its callers: a small, fixed set of kinds rather than per-call sentinel
// values, so orchestrator code can branch on Kind instead of string
// matching.
package apperrors

import "fmt"

// Kind classifies an error into the fixed taxonomy every component
// returns: callers branch on Kind instead of matching error strings.
type Kind int

const (
	// KindUnknown is never returned; it is the zero value.
	KindUnknown Kind = iota
	// KindTenant covers unknown tenant, duplicate initialize, at-quota tenant.
	KindTenant
	// KindValidation covers shape mismatches: wrong hash length,
	// out-of-range bits, unsupported HE parameters, malformed base64.
	KindValidation
	// KindContext covers HE context creation, bad ciphertext, noise
	// exhaustion.
	KindContext
	// KindStore covers ciphertext store quota and id-collision failures.
	KindStore
	// KindTimeout covers a request deadline expiring before completion.
	KindTimeout
	// KindInternal covers invariant violations the core self-heals from.
	KindInternal
)

func (k Kind) String() string {
	switch k {
	case KindTenant:
		return "TenantError"
	case KindValidation:
		return "ValidationError"
	case KindContext:
		return "ContextError"
	case KindStore:
		return "StoreError"
	case KindTimeout:
		return "TimeoutError"
	case KindInternal:
		return "InternalError"
	default:
		return "UnknownError"
	}
}

// Error is the concrete error type every component in this repository
// returns. Code is a short machine-readable identifier within its Kind
// (e.g. "not_found", "quota_exceeded", "noise_exhausted").
type Error struct {
	Kind    Kind
	Code    string
	Message string
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s[%s]: %s: %v", e.Kind, e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s[%s]: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

func newErr(kind Kind, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap attaches kind/code/message to an underlying error, preserving it for
// errors.Unwrap/errors.Is chains.
func Wrap(err error, kind Kind, code, message string) *Error {
	e := newErr(kind, code, message)
	e.cause = err
	return e
}

// Is reports whether err is an *Error of the given kind, unwrapping as
// needed.
func Is(err error, kind Kind) bool {
	var e *Error
	for err != nil {
		if ae, ok := err.(*Error); ok {
			e = ae
			break
		}
		u, ok := err.(interface{ Unwrap() error })
		if !ok {
			break
		}
		err = u.Unwrap()
	}
	return e != nil && e.Kind == kind
}

// Constructors for each kind, named after the common codes this repository
// actually raises.

func TenantNotFound(tenantID string) *Error {
	return newErr(KindTenant, "not_found", fmt.Sprintf("tenant %q not found", tenantID))
}

func TenantAlreadyInitialized(tenantID string) *Error {
	return newErr(KindTenant, "already_initialized", fmt.Sprintf("tenant %q already initialized", tenantID))
}

func Validation(code, message string) *Error {
	return newErr(KindValidation, code, message)
}

func ContextBadParameters(message string) *Error {
	return newErr(KindContext, "bad_parameters", message)
}

func ContextBadCiphertext(message string) *Error {
	return newErr(KindContext, "bad_ciphertext", message)
}

func ContextNoiseExhausted(message string) *Error {
	return newErr(KindContext, "noise_exhausted", message)
}

func StoreQuotaExceeded(tenantID string, maxItems int) *Error {
	return newErr(KindStore, "quota_exceeded", fmt.Sprintf("tenant %q is at its limit of %d items", tenantID, maxItems))
}

func StoreIDCollision(embeddingID string) *Error {
	return newErr(KindStore, "id_collision", fmt.Sprintf("embedding %q already exists", embeddingID))
}

func Timeout(message string) *Error {
	return newErr(KindTimeout, "deadline_exceeded", message)
}

func Internal(code, message string) *Error {
	return newErr(KindInternal, code, message)
}
