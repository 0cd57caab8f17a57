package gateway

import (
	"fmt"
)

// Reason classifies why a request was rejected.
type Reason string

const (
	ReasonMissingCredential Reason = "missing_credential"
	ReasonInvalidCredential Reason = "invalid_credential"
	ReasonForbidden         Reason = "forbidden"
	ReasonUnknownRole       Reason = "unknown_role"
	ReasonPrincipalNotFound Reason = "principal_not_found"
	ReasonPrincipalInactive Reason = "principal_inactive"
)

// RejectionError is the terminal failure of a dispatch. Compare with
// errors.Is against the Err* sentinels; State records how far the request got.
type RejectionError struct {
	Reason Reason
	State  State
	Err    error
}

// Error implements the error interface
func (e *RejectionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (at %s): %v", e.Reason, e.State, e.Err)
	}
	return fmt.Sprintf("%s (at %s)", e.Reason, e.State)
}

// Unwrap returns the underlying error
func (e *RejectionError) Unwrap() error {
	return e.Err
}

// Is matches any RejectionError with the same reason
func (e *RejectionError) Is(target error) bool {
	t, ok := target.(*RejectionError)
	if !ok {
		return false
	}
	return e.Reason == t.Reason
}

// Forbidden reports whether the rejection is an authorization (403) rather
// than an authentication (401) failure.
func (e *RejectionError) Forbidden() bool {
	return e.Reason == ReasonForbidden
}

// Sentinels for errors.Is
var (
	ErrMissingCredential = &RejectionError{Reason: ReasonMissingCredential}
	ErrInvalidCredential = &RejectionError{Reason: ReasonInvalidCredential}
	ErrForbidden         = &RejectionError{Reason: ReasonForbidden}
	ErrUnknownRole       = &RejectionError{Reason: ReasonUnknownRole}
	ErrPrincipalNotFound = &RejectionError{Reason: ReasonPrincipalNotFound}
	ErrPrincipalInactive = &RejectionError{Reason: ReasonPrincipalInactive}
)

func reject(reason Reason, state State, err error) *RejectionError {
	return &RejectionError{Reason: reason, State: state, Err: err}
}
