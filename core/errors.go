package core

import "errors"

// Kind classifies why an authorization attempt was denied. Its value doubles
// as a stable machine-readable code for responses, logs and metric labels.
type Kind string

// Failure kinds.
const (
	KindMissingToken     Kind = "token_missing"
	KindInvalidToken     Kind = "token_invalid"
	KindExpiredToken     Kind = "token_expired"
	KindInvalidAudience  Kind = "invalid_audience"
	KindKeyResolution    Kind = "key_resolution_failed"
	KindPermissionDenied Kind = "permission_denied"
	KindRoleLookup       Kind = "role_lookup_failed"
)

var defaultMessages = map[Kind]string{
	KindMissingToken:     "missing token",
	KindInvalidToken:     "invalid token",
	KindExpiredToken:     "token has expired",
	KindInvalidAudience:  "invalid audience",
	KindKeyResolution:    "signing key unavailable",
	KindPermissionDenied: "no permission to access resource",
	KindRoleLookup:       "unable to resolve roles",
}

// Message returns the default human-readable message of the kind.
func (k Kind) Message() string {
	if m, ok := defaultMessages[k]; ok {
		return m
	}
	return string(k)
}

// IsAuthentication reports whether the kind describes a failure to
// authenticate the token, as opposed to a failure to authorize the identity.
func (k Kind) IsAuthentication() bool {
	switch k {
	case KindMissingToken, KindInvalidToken, KindExpiredToken, KindInvalidAudience, KindKeyResolution:
		return true
	}
	return false
}

// Error is the single error type returned by authentication and
// authorization. Callers branch on Kind rather than on the message.
type Error struct {
	// Kind is the failure category.
	Kind Kind

	// Message is a human-readable message, safe to return to clients.
	Message string

	// Details contains the underlying error, if any. It is not meant for clients.
	Details error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Details != nil {
		return e.Message + ": " + e.Details.Error()
	}
	return e.Message
}

// Unwrap returns the underlying error for error unwrapping.
func (e *Error) Unwrap() error {
	return e.Details
}

// Is matches any *Error of the same kind, so errors.Is(err, ErrExpiredToken)
// holds regardless of message or details.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// NewError creates an Error of the given kind with its default message.
func NewError(kind Kind, details error) *Error {
	return &Error{
		Kind:    kind,
		Message: kind.Message(),
		Details: details,
	}
}

// Sentinel errors, one per kind, for use with errors.Is.
var (
	ErrMissingToken     = NewError(KindMissingToken, nil)
	ErrInvalidToken     = NewError(KindInvalidToken, nil)
	ErrExpiredToken     = NewError(KindExpiredToken, nil)
	ErrInvalidAudience  = NewError(KindInvalidAudience, nil)
	ErrKeyResolution    = NewError(KindKeyResolution, nil)
	ErrPermissionDenied = NewError(KindPermissionDenied, nil)
	ErrRoleLookup       = NewError(KindRoleLookup, nil)

	// ErrIdentityNotFound is returned when no identity is stored in a context.
	ErrIdentityNotFound = errors.New("identity not found in context")
)

// AsError converts err into an *Error. Errors that are not already an
// *Error are treated as invalid tokens.
func AsError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return NewError(KindInvalidToken, err)
}

// KindOf returns the kind of err, or an empty Kind when err is nil.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	return AsError(err).Kind
}
