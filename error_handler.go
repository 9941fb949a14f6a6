package secured

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/tbudis/secured/core"
)

// ErrorHandler writes the response for a denied request. err is always a
// *core.Error when it comes from the middleware.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Response is the body written for denied requests.
type Response struct {
	Status bool   `json:"status"`
	Reason string `json:"reason"`
}

// StatusCode maps a denial to an HTTP status: 401 for failed
// authentication, 403 for a wrong audience or missing permission, 500 for
// anything else.
func StatusCode(err error) int {
	var authErr *core.Error
	if !errors.As(err, &authErr) {
		return http.StatusInternalServerError
	}

	switch {
	case authErr.Kind == core.KindInvalidAudience:
		return http.StatusForbidden
	case authErr.Kind.IsAuthentication():
		return http.StatusUnauthorized
	case authErr.Kind == core.KindPermissionDenied:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// Reason returns the client-facing message of a denial.
func Reason(err error) string {
	var authErr *core.Error
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	return "something went wrong while checking the token"
}

// WriteResponse writes a JSON Response with the given status.
func WriteResponse(w http.ResponseWriter, status int, reason string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(Response{Status: false, Reason: reason})
}

// DefaultErrorHandler is used unless WithErrorHandler or
// WithLegacyForbiddenStatus is given.
func DefaultErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	WriteResponse(w, StatusCode(err), Reason(err))
}

// LegacyErrorHandler answers every denial with 403 Forbidden.
func LegacyErrorHandler(w http.ResponseWriter, _ *http.Request, err error) {
	WriteResponse(w, http.StatusForbidden, Reason(err))
}
