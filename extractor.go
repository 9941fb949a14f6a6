package secured

import (
	"errors"
	"net/http"
)

// ErrMultipleAuthHeaders is returned when a request carries more than one
// Authorization header.
var ErrMultipleAuthHeaders = errors.New("multiple Authorization headers are not allowed")

// TokenExtractor reads the raw token from a request. A request without a
// token yields "" and no error; errors are for tokens that are present but
// malformed.
type TokenExtractor func(r *http.Request) (string, error)

// AuthHeaderTokenExtractor returns the Authorization header as is. The
// "Bearer " prefix is removed by the validator.
func AuthHeaderTokenExtractor(r *http.Request) (string, error) {
	values := r.Header.Values("Authorization")
	switch len(values) {
	case 0:
		return "", nil
	case 1:
		return values[0], nil
	default:
		return "", ErrMultipleAuthHeaders
	}
}

// CookieTokenExtractor reads the token from the cookieName cookie.
func CookieTokenExtractor(cookieName string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		cookie, err := r.Cookie(cookieName)
		if errors.Is(err, http.ErrNoCookie) {
			return "", nil
		}
		if err != nil {
			return "", err
		}
		return cookie.Value, nil
	}
}

// ParameterTokenExtractor reads the token from the param query parameter.
func ParameterTokenExtractor(param string) TokenExtractor {
	return func(r *http.Request) (string, error) {
		return r.URL.Query().Get(param), nil
	}
}

// MultiTokenExtractor tries extractors in order and returns the first
// non-empty token. The first error stops the search.
func MultiTokenExtractor(extractors ...TokenExtractor) TokenExtractor {
	return func(r *http.Request) (string, error) {
		for _, ex := range extractors {
			token, err := ex(r)
			if err != nil {
				return "", err
			}

			if token != "" {
				return token, nil
			}
		}
		return "", nil
	}
}
