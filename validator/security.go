package validator

import (
	"errors"
	"strings"
)

var (
	// ErrExcessiveTokenDots is returned when a token has more segments than
	// any compact JWS could.
	ErrExcessiveTokenDots = errors.New("token contains excessive dots")

	// ErrTokenTooLarge is returned for tokens above maxTokenSize.
	ErrTokenTooLarge = errors.New("token exceeds maximum size (1MB)")
)

const (
	// maxTokenDots allows header.payload.signature plus headroom for JWE
	// shaped input, which is then rejected by the parser.
	maxTokenDots = 5

	maxTokenSize = 1024 * 1024
)

// validateTokenFormat rejects obviously hostile input before it reaches the
// parser.
func validateTokenFormat(tokenString string) error {
	if len(tokenString) > maxTokenSize {
		return ErrTokenTooLarge
	}

	if strings.Count(tokenString, ".") > maxTokenDots {
		return ErrExcessiveTokenDots
	}

	return nil
}

// bearerPrefix is stripped from raw tokens. It is case sensitive.
const bearerPrefix = "Bearer "

// extractToken strips the bearer prefix and surrounding whitespace.
func extractToken(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(raw, bearerPrefix))
}
