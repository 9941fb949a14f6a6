package validator

import (
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/tbudis/secured/core"
)

// TokenClaims are the claims read from a verified token.
type TokenClaims struct {
	Algorithm string    `json:"alg"`
	Subject   string    `json:"sub,omitempty"`
	Issuer    string    `json:"iss,omitempty"`
	NumericID int       `json:"id"`
	Audiences []string  `json:"aud,omitempty"`
	ExpiresAt time.Time `json:"exp,omitzero"`
}

// Identity returns the identity the claims describe, with no roles.
func (c *TokenClaims) Identity() *core.Identity {
	return &core.Identity{
		ID:         c.NumericID,
		ExternalID: c.Subject,
		Issuer:     c.Issuer,
	}
}

// AudienceMatcher reports whether expected is satisfied by the token
// audiences.
type AudienceMatcher func(expected string, audiences []string) bool

// ExactAudience requires expected to be one of the audiences.
func ExactAudience(expected string, audiences []string) bool {
	return slices.Contains(audiences, expected)
}

// ContainsAudience accepts expected when it occurs as a substring of any
// audience. It only exists for deployments that relied on that behavior;
// "svc" matches "svc-admin".
func ContainsAudience(expected string, audiences []string) bool {
	for _, aud := range audiences {
		if strings.Contains(aud, expected) {
			return true
		}
	}
	return false
}

// Audience match modes accepted by AudienceMatcherFor.
const (
	AudienceMatchExact    = "exact"
	AudienceMatchContains = "contains"
)

// AudienceMatcherFor returns the matcher named by mode. An empty mode
// selects exact matching.
func AudienceMatcherFor(mode string) (AudienceMatcher, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", AudienceMatchExact:
		return ExactAudience, nil
	case AudienceMatchContains:
		return ContainsAudience, nil
	default:
		return nil, &UnknownAudienceModeError{Mode: mode}
	}
}

// UnknownAudienceModeError is returned by AudienceMatcherFor.
type UnknownAudienceModeError struct {
	Mode string
}

func (e *UnknownAudienceModeError) Error() string {
	return "unknown audience match mode " + strconv.Quote(e.Mode)
}

// numericID converts a claim value to an int. Anything that is not a whole
// number within 32-bit range yields 0.
func numericID(value any) int {
	switch v := value.(type) {
	case string:
		return parseID(strings.TrimSpace(v))
	case float64:
		if v != math.Trunc(v) || v > math.MaxInt32 || v < math.MinInt32 {
			return 0
		}
		return int(v)
	case json.Number:
		return parseID(v.String())
	default:
		return 0
	}
}

func parseID(s string) int {
	id, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return 0
	}
	return int(id)
}
