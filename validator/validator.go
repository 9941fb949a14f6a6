package validator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tbudis/secured/core"
	"github.com/tbudis/secured/keys"
)

const defaultNumericIDClaim = "jti"

// Validator verifies bearer tokens and turns them into identities.
// It holds no mutable state and is safe for concurrent use.
type Validator struct {
	resolver        *keys.Resolver  // Required.
	audienceMatcher AudienceMatcher // Optional. Defaults to ExactAudience.
	numericIDClaim  string          // Optional. Defaults to "jti".
	issuer          string          // Optional.
	leeway          time.Duration   // Optional.
	now             func() time.Time
}

// New sets up a Validator. WithResolver or WithMaterial is required.
func New(opts ...Option) (*Validator, error) {
	v := &Validator{
		audienceMatcher: ExactAudience,
		numericIDClaim:  defaultNumericIDClaim,
		now:             time.Now,
	}

	for _, opt := range opts {
		if err := opt(v); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if err := v.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return v, nil
}

func (v *Validator) validate() error {
	if v.resolver == nil {
		return errors.New("a key resolver is required (use WithResolver or WithMaterial)")
	}
	return nil
}

// Authenticate verifies rawToken and returns the identity it carries. When
// expectedAudience is not empty the token must be meant for it.
//
// Failures are *core.Error values of the authentication kinds.
func (v *Validator) Authenticate(ctx context.Context, rawToken, expectedAudience string) (*core.Identity, error) {
	claims, err := v.ValidateToken(ctx, rawToken)
	if err != nil {
		return nil, err
	}

	if expectedAudience != "" && !v.audienceMatcher(expectedAudience, claims.Audiences) {
		return nil, core.NewError(
			core.KindInvalidAudience,
			fmt.Errorf("expected %q, token has %q", expectedAudience, claims.Audiences),
		)
	}

	return claims.Identity(), nil
}

// ValidateToken verifies rawToken and returns its claims without checking
// the audience.
func (v *Validator) ValidateToken(_ context.Context, rawToken string) (*TokenClaims, error) {
	if rawToken == "" {
		return nil, core.NewError(core.KindMissingToken, nil)
	}

	tokenString := extractToken(rawToken)
	if tokenString == "" {
		return nil, core.NewError(core.KindMissingToken, nil)
	}

	if err := validateTokenFormat(tokenString); err != nil {
		return nil, core.NewError(core.KindInvalidToken, err)
	}

	mapClaims := jwt.MapClaims{}
	token, err := v.parser().ParseWithClaims(tokenString, mapClaims, v.resolver.Keyfunc)
	if err != nil {
		return nil, classify(err)
	}

	return v.claimsOf(token, mapClaims)
}

func (v *Validator) parser() *jwt.Parser {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods(keys.SupportedAlgorithms()),
		jwt.WithLeeway(v.leeway),
		jwt.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	return jwt.NewParser(opts...)
}

// classify maps parser errors to failure kinds. The parser verifies the
// signature before it validates claims, so an expired token here always
// carried a valid signature.
func classify(err error) *core.Error {
	switch {
	case errors.Is(err, keys.ErrKeyUnavailable):
		return core.NewError(core.KindKeyResolution, err)
	case errors.Is(err, jwt.ErrTokenExpired):
		return core.NewError(core.KindExpiredToken, err)
	default:
		return core.NewError(core.KindInvalidToken, err)
	}
}

func (v *Validator) claimsOf(token *jwt.Token, mapClaims jwt.MapClaims) (*TokenClaims, error) {
	subject, err := mapClaims.GetSubject()
	if err != nil {
		return nil, core.NewError(core.KindInvalidToken, err)
	}
	issuer, err := mapClaims.GetIssuer()
	if err != nil {
		return nil, core.NewError(core.KindInvalidToken, err)
	}
	audiences, err := mapClaims.GetAudience()
	if err != nil {
		return nil, core.NewError(core.KindInvalidToken, err)
	}

	claims := &TokenClaims{
		Algorithm: token.Method.Alg(),
		Subject:   subject,
		Issuer:    issuer,
		NumericID: numericID(mapClaims[v.numericIDClaim]),
		Audiences: audiences,
	}
	if exp, err := mapClaims.GetExpirationTime(); err == nil && exp != nil {
		claims.ExpiresAt = exp.Time
	}

	return claims, nil
}
