package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tbudis/secured/keys"
)

// Option is how options for the Validator are set up.
// Options return errors to enable validation during construction.
type Option func(*Validator) error

// WithResolver sets the signing key resolver. Either WithResolver or
// WithMaterial is required.
func WithResolver(resolver *keys.Resolver) Option {
	return func(v *Validator) error {
		if resolver == nil {
			return errors.New("resolver cannot be nil")
		}
		v.resolver = resolver
		return nil
	}
}

// WithMaterial builds the signing key resolver from key material.
func WithMaterial(material *keys.Material) Option {
	return func(v *Validator) error {
		if material == nil {
			return errors.New("key material cannot be nil")
		}
		v.resolver = keys.NewResolver(material)
		return nil
	}
}

// WithAudienceMatcher replaces the strict audience membership check.
func WithAudienceMatcher(matcher AudienceMatcher) Option {
	return func(v *Validator) error {
		if matcher == nil {
			return errors.New("audience matcher cannot be nil")
		}
		v.audienceMatcher = matcher
		return nil
	}
}

// WithNumericIDClaim sets the claim the numeric identity id is read from.
// Defaults to "jti".
func WithNumericIDClaim(claim string) Option {
	return func(v *Validator) error {
		if strings.TrimSpace(claim) == "" {
			return errors.New("numeric id claim cannot be empty")
		}
		v.numericIDClaim = claim
		return nil
	}
}

// WithIssuer requires tokens to carry the given iss claim. By default any
// issuer is accepted.
func WithIssuer(issuer string) Option {
	return func(v *Validator) error {
		if issuer == "" {
			return errors.New("issuer cannot be empty")
		}
		v.issuer = issuer
		return nil
	}
}

// WithLeeway sets the allowed clock skew for exp, nbf and iat. The default
// is no skew.
func WithLeeway(leeway time.Duration) Option {
	return func(v *Validator) error {
		if leeway < 0 {
			return fmt.Errorf("leeway cannot be negative: %s", leeway)
		}
		v.leeway = leeway
		return nil
	}
}

// WithClock sets the time source used for expiry checks.
func WithClock(now func() time.Time) Option {
	return func(v *Validator) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		v.now = now
		return nil
	}
}
