package keys

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// Resolution errors.
var (
	// ErrUnsupportedAlgorithm is returned for any algorithm outside the
	// symmetric and asymmetric families.
	ErrUnsupportedAlgorithm = errors.New("unsupported signing algorithm")

	// ErrKeyUnavailable is returned when the algorithm is supported but the
	// key of its family was never loaded.
	ErrKeyUnavailable = errors.New("signing key unavailable")
)

// Family is the closed set of algorithm families a token may declare.
type Family int

const (
	// Unsupported covers every algorithm not listed below, including "none".
	Unsupported Family = iota
	// Symmetric algorithms are verified with the HMAC secret.
	Symmetric
	// Asymmetric algorithms are verified with the RSA public key.
	Asymmetric
)

func (f Family) String() string {
	switch f {
	case Symmetric:
		return "symmetric"
	case Asymmetric:
		return "asymmetric"
	default:
		return "unsupported"
	}
}

// Adding an algorithm here is a deliberate, reviewable change.
var families = map[string]Family{
	jwt.SigningMethodHS256.Alg(): Symmetric,
	jwt.SigningMethodHS384.Alg(): Symmetric,
	jwt.SigningMethodHS512.Alg(): Symmetric,
	jwt.SigningMethodRS256.Alg(): Asymmetric,
	jwt.SigningMethodRS384.Alg(): Asymmetric,
	jwt.SigningMethodRS512.Alg(): Asymmetric,
}

// FamilyOf classifies a JWS "alg" header value. Matching is exact and case
// sensitive.
func FamilyOf(alg string) Family {
	return families[alg]
}

// SupportedAlgorithms lists every algorithm the resolver may return a key for.
func SupportedAlgorithms() []string {
	return []string{
		jwt.SigningMethodHS256.Alg(),
		jwt.SigningMethodHS384.Alg(),
		jwt.SigningMethodHS512.Alg(),
		jwt.SigningMethodRS256.Alg(),
		jwt.SigningMethodRS384.Alg(),
		jwt.SigningMethodRS512.Alg(),
	}
}

// Resolver picks the verification key for a declared algorithm. It never
// falls back to a key of another family.
type Resolver struct {
	material *Material
}

// NewResolver returns a Resolver over m.
func NewResolver(m *Material) *Resolver {
	if m == nil {
		m = &Material{}
	}
	return &Resolver{material: m}
}

// Resolve returns a []byte secret for the symmetric family and an
// *rsa.PublicKey for the asymmetric family.
func (r *Resolver) Resolve(alg string) (any, error) {
	switch FamilyOf(alg) {
	case Symmetric:
		if !r.material.HasSymmetricKey() {
			return nil, fmt.Errorf("%w: no secret configured for %s", ErrKeyUnavailable, alg)
		}
		return r.material.SymmetricKey(), nil
	case Asymmetric:
		if !r.material.HasPublicKey() {
			return nil, fmt.Errorf("%w: no public key loaded for %s", ErrKeyUnavailable, alg)
		}
		return r.material.PublicKey(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}
}

// Keyfunc adapts Resolve to jwt.Keyfunc, reading the algorithm from the
// token header.
func (r *Resolver) Keyfunc(token *jwt.Token) (any, error) {
	alg, _ := token.Header["alg"].(string)
	return r.Resolve(alg)
}
