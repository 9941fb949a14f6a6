// Package keys holds the verification key material of the process and
// resolves which key verifies a token based on the token's declared
// signature algorithm.
//
// Material is built once at startup, either programmatically with
// NewMaterial or from settings with Load, and is immutable afterwards, so it
// can be shared across goroutines without synchronization.
package keys

import (
	"crypto/rsa"
)

// Material is the immutable set of verification keys.
type Material struct {
	symmetric []byte
	public    *rsa.PublicKey
}

// NewMaterial builds Material from a symmetric secret and an optional RSA
// public key. The secret is copied.
func NewMaterial(symmetric []byte, public *rsa.PublicKey) *Material {
	m := &Material{public: public}
	if len(symmetric) > 0 {
		m.symmetric = append([]byte(nil), symmetric...)
	}
	return m
}

// SymmetricKey returns a copy of the HMAC secret, or nil when none is set.
func (m *Material) SymmetricKey() []byte {
	if len(m.symmetric) == 0 {
		return nil
	}
	return append([]byte(nil), m.symmetric...)
}

// PublicKey returns the RSA public key, or nil when none could be loaded.
func (m *Material) PublicKey() *rsa.PublicKey {
	return m.public
}

// HasSymmetricKey reports whether an HMAC secret is available.
func (m *Material) HasSymmetricKey() bool {
	return len(m.symmetric) > 0
}

// HasPublicKey reports whether an RSA public key is available.
func (m *Material) HasPublicKey() bool {
	return m.public != nil
}
