package keys

import (
	"bytes"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/lestrrat-go/jwx/v3/jwk"
)

// ErrPublicKeyRequired is returned by Load when the public key could not be
// loaded and Settings.RequirePublicKey is set.
var ErrPublicKeyRequired = errors.New("public key is required but could not be loaded")

// Settings describes where the key material comes from.
type Settings struct {
	// SecretKey is the base64-encoded HMAC secret. Empty disables the
	// symmetric family.
	SecretKey string

	// CertificateFile points at the RSA verification key: a PEM or DER
	// X.509 certificate, a PEM public key, or a JWK / JWK set. Relative
	// paths are resolved against ConfigDir.
	CertificateFile string

	// ConfigDir is the directory relative certificate paths are resolved
	// against.
	ConfigDir string

	// KeyID selects a key by "kid" when CertificateFile holds a JWK set.
	KeyID string

	// RequirePublicKey makes Load fail instead of continuing without
	// asymmetric verification.
	RequirePublicKey bool
}

// Logger is the logging interface used while loading keys. It is compatible
// with log/slog.
type Logger interface {
	Info(msg string, args ...any)
	Error(msg string, args ...any)
}

// LoadOption configures Load.
type LoadOption func(*loader) error

type loader struct {
	logger Logger
}

// WithLogger sets the logger that reports which keys were loaded.
func WithLogger(logger Logger) LoadOption {
	return func(l *loader) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		l.logger = logger
		return nil
	}
}

// Load builds Material from settings.
//
// A secret that is not valid base64 is a configuration error. A public key
// that cannot be loaded only disables the asymmetric family, unless
// RequirePublicKey is set.
func Load(s Settings, opts ...LoadOption) (*Material, error) {
	l := &loader{}
	for _, opt := range opts {
		if err := opt(l); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	secret, err := DecodeSecret(s.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("could not decode secret key: %w", err)
	}
	if len(secret) > 0 {
		l.info("loaded secret key", "bytes", len(secret))
	}

	public, err := l.loadPublicKey(s)
	if err != nil {
		if s.RequirePublicKey {
			return nil, fmt.Errorf("%w: %w", ErrPublicKeyRequired, err)
		}
		l.error("asymmetric verification disabled", "error", err)
	}

	return NewMaterial(secret, public), nil
}

func (l *loader) loadPublicKey(s Settings) (*rsa.PublicKey, error) {
	if s.CertificateFile == "" {
		return nil, errors.New("no public certificate configured")
	}

	path := s.CertificateFile
	if s.ConfigDir != "" && !filepath.IsAbs(path) {
		path = filepath.Join(s.ConfigDir, path)
	}

	key, err := LoadPublicKeyFile(path, s.KeyID)
	if err != nil {
		return nil, err
	}

	l.info("loaded public certificate", "path", path, "bits", key.N.BitLen())
	return key, nil
}

func (l *loader) info(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Info(msg, args...)
	}
}

func (l *loader) error(msg string, args ...any) {
	if l.logger != nil {
		l.logger.Error(msg, args...)
	}
}

// DecodeSecret decodes a base64 secret in the standard or URL-safe alphabet,
// with or without padding. An empty or blank input yields a nil secret.
func DecodeSecret(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	if encoded == "" {
		return nil, nil
	}

	var firstErr error
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		secret, err := enc.DecodeString(encoded)
		if err == nil {
			return secret, nil
		}
		if firstErr == nil {
			firstErr = err
		}
	}
	return nil, firstErr
}

// LoadPublicKeyFile reads path and parses it with ParsePublicKey.
func LoadPublicKeyFile(path, keyID string) (*rsa.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read public certificate: %w", err)
	}

	key, err := ParsePublicKey(data, keyID)
	if err != nil {
		return nil, fmt.Errorf("could not parse public certificate %s: %w", path, err)
	}
	return key, nil
}

// ParsePublicKey extracts an RSA public key from a PEM certificate or public
// key, a DER certificate, or a JWK / JWK set.
func ParsePublicKey(data []byte, keyID string) (*rsa.PublicKey, error) {
	trimmed := bytes.TrimSpace(data)
	switch {
	case len(trimmed) == 0:
		return nil, errors.New("empty key data")
	case trimmed[0] == '{':
		return parseJWK(trimmed, keyID)
	case bytes.HasPrefix(trimmed, []byte("-----BEGIN")):
		return jwt.ParseRSAPublicKeyFromPEM(trimmed)
	default:
		cert, err := x509.ParseCertificate(data)
		if err != nil {
			return nil, fmt.Errorf("not a PEM, DER or JWK encoded key: %w", err)
		}
		return rsaPublicKey(cert.PublicKey)
	}
}

func parseJWK(data []byte, keyID string) (*rsa.PublicKey, error) {
	set, err := jwk.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("could not parse JWK: %w", err)
	}

	if keyID != "" {
		key, ok := set.LookupKeyID(keyID)
		if !ok {
			return nil, fmt.Errorf("no key with kid %q", keyID)
		}
		return exportRSA(key)
	}

	for i := 0; i < set.Len(); i++ {
		key, ok := set.Key(i)
		if !ok {
			continue
		}
		if public, err := exportRSA(key); err == nil {
			return public, nil
		}
	}
	return nil, errors.New("no RSA key in JWK set")
}

func exportRSA(key jwk.Key) (*rsa.PublicKey, error) {
	public, err := jwk.PublicKeyOf(key)
	if err != nil {
		return nil, fmt.Errorf("could not derive public JWK: %w", err)
	}

	var raw any
	if err := jwk.Export(public, &raw); err != nil {
		return nil, fmt.Errorf("could not export JWK: %w", err)
	}
	return rsaPublicKey(raw)
}

func rsaPublicKey(key any) (*rsa.PublicKey, error) {
	switch k := key.(type) {
	case *rsa.PublicKey:
		return k, nil
	case rsa.PublicKey:
		return &k, nil
	default:
		return nil, fmt.Errorf("key of type %T is not an RSA public key", key)
	}
}
