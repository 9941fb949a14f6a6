// Package config loads the settings of a secured service from a YAML file
// and SECURED_* environment variables.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tbudis/secured/keys"
	"github.com/tbudis/secured/validator"
)

// Config holds the service configuration.
type Config struct {
	JWT    JWTConfig    `mapstructure:"jwt"`
	Roles  RolesConfig  `mapstructure:"roles"`
	Log    LogConfig    `mapstructure:"log"`
	Server ServerConfig `mapstructure:"server"`

	// Dir is the directory relative paths are resolved against: the
	// directory of the file that was read, or the searched directory.
	Dir string `mapstructure:"-"`
}

type JWTConfig struct {
	Secret         SecretConfig      `mapstructure:"secret"`
	Certificate    CertificateConfig `mapstructure:"certificate"`
	PublicKey      PublicKeyConfig   `mapstructure:"public_key"`
	Audience       AudienceConfig    `mapstructure:"audience"`
	Issuer         string            `mapstructure:"issuer"`
	NumericIDClaim string            `mapstructure:"numeric_id_claim"`
	Leeway         time.Duration     `mapstructure:"leeway"`
}

type SecretConfig struct {
	Key string `mapstructure:"key"` // base64
}

type CertificateConfig struct {
	File  string `mapstructure:"file"`
	KeyID string `mapstructure:"key_id"`
}

type PublicKeyConfig struct {
	Required bool `mapstructure:"required"`
}

type AudienceConfig struct {
	Match string `mapstructure:"match"` // exact | contains
}

type RolesConfig struct {
	Redis RedisConfig `mapstructure:"redis"`
	Cache CacheConfig `mapstructure:"cache"`
}

type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

type CacheConfig struct {
	TTL time.Duration `mapstructure:"ttl"` // 0 disables caching
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | console
}

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "console"}
)

// Validate checks values that cannot be caught by decoding.
func (c *Config) Validate() error {
	var errs []error

	if _, err := validator.AudienceMatcherFor(c.JWT.Audience.Match); err != nil {
		errs = append(errs, fmt.Errorf("jwt.audience.match: %w", err))
	}
	if c.JWT.Leeway < 0 {
		errs = append(errs, fmt.Errorf("jwt.leeway: must not be negative, got %s", c.JWT.Leeway))
	}
	if strings.TrimSpace(c.JWT.NumericIDClaim) == "" {
		errs = append(errs, errors.New("jwt.numeric_id_claim: must not be empty"))
	}
	if c.Roles.Cache.TTL < 0 {
		errs = append(errs, fmt.Errorf("roles.cache.ttl: must not be negative, got %s", c.Roles.Cache.TTL))
	}
	if !slices.Contains(logLevels, strings.ToLower(c.Log.Level)) {
		errs = append(errs, fmt.Errorf("log.level: unknown level %q", c.Log.Level))
	}
	if !slices.Contains(logFormats, strings.ToLower(c.Log.Format)) {
		errs = append(errs, fmt.Errorf("log.format: unknown format %q", c.Log.Format))
	}

	return errors.Join(errs...)
}

// KeySettings returns the settings keys.Load needs.
func (c *Config) KeySettings() keys.Settings {
	return keys.Settings{
		SecretKey:        c.JWT.Secret.Key,
		CertificateFile:  c.JWT.Certificate.File,
		ConfigDir:        c.Dir,
		KeyID:            c.JWT.Certificate.KeyID,
		RequirePublicKey: c.JWT.PublicKey.Required,
	}
}

// ValidatorOptions returns the validator options described by the JWT
// section. Key material is not included.
func (c *Config) ValidatorOptions() ([]validator.Option, error) {
	matcher, err := validator.AudienceMatcherFor(c.JWT.Audience.Match)
	if err != nil {
		return nil, err
	}

	opts := []validator.Option{
		validator.WithAudienceMatcher(matcher),
		validator.WithNumericIDClaim(c.JWT.NumericIDClaim),
		validator.WithLeeway(c.JWT.Leeway),
	}
	if c.JWT.Issuer != "" {
		opts = append(opts, validator.WithIssuer(c.JWT.Issuer))
	}
	return opts, nil
}
