package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

const (
	// FileName is the config file name searched for, without extension.
	FileName = "security"

	// EnvPrefix prefixes environment overrides: jwt.secret.key is read
	// from SECURED_JWT_SECRET_KEY.
	EnvPrefix = "SECURED"

	// DefaultDir is searched when no directory is given.
	DefaultDir = "/etc/secured"
)

func setDefaults(v *viper.Viper) {
	// Every key needs a default so AutomaticEnv can override it.
	v.SetDefault("jwt.secret.key", "")
	v.SetDefault("jwt.certificate.file", "")
	v.SetDefault("jwt.certificate.key_id", "")
	v.SetDefault("jwt.public_key.required", false)
	v.SetDefault("jwt.audience.match", "exact")
	v.SetDefault("jwt.issuer", "")
	v.SetDefault("jwt.numeric_id_claim", "jti")
	v.SetDefault("jwt.leeway", "0s")
	v.SetDefault("roles.redis.addr", "")
	v.SetDefault("roles.redis.password", "")
	v.SetDefault("roles.redis.db", 0)
	v.SetDefault("roles.redis.key_prefix", "secured:roles:")
	v.SetDefault("roles.cache.ttl", "0s")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.addr", ":8080")
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads security.yaml from dir, or from the working directory and
// DefaultDir when dir is empty. A missing file is not an error: defaults
// and environment overrides still apply.
func Load(dir string) (*Config, error) {
	v := newViper()
	v.SetConfigName(FileName)
	v.SetConfigType("yaml")
	if dir != "" {
		v.AddConfigPath(dir)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath(DefaultDir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("could not read config: %w", err)
		}
	}

	base := dir
	if used := v.ConfigFileUsed(); used != "" {
		base = filepath.Dir(used)
	}
	if base == "" {
		base = "."
	}
	return decode(v, base)
}

// LoadFile reads the config file at path. The file must exist.
func LoadFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("could not read config %s: %w", path, err)
	}
	return decode(v, filepath.Dir(path))
}

func decode(v *viper.Viper, dir string) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.Dir = dir

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}
