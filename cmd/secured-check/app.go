package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tbudis/secured"
	"github.com/tbudis/secured/config"
	"github.com/tbudis/secured/core"
	"github.com/tbudis/secured/keys"
	"github.com/tbudis/secured/roles"
	"github.com/tbudis/secured/rolestore"
	"github.com/tbudis/secured/validator"
)

type app struct {
	cfg         *config.Config
	zap         *zap.Logger
	logger      secured.Logger
	registry    *prometheus.Registry
	authorizer  *core.Authorizer
	requirement core.Requirement
	addr        string
	redis       *redis.Client
}

func newLogger(cfg config.LogConfig) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, err
	}

	zapCfg := zap.NewProductionConfig()
	if strings.EqualFold(cfg.Format, "console") {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)
	zapCfg.OutputPaths = []string{"stderr"}
	return zapCfg.Build()
}

func newApp(cfg *config.Config, f *flags) (*app, error) {
	zapLogger, err := newLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("could not build logger: %w", err)
	}

	a := &app{
		cfg:      cfg,
		zap:      zapLogger,
		logger:   secured.NewZapLogger(zapLogger),
		registry: prometheus.NewRegistry(),
		addr:     cfg.Server.Addr,
	}
	if f.addr != "" {
		a.addr = f.addr
	}

	if a.requirement, err = requirement(f); err != nil {
		a.close()
		return nil, err
	}

	if a.authorizer, err = a.newAuthorizer(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func requirement(f *flags) (core.Requirement, error) {
	req := core.Requirement{
		Operation: f.operation,
		Audience:  f.audience,
	}
	for _, name := range f.roles {
		role, err := roles.Default().Parse(name)
		if err != nil {
			return core.Requirement{}, err
		}
		req.Roles = append(req.Roles, role)
	}
	return req, nil
}

func (a *app) newAuthorizer() (*core.Authorizer, error) {
	material, err := keys.Load(a.cfg.KeySettings(), keys.WithLogger(a.logger))
	if err != nil {
		return nil, err
	}

	validatorOpts, err := a.cfg.ValidatorOptions()
	if err != nil {
		return nil, err
	}
	v, err := validator.New(append(validatorOpts, validator.WithMaterial(material))...)
	if err != nil {
		return nil, err
	}

	metrics, err := secured.NewPrometheusMetrics(a.registry)
	if err != nil {
		return nil, err
	}

	opts := []core.Option{
		core.WithAuthenticator(v),
		core.WithDenialSink(secured.NewLogSink(a.logger, nil)),
		core.WithDenialSink(metrics),
		core.WithDecisionObserver(metrics),
		core.WithLogger(a.logger),
	}

	lookup, err := a.roleLookup()
	if err != nil {
		return nil, err
	}
	if lookup != nil {
		opts = append(opts, core.WithRoleLookup(lookup))
	}

	return core.New(opts...)
}

// roleLookup returns nil when no role directory is configured; every caller
// then has no roles.
func (a *app) roleLookup() (core.RoleLookup, error) {
	redisCfg := a.cfg.Roles.Redis
	if redisCfg.Addr == "" {
		a.logger.Warn("no role directory configured, callers have no roles")
		return nil, nil
	}

	a.redis = redis.NewClient(&redis.Options{
		Addr:     redisCfg.Addr,
		Password: redisCfg.Password,
		DB:       redisCfg.DB,
	})
	store, err := rolestore.NewRedis(a.redis, rolestore.WithKeyPrefix(redisCfg.KeyPrefix))
	if err != nil {
		return nil, err
	}
	a.logger.Info("reading roles from redis", "addr", redisCfg.Addr, "prefix", redisCfg.KeyPrefix)

	if a.cfg.Roles.Cache.TTL == 0 {
		return store, nil
	}
	return rolestore.NewCached(store, a.cfg.Roles.Cache.TTL)
}

func (a *app) check(ctx context.Context, token string, out io.Writer) (bool, error) {
	identity, err := a.authorizer.Decide(ctx, a.requirement, token)
	return err == nil, writeDecision(out, newDecision(identity, err))
}

func (a *app) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	_ = a.zap.Sync()
}
