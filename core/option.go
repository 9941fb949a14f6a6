package core

import (
	"errors"
	"time"

	"github.com/tbudis/secured/roles"
)

// Option is a function that configures the Authorizer.
// Options return errors to enable validation during construction.
type Option func(*Authorizer) error

// New creates a new Authorizer with the provided options.
//
// The Authorizer must be configured with an Authenticator using
// WithAuthenticator. Permissions are evaluated against roles.Default()
// unless WithPermissionEvaluator is given.
//
// Example:
//
//	authz, err := core.New(
//	    core.WithAuthenticator(v),
//	    core.WithRoleLookup(store),
//	    core.WithDenialSink(secured.NewLogSink(logger)),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
func New(opts ...Option) (*Authorizer, error) {
	a := &Authorizer{
		evaluator: roles.Default(),
		now:       time.Now,
	}

	for _, opt := range opts {
		if err := opt(a); err != nil {
			return nil, err
		}
	}

	if err := a.validate(); err != nil {
		return nil, err
	}

	return a, nil
}

// validate ensures all required fields are set.
func (a *Authorizer) validate() error {
	if a.authenticator == nil {
		return errors.New("authenticator is required but not set (use WithAuthenticator option)")
	}
	return nil
}

// WithAuthenticator sets the token authenticator. This is a required option.
func WithAuthenticator(authenticator Authenticator) Option {
	return func(a *Authorizer) error {
		if authenticator == nil {
			return errors.New("authenticator cannot be nil")
		}
		a.authenticator = authenticator
		return nil
	}
}

// WithPermissionEvaluator replaces the default role registry used to
// evaluate required roles.
func WithPermissionEvaluator(evaluator PermissionEvaluator) Option {
	return func(a *Authorizer) error {
		if evaluator == nil {
			return errors.New("permission evaluator cannot be nil")
		}
		a.evaluator = evaluator
		return nil
	}
}

// WithRoleLookup sets the hook that resolves the role bitmask of an
// authenticated identity. Without it every identity has an empty mask and
// only operations with no required roles are reachable.
func WithRoleLookup(lookup RoleLookup) Option {
	return func(a *Authorizer) error {
		if lookup == nil {
			return errors.New("role lookup cannot be nil")
		}
		a.roleLookup = lookup
		return nil
	}
}

// WithDenialSink adds a sink for denial events. It may be given more than
// once; events are delivered to every sink in the order they were added.
func WithDenialSink(sink DenialSink) Option {
	return func(a *Authorizer) error {
		if sink == nil {
			return errors.New("denial sink cannot be nil")
		}
		if a.sink == nil {
			a.sink = sink
			return nil
		}
		a.sink = MultiSink(a.sink, sink)
		return nil
	}
}

// WithDecisionObserver sets an observer notified of every decision.
func WithDecisionObserver(observer DecisionObserver) Option {
	return func(a *Authorizer) error {
		if observer == nil {
			return errors.New("decision observer cannot be nil")
		}
		a.observer = observer
		return nil
	}
}

// WithLogger sets an optional logger for the Authorizer.
//
// Example:
//
//	authz, _ := core.New(
//	    core.WithAuthenticator(v),
//	    core.WithLogger(slog.Default()),
//	)
func WithLogger(logger Logger) Option {
	return func(a *Authorizer) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		a.logger = logger
		return nil
	}
}

// WithClock overrides the time source used to stamp events and measure
// decisions.
func WithClock(now func() time.Time) Option {
	return func(a *Authorizer) error {
		if now == nil {
			return errors.New("clock cannot be nil")
		}
		a.now = now
		return nil
	}
}
