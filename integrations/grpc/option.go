package grpc

import (
	"errors"

	"github.com/tbudis/secured/core"
)

// Option configures the interceptor.
type Option func(*Interceptor) error

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by core for consistent logging across the stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// WithAuthorizer sets the authorizer that decides every call (REQUIRED).
//
// Example:
//
//	interceptor, _ := securedgrpc.New(
//	    securedgrpc.WithAuthorizer(authz),
//	    securedgrpc.WithLogger(logger),
//	)
func WithAuthorizer(authorizer *core.Authorizer) Option {
	return func(i *Interceptor) error {
		if authorizer == nil {
			return errors.New("authorizer cannot be nil")
		}
		i.authorizer = authorizer
		return nil
	}
}

// WithRequirement sets the requirement enforced for one full method name,
// for example "/accounts.v1.Accounts/DeleteAccount". An empty Operation
// defaults to the method name.
func WithRequirement(method string, req core.Requirement) Option {
	return func(i *Interceptor) error {
		if method == "" {
			return errors.New("method cannot be empty")
		}
		if i.requirements == nil {
			i.requirements = make(map[string]core.Requirement)
		}
		i.requirements[method] = req
		return nil
	}
}

// WithDefaultRequirement sets the requirement for methods without one of
// their own.
//
// Without this option a method that has no WithRequirement entry still
// requires a valid token, with no roles and any audience. Methods that must
// be reachable without a token have to be listed with WithExcludedMethods.
//
// Default: authentication only, for any audience
func WithDefaultRequirement(req core.Requirement) Option {
	return func(i *Interceptor) error {
		i.defaultRequirement = req
		return nil
	}
}

// WithLogger sets an optional logger for the interceptor.
//
// The logger interface is compatible with log/slog.Logger and similar loggers.
func WithLogger(logger Logger) Option {
	return func(i *Interceptor) error {
		if logger == nil {
			return errors.New("logger cannot be nil")
		}
		i.logger = logger
		return nil
	}
}

// WithTokenExtractor sets a custom token extractor function.
// Default is MetadataTokenExtractor which extracts from "authorization" metadata.
func WithTokenExtractor(extractor TokenExtractor) Option {
	return func(i *Interceptor) error {
		if extractor == nil {
			return errors.New("token extractor cannot be nil")
		}
		i.tokenExtractor = extractor
		return nil
	}
}

// WithErrorHandler sets a custom error handler function.
// Default is DefaultErrorHandler which maps denials to gRPC status codes.
func WithErrorHandler(handler ErrorHandler) Option {
	return func(i *Interceptor) error {
		if handler == nil {
			return errors.New("error handler cannot be nil")
		}
		i.errorHandler = handler
		return nil
	}
}

// WithExcludedMethods excludes specific gRPC methods from authorization.
// Methods should be provided in the format: "/package.Service/Method"
// Example: "/myapp.MyService/PublicMethod", "/grpc.health.v1.Health/Check"
func WithExcludedMethods(methods ...string) Option {
	return func(i *Interceptor) error {
		for _, method := range methods {
			i.excludedMethods[method] = true
		}
		return nil
	}
}
