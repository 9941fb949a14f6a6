package secured

import (
	"errors"
	"net/http"

	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/tbudis/secured/core"
)

// Option configures the Middleware. An option fails New by returning an
// error.
type Option func(*Middleware) error

// WithAuthorizer sets the authorizer that decides every request (REQUIRED).
func WithAuthorizer(authorizer *core.Authorizer) Option {
	return func(m *Middleware) error {
		if authorizer == nil {
			return ErrAuthorizerNil
		}
		m.authorizer = authorizer
		return nil
	}
}

// WithValidateOnOptions sets whether OPTIONS requests are authorized.
//
// Default: true (OPTIONS requests are authorized)
func WithValidateOnOptions(value bool) Option {
	return func(m *Middleware) error {
		m.validateOnOptions = value
		return nil
	}
}

// WithErrorHandler sets the handler called for denied requests.
//
// Default: DefaultErrorHandler
func WithErrorHandler(h ErrorHandler) Option {
	return func(m *Middleware) error {
		if h == nil {
			return ErrErrorHandlerNil
		}
		m.errorHandler = h
		return nil
	}
}

// WithLegacyForbiddenStatus answers every denial with 403 Forbidden instead
// of distinguishing failed authentication (401).
func WithLegacyForbiddenStatus() Option {
	return WithErrorHandler(LegacyErrorHandler)
}

// WithTokenExtractor sets the function to extract the token from the request.
//
// Default: AuthHeaderTokenExtractor
func WithTokenExtractor(e TokenExtractor) Option {
	return func(m *Middleware) error {
		if e == nil {
			return ErrTokenExtractorNil
		}
		m.tokenExtractor = e
		return nil
	}
}

// WithExclusionUrls lets requests through without authorization when their
// path or full URL equals one of exclusions.
func WithExclusionUrls(exclusions []string) Option {
	return func(m *Middleware) error {
		if len(exclusions) == 0 {
			return ErrExclusionUrlsEmpty
		}
		excluded := make(map[string]struct{}, len(exclusions))
		for _, e := range exclusions {
			excluded[e] = struct{}{}
		}
		m.exclusionURLHandler = func(r *http.Request) bool {
			if _, ok := excluded[r.URL.Path]; ok {
				return true
			}
			_, ok := excluded[r.URL.String()]
			return ok
		}
		return nil
	}
}

// WithTracer wraps every authorization in a span.
func WithTracer(tracer oteltrace.Tracer) Option {
	return func(m *Middleware) error {
		if tracer == nil {
			return ErrTracerNil
		}
		m.tracer = tracer
		return nil
	}
}

// WithLogger sets an optional logger for the middleware.
//
// The logger interface is compatible with log/slog.Logger and similar loggers.
//
// Example:
//
//	m, err := secured.New(
//	    secured.WithAuthorizer(authz),
//	    secured.WithLogger(slog.Default()),
//	)
func WithLogger(logger Logger) Option {
	return func(m *Middleware) error {
		if logger == nil {
			return ErrLoggerNil
		}
		m.logger = logger
		return nil
	}
}

// Configuration errors returned by New.
var (
	ErrAuthorizerNil      = errors.New("authorizer cannot be nil (use WithAuthorizer)")
	ErrErrorHandlerNil    = errors.New("errorHandler cannot be nil")
	ErrTokenExtractorNil  = errors.New("tokenExtractor cannot be nil")
	ErrExclusionUrlsEmpty = errors.New("exclusion URLs list cannot be empty")
	ErrTracerNil          = errors.New("tracer cannot be nil")
	ErrLoggerNil          = errors.New("logger cannot be nil")
)
