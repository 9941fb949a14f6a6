package secured

import (
	"context"
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	oteltrace "go.opentelemetry.io/otel/trace"

	"github.com/tbudis/secured/core"
)

// Middleware guards net/http handlers with an authorization requirement.
type Middleware struct {
	authorizer          *core.Authorizer
	errorHandler        ErrorHandler
	tokenExtractor      TokenExtractor
	validateOnOptions   bool
	exclusionURLHandler ExclusionURLHandler
	tracer              oteltrace.Tracer
	logger              Logger
}

// Logger defines an optional logging interface compatible with log/slog.
// This is the same interface used by core for consistent logging across the stack.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// ExclusionURLHandler is a function that takes in a http.Request and returns
// true if the request should be excluded from authorization.
type ExclusionURLHandler func(r *http.Request) bool

// New constructs a new Middleware instance with the supplied options.
//
// Example:
//
//	authz, err := core.New(core.WithAuthenticator(v))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	m, err := secured.New(secured.WithAuthorizer(authz))
//	if err != nil {
//	    log.Fatalf("failed to create middleware: %v", err)
//	}
//
//	mux.Handle("/accounts", m.Protect(core.Requirement{
//	    Operation: "ListAccounts",
//	    Roles:     []roles.Role{roles.Admin, roles.AccountAdmin},
//	})(accountsHandler))
func New(opts ...Option) (*Middleware, error) {
	m := &Middleware{
		validateOnOptions: true,
	}

	for _, opt := range opts {
		if err := opt(m); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}

	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("invalid middleware configuration: %w", err)
	}

	m.applyDefaults()
	return m, nil
}

func (m *Middleware) validate() error {
	if m.authorizer == nil {
		return ErrAuthorizerNil
	}
	return nil
}

func (m *Middleware) applyDefaults() {
	if m.errorHandler == nil {
		m.errorHandler = DefaultErrorHandler
	}
	if m.tokenExtractor == nil {
		m.tokenExtractor = AuthHeaderTokenExtractor
	}
}

// GetIdentity returns the identity the middleware stored in ctx.
func GetIdentity(ctx context.Context) (*core.Identity, error) {
	return core.GetIdentity(ctx)
}

// MustGetIdentity returns the identity stored in ctx or panics.
func MustGetIdentity(ctx context.Context) *core.Identity {
	return core.MustGetIdentity(ctx)
}

// HasIdentity reports whether ctx carries an identity.
func HasIdentity(ctx context.Context) bool {
	return core.HasIdentity(ctx)
}

// Skip reports whether r bypasses authorization: excluded URLs, and OPTIONS
// requests when WithValidateOnOptions(false) is set.
func (m *Middleware) Skip(r *http.Request) bool {
	if m.exclusionURLHandler != nil && m.exclusionURLHandler(r) {
		m.debug("skipping authorization for excluded URL", "method", r.Method, "path", r.URL.Path)
		return true
	}
	if !m.validateOnOptions && r.Method == http.MethodOptions {
		m.debug("skipping authorization for OPTIONS request")
		return true
	}
	return false
}

// Authorize decides req for r. On success it returns r with the identity
// stored in its context.
func (m *Middleware) Authorize(r *http.Request, req core.Requirement) (*http.Request, error) {
	var span oteltrace.Span
	if m.tracer != nil {
		var ctx context.Context
		ctx, span = m.tracer.Start(r.Context(), "secured.Authorize",
			oteltrace.WithSpanKind(oteltrace.SpanKindServer),
			oteltrace.WithAttributes(
				attribute.String("secured.operation", req.Operation),
				attribute.String("http.method", r.Method),
				attribute.String("http.path", r.URL.Path),
			),
		)
		defer span.End()
		r = r.WithContext(ctx)
	}

	identity, err := m.authorize(r, req)
	if err != nil {
		if span != nil {
			span.SetStatus(codes.Error, string(core.KindOf(err)))
		}
		return nil, err
	}

	if span != nil {
		span.SetAttributes(attribute.String("secured.subject", identity.ExternalID))
	}
	return r.WithContext(core.SetIdentity(r.Context(), identity)), nil
}

func (m *Middleware) authorize(r *http.Request, req core.Requirement) (*core.Identity, error) {
	token, err := m.tokenExtractor(r)
	if err != nil {
		if m.logger != nil {
			m.logger.Error("failed to extract token from request",
				"error", err,
				"method", r.Method,
				"path", r.URL.Path)
		}
		return nil, m.authorizer.Reject(r.Context(), req, core.NewError(core.KindInvalidToken, fmt.Errorf("error extracting token: %w", err)))
	}

	return m.authorizer.Decide(r.Context(), req, token)
}

// Protect returns a middleware that only calls next for requests that
// satisfy req.
func (m *Middleware) Protect(req core.Requirement) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m.Skip(r) {
				next.ServeHTTP(w, r)
				return
			}

			authorized, err := m.Authorize(r, req)
			if err != nil {
				m.errorHandler(w, r, err)
				return
			}

			next.ServeHTTP(w, authorized)
		})
	}
}

// ProtectFunc is Protect for a handler function.
func (m *Middleware) ProtectFunc(req core.Requirement, next http.HandlerFunc) http.Handler {
	return m.Protect(req)(next)
}

// ErrorHandler returns the configured error handler.
func (m *Middleware) ErrorHandler() ErrorHandler {
	return m.errorHandler
}

func (m *Middleware) debug(msg string, args ...any) {
	if m.logger != nil {
		m.logger.Debug(msg, args...)
	}
}
