// Package securedecho adapts secured.Middleware to echo.
package securedecho

import (
	"github.com/labstack/echo/v4"

	"github.com/tbudis/secured"
	"github.com/tbudis/secured/core"
)

// DefaultIdentityKey is the echo context key the identity is stored under.
var DefaultIdentityKey = "identity"

// echoMiddlewareConfig holds all configuration for the middleware
type echoMiddlewareConfig struct {
	errorHandler func(echo.Context, error) error
	contextKey   string
}

// Protect returns an echo middleware that rejects requests which do not
// satisfy req.
func Protect(m *secured.Middleware, req core.Requirement, opts ...Option) echo.MiddlewareFunc {
	config := &echoMiddlewareConfig{
		errorHandler: defaultEchoErrorHandler,
		contextKey:   DefaultIdentityKey,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if m.Skip(c.Request()) {
				return next(c)
			}

			authorized, err := m.Authorize(c.Request(), req)
			if err != nil {
				return config.errorHandler(c, err)
			}

			c.SetRequest(authorized)
			if identity, err := core.GetIdentity(authorized.Context()); err == nil {
				c.Set(config.contextKey, identity)
			}

			return next(c)
		}
	}
}

func defaultEchoErrorHandler(c echo.Context, err error) error {
	return c.JSON(secured.StatusCode(err), secured.Response{
		Status: false,
		Reason: secured.Reason(err),
	})
}

// GetIdentity extracts the identity from the Echo context
func GetIdentity(c echo.Context, contextKey string) (*core.Identity, bool) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}
	identity, ok := c.Get(contextKey).(*core.Identity)
	return identity, ok
}
