// Package securedgin adapts secured.Middleware to gin.
package securedgin

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/tbudis/secured"
	"github.com/tbudis/secured/core"
)

// DefaultIdentityKey is the gin context key the identity is stored under.
const DefaultIdentityKey = "identity"

var (
	ErrMissingIdentity = errors.New("no identity found in context")
	ErrInvalidIdentity = errors.New("invalid identity type")
)

type GinMiddlewareConfig struct {
	errorHandler func(*gin.Context, error)
	contextKey   string
}

// Protect returns a gin handler that aborts requests which do not satisfy
// req. Requests skipped by m pass through without an identity.
func Protect(m *secured.Middleware, req core.Requirement, opts ...Option) gin.HandlerFunc {
	config := &GinMiddlewareConfig{
		errorHandler: defaultGinErrorHandler,
		contextKey:   DefaultIdentityKey,
	}

	for _, opt := range opts {
		opt(config)
	}

	return func(c *gin.Context) {
		if m.Skip(c.Request) {
			c.Next()
			return
		}

		authorized, err := m.Authorize(c.Request, req)
		if err != nil {
			config.errorHandler(c, err)
			c.Abort()
			return
		}

		c.Request = authorized
		if identity, err := core.GetIdentity(authorized.Context()); err == nil {
			c.Set(config.contextKey, identity)
		}

		c.Next()
	}
}

func defaultGinErrorHandler(c *gin.Context, err error) {
	c.AbortWithStatusJSON(secured.StatusCode(err), secured.Response{
		Status: false,
		Reason: secured.Reason(err),
	})
}

// GetIdentity returns the identity stored under contextKey, or under
// DefaultIdentityKey when contextKey is empty.
func GetIdentity(c *gin.Context, contextKey string) (*core.Identity, error) {
	if contextKey == "" {
		contextKey = DefaultIdentityKey
	}
	value, exists := c.Get(contextKey)
	if !exists {
		return nil, ErrMissingIdentity
	}

	identity, ok := value.(*core.Identity)
	if !ok {
		return nil, ErrInvalidIdentity
	}

	return identity, nil
}
