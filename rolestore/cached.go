package rolestore

import (
	"context"
	"errors"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/tbudis/secured/core"
	"github.com/tbudis/secured/roles"
)

// Cached memoizes another lookup for a fixed time. Failed lookups are not
// cached.
type Cached struct {
	next  core.RoleLookup
	cache *cache.Cache
}

// NewCached wraps next with a cache whose entries live for ttl.
func NewCached(next core.RoleLookup, ttl time.Duration) (*Cached, error) {
	if next == nil {
		return nil, errors.New("role lookup cannot be nil")
	}
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}
	return &Cached{
		next:  next,
		cache: cache.New(ttl, 2*ttl),
	}, nil
}

func cacheKey(identity *core.Identity) string {
	return identity.Issuer + "|" + identity.ExternalID
}

// LookupRoleBitmask implements core.RoleLookup.
func (c *Cached) LookupRoleBitmask(ctx context.Context, identity *core.Identity) (roles.Mask, error) {
	if identity == nil {
		return c.next.LookupRoleBitmask(ctx, identity)
	}

	key := cacheKey(identity)
	if v, found := c.cache.Get(key); found {
		if mask, ok := v.(roles.Mask); ok {
			return mask, nil
		}
	}

	mask, err := c.next.LookupRoleBitmask(ctx, identity)
	if err != nil {
		return 0, err
	}

	c.cache.SetDefault(key, mask)
	return mask, nil
}

// Invalidate drops the cached roles of identity.
func (c *Cached) Invalidate(identity *core.Identity) {
	c.cache.Delete(cacheKey(identity))
}

// Flush drops every cached entry.
func (c *Cached) Flush() {
	c.cache.Flush()
}
