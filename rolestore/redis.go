package rolestore

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/tbudis/secured/core"
	"github.com/tbudis/secured/roles"
)

// DefaultKeyPrefix is prepended to the external id to form the Redis key.
const DefaultKeyPrefix = "secured:roles:"

// ErrUndefinedRoleBits is returned when a stored mask sets bits that no
// registered role occupies.
var ErrUndefinedRoleBits = errors.New("role mask has undefined bits")

// Redis reads role bitmasks stored as decimal strings under
// <prefix><external id>. A missing key means no roles.
type Redis struct {
	client   redis.Cmdable
	prefix   string
	registry *roles.Registry
}

// RedisOption configures a Redis store.
type RedisOption func(*Redis) error

// WithKeyPrefix sets the key prefix. Defaults to DefaultKeyPrefix.
func WithKeyPrefix(prefix string) RedisOption {
	return func(r *Redis) error {
		r.prefix = prefix
		return nil
	}
}

// WithRegistry sets the registry stored masks are validated against.
// Defaults to roles.Default().
func WithRegistry(registry *roles.Registry) RedisOption {
	return func(r *Redis) error {
		if registry == nil {
			return errors.New("registry cannot be nil")
		}
		r.registry = registry
		return nil
	}
}

// NewRedis returns a Redis store reading through client.
func NewRedis(client redis.Cmdable, opts ...RedisOption) (*Redis, error) {
	if client == nil {
		return nil, errors.New("redis client cannot be nil")
	}

	r := &Redis{
		client:   client,
		prefix:   DefaultKeyPrefix,
		registry: roles.Default(),
	}
	for _, opt := range opts {
		if err := opt(r); err != nil {
			return nil, fmt.Errorf("invalid option: %w", err)
		}
	}
	return r, nil
}

func (r *Redis) key(externalID string) string {
	return r.prefix + externalID
}

// LookupRoleBitmask implements core.RoleLookup.
func (r *Redis) LookupRoleBitmask(ctx context.Context, identity *core.Identity) (roles.Mask, error) {
	if identity == nil || identity.ExternalID == "" {
		return 0, nil
	}

	val, err := r.client.Get(ctx, r.key(identity.ExternalID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("could not read roles of %s: %w", identity.ExternalID, err)
	}

	n, err := strconv.ParseUint(val, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("stored roles of %s are not a bitmask: %w", identity.ExternalID, err)
	}

	mask := roles.Mask(n)
	if !r.registry.Valid(mask) {
		return 0, fmt.Errorf("%w: %s has %s", ErrUndefinedRoleBits, identity.ExternalID, mask)
	}
	return mask, nil
}

// Set stores the role bitmask of externalID.
func (r *Redis) Set(ctx context.Context, externalID string, mask roles.Mask) error {
	if externalID == "" {
		return errors.New("external id cannot be empty")
	}
	if !r.registry.Valid(mask) {
		return fmt.Errorf("%w: %s", ErrUndefinedRoleBits, mask)
	}
	return r.client.Set(ctx, r.key(externalID), strconv.FormatUint(uint64(mask), 10), 0).Err()
}

// Delete removes the roles of externalID.
func (r *Redis) Delete(ctx context.Context, externalID string) error {
	return r.client.Del(ctx, r.key(externalID)).Err()
}
