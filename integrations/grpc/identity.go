package grpc

import (
	"context"

	"github.com/tbudis/secured/core"
)

// GetIdentity retrieves the identity the interceptor stored in ctx.
//
// Example:
//
//	identity, err := securedgrpc.GetIdentity(ctx)
//	if err != nil {
//	    return nil, status.Error(codes.Internal, "failed to get identity")
//	}
//	fmt.Println(identity.ExternalID)
func GetIdentity(ctx context.Context) (*core.Identity, error) {
	return core.GetIdentity(ctx)
}

// MustGetIdentity retrieves the identity from the context or panics.
// Use only when you are certain the interceptor has run.
func MustGetIdentity(ctx context.Context) *core.Identity {
	return core.MustGetIdentity(ctx)
}

// HasIdentity checks if an identity exists in the context.
func HasIdentity(ctx context.Context) bool {
	return core.HasIdentity(ctx)
}
