package core

import "context"

// contextKey is an unexported type for context keys to prevent collisions.
type contextKey int

const (
	identityKey contextKey = iota
)

// GetIdentity retrieves the identity stored by a transport adapter after a
// successful decision.
//
// Example usage:
//
//	identity, err := core.GetIdentity(ctx)
//	if err != nil {
//	    return err
//	}
//	fmt.Println(identity.ExternalID)
func GetIdentity(ctx context.Context) (*Identity, error) {
	identity, ok := ctx.Value(identityKey).(*Identity)
	if !ok || identity == nil {
		return nil, ErrIdentityNotFound
	}
	return identity, nil
}

// MustGetIdentity retrieves the identity from the context or panics.
// Use only when you are certain the request went through an adapter.
func MustGetIdentity(ctx context.Context) *Identity {
	identity, err := GetIdentity(ctx)
	if err != nil {
		panic(err)
	}
	return identity
}

// SetIdentity stores the identity in the context.
func SetIdentity(ctx context.Context, identity *Identity) context.Context {
	return context.WithValue(ctx, identityKey, identity)
}

// HasIdentity checks if an identity exists in the context without retrieving it.
func HasIdentity(ctx context.Context) bool {
	_, err := GetIdentity(ctx)
	return err == nil
}
