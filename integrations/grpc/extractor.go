package grpc

import (
	"context"
	"errors"

	"google.golang.org/grpc/metadata"
)

// TokenExtractor extracts the raw token from gRPC metadata.
type TokenExtractor func(ctx context.Context) (string, error)

// ErrMultipleAuthHeaders indicates multiple authorization metadata entries were provided.
var ErrMultipleAuthHeaders = errors.New("multiple authorization metadata entries are not allowed")

// MetadataTokenExtractor returns the "authorization" metadata value as is.
// The "Bearer " prefix is removed by the validator.
//
// gRPC normalizes incoming metadata keys to lowercase, so this extractor only
// checks the lowercase "authorization" key.
func MetadataTokenExtractor(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", nil
	}

	authHeaders := md.Get("authorization")
	switch len(authHeaders) {
	case 0:
		return "", nil
	case 1:
		return authHeaders[0], nil
	default:
		return "", ErrMultipleAuthHeaders
	}
}
