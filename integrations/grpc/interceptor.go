package grpc

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/grpc"

	"github.com/tbudis/secured/core"
)

// Interceptor enforces per-method requirements on gRPC servers.
type Interceptor struct {
	authorizer         *core.Authorizer
	requirements       map[string]core.Requirement
	defaultRequirement core.Requirement
	tokenExtractor     TokenExtractor
	errorHandler       ErrorHandler
	excludedMethods    map[string]bool
	logger             Logger
}

// New creates a new gRPC interceptor with the provided options.
// WithAuthorizer option is required.
func New(opts ...Option) (*Interceptor, error) {
	interceptor := &Interceptor{
		tokenExtractor:  MetadataTokenExtractor,
		errorHandler:    DefaultErrorHandler,
		excludedMethods: make(map[string]bool),
	}

	for _, opt := range opts {
		if err := opt(interceptor); err != nil {
			return nil, err
		}
	}

	if interceptor.authorizer == nil {
		return nil, errors.New("authorizer is required, use WithAuthorizer option")
	}

	return interceptor, nil
}

// UnaryServerInterceptor returns a grpc.UnaryServerInterceptor that
// authorizes every call and makes the identity available in the request
// context.
func (i *Interceptor) UnaryServerInterceptor() grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req any,
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (any, error) {
		if i.excluded(info.FullMethod) {
			return handler(ctx, req)
		}

		authorizedCtx, err := i.authorize(ctx, info.FullMethod)
		if err != nil {
			return nil, err
		}

		return handler(authorizedCtx, req)
	}
}

// StreamServerInterceptor returns a grpc.StreamServerInterceptor that
// authorizes every stream and makes the identity available in the stream
// context.
func (i *Interceptor) StreamServerInterceptor() grpc.StreamServerInterceptor {
	return func(
		srv any,
		ss grpc.ServerStream,
		info *grpc.StreamServerInfo,
		handler grpc.StreamHandler,
	) error {
		if i.excluded(info.FullMethod) {
			return handler(srv, ss)
		}

		authorizedCtx, err := i.authorize(ss.Context(), info.FullMethod)
		if err != nil {
			return err
		}

		return handler(srv, &wrappedServerStream{
			ServerStream: ss,
			ctx:          authorizedCtx,
		})
	}
}

// Requirement returns the requirement enforced for method.
func (i *Interceptor) Requirement(method string) core.Requirement {
	req, ok := i.requirements[method]
	if !ok {
		req = i.defaultRequirement
	}
	if req.Operation == "" {
		req.Operation = method
	}
	return req
}

func (i *Interceptor) excluded(method string) bool {
	if !i.excludedMethods[method] {
		return false
	}
	if i.logger != nil {
		i.logger.Debug("skipping authorization for excluded method",
			"method", method)
	}
	return true
}

func (i *Interceptor) authorize(ctx context.Context, method string) (context.Context, error) {
	token, err := i.tokenExtractor(ctx)
	if err != nil {
		if i.logger != nil {
			i.logger.Error("failed to extract token from gRPC metadata",
				"error", err,
				"method", method)
		}
		rejected := i.authorizer.Reject(ctx, i.Requirement(method), core.NewError(core.KindInvalidToken, fmt.Errorf("error extracting token: %w", err)))
		return ctx, i.errorHandler(rejected)
	}

	identity, err := i.authorizer.Decide(ctx, i.Requirement(method), token)
	if err != nil {
		if i.logger != nil {
			i.logger.Warn("authorization failed",
				"error", err,
				"method", method)
		}
		return ctx, i.errorHandler(err)
	}

	return core.SetIdentity(ctx, identity), nil
}

// wrappedServerStream wraps grpc.ServerStream with a custom context.
type wrappedServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

// Context returns the wrapped context with the identity.
func (w *wrappedServerStream) Context() context.Context {
	return w.ctx
}
