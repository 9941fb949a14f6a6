// Package grpc provides gRPC server interceptors that enforce per-method
// role requirements.
//
// Both the unary and the streaming interceptor read the bearer token from
// the "authorization" metadata, decide it with a core.Authorizer and store
// the identity in the handler context.
//
// # Basic Usage
//
//	import (
//	    securedgrpc "github.com/tbudis/secured/integrations/grpc"
//	    "google.golang.org/grpc"
//	)
//
//	interceptor, err := securedgrpc.New(
//	    securedgrpc.WithAuthorizer(authz),
//	    securedgrpc.WithRequirement("/accounts.v1.Accounts/DeleteAccount", core.Requirement{
//	        Audience: "accounts-api",
//	        Roles:    []roles.Role{roles.Admin, roles.AccountAdmin},
//	    }),
//	    securedgrpc.WithExcludedMethods("/grpc.health.v1.Health/Check"),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	server := grpc.NewServer(
//	    grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
//	    grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
//	)
//
// Methods without a requirement of their own get the one set with
// WithDefaultRequirement, which by default only requires a valid token.
// Unprotected methods, such as health checks, must be listed with
// WithExcludedMethods.
//
// # Status Codes
//
//   - Unauthenticated: missing, invalid or expired token, unavailable key
//   - PermissionDenied: wrong audience, missing role
//   - InvalidArgument: more than one authorization entry
//   - Internal: role lookup failure
//
// # Identity Retrieval
//
//	func (s *server) DeleteAccount(ctx context.Context, req *pb.DeleteAccountRequest) (*pb.Account, error) {
//	    identity, err := securedgrpc.GetIdentity(ctx)
//	    if err != nil {
//	        return nil, status.Error(codes.Internal, "failed to get identity")
//	    }
//	    ...
//	}
package grpc
