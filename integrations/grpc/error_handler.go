package grpc

import (
	"errors"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/tbudis/secured/core"
)

// ErrorHandler converts denials to gRPC status errors.
type ErrorHandler func(error) error

// DefaultErrorHandler maps denials to gRPC status codes: Unauthenticated
// for failed authentication, PermissionDenied for a wrong audience or a
// missing role, Internal for a failed role lookup. The status message is the
// client-facing reason.
func DefaultErrorHandler(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, ErrMultipleAuthHeaders) {
		return status.Error(codes.InvalidArgument, ErrMultipleAuthHeaders.Error())
	}

	var authErr *core.Error
	if !errors.As(err, &authErr) {
		return status.Error(codes.Internal, "something went wrong while checking the token")
	}

	return status.Error(Code(authErr.Kind), authErr.Message)
}

// Code returns the gRPC status code for a denial kind.
func Code(kind core.Kind) codes.Code {
	switch {
	case kind == core.KindInvalidAudience:
		return codes.PermissionDenied
	case kind.IsAuthentication():
		return codes.Unauthenticated
	case kind == core.KindPermissionDenied:
		return codes.PermissionDenied
	default:
		return codes.Internal
	}
}
