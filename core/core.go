// Package core provides the framework-agnostic authorization decision: it
// authenticates a bearer token, resolves the caller's role bitmask and
// checks it against the requirement of the protected operation.
//
// The Authorizer encapsulates the decision and can be wrapped by
// transport-specific adapters (net/http, gin, echo, gRPC).
package core

import (
	"context"
	"errors"
	"time"

	"github.com/tbudis/secured/roles"
)

// Authenticator verifies a raw token and returns the identity it asserts.
// Failures must be reported as *Error values. A nil identity returned with
// a nil error is treated as an invalid token.
type Authenticator interface {
	Authenticate(ctx context.Context, rawToken, expectedAudience string) (*Identity, error)
}

// PermissionEvaluator decides whether a role bitmask satisfies a set of
// required roles. *roles.Registry implements it.
type PermissionEvaluator interface {
	IsAuthorized(required []roles.Role, mask roles.Mask) bool
}

// RoleLookup resolves the role bitmask of an authenticated identity.
type RoleLookup interface {
	LookupRoleBitmask(ctx context.Context, identity *Identity) (roles.Mask, error)
}

// RoleLookupFunc adapts a function to a RoleLookup.
type RoleLookupFunc func(ctx context.Context, identity *Identity) (roles.Mask, error)

// LookupRoleBitmask calls f.
func (f RoleLookupFunc) LookupRoleBitmask(ctx context.Context, identity *Identity) (roles.Mask, error) {
	return f(ctx, identity)
}

// Logger defines an optional logging interface compatible with log/slog.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Authorizer is the composition root of the decision. It holds no mutable
// state and is safe for concurrent use.
type Authorizer struct {
	authenticator Authenticator
	evaluator     PermissionEvaluator
	roleLookup    RoleLookup
	sink          DenialSink
	observer      DecisionObserver
	logger        Logger
	now           func() time.Time
}

// Decide authenticates rawToken against req.Audience, resolves the caller's
// roles and checks them against req.Roles.
//
// On success it returns the identity with its role bitmask populated. On
// failure it returns a nil identity and an *Error whose Kind tells why, and
// reports a DenialEvent to the configured sink.
func (a *Authorizer) Decide(ctx context.Context, req Requirement, rawToken string) (*Identity, error) {
	start := a.now()

	identity, err := a.decide(ctx, req, rawToken)

	if a.observer != nil {
		a.observer.ObserveDecision(req.Operation, KindOf(err), a.now().Sub(start))
	}

	return identity, err
}

// Reject records err as a denial of req without authenticating anything.
// Adapters use it for requests that fail before a token is available, such
// as a malformed authorization header. Errors that are not *Error values are
// reported as invalid tokens. A nil err yields nil.
func (a *Authorizer) Reject(ctx context.Context, req Requirement, err error) error {
	if err == nil {
		return nil
	}

	denied := a.deny(ctx, req, nil, AsError(err))

	if a.observer != nil {
		a.observer.ObserveDecision(req.Operation, denied.Kind, 0)
	}

	return denied
}

func (a *Authorizer) decide(ctx context.Context, req Requirement, rawToken string) (*Identity, error) {
	identity, err := a.authenticator.Authenticate(ctx, rawToken, req.Audience)
	if err != nil {
		return nil, a.deny(ctx, req, nil, AsError(err))
	}
	if identity == nil {
		return nil, a.deny(ctx, req, nil, NewError(KindInvalidToken, errors.New("authenticator returned no identity")))
	}

	if a.roleLookup != nil {
		mask, err := a.roleLookup.LookupRoleBitmask(ctx, identity)
		if err != nil {
			return nil, a.deny(ctx, req, identity, NewError(KindRoleLookup, err))
		}
		identity.Roles = mask
	}

	if !a.evaluator.IsAuthorized(req.Roles, identity.Roles) {
		return nil, a.deny(ctx, req, identity, NewError(KindPermissionDenied, nil))
	}

	if a.logger != nil {
		a.logger.Debug("authorization granted",
			"operation", req.Operation,
			"subject", identity.ExternalID,
			"roles", identity.Roles)
	}

	return identity, nil
}

func (a *Authorizer) deny(ctx context.Context, req Requirement, identity *Identity, err *Error) *Error {
	if a.sink != nil {
		event := DenialEvent{
			Kind:          err.Kind,
			Reason:        err.Message,
			Details:       err.Details,
			Operation:     req.Operation,
			RequiredRoles: append([]roles.Role(nil), req.Roles...),
			Time:          a.now(),
		}
		if identity != nil {
			snapshot := *identity
			event.Identity = &snapshot
		}
		a.sink.RecordDenial(ctx, event)
	}
	return err
}
