/*
Package core provides the framework-agnostic authorization decision that
the transport adapters (net/http, gin, echo, gRPC) wrap.

# Architecture

	┌─────────────────────────────────────────────┐
	│         Transport Adapters                  │
	│  (net/http, gin, echo, gRPC)                │
	└────────────────┬────────────────────────────┘
	                 │ Requirement + raw token
	                 ▼
	┌─────────────────────────────────────────────┐
	│          Authorizer (THIS PACKAGE)          │
	│  • Authenticate (validator package)         │
	│  • Role bitmask lookup hook                 │
	│  • Permission evaluation (roles package)    │
	│  • Denial events                            │
	└─────────────────────────────────────────────┘

# Basic Usage

	authz, err := core.New(
	    core.WithAuthenticator(v),
	    core.WithRoleLookup(store),
	)
	if err != nil {
	    log.Fatal(err)
	}

	identity, err := authz.Decide(ctx, core.Requirement{
	    Operation: "DeleteAccount",
	    Audience:  "accounts-api",
	    Roles:     []roles.Role{roles.Admin, roles.AccountAdmin},
	}, r.Header.Get("Authorization"))

# Error Handling

Every failure is an *Error. Branch on its Kind, or use errors.Is with the
sentinels:

	if errors.Is(err, core.ErrExpiredToken) {
	    // ask the client to refresh
	}

	var authErr *core.Error
	if errors.As(err, &authErr) && authErr.Kind.IsAuthentication() {
	    // 401
	}

# Denial Events

Denied decisions are reported to the configured DenialSink with the reason,
the operation, the required roles and whatever is known about the caller.
Successful decisions produce no event.
*/
package core
