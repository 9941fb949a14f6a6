package grpc

import (
	"context"
	"net"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/tbudis/secured/core"
	"github.com/tbudis/secured/keys"
	"github.com/tbudis/secured/roles"
	"github.com/tbudis/secured/rolestore"
	"github.com/tbudis/secured/validator"
)

const (
	deleteMethod = "/accounts.v1.Accounts/DeleteAccount"
	listMethod   = "/accounts.v1.Accounts/ListAccounts"
	healthCheck  = "/grpc.health.v1.Health/Check"
	healthWatch  = "/grpc.health.v1.Health/Watch"
)

var testSecret = []byte("your-256-bit-secret-is-just-enough")

func signToken(t *testing.T, subject string) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"aud": "accounts-api",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(testSecret)
	require.NoError(t, err)
	return token
}

func newAuthorizer(t *testing.T, opts ...core.Option) *core.Authorizer {
	t.Helper()
	v, err := validator.New(validator.WithMaterial(keys.NewMaterial(testSecret, nil)))
	require.NoError(t, err)
	authz, err := core.New(append([]core.Option{
		core.WithAuthenticator(v),
		core.WithRoleLookup(rolestore.Static{
			"admin": roles.Default().Mask(roles.Admin),
			"user":  roles.Default().Mask(roles.AccountUser),
		}),
	}, opts...)...)
	require.NoError(t, err)
	return authz
}

func incoming(token string) context.Context {
	if token == "" {
		return context.Background()
	}
	return metadata.NewIncomingContext(context.Background(), metadata.Pairs("authorization", "Bearer "+token))
}

func identityHandler(ctx context.Context, _ any) (any, error) {
	identity, err := GetIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return identity.ExternalID, nil
}

func TestUnaryServerInterceptor(t *testing.T) {
	interceptor, err := New(
		WithAuthorizer(newAuthorizer(t)),
		WithRequirement(deleteMethod, core.Requirement{Audience: "accounts-api", Roles: []roles.Role{roles.Admin}}),
		WithExcludedMethods(healthCheck),
	)
	require.NoError(t, err)

	testCases := []struct {
		name     string
		method   string
		token    string
		wantResp any
		wantCode codes.Code
	}{
		{
			name:     "it lets an admin delete",
			method:   deleteMethod,
			token:    signToken(t, "admin"),
			wantResp: "admin",
		},
		{
			name:     "it forbids a user to delete",
			method:   deleteMethod,
			token:    signToken(t, "user"),
			wantCode: codes.PermissionDenied,
		},
		{
			name:     "it lets any authenticated caller use a method without requirement",
			method:   listMethod,
			token:    signToken(t, "user"),
			wantResp: "user",
		},
		{
			name:     "it rejects a missing token",
			method:   listMethod,
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "it rejects a garbage token",
			method:   deleteMethod,
			token:    "garbage",
			wantCode: codes.Unauthenticated,
		},
		{
			name:     "it skips excluded methods",
			method:   healthCheck,
			wantResp: "skipped",
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			handler := identityHandler
			if testCase.method == healthCheck {
				handler = func(ctx context.Context, _ any) (any, error) {
					assert.False(t, HasIdentity(ctx))
					return "skipped", nil
				}
			}

			resp, err := interceptor.UnaryServerInterceptor()(
				incoming(testCase.token), nil, &grpc.UnaryServerInfo{FullMethod: testCase.method}, handler)

			if testCase.wantCode != codes.OK {
				assert.Nil(t, resp)
				assert.Equal(t, testCase.wantCode, status.Code(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, testCase.wantResp, resp)
		})
	}
}

type fakeServerStream struct {
	grpc.ServerStream
	ctx context.Context
}

func (s *fakeServerStream) Context() context.Context { return s.ctx }

func TestStreamServerInterceptor(t *testing.T) {
	interceptor, err := New(
		WithAuthorizer(newAuthorizer(t)),
		WithDefaultRequirement(core.Requirement{Roles: []roles.Role{roles.Admin}}),
	)
	require.NoError(t, err)

	t.Run("it wraps the stream with the identity", func(t *testing.T) {
		var got *core.Identity
		err := interceptor.StreamServerInterceptor()(nil, &fakeServerStream{ctx: incoming(signToken(t, "admin"))},
			&grpc.StreamServerInfo{FullMethod: listMethod},
			func(_ any, ss grpc.ServerStream) error {
				got = MustGetIdentity(ss.Context())
				return nil
			})

		require.NoError(t, err)
		assert.Equal(t, "admin", got.ExternalID)
		assert.Equal(t, roles.Default().Mask(roles.Admin), got.Roles)
	})

	t.Run("it enforces the default requirement", func(t *testing.T) {
		called := false
		err := interceptor.StreamServerInterceptor()(nil, &fakeServerStream{ctx: incoming(signToken(t, "user"))},
			&grpc.StreamServerInfo{FullMethod: listMethod},
			func(any, grpc.ServerStream) error {
				called = true
				return nil
			})

		assert.Equal(t, codes.PermissionDenied, status.Code(err))
		assert.False(t, called)
	})
}

func TestInterceptor_Requirement(t *testing.T) {
	interceptor, err := New(
		WithAuthorizer(newAuthorizer(t)),
		WithRequirement(deleteMethod, core.Requirement{Operation: "DeleteAccount", Roles: []roles.Role{roles.Admin}}),
		WithRequirement(listMethod, core.Requirement{Audience: "accounts-api"}),
		WithDefaultRequirement(core.Requirement{Roles: []roles.Role{roles.PowerUser}}),
	)
	require.NoError(t, err)

	assert.Equal(t, core.Requirement{Operation: "DeleteAccount", Roles: []roles.Role{roles.Admin}}, interceptor.Requirement(deleteMethod))
	assert.Equal(t, core.Requirement{Operation: listMethod, Audience: "accounts-api"}, interceptor.Requirement(listMethod))
	assert.Equal(t, core.Requirement{Operation: healthCheck, Roles: []roles.Role{roles.PowerUser}}, interceptor.Requirement(healthCheck))
}

func TestInterceptor_DenialEvents(t *testing.T) {
	var (
		mu     sync.Mutex
		events []core.DenialEvent
	)
	sink := core.DenialSinkFunc(func(_ context.Context, event core.DenialEvent) {
		mu.Lock()
		defer mu.Unlock()
		events = append(events, event)
	})

	interceptor, err := New(
		WithAuthorizer(newAuthorizer(t, core.WithDenialSink(sink))),
		WithRequirement(deleteMethod, core.Requirement{Roles: []roles.Role{roles.Admin}}),
	)
	require.NoError(t, err)

	_, err = interceptor.UnaryServerInterceptor()(incoming(signToken(t, "user")), nil,
		&grpc.UnaryServerInfo{FullMethod: deleteMethod}, identityHandler)
	require.Error(t, err)

	require.Len(t, events, 1)
	assert.Equal(t, core.KindPermissionDenied, events[0].Kind)
	assert.Equal(t, deleteMethod, events[0].Operation)
	assert.Equal(t, "user", events[0].Subject())
}

func TestInterceptor_Server(t *testing.T) {
	interceptor, err := New(
		WithAuthorizer(newAuthorizer(t)),
		WithRequirement(healthCheck, core.Requirement{Audience: "accounts-api", Roles: []roles.Role{roles.Admin}}),
		WithRequirement(healthWatch, core.Requirement{Roles: []roles.Role{roles.Admin}}),
	)
	require.NoError(t, err)

	listener := bufconn.Listen(1 << 20)
	server := grpc.NewServer(
		grpc.UnaryInterceptor(interceptor.UnaryServerInterceptor()),
		grpc.StreamInterceptor(interceptor.StreamServerInterceptor()),
	)
	healthpb.RegisterHealthServer(server, health.NewServer())
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return listener.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	client := healthpb.NewHealthClient(conn)

	outgoing := func(subject string) context.Context {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		t.Cleanup(cancel)
		if subject == "" {
			return ctx
		}
		return metadata.AppendToOutgoingContext(ctx, "authorization", "Bearer "+signToken(t, subject))
	}

	t.Run("it serves a unary call for an admin", func(t *testing.T) {
		resp, err := client.Check(outgoing("admin"), &healthpb.HealthCheckRequest{})
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	})

	t.Run("it rejects a unary call without a token", func(t *testing.T) {
		_, err := client.Check(outgoing(""), &healthpb.HealthCheckRequest{})
		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("it rejects a unary call without the role", func(t *testing.T) {
		_, err := client.Check(outgoing("user"), &healthpb.HealthCheckRequest{})
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
		assert.Equal(t, "no permission to access resource", status.Convert(err).Message())
	})

	t.Run("it serves a stream for an admin", func(t *testing.T) {
		stream, err := client.Watch(outgoing("admin"), &healthpb.HealthCheckRequest{})
		require.NoError(t, err)
		resp, err := stream.Recv()
		require.NoError(t, err)
		assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())
	})

	t.Run("it rejects a stream without the role", func(t *testing.T) {
		stream, err := client.Watch(outgoing("user"), &healthpb.HealthCheckRequest{})
		require.NoError(t, err)
		_, err = stream.Recv()
		assert.Equal(t, codes.PermissionDenied, status.Code(err))
	})
}

func TestInterceptor_DenialEventsForMalformedMetadata(t *testing.T) {
	var events []core.DenialEvent
	sink := core.DenialSinkFunc(func(_ context.Context, event core.DenialEvent) {
		events = append(events, event)
	})

	interceptor, err := New(
		WithAuthorizer(newAuthorizer(t, core.WithDenialSink(sink))),
		WithRequirement(deleteMethod, core.Requirement{Roles: []roles.Role{roles.Admin}}),
	)
	require.NoError(t, err)

	ctx := metadata.NewIncomingContext(context.Background(), metadata.Pairs(
		"authorization", "Bearer "+signToken(t, "admin"),
		"authorization", "Bearer "+signToken(t, "user"),
	))
	_, err = interceptor.UnaryServerInterceptor()(ctx, nil,
		&grpc.UnaryServerInfo{FullMethod: deleteMethod}, identityHandler)

	assert.Equal(t, codes.InvalidArgument, status.Code(err))
	require.Len(t, events, 1)
	assert.Equal(t, core.KindInvalidToken, events[0].Kind)
	assert.Equal(t, deleteMethod, events[0].Operation)
	assert.Equal(t, []roles.Role{roles.Admin}, events[0].RequiredRoles)
	assert.Nil(t, events[0].Identity)
	assert.ErrorIs(t, events[0].Details, ErrMultipleAuthHeaders)
}

func TestInterceptor_UnlistedMethodRequiresToken(t *testing.T) {
	interceptor, err := New(
		WithAuthorizer(newAuthorizer(t)),
		WithRequirement(deleteMethod, core.Requirement{Roles: []roles.Role{roles.Admin}}),
	)
	require.NoError(t, err)
	unary := interceptor.UnaryServerInterceptor()
	info := &grpc.UnaryServerInfo{FullMethod: listMethod}

	t.Run("it rejects a call without a token", func(t *testing.T) {
		_, err := unary(context.Background(), nil, info, identityHandler)

		assert.Equal(t, codes.Unauthenticated, status.Code(err))
	})

	t.Run("it accepts any valid token without checking roles", func(t *testing.T) {
		response, err := unary(incoming(signToken(t, "user")), nil, info, identityHandler)

		require.NoError(t, err)
		assert.NotNil(t, response)
	})

	t.Run("it reports no roles for the method", func(t *testing.T) {
		assert.Equal(t, core.Requirement{Operation: listMethod}, interceptor.Requirement(listMethod))
	})
}
