package core

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tbudis/secured/roles"
)

// mockAuthenticator is a mock implementation of Authenticator for testing.
type mockAuthenticator struct {
	authenticateFunc func(ctx context.Context, token, audience string) (*Identity, error)
}

func (m *mockAuthenticator) Authenticate(ctx context.Context, token, audience string) (*Identity, error) {
	if m.authenticateFunc != nil {
		return m.authenticateFunc(ctx, token, audience)
	}
	return nil, errors.New("not implemented")
}

// mockLogger is a mock implementation of Logger for testing.
type mockLogger struct {
	debugCalls []logCall
	infoCalls  []logCall
	warnCalls  []logCall
	errorCalls []logCall
}

type logCall struct {
	msg  string
	args []any
}

func (m *mockLogger) Debug(msg string, args ...any) {
	m.debugCalls = append(m.debugCalls, logCall{msg, args})
}

func (m *mockLogger) Info(msg string, args ...any) {
	m.infoCalls = append(m.infoCalls, logCall{msg, args})
}

func (m *mockLogger) Warn(msg string, args ...any) {
	m.warnCalls = append(m.warnCalls, logCall{msg, args})
}

func (m *mockLogger) Error(msg string, args ...any) {
	m.errorCalls = append(m.errorCalls, logCall{msg, args})
}

// recordingSink collects denial events.
type recordingSink struct {
	mu     sync.Mutex
	events []DenialEvent
}

func (s *recordingSink) RecordDenial(_ context.Context, event DenialEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

type recordingObserver struct {
	operations []string
	kinds      []Kind
}

func (o *recordingObserver) ObserveDecision(operation string, kind Kind, _ time.Duration) {
	o.operations = append(o.operations, operation)
	o.kinds = append(o.kinds, kind)
}

func staticAuthenticator(identity Identity) *mockAuthenticator {
	return &mockAuthenticator{
		authenticateFunc: func(ctx context.Context, token, audience string) (*Identity, error) {
			if token == "" {
				return nil, NewError(KindMissingToken, nil)
			}
			copied := identity
			return &copied, nil
		},
	}
}

func staticRoles(mask roles.Mask) RoleLookup {
	return RoleLookupFunc(func(context.Context, *Identity) (roles.Mask, error) {
		return mask, nil
	})
}

func TestNew(t *testing.T) {
	authenticator := staticAuthenticator(Identity{ExternalID: "user"})

	t.Run("successful creation with required options", func(t *testing.T) {
		authz, err := New(WithAuthenticator(authenticator))
		require.NoError(t, err)
		assert.NotNil(t, authz)
		assert.Equal(t, roles.Default(), authz.evaluator)
		assert.Nil(t, authz.sink)
	})

	t.Run("successful creation with all options", func(t *testing.T) {
		logger := &mockLogger{}
		authz, err := New(
			WithAuthenticator(authenticator),
			WithPermissionEvaluator(roles.MustNewRegistry(roles.Definition{Role: "READER", Position: 1})),
			WithRoleLookup(staticRoles(1)),
			WithDenialSink(&recordingSink{}),
			WithDenialSink(&recordingSink{}),
			WithDecisionObserver(&recordingObserver{}),
			WithLogger(logger),
			WithClock(time.Now),
		)
		require.NoError(t, err)
		assert.NotNil(t, authz.logger)
		assert.Len(t, authz.sink.(multiSink), 2)
	})

	t.Run("error when authenticator is missing", func(t *testing.T) {
		authz, err := New()
		assert.Error(t, err)
		assert.Nil(t, authz)
		assert.Contains(t, err.Error(), "authenticator is required")
	})

	t.Run("error when options receive nil", func(t *testing.T) {
		for name, opt := range map[string]Option{
			"authenticator": WithAuthenticator(nil),
			"evaluator":     WithPermissionEvaluator(nil),
			"role lookup":   WithRoleLookup(nil),
			"sink":          WithDenialSink(nil),
			"observer":      WithDecisionObserver(nil),
			"logger":        WithLogger(nil),
			"clock":         WithClock(nil),
		} {
			_, err := New(WithAuthenticator(authenticator), opt)
			assert.Error(t, err, name)
		}
	})
}

func TestAuthorizer_Decide(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	base := Identity{ID: 42, ExternalID: "idp|42", Issuer: "https://issuer.example.com/"}

	testCases := []struct {
		name          string
		authenticator Authenticator
		lookup        RoleLookup
		requirement   Requirement
		token         string
		wantIdentity  *Identity
		wantKind      Kind
		wantEvent     bool
	}{
		{
			name:          "it allows any authenticated identity when no roles are required",
			authenticator: staticAuthenticator(base),
			requirement:   Requirement{Operation: "list"},
			token:         "token",
			wantIdentity:  &base,
		},
		{
			name:          "it allows a caller holding one of the required roles",
			authenticator: staticAuthenticator(base),
			lookup:        staticRoles(0b0001),
			requirement:   Requirement{Operation: "delete", Roles: []roles.Role{roles.Admin}},
			token:         "token",
			wantIdentity:  &Identity{ID: 42, ExternalID: "idp|42", Issuer: "https://issuer.example.com/", Roles: 0b0001},
		},
		{
			name:          "it denies a caller missing every required role",
			authenticator: staticAuthenticator(base),
			lookup:        staticRoles(0b0001),
			requirement:   Requirement{Operation: "delete", Roles: []roles.Role{roles.PowerUser}},
			token:         "token",
			wantKind:      KindPermissionDenied,
			wantEvent:     true,
		},
		{
			name:          "it denies roles when no lookup is configured",
			authenticator: staticAuthenticator(base),
			requirement:   Requirement{Operation: "delete", Roles: []roles.Role{roles.Admin}},
			token:         "token",
			wantKind:      KindPermissionDenied,
			wantEvent:     true,
		},
		{
			name:          "it propagates the authentication failure kind",
			authenticator: staticAuthenticator(base),
			requirement:   Requirement{Operation: "read"},
			token:         "",
			wantKind:      KindMissingToken,
			wantEvent:     true,
		},
		{
			name: "it treats foreign authentication errors as invalid tokens",
			authenticator: &mockAuthenticator{
				authenticateFunc: func(context.Context, string, string) (*Identity, error) {
					return nil, errors.New("boom")
				},
			},
			requirement: Requirement{Operation: "read"},
			token:       "token",
			wantKind:    KindInvalidToken,
			wantEvent:   true,
		},
		{
			name: "it treats a missing identity without an error as an invalid token",
			authenticator: &mockAuthenticator{
				authenticateFunc: func(context.Context, string, string) (*Identity, error) {
					return nil, nil
				},
			},
			lookup:      staticRoles(0b0001),
			requirement: Requirement{Operation: "read", Roles: []roles.Role{roles.Admin}},
			token:       "token",
			wantKind:    KindInvalidToken,
			wantEvent:   true,
		},
		{
			name:          "it denies when the role lookup fails",
			authenticator: staticAuthenticator(base),
			lookup: RoleLookupFunc(func(context.Context, *Identity) (roles.Mask, error) {
				return 0, errors.New("directory down")
			}),
			requirement: Requirement{Operation: "read"},
			token:       "token",
			wantKind:    KindRoleLookup,
			wantEvent:   true,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			sink := &recordingSink{}
			observer := &recordingObserver{}
			opts := []Option{
				WithAuthenticator(testCase.authenticator),
				WithDenialSink(sink),
				WithDecisionObserver(observer),
				WithClock(func() time.Time { return fixed }),
			}
			if testCase.lookup != nil {
				opts = append(opts, WithRoleLookup(testCase.lookup))
			}
			authz, err := New(opts...)
			require.NoError(t, err)

			identity, err := authz.Decide(context.Background(), testCase.requirement, testCase.token)

			if testCase.wantKind == "" {
				require.NoError(t, err)
				assert.Equal(t, testCase.wantIdentity, identity)
				assert.Empty(t, sink.events, "no event is emitted on success")
			} else {
				assert.Nil(t, identity)
				assert.Equal(t, testCase.wantKind, KindOf(err))
				assert.ErrorIs(t, err, NewError(testCase.wantKind, nil))
			}

			if testCase.wantEvent {
				require.Len(t, sink.events, 1)
				event := sink.events[0]
				assert.Equal(t, testCase.wantKind, event.Kind)
				assert.Equal(t, testCase.wantKind.Message(), event.Reason)
				assert.Equal(t, testCase.requirement.Operation, event.Operation)
				assert.Equal(t, testCase.requirement.Roles, event.RequiredRoles)
				assert.Equal(t, fixed, event.Time)
			}

			assert.Equal(t, []string{testCase.requirement.Operation}, observer.operations)
			assert.Equal(t, []Kind{testCase.wantKind}, observer.kinds)
		})
	}
}

func TestAuthorizer_DenialEventCarriesBestEffortIdentity(t *testing.T) {
	sink := &recordingSink{}
	authz, err := New(
		WithAuthenticator(staticAuthenticator(Identity{ExternalID: "idp|7"})),
		WithRoleLookup(staticRoles(0b0100)),
		WithDenialSink(sink),
	)
	require.NoError(t, err)

	_, err = authz.Decide(context.Background(), Requirement{Operation: "purge", Roles: []roles.Role{roles.Admin}}, "token")
	require.ErrorIs(t, err, ErrPermissionDenied)

	require.Len(t, sink.events, 1)
	assert.Equal(t, "idp|7", sink.events[0].Subject())
	assert.Equal(t, roles.Mask(0b0100), sink.events[0].Roles())

	var empty DenialEvent
	assert.Empty(t, empty.Subject())
	assert.Zero(t, empty.Roles())
}

func TestAuthorizer_Reject(t *testing.T) {
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	extraction := errors.New("multiple authorization headers")

	testCases := []struct {
		name     string
		err      error
		wantKind Kind
	}{
		{
			name:     "it reports a foreign error as an invalid token",
			err:      extraction,
			wantKind: KindInvalidToken,
		},
		{
			name:     "it keeps the kind of a typed error",
			err:      NewError(KindMissingToken, extraction),
			wantKind: KindMissingToken,
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			sink := &recordingSink{}
			observer := &recordingObserver{}
			authz, err := New(
				WithAuthenticator(staticAuthenticator(Identity{ExternalID: "idp|1"})),
				WithDenialSink(sink),
				WithDecisionObserver(observer),
				WithClock(func() time.Time { return fixed }),
			)
			require.NoError(t, err)
			req := Requirement{Operation: "delete", Roles: []roles.Role{roles.Admin}}

			err = authz.Reject(context.Background(), req, testCase.err)

			assert.Equal(t, testCase.wantKind, KindOf(err))
			assert.ErrorIs(t, err, extraction)
			require.Len(t, sink.events, 1)
			assert.Equal(t, testCase.wantKind, sink.events[0].Kind)
			assert.Equal(t, "delete", sink.events[0].Operation)
			assert.Equal(t, []roles.Role{roles.Admin}, sink.events[0].RequiredRoles)
			assert.Nil(t, sink.events[0].Identity)
			assert.Equal(t, fixed, sink.events[0].Time)
			assert.Equal(t, []string{"delete"}, observer.operations)
			assert.Equal(t, []Kind{testCase.wantKind}, observer.kinds)
		})
	}

	t.Run("it ignores a nil error", func(t *testing.T) {
		sink := &recordingSink{}
		authz, err := New(
			WithAuthenticator(staticAuthenticator(Identity{})),
			WithDenialSink(sink),
		)
		require.NoError(t, err)

		assert.NoError(t, authz.Reject(context.Background(), Requirement{}, nil))
		assert.Empty(t, sink.events)
	})
}

func TestAuthorizer_DecideIsIdempotent(t *testing.T) {
	authz, err := New(
		WithAuthenticator(staticAuthenticator(Identity{ExternalID: "idp|1"})),
		WithRoleLookup(staticRoles(0b0010)),
	)
	require.NoError(t, err)

	req := Requirement{Roles: []roles.Role{roles.PowerUser}}
	first, err1 := authz.Decide(context.Background(), req, "token")
	second, err2 := authz.Decide(context.Background(), req, "token")

	assert.Equal(t, err1, err2)
	assert.Equal(t, first, second)
}

func TestAuthorizer_ConcurrentDecisions(t *testing.T) {
	sink := &recordingSink{}
	authz, err := New(
		WithAuthenticator(staticAuthenticator(Identity{ExternalID: "idp|1"})),
		WithRoleLookup(staticRoles(0b0001)),
		WithDenialSink(sink),
	)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := Requirement{Roles: []roles.Role{roles.Admin}}
			if i%2 == 1 {
				req.Roles = []roles.Role{roles.AccountUser}
			}
			_, _ = authz.Decide(context.Background(), req, "token")
		}(i)
	}
	wg.Wait()

	assert.Len(t, sink.events, 25)
}

func TestAuthorizer_LogsGrantAtDebug(t *testing.T) {
	logger := &mockLogger{}
	authz, err := New(
		WithAuthenticator(staticAuthenticator(Identity{ExternalID: "idp|1"})),
		WithLogger(logger),
	)
	require.NoError(t, err)

	_, err = authz.Decide(context.Background(), Requirement{Operation: "read"}, "token")
	require.NoError(t, err)

	require.Len(t, logger.debugCalls, 1)
	assert.Equal(t, "authorization granted", logger.debugCalls[0].msg)
	assert.Empty(t, logger.warnCalls)
}

func TestMultiSink(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	var calls int
	fn := DenialSinkFunc(func(context.Context, DenialEvent) { calls++ })

	sink := MultiSink(MultiSink(a, nil), b, fn)
	sink.RecordDenial(context.Background(), DenialEvent{Kind: KindExpiredToken})

	assert.Len(t, sink.(multiSink), 3)
	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
	assert.Equal(t, 1, calls)
}
