/*
Package secured provides net/http middleware that verifies bearer tokens and
enforces role-based requirements per route.

A request passes when its token is signed with a configured key, is meant
for the route's audience, and the caller holds at least one of the route's
roles. Roles are bits in a 32-bit mask resolved after authentication by a
core.RoleLookup.

# Quick Start

	material, err := keys.Load(keys.Settings{
	    SecretKey:       os.Getenv("JWT_SECRET"),
	    CertificateFile: "public.crt",
	    ConfigDir:       "/etc/secured",
	})
	if err != nil {
	    log.Fatal(err)
	}

	v, err := validator.New(validator.WithMaterial(material))
	if err != nil {
	    log.Fatal(err)
	}

	authz, err := core.New(
	    core.WithAuthenticator(v),
	    core.WithRoleLookup(store),
	    core.WithDenialSink(secured.NewLogSink(slog.Default(), nil)),
	)
	if err != nil {
	    log.Fatal(err)
	}

	m, err := secured.New(secured.WithAuthorizer(authz))
	if err != nil {
	    log.Fatal(err)
	}

	http.Handle("/accounts", m.Protect(core.Requirement{
	    Operation: "DeleteAccount",
	    Audience:  "accounts-api",
	    Roles:     []roles.Role{roles.Admin, roles.AccountAdmin},
	})(accountsHandler))

# Accessing the Identity

	func accountsHandler(w http.ResponseWriter, r *http.Request) {
	    identity, err := secured.GetIdentity(r.Context())
	    if err != nil {
	        http.Error(w, "Unauthorized", http.StatusUnauthorized)
	        return
	    }
	    fmt.Fprintf(w, "Hello, %s!", identity.ExternalID)
	}

# Denied Requests

Denials are answered with a JSON body:

	{"status":false,"reason":"no permission to access resource"}

The status is 401 for missing, invalid or expired tokens and unavailable
signing keys, 403 for a wrong audience or missing role, and 500 when the
role lookup fails. WithLegacyForbiddenStatus answers 403 for every denial.

# Observability

Denials can be fanned out to several sinks with core.WithDenialSink:

  - LogSink writes one warn line per denial
  - PrometheusMetrics counts denials and, as a core.DecisionObserver,
    decision outcomes and durations
  - TracingSink adds an event to the active span; WithTracer starts one
    around every authorization

Adapters for zap, zerolog and logrus implement the slog compatible Logger.

# Other Frameworks

See the framework/gin, framework/echo and integrations/grpc packages.
*/
package secured
