/*
Package validator verifies bearer tokens with golang-jwt/jwt/v5 and turns
them into core.Identity values.

The verification key is chosen by the keys package from the algorithm the
token declares. Only the HMAC (HS256, HS384, HS512) and RSA PKCS#1 v1.5
(RS256, RS384, RS512) families are accepted; "none" and every other
algorithm fail as invalid tokens.

# Basic Usage

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

	identity, err := v.Authenticate(ctx, r.Header.Get("Authorization"), "accounts-api")

# Failures

Authenticate returns *core.Error values:

  - core.KindMissingToken: empty token, or nothing after "Bearer "
  - core.KindInvalidToken: malformed, bad signature, unsupported algorithm
  - core.KindExpiredToken: exp in the past and the signature is valid
  - core.KindKeyResolution: the key of the declared family is not loaded
  - core.KindInvalidAudience: the expected audience is not in aud

# Audience Matching

By default the expected audience must be one of the token audiences.
ContainsAudience accepts any audience that contains the expected value and
must be opted into with WithAudienceMatcher.

# Identity

The identity id is read from the "jti" claim (WithNumericIDClaim changes
the claim) and is 0 when the claim is absent or not a whole number. The
subject becomes the external id. Roles are left empty; they are filled in
by the authorizer's role lookup.
*/
package validator
