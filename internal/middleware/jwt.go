// Package middleware provides the HTTP middleware stack: bearer-token
// authentication, rate limiting, request ids and access logging.
package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims holds the parsed claims from a validated JWT.
type JWTClaims struct {
	Subject  string
	Issuer   string
	Audience []string
	Email    *string
	Name     *string
	Raw      map[string]interface{}
}

// JWTValidator validates a JWT token and returns the parsed claims.
type JWTValidator interface {
	Validate(ctx context.Context, tokenString string) (*JWTClaims, error)
}

// OIDCValidator validates JWTs against an identity provider's JWKS.
type OIDCValidator struct {
	verifier       *oidc.IDTokenVerifier
	allowedIssuers map[string]bool
}

// NewOIDCValidator discovers the provider's keys from issuerURL.
func NewOIDCValidator(ctx context.Context, issuerURL, audience string, allowedIssuers []string) (*OIDCValidator, error) {
	provider, err := oidc.NewProvider(ctx, issuerURL)
	if err != nil {
		return nil, fmt.Errorf("oidc provider discovery: %w", err)
	}
	verifier := provider.Verifier(&oidc.Config{ClientID: audience})
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuerSet(issuerURL, allowedIssuers)}, nil
}

// NewOIDCValidatorFromJWKS reads keys from jwksURL without discovery. With
// no issuerURL the token issuer is checked against allowedIssuers only.
func NewOIDCValidatorFromJWKS(ctx context.Context, jwksURL, issuerURL, audience string, allowedIssuers []string) *OIDCValidator {
	keySet := oidc.NewRemoteKeySet(ctx, jwksURL)
	verifier := oidc.NewVerifier(issuerURL, keySet, &oidc.Config{
		ClientID:        audience,
		SkipIssuerCheck: issuerURL == "",
	})
	return &OIDCValidator{verifier: verifier, allowedIssuers: issuerSet(issuerURL, allowedIssuers)}
}

func issuerSet(issuerURL string, allowed []string) map[string]bool {
	issuers := make(map[string]bool, len(allowed))
	for _, iss := range allowed {
		issuers[iss] = true
	}
	if len(issuers) == 0 && issuerURL != "" {
		issuers[issuerURL] = true
	}
	return issuers
}

// Validate verifies the token signature, expiry and audience, then the
// issuer allowlist.
func (v *OIDCValidator) Validate(ctx context.Context, tokenString string) (*JWTClaims, error) {
	idToken, err := v.verifier.Verify(ctx, tokenString)
	if err != nil {
		return nil, fmt.Errorf("oidc verify: %w", err)
	}
	if len(v.allowedIssuers) > 0 && !v.allowedIssuers[idToken.Issuer] {
		return nil, fmt.Errorf("oidc verify: issuer %q not in allowed list", idToken.Issuer)
	}

	var raw map[string]interface{}
	if err := idToken.Claims(&raw); err != nil {
		return nil, fmt.Errorf("oidc claims: %w", err)
	}
	claims := &JWTClaims{
		Subject:  idToken.Subject,
		Issuer:   idToken.Issuer,
		Audience: idToken.Audience,
		Raw:      raw,
	}
	if email, ok := raw["email"].(string); ok {
		claims.Email = &email
	}
	if name, ok := raw["name"].(string); ok {
		claims.Name = &name
	}
	return claims, nil
}

// AnyValidator accepts a token when one of its validators does, trying them
// in order.
type AnyValidator []JWTValidator

func (vs AnyValidator) Validate(ctx context.Context, tokenString string) (*JWTClaims, error) {
	if len(vs) == 0 {
		return nil, errors.New("no token validator configured")
	}
	var errs []error
	for _, v := range vs {
		claims, err := v.Validate(ctx, tokenString)
		if err == nil {
			return claims, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// SharedSecretValidator validates JWTs signed with a shared HS256 secret.
type SharedSecretValidator struct {
	secret []byte
}

// NewSharedSecretValidator creates a validator for HS256 tokens.
func NewSharedSecretValidator(secret string) *SharedSecretValidator {
	return &SharedSecretValidator{secret: []byte(secret)}
}

// Validate verifies a JWT signed with HS256 and extracts claims.
func (v *SharedSecretValidator) Validate(_ context.Context, tokenString string) (*JWTClaims, error) {
	tok, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("jwt parse: %w", err)
	}

	raw, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("jwt parse: unsupported claim type %T", tok.Claims)
	}

	claims := &JWTClaims{Raw: map[string]interface{}(raw)}
	if sub, ok := raw["sub"].(string); ok {
		claims.Subject = sub
	}
	if iss, ok := raw["iss"].(string); ok {
		claims.Issuer = iss
	}
	if email, ok := raw["email"].(string); ok {
		claims.Email = &email
	}
	if name, ok := raw["name"].(string); ok {
		claims.Name = &name
	}

	switch aud := raw["aud"].(type) {
	case string:
		claims.Audience = []string{aud}
	case []interface{}:
		for _, a := range aud {
			if s, ok := a.(string); ok {
				claims.Audience = append(claims.Audience, s)
			}
		}
	}

	return claims, nil
}
