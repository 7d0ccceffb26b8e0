package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
)

// OIDCConfig configures OpenID Connect token verification
type OIDCConfig struct {
	IssuerURL string
	ClientID  string
}

// OIDCVerifier verifies ID tokens against the issuer's published keys
type OIDCVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewOIDCVerifier discovers the issuer and builds a verifier for its tokens
func NewOIDCVerifier(ctx context.Context, cfg OIDCConfig) (*OIDCVerifier, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("OIDC issuer URL is required")
	}

	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("failed to discover OIDC provider: %w", err)
	}

	return NewOIDCVerifierFromIDTokenVerifier(provider.Verifier(&oidc.Config{
		ClientID:          cfg.ClientID,
		SkipClientIDCheck: cfg.ClientID == "",
	})), nil
}

// NewOIDCVerifierFromIDTokenVerifier wraps an existing go-oidc verifier
func NewOIDCVerifierFromIDTokenVerifier(v *oidc.IDTokenVerifier) *OIDCVerifier {
	return &OIDCVerifier{verifier: v}
}

// Verify checks the token and returns its subject and email
func (v *OIDCVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, unauthenticated("empty token", nil)
	}

	idToken, err := v.verifier.Verify(ctx, token)
	if err != nil {
		return nil, unauthenticated("invalid token", err)
	}
	if idToken.Subject == "" {
		return nil, unauthenticated("token has no subject", nil)
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified *bool  `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, unauthenticated("failed to parse claims", err)
	}

	identity := &Identity{
		UserID:    idToken.Subject,
		ExpiresAt: idToken.Expiry,
	}
	// an unverified email must not match a payment grant
	if claims.EmailVerified == nil || *claims.EmailVerified {
		identity.Email = strings.ToLower(strings.TrimSpace(claims.Email))
	}
	return identity, nil
}
