package auth

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testSecret = []byte("test-secret-with-enough-entropy")

func signHS256(t *testing.T, secret []byte, claims jwt.Claims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	require.NoError(t, err)
	return token
}

func validClaims() Claims {
	now := time.Now()
	return Claims{
		Email: "Alice@Example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"authenticated"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
	}
}

func TestNewJWTVerifier_RequiresSecret(t *testing.T) {
	_, err := NewJWTVerifier(JWTConfig{})
	assert.Error(t, err)
}

func TestJWTVerifier_Verify(t *testing.T) {
	verifier, err := NewJWTVerifier(JWTConfig{Secret: testSecret, Audience: "authenticated"})
	require.NoError(t, err)

	identity, err := verifier.Verify(context.Background(), signHS256(t, testSecret, validClaims()))
	require.NoError(t, err)
	assert.Equal(t, "user-1", identity.UserID)
	assert.Equal(t, "alice@example.com", identity.Email)
	assert.False(t, identity.ExpiresAt.IsZero())
}

func TestJWTVerifier_Rejects(t *testing.T) {
	verifier, err := NewJWTVerifier(JWTConfig{Secret: testSecret, Issuer: "https://auth.example.com", Audience: "authenticated"})
	require.NoError(t, err)

	withIssuer := func(c Claims) Claims {
		c.Issuer = "https://auth.example.com"
		return c
	}

	tests := []struct {
		name  string
		token func() string
	}{
		{"empty", func() string { return "" }},
		{"garbage", func() string { return "not.a.jwt" }},
		{"wrong secret", func() string {
			return signHS256(t, []byte("other-secret"), withIssuer(validClaims()))
		}},
		{"expired", func() string {
			c := withIssuer(validClaims())
			c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
			return signHS256(t, testSecret, c)
		}},
		{"no expiry", func() string {
			c := withIssuer(validClaims())
			c.ExpiresAt = nil
			return signHS256(t, testSecret, c)
		}},
		{"wrong audience", func() string {
			c := withIssuer(validClaims())
			c.Audience = jwt.ClaimStrings{"anon"}
			return signHS256(t, testSecret, c)
		}},
		{"wrong issuer", func() string {
			c := validClaims()
			c.Issuer = "https://evil.example.com"
			return signHS256(t, testSecret, c)
		}},
		{"no subject", func() string {
			c := withIssuer(validClaims())
			c.Subject = ""
			return signHS256(t, testSecret, c)
		}},
		{"none algorithm", func() string {
			token, err := jwt.NewWithClaims(jwt.SigningMethodNone, withIssuer(validClaims())).
				SignedString(jwt.UnsafeAllowNoneSignatureType)
			require.NoError(t, err)
			return token
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, err := verifier.Verify(context.Background(), tt.token())
			require.Error(t, err)
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}
