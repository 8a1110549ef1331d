package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-with-enough-length-0123456789"

func signToken(t *testing.T, secret string, claims Claims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func validClaims(sub string) Claims {
	return Claims{
		Email: "ana@crescieperdi.com.br",
		Role:  "authenticated",
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Issuer:    "https://auth.crescieperdi.com.br",
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
}

func TestNewTokenVerifier_RequiresSecret(t *testing.T) {
	_, err := NewTokenVerifier("", "", "")
	assert.Error(t, err)
}

func TestVerify_ValidToken(t *testing.T) {
	userID := uuid.New()
	verifier, err := NewTokenVerifier(testSecret, "https://auth.crescieperdi.com.br", "authenticated")
	require.NoError(t, err)

	identity, err := verifier.Verify(signToken(t, testSecret, validClaims(userID.String())))

	require.NoError(t, err)
	assert.Equal(t, userID, identity.UserID)
	assert.Equal(t, "ana@crescieperdi.com.br", identity.Email)
}

func TestVerify_Errors(t *testing.T) {
	userID := uuid.New().String()
	verifier, err := NewTokenVerifier(testSecret, "https://auth.crescieperdi.com.br", "authenticated")
	require.NoError(t, err)

	expired := validClaims(userID)
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	wrongIssuer := validClaims(userID)
	wrongIssuer.Issuer = "https://other.example.com"

	wrongAudience := validClaims(userID)
	wrongAudience.Audience = jwt.ClaimStrings{"anon"}

	testCases := []struct {
		name     string
		token    string
		expected error
	}{
		{"мусор вместо токена", "not-a-token", ErrTokenMalformed},
		{"истёкший токен", signToken(t, testSecret, expired), ErrTokenExpired},
		{"чужой секрет", signToken(t, "another-secret-another-secret-123", validClaims(userID)), ErrTokenInvalid},
		{"неверный издатель", signToken(t, testSecret, wrongIssuer), ErrTokenInvalid},
		{"неверная аудитория", signToken(t, testSecret, wrongAudience), ErrTokenInvalid},
		{"subject не UUID", signToken(t, testSecret, validClaims("user-42")), ErrTokenInvalid},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			identity, err := verifier.Verify(tc.token)
			assert.Nil(t, identity)
			assert.ErrorIs(t, err, tc.expected)
		})
	}
}

func TestVerify_SkipsIssuerAndAudienceWhenNotConfigured(t *testing.T) {
	verifier, err := NewTokenVerifier(testSecret, "", "")
	require.NoError(t, err)

	claims := validClaims(uuid.New().String())
	claims.Issuer = ""
	claims.Audience = nil

	_, err = verifier.Verify(signToken(t, testSecret, claims))
	assert.NoError(t, err)
}
