package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	id := uuid.New()
	token, err := GenerateToken("test-secret-key", id, "staff@example.com", true, time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := ValidateToken("test-secret-key", token)
	require.NoError(t, err)

	got, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, id, got)
	assert.Equal(t, "staff@example.com", claims.Email)
	assert.True(t, claims.IsStaff)
	assert.NotEmpty(t, claims.ID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateToken_Rejects(t *testing.T) {
	secret := "secret"
	sign := func(claims jwt.Claims, method jwt.SigningMethod, key any) string {
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		require.NoError(t, err)
		return s
	}
	valid := func() Claims {
		return Claims{
			Email: "reader@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   uuid.NewString(),
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
	}

	wrongSecret, err := GenerateToken("other", uuid.New(), "reader@example.com", false, time.Hour)
	require.NoError(t, err)

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	badSubject := valid()
	badSubject.Subject = "42"

	noEmail := valid()
	noEmail.Email = ""

	tests := map[string]string{
		"Garbage":     "not-a-token",
		"WrongSecret": wrongSecret,
		"Expired":     sign(expired, jwt.SigningMethodHS256, []byte(secret)),
		"BadSubject":  sign(badSubject, jwt.SigningMethodHS256, []byte(secret)),
		"NoEmail":     sign(noEmail, jwt.SigningMethodHS256, []byte(secret)),
		"HS512":       sign(valid(), jwt.SigningMethodHS512, []byte(secret)),
		"None":        sign(valid(), jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType),
	}

	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ValidateToken(secret, token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestGenerateToken_DefaultExpiry(t *testing.T) {
	token, err := GenerateToken("s", uuid.New(), "a@example.com", false, 0)
	require.NoError(t, err)
	claims, err := ValidateToken("s", token)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(TokenExpiry), claims.ExpiresAt.Time, 5*time.Second)
}
