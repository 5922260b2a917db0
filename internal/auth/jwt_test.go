package auth

import (
	"testing"
	"time"

	"github.com/arnold/esg-pledges-api/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testUser() *models.User {
	return &models.User{ID: uuid.New(), Email: "ada@example.com", Role: models.RoleAdmin}
}

func TestJWTManager_RoundTrip(t *testing.T) {
	m := NewJWTManager("secret", "esg-pledges-api", time.Hour)
	user := testUser()

	token, err := m.Generate(user)
	require.NoError(t, err)

	p, err := m.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, p.ID)
	assert.Equal(t, user.Email, p.Email)
	assert.True(t, p.IsAdmin())
}

func TestJWTManager_Rejects(t *testing.T) {
	m := NewJWTManager("secret", "esg-pledges-api", time.Hour)
	user := testUser()

	otherSecret, err := NewJWTManager("other", "esg-pledges-api", time.Hour).Generate(user)
	require.NoError(t, err)
	otherIssuer, err := NewJWTManager("secret", "someone-else", time.Hour).Generate(user)
	require.NoError(t, err)
	expired, err := NewJWTManager("secret", "esg-pledges-api", -time.Minute).Generate(user)
	require.NoError(t, err)
	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: user.ID}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := map[string]string{
		"empty":        "",
		"garbage":      "not-a-token",
		"wrong secret": otherSecret,
		"wrong issuer": otherIssuer,
		"expired":      expired,
		"alg none":     none,
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := m.Validate(token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestPassword(t *testing.T) {
	hash, err := HashPassword("hunter22")
	require.NoError(t, err)
	assert.NotEqual(t, "hunter22", hash)
	assert.True(t, CheckPassword(hash, "hunter22"))
	assert.False(t, CheckPassword(hash, "hunter23"))
}
