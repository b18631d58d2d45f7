package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "b8a3c2267dc85f855dea9b46b452bf20"

func TestTokenGenerator_RoundTrip(t *testing.T) {
	tg := NewTokenGenerator(testSecret, time.Hour)

	token, err := tg.GenerateAccessToken(42, RoleAdmin)
	require.NoError(t, err)

	userID, role, err := tg.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, 42, userID)
	assert.Equal(t, RoleAdmin, role)
}

func TestTokenGenerator_ValidateAccessToken(t *testing.T) {
	tg := NewTokenGenerator(testSecret, time.Hour)

	sign := func(claims jwt.MapClaims, method jwt.SigningMethod, secret string) string {
		token, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return token
	}
	valid := func() jwt.MapClaims {
		return jwt.MapClaims{
			"user_id": 1,
			"role":    RoleUser,
			"exp":     time.Now().Add(time.Hour).Unix(),
			"iat":     time.Now().Unix(),
			"type":    "access",
		}
	}

	tests := []struct {
		name  string
		token func() string
	}{
		{name: "malformed", token: func() string { return "not-a-token" }},
		{name: "wrong secret", token: func() string { return sign(valid(), jwt.SigningMethodHS256, "other") }},
		{
			name: "expired",
			token: func() string {
				claims := valid()
				claims["exp"] = time.Now().Add(-time.Minute).Unix()
				return sign(claims, jwt.SigningMethodHS256, testSecret)
			},
		},
		{
			name: "refresh token",
			token: func() string {
				claims := valid()
				claims["type"] = "refresh"
				return sign(claims, jwt.SigningMethodHS256, testSecret)
			},
		},
		{
			name: "missing user id",
			token: func() string {
				claims := valid()
				delete(claims, "user_id")
				return sign(claims, jwt.SigningMethodHS256, testSecret)
			},
		},
		{
			name: "missing role",
			token: func() string {
				claims := valid()
				delete(claims, "role")
				return sign(claims, jwt.SigningMethodHS256, testSecret)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			userID, role, err := tg.ValidateAccessToken(tt.token())

			assert.Error(t, err)
			assert.Zero(t, userID)
			assert.Zero(t, role)
		})
	}
}
