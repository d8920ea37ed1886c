package utils

import (
	"regexp"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-orders/models"
)

func TestNewOrderNumber(t *testing.T) {
	now := time.Date(2026, 10, 18, 14, 5, 0, 0, time.UTC)
	re := regexp.MustCompile(`^ORD-20261018-[0-9A-F]{6}$`)

	seen := map[string]bool{}
	for i := 0; i < 50; i++ {
		n := NewOrderNumber(now)
		assert.Regexp(t, re, n)
		seen[n] = true
	}
	assert.Greater(t, len(seen), 45)
}

func TestSignAndParseToken(t *testing.T) {
	in := models.Identity{UserID: "u-42", Email: "a@b.lk", IsAdmin: true}
	tok, err := SignToken("secret", in, time.Hour)
	require.NoError(t, err)

	got, err := ParseToken("secret", tok)
	require.NoError(t, err)
	assert.Equal(t, in, got)
}

func TestParseToken_Rejects(t *testing.T) {
	good, err := SignToken("secret", models.Identity{UserID: "u1"}, time.Hour)
	require.NoError(t, err)
	expired, err := SignToken("secret", models.Identity{UserID: "u1"}, -time.Minute)
	require.NoError(t, err)
	noUser, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"email": "x@y.z"}).SignedString([]byte("secret"))
	require.NoError(t, err)
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.MapClaims{"user_id": "u1"}).SignedString([]byte("secret"))
	require.NoError(t, err)

	tests := []struct {
		name   string
		secret string
		token  string
	}{
		{"wrong secret", "other", good},
		{"expired", "secret", expired},
		{"missing user id", "secret", noUser},
		{"unexpected algorithm", "secret", hs512},
		{"garbage", "secret", "not-a-token"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseToken(tt.secret, tt.token)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestParseToken_NumericUserID(t *testing.T) {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"user_id": 17}).SignedString([]byte("s"))
	require.NoError(t, err)

	got, err := ParseToken("s", tok)
	require.NoError(t, err)
	assert.Equal(t, "17", got.UserID)
	assert.False(t, got.IsAdmin)
}

func TestFormatCurrency(t *testing.T) {
	tests := map[string]string{
		"0":         "LKR 0.00",
		"150":       "LKR 150.00",
		"1200":      "LKR 1,200.00",
		"1234567.5": "LKR 1,234,567.50",
		"-4000":     "LKR -4,000.00",
		"999.999":   "LKR 1,000.00",
	}
	for in, want := range tests {
		assert.Equal(t, want, FormatCurrency(decimal.RequireFromString(in)), in)
	}
}
