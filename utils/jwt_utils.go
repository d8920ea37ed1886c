package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"grocery-orders/models"
)

var ErrInvalidToken = errors.New("invalid token")

// ParseToken verifies an HS256 token and returns the caller it names.
// Tokens must carry user_id; email and is_admin are optional.
func ParseToken(secret, tokenString string) (models.Identity, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !token.Valid {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return models.Identity{}, ErrInvalidToken
	}

	var id models.Identity
	switch v := claims["user_id"].(type) {
	case string:
		id.UserID = v
	case float64:
		id.UserID = fmt.Sprintf("%.0f", v)
	}
	if id.UserID == "" {
		return models.Identity{}, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	id.Email, _ = claims["email"].(string)
	id.IsAdmin, _ = claims["is_admin"].(bool)
	return id, nil
}

// SignToken issues a token for id. Production tokens come from the auth
// service; this is for tooling and tests.
func SignToken(secret string, id models.Identity, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  id.UserID,
		"email":    id.Email,
		"is_admin": id.IsAdmin,
		"exp":      time.Now().Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
