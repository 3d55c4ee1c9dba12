package demoserver

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// issueToken signs an HS256 token carrying the identity claims the client's
// auth gate resolves from.
func issueToken(secret []byte, ttl time.Duration, user *storedUser) (string, error) {
	claims := jwt.MapClaims{
		"usuarioId": user.ID,
		"username":  user.Username,
		"role":      user.Role,
		"jti":       uuid.New().String(),
		"exp":       time.Now().Add(ttl).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

// parseToken validates a bearer token and returns its claims.
func parseToken(secret []byte, raw string) (jwt.MapClaims, error) {
	claims := jwt.MapClaims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !tok.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

// claimUserID pulls the numeric user id out of the claims.
func claimUserID(claims jwt.MapClaims) (int64, bool) {
	switch v := claims["usuarioId"].(type) {
	case float64:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}
