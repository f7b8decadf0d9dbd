package controllers

import (
	"fmt"
	"time"

	"ariadne/models"

	"github.com/golang-jwt/jwt/v5"
)

func jwtSecret() []byte {
	return []byte(conf.Security.JwtSecret)
}

// signAccessToken issues the HS256 access token used by AuthRequired.
// Claims follow the { "sub": <userId>, "email": ..., "iat": ..., "exp": ... }
// layout.
func signAccessToken(user models.User) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":   user.ID,
		"email": user.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(24 * time.Hour).Unix(),
	})
	return token.SignedString(jwtSecret())
}

// parseAccessToken verifies signature and expiry and returns the user id.
func parseAccessToken(tokenString string) (int64, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return jwtSecret(), nil
	})
	if err != nil || !token.Valid {
		return 0, fmt.Errorf("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("invalid claims")
	}
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, fmt.Errorf("missing sub claim")
	}
	return int64(sub), nil
}
