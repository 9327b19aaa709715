// Package auth issues and parses the session access tokens.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/workoutlog/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims carries the subject in Subject and the session row id in ID.
type Claims struct {
	jwt.RegisteredClaims
}

func GenerateToken(subjectID, sessionID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subjectID,
			ID:        sessionID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(validityDuration)),
		},
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// ParseToken verifies the signature and expiry. Every failure matches
// common.ErrUnauthorized.
func ParseToken(tokenString string, secretKey []byte) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: token expired", common.ErrUnauthorized)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrUnauthorized, err)
	}

	if !token.Valid || claims.Subject == "" || claims.ID == "" {
		return nil, common.ErrUnauthorized
	}

	return claims, nil
}
