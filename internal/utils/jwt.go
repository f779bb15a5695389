package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var jwtSecret []byte

// SetJWTSecret sets the signing secret used for all access tokens.
func SetJWTSecret(secret string) {
	jwtSecret = []byte(secret)
}

// Claims is the access token claim set. Subject carries the user's email (the
// stable login identifier), UserID the numeric account id, and the registered
// ID claim carries the jti that keys the ledger record.
type Claims struct {
	UserID uint   `json:"uid"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an access token for the user with the given jti.
// Issued-at and expiry are embedded in the claims and mirrored in the ledger.
func GenerateToken(userID uint, email, role, jti string, issuedAt, expiresAt time.Time) (string, error) {
	claims := Claims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			ID:        jti,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(jwtSecret)
}

// ParseToken verifies the signature and expiry of a signed access token and
// returns its claims. This is the cheap structural check; ledger state is not
// consulted here.
func ParseToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return jwtSecret, nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	if claims.ID == "" {
		return nil, errors.New("token missing jti claim")
	}

	return claims, nil
}
