package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const authTokenType = "auth"

var ErrTokenType = errors.New("token is not an auth token")

type Claims struct {
	UserID uint   `json:"user_id"`
	Type   string `json:"type"`
	jwt.RegisteredClaims
}

// MakeAuthToken signs an HS256 session token for userID valid for ttl.
func MakeAuthToken(secret []byte, userID uint, ttl time.Duration, now time.Time) (string, error) {
	claims := &Claims{
		UserID: userID,
		Type:   authTokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseAuthToken validates signature, algorithm and expiry and returns the
// embedded claims.
func ParseAuthToken(secret []byte, tokenStr string) (*Claims, error) {
	claims := &Claims{}

	_, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}

	if claims.Type != authTokenType {
		return nil, ErrTokenType
	}

	return claims, nil
}
