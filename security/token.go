package security

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// DefaultSigningMethod is used when no method is specified.
var DefaultSigningMethod = jwt.SigningMethodHS256

// SignToken creates a signed HS256 token for the subject. Extra claims
// are merged in; sub, iat, and exp are always set.
func SignToken(secret []byte, subject string, ttl time.Duration, extra map[string]any) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": jwt.NewNumericDate(now),
		"exp": jwt.NewNumericDate(now.Add(ttl)),
	}
	for k, v := range extra {
		claims[k] = v
	}

	token := jwt.NewWithClaims(DefaultSigningMethod, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("security: sign token: %w", err)
	}
	return signed, nil
}

// ParseToken validates an HS256 token and returns its claims. Expired,
// tampered, or differently signed tokens fail.
func ParseToken(secret []byte, tokenString string) (jwt.MapClaims, error) {
	return ParseTokenWithMethods(secret, tokenString, []string{DefaultSigningMethod.Alg()})
}

// ParseTokenWithMethods validates a token restricted to the named
// signing methods.
func ParseTokenWithMethods(secret []byte, tokenString string, methods []string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods(methods))
	if err != nil {
		return nil, fmt.Errorf("security: parse token: %w", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, fmt.Errorf("security: unexpected claims type %T", token.Claims)
	}
	return claims, nil
}
