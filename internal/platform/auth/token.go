package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenRequest describes a standalone-mode access token.
type TokenRequest struct {
	Subject  string
	Email    string
	Role     Role
	Issuer   string
	Audience string
	TTL      time.Duration
}

// MintToken signs an HS256 token verifiable by JWTMiddleware with the same key.
func MintToken(key []byte, req TokenRequest) (string, error) {
	if len(key) == 0 {
		return "", fmt.Errorf("signing key is required")
	}
	if req.Subject == "" {
		return "", fmt.Errorf("subject is required")
	}
	if !req.Role.Valid() {
		return "", fmt.Errorf("unknown role %q", req.Role)
	}
	if req.TTL <= 0 {
		req.TTL = time.Hour
	}

	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   req.Subject,
			Issuer:    req.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(req.TTL)),
		},
		Email: req.Email,
		Role:  req.Role,
	}
	if req.Audience != "" {
		claims.Audience = jwt.ClaimStrings{req.Audience}
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}
