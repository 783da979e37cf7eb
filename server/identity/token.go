package identity

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/sagarpalaskar/strapi-cost-optimizer-backend/server/defs"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenSigner issues and verifies the bearer tokens handed out at
// register/login. HS256 with a single shared secret.
type TokenSigner struct {
	secret   []byte
	lifetime time.Duration
}

func NewTokenSigner(secret string, lifetime time.Duration) *TokenSigner {
	if lifetime <= 0 {
		lifetime = 24 * time.Hour
	}
	return &TokenSigner{
		secret:   []byte(secret),
		lifetime: lifetime,
	}
}

type tokenClaims struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// Issue creates a signed token for the user.
func (s *TokenSigner) Issue(userID int64, email, username string, role defs.Role) (string, error) {
	now := time.Now().UTC()
	claims := tokenClaims{
		Email:    email,
		Username: username,
		Role:     string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   fmt.Sprintf("%v", userID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.lifetime)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
}

// Verify checks signature and expiry, and returns the decoded claims.
func (s *TokenSigner) Verify(tokenString string) (*Identity, error) {
	claims := tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	userID := int64(0)
	fmt.Sscanf(claims.Subject, "%d", &userID)
	if userID == 0 {
		return nil, ErrInvalidToken
	}
	return &Identity{
		UserID:   userID,
		Email:    claims.Email,
		Username: claims.Username,
		Role:     defs.ParseRole(claims.Role),
	}, nil
}
