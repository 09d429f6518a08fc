package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// RoleUser is the only role allowed to call the companion endpoints
const RoleUser = "user"

var (
	// ErrInvalidToken is returned for tokens that are missing, malformed,
	// expired or signed with the wrong key
	ErrInvalidToken = errors.New("invalid authentication token")
	// ErrForbidden is returned for valid tokens that may not use the API
	ErrForbidden = errors.New("access denied")
)

// Identity is the authenticated caller
type Identity struct {
	UserID   string
	Email    string
	Provider string
}

// Verifier checks a bearer token and returns the caller it identifies
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// JWTClaims represents the claims in our development tokens
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email,omitempty"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// HMACVerifier validates HS256 tokens signed with a shared secret
type HMACVerifier struct {
	secret []byte
}

// Ensure HMACVerifier implements the Verifier interface
var _ Verifier = (*HMACVerifier)(nil)

// NewHMACVerifier creates a verifier for tokens minted by GenerateUserToken
func NewHMACVerifier(secret string) (*HMACVerifier, error) {
	if len(secret) < 16 {
		return nil, fmt.Errorf("jwt secret must be at least 16 characters")
	}
	return &HMACVerifier{secret: []byte(secret)}, nil
}

// GenerateUserToken generates a JWT token for user authentication
func GenerateUserToken(secret, userID string, ttl time.Duration) (string, error) {
	if userID == "" {
		return "", fmt.Errorf("user ID is required")
	}
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}

	now := time.Now()
	claims := &JWTClaims{
		UserID: userID,
		Role:   RoleUser,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// Verify validates a JWT token and returns the identity in its claims
func (v *HMACVerifier) Verify(ctx context.Context, tokenString string) (*Identity, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}
	if !token.Valid || claims.UserID == "" || claims.ExpiresAt == nil {
		return nil, ErrInvalidToken
	}

	// Tokens minted for other roles, such as devices, are valid but not allowed here
	if claims.Role != RoleUser {
		return nil, fmt.Errorf("%w: role %q", ErrForbidden, claims.Role)
	}

	return &Identity{
		UserID:   claims.UserID,
		Email:    claims.Email,
		Provider: "hmac",
	}, nil
}
