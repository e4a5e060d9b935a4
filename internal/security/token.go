package security

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("security: invalid token")

const tokenIssuer = "lingofocus"

// DeviceClaims identify one device allowed to use the API
type DeviceClaims struct {
	jwt.RegisteredClaims
	Device string `json:"device"`
}

// TokenIssuer signs and verifies HS256 device tokens
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

// NewTokenIssuer creates an issuer; ttl <= 0 issues tokens without expiry
func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

// Issue returns a signed token for device
func (t *TokenIssuer) Issue(device string) (string, error) {
	if len(t.secret) == 0 {
		return "", fmt.Errorf("security: no signing secret configured")
	}

	now := t.now()
	claims := DeviceClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       uuid.New().String(),
			Issuer:   tokenIssuer,
			Subject:  device,
			IssuedAt: jwt.NewNumericDate(now),
		},
		Device: device,
	}
	if t.ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(t.ttl))
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(t.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}

// Verify parses a token and checks signature, issuer and expiry
func (t *TokenIssuer) Verify(token string) (*DeviceClaims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithTimeFunc(t.now),
	)

	claims := &DeviceClaims{}
	parsed, err := parser.ParseWithClaims(token, claims, func(*jwt.Token) (interface{}, error) {
		return t.secret, nil
	})
	if err != nil || !parsed.Valid {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}
