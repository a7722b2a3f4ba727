// Package auth issues and verifies the signed bearer tokens that identify callers.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"quill/internal/models"
)

const (
	// Issuer is stamped into every token and required on verification.
	Issuer = "quill-api"
	// Audience is the single audience tokens are minted for.
	Audience = "quill-client"

	// DefaultExpiry is used when no positive expiry is configured.
	DefaultExpiry = 7 * 24 * time.Hour
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrExpiredToken     = errors.New("token expired")
)

// Identity is the subset of a user record encoded into a token.
type Identity struct {
	ID       string
	Username string
	Email    string
	Role     models.Role
}

// Claims is the token payload. The subject mirrors UserID.
type Claims struct {
	UserID   string      `json:"id"`
	Username string      `json:"username"`
	Email    string      `json:"email"`
	Role     models.Role `json:"role"`
	jwt.RegisteredClaims
}

// Identity returns the identity the claims were issued for.
func (c *Claims) Identity() Identity {
	return Identity{ID: c.UserID, Username: c.Username, Email: c.Email, Role: c.Role}
}

// TokenService signs and verifies HS256 tokens with a shared secret.
type TokenService struct {
	secret []byte
	expiry time.Duration
	now    func() time.Time
}

// Option customizes a TokenService.
type Option func(*TokenService)

// WithClock overrides the time source used for issuing and validating tokens.
func WithClock(now func() time.Time) Option {
	return func(s *TokenService) {
		s.now = now
	}
}

// NewTokenService creates a TokenService. A non-positive expiry falls back to DefaultExpiry.
func NewTokenService(secret string, expiry time.Duration, opts ...Option) (*TokenService, error) {
	if secret == "" {
		return nil, errors.New("token secret must not be empty")
	}
	if expiry <= 0 {
		expiry = DefaultExpiry
	}
	s := &TokenService{
		secret: []byte(secret),
		expiry: expiry,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Expiry reports how long issued tokens stay valid.
func (s *TokenService) Expiry() time.Duration {
	return s.expiry
}

// Issue signs a token for identity that expires after the configured duration.
func (s *TokenService) Issue(identity Identity) (string, error) {
	if identity.ID == "" {
		return "", errors.New("identity id is required")
	}
	now := s.now()
	claims := &Claims{
		UserID:   identity.ID,
		Username: identity.Username,
		Email:    identity.Email,
		Role:     identity.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.ID,
			Issuer:    Issuer,
			Audience:  jwt.ClaimStrings{Audience},
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.expiry)),
			ID:        uuid.NewString(),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify checks signature, algorithm, issuer, audience and expiration and
// returns the embedded claims.
func (s *TokenService) Verify(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) {
			return s.secret, nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(Issuer),
		jwt.WithAudience(Audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !token.Valid || claims.UserID == "" || claims.Subject != claims.UserID {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Decode returns the claims without checking the signature, or nil if the
// token cannot be parsed. The result must not be used for authorization.
func (s *TokenService) Decode(tokenString string) *Claims {
	return Decode(tokenString)
}

// Decode parses a token's payload without verification.
func Decode(tokenString string) *Claims {
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(tokenString, claims); err != nil {
		return nil
	}
	return claims
}

func classify(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return fmt.Errorf("%w: %v", ErrExpiredToken, err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrTokenUnverifiable):
		return fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	default:
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
}

// Reason returns a short label for a verification error, suitable for metrics.
func Reason(err error) string {
	switch {
	case errors.Is(err, ErrExpiredToken):
		return "expired"
	case errors.Is(err, ErrInvalidSignature):
		return "invalid_signature"
	default:
		return "invalid"
	}
}
