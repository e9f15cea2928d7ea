package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

const defaultTokenTTL = 24 * time.Hour

// SigningKey is the process-wide HMAC secret. It is loaded once at startup and
// never rotated while the process runs.
type SigningKey []byte

// sessionClaims is the JWT payload: sub, role, iat, exp.
type sessionClaims struct {
	Role domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenService issues and validates stateless HS256 session tokens. Validation
// depends only on the token and the signing key.
type TokenService struct {
	key SigningKey
	ttl time.Duration
	now func() time.Time
}

type TokenOption func(*TokenService)

// WithClock overrides the time source used for iat/exp and for validation.
func WithClock(now func() time.Time) TokenOption {
	return func(s *TokenService) { s.now = now }
}

func NewTokenService(key SigningKey, ttl time.Duration, opts ...TokenOption) (*TokenService, error) {
	if len(key) == 0 {
		return nil, errors.New("token service: signing key is empty")
	}
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	s := &TokenService{key: key, ttl: ttl, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for email carrying role, valid for the configured TTL.
func (s *TokenService) Issue(email string, role domain.Role) (string, error) {
	now := s.now().UTC()
	claims := sessionClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}

	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(s.key))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Validate verifies signature and expiry. An expired token with a valid
// signature yields domain.ErrTokenExpired; every other failure is
// domain.ErrTokenMalformed.
func (s *TokenService) Validate(token string) (ports.TokenClaims, error) {
	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return []byte(s.key), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ports.TokenClaims{}, domain.ErrTokenExpired
		}
		return ports.TokenClaims{}, fmt.Errorf("%w: %v", domain.ErrTokenMalformed, err)
	}

	if claims.Subject == "" || !claims.Role.Valid() || claims.IssuedAt == nil {
		return ports.TokenClaims{}, domain.ErrTokenMalformed
	}

	return ports.TokenClaims{
		Subject:   claims.Subject,
		Role:      claims.Role,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

// ExpirationLabel renders the TTL the way login responses report it: "24Hrs"
// for whole hours, "90Mins" for whole minutes, Go duration syntax otherwise.
func (s *TokenService) ExpirationLabel() string {
	switch {
	case s.ttl%time.Hour == 0:
		return fmt.Sprintf("%dHrs", int64(s.ttl/time.Hour))
	case s.ttl%time.Minute == 0:
		return fmt.Sprintf("%dMins", int64(s.ttl/time.Minute))
	default:
		return s.ttl.String()
	}
}
