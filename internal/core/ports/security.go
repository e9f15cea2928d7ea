package ports

import (
	"time"

	"github.com/99minutos/user-management/internal/core/domain"
)

// PasswordHasher produces and checks one-way salted password hashes.
type PasswordHasher interface {
	Hash(plain string) (string, error)
	Verify(plain, hash string) bool
}

// TokenClaims is the verified content of a session token.
type TokenClaims struct {
	Subject   string
	Role      domain.Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// TokenIssuer mints session tokens for authenticated users.
type TokenIssuer interface {
	Issue(email string, role domain.Role) (string, error)
	// ExpirationLabel describes the token lifetime for login responses, e.g. "24Hrs".
	ExpirationLabel() string
}

// TokenValidator checks a token's signature and expiry.
// Errors are domain.ErrTokenMalformed or domain.ErrTokenExpired.
type TokenValidator interface {
	Validate(token string) (TokenClaims, error)
}
