package service

import (
	"github.com/99minutos/user-management/internal/core/domain"
	"github.com/99minutos/user-management/internal/core/ports"
)

// PrincipalFromClaims maps already-validated claims onto the caller identity.
// It neither re-validates the token nor touches the store.
func PrincipalFromClaims(claims ports.TokenClaims) domain.Principal {
	return domain.Principal{Email: claims.Subject, Role: claims.Role}
}
