package domain

import "errors"

var (
	ErrValidation         = errors.New("validation failed")
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("access forbidden")

	// ErrTokenMalformed covers bad signatures, unexpected algorithms and
	// structurally invalid tokens.
	ErrTokenMalformed = errors.New("token malformed")
	// ErrTokenExpired is returned only for tokens whose signature verified.
	ErrTokenExpired = errors.New("token expired")
)
