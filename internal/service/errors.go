package service

import "errors"

// Errors recovered at the handler boundary and mapped to HTTP statuses.
// Nothing past that boundary sees hash values or raw tokens.
var (
	ErrValidation          = errors.New("invalid input")
	ErrEmailTaken          = errors.New("email already in use")
	ErrUserNotFound        = errors.New("user not found")
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidRefreshToken = errors.New("invalid refresh token")
	ErrNoActiveSession     = errors.New("no active session")
)
