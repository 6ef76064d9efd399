package auth

import "errors"

var (
	ErrValidation         = errors.New("auth: invalid input")
	ErrAuthentication     = errors.New("auth: unauthorized")
	ErrInvalidToken       = errors.New("auth: invalid token")
	ErrMalformedToken     = errors.New("auth: malformed token")
	ErrTokenExpired       = errors.New("auth: token expired")
	ErrNotFound           = errors.New("auth: not found")
	ErrSigningUnavailable = errors.New("auth: signing secret is not configured")
)
