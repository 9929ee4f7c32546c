package auth

import "errors"

var (
	ErrInvalidCredentials  = errors.New("invalid email or password")
	ErrInvalidToken        = errors.New("invalid or expired token")
	ErrTokenExpired        = errors.New("token has expired")
	ErrRefreshTokenRevoked = errors.New("refresh token has been revoked")
	ErrUnsupportedGrant    = errors.New("unsupported grant type")
	ErrUserNotFound        = errors.New("user not found")
)
