package auth

import (
	"context"
)

type AuthService interface {
	// Token handles the OAuth2 token endpoint for password and refresh_token grants
	Token(ctx context.Context, req TokenRequest, session SessionTrackingRequest) (TokenResponse, error)
	Logout(ctx context.Context, refreshToken string) error
}
