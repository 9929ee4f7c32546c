package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
)

const tokenPath = "/api/v1/auth/token"

// OAuthConfig describes the API token endpoint. The API accepts the
// password and refresh_token grants with the client id in the form body.
func OAuthConfig(baseURL, clientID string) *oauth2.Config {
	return &oauth2.Config{
		ClientID: clientID,
		Endpoint: oauth2.Endpoint{
			TokenURL:  strings.TrimRight(baseURL, "/") + tokenPath,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// Session is an authenticated device session.
type Session struct {
	CrewID string
	Role   string
	Client *http.Client // refreshes the access token on its own
}

// Login exchanges crew credentials for tokens. ctx is kept by the returned
// client for later refreshes, so it should live as long as the session.
func Login(ctx context.Context, cfg *oauth2.Config, username, password string) (*Session, error) {
	token, err := passwordToken(ctx, cfg, username, password)
	if err != nil {
		return nil, err
	}
	s := sessionFromToken(token)
	s.Client = cfg.Client(ctx, token)
	return s, nil
}

func passwordToken(ctx context.Context, cfg *oauth2.Config, username, password string) (*oauth2.Token, error) {
	token, err := cfg.PasswordCredentialsToken(ctx, username, password)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) {
			status := http.StatusUnauthorized
			if retrieveErr.Response != nil {
				status = retrieveErr.Response.StatusCode
			}
			return nil, &APIError{Status: status, Code: "UNAUTHORIZED", Message: "invalid credentials"}
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: login: %v", ErrOffline, err)
	}
	return token, nil
}

func sessionFromToken(token *oauth2.Token) *Session {
	s := &Session{}
	if v, ok := token.Extra("crew_id").(string); ok {
		s.CrewID = v
	}
	if v, ok := token.Extra("role").(string); ok {
		s.Role = v
	}
	return s
}
