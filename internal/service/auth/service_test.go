package auth

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
)

const (
	testAccessExp  = "1h"
	testRefreshExp = "24h"
	testSecret     = "test-secret-key-for-jwt"
)

type passthroughTx struct{}

func (passthroughTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeMembers struct {
	crew.MemberRepository
	byEmail map[string]crew.Member
}

func (f *fakeMembers) GetByEmail(_ context.Context, email string) (crew.Member, error) {
	m, ok := f.byEmail[email]
	if !ok {
		return crew.Member{}, crew.ErrMemberNotFound
	}
	return m, nil
}

func (f *fakeMembers) GetByID(_ context.Context, id string) (crew.Member, error) {
	for _, m := range f.byEmail {
		if m.ID == id {
			return m, nil
		}
	}
	return crew.Member{}, crew.ErrMemberNotFound
}

type storedToken struct {
	crewID  string
	revoked bool
}

type fakeTokens struct {
	tokens map[string]*storedToken
}

func (f *fakeTokens) CreateRefreshToken(_ context.Context, crewID, token string, _ int64, _ auth.SessionTrackingRequest) error {
	f.tokens[token] = &storedToken{crewID: crewID}
	return nil
}

func (f *fakeTokens) LookupRefreshToken(_ context.Context, token string) (string, bool, error) {
	st, ok := f.tokens[token]
	if !ok {
		return "", false, auth.ErrInvalidToken
	}
	return st.crewID, st.revoked, nil
}

func (f *fakeTokens) RevokeRefreshToken(_ context.Context, token string) error {
	if st, ok := f.tokens[token]; ok {
		st.revoked = true
	}
	return nil
}

func newTestService(t *testing.T) (auth.AuthService, *fakeTokens) {
	t.Helper()

	hash, err := HashPassword("password123")
	require.NoError(t, err)

	members := &fakeMembers{byEmail: map[string]crew.Member{
		"crew@example.com": {ID: "crew-1", Email: "crew@example.com", PasswordHash: &hash, Role: crew.RoleCrew},
	}}
	tokens := &fakeTokens{tokens: map[string]*storedToken{}}
	svc := NewAuthService(passthroughTx{}, members, jwt.NewJWTService(testSecret, testAccessExp, testRefreshExp), tokens)
	return svc, tokens
}

var session = auth.SessionTrackingRequest{IPAddress: "127.0.0.1", UserAgent: "agent/1.0"}

func TestToken_PasswordGrant(t *testing.T) {
	svc, tokens := newTestService(t)

	resp, err := svc.Token(context.Background(), auth.TokenRequest{
		GrantType: auth.GrantPassword,
		Username:  "crew@example.com",
		Password:  "password123",
	}, session)

	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "Bearer", resp.TokenType)
	assert.Equal(t, "crew-1", resp.CrewID)
	assert.Greater(t, resp.ExpiresIn, int64(0))
	assert.Contains(t, tokens.tokens, resp.RefreshToken)
}

func TestToken_InvalidCredentials(t *testing.T) {
	svc, _ := newTestService(t)

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "crew@example.com", "nope"},
		{"unknown member", "ghost@example.com", "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Token(context.Background(), auth.TokenRequest{
				GrantType: auth.GrantPassword,
				Username:  tt.username,
				Password:  tt.password,
			}, session)
			assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
		})
	}
}

func TestToken_RefreshRotatesToken(t *testing.T) {
	svc, tokens := newTestService(t)

	first, err := svc.Token(context.Background(), auth.TokenRequest{
		GrantType: auth.GrantPassword, Username: "crew@example.com", Password: "password123",
	}, session)
	require.NoError(t, err)

	second, err := svc.Token(context.Background(), auth.TokenRequest{
		GrantType: auth.GrantRefreshToken, RefreshToken: first.RefreshToken,
	}, session)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.True(t, tokens.tokens[first.RefreshToken].revoked)

	_, err = svc.Token(context.Background(), auth.TokenRequest{
		GrantType: auth.GrantRefreshToken, RefreshToken: first.RefreshToken,
	}, session)
	assert.ErrorIs(t, err, auth.ErrRefreshTokenRevoked)
}

func TestToken_RefreshRejectsAccessToken(t *testing.T) {
	svc, _ := newTestService(t)

	resp, err := svc.Token(context.Background(), auth.TokenRequest{
		GrantType: auth.GrantPassword, Username: "crew@example.com", Password: "password123",
	}, session)
	require.NoError(t, err)

	_, err = svc.Token(context.Background(), auth.TokenRequest{
		GrantType: auth.GrantRefreshToken, RefreshToken: resp.AccessToken,
	}, session)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestLogout_RevokesRefreshToken(t *testing.T) {
	svc, tokens := newTestService(t)

	resp, err := svc.Token(context.Background(), auth.TokenRequest{
		GrantType: auth.GrantPassword, Username: "crew@example.com", Password: "password123",
	}, session)
	require.NoError(t, err)

	require.NoError(t, svc.Logout(context.Background(), resp.RefreshToken))
	assert.True(t, tokens.tokens[resp.RefreshToken].revoked)

	// second logout is a no-op
	assert.NoError(t, svc.Logout(context.Background(), resp.RefreshToken))
}
