package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/storage"
	"golang.org/x/oauth2"
)

// CredentialsKey is where the last good login is kept, beside the offline
// queue.
const CredentialsKey = "auth/credentials.json"

var ErrNoCredentials = errors.New("no saved credentials")

// Credentials let a device act for a crew member without a fresh login.
type Credentials struct {
	CrewID string        `json:"crew_id"`
	Role   string        `json:"role"`
	Token  *oauth2.Token `json:"token"`
}

func SaveCredentials(ctx context.Context, fs storage.FileStorage, c Credentials) error {
	data, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}
	if _, err := fs.Upload(ctx, bytes.NewReader(data), CredentialsKey, "application/json"); err != nil {
		return fmt.Errorf("failed to store credentials: %w", err)
	}
	return nil
}

// LoadCredentials returns ErrNoCredentials when nothing usable was saved.
func LoadCredentials(ctx context.Context, fs storage.FileStorage) (Credentials, error) {
	rc, err := fs.Download(ctx, CredentialsKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return Credentials{}, ErrNoCredentials
		}
		return Credentials{}, fmt.Errorf("failed to load credentials: %w", err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return Credentials{}, fmt.Errorf("failed to read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(data, &c); err != nil {
		return Credentials{}, fmt.Errorf("failed to decode credentials: %w", err)
	}
	if c.Token == nil || (c.Token.AccessToken == "" && c.Token.RefreshToken == "") {
		return Credentials{}, ErrNoCredentials
	}
	return c, nil
}

// Start logs in and saves the result to fs. When the API cannot be
// reached it resumes from the saved credentials instead, so queued work
// can still be recorded. Refreshed tokens are saved as they arrive.
func Start(ctx context.Context, cfg *oauth2.Config, fs storage.FileStorage, username, password string) (*Session, error) {
	token, err := passwordToken(ctx, cfg, username, password)
	if err == nil {
		s := sessionFromToken(token)
		creds := Credentials{CrewID: s.CrewID, Role: s.Role, Token: token}
		if err := SaveCredentials(ctx, fs, creds); err != nil {
			slog.Warn("could not save credentials", "error", err)
		}
		s.Client = savingClient(ctx, cfg, fs, creds)
		return s, nil
	}
	if !IsOffline(err) {
		return nil, err
	}

	creds, lerr := LoadCredentials(ctx, fs)
	if lerr != nil {
		if !errors.Is(lerr, ErrNoCredentials) {
			slog.Warn("saved credentials unusable", "error", lerr)
		}
		return nil, err
	}
	slog.Warn("API unreachable, resuming saved session", "crew_id", creds.CrewID)
	return &Session{CrewID: creds.CrewID, Role: creds.Role, Client: savingClient(ctx, cfg, fs, creds)}, nil
}

func savingClient(ctx context.Context, cfg *oauth2.Config, fs storage.FileStorage, creds Credentials) *http.Client {
	src := &savingSource{
		ctx:   ctx,
		src:   cfg.TokenSource(ctx, creds.Token),
		fs:    fs,
		creds: creds,
		last:  creds.Token.AccessToken,
	}
	return oauth2.NewClient(ctx, src)
}

// savingSource writes every new access token back to storage.
type savingSource struct {
	ctx   context.Context
	src   oauth2.TokenSource
	fs    storage.FileStorage
	creds Credentials

	mu   sync.Mutex
	last string
}

func (s *savingSource) Token() (*oauth2.Token, error) {
	tok, err := s.src.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		s.creds.Token = tok
		if err := SaveCredentials(s.ctx, s.fs, s.creds); err != nil {
			slog.Warn("could not save refreshed token", "error", err)
		}
	}
	return tok, nil
}
