package postgresql

import (
	"context"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type JWTRepository interface {
	CreateRefreshToken(ctx context.Context, crewID string, token string, expiresAt int64, sessionReq auth.SessionTrackingRequest) error
	// LookupRefreshToken returns the owner of a stored refresh token and whether
	// it can no longer be used. Unknown tokens return auth.ErrInvalidToken.
	LookupRefreshToken(ctx context.Context, token string) (crewID string, revoked bool, err error)
	RevokeRefreshToken(ctx context.Context, token string) error
}

type jwtRepositoryImpl struct {
	db  *database.DB
	now func() time.Time
}

// NewJWTRepository creates a new instance of JWTRepository.
func NewJWTRepository(db *database.DB) JWTRepository {
	return &jwtRepositoryImpl{db: db, now: time.Now}
}

// hashToken hashes the input string using SHA256 and encodes the result in base64.
func hashToken(input string) string {
	hash := sha256.Sum256([]byte(input))
	return base64.StdEncoding.EncodeToString(hash[:])
}

func (j *jwtRepositoryImpl) CreateRefreshToken(ctx context.Context, crewID string, token string, expiresAt int64, sessionReq auth.SessionTrackingRequest) error {
	q := GetQuerier(ctx, j.db)
	query := `
		INSERT INTO refresh_tokens (crew_id, token_hash, expires_at, user_agent, ip_address)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := q.Exec(ctx, query, crewID, hashToken(token), time.Unix(expiresAt, 0).UTC(), sessionReq.UserAgent, sessionReq.IPAddress)
	if err != nil {
		return fmt.Errorf("failed to store refresh token: %w", err)
	}
	return nil
}

func (j *jwtRepositoryImpl) LookupRefreshToken(ctx context.Context, token string) (string, bool, error) {
	q := GetQuerier(ctx, j.db)

	query := `
		SELECT crew_id, revoked_at, expires_at
		FROM refresh_tokens
		WHERE token_hash = $1
		ORDER BY expires_at DESC
		LIMIT 1
	`

	var crewID string
	var revokedAt *time.Time
	var expiresAt time.Time

	err := q.QueryRow(ctx, query, hashToken(token)).Scan(&crewID, &revokedAt, &expiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, auth.ErrInvalidToken
		}
		return "", false, fmt.Errorf("failed to look up refresh token: %w", err)
	}

	revoked := revokedAt != nil || !expiresAt.After(j.now())
	return crewID, revoked, nil
}

func (j *jwtRepositoryImpl) RevokeRefreshToken(ctx context.Context, token string) error {
	q := GetQuerier(ctx, j.db)

	query := `
		UPDATE refresh_tokens
		SET revoked_at = NOW()
		WHERE token_hash = $1 AND revoked_at IS NULL
	`
	if _, err := q.Exec(ctx, query, hashToken(token)); err != nil {
		return fmt.Errorf("failed to revoke refresh token: %w", err)
	}
	return nil
}
