package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/auth"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/repository/postgresql"
	"github.com/go-chi/jwtauth/v5"
	"golang.org/x/crypto/bcrypt"
)

var nowUnix = func() int64 { return time.Now().Unix() }

type AuthServiceImpl struct {
	tx database.Transactor
	crew.MemberRepository
	jwt.Service
	postgresql.JWTRepository
}

func NewAuthService(tx database.Transactor, memberRepository crew.MemberRepository, jwtService jwt.Service, jwtRepository postgresql.JWTRepository) auth.AuthService {
	return &AuthServiceImpl{
		tx:               tx,
		MemberRepository: memberRepository,
		Service:          jwtService,
		JWTRepository:    jwtRepository,
	}
}

// HashPassword returns the bcrypt hash stored in crew_members.password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Token implements auth.AuthService.
func (a *AuthServiceImpl) Token(ctx context.Context, req auth.TokenRequest, session auth.SessionTrackingRequest) (auth.TokenResponse, error) {
	if err := req.Validate(); err != nil {
		return auth.TokenResponse{}, err
	}

	switch req.GrantType {
	case auth.GrantPassword:
		return a.passwordGrant(ctx, req, session)
	default:
		return a.refreshGrant(ctx, req, session)
	}
}

func (a *AuthServiceImpl) passwordGrant(ctx context.Context, req auth.TokenRequest, session auth.SessionTrackingRequest) (auth.TokenResponse, error) {
	member, err := a.MemberRepository.GetByEmail(ctx, req.Username)
	if err != nil {
		if errors.Is(err, crew.ErrMemberNotFound) {
			return auth.TokenResponse{}, auth.ErrInvalidCredentials
		}
		return auth.TokenResponse{}, fmt.Errorf("failed to get crew member by email: %w", err)
	}

	if member.PasswordHash == nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*member.PasswordHash), []byte(req.Password)); err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidCredentials
	}

	var resp auth.TokenResponse
	err = a.tx.WithinTx(ctx, func(txCtx context.Context) error {
		resp, err = a.issue(txCtx, member, session)
		return err
	})
	if err != nil {
		return auth.TokenResponse{}, err
	}
	return resp, nil
}

// refreshGrant rotates the refresh token: the presented one is revoked and a new pair issued.
func (a *AuthServiceImpl) refreshGrant(ctx context.Context, req auth.TokenRequest, session auth.SessionTrackingRequest) (auth.TokenResponse, error) {
	token, err := jwtauth.VerifyToken(a.JWTAuth(), req.RefreshToken)
	if err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidToken
	}
	claims, err := token.AsMap(ctx)
	if err != nil {
		return auth.TokenResponse{}, auth.ErrInvalidToken
	}
	if tokenType, ok := claims["type"].(string); !ok || tokenType != "refresh" {
		return auth.TokenResponse{}, auth.ErrInvalidToken
	}

	var resp auth.TokenResponse
	err = a.tx.WithinTx(ctx, func(txCtx context.Context) error {
		crewID, revoked, err := a.JWTRepository.LookupRefreshToken(txCtx, req.RefreshToken)
		if err != nil {
			return err
		}
		if revoked {
			return auth.ErrRefreshTokenRevoked
		}

		member, err := a.MemberRepository.GetByID(txCtx, crewID)
		if err != nil {
			if errors.Is(err, crew.ErrMemberNotFound) {
				return auth.ErrUserNotFound
			}
			return fmt.Errorf("failed to get crew member: %w", err)
		}

		if err := a.JWTRepository.RevokeRefreshToken(txCtx, req.RefreshToken); err != nil {
			return err
		}
		resp, err = a.issue(txCtx, member, session)
		return err
	})
	if err != nil {
		return auth.TokenResponse{}, err
	}
	return resp, nil
}

func (a *AuthServiceImpl) issue(ctx context.Context, member crew.Member, session auth.SessionTrackingRequest) (auth.TokenResponse, error) {
	accessToken, accessExp, err := a.Service.GenerateAccessToken(member.ID, member.Email, member.Role)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create access token: %w", err)
	}
	refreshToken, refreshExp, err := a.Service.GenerateRefreshToken(member.ID)
	if err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to create refresh token: %w", err)
	}
	if err := a.CreateRefreshToken(ctx, member.ID, refreshToken, refreshExp, session); err != nil {
		return auth.TokenResponse{}, fmt.Errorf("failed to save refresh token to database: %w", err)
	}

	return auth.TokenResponse{
		AccessToken:  accessToken,
		TokenType:    "Bearer",
		ExpiresIn:    accessExp - nowUnix(),
		RefreshToken: refreshToken,
		Role:         string(member.Role),
		CrewID:       member.ID,
	}, nil
}

// Logout implements auth.AuthService.
func (a *AuthServiceImpl) Logout(ctx context.Context, refreshToken string) error {
	return a.tx.WithinTx(ctx, func(txCtx context.Context) error {
		_, revoked, err := a.JWTRepository.LookupRefreshToken(txCtx, refreshToken)
		if err != nil {
			return err
		}
		if revoked {
			return nil
		}
		return a.JWTRepository.RevokeRefreshToken(txCtx, refreshToken)
	})
}
