package jwt

import (
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/go-chi/jwtauth/v5"
	"github.com/google/uuid"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

type Service interface {
	GenerateAccessToken(crewID string, email string, role crew.Role) (token string, expiresAt int64, err error)
	GenerateRefreshToken(crewID string) (token string, expiresAt int64, err error)
	GenerateSSEToken(crewID string) (token string, expiresIn int, err error)
	ValidateSSEToken(tokenString string) (crewID string, err error)
	JWTAuth() *jwtauth.JWTAuth
}

type JWTService struct {
	accessTokenExpirationTime  string
	refreshTokenExpirationTime string
	tokenAuth                  *jwtauth.JWTAuth
	now                        func() time.Time
}

func (j *JWTService) JWTAuth() *jwtauth.JWTAuth {
	return j.tokenAuth
}

func NewJWTService(secretKey string, accessTokenExpirationTime string, refreshTokenExpirationTime string) Service {
	return &JWTService{
		accessTokenExpirationTime:  accessTokenExpirationTime,
		refreshTokenExpirationTime: refreshTokenExpirationTime,
		tokenAuth:                  jwtauth.New("HS256", []byte(secretKey), nil, jwt.WithAcceptableSkew(30*time.Second)),
		now:                        time.Now,
	}
}

func (j *JWTService) GenerateAccessToken(crewID string, email string, role crew.Role) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.accessTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = j.now().Add(expDuration).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"crew_id": crewID,
		"email":   email,
		"role":    string(role),
		"type":    "access",
		"exp":     expiresAt,
	})
	return tokenString, expiresAt, err
}

func (j *JWTService) GenerateRefreshToken(crewID string) (token string, expiresAt int64, err error) {
	expDuration, err := time.ParseDuration(j.refreshTokenExpirationTime)
	if err != nil {
		return "", 0, err
	}
	expiresAt = j.now().Add(expDuration).Unix()
	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"crew_id": crewID,
		"exp":     expiresAt,
		"jti":     uuid.NewString(),
		"type":    "refresh",
	})
	return tokenString, expiresAt, err
}

// GenerateSSEToken generates a short-lived token for SSE connections
func (j *JWTService) GenerateSSEToken(crewID string) (token string, expiresIn int, err error) {
	expiresIn = 300
	expiresAt := j.now().Add(5 * time.Minute).Unix()

	_, tokenString, err := j.tokenAuth.Encode(map[string]interface{}{
		"crew_id": crewID,
		"type":    "sse",
		"exp":     expiresAt,
	})
	if err != nil {
		return "", 0, err
	}

	return tokenString, expiresIn, nil
}

// ValidateSSEToken validates an SSE token and returns the crew member ID
func (j *JWTService) ValidateSSEToken(tokenString string) (crewID string, err error) {
	token, err := jwtauth.VerifyToken(j.tokenAuth, tokenString)
	if err != nil {
		return "", err
	}

	tokenType, ok := token.Get("type")
	if !ok || tokenType != "sse" {
		return "", jwt.ErrInvalidJWT()
	}

	idVal, ok := token.Get("crew_id")
	if !ok {
		return "", jwt.ErrInvalidJWT()
	}

	crewID, ok = idVal.(string)
	if !ok || crewID == "" {
		return "", jwt.ErrInvalidJWT()
	}

	return crewID, nil
}
