package jwt

import (
	"context"
	"errors"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/go-chi/jwtauth/v5"
)

var ErrMissingClaims = errors.New("crew_id claim is missing or invalid")

// Identity is the caller taken from the verified access token.
type Identity struct {
	CrewID string
	Email  string
	Role   crew.Role
}

func (i Identity) IsSupervisor() bool {
	return crew.IsSupervisorRole(string(i.Role))
}

// FromContext reads the identity placed on the context by jwtauth.Verifier.
func FromContext(ctx context.Context) (Identity, error) {
	_, claims, err := jwtauth.FromContext(ctx)
	if err != nil {
		return Identity{}, err
	}

	crewID, ok := claims["crew_id"].(string)
	if !ok || crewID == "" {
		return Identity{}, ErrMissingClaims
	}
	email, _ := claims["email"].(string)
	role, _ := claims["role"].(string)

	return Identity{CrewID: crewID, Email: email, Role: crew.Role(role)}, nil
}

var contextAuth = jwtauth.New("HS256", []byte("identity-context"), nil)

// NewContext returns ctx carrying a token for id, the way jwtauth.Verifier
// leaves it. Used by background jobs and tests that act for a crew member.
func NewContext(ctx context.Context, id Identity) context.Context {
	token, _, err := contextAuth.Encode(map[string]interface{}{
		"crew_id": id.CrewID,
		"email":   id.Email,
		"role":    string(id.Role),
		"type":    "access",
	})
	return jwtauth.NewContext(ctx, token, err)
}
