package crew

import (
	"context"
)

type MemberRepository interface {
	GetByEmail(ctx context.Context, email string) (Member, error)
	GetByID(ctx context.Context, id string) (Member, error)
	// ListSupervisors returns every member with supervisor or admin role
	ListSupervisors(ctx context.Context) ([]Member, error)
}
