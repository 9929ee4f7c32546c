package overtime

import (
	"context"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

type Repository interface {
	Create(ctx context.Context, r Request) (Request, error)
	GetByID(ctx context.Context, id string) (Request, error)
	// GetByCheckin returns the request raised on an attendance record, or nil
	GetByCheckin(ctx context.Context, checkinID string) (*Request, error)
	// LockCheckin serializes requests raised on one attendance record inside a transaction
	LockCheckin(ctx context.Context, checkinID string) error
	UpdateReview(ctx context.Context, r Request) error
	List(ctx context.Context, f *query.Filter) ([]Request, error)
}
