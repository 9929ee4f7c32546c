package expense

import (
	"context"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

type Repository interface {
	// Create inserts an expense; an existing id is left untouched so replays are harmless
	Create(ctx context.Context, e Expense) (Expense, error)
	GetByID(ctx context.Context, id string) (Expense, error)
	UpdateStatus(ctx context.Context, id string, status Status) error
	List(ctx context.Context, f *query.Filter) ([]Expense, error)
}
