package expense

import (
	"context"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

type Service interface {
	Create(ctx context.Context, req CreateRequest) (ExpenseResponse, error)
	List(ctx context.Context, f *query.Filter) ([]ExpenseResponse, error)
	// Review approves or rejects a pending expense (supervisor)
	Review(ctx context.Context, id string, approve bool) (ExpenseResponse, error)
}
