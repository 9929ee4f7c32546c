package warehouse

import (
	"context"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

type WarehouseRepository interface {
	List(ctx context.Context) ([]Warehouse, error)
	GetByID(ctx context.Context, id string) (Warehouse, error)
}

type ShiftRepository interface {
	Create(ctx context.Context, s Shift) (Shift, error)
	GetByID(ctx context.Context, id string) (Shift, error)
	List(ctx context.Context, f *query.Filter) ([]Shift, error)
}
