package overtime

import (
	"context"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
)

type Service interface {
	// Options returns the selectable request sizes for an attendance record
	Options(ctx context.Context, checkinID string) (OptionsResponse, error)

	Create(ctx context.Context, req CreateRequest) (RequestResponse, error)
	List(ctx context.Context, f *query.Filter) ([]RequestResponse, error)

	// Review approves or rejects a pending request (supervisor)
	Review(ctx context.Context, req ReviewRequest) (RequestResponse, error)
}
