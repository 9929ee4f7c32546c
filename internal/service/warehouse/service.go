package warehouse

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/warehouse"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/shift"
)

type WarehouseServiceImpl struct {
	warehouse.WarehouseRepository
	warehouse.ShiftRepository
	now func() time.Time
}

func NewWarehouseService(warehouseRepository warehouse.WarehouseRepository, shiftRepository warehouse.ShiftRepository) warehouse.WarehouseService {
	return &WarehouseServiceImpl{
		WarehouseRepository: warehouseRepository,
		ShiftRepository:     shiftRepository,
		now:                 time.Now,
	}
}

// ListWarehouses implements warehouse.WarehouseService.
func (s *WarehouseServiceImpl) ListWarehouses(ctx context.Context) ([]warehouse.WarehouseResponse, error) {
	list, err := s.WarehouseRepository.List(ctx)
	if err != nil {
		return nil, err
	}

	resp := make([]warehouse.WarehouseResponse, 0, len(list))
	for _, w := range list {
		resp = append(resp, warehouse.NewWarehouseResponse(w))
	}
	return resp, nil
}

// ListShifts implements warehouse.WarehouseService.
func (s *WarehouseServiceImpl) ListShifts(ctx context.Context, f *query.Filter) ([]warehouse.ShiftResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if f == nil {
		f = query.New()
	}
	if !id.IsSupervisor() {
		f = f.Without("crew_id").Eq("crew_id", id.CrewID)
	}

	list, err := s.ShiftRepository.List(ctx, f)
	if err != nil {
		return nil, err
	}

	resp := make([]warehouse.ShiftResponse, 0, len(list))
	for _, sh := range list {
		resp = append(resp, warehouse.NewShiftResponse(sh))
	}
	return resp, nil
}

// CreateShift implements warehouse.WarehouseService.
func (s *WarehouseServiceImpl) CreateShift(ctx context.Context, req warehouse.CreateShiftRequest) (warehouse.ShiftResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return warehouse.ShiftResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if !id.IsSupervisor() {
		return warehouse.ShiftResponse{}, crew.ErrSupervisorAccessRequired
	}
	if err := req.Validate(); err != nil {
		return warehouse.ShiftResponse{}, err
	}

	if _, err := s.WarehouseRepository.GetByID(ctx, req.WarehouseID); err != nil {
		return warehouse.ShiftResponse{}, err
	}

	date, _ := localtime.ParseDate(req.Date)
	start, _ := localtime.ParseClock(req.StartTime)
	end, _ := localtime.ParseClock(req.EndTime)

	created, err := s.ShiftRepository.Create(ctx, warehouse.Shift{
		CrewID:      req.CrewID,
		WarehouseID: req.WarehouseID,
		Date:        date,
		StartTime:   start.String(),
		EndTime:     end.String(),
		Notes:       req.Notes,
	})
	if err != nil {
		return warehouse.ShiftResponse{}, err
	}
	return warehouse.NewShiftResponse(created), nil
}

// ValidateShift implements warehouse.WarehouseService.
func (s *WarehouseServiceImpl) ValidateShift(ctx context.Context, shiftID string) (warehouse.ShiftValidationResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return warehouse.ShiftValidationResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	sh, err := s.ShiftRepository.GetByID(ctx, shiftID)
	if err != nil {
		return warehouse.ShiftValidationResponse{}, err
	}
	if sh.CrewID != id.CrewID && !id.IsSupervisor() {
		return warehouse.ShiftValidationResponse{}, warehouse.ErrShiftNotOwned
	}

	w, err := sh.Window()
	if err != nil {
		return warehouse.ShiftValidationResponse{}, fmt.Errorf("invalid stored shift window: %w", err)
	}
	return warehouse.NewShiftValidationResponse(sh.ID, shift.Validate(w, s.now())), nil
}
