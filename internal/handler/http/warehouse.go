package http

import (
	"net/http"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/warehouse"
	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type WarehouseHandler interface {
	List(w http.ResponseWriter, r *http.Request)
	ListShifts(w http.ResponseWriter, r *http.Request)
	CreateShift(w http.ResponseWriter, r *http.Request)
	ValidateShift(w http.ResponseWriter, r *http.Request)
}

type warehouseHandlerImpl struct {
	warehouseService warehouse.WarehouseService
}

func NewWarehouseHandler(warehouseService warehouse.WarehouseService) WarehouseHandler {
	return &warehouseHandlerImpl{
		warehouseService: warehouseService,
	}
}

// List implements WarehouseHandler.
func (h *warehouseHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	result, err := h.warehouseService.ListWarehouses(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// ListShifts implements WarehouseHandler.
func (h *warehouseHandlerImpl) ListShifts(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r, warehouse.ShiftFilterColumns)
	if !ok {
		return
	}

	result, err := h.warehouseService.ListShifts(r.Context(), f)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// CreateShift implements WarehouseHandler.
func (h *warehouseHandlerImpl) CreateShift(w http.ResponseWriter, r *http.Request) {
	var req warehouse.CreateShiftRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.warehouseService.CreateShift(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Shift scheduled", result)
}

// ValidateShift implements WarehouseHandler.
func (h *warehouseHandlerImpl) ValidateShift(w http.ResponseWriter, r *http.Request) {
	result, err := h.warehouseService.ValidateShift(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}
