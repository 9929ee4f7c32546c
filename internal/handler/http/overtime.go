package http

import (
	"net/http"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/overtime"
	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type OvertimeHandler interface {
	Options(w http.ResponseWriter, r *http.Request)
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
}

type overtimeHandlerImpl struct {
	overtimeService overtime.Service
}

func NewOvertimeHandler(overtimeService overtime.Service) OvertimeHandler {
	return &overtimeHandlerImpl{
		overtimeService: overtimeService,
	}
}

// Options implements OvertimeHandler.
func (h *overtimeHandlerImpl) Options(w http.ResponseWriter, r *http.Request) {
	checkinID := r.URL.Query().Get("checkin_id")
	if checkinID == "" {
		response.BadRequest(w, "checkin_id is required", map[string]string{"checkin_id": "checkin_id is required"})
		return
	}

	result, err := h.overtimeService.Options(r.Context(), checkinID)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// Create implements OvertimeHandler.
func (h *overtimeHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req overtime.CreateRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.overtimeService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Overtime requested", result)
}

// List implements OvertimeHandler.
func (h *overtimeHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r, overtime.FilterColumns)
	if !ok {
		return
	}

	result, err := h.overtimeService.List(r.Context(), f)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

func (h *overtimeHandlerImpl) review(w http.ResponseWriter, r *http.Request, approve bool) {
	req := overtime.ReviewRequest{}
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")
	req.Approve = approve

	result, err := h.overtimeService.Review(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Overtime request reviewed", result)
}

// Approve implements OvertimeHandler.
func (h *overtimeHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, true)
}

// Reject implements OvertimeHandler.
func (h *overtimeHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	h.review(w, r, false)
}
