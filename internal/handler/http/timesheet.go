package http

import (
	"net/http"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type TimesheetHandler interface {
	ListEvents(w http.ResponseWriter, r *http.Request)
	CheckIn(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	Upsert(w http.ResponseWriter, r *http.Request)
	Submit(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
	Payment(w http.ResponseWriter, r *http.Request)
	Delete(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
}

type timesheetHandlerImpl struct {
	timesheetService timesheet.TimesheetService
}

func NewTimesheetHandler(timesheetService timesheet.TimesheetService) TimesheetHandler {
	return &timesheetHandlerImpl{
		timesheetService: timesheetService,
	}
}

// ListEvents implements TimesheetHandler.
func (h *timesheetHandlerImpl) ListEvents(w http.ResponseWriter, r *http.Request) {
	result, err := h.timesheetService.ListEvents(r.Context())
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// CheckIn implements TimesheetHandler.
func (h *timesheetHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req timesheet.CheckInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.timesheetService.CheckIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Check in successful", result)
}

// CheckOut implements TimesheetHandler.
func (h *timesheetHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req timesheet.CheckOutRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.timesheetService.CheckOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Check out successful", result)
}

// Upsert implements TimesheetHandler.
func (h *timesheetHandlerImpl) Upsert(w http.ResponseWriter, r *http.Request) {
	var req timesheet.UpsertRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.timesheetService.Upsert(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Timesheet saved", result)
}

// Submit implements TimesheetHandler.
func (h *timesheetHandlerImpl) Submit(w http.ResponseWriter, r *http.Request) {
	result, err := h.timesheetService.Submit(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Timesheet submitted", result)
}

// Approve implements TimesheetHandler.
func (h *timesheetHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	result, err := h.timesheetService.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Timesheet approved", result)
}

// Reject implements TimesheetHandler.
func (h *timesheetHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	var req timesheet.RejectRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.timesheetService.Reject(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Timesheet rejected", result)
}

// Payment implements TimesheetHandler.
func (h *timesheetHandlerImpl) Payment(w http.ResponseWriter, r *http.Request) {
	var req timesheet.PaymentRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.ID = chi.URLParam(r, "id")

	result, err := h.timesheetService.AdvancePayment(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Payment status updated", result)
}

// Delete implements TimesheetHandler.
func (h *timesheetHandlerImpl) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.timesheetService.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Timesheet deleted", nil)
}

// List implements TimesheetHandler.
func (h *timesheetHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r, timesheet.FilterColumns)
	if !ok {
		return
	}

	result, err := h.timesheetService.List(r.Context(), f)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Timesheets, &response.Meta{
		Limit:      result.Limit,
		Offset:     result.Offset,
		TotalItems: result.Total,
	})
}
