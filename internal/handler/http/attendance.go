package http

import (
	"net/http"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/report"
	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type AttendanceHandler interface {
	CheckIn(w http.ResponseWriter, r *http.Request)
	StartBreak(w http.ResponseWriter, r *http.Request)
	EndBreak(w http.ResponseWriter, r *http.Request)
	CheckOut(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Get(w http.ResponseWriter, r *http.Request)
	Rectify(w http.ResponseWriter, r *http.Request)
	MonthlyReport(w http.ResponseWriter, r *http.Request)
	ExportMonthlyReport(w http.ResponseWriter, r *http.Request)
}

type attendanceHandlerImpl struct {
	attendanceService attendance.AttendanceService
	reportService     report.ReportService
}

func NewAttendanceHandler(attendanceService attendance.AttendanceService, reportService report.ReportService) AttendanceHandler {
	return &attendanceHandlerImpl{
		attendanceService: attendanceService,
		reportService:     reportService,
	}
}

// CheckIn implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckIn(w http.ResponseWriter, r *http.Request) {
	var req attendance.CheckInRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.attendanceService.CheckIn(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.Created(w, "Check in successful", result)
}

func (h *attendanceHandlerImpl) breakRequest(w http.ResponseWriter, r *http.Request) (attendance.BreakRequest, bool) {
	var req attendance.BreakRequest
	if r.ContentLength > 0 && !decodeJSON(w, r, &req) {
		return req, false
	}
	req.AttendanceID = chi.URLParam(r, "id")
	req.Kind = attendance.BreakKind(chi.URLParam(r, "kind"))
	return req, true
}

// StartBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) StartBreak(w http.ResponseWriter, r *http.Request) {
	req, ok := h.breakRequest(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.StartBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break started", result)
}

// EndBreak implements AttendanceHandler.
func (h *attendanceHandlerImpl) EndBreak(w http.ResponseWriter, r *http.Request) {
	req, ok := h.breakRequest(w, r)
	if !ok {
		return
	}

	result, err := h.attendanceService.EndBreak(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Break ended", result)
}

// CheckOut implements AttendanceHandler.
func (h *attendanceHandlerImpl) CheckOut(w http.ResponseWriter, r *http.Request) {
	var req attendance.CheckOutRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AttendanceID = chi.URLParam(r, "id")

	result, err := h.attendanceService.CheckOut(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Check out successful", result)
}

// List implements AttendanceHandler.
func (h *attendanceHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r, attendance.FilterColumns)
	if !ok {
		return
	}

	result, err := h.attendanceService.ListAttendance(r.Context(), f)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMeta(w, result.Attendances, &response.Meta{
		Limit:      result.Limit,
		Offset:     result.Offset,
		TotalItems: result.Total,
	})
}

// Get implements AttendanceHandler.
func (h *attendanceHandlerImpl) Get(w http.ResponseWriter, r *http.Request) {
	result, err := h.attendanceService.GetAttendance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// Rectify implements AttendanceHandler.
func (h *attendanceHandlerImpl) Rectify(w http.ResponseWriter, r *http.Request) {
	var req attendance.RectifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	req.AttendanceID = chi.URLParam(r, "id")

	result, err := h.attendanceService.Rectify(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}

	response.SuccessWithMessage(w, "Attendance rectified", result)
}

func reportRequest(r *http.Request) report.MonthlyAttendanceReportRequest {
	req := report.MonthlyAttendanceReportRequest{Month: r.URL.Query().Get("month")}
	if crewID := r.URL.Query().Get("crew_id"); crewID != "" {
		req.CrewID = &crewID
	}
	return req
}

// MonthlyReport implements AttendanceHandler.
func (h *attendanceHandlerImpl) MonthlyReport(w http.ResponseWriter, r *http.Request) {
	result, err := h.reportService.GenerateMonthlyAttendanceReport(r.Context(), reportRequest(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// ExportMonthlyReport implements AttendanceHandler.
func (h *attendanceHandlerImpl) ExportMonthlyReport(w http.ResponseWriter, r *http.Request) {
	book, err := h.reportService.ExportMonthlyAttendanceReport(r.Context(), reportRequest(r))
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Attachment(w, book.Filename, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", book.Content)
}
