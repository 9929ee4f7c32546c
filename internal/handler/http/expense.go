package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/expense"
	"github.com/cmlabs-hris/crew-attendance/internal/handler/http/response"
	"github.com/go-chi/chi/v5"
)

type ExpenseHandler interface {
	Create(w http.ResponseWriter, r *http.Request)
	List(w http.ResponseWriter, r *http.Request)
	Approve(w http.ResponseWriter, r *http.Request)
	Reject(w http.ResponseWriter, r *http.Request)
}

type expenseHandlerImpl struct {
	expenseService expense.Service
}

func NewExpenseHandler(expenseService expense.Service) ExpenseHandler {
	return &expenseHandlerImpl{
		expenseService: expenseService,
	}
}

// Create accepts a JSON body, or a multipart form with the JSON in 'data'
// and an optional 'receipt' photo.
func (h *expenseHandlerImpl) Create(w http.ResponseWriter, r *http.Request) {
	var req expense.CreateRequest

	if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if !decodeJSON(w, r, &req) {
			return
		}
		h.create(w, r, req)
		return
	}

	// Parse multipart form (max 10MB)
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		slog.Error("Failed to parse multipart form", "error", err)
		response.BadRequest(w, "Failed to parse form data", nil)
		return
	}

	dataJSON := r.FormValue("data")
	if dataJSON == "" {
		response.BadRequest(w, "Field 'data' is required", nil)
		return
	}
	if err := json.Unmarshal([]byte(dataJSON), &req); err != nil {
		slog.Error("Failed to unmarshal JSON data", "error", err)
		response.BadRequest(w, "Invalid request format", nil)
		return
	}

	file, fileHeader, err := r.FormFile("receipt")
	switch {
	case err == http.ErrMissingFile:
	case err != nil:
		slog.Error("Failed to get file from form", "error", err)
		response.BadRequest(w, "Invalid file upload", nil)
		return
	default:
		defer file.Close()
		req.Receipt = file
		req.ReceiptHeader = fileHeader
	}

	h.create(w, r, req)
}

func (h *expenseHandlerImpl) create(w http.ResponseWriter, r *http.Request, req expense.CreateRequest) {
	result, err := h.expenseService.Create(r.Context(), req)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Created(w, "Expense recorded", result)
}

// List implements ExpenseHandler.
func (h *expenseHandlerImpl) List(w http.ResponseWriter, r *http.Request) {
	f, ok := parseFilter(w, r, expense.FilterColumns)
	if !ok {
		return
	}

	result, err := h.expenseService.List(r.Context(), f)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.Success(w, result)
}

// Approve implements ExpenseHandler.
func (h *expenseHandlerImpl) Approve(w http.ResponseWriter, r *http.Request) {
	result, err := h.expenseService.Review(r.Context(), chi.URLParam(r, "id"), true)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Expense approved", result)
}

// Reject implements ExpenseHandler.
func (h *expenseHandlerImpl) Reject(w http.ResponseWriter, r *http.Request) {
	result, err := h.expenseService.Review(r.Context(), chi.URLParam(r, "id"), false)
	if err != nil {
		response.HandleError(w, err)
		return
	}
	response.SuccessWithMessage(w, "Expense rejected", result)
}
