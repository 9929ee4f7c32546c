package expense

import (
	"mime/multipart"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
)

const (
	MaxReceiptSize       = 10 << 20
	maxDescriptionLength = 500
)

var FilterColumns = query.Columns{
	"id":         {Expr: "x.id", Type: "uuid"},
	"crew_id":    {Expr: "x.crew_id", Type: "uuid"},
	"event_id":   {Expr: "x.event_id", Type: "uuid"},
	"date":       {Expr: "x.date", Type: "date"},
	"category":   {Expr: "x.category"},
	"status":     {Expr: "x.status"},
	"created_at": {Expr: "x.created_at", Type: "timestamptz"},
}

type CreateRequest struct {
	ID          *string  `json:"id,omitempty"`
	EventID     *string  `json:"event_id,omitempty"`
	Date        string   `json:"date"`
	Category    Category `json:"category"`
	Amount      float64  `json:"amount"`
	Description *string  `json:"description,omitempty"`

	// Multipart uploads only
	Receipt       multipart.File        `json:"-"`
	ReceiptHeader *multipart.FileHeader `json:"-"`
}

func (r *CreateRequest) Validate() error {
	var errs validator.ValidationErrors

	if r.ID != nil && !validator.IsValidUUID(*r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id must be a UUIDv7"})
	}
	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{Field: "date", Message: "date must be in YYYY-MM-DD format"})
	}
	if !r.Category.IsValid() {
		errs = append(errs, validator.ValidationError{
			Field:   "category",
			Message: "category must be one of fuel, parking, meal, transport, other",
		})
	}
	if r.Amount <= 0 {
		errs = append(errs, validator.ValidationError{Field: "amount", Message: "amount must be greater than zero"})
	}
	if r.Description != nil && len(*r.Description) > maxDescriptionLength {
		errs = append(errs, validator.ValidationError{Field: "description", Message: "description must not exceed 500 characters"})
	}
	if r.ReceiptHeader != nil && r.ReceiptHeader.Size > MaxReceiptSize {
		errs = append(errs, validator.ValidationError{Field: "receipt", Message: ErrReceiptTooLarge.Error()})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

type ExpenseResponse struct {
	ID          string   `json:"id"`
	CrewID      string   `json:"crew_id"`
	EventID     *string  `json:"event_id,omitempty"`
	Date        string   `json:"date"`
	Category    Category `json:"category"`
	Amount      float64  `json:"amount"`
	Description *string  `json:"description,omitempty"`
	ReceiptURL  *string  `json:"receipt_url,omitempty"`
	Status      Status   `json:"status"`
	CreatedAt   string   `json:"created_at"`
}

func NewExpenseResponse(e Expense, receiptURL *string) ExpenseResponse {
	return ExpenseResponse{
		ID:          e.ID,
		CrewID:      e.CrewID,
		EventID:     e.EventID,
		Date:        e.Date.Format(localtime.DateLayout),
		Category:    e.Category,
		Amount:      e.Amount,
		Description: e.Description,
		ReceiptURL:  receiptURL,
		Status:      e.Status,
		CreatedAt:   e.CreatedAt.Format(time.RFC3339),
	}
}
