package expense

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/expense"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/notification"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/service/file"
)

const receiptURLExpiry = 15 * time.Minute

type ExpenseServiceImpl struct {
	expense.Repository
	fileService         file.FileService
	notificationService notification.Service
}

func NewExpenseService(repo expense.Repository, fileService file.FileService, notificationService notification.Service) expense.Service {
	return &ExpenseServiceImpl{
		Repository:          repo,
		fileService:         fileService,
		notificationService: notificationService,
	}
}

func (s *ExpenseServiceImpl) response(ctx context.Context, e expense.Expense) expense.ExpenseResponse {
	var receiptURL *string
	if e.ReceiptPath != nil {
		url, err := s.fileService.GetFileURL(ctx, *e.ReceiptPath, receiptURLExpiry)
		if err != nil {
			slog.WarnContext(ctx, "failed to sign receipt url", "expense_id", e.ID, "error", err)
		} else {
			receiptURL = &url
		}
	}
	return expense.NewExpenseResponse(e, receiptURL)
}

// Create implements expense.Service.
func (s *ExpenseServiceImpl) Create(ctx context.Context, req expense.CreateRequest) (expense.ExpenseResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return expense.ExpenseResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if err := req.Validate(); err != nil {
		return expense.ExpenseResponse{}, err
	}

	// A replayed expense keeps its original receipt.
	if req.ID != nil {
		existing, err := s.Repository.GetByID(ctx, *req.ID)
		if err == nil && existing.CrewID == id.CrewID {
			return s.response(ctx, existing), nil
		}
	}

	day, _ := localtime.ParseDate(req.Date)
	e := expense.Expense{
		CrewID:      id.CrewID,
		EventID:     req.EventID,
		Date:        day,
		Category:    req.Category,
		Amount:      req.Amount,
		Description: req.Description,
		Status:      expense.StatusPending,
	}
	if req.ID != nil {
		e.ID = *req.ID
	}

	if req.Receipt != nil {
		filename := "receipt.jpg"
		if req.ReceiptHeader != nil {
			filename = req.ReceiptHeader.Filename
		}
		key, err := s.fileService.UploadReceipt(ctx, id.CrewID, day, req.Receipt, filename)
		if err != nil {
			return expense.ExpenseResponse{}, fmt.Errorf("%w: %v", expense.ErrReceiptNotImage, err)
		}
		e.ReceiptPath = &key
	}

	created, err := s.Repository.Create(ctx, e)
	if err != nil {
		if e.ReceiptPath != nil {
			if delErr := s.fileService.DeleteFile(ctx, *e.ReceiptPath); delErr != nil {
				slog.WarnContext(ctx, "failed to remove orphaned receipt", "path", *e.ReceiptPath, "error", delErr)
			}
		}
		return expense.ExpenseResponse{}, err
	}

	if err := s.notificationService.NotifySupervisors(ctx, notification.CreateNotificationRequest{
		SenderID: &id.CrewID,
		Type:     notification.TypeExpenseSubmitted,
		Title:    "Expense submitted",
		Message:  fmt.Sprintf("New %s expense of %.2f on %s", created.Category, created.Amount, created.Date.Format(localtime.DateLayout)),
		Data:     map[string]interface{}{"expense_id": created.ID, "crew_id": created.CrewID},
	}); err != nil {
		slog.WarnContext(ctx, "failed to notify supervisors of expense", "expense_id", created.ID, "error", err)
	}

	return s.response(ctx, created), nil
}

// List implements expense.Service.
func (s *ExpenseServiceImpl) List(ctx context.Context, f *query.Filter) ([]expense.ExpenseResponse, error) {
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

	list, err := s.Repository.List(ctx, f)
	if err != nil {
		return nil, err
	}
	resp := make([]expense.ExpenseResponse, 0, len(list))
	for _, e := range list {
		resp = append(resp, s.response(ctx, e))
	}
	return resp, nil
}

// Review implements expense.Service.
func (s *ExpenseServiceImpl) Review(ctx context.Context, expenseID string, approve bool) (expense.ExpenseResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return expense.ExpenseResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if !id.IsSupervisor() {
		return expense.ExpenseResponse{}, crew.ErrSupervisorAccessRequired
	}

	e, err := s.Repository.GetByID(ctx, expenseID)
	if err != nil {
		return expense.ExpenseResponse{}, err
	}
	if e.Status != expense.StatusPending {
		return expense.ExpenseResponse{}, expense.ErrAlreadyReviewed
	}

	e.Status = expense.StatusRejected
	if approve {
		e.Status = expense.StatusApproved
	}
	if err := s.Repository.UpdateStatus(ctx, e.ID, e.Status); err != nil {
		return expense.ExpenseResponse{}, err
	}
	return s.response(ctx, e), nil
}
