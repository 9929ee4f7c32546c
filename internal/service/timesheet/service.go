package timesheet

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/notification"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
)

type TimesheetServiceImpl struct {
	tx database.Transactor
	timesheet.EventRepository
	timesheet.TimesheetRepository
	notificationService notification.Service
	now                 func() time.Time
}

func NewTimesheetService(
	tx database.Transactor,
	eventRepository timesheet.EventRepository,
	timesheetRepository timesheet.TimesheetRepository,
	notificationService notification.Service,
) timesheet.TimesheetService {
	return &TimesheetServiceImpl{
		tx:                  tx,
		EventRepository:     eventRepository,
		TimesheetRepository: timesheetRepository,
		notificationService: notificationService,
		now:                 time.Now,
	}
}

func (s *TimesheetServiceImpl) today() time.Time {
	d, _ := localtime.ParseDate(localtime.Today(s.now()))
	return d
}

// ListEvents implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) ListEvents(ctx context.Context) ([]timesheet.EventResponse, error) {
	events, err := s.EventRepository.ListActive(ctx, s.today())
	if err != nil {
		return nil, err
	}

	resp := make([]timesheet.EventResponse, 0, len(events))
	for _, e := range events {
		resp = append(resp, timesheet.NewEventResponse(e))
	}
	return resp, nil
}

// applyEventRates copies the pay configuration of the event onto the entry.
func applyEventRates(t *timesheet.Timesheet, e timesheet.Event, mode worktime.TrackingMode) {
	t.HourlyRate = e.HourlyRate
	t.DailyRate = e.DailyRate
	t.RetentionPercentage = e.RetentionPercentage
	t.EventTitle = &e.Title

	switch {
	case mode != "":
		t.TrackingMode = mode
	case e.HourlyRate == nil && e.DailyRate != nil:
		t.TrackingMode = worktime.TrackingDays
	default:
		t.TrackingMode = worktime.TrackingHours
	}
}

func netError(field string, err error) error {
	if errors.Is(err, worktime.ErrNonPositiveNet) {
		return validator.ValidationErrors{{Field: field, Message: err.Error()}}
	}
	return err
}

// CheckIn implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) CheckIn(ctx context.Context, req timesheet.CheckInRequest) (timesheet.TimesheetResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return timesheet.TimesheetResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	// Replays of an already stored check-in return the stored entry.
	if req.ID != nil {
		existing, err := s.TimesheetRepository.GetByID(ctx, *req.ID)
		if err == nil {
			if existing.CrewID != id.CrewID {
				return timesheet.TimesheetResponse{}, timesheet.ErrNotOwner
			}
			return timesheet.NewTimesheetResponse(existing), nil
		}
		if !errors.Is(err, timesheet.ErrTimesheetNotFound) {
			return timesheet.TimesheetResponse{}, err
		}
	}

	event, err := s.EventRepository.GetByID(ctx, req.EventID)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	day := s.today()
	if req.Date != nil {
		day, _ = localtime.ParseDate(*req.Date)
	}
	if !event.Covers(day) {
		return timesheet.TimesheetResponse{}, validator.ValidationErrors{{
			Field:   "date",
			Message: fmt.Sprintf("event %q does not run on %s", event.Title, day.Format(localtime.DateLayout)),
		}}
	}

	start := localtime.ClockOf(s.now())
	if req.StartTime != nil {
		start, _ = localtime.ParseClock(*req.StartTime)
	}

	entry := timesheet.Timesheet{
		CrewID:           id.CrewID,
		EventID:          event.ID,
		Date:             day,
		StartTime:        start.String(),
		PaymentStatus:    timesheet.PaymentPending,
		Status:           timesheet.StatusDraft,
		IsSelfAssigned:   req.IsSelfAssigned,
		CheckInLatitude:  req.Latitude,
		CheckInLongitude: req.Longitude,
		CheckInAccuracy:  req.Accuracy,
		CheckInAddress:   req.Address,
		HasLunchBenefit:  req.HasLunchBenefit,
		HasDinnerBenefit: req.HasDinnerBenefit,
		Notes:            req.Notes,
	}
	if req.ID != nil {
		entry.ID = *req.ID
	}
	applyEventRates(&entry, event, "")

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		open, err := s.TimesheetRepository.GetOpen(txCtx, id.CrewID, event.ID, day)
		if err != nil {
			return err
		}
		if open != nil {
			return timesheet.ErrAlreadyCheckedIn
		}
		entry, err = s.TimesheetRepository.Create(txCtx, entry)
		return err
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	return timesheet.NewTimesheetResponse(entry), nil
}

// loadOwned returns an entry that belongs to the caller.
func (s *TimesheetServiceImpl) loadOwned(ctx context.Context, entryID string) (timesheet.Timesheet, jwt.Identity, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return timesheet.Timesheet{}, id, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	t, err := s.TimesheetRepository.GetByID(ctx, entryID)
	if err != nil {
		return timesheet.Timesheet{}, id, err
	}
	if t.CrewID != id.CrewID {
		return timesheet.Timesheet{}, id, timesheet.ErrNotOwner
	}
	return t, id, nil
}

// CheckOut implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) CheckOut(ctx context.Context, req timesheet.CheckOutRequest) (timesheet.TimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	t, _, err := s.loadOwned(ctx, req.ID)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	if t.EndTime != nil {
		return timesheet.TimesheetResponse{}, timesheet.ErrAlreadyCheckedOut
	}
	if !t.Editable() {
		return timesheet.TimesheetResponse{}, timesheet.ErrNotEditable
	}

	end := localtime.ClockOf(s.now())
	if req.EndTime != nil {
		end, _ = localtime.ParseClock(*req.EndTime)
	}
	endStr := end.String()
	t.EndTime = &endStr
	if req.BreakMinutes != nil {
		t.BreakMinutes = *req.BreakMinutes
	}
	if req.Notes != nil {
		t.Notes = req.Notes
	}

	if err := t.Recompute(); err != nil {
		return timesheet.TimesheetResponse{}, netError("end_time", err)
	}
	if err := s.TimesheetRepository.Update(ctx, t); err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	return timesheet.NewTimesheetResponse(t), nil
}

// Upsert implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Upsert(ctx context.Context, req timesheet.UpsertRequest) (timesheet.TimesheetResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return timesheet.TimesheetResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	event, err := s.EventRepository.GetByID(ctx, req.EventID)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	existing, err := s.TimesheetRepository.GetByID(ctx, req.ID)
	found := err == nil
	if err != nil && !errors.Is(err, timesheet.ErrTimesheetNotFound) {
		return timesheet.TimesheetResponse{}, err
	}

	t := timesheet.Timesheet{
		ID:            req.ID,
		CrewID:        id.CrewID,
		PaymentStatus: timesheet.PaymentPending,
		Status:        timesheet.StatusDraft,
	}
	if found {
		if existing.CrewID != id.CrewID {
			return timesheet.TimesheetResponse{}, timesheet.ErrNotOwner
		}
		if !existing.Editable() {
			return timesheet.TimesheetResponse{}, timesheet.ErrNotEditable
		}
		t = existing
		// an edited rejection goes back to draft
		t.Status = timesheet.StatusDraft
		t.RejectionReason = nil
	}

	day, _ := localtime.ParseDate(req.Date)
	start, _ := localtime.ParseClock(req.StartTime)
	t.EventID = event.ID
	t.Date = day
	t.StartTime = start.String()
	t.EndTime = normalizeClock(req.EndTime)
	t.BreakMinutes = req.BreakMinutes
	t.IsSelfAssigned = req.IsSelfAssigned
	t.HasLunchBenefit = req.HasLunchBenefit
	t.HasDinnerBenefit = req.HasDinnerBenefit
	t.Notes = req.Notes
	applyEventRates(&t, event, req.TrackingMode)

	if err := t.Recompute(); err != nil {
		return timesheet.TimesheetResponse{}, netError("end_time", err)
	}

	if found {
		err = s.TimesheetRepository.Update(ctx, t)
	} else {
		t, err = s.TimesheetRepository.Create(ctx, t)
	}
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	return timesheet.NewTimesheetResponse(t), nil
}

func normalizeClock(v *string) *string {
	if v == nil {
		return nil
	}
	c, err := localtime.ParseClock(*v)
	if err != nil {
		return nil
	}
	out := c.String()
	return &out
}

// Submit implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Submit(ctx context.Context, entryID string) (timesheet.TimesheetResponse, error) {
	t, id, err := s.loadOwned(ctx, entryID)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	if !t.Editable() {
		return timesheet.TimesheetResponse{}, timesheet.ErrNotEditable
	}
	if t.EndTime == nil {
		return timesheet.TimesheetResponse{}, timesheet.ErrNotSubmittable
	}

	t.Status = timesheet.StatusSubmitted
	t.RejectionReason = nil
	if err := s.TimesheetRepository.Update(ctx, t); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	s.notify(ctx, func() error {
		return s.notificationService.NotifySupervisors(ctx, notification.CreateNotificationRequest{
			SenderID: &id.CrewID,
			Type:     notification.TypeTimesheetSubmitted,
			Title:    "Timesheet submitted",
			Message:  fmt.Sprintf("A timesheet for %s on %s is waiting for review", eventTitle(t), t.Date.Format(localtime.DateLayout)),
			Data:     map[string]interface{}{"timesheet_id": t.ID, "crew_id": t.CrewID},
		})
	})
	return timesheet.NewTimesheetResponse(t), nil
}

func eventTitle(t timesheet.Timesheet) string {
	if t.EventTitle != nil {
		return *t.EventTitle
	}
	return "event"
}

func (s *TimesheetServiceImpl) notify(ctx context.Context, send func() error) {
	if err := send(); err != nil {
		slog.WarnContext(ctx, "failed to send timesheet notification", "error", err)
	}
}

func (s *TimesheetServiceImpl) review(ctx context.Context, entryID string, apply func(t *timesheet.Timesheet)) (timesheet.Timesheet, jwt.Identity, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return timesheet.Timesheet{}, id, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if !id.IsSupervisor() {
		return timesheet.Timesheet{}, id, crew.ErrSupervisorAccessRequired
	}

	t, err := s.TimesheetRepository.GetByID(ctx, entryID)
	if err != nil {
		return timesheet.Timesheet{}, id, err
	}
	if t.Status != timesheet.StatusSubmitted {
		return timesheet.Timesheet{}, id, timesheet.ErrNotSubmitted
	}

	apply(&t)
	if err := s.TimesheetRepository.Update(ctx, t); err != nil {
		return timesheet.Timesheet{}, id, err
	}
	return t, id, nil
}

// Approve implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Approve(ctx context.Context, entryID string) (timesheet.TimesheetResponse, error) {
	t, id, err := s.review(ctx, entryID, func(t *timesheet.Timesheet) {
		t.Status = timesheet.StatusApproved
		t.RejectionReason = nil
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	s.notify(ctx, func() error {
		return s.notificationService.QueueNotification(ctx, notification.CreateNotificationRequest{
			CrewID:   t.CrewID,
			SenderID: &id.CrewID,
			Type:     notification.TypeTimesheetReviewed,
			Title:    "Timesheet approved",
			Message:  fmt.Sprintf("Your timesheet for %s on %s was approved", eventTitle(t), t.Date.Format(localtime.DateLayout)),
			Data:     map[string]interface{}{"timesheet_id": t.ID, "status": string(t.Status)},
		})
	})
	return timesheet.NewTimesheetResponse(t), nil
}

// Reject implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Reject(ctx context.Context, req timesheet.RejectRequest) (timesheet.TimesheetResponse, error) {
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	t, id, err := s.review(ctx, req.ID, func(t *timesheet.Timesheet) {
		reason := req.Reason
		t.Status = timesheet.StatusRejected
		t.RejectionReason = &reason
	})
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	s.notify(ctx, func() error {
		return s.notificationService.QueueNotification(ctx, notification.CreateNotificationRequest{
			CrewID:   t.CrewID,
			SenderID: &id.CrewID,
			Type:     notification.TypeTimesheetReviewed,
			Title:    "Timesheet rejected",
			Message:  req.Reason,
			Data:     map[string]interface{}{"timesheet_id": t.ID, "status": string(t.Status)},
		})
	})
	return timesheet.NewTimesheetResponse(t), nil
}

// AdvancePayment implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) AdvancePayment(ctx context.Context, req timesheet.PaymentRequest) (timesheet.TimesheetResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return timesheet.TimesheetResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if err := req.Validate(); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	t, err := s.TimesheetRepository.GetByID(ctx, req.ID)
	if err != nil {
		return timesheet.TimesheetResponse{}, err
	}
	if req.Status.BySupervisor() {
		if !id.IsSupervisor() {
			return timesheet.TimesheetResponse{}, crew.ErrSupervisorAccessRequired
		}
	} else if t.CrewID != id.CrewID {
		return timesheet.TimesheetResponse{}, timesheet.ErrNotOwner
	}
	if t.Status != timesheet.StatusApproved {
		return timesheet.TimesheetResponse{}, timesheet.ErrNotApproved
	}
	if !t.PaymentStatus.Next(req.Status) {
		return timesheet.TimesheetResponse{}, timesheet.ErrInvalidPaymentStep
	}

	t.PaymentStatus = req.Status
	if err := s.TimesheetRepository.Update(ctx, t); err != nil {
		return timesheet.TimesheetResponse{}, err
	}

	msg := notification.CreateNotificationRequest{
		SenderID: &id.CrewID,
		Type:     notification.TypePaymentUpdated,
		Title:    "Payment updated",
		Message:  fmt.Sprintf("Payment for %s on %s is now %s", eventTitle(t), t.Date.Format(localtime.DateLayout), t.PaymentStatus),
		Data:     map[string]interface{}{"timesheet_id": t.ID, "payment_status": string(t.PaymentStatus)},
	}
	s.notify(ctx, func() error {
		if req.Status.BySupervisor() {
			msg.CrewID = t.CrewID
			return s.notificationService.QueueNotification(ctx, msg)
		}
		return s.notificationService.NotifySupervisors(ctx, msg)
	})
	return timesheet.NewTimesheetResponse(t), nil
}

// Delete implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) Delete(ctx context.Context, entryID string) error {
	t, _, err := s.loadOwned(ctx, entryID)
	if err != nil {
		return err
	}
	if t.Status != timesheet.StatusDraft {
		return timesheet.ErrOnlyDraftDeletable
	}
	return s.TimesheetRepository.Delete(ctx, t.ID)
}

// List implements timesheet.TimesheetService.
func (s *TimesheetServiceImpl) List(ctx context.Context, f *query.Filter) (timesheet.ListTimesheetResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return timesheet.ListTimesheetResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if f == nil {
		f = query.New()
	}
	if !id.IsSupervisor() {
		f = f.Without("crew_id").Eq("crew_id", id.CrewID)
	}

	list, total, err := s.TimesheetRepository.List(ctx, f)
	if err != nil {
		return timesheet.ListTimesheetResponse{}, err
	}

	limit, offset := f.Page()
	resp := timesheet.ListTimesheetResponse{
		Timesheets: make([]timesheet.TimesheetResponse, 0, len(list)),
		Total:      total,
		Limit:      limit,
		Offset:     offset,
	}
	for _, t := range list {
		resp.Timesheets = append(resp.Timesheets, timesheet.NewTimesheetResponse(t))
	}
	return resp, nil
}
