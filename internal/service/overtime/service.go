package overtime

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/notification"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/overtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
)

type OvertimeServiceImpl struct {
	tx database.Transactor
	overtime.Repository
	attendanceRepository attendance.AttendanceRepository
	memberRepository     crew.MemberRepository
	notificationService  notification.Service
	now                  func() time.Time
}

func NewOvertimeService(
	tx database.Transactor,
	repo overtime.Repository,
	attendanceRepository attendance.AttendanceRepository,
	memberRepository crew.MemberRepository,
	notificationService notification.Service,
) overtime.Service {
	return &OvertimeServiceImpl{
		tx:                   tx,
		Repository:           repo,
		attendanceRepository: attendanceRepository,
		memberRepository:     memberRepository,
		notificationService:  notificationService,
		now:                  time.Now,
	}
}

// workedAndExpected returns the effective net minutes of a completed record
// and the length of its scheduled shift.
func workedAndExpected(a attendance.Attendance) (worked, expected int, err error) {
	in, out, breaks := a.Effective()
	if out == nil {
		return 0, 0, overtime.ErrAttendanceNotCompleted
	}
	inClock, err := localtime.ParseClock(in)
	if err != nil {
		return 0, 0, err
	}
	outClock, err := localtime.ParseClock(*out)
	if err != nil {
		return 0, 0, err
	}
	worked = worktime.NetMinutes(inClock, outClock, breaks...)

	expected = attendance.StandardShiftMinutes
	if w, ok := a.Window(); ok {
		expected = worktime.ExpectedMinutes(w.Start, w.End)
	}
	return worked, expected, nil
}

// loadCompleted returns a completed record owned by the caller.
func (s *OvertimeServiceImpl) loadCompleted(ctx context.Context, crewID, checkinID string) (attendance.Attendance, error) {
	a, err := s.attendanceRepository.GetByID(ctx, checkinID)
	if err != nil {
		return attendance.Attendance{}, err
	}
	if a.CrewID != crewID {
		return attendance.Attendance{}, attendance.ErrUnauthorized
	}
	if a.Status != attendance.StatusCompleted {
		return attendance.Attendance{}, overtime.ErrAttendanceNotCompleted
	}
	return a, nil
}

// Options implements overtime.Service.
func (s *OvertimeServiceImpl) Options(ctx context.Context, checkinID string) (overtime.OptionsResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return overtime.OptionsResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	a, err := s.loadCompleted(ctx, id.CrewID, checkinID)
	if err != nil {
		return overtime.OptionsResponse{}, err
	}
	worked, expected, err := workedAndExpected(a)
	if err != nil {
		return overtime.OptionsResponse{}, err
	}
	existing, err := s.Repository.GetByCheckin(ctx, a.ID)
	if err != nil {
		return overtime.OptionsResponse{}, err
	}

	requestable := worktime.RequestableOvertime(worked, expected)
	return overtime.OptionsResponse{
		CheckinID:        a.ID,
		WorkedMinutes:    worked,
		ExpectedMinutes:  expected,
		Requestable:      requestable,
		Options:          worktime.OvertimeOptions(requestable),
		AlreadyRequested: existing != nil,
	}, nil
}

// Create implements overtime.Service.
func (s *OvertimeServiceImpl) Create(ctx context.Context, req overtime.CreateRequest) (overtime.RequestResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return overtime.RequestResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if err := req.Validate(); err != nil {
		return overtime.RequestResponse{}, err
	}

	a, err := s.loadCompleted(ctx, id.CrewID, req.CheckinID)
	if err != nil {
		return overtime.RequestResponse{}, err
	}
	worked, expected, err := workedAndExpected(a)
	if err != nil {
		return overtime.RequestResponse{}, err
	}
	requestable := worktime.RequestableOvertime(worked, expected)
	if requestable == 0 {
		return overtime.RequestResponse{}, overtime.ErrNoOvertimeAvailable
	}
	if !worktime.ValidOvertime(req.RequestedMinutes, requestable) {
		return overtime.RequestResponse{}, validator.ValidationErrors{{
			Field:   "requested_minutes",
			Message: fmt.Sprintf("at most %d minutes can be requested", requestable),
		}}
	}

	member, err := s.memberRepository.GetByID(ctx, id.CrewID)
	if err != nil {
		return overtime.RequestResponse{}, err
	}
	if !member.HasOvertimeBenefit() {
		return overtime.RequestResponse{}, overtime.ErrNoOvertimeBenefit
	}

	r := overtime.Request{
		CheckinID:        a.ID,
		CrewID:           id.CrewID,
		RequestedMinutes: req.RequestedMinutes,
		HourlyRate:       *member.OvertimeHourlyRate,
		Justification:    req.Justification,
		Status:           overtime.StatusPending,
	}

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.Repository.LockCheckin(txCtx, a.ID); err != nil {
			return err
		}
		existing, err := s.Repository.GetByCheckin(txCtx, a.ID)
		if err != nil {
			return err
		}
		if existing != nil {
			return overtime.ErrOvertimeAlreadyRequested
		}
		r, err = s.Repository.Create(txCtx, r)
		return err
	})
	if err != nil {
		return overtime.RequestResponse{}, err
	}
	r.CrewName = &member.FullName
	r.Date = &a.Date

	if err := s.notificationService.NotifySupervisors(ctx, notification.CreateNotificationRequest{
		SenderID: &id.CrewID,
		Type:     notification.TypeOvertimeRequested,
		Title:    "Overtime requested",
		Message: fmt.Sprintf("%s requested %d minutes of overtime on %s",
			member.FullName, r.RequestedMinutes, a.Date.Format(localtime.DateLayout)),
		Data: map[string]interface{}{"overtime_id": r.ID, "checkin_id": a.ID},
	}); err != nil {
		slog.WarnContext(ctx, "failed to notify supervisors of overtime request", "overtime_id", r.ID, "error", err)
	}

	return overtime.NewRequestResponse(r), nil
}

// List implements overtime.Service.
func (s *OvertimeServiceImpl) List(ctx context.Context, f *query.Filter) ([]overtime.RequestResponse, error) {
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
	resp := make([]overtime.RequestResponse, 0, len(list))
	for _, r := range list {
		resp = append(resp, overtime.NewRequestResponse(r))
	}
	return resp, nil
}

// Review implements overtime.Service.
func (s *OvertimeServiceImpl) Review(ctx context.Context, req overtime.ReviewRequest) (overtime.RequestResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return overtime.RequestResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if !id.IsSupervisor() {
		return overtime.RequestResponse{}, crew.ErrSupervisorAccessRequired
	}

	r, err := s.Repository.GetByID(ctx, req.ID)
	if err != nil {
		return overtime.RequestResponse{}, err
	}
	if r.Status != overtime.StatusPending {
		return overtime.RequestResponse{}, overtime.ErrAlreadyReviewed
	}

	now := s.now()
	r.Status = overtime.StatusRejected
	if req.Approve {
		r.Status = overtime.StatusApproved
	}
	r.ReviewedBy = &id.CrewID
	r.ReviewedAt = &now
	r.ReviewNote = req.Note
	if err := s.Repository.UpdateReview(ctx, r); err != nil {
		return overtime.RequestResponse{}, err
	}

	title := "Overtime rejected"
	if req.Approve {
		title = "Overtime approved"
	}
	message := fmt.Sprintf("Your request for %d minutes of overtime was %s", r.RequestedMinutes, r.Status)
	if req.Note != nil {
		message += ": " + *req.Note
	}
	if err := s.notificationService.QueueNotification(ctx, notification.CreateNotificationRequest{
		CrewID:   r.CrewID,
		SenderID: &id.CrewID,
		Type:     notification.TypeOvertimeReviewed,
		Title:    title,
		Message:  message,
		Data:     map[string]interface{}{"overtime_id": r.ID, "status": string(r.Status)},
	}); err != nil {
		slog.WarnContext(ctx, "failed to notify crew member of overtime review", "overtime_id", r.ID, "error", err)
	}

	return overtime.NewRequestResponse(r), nil
}
