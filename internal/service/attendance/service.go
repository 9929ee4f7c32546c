package attendance

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/notification"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/warehouse"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/shift"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/utils"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
)

type AttendanceServiceImpl struct {
	tx database.Transactor
	attendance.AttendanceRepository
	warehouse.WarehouseRepository
	warehouse.ShiftRepository
	crew.MemberRepository
	notificationService notification.Service
	now                 func() time.Time
}

func NewAttendanceService(
	tx database.Transactor,
	attendanceRepository attendance.AttendanceRepository,
	warehouseRepository warehouse.WarehouseRepository,
	shiftRepository warehouse.ShiftRepository,
	memberRepository crew.MemberRepository,
	notificationService notification.Service,
) attendance.AttendanceService {
	return &AttendanceServiceImpl{
		tx:                   tx,
		AttendanceRepository: attendanceRepository,
		WarehouseRepository:  warehouseRepository,
		ShiftRepository:      shiftRepository,
		MemberRepository:     memberRepository,
		notificationService:  notificationService,
		now:                  time.Now,
	}
}

// CheckIn implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckIn(ctx context.Context, req attendance.CheckInRequest) (attendance.AttendanceResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return attendance.AttendanceResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	// A replayed offline check-in carries the moment it was recorded.
	moment := s.now()
	if req.Date != nil || req.CheckInTime != nil {
		day := moment
		if req.Date != nil {
			day, _ = localtime.ParseDate(*req.Date)
		}
		clock := localtime.ClockOf(moment)
		if req.CheckInTime != nil {
			clock, _ = localtime.ParseClock(*req.CheckInTime)
		}
		moment = localtime.Combine(day, clock)
	}

	record := attendance.Attendance{
		CrewID:           id.CrewID,
		ShiftType:        req.ShiftType,
		CheckInTime:      localtime.ClockOf(moment).String(),
		HasLunchBenefit:  req.HasLunchBenefit,
		HasDinnerBenefit: req.HasDinnerBenefit,
		CheckIn:          req.Position.ToPosition(),
		ForcedCheckIn:    req.Forced,
		Status:           attendance.StatusActive,
		Notes:            req.Notes,
	}
	if req.Forced {
		record.ForcedReason = req.ForcedReason
	}

	var site warehouse.Warehouse
	switch req.ShiftType {
	case attendance.ShiftWarehouse:
		sh, err := s.ShiftRepository.GetByID(ctx, *req.ShiftID)
		if err != nil {
			return attendance.AttendanceResponse{}, err
		}
		if sh.CrewID != id.CrewID {
			return attendance.AttendanceResponse{}, warehouse.ErrShiftNotOwned
		}
		w, err := sh.Window()
		if err != nil {
			return attendance.AttendanceResponse{}, fmt.Errorf("invalid stored shift window: %w", err)
		}
		res := shift.Validate(w, moment)
		if !res.CanCheckIn {
			return attendance.AttendanceResponse{}, validator.ValidationErrors{{Field: "shift", Message: res.Reason}}
		}

		site, err = s.WarehouseRepository.GetByID(ctx, sh.WarehouseID)
		if err != nil {
			return attendance.AttendanceResponse{}, err
		}
		record.ShiftID = &sh.ID
		record.Date = w.Day
		record.ScheduledStart = &sh.StartTime
		record.ScheduledEnd = &sh.EndTime
	default:
		site, err = s.WarehouseRepository.GetByID(ctx, *req.WarehouseID)
		if err != nil {
			return attendance.AttendanceResponse{}, err
		}
		day, _ := localtime.ParseDate(localtime.DateString(moment))
		record.Date = day
	}
	record.WarehouseID = site.ID
	record.WarehouseName = &site.Name

	if site.HasCoordinates() && req.Position.HasFix() {
		d := utils.CalculateHaversineDistance(*site.Latitude, *site.Longitude, *req.Position.Latitude, *req.Position.Longitude)
		record.DistanceFromSiteM = &d
	}

	err = s.tx.WithinTx(ctx, func(txCtx context.Context) error {
		if err := s.AttendanceRepository.LockActive(txCtx, id.CrewID, req.ShiftType); err != nil {
			return err
		}
		active, err := s.AttendanceRepository.GetActive(txCtx, id.CrewID, req.ShiftType)
		if err != nil {
			return err
		}
		if active != nil {
			return attendance.ErrAlreadyCheckedIn
		}

		created, err := s.AttendanceRepository.Create(txCtx, record)
		if err != nil {
			return err
		}
		record = created
		return nil
	})
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}

	if record.ForcedCheckIn {
		s.notifyForcedCheckIn(ctx, id, record)
	}

	return attendance.NewAttendanceResponse(record), nil
}

func (s *AttendanceServiceImpl) notifyForcedCheckIn(ctx context.Context, id jwt.Identity, a attendance.Attendance) {
	reason := ""
	if a.ForcedReason != nil {
		reason = *a.ForcedReason
	}
	siteName := a.WarehouseID
	if a.WarehouseName != nil {
		siteName = *a.WarehouseName
	}

	err := s.notificationService.NotifySupervisors(ctx, notification.CreateNotificationRequest{
		SenderID: &id.CrewID,
		Type:     notification.TypeForcedCheckIn,
		Title:    "Forced check-in",
		Message:  fmt.Sprintf("Check-in without GPS at %s: %s", siteName, reason),
		Data: map[string]interface{}{
			"attendance_id": a.ID,
			"crew_id":       a.CrewID,
			"warehouse":     siteName,
			"date":          a.Date.Format(localtime.DateLayout),
			"check_in_time": a.CheckInTime,
			"reason":        reason,
		},
	})
	if err != nil {
		slog.Error("failed to notify supervisors of forced check-in", "attendance_id", a.ID, "error", err)
	}
}

// loadOwned fetches a record the caller may act on.
func (s *AttendanceServiceImpl) loadOwned(ctx context.Context, recordID string) (attendance.Attendance, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}

	a, err := s.AttendanceRepository.GetByID(ctx, recordID)
	if err != nil {
		return attendance.Attendance{}, err
	}
	if a.CrewID != id.CrewID && !id.IsSupervisor() {
		return attendance.Attendance{}, attendance.ErrUnauthorized
	}
	return a, nil
}

func (s *AttendanceServiceImpl) clockOr(v *string) string {
	if v != nil {
		c, _ := localtime.ParseClock(*v)
		return c.String()
	}
	return localtime.ClockOf(s.now()).String()
}

// StartBreak implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) StartBreak(ctx context.Context, req attendance.BreakRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	a, err := s.loadOwned(ctx, req.AttendanceID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if a.Status != attendance.StatusActive {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyCheckedOut
	}
	if start, _ := a.BreakState(req.Kind); start != nil {
		return attendance.AttendanceResponse{}, attendance.ErrBreakAlreadyStarted
	}

	a.SetBreakStart(req.Kind, s.clockOr(req.Time))
	if err := s.AttendanceRepository.Update(ctx, a); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.NewAttendanceResponse(a), nil
}

// EndBreak implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) EndBreak(ctx context.Context, req attendance.BreakRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	a, err := s.loadOwned(ctx, req.AttendanceID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if a.Status != attendance.StatusActive {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyCheckedOut
	}
	start, end := a.BreakState(req.Kind)
	if start == nil {
		return attendance.AttendanceResponse{}, attendance.ErrBreakNotStarted
	}
	if end != nil {
		return attendance.AttendanceResponse{}, attendance.ErrBreakAlreadyEnded
	}

	a.SetBreakEnd(req.Kind, s.clockOr(req.Time))
	a.BreakMinutes = worktime.BreakMinutes(a.Breaks()...)
	if err := s.AttendanceRepository.Update(ctx, a); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.NewAttendanceResponse(a), nil
}

// CheckOut implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) CheckOut(ctx context.Context, req attendance.CheckOutRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	a, err := s.loadOwned(ctx, req.AttendanceID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if a.Status != attendance.StatusActive {
		return attendance.AttendanceResponse{}, attendance.ErrAlreadyCheckedOut
	}

	out, _ := localtime.ParseClock(s.clockOr(req.CheckOutTime))
	a.CheckOut = req.Position.ToPosition()
	if req.Notes != nil {
		a.Notes = req.Notes
	}

	mealEnabled, err := s.mealVoucherEnabled(ctx, a.CrewID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if err := closeRecord(&a, out, mealEnabled); err != nil {
		if errors.Is(err, worktime.ErrNonPositiveNet) {
			return attendance.AttendanceResponse{}, validator.ValidationErrors{{Field: "check_out_time", Message: err.Error()}}
		}
		return attendance.AttendanceResponse{}, err
	}

	if err := s.AttendanceRepository.Update(ctx, a); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.NewAttendanceResponse(a), nil
}

func (s *AttendanceServiceImpl) mealVoucherEnabled(ctx context.Context, crewID string) (bool, error) {
	m, err := s.MemberRepository.GetByID(ctx, crewID)
	if err != nil {
		return false, fmt.Errorf("failed to get crew member: %w", err)
	}
	return m.MealVoucherEnabled, nil
}

// closeRecord ends running breaks at out and fills every checkout total.
func closeRecord(a *attendance.Attendance, out localtime.Clock, mealEnabled bool) error {
	in, err := localtime.ParseClock(a.CheckInTime)
	if err != nil {
		return fmt.Errorf("invalid stored check-in time: %w", err)
	}

	for _, kind := range []attendance.BreakKind{attendance.BreakLunch, attendance.BreakDinner} {
		if a.BreakRunning(kind) {
			a.SetBreakEnd(kind, out.String())
		}
	}
	breaks := a.Breaks()

	net, err := worktime.ValidateNet(in, out, breaks...)
	if err != nil {
		return err
	}

	outStr := out.String()
	total := worktime.Hours(worktime.Elapsed(in, out))
	netHours := worktime.Hours(net)

	a.CheckOutTime = &outStr
	a.BreakMinutes = worktime.BreakMinutes(breaks...)
	a.TotalHours = &total
	a.NetHours = &netHours
	a.Status = attendance.StatusCompleted
	a.MealVoucher = mealEnabled && (a.HasLunchBenefit || a.HasDinnerBenefit) && net >= attendance.MealVoucherMinNetMinutes

	if w, ok := a.Window(); ok {
		ot := net - worktime.ExpectedMinutes(w.Start, w.End)
		if ot < 0 {
			ot = 0
		}
		a.OvertimeMinutes = &ot
	}
	return nil
}

// GetAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) GetAttendance(ctx context.Context, recordID string) (attendance.AttendanceResponse, error) {
	a, err := s.loadOwned(ctx, recordID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.NewAttendanceResponse(a), nil
}

// ListAttendance implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) ListAttendance(ctx context.Context, f *query.Filter) (attendance.ListAttendanceResponse, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return attendance.ListAttendanceResponse{}, fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if f == nil {
		f = query.New()
	}
	if !id.IsSupervisor() {
		f = f.Without("crew_id").Eq("crew_id", id.CrewID)
	}

	list, total, err := s.AttendanceRepository.List(ctx, f)
	if err != nil {
		return attendance.ListAttendanceResponse{}, err
	}

	limit, offset := f.Page()
	resp := attendance.ListAttendanceResponse{
		Attendances: make([]attendance.AttendanceResponse, 0, len(list)),
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	}
	for _, a := range list {
		resp.Attendances = append(resp.Attendances, attendance.NewAttendanceResponse(a))
	}
	return resp, nil
}

// Rectify implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) Rectify(ctx context.Context, req attendance.RectifyRequest) (attendance.AttendanceResponse, error) {
	if err := req.Validate(); err != nil {
		return attendance.AttendanceResponse{}, err
	}

	a, err := s.loadOwned(ctx, req.AttendanceID)
	if err != nil {
		return attendance.AttendanceResponse{}, err
	}
	if a.Status != attendance.StatusCompleted {
		return attendance.AttendanceResponse{}, attendance.ErrNotCompleted
	}

	in, _ := localtime.ParseClock(req.CheckInTime)
	out, _ := localtime.ParseClock(req.CheckOutTime)
	inStr, outStr := in.String(), out.String()

	a.RectifiedCheckIn = &inStr
	a.RectifiedCheckOut = &outStr
	a.RectifiedLunchStart = normalizeClock(req.LunchStart)
	a.RectifiedLunchEnd = normalizeClock(req.LunchEnd)
	a.RectifiedDinnerStart = normalizeClock(req.DinnerStart)
	a.RectifiedDinnerEnd = normalizeClock(req.DinnerEnd)
	note := req.Note
	a.RectificationNote = &note

	_, _, breaks := a.Effective()
	net, err := worktime.ValidateNet(in, out, breaks...)
	if err != nil {
		return attendance.AttendanceResponse{}, validator.ValidationErrors{{Field: "check_out_time", Message: err.Error()}}
	}
	netHours := worktime.Hours(net)
	now := s.now()
	a.RectifiedNetHours = &netHours
	a.RectifiedAt = &now

	if err := s.AttendanceRepository.Update(ctx, a); err != nil {
		return attendance.AttendanceResponse{}, err
	}
	return attendance.NewAttendanceResponse(a), nil
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

// AutoCheckout implements attendance.AttendanceService.
func (s *AttendanceServiceImpl) AutoCheckout(ctx context.Context, now time.Time, grace time.Duration) (int, error) {
	open, err := s.AttendanceRepository.ListOpen(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list open attendances: %w", err)
	}

	closed := 0
	for _, a := range open {
		w, ok := a.Window()
		if !ok {
			continue
		}
		_, endAt := w.Bounds()
		if now.Before(endAt.Add(grace)) {
			continue
		}

		mealEnabled, err := s.mealVoucherEnabled(ctx, a.CrewID)
		if err != nil {
			slog.Error("auto checkout: failed to load crew member", "attendance_id", a.ID, "error", err)
			continue
		}

		a.AutoCheckout = true
		if err := closeRecord(&a, w.End, mealEnabled); err != nil {
			if !errors.Is(err, worktime.ErrNonPositiveNet) {
				slog.Error("auto checkout: failed to close record", "attendance_id", a.ID, "error", err)
				continue
			}
			closeWithoutWork(&a, w.End)
		}
		if err := s.AttendanceRepository.Update(ctx, a); err != nil {
			slog.Error("auto checkout: failed to update record", "attendance_id", a.ID, "error", err)
			continue
		}

		closed++
		s.notifyAutoCheckout(ctx, a)
	}

	if closed > 0 {
		slog.Info("auto checkout completed", "closed", closed, "open", len(open))
	}
	return closed, nil
}

// closeWithoutWork completes a record whose breaks cover the whole shift.
func closeWithoutWork(a *attendance.Attendance, out localtime.Clock) {
	outStr := out.String()
	zero := 0.0
	noOvertime := 0
	a.CheckOutTime = &outStr
	a.TotalHours = &zero
	a.NetHours = &zero
	a.OvertimeMinutes = &noOvertime
	a.MealVoucher = false
	a.Status = attendance.StatusCompleted
}

func (s *AttendanceServiceImpl) notifyAutoCheckout(ctx context.Context, a attendance.Attendance) {
	data := map[string]interface{}{
		"attendance_id":  a.ID,
		"crew_id":        a.CrewID,
		"date":           a.Date.Format(localtime.DateLayout),
		"check_out_time": *a.CheckOutTime,
	}
	msg := fmt.Sprintf("Your shift of %s was closed automatically at %s", a.Date.Format(localtime.DateLayout), localtime.FormatTimeOfDay(*a.CheckOutTime))

	if err := s.notificationService.QueueNotification(ctx, notification.CreateNotificationRequest{
		CrewID:  a.CrewID,
		Type:    notification.TypeAutoCheckout,
		Title:   "Automatic checkout",
		Message: msg,
		Data:    data,
	}); err != nil {
		slog.Warn("failed to queue auto checkout notification", "attendance_id", a.ID, "error", err)
	}

	crewName := a.CrewID
	if a.CrewName != nil {
		crewName = *a.CrewName
	}
	if err := s.notificationService.NotifySupervisors(ctx, notification.CreateNotificationRequest{
		Type:    notification.TypeAutoCheckout,
		Title:   "Automatic checkout",
		Message: fmt.Sprintf("%s did not check out; the shift was closed at the scheduled end", crewName),
		Data:    data,
	}); err != nil {
		slog.Warn("failed to notify supervisors of auto checkout", "attendance_id", a.ID, "error", err)
	}
}
