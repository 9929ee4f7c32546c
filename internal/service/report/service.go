package report

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/overtime"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/report"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/worktime"
	"github.com/xuri/excelize/v2"
)

type ReportServiceImpl struct {
	attendanceRepo attendance.AttendanceRepository
	overtimeRepo   overtime.Repository
	now            func() time.Time
}

func NewReportService(attendanceRepo attendance.AttendanceRepository, overtimeRepo overtime.Repository) report.ReportService {
	return &ReportServiceImpl{
		attendanceRepo: attendanceRepo,
		overtimeRepo:   overtimeRepo,
		now:            time.Now,
	}
}

// scope resolves whose records the caller may see. Crew members always get
// their own; supervisors get the requested member or everyone.
func scope(ctx context.Context, req report.MonthlyAttendanceReportRequest) (string, error) {
	id, err := jwt.FromContext(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to extract claims from context: %w", err)
	}
	if !id.IsSupervisor() {
		if req.CrewID != nil && *req.CrewID != id.CrewID {
			return "", crew.ErrSupervisorAccessRequired
		}
		return id.CrewID, nil
	}
	if req.CrewID != nil {
		return *req.CrewID, nil
	}
	return "", nil
}

// approvedOvertime sums approved request minutes per attendance record.
func (s *ReportServiceImpl) approvedOvertime(ctx context.Context, crewID string) (map[string]int, error) {
	out := map[string]int{}
	for offset := 0; ; offset += query.MaxLimit {
		f := query.New().Eq("status", string(overtime.StatusApproved)).Limit(query.MaxLimit).Offset(offset)
		if crewID != "" {
			f = f.Eq("crew_id", crewID)
		}
		page, err := s.overtimeRepo.List(ctx, f)
		if err != nil {
			return nil, err
		}
		for _, r := range page {
			out[r.CheckinID] += r.RequestedMinutes
		}
		if len(page) < query.MaxLimit {
			return out, nil
		}
	}
}

// GenerateMonthlyAttendanceReport implements report.ReportService.
func (s *ReportServiceImpl) GenerateMonthlyAttendanceReport(ctx context.Context, req report.MonthlyAttendanceReportRequest) (report.MonthlyAttendanceReport, error) {
	if err := req.Validate(); err != nil {
		return report.MonthlyAttendanceReport{}, err
	}
	crewID, err := scope(ctx, req)
	if err != nil {
		return report.MonthlyAttendanceReport{}, err
	}
	start, end, err := req.Period()
	if err != nil {
		return report.MonthlyAttendanceReport{}, err
	}

	records, err := s.attendanceRepo.ListByCrewAndRange(ctx, crewID, start, end)
	if err != nil {
		return report.MonthlyAttendanceReport{}, fmt.Errorf("failed to get attendance data: %w", err)
	}
	approved, err := s.approvedOvertime(ctx, crewID)
	if err != nil {
		return report.MonthlyAttendanceReport{}, fmt.Errorf("failed to get overtime data: %w", err)
	}

	var members []report.MonthlyAttendanceMember
	index := map[string]int{}
	for _, a := range records {
		i, ok := index[a.CrewID]
		if !ok {
			name := a.CrewID
			if a.CrewName != nil {
				name = *a.CrewName
			}
			members = append(members, report.MonthlyAttendanceMember{CrewID: a.CrewID, CrewName: name, DailyLogs: []report.AttendanceDailyLog{}})
			i = len(members) - 1
			index[a.CrewID] = i
		}
		m := &members[i]
		log := dailyLog(a)
		m.DailyLogs = append(m.DailyLogs, log)
		accumulate(&m.Summary, a, log, approved[a.ID])
	}
	if members == nil {
		members = []report.MonthlyAttendanceMember{}
	}

	return report.MonthlyAttendanceReport{
		Month:       req.Month,
		PeriodStart: start.Format(localtime.DateLayout),
		PeriodEnd:   end.AddDate(0, 0, -1).Format(localtime.DateLayout),
		GeneratedAt: s.now().Format(time.RFC3339),
		Members:     members,
	}, nil
}

func dailyLog(a attendance.Attendance) report.AttendanceDailyLog {
	in, out, breaks := a.Effective()
	warehouse := a.WarehouseID
	if a.WarehouseName != nil {
		warehouse = *a.WarehouseName
	}
	log := report.AttendanceDailyLog{
		AttendanceID:      a.ID,
		Date:              a.Date.Format(localtime.DateLayout),
		DayOfWeek:         a.Date.Weekday().String(),
		Warehouse:         warehouse,
		ShiftType:         string(a.ShiftType),
		ScheduledStart:    a.ScheduledStart,
		ScheduledEnd:      a.ScheduledEnd,
		CheckIn:           in,
		CheckOut:          out,
		NetHours:          a.EffectiveNetHours(),
		MealVoucher:       a.MealVoucher,
		Forced:            a.ForcedCheckIn,
		AutoCheckout:      a.AutoCheckout,
		Rectified:         a.IsRectified(),
		RectificationNote: a.RectificationNote,
	}
	if a.IsRectified() {
		log.BreakMinutes = worktime.BreakMinutes(breaks...)
	} else {
		log.BreakMinutes = a.BreakMinutes
	}
	if a.OvertimeMinutes != nil {
		log.OvertimeMinutes = *a.OvertimeMinutes
	}
	return log
}

func accumulate(sum *report.AttendanceSummary, a attendance.Attendance, log report.AttendanceDailyLog, approvedMinutes int) {
	sum.TotalShifts++
	switch a.ShiftType {
	case attendance.ShiftWarehouse:
		sum.WarehouseShifts++
	case attendance.ShiftExtra:
		sum.ExtraShifts++
	}
	if log.NetHours != nil {
		sum.TotalNetHours = math.Round((sum.TotalNetHours+*log.NetHours)*100) / 100
	}
	sum.OvertimeMinutes += log.OvertimeMinutes
	sum.ApprovedOvertimeMinutes += approvedMinutes
	if log.MealVoucher {
		sum.MealVouchers++
	}
	if log.Forced {
		sum.ForcedCheckIns++
	}
	if log.AutoCheckout {
		sum.AutoCheckouts++
	}
	if log.Rectified {
		sum.Rectified++
	}
	if a.Status == attendance.StatusActive {
		sum.OpenShifts++
	}
}

var (
	summaryHeader = []interface{}{
		"Crew member", "Shifts", "Warehouse", "Extra", "Net hours", "Overtime (min)",
		"Approved overtime (min)", "Meal vouchers", "Forced check-ins", "Auto checkouts", "Rectified", "Open",
	}
	dailyHeader = []interface{}{
		"Crew member", "Date", "Day", "Warehouse", "Shift", "Scheduled", "Check-in", "Check-out",
		"Break (min)", "Net hours", "Overtime (min)", "Meal voucher", "Forced", "Auto checkout", "Rectification",
	}
)

// ExportMonthlyAttendanceReport implements report.ReportService.
func (s *ReportServiceImpl) ExportMonthlyAttendanceReport(ctx context.Context, req report.MonthlyAttendanceReportRequest) (report.Workbook, error) {
	rep, err := s.GenerateMonthlyAttendanceReport(ctx, req)
	if err != nil {
		return report.Workbook{}, err
	}

	f := excelize.NewFile()
	defer f.Close()

	const summary, daily = "Summary", "Daily"
	if err := f.SetSheetName("Sheet1", summary); err != nil {
		return report.Workbook{}, fmt.Errorf("%w: %v", report.ErrReportGenerationFailed, err)
	}
	if _, err := f.NewSheet(daily); err != nil {
		return report.Workbook{}, fmt.Errorf("%w: %v", report.ErrReportGenerationFailed, err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return report.Workbook{}, fmt.Errorf("%w: %v", report.ErrReportGenerationFailed, err)
	}

	summaryRows := [][]interface{}{summaryHeader}
	dailyRows := [][]interface{}{dailyHeader}
	for _, m := range rep.Members {
		sm := m.Summary
		summaryRows = append(summaryRows, []interface{}{
			m.CrewName, sm.TotalShifts, sm.WarehouseShifts, sm.ExtraShifts, sm.TotalNetHours, sm.OvertimeMinutes,
			sm.ApprovedOvertimeMinutes, sm.MealVouchers, sm.ForcedCheckIns, sm.AutoCheckouts, sm.Rectified, sm.OpenShifts,
		})
		for _, l := range m.DailyLogs {
			dailyRows = append(dailyRows, []interface{}{
				m.CrewName, l.Date, l.DayOfWeek, l.Warehouse, l.ShiftType, scheduled(l),
				localtime.FormatTimeOfDay(l.CheckIn), optionalClock(l.CheckOut), l.BreakMinutes, optionalHours(l.NetHours),
				l.OvertimeMinutes, yesNo(l.MealVoucher), yesNo(l.Forced), yesNo(l.AutoCheckout), optionalString(l.RectificationNote),
			})
		}
	}

	for _, sheet := range []struct {
		name string
		rows [][]interface{}
	}{{summary, summaryRows}, {daily, dailyRows}} {
		for i, row := range sheet.rows {
			cell, _ := excelize.CoordinatesToCellName(1, i+1)
			if err := f.SetSheetRow(sheet.name, cell, &row); err != nil {
				return report.Workbook{}, fmt.Errorf("%w: %v", report.ErrReportGenerationFailed, err)
			}
		}
		last, _ := excelize.ColumnNumberToName(len(sheet.rows[0]))
		if err := f.SetCellStyle(sheet.name, "A1", last+"1", bold); err != nil {
			return report.Workbook{}, fmt.Errorf("%w: %v", report.ErrReportGenerationFailed, err)
		}
		_ = f.SetColWidth(sheet.name, "A", "A", 28)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return report.Workbook{}, fmt.Errorf("%w: %v", report.ErrReportGenerationFailed, err)
	}

	return report.Workbook{
		Filename: fmt.Sprintf("attendance-%s.xlsx", rep.Month),
		Content:  buf.Bytes(),
	}, nil
}

func scheduled(l report.AttendanceDailyLog) string {
	if l.ScheduledStart == nil || l.ScheduledEnd == nil {
		return ""
	}
	return localtime.FormatTimeOfDay(*l.ScheduledStart) + "-" + localtime.FormatTimeOfDay(*l.ScheduledEnd)
}

func optionalClock(s *string) string {
	if s == nil {
		return ""
	}
	return localtime.FormatTimeOfDay(*s)
}

func optionalHours(h *float64) interface{} {
	if h == nil {
		return ""
	}
	return *h
}

func optionalString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return ""
}
