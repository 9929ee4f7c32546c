package report

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/overtime"
	"github.com/cmlabs-hris/crew-attendance/internal/domain/report"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/jwt"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/localtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/validator"
)

func ptr[T any](v T) *T { return &v }

type fakeAttendance struct {
	attendance.AttendanceRepository
	records   []attendance.Attendance
	gotCrewID string
	gotFrom   time.Time
	gotTo     time.Time
}

func (f *fakeAttendance) ListByCrewAndRange(_ context.Context, crewID string, from, to time.Time) ([]attendance.Attendance, error) {
	f.gotCrewID, f.gotFrom, f.gotTo = crewID, from, to
	var out []attendance.Attendance
	for _, a := range f.records {
		if crewID == "" || a.CrewID == crewID {
			out = append(out, a)
		}
	}
	return out, nil
}

type fakeOvertime struct {
	overtime.Repository
}

func (fakeOvertime) List(_ context.Context, f *query.Filter) ([]overtime.Request, error) {
	return []overtime.Request{{CheckinID: "att-1", RequestedMinutes: 60, Status: overtime.StatusApproved}}, nil
}

func day(s string) time.Time {
	d, _ := localtime.ParseDate(s)
	return d
}

func sampleRecords() []attendance.Attendance {
	return []attendance.Attendance{
		{
			ID: "att-1", CrewID: "crew-1", CrewName: ptr("Mario Rossi"), WarehouseName: ptr("Milano Nord"),
			ShiftType: attendance.ShiftWarehouse, Date: day("2025-03-10"),
			ScheduledStart: ptr("09:00:00"), ScheduledEnd: ptr("17:00:00"),
			CheckInTime: "09:00:00", CheckOutTime: ptr("19:10:00"), BreakMinutes: 30,
			NetHours: ptr(9.67), OvertimeMinutes: ptr(100), MealVoucher: true,
			Status: attendance.StatusCompleted,
		},
		{
			ID: "att-2", CrewID: "crew-1", CrewName: ptr("Mario Rossi"), WarehouseName: ptr("Milano Nord"),
			ShiftType: attendance.ShiftExtra, Date: day("2025-03-11"),
			CheckInTime: "08:00:00", CheckOutTime: ptr("12:00:00"), NetHours: ptr(4.0),
			RectifiedCheckOut: ptr("13:00:00"), RectifiedNetHours: ptr(5.0), RectificationNote: ptr("forgot to check out"),
			ForcedCheckIn: true, Status: attendance.StatusCompleted,
		},
		{
			ID: "att-3", CrewID: "crew-2", CrewName: ptr("Luca Bianchi"), WarehouseName: ptr("Milano Nord"),
			ShiftType: attendance.ShiftWarehouse, Date: day("2025-03-12"),
			CheckInTime: "22:00:00", Status: attendance.StatusActive,
		},
	}
}

func newService(records []attendance.Attendance) (*ReportServiceImpl, *fakeAttendance) {
	repo := &fakeAttendance{records: records}
	svc := NewReportService(repo, fakeOvertime{}).(*ReportServiceImpl)
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 8, 0, 0, 0, time.UTC) }
	return svc, repo
}

func supervisorCtx(t *testing.T) context.Context {
	return jwt.NewContext(context.Background(), jwt.Identity{CrewID: "sup", Role: crew.RoleSupervisor})
}

func TestGenerateMonthlyAttendanceReport(t *testing.T) {
	svc, repo := newService(sampleRecords())

	rep, err := svc.GenerateMonthlyAttendanceReport(supervisorCtx(t), report.MonthlyAttendanceReportRequest{Month: "2025-03"})
	require.NoError(t, err)
	assert.Equal(t, "", repo.gotCrewID)
	assert.Equal(t, "2025-03-01", repo.gotFrom.Format(localtime.DateLayout))
	assert.Equal(t, "2025-04-01", repo.gotTo.Format(localtime.DateLayout))
	assert.Equal(t, "2025-03-31", rep.PeriodEnd)

	require.Len(t, rep.Members, 2)
	mario := rep.Members[0]
	assert.Equal(t, "Mario Rossi", mario.CrewName)
	assert.Equal(t, report.AttendanceSummary{
		TotalShifts:             2,
		WarehouseShifts:         1,
		ExtraShifts:             1,
		TotalNetHours:           14.67,
		OvertimeMinutes:         100,
		ApprovedOvertimeMinutes: 60,
		MealVouchers:            1,
		ForcedCheckIns:          1,
		Rectified:               1,
	}, mario.Summary)

	rectified := mario.DailyLogs[1]
	assert.Equal(t, "Tuesday", rectified.DayOfWeek)
	assert.Equal(t, "13:00:00", *rectified.CheckOut)
	assert.Equal(t, 5.0, *rectified.NetHours)

	assert.Equal(t, 1, rep.Members[1].Summary.OpenShifts)
}

func TestGenerateMonthlyAttendanceReport_Scope(t *testing.T) {
	svc, repo := newService(sampleRecords())
	crewCtx := jwt.NewContext(context.Background(), jwt.Identity{CrewID: "crew-2", Role: crew.RoleCrew})

	rep, err := svc.GenerateMonthlyAttendanceReport(crewCtx, report.MonthlyAttendanceReportRequest{Month: "2025-03"})
	require.NoError(t, err)
	assert.Equal(t, "crew-2", repo.gotCrewID)
	require.Len(t, rep.Members, 1)

	_, err = svc.GenerateMonthlyAttendanceReport(crewCtx, report.MonthlyAttendanceReportRequest{Month: "2025-03", CrewID: ptr("crew-1")})
	assert.ErrorIs(t, err, crew.ErrSupervisorAccessRequired)

	_, err = svc.GenerateMonthlyAttendanceReport(crewCtx, report.MonthlyAttendanceReportRequest{Month: "March"})
	var verr validator.ValidationErrors
	assert.ErrorAs(t, err, &verr)
}

func TestExportMonthlyAttendanceReport(t *testing.T) {
	svc, _ := newService(sampleRecords())

	wb, err := svc.ExportMonthlyAttendanceReport(supervisorCtx(t), report.MonthlyAttendanceReportRequest{Month: "2025-03"})
	require.NoError(t, err)
	assert.Equal(t, "attendance-2025-03.xlsx", wb.Filename)

	f, err := excelize.OpenReader(bytes.NewReader(wb.Content))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Summary", "Daily"}, f.GetSheetList())

	name, err := f.GetCellValue("Summary", "A2")
	require.NoError(t, err)
	assert.Equal(t, "Mario Rossi", name)

	rows, err := f.GetRows("Daily")
	require.NoError(t, err)
	require.Len(t, rows, 4)
	assert.Equal(t, "09:00-17:00", rows[1][5])
	assert.Equal(t, "19:10", rows[1][7])
	assert.Equal(t, "forgot to check out", rows[2][14])
}

func TestExportWithoutRecords(t *testing.T) {
	svc, _ := newService(nil)
	wb, err := svc.ExportMonthlyAttendanceReport(supervisorCtx(t), report.MonthlyAttendanceReportRequest{Month: "2025-02"})
	require.NoError(t, err)
	assert.NotEmpty(t, wb.Content)
}
