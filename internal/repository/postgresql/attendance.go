package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/attendance"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/jackc/pgx/v5"
)

type attendanceRepository struct {
	db *database.DB
}

func NewAttendanceRepository(db *database.DB) attendance.AttendanceRepository {
	return &attendanceRepository{db: db}
}

const attendanceSelect = `
	SELECT wc.id, wc.crew_id, wc.warehouse_id, wc.shift_id, wc.shift_type, wc.date,
		   wc.scheduled_start, wc.scheduled_end,
		   wc.check_in_time, wc.check_out_time,
		   wc.lunch_break_start, wc.lunch_break_end, wc.dinner_break_start, wc.dinner_break_end,
		   wc.break_minutes, wc.has_lunch_benefit, wc.has_dinner_benefit, wc.meal_voucher,
		   wc.check_in_latitude, wc.check_in_longitude, wc.check_in_accuracy, wc.check_in_address,
		   wc.check_out_latitude, wc.check_out_longitude, wc.check_out_accuracy, wc.check_out_address,
		   wc.distance_from_site_m, wc.forced_checkin, wc.forced_reason,
		   wc.status, wc.auto_checkout, wc.total_hours, wc.net_hours, wc.overtime_minutes, wc.notes,
		   wc.rectified_check_in, wc.rectified_check_out,
		   wc.rectified_lunch_start, wc.rectified_lunch_end,
		   wc.rectified_dinner_start, wc.rectified_dinner_end,
		   wc.rectification_note, wc.rectified_net_hours, wc.rectified_at,
		   wc.created_at, wc.updated_at,
		   wc.warehouse_name, wc.crew_name
	FROM warehouse_checkins_enriched wc
`

func scanAttendance(row pgx.Row) (attendance.Attendance, error) {
	var a attendance.Attendance
	err := row.Scan(
		&a.ID, &a.CrewID, &a.WarehouseID, &a.ShiftID, &a.ShiftType, &a.Date,
		&a.ScheduledStart, &a.ScheduledEnd,
		&a.CheckInTime, &a.CheckOutTime,
		&a.LunchBreakStart, &a.LunchBreakEnd, &a.DinnerBreakStart, &a.DinnerBreakEnd,
		&a.BreakMinutes, &a.HasLunchBenefit, &a.HasDinnerBenefit, &a.MealVoucher,
		&a.CheckIn.Latitude, &a.CheckIn.Longitude, &a.CheckIn.Accuracy, &a.CheckIn.Address,
		&a.CheckOut.Latitude, &a.CheckOut.Longitude, &a.CheckOut.Accuracy, &a.CheckOut.Address,
		&a.DistanceFromSiteM, &a.ForcedCheckIn, &a.ForcedReason,
		&a.Status, &a.AutoCheckout, &a.TotalHours, &a.NetHours, &a.OvertimeMinutes, &a.Notes,
		&a.RectifiedCheckIn, &a.RectifiedCheckOut,
		&a.RectifiedLunchStart, &a.RectifiedLunchEnd,
		&a.RectifiedDinnerStart, &a.RectifiedDinnerEnd,
		&a.RectificationNote, &a.RectifiedNetHours, &a.RectifiedAt,
		&a.CreatedAt, &a.UpdatedAt,
		&a.WarehouseName, &a.CrewName,
	)
	return a, err
}

func collectAttendances(rows pgx.Rows) ([]attendance.Attendance, error) {
	defer rows.Close()

	var out []attendance.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attendance: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating attendance rows: %w", err)
	}
	return out, nil
}

// Create implements attendance.AttendanceRepository.
func (r *attendanceRepository) Create(ctx context.Context, a attendance.Attendance) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	sql := `
		INSERT INTO warehouse_checkins (
			crew_id, warehouse_id, shift_id, shift_type, date, scheduled_start, scheduled_end,
			check_in_time, has_lunch_benefit, has_dinner_benefit,
			check_in_latitude, check_in_longitude, check_in_accuracy, check_in_address,
			distance_from_site_m, forced_checkin, forced_reason, status, notes
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, sql,
		a.CrewID, a.WarehouseID, a.ShiftID, a.ShiftType, a.Date, a.ScheduledStart, a.ScheduledEnd,
		a.CheckInTime, a.HasLunchBenefit, a.HasDinnerBenefit,
		a.CheckIn.Latitude, a.CheckIn.Longitude, a.CheckIn.Accuracy, a.CheckIn.Address,
		a.DistanceFromSiteM, a.ForcedCheckIn, a.ForcedReason, a.Status, a.Notes,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return attendance.Attendance{}, fmt.Errorf("failed to create attendance: %w", err)
	}

	return a, nil
}

// GetByID implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetByID(ctx context.Context, id string) (attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	a, err := scanAttendance(q.QueryRow(ctx, attendanceSelect+` WHERE wc.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return attendance.Attendance{}, attendance.ErrAttendanceNotFound
		}
		return attendance.Attendance{}, fmt.Errorf("failed to get attendance: %w", err)
	}
	return a, nil
}

// GetActive implements attendance.AttendanceRepository.
func (r *attendanceRepository) GetActive(ctx context.Context, crewID string, shiftType attendance.ShiftType) (*attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	a, err := scanAttendance(q.QueryRow(ctx, attendanceSelect+`
		WHERE wc.crew_id = $1 AND wc.shift_type = $2 AND wc.status = 'active'
		ORDER BY wc.date DESC, wc.check_in_time DESC
		LIMIT 1
	`, crewID, shiftType))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get active attendance: %w", err)
	}
	return &a, nil
}

// LockActive implements attendance.AttendanceRepository.
func (r *attendanceRepository) LockActive(ctx context.Context, crewID string, shiftType attendance.ShiftType) error {
	return advisoryLock(ctx, r.db, "checkin:"+crewID+":"+string(shiftType))
}

// Update implements attendance.AttendanceRepository.
func (r *attendanceRepository) Update(ctx context.Context, a attendance.Attendance) error {
	q := GetQuerier(ctx, r.db)

	sql := `
		UPDATE warehouse_checkins SET
			check_out_time = $2,
			lunch_break_start = $3, lunch_break_end = $4,
			dinner_break_start = $5, dinner_break_end = $6,
			break_minutes = $7, meal_voucher = $8,
			check_out_latitude = $9, check_out_longitude = $10,
			check_out_accuracy = $11, check_out_address = $12,
			status = $13, auto_checkout = $14,
			total_hours = $15, net_hours = $16, overtime_minutes = $17, notes = $18,
			rectified_check_in = $19, rectified_check_out = $20,
			rectified_lunch_start = $21, rectified_lunch_end = $22,
			rectified_dinner_start = $23, rectified_dinner_end = $24,
			rectification_note = $25, rectified_net_hours = $26, rectified_at = $27,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, sql,
		a.ID, a.CheckOutTime,
		a.LunchBreakStart, a.LunchBreakEnd,
		a.DinnerBreakStart, a.DinnerBreakEnd,
		a.BreakMinutes, a.MealVoucher,
		a.CheckOut.Latitude, a.CheckOut.Longitude,
		a.CheckOut.Accuracy, a.CheckOut.Address,
		a.Status, a.AutoCheckout,
		a.TotalHours, a.NetHours, a.OvertimeMinutes, a.Notes,
		a.RectifiedCheckIn, a.RectifiedCheckOut,
		a.RectifiedLunchStart, a.RectifiedLunchEnd,
		a.RectifiedDinnerStart, a.RectifiedDinnerEnd,
		a.RectificationNote, a.RectifiedNetHours, a.RectifiedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update attendance: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return attendance.ErrAttendanceNotFound
	}
	return nil
}

// List implements attendance.AttendanceRepository.
func (r *attendanceRepository) List(ctx context.Context, f *query.Filter) ([]attendance.Attendance, int64, error) {
	q := GetQuerier(ctx, r.db)
	if f == nil {
		f = query.New()
	}

	where, args, next := f.Where(attendance.FilterColumns, 1)
	if where != "" {
		where = " WHERE " + where
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM warehouse_checkins_enriched wc`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count attendances: %w", err)
	}

	limit, offset := f.Page()
	sql := attendanceSelect + where + " " +
		f.OrderBy(attendance.FilterColumns, "wc.date DESC, wc.check_in_time DESC") +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1)

	rows, err := q.Query(ctx, sql, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list attendances: %w", err)
	}
	out, err := collectAttendances(rows)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByCrewAndRange implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListByCrewAndRange(ctx context.Context, crewID string, from, to time.Time) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	sql := attendanceSelect + `
		WHERE wc.date >= $1 AND wc.date < $2
		  AND ($3 = '' OR wc.crew_id::text = $3)
		ORDER BY wc.crew_name, wc.date, wc.check_in_time
	`
	rows, err := q.Query(ctx, sql, from, to, crewID)
	if err != nil {
		return nil, fmt.Errorf("failed to list attendances by range: %w", err)
	}
	return collectAttendances(rows)
}

// ListOpen implements attendance.AttendanceRepository.
func (r *attendanceRepository) ListOpen(ctx context.Context) ([]attendance.Attendance, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, attendanceSelect+`
		WHERE wc.status = 'active'
		ORDER BY wc.date, wc.check_in_time
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list open attendances: %w", err)
	}
	return collectAttendances(rows)
}
