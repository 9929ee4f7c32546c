package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/timesheet"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/jackc/pgx/v5"
)

type eventRepository struct {
	db *database.DB
}

func NewEventRepository(db *database.DB) timesheet.EventRepository {
	return &eventRepository{db: db}
}

const eventColumns = `id, title, location, start_date, end_date, call_time,
		hourly_rate, daily_rate, retention_percentage`

func scanEvent(row pgx.Row) (timesheet.Event, error) {
	var e timesheet.Event
	err := row.Scan(
		&e.ID, &e.Title, &e.Location, &e.StartDate, &e.EndDate, &e.CallTime,
		&e.HourlyRate, &e.DailyRate, &e.RetentionPercentage,
	)
	return e, err
}

// GetByID implements timesheet.EventRepository.
func (r *eventRepository) GetByID(ctx context.Context, id string) (timesheet.Event, error) {
	q := GetQuerier(ctx, r.db)

	e, err := scanEvent(q.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Event{}, timesheet.ErrEventNotFound
		}
		return timesheet.Event{}, fmt.Errorf("failed to get event: %w", err)
	}
	return e, nil
}

// ListActive implements timesheet.EventRepository.
func (r *eventRepository) ListActive(ctx context.Context, day time.Time) ([]timesheet.Event, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE start_date <= $1 AND end_date >= $1
		ORDER BY start_date, title
	`, day)
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}
	defer rows.Close()

	var out []timesheet.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

type timesheetRepository struct {
	db *database.DB
}

func NewTimesheetRepository(db *database.DB) timesheet.TimesheetRepository {
	return &timesheetRepository{db: db}
}

const timesheetSelect = `
	SELECT t.id, t.crew_id, t.event_id, t.date, t.start_time, t.end_time, t.break_minutes,
		   t.tracking_mode, t.hourly_rate, t.daily_rate, t.retention_percentage,
		   t.total_hours, t.gross_amount, t.net_amount,
		   t.payment_status, t.status, t.rejection_reason, t.is_self_assigned,
		   t.check_in_latitude, t.check_in_longitude, t.check_in_accuracy, t.check_in_address,
		   t.has_lunch_benefit, t.has_dinner_benefit, t.notes,
		   t.created_at, t.updated_at,
		   e.title, c.full_name
	FROM event_timesheets t
	LEFT JOIN events e ON e.id = t.event_id
	LEFT JOIN crew_members c ON c.id = t.crew_id
`

func scanTimesheet(row pgx.Row) (timesheet.Timesheet, error) {
	var t timesheet.Timesheet
	err := row.Scan(
		&t.ID, &t.CrewID, &t.EventID, &t.Date, &t.StartTime, &t.EndTime, &t.BreakMinutes,
		&t.TrackingMode, &t.HourlyRate, &t.DailyRate, &t.RetentionPercentage,
		&t.TotalHours, &t.GrossAmount, &t.NetAmount,
		&t.PaymentStatus, &t.Status, &t.RejectionReason, &t.IsSelfAssigned,
		&t.CheckInLatitude, &t.CheckInLongitude, &t.CheckInAccuracy, &t.CheckInAddress,
		&t.HasLunchBenefit, &t.HasDinnerBenefit, &t.Notes,
		&t.CreatedAt, &t.UpdatedAt,
		&t.EventTitle, &t.CrewName,
	)
	return t, err
}

// Create implements timesheet.TimesheetRepository. A zero ID lets the
// database generate one.
func (r *timesheetRepository) Create(ctx context.Context, t timesheet.Timesheet) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	var id *string
	if t.ID != "" {
		id = &t.ID
	}

	sql := `
		INSERT INTO event_timesheets (
			id, crew_id, event_id, date, start_time, end_time, break_minutes,
			tracking_mode, hourly_rate, daily_rate, retention_percentage,
			total_hours, gross_amount, net_amount, payment_status, status, is_self_assigned,
			check_in_latitude, check_in_longitude, check_in_accuracy, check_in_address,
			has_lunch_benefit, has_dinner_benefit, notes
		) VALUES (
			COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12,
			$13, $14, $15, $16, $17, $18, $19, $20, $21, $22, $23, $24
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, sql,
		id, t.CrewID, t.EventID, t.Date, t.StartTime, t.EndTime, t.BreakMinutes,
		t.TrackingMode, t.HourlyRate, t.DailyRate, t.RetentionPercentage,
		t.TotalHours, t.GrossAmount, t.NetAmount, t.PaymentStatus, t.Status, t.IsSelfAssigned,
		t.CheckInLatitude, t.CheckInLongitude, t.CheckInAccuracy, t.CheckInAddress,
		t.HasLunchBenefit, t.HasDinnerBenefit, t.Notes,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return timesheet.Timesheet{}, fmt.Errorf("failed to create timesheet: %w", err)
	}
	return t, nil
}

// GetByID implements timesheet.TimesheetRepository.
func (r *timesheetRepository) GetByID(ctx context.Context, id string) (timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	t, err := scanTimesheet(q.QueryRow(ctx, timesheetSelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return timesheet.Timesheet{}, timesheet.ErrTimesheetNotFound
		}
		return timesheet.Timesheet{}, fmt.Errorf("failed to get timesheet: %w", err)
	}
	return t, nil
}

// GetOpen implements timesheet.TimesheetRepository.
func (r *timesheetRepository) GetOpen(ctx context.Context, crewID, eventID string, day time.Time) (*timesheet.Timesheet, error) {
	q := GetQuerier(ctx, r.db)

	t, err := scanTimesheet(q.QueryRow(ctx, timesheetSelect+`
		WHERE t.crew_id = $1 AND t.event_id = $2 AND t.date = $3 AND t.end_time IS NULL
		ORDER BY t.created_at DESC
		LIMIT 1
	`, crewID, eventID, day))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get open timesheet: %w", err)
	}
	return &t, nil
}

// Update implements timesheet.TimesheetRepository.
func (r *timesheetRepository) Update(ctx context.Context, t timesheet.Timesheet) error {
	q := GetQuerier(ctx, r.db)

	sql := `
		UPDATE event_timesheets SET
			event_id = $2, date = $3, start_time = $4, end_time = $5, break_minutes = $6,
			tracking_mode = $7, hourly_rate = $8, daily_rate = $9, retention_percentage = $10,
			total_hours = $11, gross_amount = $12, net_amount = $13,
			payment_status = $14, status = $15, rejection_reason = $16, is_self_assigned = $17,
			has_lunch_benefit = $18, has_dinner_benefit = $19, notes = $20,
			updated_at = NOW()
		WHERE id = $1
	`

	tag, err := q.Exec(ctx, sql,
		t.ID, t.EventID, t.Date, t.StartTime, t.EndTime, t.BreakMinutes,
		t.TrackingMode, t.HourlyRate, t.DailyRate, t.RetentionPercentage,
		t.TotalHours, t.GrossAmount, t.NetAmount,
		t.PaymentStatus, t.Status, t.RejectionReason, t.IsSelfAssigned,
		t.HasLunchBenefit, t.HasDinnerBenefit, t.Notes,
	)
	if err != nil {
		return fmt.Errorf("failed to update timesheet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return timesheet.ErrTimesheetNotFound
	}
	return nil
}

// Delete implements timesheet.TimesheetRepository.
func (r *timesheetRepository) Delete(ctx context.Context, id string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM event_timesheets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete timesheet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return timesheet.ErrTimesheetNotFound
	}
	return nil
}

// List implements timesheet.TimesheetRepository.
func (r *timesheetRepository) List(ctx context.Context, f *query.Filter) ([]timesheet.Timesheet, int64, error) {
	q := GetQuerier(ctx, r.db)
	if f == nil {
		f = query.New()
	}

	where, args, next := f.Where(timesheet.FilterColumns, 1)
	if where != "" {
		where = " WHERE " + where
	}

	var total int64
	if err := q.QueryRow(ctx, `SELECT COUNT(*) FROM event_timesheets t`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count timesheets: %w", err)
	}

	limit, offset := f.Page()
	sql := timesheetSelect + where + " " +
		f.OrderBy(timesheet.FilterColumns, "t.date DESC, t.start_time DESC") +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1)

	rows, err := q.Query(ctx, sql, append(args, limit, offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list timesheets: %w", err)
	}
	defer rows.Close()

	var out []timesheet.Timesheet
	for rows.Next() {
		t, err := scanTimesheet(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan timesheet: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("error iterating timesheet rows: %w", err)
	}
	return out, total, nil
}
