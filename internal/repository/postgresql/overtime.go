package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/overtime"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/jackc/pgx/v5"
)

type overtimeRepository struct {
	db *database.DB
}

func NewOvertimeRepository(db *database.DB) overtime.Repository {
	return &overtimeRepository{db: db}
}

const overtimeSelect = `
	SELECT o.id, o.checkin_id, o.crew_id, o.requested_minutes, o.hourly_rate, o.justification,
		   o.status, o.reviewed_by, o.reviewed_at, o.review_note, o.created_at,
		   c.full_name, wc.date
	FROM overtime_requests o
	LEFT JOIN crew_members c ON c.id = o.crew_id
	LEFT JOIN warehouse_checkins wc ON wc.id = o.checkin_id
`

func scanOvertime(row pgx.Row) (overtime.Request, error) {
	var r overtime.Request
	err := row.Scan(
		&r.ID, &r.CheckinID, &r.CrewID, &r.RequestedMinutes, &r.HourlyRate, &r.Justification,
		&r.Status, &r.ReviewedBy, &r.ReviewedAt, &r.ReviewNote, &r.CreatedAt,
		&r.CrewName, &r.Date,
	)
	return r, err
}

// Create implements overtime.Repository.
func (r *overtimeRepository) Create(ctx context.Context, req overtime.Request) (overtime.Request, error) {
	q := GetQuerier(ctx, r.db)

	err := q.QueryRow(ctx, `
		INSERT INTO overtime_requests (checkin_id, crew_id, requested_minutes, hourly_rate, justification, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, req.CheckinID, req.CrewID, req.RequestedMinutes, req.HourlyRate, req.Justification, req.Status,
	).Scan(&req.ID, &req.CreatedAt)
	if err != nil {
		return overtime.Request{}, fmt.Errorf("failed to create overtime request: %w", err)
	}
	return req, nil
}

// GetByID implements overtime.Repository.
func (r *overtimeRepository) GetByID(ctx context.Context, id string) (overtime.Request, error) {
	q := GetQuerier(ctx, r.db)

	req, err := scanOvertime(q.QueryRow(ctx, overtimeSelect+` WHERE o.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return overtime.Request{}, overtime.ErrRequestNotFound
		}
		return overtime.Request{}, fmt.Errorf("failed to get overtime request: %w", err)
	}
	return req, nil
}

// GetByCheckin implements overtime.Repository.
func (r *overtimeRepository) GetByCheckin(ctx context.Context, checkinID string) (*overtime.Request, error) {
	q := GetQuerier(ctx, r.db)

	req, err := scanOvertime(q.QueryRow(ctx, overtimeSelect+`
		WHERE o.checkin_id = $1
		ORDER BY o.created_at DESC
		LIMIT 1
	`, checkinID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get overtime request by checkin: %w", err)
	}
	return &req, nil
}

// LockCheckin implements overtime.Repository.
func (r *overtimeRepository) LockCheckin(ctx context.Context, checkinID string) error {
	return advisoryLock(ctx, r.db, "overtime:"+checkinID)
}

// UpdateReview implements overtime.Repository.
func (r *overtimeRepository) UpdateReview(ctx context.Context, req overtime.Request) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE overtime_requests
		SET status = $2, reviewed_by = $3, reviewed_at = $4, review_note = $5
		WHERE id = $1
	`, req.ID, req.Status, req.ReviewedBy, req.ReviewedAt, req.ReviewNote)
	if err != nil {
		return fmt.Errorf("failed to update overtime review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return overtime.ErrRequestNotFound
	}
	return nil
}

// List implements overtime.Repository.
func (r *overtimeRepository) List(ctx context.Context, f *query.Filter) ([]overtime.Request, error) {
	q := GetQuerier(ctx, r.db)
	if f == nil {
		f = query.New()
	}

	where, args, next := f.Where(overtime.FilterColumns, 1)
	sql := overtimeSelect
	if where != "" {
		sql += " WHERE " + where
	}
	limit, offset := f.Page()
	sql += " " + f.OrderBy(overtime.FilterColumns, "o.created_at DESC") +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1)

	rows, err := q.Query(ctx, sql, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list overtime requests: %w", err)
	}
	defer rows.Close()

	var out []overtime.Request
	for rows.Next() {
		req, err := scanOvertime(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan overtime request: %w", err)
		}
		out = append(out, req)
	}
	return out, rows.Err()
}
