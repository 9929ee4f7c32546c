package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/crew"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

const crewColumns = `id, email, password_hash, full_name, role, overtime_hourly_rate,
		meal_voucher_enabled, created_at, updated_at`

type crewRepositoryImpl struct {
	db *database.DB
}

func NewCrewRepository(db *database.DB) crew.MemberRepository {
	return &crewRepositoryImpl{db: db}
}

func scanMember(row pgx.Row) (crew.Member, error) {
	var m crew.Member
	err := row.Scan(
		&m.ID,
		&m.Email,
		&m.PasswordHash,
		&m.FullName,
		&m.Role,
		&m.OvertimeHourlyRate,
		&m.MealVoucherEnabled,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	return m, err
}

// GetByEmail implements crew.MemberRepository.
func (r *crewRepositoryImpl) GetByEmail(ctx context.Context, email string) (crew.Member, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + crewColumns + ` FROM crew_members WHERE lower(email) = lower($1)`
	m, err := scanMember(q.QueryRow(ctx, query, email))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crew.Member{}, crew.ErrMemberNotFound
		}
		return crew.Member{}, fmt.Errorf("failed to get crew member by email: %w", err)
	}
	return m, nil
}

// GetByID implements crew.MemberRepository.
func (r *crewRepositoryImpl) GetByID(ctx context.Context, id string) (crew.Member, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + crewColumns + ` FROM crew_members WHERE id = $1`
	m, err := scanMember(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return crew.Member{}, crew.ErrMemberNotFound
		}
		return crew.Member{}, fmt.Errorf("failed to get crew member: %w", err)
	}
	return m, nil
}

// ListSupervisors implements crew.MemberRepository.
func (r *crewRepositoryImpl) ListSupervisors(ctx context.Context) ([]crew.Member, error) {
	q := GetQuerier(ctx, r.db)

	query := `SELECT ` + crewColumns + ` FROM crew_members WHERE role IN ('supervisor', 'admin') ORDER BY full_name`
	rows, err := q.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list supervisors: %w", err)
	}
	defer rows.Close()

	var members []crew.Member
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan supervisor: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
