package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/expense"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/jackc/pgx/v5"
)

type expenseRepository struct {
	db *database.DB
}

func NewExpenseRepository(db *database.DB) expense.Repository {
	return &expenseRepository{db: db}
}

const expenseColumns = `x.id, x.crew_id, x.event_id, x.date, x.category, x.amount,
		x.description, x.receipt_path, x.status, x.created_at`

func scanExpense(row pgx.Row) (expense.Expense, error) {
	var e expense.Expense
	err := row.Scan(
		&e.ID, &e.CrewID, &e.EventID, &e.Date, &e.Category, &e.Amount,
		&e.Description, &e.ReceiptPath, &e.Status, &e.CreatedAt,
	)
	return e, err
}

// Create implements expense.Repository.
func (r *expenseRepository) Create(ctx context.Context, e expense.Expense) (expense.Expense, error) {
	q := GetQuerier(ctx, r.db)

	var id *string
	if e.ID != "" {
		id = &e.ID
	}

	err := q.QueryRow(ctx, `
		INSERT INTO expenses (id, crew_id, event_id, date, category, amount, description, receipt_path, status)
		VALUES (COALESCE($1::uuid, gen_random_uuid()), $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING
		RETURNING id, created_at
	`, id, e.CrewID, e.EventID, e.Date, e.Category, e.Amount, e.Description, e.ReceiptPath, e.Status,
	).Scan(&e.ID, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) && id != nil {
			// replay of an already stored expense
			return r.GetByID(ctx, *id)
		}
		return expense.Expense{}, fmt.Errorf("failed to create expense: %w", err)
	}
	return e, nil
}

// GetByID implements expense.Repository.
func (r *expenseRepository) GetByID(ctx context.Context, id string) (expense.Expense, error) {
	q := GetQuerier(ctx, r.db)

	e, err := scanExpense(q.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses x WHERE x.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return expense.Expense{}, expense.ErrExpenseNotFound
		}
		return expense.Expense{}, fmt.Errorf("failed to get expense: %w", err)
	}
	return e, nil
}

// UpdateStatus implements expense.Repository.
func (r *expenseRepository) UpdateStatus(ctx context.Context, id string, status expense.Status) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `UPDATE expenses SET status = $2 WHERE id = $1`, id, status)
	if err != nil {
		return fmt.Errorf("failed to update expense status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return expense.ErrExpenseNotFound
	}
	return nil
}

// List implements expense.Repository.
func (r *expenseRepository) List(ctx context.Context, f *query.Filter) ([]expense.Expense, error) {
	q := GetQuerier(ctx, r.db)
	if f == nil {
		f = query.New()
	}

	where, args, next := f.Where(expense.FilterColumns, 1)
	sql := `SELECT ` + expenseColumns + ` FROM expenses x`
	if where != "" {
		sql += " WHERE " + where
	}
	limit, offset := f.Page()
	sql += " " + f.OrderBy(expense.FilterColumns, "x.date DESC, x.created_at DESC") +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1)

	rows, err := q.Query(ctx, sql, append(args, limit, offset)...)
	if err != nil {
		return nil, fmt.Errorf("failed to list expenses: %w", err)
	}
	defer rows.Close()

	var out []expense.Expense
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan expense: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
