package postgresql

import (
	"context"
	"errors"
	"fmt"

	"github.com/cmlabs-hris/crew-attendance/internal/domain/warehouse"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/database"
	"github.com/cmlabs-hris/crew-attendance/internal/pkg/query"
	"github.com/jackc/pgx/v5"
)

type warehouseRepositoryImpl struct {
	db *database.DB
}

func NewWarehouseRepository(db *database.DB) warehouse.WarehouseRepository {
	return &warehouseRepositoryImpl{db: db}
}

func scanWarehouse(row pgx.Row) (warehouse.Warehouse, error) {
	var w warehouse.Warehouse
	err := row.Scan(
		&w.ID, &w.Name, &w.Address, &w.Latitude, &w.Longitude,
		&w.RadiusMeters, &w.BackupCode, &w.CreatedAt, &w.UpdatedAt,
	)
	return w, err
}

// List implements warehouse.WarehouseRepository.
func (r *warehouseRepositoryImpl) List(ctx context.Context) ([]warehouse.Warehouse, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id, name, address, latitude, longitude, radius_meters, backup_code, created_at, updated_at
		FROM warehouses
		ORDER BY name
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list warehouses: %w", err)
	}
	defer rows.Close()

	var out []warehouse.Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan warehouse: %w", err)
		}
		out = append(out, w)
	}
	return out, rows.Err()
}

// GetByID implements warehouse.WarehouseRepository.
func (r *warehouseRepositoryImpl) GetByID(ctx context.Context, id string) (warehouse.Warehouse, error) {
	q := GetQuerier(ctx, r.db)

	w, err := scanWarehouse(q.QueryRow(ctx, `
		SELECT id, name, address, latitude, longitude, radius_meters, backup_code, created_at, updated_at
		FROM warehouses
		WHERE id = $1
	`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return warehouse.Warehouse{}, warehouse.ErrWarehouseNotFound
		}
		return warehouse.Warehouse{}, fmt.Errorf("failed to get warehouse: %w", err)
	}
	return w, nil
}

type shiftRepositoryImpl struct {
	db *database.DB
}

func NewShiftRepository(db *database.DB) warehouse.ShiftRepository {
	return &shiftRepositoryImpl{db: db}
}

const shiftSelect = `
	SELECT s.id, s.crew_id, s.warehouse_id, s.date, s.start_time, s.end_time, s.notes, s.created_at,
		   w.name AS warehouse_name
	FROM warehouse_shifts s
	LEFT JOIN warehouses w ON w.id = s.warehouse_id
`

func scanShift(row pgx.Row) (warehouse.Shift, error) {
	var s warehouse.Shift
	err := row.Scan(
		&s.ID, &s.CrewID, &s.WarehouseID, &s.Date, &s.StartTime, &s.EndTime, &s.Notes, &s.CreatedAt,
		&s.WarehouseName,
	)
	return s, err
}

// Create implements warehouse.ShiftRepository.
func (r *shiftRepositoryImpl) Create(ctx context.Context, s warehouse.Shift) (warehouse.Shift, error) {
	q := GetQuerier(ctx, r.db)

	err := q.QueryRow(ctx, `
		INSERT INTO warehouse_shifts (crew_id, warehouse_id, date, start_time, end_time, notes)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at
	`, s.CrewID, s.WarehouseID, s.Date, s.StartTime, s.EndTime, s.Notes).Scan(&s.ID, &s.CreatedAt)
	if err != nil {
		return warehouse.Shift{}, fmt.Errorf("failed to create shift: %w", err)
	}
	return s, nil
}

// GetByID implements warehouse.ShiftRepository.
func (r *shiftRepositoryImpl) GetByID(ctx context.Context, id string) (warehouse.Shift, error) {
	q := GetQuerier(ctx, r.db)

	s, err := scanShift(q.QueryRow(ctx, shiftSelect+` WHERE s.id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return warehouse.Shift{}, warehouse.ErrShiftNotFound
		}
		return warehouse.Shift{}, fmt.Errorf("failed to get shift: %w", err)
	}
	return s, nil
}

// List implements warehouse.ShiftRepository.
func (r *shiftRepositoryImpl) List(ctx context.Context, f *query.Filter) ([]warehouse.Shift, error) {
	q := GetQuerier(ctx, r.db)

	where, args, next := f.Where(warehouse.ShiftFilterColumns, 1)
	sql := shiftSelect
	if where != "" {
		sql += " WHERE " + where
	}
	limit, offset := f.Page()
	sql += " " + f.OrderBy(warehouse.ShiftFilterColumns, "s.date, s.start_time") +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", next, next+1)
	args = append(args, limit, offset)

	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list shifts: %w", err)
	}
	defer rows.Close()

	var out []warehouse.Shift
	for rows.Next() {
		s, err := scanShift(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan shift: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
