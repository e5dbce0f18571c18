package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/shift-tracker/backend/internal/domain"
)

const shiftColumns = `id, user_id, date, role, program, start_time, end_time, salary, created_at`

// fieldColumns is the closed set of columns UpdateShiftField may touch.
var fieldColumns = map[domain.Field]string{
	domain.FieldDate:      "date",
	domain.FieldRole:      "role",
	domain.FieldProgram:   "program",
	domain.FieldStartTime: "start_time",
	domain.FieldEndTime:   "end_time",
	domain.FieldSalary:    "salary",
}

// StatisticsMonths is how many recent months GetUserStatistics breaks down.
const StatisticsMonths = 12

func scanShift(row interface{ Scan(...any) error }) (*domain.Shift, error) {
	shift := &domain.Shift{}
	dst := []any{
		&shift.ID,
		&shift.UserID,
		&shift.Date,
		&shift.Role,
		&shift.Program,
		&shift.StartTime,
		&shift.EndTime,
		&shift.Salary,
		timestamp{&shift.CreatedAt},
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return shift, nil
}

func (r *Repository) CreateShift(shift *domain.Shift) error {
	query := `
		INSERT INTO shifts (user_id, date, role, program, start_time, end_time, salary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{shift.UserID, shift.Date, shift.Role, shift.Program, shift.StartTime, shift.EndTime, shift.Salary}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(&shift.ID, timestamp{&shift.CreatedAt}); err != nil {
		return err
	}

	return nil
}

// ImportShifts inserts all shifts in one transaction; either every row lands or none.
func (r *Repository) ImportShifts(shifts []*domain.Shift) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.TransactionTimeout)*time.Second)
	defer cancel()

	tx, err := r.dbpool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	query := `
		INSERT INTO shifts (user_id, date, role, program, start_time, end_time, salary)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at
	`
	for i, shift := range shifts {
		args := []any{shift.UserID, shift.Date, shift.Role, shift.Program, shift.StartTime, shift.EndTime, shift.Salary}
		if err := tx.QueryRowContext(ctx, query, args...).Scan(&shift.ID, timestamp{&shift.CreatedAt}); err != nil {
			return fmt.Errorf("shift %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

func (r *Repository) queryShifts(query string, args ...any) ([]*domain.Shift, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	rows, err := r.dbpool.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	shifts := make([]*domain.Shift, 0)
	for rows.Next() {
		shift, err := scanShift(rows)
		if err != nil {
			return nil, err
		}
		shifts = append(shifts, shift)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return shifts, nil
}

// GetShiftsByUser returns the user's shifts newest first; undated shifts come last.
func (r *Repository) GetShiftsByUser(userID int64) ([]*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts WHERE user_id = $1
		ORDER BY date DESC NULLS LAST, start_time DESC NULLS LAST, id DESC
	`
	return r.queryShifts(query, userID)
}

// GetShiftsByMonth returns the user's shifts dated within month (YYYY-MM).
func (r *Repository) GetShiftsByMonth(userID int64, month string) ([]*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts WHERE user_id = $1 AND SUBSTR(date, 1, 7) = $2
		ORDER BY date DESC, start_time DESC NULLS LAST, id DESC
	`
	return r.queryShifts(query, userID, month)
}

// GetShift finds a shift only if it belongs to userID.
func (r *Repository) GetShift(userID, id int64) (*domain.Shift, error) {
	query := `
		SELECT ` + shiftColumns + `
		FROM shifts WHERE id = $1 AND user_id = $2
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return scanShift(r.dbpool.QueryRowContext(ctx, query, id, userID))
}

// UpdateShiftField sets one field of an owned shift. value is nil to clear the field or the
// typed value domain.Shift.Apply accepts.
func (r *Repository) UpdateShiftField(userID, id int64, field domain.Field, value any) error {
	column, ok := fieldColumns[field]
	if !ok {
		return fmt.Errorf("unknown shift field %q", field)
	}

	// run the value through the domain type check before it reaches SQL
	if err := (&domain.Shift{}).Apply(field, value); err != nil {
		return err
	}

	query := `UPDATE shifts SET ` + column + ` = $1 WHERE id = $2 AND user_id = $3`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, value, id, userID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *Repository) DeleteShift(userID, id int64) error {
	query := `
		DELETE FROM shifts WHERE id = $1 AND user_id = $2
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, id, userID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

// GetUserStatistics totals every shift and breaks the dated ones down by month.
func (r *Repository) GetUserStatistics(userID int64) (*domain.Statistics, error) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	stats := &domain.Statistics{MonthlyStats: make([]domain.MonthlyStatistics, 0)}

	query := `
		SELECT COUNT(*), COALESCE(SUM(salary), 0) FROM shifts WHERE user_id = $1
	`
	if err := r.dbpool.QueryRowContext(ctx, query, userID).Scan(&stats.TotalShifts, &stats.TotalSalary); err != nil {
		return nil, err
	}

	query = `
		SELECT SUBSTR(date, 1, 7) AS month, COUNT(*), COALESCE(SUM(salary), 0)
		FROM shifts
		WHERE user_id = $1 AND date IS NOT NULL
		GROUP BY SUBSTR(date, 1, 7)
		ORDER BY month DESC
		LIMIT $2
	`
	rows, err := r.dbpool.QueryContext(ctx, query, userID, StatisticsMonths)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var m domain.MonthlyStatistics
		if err := rows.Scan(&m.Month, &m.Count, &m.Salary); err != nil {
			return nil, err
		}
		stats.MonthlyStats = append(stats.MonthlyStats, m)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return stats, nil
}
