package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"payflow/models"
)

func (s *Store) ListShifts(ctx context.Context, userID int64) ([]models.Shift, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT s.id, s.user_id, s.job_id, j.name, j.color, s.date, s.shift_type,
		       s.start_time, s.end_time, s.break_start, s.break_end,
		       s.total_hours, s.hourly_wage, s.currency, s.total_wage
		FROM shifts s
		LEFT JOIN jobs j ON j.id = s.job_id
		WHERE s.user_id = ?
		ORDER BY s.id`), userID)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	shifts := []models.Shift{}
	for rows.Next() {
		var sh models.Shift
		if err := rows.Scan(&sh.ID, &sh.UserID, &sh.JobID, &sh.JobName, &sh.JobColor, &sh.Date, &sh.ShiftType,
			&sh.StartTime, &sh.EndTime, &sh.BreakStart, &sh.BreakEnd,
			&sh.TotalHours, &sh.HourlyWage, &sh.Currency, &sh.TotalWage); err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		shifts = append(shifts, sh)
	}
	return shifts, rows.Err()
}

// CreateShift inserts sh and sets its ID. A referenced job must belong to the
// same user, otherwise ErrInvalidJob is returned and nothing is written.
func (s *Store) CreateShift(ctx context.Context, sh *models.Shift) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if sh.JobID != nil {
			if err := s.jobOwned(ctx, tx, sh.UserID, *sh.JobID); err != nil {
				if errors.Is(err, ErrNotFound) {
					return ErrInvalidJob
				}
				return err
			}
		}
		err := tx.QueryRowContext(ctx, s.q(`
			INSERT INTO shifts (user_id, job_id, date, shift_type, start_time, end_time,
			                    break_start, break_end, total_hours, hourly_wage, currency, total_wage)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`),
			sh.UserID, sh.JobID, sh.Date, sh.ShiftType, sh.StartTime, sh.EndTime,
			sh.BreakStart, sh.BreakEnd, sh.TotalHours, sh.HourlyWage, sh.Currency, sh.TotalWage,
		).Scan(&sh.ID)
		if err != nil {
			return fmt.Errorf("insert shift: %w", err)
		}
		return nil
	})
}

func (s *Store) DeleteShift(ctx context.Context, userID, shiftID int64) error {
	return s.deleteOwned(ctx, "shifts", userID, shiftID)
}
