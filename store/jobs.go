package store

import (
	"context"
	"database/sql"
	"fmt"

	"payflow/models"
)

func (s *Store) ListJobs(ctx context.Context, userID int64) ([]models.Job, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT id, user_id, name, hourly_wage, currency, color FROM jobs WHERE user_id = ? ORDER BY name ASC"), userID)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []models.Job{}
	for rows.Next() {
		var j models.Job
		if err := rows.Scan(&j.ID, &j.UserID, &j.Name, &j.HourlyWage, &j.Currency, &j.Color); err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		if j.Color == "" {
			j.Color = models.DefaultJobColor
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// CreateJob inserts j and sets its ID.
func (s *Store) CreateJob(ctx context.Context, j *models.Job) error {
	err := s.db.QueryRowContext(ctx,
		s.q("INSERT INTO jobs (user_id, name, hourly_wage, currency, color) VALUES (?, ?, ?, ?, ?) RETURNING id"),
		j.UserID, j.Name, j.HourlyWage, j.Currency, j.Color,
	).Scan(&j.ID)
	if err != nil {
		return fmt.Errorf("insert job: %w", err)
	}
	return nil
}

// DeleteJob removes the job and detaches its shifts, which keep existing
// with a NULL job_id.
func (s *Store) DeleteJob(ctx context.Context, userID, jobID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if err := s.jobOwned(ctx, tx, userID, jobID); err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			s.q("UPDATE shifts SET job_id = NULL WHERE job_id = ? AND user_id = ?"), jobID, userID); err != nil {
			return fmt.Errorf("detach shifts: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			s.q("DELETE FROM jobs WHERE id = ? AND user_id = ?"), jobID, userID); err != nil {
			return fmt.Errorf("delete job: %w", err)
		}
		return nil
	})
}

// jobOwned returns ErrNotFound unless jobID exists and belongs to userID.
func (s *Store) jobOwned(ctx context.Context, tx *sql.Tx, userID, jobID int64) error {
	var n int
	err := tx.QueryRowContext(ctx,
		s.q("SELECT COUNT(*) FROM jobs WHERE id = ? AND user_id = ?"), jobID, userID).Scan(&n)
	if err != nil {
		return fmt.Errorf("check job owner: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
