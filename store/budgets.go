package store

import (
	"context"
	"fmt"

	"payflow/models"
)

func (s *Store) ListBudgets(ctx context.Context, userID int64, month string) ([]models.Budget, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT id, user_id, month, category, amount FROM budgets WHERE user_id = ? AND month = ? ORDER BY category"),
		userID, month)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()

	budgets := []models.Budget{}
	for rows.Next() {
		var b models.Budget
		if err := rows.Scan(&b.ID, &b.UserID, &b.Month, &b.Category, &b.Amount); err != nil {
			return nil, fmt.Errorf("scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}
	return budgets, rows.Err()
}

// UpsertBudget stores b, replacing the amount of an existing budget with the
// same (user, month, category). b.ID is set to the stored row's id.
func (s *Store) UpsertBudget(ctx context.Context, b *models.Budget) error {
	err := s.db.QueryRowContext(ctx, s.q(`
		INSERT INTO budgets (user_id, month, category, amount) VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, month, category) DO UPDATE SET amount = excluded.amount
		RETURNING id`),
		b.UserID, b.Month, b.Category, b.Amount,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("upsert budget: %w", err)
	}
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, userID, budgetID int64) error {
	return s.deleteOwned(ctx, "budgets", userID, budgetID)
}
