package store

import (
	"context"
	"fmt"

	"payflow/models"
)

// ListExpenses returns the user's expenses, newest date first.
func (s *Store) ListExpenses(ctx context.Context, userID int64) ([]models.Expense, error) {
	rows, err := s.db.QueryContext(ctx,
		s.q("SELECT id, user_id, date, category, amount, description FROM expenses WHERE user_id = ? ORDER BY date DESC, id DESC"), userID)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()

	expenses := []models.Expense{}
	for rows.Next() {
		var e models.Expense
		if err := rows.Scan(&e.ID, &e.UserID, &e.Date, &e.Category, &e.Amount, &e.Description); err != nil {
			return nil, fmt.Errorf("scan expense: %w", err)
		}
		expenses = append(expenses, e)
	}
	return expenses, rows.Err()
}

func (s *Store) CreateExpense(ctx context.Context, e *models.Expense) error {
	err := s.db.QueryRowContext(ctx,
		s.q("INSERT INTO expenses (user_id, date, category, amount, description) VALUES (?, ?, ?, ?, ?) RETURNING id"),
		e.UserID, e.Date, e.Category, e.Amount, e.Description,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID, expenseID int64) error {
	return s.deleteOwned(ctx, "expenses", userID, expenseID)
}
