// Package store persists every entity. Each query is scoped by the owning
// user's id; rows of other users behave as if they did not exist.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"payflow/db"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrInvalidJob    = errors.New("job does not belong to user")
	ErrUsernameTaken = errors.New("username already exists")
	ErrEmailTaken    = errors.New("email already in use")
)

type Store struct {
	db *db.DB
}

func New(d *db.DB) *Store {
	return &Store{db: d}
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) q(query string) string {
	return s.db.Rebind(query)
}

// withTx runs fn in a transaction, committing when fn returns nil.
func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// deleteOwned removes one row of table owned by userID.
func (s *Store) deleteOwned(ctx context.Context, table string, userID, id int64) error {
	res, err := s.db.ExecContext(ctx, s.q("DELETE FROM "+table+" WHERE id = ? AND user_id = ?"), id, userID)
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete from %s: %w", table, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
