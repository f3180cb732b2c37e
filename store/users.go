package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"payflow/db"
	"payflow/models"
)

const userColumns = "id, username, email, password_hash, created_at"

func scanUser(row interface{ Scan(...any) error }) (models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &u.CreatedAt)
	return u, err
}

// CreateUser inserts a user. Username and email must both be unused.
func (s *Store) CreateUser(ctx context.Context, username string, email *string, passwordHash string) (int64, error) {
	taken, err := s.UsernameExists(ctx, username)
	if err != nil {
		return 0, err
	}
	if taken {
		return 0, ErrUsernameTaken
	}
	if email != nil {
		inUse, err := s.EmailInUse(ctx, *email, 0)
		if err != nil {
			return 0, err
		}
		if inUse {
			return 0, ErrEmailTaken
		}
	}

	var id int64
	err = s.db.QueryRowContext(ctx,
		s.q("INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?) RETURNING id"),
		username, email, passwordHash, time.Now().UTC(),
	).Scan(&id)
	if err != nil {
		if db.IsUniqueViolation(err) {
			if strings.Contains(err.Error(), "email") {
				return 0, ErrEmailTaken
			}
			return 0, ErrUsernameTaken
		}
		return 0, fmt.Errorf("insert user: %w", err)
	}
	return id, nil
}

func (s *Store) GetUser(ctx context.Context, id int64) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.q("SELECT "+userColumns+" FROM users WHERE id = ?"), id))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, fmt.Errorf("get user %d: %w", id, err)
	}
	return u, nil
}

func (s *Store) GetUserByUsername(ctx context.Context, username string) (models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, s.q("SELECT "+userColumns+" FROM users WHERE username = ?"), username))
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, fmt.Errorf("get user by username: %w", err)
	}
	return u, nil
}

func (s *Store) UsernameExists(ctx context.Context, username string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM users WHERE username = ?"), username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count users by username: %w", err)
	}
	return n > 0, nil
}

// EmailInUse reports whether a user other than exceptID has email.
func (s *Store) EmailInUse(ctx context.Context, email string, exceptID int64) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, s.q("SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?"), email, exceptID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count users by email: %w", err)
	}
	return n > 0, nil
}

func (s *Store) UpdateEmail(ctx context.Context, userID int64, email string) error {
	res, err := s.db.ExecContext(ctx, s.q("UPDATE users SET email = ? WHERE id = ?"), email, userID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrEmailTaken
		}
		return fmt.Errorf("update email: %w", err)
	}
	return requireRow(res)
}

func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx, s.q("UPDATE users SET password_hash = ? WHERE id = ?"), passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return requireRow(res)
}

// DeleteUser removes the user; the schema cascades to everything they own.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, s.q("DELETE FROM users WHERE id = ?"), userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return requireRow(res)
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
