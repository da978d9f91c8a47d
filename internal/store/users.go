package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/erazemk/custody/internal/model"
)

const userColumns = `id, username, password_hash, role, created_at, deleted_at`

// CreateUser creates a new user. Returns ErrAlreadyExists if an active user
// already has the username.
func CreateUser(ctx context.Context, q Queryer, username, passwordHash, role string) (*model.User, error) {
	result, err := q.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, role) VALUES (?, ?, ?)`,
		username, passwordHash, role,
	)
	if isUniqueViolation(err) {
		return nil, fmt.Errorf("user %q: %w", username, ErrAlreadyExists)
	}
	if err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting user id: %w", err)
	}

	return GetUser(ctx, q, id)
}

// GetUser returns a user by ID, including soft-deleted ones.
func GetUser(ctx context.Context, q Queryer, id int64) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user: %w", err)
	}
	return u, nil
}

// GetActiveUserByUsername returns the active user with the given username.
func GetActiveUserByUsername(ctx context.Context, q Queryer, username string) (*model.User, error) {
	u, err := scanUser(q.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ? AND deleted_at IS NULL`, username,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %q: %w", username, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting user by username: %w", err)
	}
	return u, nil
}

// ListUsers returns all non-deleted users.
func ListUsers(ctx context.Context, q Queryer) ([]model.User, error) {
	rows, err := q.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE deleted_at IS NULL ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []model.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUserRole changes an active user's role.
func UpdateUserRole(ctx context.Context, q Queryer, id int64, role string) error {
	return updateActiveUser(ctx, q, id, `UPDATE users SET role = ? WHERE id = ? AND deleted_at IS NULL`, role)
}

// UpdateUserPassword updates an active user's password hash.
func UpdateUserPassword(ctx context.Context, q Queryer, id int64, passwordHash string) error {
	return updateActiveUser(ctx, q, id, `UPDATE users SET password_hash = ? WHERE id = ? AND deleted_at IS NULL`, passwordHash)
}

// DeleteUser soft-deletes a user.
func DeleteUser(ctx context.Context, q Queryer, id int64) error {
	return updateActiveUser(ctx, q, id, `UPDATE users SET deleted_at = CURRENT_TIMESTAMP WHERE id = ? AND deleted_at IS NULL`)
}

func updateActiveUser(ctx context.Context, q Queryer, id int64, query string, args ...any) error {
	result, err := q.ExecContext(ctx, query, append(args, id)...)
	if err != nil {
		return fmt.Errorf("updating user: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return nil
}

func scanUser(row rowScanner) (*model.User, error) {
	u := &model.User{}
	if err := row.Scan(&u.ID, &u.Username, &u.PasswordHash, &u.Role, &u.CreatedAt, &u.DeletedAt); err != nil {
		return nil, err
	}
	return u, nil
}
