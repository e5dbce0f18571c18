package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/shift-tracker/backend/internal/domain"
)

const userColumns = `id, telegram_id, username, full_name, email, password_hash, api_token, is_active, created_at`

func scanUser(row interface{ Scan(...any) error }) (*domain.User, error) {
	user := &domain.User{}
	dst := []any{
		&user.ID,
		&user.TelegramID,
		&user.Username,
		&user.FullName,
		&user.Email,
		&user.PasswordHash,
		&user.APIToken,
		&user.IsActive,
		timestamp{&user.CreatedAt},
	}
	if err := row.Scan(dst...); err != nil {
		return nil, err
	}
	return user, nil
}

func (r *Repository) getUserBy(column string, value any) (*domain.User, error) {
	// column is always one of the fixed names below, never user input
	query := `SELECT ` + userColumns + ` FROM users WHERE ` + column + ` = $1`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	return scanUser(r.dbpool.QueryRowContext(ctx, query, value))
}

func (r *Repository) GetUserByID(id int64) (*domain.User, error) {
	return r.getUserBy("id", id)
}

func (r *Repository) GetUserByTelegramID(telegramID string) (*domain.User, error) {
	return r.getUserBy("telegram_id", telegramID)
}

func (r *Repository) GetUserByEmail(email string) (*domain.User, error) {
	return r.getUserBy("email", email)
}

// GetUserByAPIToken only finds active users.
func (r *Repository) GetUserByAPIToken(token string) (*domain.User, error) {
	user, err := r.getUserBy("api_token", token)
	if err != nil {
		return nil, err
	}
	if !user.IsActive {
		return nil, sql.ErrNoRows
	}
	return user, nil
}

// CreateUser inserts a chat or web user. APIToken must already be set.
func (r *Repository) CreateUser(user *domain.User) error {
	query := `
		INSERT INTO users (telegram_id, username, full_name, email, password_hash, api_token)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, is_active, created_at
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	args := []any{user.TelegramID, user.Username, user.FullName, user.Email, user.PasswordHash, user.APIToken}
	dst := []any{&user.ID, &user.IsActive, timestamp{&user.CreatedAt}}
	if err := r.dbpool.QueryRowContext(ctx, query, args...).Scan(dst...); err != nil {
		return translateError(err)
	}

	return nil
}

// UpdateUserProfile refreshes the names a chat platform reports for the user.
func (r *Repository) UpdateUserProfile(user *domain.User) error {
	query := `
		UPDATE users SET username = $1, full_name = $2 WHERE id = $3
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, user.Username, user.FullName, user.ID)
	if err != nil {
		return err
	}
	return expectOneRow(res)
}

func (r *Repository) UpdateAPIToken(userID int64, token string) error {
	query := `
		UPDATE users SET api_token = $1 WHERE id = $2
	`

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(r.cfg.Database.QueryTimeout)*time.Second)
	defer cancel()

	res, err := r.dbpool.ExecContext(ctx, query, token, userID)
	if err != nil {
		return translateError(err)
	}
	return expectOneRow(res)
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
