package postgres

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/dvloznov/monomind/internal/domain"
	"github.com/jackc/pgx/v5"
)

// CreateUser registers a new user. Emails are stored lower-cased.
func (r *LedgerRepository) CreateUser(ctx context.Context, email string) (domain.User, error) {
	email, err := normalizeEmail(email)
	if err != nil {
		return domain.User{}, err
	}

	query := `
		INSERT INTO users (email)
		VALUES ($1)
		RETURNING id, email, created_at
	`
	var u domain.User
	err = r.db.QueryRow(ctx, query, email).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		if pgErrorCode(err) == codeUniqueViolation {
			return domain.User{}, fmt.Errorf("CreateUser: %w", ErrEmailTaken)
		}
		return domain.User{}, fmt.Errorf("CreateUser: insert: %w", err)
	}
	return u, nil
}

// GetUser loads a user by id.
func (r *LedgerRepository) GetUser(ctx context.Context, id int64) (domain.User, error) {
	query := `
		SELECT id, email, created_at
		FROM users
		WHERE id = $1
	`
	var u domain.User
	err := r.db.QueryRow(ctx, query, id).Scan(&u.ID, &u.Email, &u.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.User{}, fmt.Errorf("GetUser: %d: %w", id, ErrUserNotFound)
		}
		return domain.User{}, fmt.Errorf("GetUser: query: %w", err)
	}
	return u, nil
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return email, nil
}
