package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/example/ec-storefront/internal/domain/user"
)

type pgUsers struct {
	q querier
}

const userColumns = `id, email, username, name, password_hash, role, is_active, created_at, updated_at`

func (r *pgUsers) CreateUser(ctx context.Context, u *user.User) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		u.ID, u.Email, u.Username, u.Name, u.PasswordHash, u.Role, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if isUniqueViolation(err) {
		return user.ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *pgUsers) getUserWhere(ctx context.Context, where, arg string) (*user.User, error) {
	var u user.User
	err := r.q.QueryRowContext(ctx, `SELECT `+userColumns+` FROM users WHERE `+where, arg).
		Scan(&u.ID, &u.Email, &u.Username, &u.Name, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

func (r *pgUsers) GetUser(ctx context.Context, id string) (*user.User, error) {
	return r.getUserWhere(ctx, `id = $1`, id)
}

func (r *pgUsers) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return r.getUserWhere(ctx, `email = $1`, email)
}

func (r *pgUsers) CreateSession(ctx context.Context, s *user.Session) error {
	_, err := r.q.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, refresh_token_hash, expires_at, created_at, ip_address, user_agent)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		s.ID, s.UserID, s.RefreshTokenHash, s.ExpiresAt, s.CreatedAt, s.IPAddress, s.UserAgent)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (r *pgUsers) GetSession(ctx context.Context, id string) (*user.Session, error) {
	var s user.Session
	err := r.q.QueryRowContext(ctx,
		`SELECT id, user_id, refresh_token_hash, expires_at, created_at, ip_address, user_agent
		 FROM sessions WHERE id = $1`, id,
	).Scan(&s.ID, &s.UserID, &s.RefreshTokenHash, &s.ExpiresAt, &s.CreatedAt, &s.IPAddress, &s.UserAgent)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, user.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return &s, nil
}

func (r *pgUsers) DeleteSession(ctx context.Context, id string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *pgUsers) DeleteSessionsByUser(ctx context.Context, userID string) error {
	if _, err := r.q.ExecContext(ctx, `DELETE FROM sessions WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("delete sessions: %w", err)
	}
	return nil
}
