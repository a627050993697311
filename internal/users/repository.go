// Package users stores operator accounts. Authentication tokens are issued
// elsewhere; this module only resolves identities and owner profiles.
package users

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"errors"
	"time"

	"leadpilot_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// User is an operator account that owns leads and automations.
type User struct {
	ID           uuid.UUID
	Email        string
	Name         string
	BusinessType string
	AgentName    string
	NotifyPhone  string
	WebhookKey   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, name, business_type, agent_name, notify_phone, webhook_key, created_at, updated_at`

func scanUser(row pgx.Row) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.BusinessType,
		&u.AgentName,
		&u.NotifyPhone,
		&u.WebhookKey,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

// GetByID returns the user with the given ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user not found")
	}
	return user, err
}

// GetByWebhookKey resolves the owning user for a public capture request.
// The stored key and presented key are compared in constant time.
func (r *Repository) GetByWebhookKey(ctx context.Context, key string) (User, error) {
	if key == "" {
		return User{}, apperr.Unauthorized("missing webhook key")
	}

	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE webhook_key = $1`, key)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.Unauthorized("invalid webhook key")
	}
	if err != nil {
		return User{}, err
	}

	stored := sha256.Sum256([]byte(user.WebhookKey))
	presented := sha256.Sum256([]byte(key))
	if subtle.ConstantTimeCompare(stored[:], presented[:]) != 1 {
		return User{}, apperr.Unauthorized("invalid webhook key")
	}

	return user, nil
}

// GetByEmail returns the user with the given email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email)
	user, err := scanUser(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, apperr.NotFound("user not found")
	}
	return user, err
}
