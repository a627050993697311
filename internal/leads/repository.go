package leads

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"leadpilot_backend/platform/apperr"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateLeadParams carries the fields for a new lead row.
type CreateLeadParams struct {
	UserID    uuid.UUID
	Name      string
	Phone     string
	Email     string
	Source    string
	Notes     string
	Intent    string
	Sentiment string
	Score     int
	Metadata  map[string]any
}

const leadColumns = `id, user_id, name, phone, email, source, notes, stage, intent, sentiment, score, metadata, created_at, updated_at`

// leadRowScanner is satisfied by pgx.Rows and pgx.Row so scanLead can be
// shared between single-row and multi-row queries.
type leadRowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s leadRowScanner) (Lead, error) {
	var lead Lead
	var rawMetadata []byte
	if err := s.Scan(
		&lead.ID,
		&lead.UserID,
		&lead.Name,
		&lead.Phone,
		&lead.Email,
		&lead.Source,
		&lead.Notes,
		&lead.Stage,
		&lead.Intent,
		&lead.Sentiment,
		&lead.Score,
		&rawMetadata,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return Lead{}, err
	}
	if len(rawMetadata) > 0 {
		_ = json.Unmarshal(rawMetadata, &lead.Metadata)
	}
	return lead, nil
}

func (r *Repository) Create(ctx context.Context, params CreateLeadParams) (Lead, error) {
	metadataJSON, err := json.Marshal(params.Metadata)
	if err != nil {
		return Lead{}, err
	}

	row := r.pool.QueryRow(ctx, `
		INSERT INTO leads (user_id, name, phone, email, source, notes, intent, sentiment, score, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+leadColumns,
		params.UserID, params.Name, params.Phone, params.Email, params.Source,
		params.Notes, params.Intent, params.Sentiment, params.Score, metadataJSON,
	)
	return scanLead(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Lead, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// GetByPhone returns the most recently updated lead with the given phone.
// Inbound SMS replies carry only the sender number, so this lookup is how
// a conversation is linked back to a lead.
func (r *Repository) GetByPhone(ctx context.Context, phone string) (Lead, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE phone = $1
		ORDER BY updated_at DESC
		LIMIT 1`, phone)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, apperr.NotFound("lead not found")
	}
	return lead, err
}

// FindRecentByContact returns a lead for the same owner and contact details
// created within the given window. Used for duplicate suppression on capture.
func (r *Repository) FindRecentByContact(ctx context.Context, userID uuid.UUID, phone, email string, within time.Duration) (Lead, bool, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE user_id = $1
		  AND created_at > $2
		  AND ((phone <> '' AND phone = $3) OR (email <> '' AND email = $4))
		ORDER BY created_at DESC
		LIMIT 1`,
		userID, time.Now().Add(-within), phone, email,
	)
	lead, err := scanLead(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Lead{}, false, nil
	}
	if err != nil {
		return Lead{}, false, err
	}
	return lead, true, nil
}

func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]Lead, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE user_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

// UpdateStage moves the lead to a new stage and returns the previous one.
func (r *Repository) UpdateStage(ctx context.Context, id uuid.UUID, stage string) (string, error) {
	var oldStage string
	err := r.pool.QueryRow(ctx, `
		UPDATE leads new
		SET stage = $2, updated_at = now()
		FROM (SELECT id, stage FROM leads WHERE id = $1 FOR UPDATE) old
		WHERE new.id = old.id
		RETURNING old.stage`, id, stage).Scan(&oldStage)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", apperr.NotFound("lead not found")
	}
	return oldStage, err
}

// Touch bumps updated_at, marking lead activity for the staleness sweep.
func (r *Repository) Touch(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `UPDATE leads SET updated_at = now() WHERE id = $1`, id)
	return err
}

// ListStale returns leads in non-terminal stages with no activity since the
// cutoff.
func (r *Repository) ListStale(ctx context.Context, cutoff time.Time, limit int) ([]Lead, error) {
	if limit <= 0 {
		limit = 500
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+leadColumns+` FROM leads
		WHERE stage NOT IN ($1, $2)
		  AND updated_at < $3
		ORDER BY updated_at ASC
		LIMIT $4`, StageClosed, StageLost, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	leads := make([]Lead, 0)
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, err
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}
