package automation

import (
	"context"
	"errors"

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

const automationColumns = `id, user_id, name, trigger_name, channel, template, enabled, min_score, max_score, intent_in, stage_in, created_at, updated_at`

type automationRowScanner interface {
	Scan(dest ...any) error
}

func scanAutomation(s automationRowScanner) (Automation, error) {
	var a Automation
	err := s.Scan(
		&a.ID,
		&a.UserID,
		&a.Name,
		&a.TriggerName,
		&a.Channel,
		&a.Template,
		&a.Enabled,
		&a.MinScore,
		&a.MaxScore,
		&a.IntentIn,
		&a.StageIn,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	return a, err
}

// CreateParams carries the fields for a new automation rule.
type CreateParams struct {
	UserID      uuid.UUID
	Name        string
	TriggerName string
	Channel     string
	Template    string
	Enabled     bool
	MinScore    *int
	MaxScore    *int
	IntentIn    []string
	StageIn     []string
}

func (r *Repository) Create(ctx context.Context, params CreateParams) (Automation, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO automations (user_id, name, trigger_name, channel, template, enabled, min_score, max_score, intent_in, stage_in)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING `+automationColumns,
		params.UserID, params.Name, params.TriggerName, params.Channel, params.Template,
		params.Enabled, params.MinScore, params.MaxScore, params.IntentIn, params.StageIn,
	)
	return scanAutomation(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Automation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+automationColumns+` FROM automations WHERE id = $1`, id)
	a, err := scanAutomation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Automation{}, apperr.NotFound("automation not found")
	}
	return a, err
}

// ListByUser returns every rule for an operator, newest first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID) ([]Automation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+automationColumns+` FROM automations
		WHERE user_id = $1
		ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAutomations(rows)
}

// ListEnabledByTrigger returns enabled rules for the trigger in creation
// order, making dispatch ordering deterministic.
func (r *Repository) ListEnabledByTrigger(ctx context.Context, userID uuid.UUID, trigger string) ([]Automation, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+automationColumns+` FROM automations
		WHERE user_id = $1 AND trigger_name = $2 AND enabled
		ORDER BY created_at ASC, id ASC`, userID, trigger)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAutomations(rows)
}

func collectAutomations(rows pgx.Rows) ([]Automation, error) {
	automations := make([]Automation, 0)
	for rows.Next() {
		a, err := scanAutomation(rows)
		if err != nil {
			return nil, err
		}
		automations = append(automations, a)
	}
	return automations, rows.Err()
}

// UpdateParams carries the mutable fields of a rule.
type UpdateParams struct {
	Name        string
	TriggerName string
	Channel     string
	Template    string
	Enabled     bool
	MinScore    *int
	MaxScore    *int
	IntentIn    []string
	StageIn     []string
}

func (r *Repository) Update(ctx context.Context, id, userID uuid.UUID, params UpdateParams) (Automation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE automations
		SET name = $3, trigger_name = $4, channel = $5, template = $6, enabled = $7,
		    min_score = $8, max_score = $9, intent_in = $10, stage_in = $11, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+automationColumns,
		id, userID, params.Name, params.TriggerName, params.Channel, params.Template,
		params.Enabled, params.MinScore, params.MaxScore, params.IntentIn, params.StageIn,
	)
	a, err := scanAutomation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Automation{}, apperr.NotFound("automation not found")
	}
	return a, err
}

// SetEnabled toggles a rule without touching its other fields.
func (r *Repository) SetEnabled(ctx context.Context, id, userID uuid.UUID, enabled bool) (Automation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE automations
		SET enabled = $3, updated_at = now()
		WHERE id = $1 AND user_id = $2
		RETURNING `+automationColumns, id, userID, enabled)
	a, err := scanAutomation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Automation{}, apperr.NotFound("automation not found")
	}
	return a, err
}

func (r *Repository) Delete(ctx context.Context, id, userID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM automations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("automation not found")
	}
	return nil
}
