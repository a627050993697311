package conversation

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

const conversationColumns = `id, user_id, lead_id, contact_handle, state, created_at, updated_at`

type conversationRowScanner interface {
	Scan(dest ...any) error
}

func scanConversation(s conversationRowScanner) (Conversation, error) {
	var c Conversation
	err := s.Scan(
		&c.ID,
		&c.UserID,
		&c.LeadID,
		&c.ContactHandle,
		&c.State,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	return c, err
}

// GetOrCreate returns the thread for the handle, creating an Active one on
// first contact. The handle is globally unique; an existing thread keeps its
// original owner.
func (r *Repository) GetOrCreate(ctx context.Context, userID uuid.UUID, handle string) (Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO conversations (user_id, contact_handle, state)
		VALUES ($1, $2, $3)
		ON CONFLICT (contact_handle) DO UPDATE SET updated_at = now()
		RETURNING `+conversationColumns,
		userID, handle, StateActive,
	)
	return scanConversation(row)
}

func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Conversation, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
	c, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, apperr.NotFound("conversation not found")
	}
	return c, err
}

// ListByUser returns the operator's threads, most recently active first.
func (r *Repository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]Conversation, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+conversationColumns+` FROM conversations
		WHERE user_id = $1
		ORDER BY updated_at DESC
		LIMIT $2`, userID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	conversations := make([]Conversation, 0)
	for rows.Next() {
		c, err := scanConversation(rows)
		if err != nil {
			return nil, err
		}
		conversations = append(conversations, c)
	}
	return conversations, rows.Err()
}

// SetState transitions the thread and returns the updated row.
func (r *Repository) SetState(ctx context.Context, id uuid.UUID, state string) (Conversation, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE conversations SET state = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+conversationColumns, id, state)
	c, err := scanConversation(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Conversation{}, apperr.NotFound("conversation not found")
	}
	return c, err
}

// LinkLead attaches a lead record to the thread.
func (r *Repository) LinkLead(ctx context.Context, id, leadID uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE conversations SET lead_id = $2, updated_at = now()
		WHERE id = $1`, id, leadID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return apperr.NotFound("conversation not found")
	}
	return nil
}

const messageColumns = `id, conversation_id, role, body, created_at`

func scanMessage(s conversationRowScanner) (Message, error) {
	var m Message
	err := s.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Body, &m.CreatedAt)
	return m, err
}

func (r *Repository) AppendMessage(ctx context.Context, conversationID uuid.UUID, role, body string) (Message, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO conversation_messages (conversation_id, role, body)
		VALUES ($1, $2, $3)
		RETURNING `+messageColumns,
		conversationID, role, body,
	)
	return scanMessage(row)
}

// ListRecentMessages returns the last limit transcript entries in
// chronological order.
func (r *Repository) ListRecentMessages(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	if limit <= 0 || limit > 200 {
		limit = 30
	}
	rows, err := r.pool.Query(ctx, `
		SELECT `+messageColumns+` FROM (
			SELECT `+messageColumns+` FROM conversation_messages
			WHERE conversation_id = $1
			ORDER BY created_at DESC, id DESC
			LIMIT $2
		) recent
		ORDER BY created_at ASC, id ASC`, conversationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := make([]Message, 0)
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	return messages, rows.Err()
}
