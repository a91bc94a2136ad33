package conversation

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrNotFound is returned when no conversation row exists.
	ErrNotFound = errors.New("conversation: not found")
	// ErrAlreadyExists signals the unique application_id constraint fired.
	// The get-or-create path treats it as a cue to re-select.
	ErrAlreadyExists = errors.New("conversation: already exists for application")
	// ErrLocked signals the conversation refuses further writes.
	ErrLocked = errors.New("conversation: locked")
)

// Repository defines the data access required by the service.
type Repository interface {
	Create(ctx context.Context, applicationID string) (Conversation, error)
	Get(ctx context.Context, id string) (Conversation, error)
	GetByApplication(ctx context.Context, applicationID string) (Conversation, error)
	Lock(ctx context.Context, id string) error
	InsertMessage(ctx context.Context, msg Message) (Message, error)
	Messages(ctx context.Context, conversationID string) ([]Message, error)
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Create inserts a conversation for the application. A unique violation on
// application_id is mapped to ErrAlreadyExists so callers can re-select.
func (r *PGRepository) Create(ctx context.Context, applicationID string) (Conversation, error) {
	const insertSQL = `
		INSERT INTO conversations (application_id)
		VALUES ($1)
		RETURNING id, application_id, is_locked, created_at
	`

	conv, err := scanConversation(r.pool.QueryRow(ctx, insertSQL, applicationID))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Conversation{}, ErrAlreadyExists
		}
		return Conversation{}, fmt.Errorf("conversation: create: %w", err)
	}
	return conv, nil
}

func (r *PGRepository) Get(ctx context.Context, id string) (Conversation, error) {
	const selectSQL = `
		SELECT id, application_id, is_locked, created_at
		FROM conversations
		WHERE id = $1
	`

	conv, err := scanConversation(r.pool.QueryRow(ctx, selectSQL, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("conversation: get: %w", err)
	}
	return conv, nil
}

func (r *PGRepository) GetByApplication(ctx context.Context, applicationID string) (Conversation, error) {
	const selectSQL = `
		SELECT id, application_id, is_locked, created_at
		FROM conversations
		WHERE application_id = $1
	`

	conv, err := scanConversation(r.pool.QueryRow(ctx, selectSQL, applicationID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("conversation: get by application: %w", err)
	}
	return conv, nil
}

// Lock flips is_locked. Repeats are no-ops.
func (r *PGRepository) Lock(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `UPDATE conversations SET is_locked = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("conversation: lock: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertMessage appends a message iff the conversation is unlocked. The lock
// check and the insert happen in one statement so a concurrent lock cannot
// slip between them.
func (r *PGRepository) InsertMessage(ctx context.Context, msg Message) (Message, error) {
	const insertSQL = `
		INSERT INTO messages (conversation_id, sender_id, content, is_system_message)
		SELECT c.id, $2, $3, $4
		FROM conversations c
		WHERE c.id = $1 AND c.is_locked = FALSE
		RETURNING id, conversation_id, sender_id, content, is_system_message, created_at
	`

	inserted, err := scanMessage(r.pool.QueryRow(ctx, insertSQL,
		msg.ConversationID, msg.SenderID, msg.Content, msg.IsSystem))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Row filtered out: either the conversation is gone or locked.
			if _, getErr := r.Get(ctx, msg.ConversationID); errors.Is(getErr, ErrNotFound) {
				return Message{}, ErrNotFound
			}
			return Message{}, ErrLocked
		}
		return Message{}, fmt.Errorf("conversation: insert message: %w", err)
	}
	return inserted, nil
}

func (r *PGRepository) Messages(ctx context.Context, conversationID string) ([]Message, error) {
	const selectSQL = `
		SELECT id, conversation_id, sender_id, content, is_system_message, created_at
		FROM messages
		WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`

	rows, err := r.pool.Query(ctx, selectSQL, conversationID)
	if err != nil {
		return nil, fmt.Errorf("conversation: list messages: %w", err)
	}
	defer rows.Close()

	msgs := []Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.IsSystem, &m.CreatedAt); err != nil {
			return nil, err
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

func scanConversation(row pgx.Row) (Conversation, error) {
	var c Conversation
	if err := row.Scan(&c.ID, &c.ApplicationID, &c.IsLocked, &c.CreatedAt); err != nil {
		return Conversation{}, err
	}
	return c, nil
}

func scanMessage(row pgx.Row) (Message, error) {
	var m Message
	if err := row.Scan(&m.ID, &m.ConversationID, &m.SenderID, &m.Content, &m.IsSystem, &m.CreatedAt); err != nil {
		return Message{}, err
	}
	return m, nil
}
