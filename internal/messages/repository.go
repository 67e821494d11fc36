package messages

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/infra"
)

// Repository persists chat messages.
type Repository interface {
	Insert(ctx context.Context, msg Message) (Message, error)
	// History returns the chat's messages oldest first with sender usernames
	// filled in. IsMine is left for the caller.
	History(ctx context.Context, chatID int64) ([]Entry, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed message repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Insert stores msg and returns it with its assigned id.
func (r *PostgresRepository) Insert(ctx context.Context, msg Message) (Message, error) {
	const query = `
        INSERT INTO messages (chat_id, sender_id, content, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, is_read`
	err := infra.Conn(ctx, r.db).QueryRow(ctx, query, msg.ChatID, msg.SenderID, msg.Content, msg.CreatedAt.UTC()).
		Scan(&msg.ID, &msg.IsRead)
	if err != nil {
		return Message{}, err
	}
	return msg, nil
}

// History lists messages ordered by creation time, then id.
func (r *PostgresRepository) History(ctx context.Context, chatID int64) ([]Entry, error) {
	const query = `
        SELECT m.id, m.chat_id, m.sender_id, m.content, m.created_at, m.is_read, u.username
        FROM messages m
        JOIN users u ON u.id = m.sender_id
        WHERE m.chat_id = $1
        ORDER BY m.created_at ASC, m.id ASC`
	rows, err := infra.Conn(ctx, r.db).Query(ctx, query, chatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	entries := make([]Entry, 0)
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.ChatID, &e.SenderID, &e.Content, &e.CreatedAt, &e.IsRead, &e.SenderUsername); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
