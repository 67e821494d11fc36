package pairing

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/infra"
)

// Repository persists chats and their participants.
type Repository interface {
	// LockPair serialises pairing work on the unordered pair {a, b} until the
	// surrounding transaction ends.
	LockPair(ctx context.Context, a, b int64) error
	FindSharedChat(ctx context.Context, a, b int64) (chatID int64, found bool, err error)
	// CreateChat creates a chat with exactly the two participants.
	CreateChat(ctx context.Context, a, b int64) (int64, error)
	ListContacts(ctx context.Context, userID int64) ([]Contact, error)
	IsParticipant(ctx context.Context, chatID, userID int64) (bool, error)
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed chat repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// LockPair takes a transaction-scoped advisory lock. Outside a transaction
// the lock is released as soon as the statement completes.
func (r *PostgresRepository) LockPair(ctx context.Context, a, b int64) error {
	lo, hi := ordered(a, b)
	_, err := infra.Conn(ctx, r.db).Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, fmt.Sprintf("chat-pair:%d:%d", lo, hi))
	return err
}

// FindSharedChat returns the lowest chat id both users participate in.
func (r *PostgresRepository) FindSharedChat(ctx context.Context, a, b int64) (int64, bool, error) {
	const query = `
        SELECT pa.chat_id
        FROM chat_participants pa
        JOIN chat_participants pb ON pb.chat_id = pa.chat_id
        WHERE pa.user_id = $1 AND pb.user_id = $2
        ORDER BY pa.chat_id
        LIMIT 1`
	var chatID int64
	err := infra.Conn(ctx, r.db).QueryRow(ctx, query, a, b).Scan(&chatID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return chatID, true, nil
}

// CreateChat inserts the chat and both participant rows. Callers run it in a
// transaction so a partial chat is never visible.
func (r *PostgresRepository) CreateChat(ctx context.Context, a, b int64) (int64, error) {
	conn := infra.Conn(ctx, r.db)
	var chatID int64
	if err := conn.QueryRow(ctx, `INSERT INTO chats DEFAULT VALUES RETURNING id`).Scan(&chatID); err != nil {
		return 0, fmt.Errorf("insert chat: %w", err)
	}
	if _, err := conn.Exec(ctx, `INSERT INTO chat_participants (chat_id, user_id) VALUES ($1, $2), ($1, $3)`, chatID, a, b); err != nil {
		return 0, fmt.Errorf("insert participants: %w", err)
	}
	return chatID, nil
}

// ListContacts returns every user sharing a chat with userID, most recently
// active first.
func (r *PostgresRepository) ListContacts(ctx context.Context, userID int64) ([]Contact, error) {
	const query = `
        SELECT DISTINCT u.id, u.username, u.phone, u.avatar_url, u.last_seen, cp.chat_id
        FROM users u
        JOIN chat_participants cp ON cp.user_id = u.id
        WHERE cp.chat_id IN (SELECT chat_id FROM chat_participants WHERE user_id = $1)
          AND u.id <> $1
        ORDER BY u.last_seen DESC, cp.chat_id`
	rows, err := infra.Conn(ctx, r.db).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contacts := make([]Contact, 0)
	for rows.Next() {
		var c Contact
		if err := rows.Scan(&c.ID, &c.Username, &c.Phone, &c.AvatarURL, &c.LastSeen, &c.ChatID); err != nil {
			return nil, err
		}
		c.LastSeen = c.LastSeen.UTC()
		contacts = append(contacts, c)
	}
	return contacts, rows.Err()
}

// IsParticipant reports whether userID belongs to chatID.
func (r *PostgresRepository) IsParticipant(ctx context.Context, chatID, userID int64) (bool, error) {
	var ok bool
	err := infra.Conn(ctx, r.db).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM chat_participants WHERE chat_id = $1 AND user_id = $2)`,
		chatID, userID).Scan(&ok)
	return ok, err
}

func ordered(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
