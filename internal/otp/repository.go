package otp

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/infra"
)

var errNoMatch = errors.New("no matching code")

// Repository stores one-time codes.
type Repository interface {
	Create(ctx context.Context, code Code) (Code, error)
	// LatestMatch returns the most recently created code for phone with the
	// given digest. Inside a transaction the row stays locked until commit.
	LatestMatch(ctx context.Context, phone, digest string) (Code, error)
	// MarkUsed consumes an unused code. A code that is already used yields
	// ErrCodeAlreadyUsed.
	MarkUsed(ctx context.Context, id int64) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed code repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts a new unused code.
func (r *PostgresRepository) Create(ctx context.Context, code Code) (Code, error) {
	const query = `
        INSERT INTO auth_codes (phone, code, expires_at, created_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id`
	err := infra.Conn(ctx, r.db).QueryRow(ctx, query, code.Phone, code.Digest, code.ExpiresAt.UTC(), code.CreatedAt.UTC()).Scan(&code.ID)
	if err != nil {
		return Code{}, err
	}
	return code, nil
}

// LatestMatch selects the newest matching row FOR UPDATE.
func (r *PostgresRepository) LatestMatch(ctx context.Context, phone, digest string) (Code, error) {
	const query = `
        SELECT id, phone, code, created_at, expires_at, is_used
        FROM auth_codes
        WHERE phone = $1 AND code = $2
        ORDER BY created_at DESC, id DESC
        LIMIT 1
        FOR UPDATE`
	var c Code
	err := infra.Conn(ctx, r.db).QueryRow(ctx, query, phone, digest).
		Scan(&c.ID, &c.Phone, &c.Digest, &c.CreatedAt, &c.ExpiresAt, &c.Used)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Code{}, errNoMatch
		}
		return Code{}, err
	}
	c.CreatedAt = c.CreatedAt.UTC()
	c.ExpiresAt = c.ExpiresAt.UTC()
	return c, nil
}

// MarkUsed flags the code as consumed.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id int64) error {
	cmd, err := infra.Conn(ctx, r.db).Exec(ctx, `UPDATE auth_codes SET is_used = TRUE WHERE id = $1 AND NOT is_used`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrCodeAlreadyUsed
	}
	return nil
}
