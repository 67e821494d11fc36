package directory

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pr-poehali-dev/messenger-integration-1/internal/apperr"
	"github.com/pr-poehali-dev/messenger-integration-1/internal/infra"
)

// ErrUserNotFound is returned when no user matches a lookup.
var ErrUserNotFound = apperr.New(apperr.NotFound, "user not found")

// Repository persists users.
type Repository interface {
	// Upsert creates the user for phone or refreshes the existing one. The
	// stored username is replaced only when overwrite is true or the user is
	// new. created reports whether a row was inserted.
	Upsert(ctx context.Context, phone, username string, overwrite bool, now time.Time) (user User, created bool, err error)
	FindByPhone(ctx context.Context, phone string) (User, error)
	FindByID(ctx context.Context, id int64) (User, error)
	Touch(ctx context.Context, id int64, now time.Time) error
}

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a Postgres-backed user repository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const userColumns = `id, phone, username, avatar_url, last_seen`

// Upsert relies on the unique phone constraint so concurrent first logins for
// the same phone converge on one row.
func (r *PostgresRepository) Upsert(ctx context.Context, phone, username string, overwrite bool, now time.Time) (User, bool, error) {
	const query = `
        INSERT INTO users (phone, username, last_seen)
        VALUES ($1, $2, $3)
        ON CONFLICT (phone) DO UPDATE
            SET username  = CASE WHEN $4::boolean THEN EXCLUDED.username ELSE users.username END,
                last_seen = EXCLUDED.last_seen
        RETURNING ` + userColumns + `, (xmax = 0) AS inserted`
	var (
		user     User
		inserted bool
	)
	row := infra.Conn(ctx, r.db).QueryRow(ctx, query, phone, username, now.UTC(), overwrite)
	if err := row.Scan(&user.ID, &user.Phone, &user.Username, &user.AvatarURL, &user.LastSeen, &inserted); err != nil {
		return User{}, false, err
	}
	user.LastSeen = user.LastSeen.UTC()
	return user, inserted, nil
}

// FindByPhone fetches a user by phone number.
func (r *PostgresRepository) FindByPhone(ctx context.Context, phone string) (User, error) {
	row := infra.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE phone = $1`, phone)
	return scanUser(row)
}

// FindByID fetches a user by identifier.
func (r *PostgresRepository) FindByID(ctx context.Context, id int64) (User, error) {
	row := infra.Conn(ctx, r.db).QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id)
	return scanUser(row)
}

// Touch refreshes the user's last activity timestamp.
func (r *PostgresRepository) Touch(ctx context.Context, id int64, now time.Time) error {
	cmd, err := infra.Conn(ctx, r.db).Exec(ctx, `UPDATE users SET last_seen = $1 WHERE id = $2`, now.UTC(), id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrUserNotFound
	}
	return nil
}

func scanUser(row pgx.Row) (User, error) {
	var user User
	if err := row.Scan(&user.ID, &user.Phone, &user.Username, &user.AvatarURL, &user.LastSeen); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, ErrUserNotFound
		}
		return User{}, err
	}
	user.LastSeen = user.LastSeen.UTC()
	return user, nil
}
