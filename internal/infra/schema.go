package infra

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS users (
        id         BIGSERIAL PRIMARY KEY,
        phone      TEXT NOT NULL UNIQUE,
        username   TEXT NOT NULL,
        avatar_url TEXT,
        last_seen  TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE TABLE IF NOT EXISTS auth_codes (
        id         BIGSERIAL PRIMARY KEY,
        phone      TEXT NOT NULL,
        code       TEXT NOT NULL,
        expires_at TIMESTAMPTZ NOT NULL,
        is_used    BOOLEAN NOT NULL DEFAULT FALSE,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
    )`,
	`CREATE INDEX IF NOT EXISTS auth_codes_phone_code_idx ON auth_codes (phone, code, created_at DESC)`,
	`CREATE TABLE IF NOT EXISTS chats (
        id BIGSERIAL PRIMARY KEY
    )`,
	`CREATE TABLE IF NOT EXISTS chat_participants (
        chat_id BIGINT NOT NULL REFERENCES chats (id),
        user_id BIGINT NOT NULL REFERENCES users (id),
        PRIMARY KEY (chat_id, user_id)
    )`,
	`CREATE INDEX IF NOT EXISTS chat_participants_user_idx ON chat_participants (user_id)`,
	`CREATE TABLE IF NOT EXISTS messages (
        id         BIGSERIAL PRIMARY KEY,
        chat_id    BIGINT NOT NULL REFERENCES chats (id),
        sender_id  BIGINT NOT NULL REFERENCES users (id),
        content    TEXT NOT NULL,
        created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
        is_read    BOOLEAN NOT NULL DEFAULT FALSE
    )`,
	`CREATE INDEX IF NOT EXISTS messages_chat_created_idx ON messages (chat_id, created_at, id)`,
}

// Migrate creates the schema and the five relations if they do not exist.
func Migrate(ctx context.Context, db *pgxpool.Pool, schema string) error {
	if schema != "" {
		stmt := "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{schema}.Sanitize()
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("create schema %s: %w", schema, err)
		}
	}
	for _, stmt := range schemaStatements {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
