package db

import (
	"context"
	"database/sql"
)

// Schema for the identity core. Uniqueness constraints here are the actual
// source of truth for duplicate detection: application-level existence checks
// only short-circuit the common case.
const usersMigration = `
CREATE TABLE IF NOT EXISTS users (
    id bigserial PRIMARY KEY,
    username text,
    email text NOT NULL,
    password_hash text,
    external_id text,
    created_at timestamptz NOT NULL DEFAULT NOW(),
    updated_at timestamptz NOT NULL DEFAULT NOW(),
    CONSTRAINT users_credential_present
        CHECK (password_hash IS NOT NULL OR external_id IS NOT NULL)
);

CREATE UNIQUE INDEX IF NOT EXISTS users_email_lower_unique
ON users (LOWER(email));

CREATE UNIQUE INDEX IF NOT EXISTS users_username_unique
ON users (username);

CREATE UNIQUE INDEX IF NOT EXISTS users_external_id_unique
ON users (external_id);
`

// Migrate applies the users schema. Idempotent.
func Migrate(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, usersMigration)
	return err
}
