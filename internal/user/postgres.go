package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

const userColumns = `id, username, email, password_hash, external_id, created_at, updated_at`

// PostgresStore implements Store on top of database/sql with the Postgres
// driver. Uniqueness is owned by the schema: unique indexes on lower(email),
// username, and external_id. All duplicate-key failures surface as
// ErrDuplicate.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) FindByID(ctx context.Context, id int64) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE id = $1
	`, id)
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE LOWER(email) = LOWER($1)
	`, email)
	return scanUser(row)
}

func (s *PostgresStore) FindByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE username = $1
	`, username)
	return scanUser(row)
}

func (s *PostgresStore) FindByExternalID(ctx context.Context, externalID string) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+`
		FROM users
		WHERE external_id = $1
	`, externalID)
	return scanUser(row)
}

func (s *PostgresStore) ExistsByEmailOrUsername(ctx context.Context, email, username string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM users
			WHERE LOWER(email) = LOWER($1) OR username = $2
		)
	`, email, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("user: existence check: %w", err)
	}
	return exists, nil
}

func (s *PostgresStore) Create(ctx context.Context, nu NewUser) (*User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, external_id)
		VALUES (NULLIF($1, ''), $2, NULLIF($3, ''), NULLIF($4, ''))
		RETURNING `+userColumns+`
	`, nu.Username, nu.Email, nu.PasswordHash, nu.ExternalID)

	u, err := scanUser(row)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return u, nil
}

func (s *PostgresStore) UpdateExternalID(ctx context.Context, id int64, externalID string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET external_id = $2, updated_at = NOW()
		WHERE id = $1
	`, id, externalID)
	if err != nil {
		return mapWriteErr(err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// FindOrCreateByExternalID is the atomic find-or-create contract. The
// conditional insert rides on the unique index over external_id: on conflict
// the existing row is returned, so concurrent first logins for the same
// external id converge on one user.
func (s *PostgresStore) FindOrCreateByExternalID(ctx context.Context, nu NewUser) (*User, error) {
	if nu.ExternalID == "" {
		return nil, errors.New("user: external id required")
	}

	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, password_hash, external_id)
		VALUES (NULLIF($1, ''), $2, NULLIF($3, ''), $4)
		ON CONFLICT (external_id) DO UPDATE SET updated_at = NOW()
		RETURNING `+userColumns+`
	`, nu.Username, nu.Email, nu.PasswordHash, nu.ExternalID)

	u, err := scanUser(row)
	if err != nil {
		return nil, mapWriteErr(err)
	}
	return u, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*User, error) {
	var (
		u            User
		username     sql.NullString
		passwordHash sql.NullString
		externalID   sql.NullString
	)

	err := row.Scan(
		&u.ID,
		&username,
		&u.Email,
		&passwordHash,
		&externalID,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	u.Username = username.String
	u.PasswordHash = passwordHash.String
	u.ExternalID = externalID.String
	return &u, nil
}

// mapWriteErr converts driver-level unique violations into ErrDuplicate so
// callers never depend on pq internals.
func mapWriteErr(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}
