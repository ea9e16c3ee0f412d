package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/property-service/internal/domain"
)

// Credential pairs an identity with its password hash.
type Credential struct {
	Identity     domain.Identity
	PasswordHash string
}

// CredentialRepository stores identities for the credential provider.
type CredentialRepository interface {
	Create(ctx context.Context, cred *Credential) error
	GetByID(ctx context.Context, id string) (*Credential, error)
	GetByEmail(ctx context.Context, email string) (*Credential, error)
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	ConfirmEmail(ctx context.Context, id string, at time.Time) error
}

type credentialRepository struct {
	pool *pgxpool.Pool
}

// NewCredentialRepository returns a Postgres-backed implementation.
func NewCredentialRepository(pool *pgxpool.Pool) CredentialRepository {
	return &credentialRepository{pool: pool}
}

func (r *credentialRepository) Create(ctx context.Context, cred *Credential) error {
	const query = `
        INSERT INTO identities (email, password_hash, metadata, email_confirmed_at)
        VALUES ($1, $2, $3, $4)
        RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		cred.Identity.Email,
		cred.PasswordHash,
		cred.Identity.Metadata,
		cred.Identity.EmailConfirmedAt,
	).Scan(&cred.Identity.ID, &cred.Identity.CreatedAt, &cred.Identity.UpdatedAt)
	return mapWriteError(err)
}

func (r *credentialRepository) GetByID(ctx context.Context, id string) (*Credential, error) {
	const query = `
        SELECT id, email, password_hash, metadata, email_confirmed_at, created_at, updated_at
        FROM identities WHERE id=$1`
	return scanCredential(r.pool.QueryRow(ctx, query, id))
}

func (r *credentialRepository) GetByEmail(ctx context.Context, email string) (*Credential, error) {
	const query = `
        SELECT id, email, password_hash, metadata, email_confirmed_at, created_at, updated_at
        FROM identities WHERE LOWER(email)=LOWER($1)`
	return scanCredential(r.pool.QueryRow(ctx, query, email))
}

func (r *credentialRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	const query = `UPDATE identities SET password_hash=$1, updated_at=NOW() WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, passwordHash, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *credentialRepository) ConfirmEmail(ctx context.Context, id string, at time.Time) error {
	const query = `
        UPDATE identities SET email_confirmed_at=COALESCE(email_confirmed_at, $1), updated_at=NOW()
        WHERE id=$2`
	cmd, err := r.pool.Exec(ctx, query, at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanCredential(row pgx.Row) (*Credential, error) {
	var cred Credential
	if err := row.Scan(
		&cred.Identity.ID,
		&cred.Identity.Email,
		&cred.PasswordHash,
		&cred.Identity.Metadata,
		&cred.Identity.EmailConfirmedAt,
		&cred.Identity.CreatedAt,
		&cred.Identity.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &cred, nil
}
