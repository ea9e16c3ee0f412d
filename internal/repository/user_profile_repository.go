package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/property-service/internal/domain"
)

// UserProfileRepository defines persistence access for marketplace users.
type UserProfileRepository interface {
	Create(ctx context.Context, profile *domain.UserProfile) error
	GetByID(ctx context.Context, id string) (*domain.UserProfile, error)
	GetByPhone(ctx context.Context, phone string) (*domain.UserProfile, error)
	GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error)
	ListAll(ctx context.Context) ([]domain.UserProfile, error)
}

type userProfileRepository struct {
	pool *pgxpool.Pool
}

// NewUserProfileRepository returns a Postgres-backed implementation.
func NewUserProfileRepository(pool *pgxpool.Pool) UserProfileRepository {
	return &userProfileRepository{pool: pool}
}

// Phone is optional for self-healed profiles; empty is stored as NULL so it never collides.
const userProfileColumns = `id, name, COALESCE(phone, ''), email, created_at, updated_at`

func (r *userProfileRepository) Create(ctx context.Context, profile *domain.UserProfile) error {
	const query = `
        INSERT INTO user_profiles (id, name, phone, email)
        VALUES ($1, $2, NULLIF($3, ''), $4)
        RETURNING created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		profile.ID,
		profile.Name,
		profile.Phone,
		profile.Email,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
	return mapWriteError(err)
}

func (r *userProfileRepository) GetByID(ctx context.Context, id string) (*domain.UserProfile, error) {
	return scanUserProfile(r.pool.QueryRow(ctx, `SELECT `+userProfileColumns+` FROM user_profiles WHERE id=$1`, id))
}

func (r *userProfileRepository) GetByPhone(ctx context.Context, phone string) (*domain.UserProfile, error) {
	return scanUserProfile(r.pool.QueryRow(ctx, `SELECT `+userProfileColumns+` FROM user_profiles WHERE phone=$1`, phone))
}

func (r *userProfileRepository) GetByEmail(ctx context.Context, email string) (*domain.UserProfile, error) {
	return scanUserProfile(r.pool.QueryRow(ctx,
		`SELECT `+userProfileColumns+` FROM user_profiles WHERE LOWER(email)=LOWER($1)`, email))
}

func (r *userProfileRepository) ListAll(ctx context.Context) ([]domain.UserProfile, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userProfileColumns+` FROM user_profiles ORDER BY created_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.UserProfile
	for rows.Next() {
		profile, err := scanUserProfile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *profile)
	}
	return result, rows.Err()
}

func scanUserProfile(row pgx.Row) (*domain.UserProfile, error) {
	var profile domain.UserProfile
	if err := row.Scan(
		&profile.ID,
		&profile.Name,
		&profile.Phone,
		&profile.Email,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &profile, nil
}
