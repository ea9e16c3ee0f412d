package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/property-service/internal/domain"
)

// PropertyFilter captures listing query parameters.
type PropertyFilter struct {
	ListingType *domain.ListingType
	Featured    *bool
	SearchTerm  *string
	Limit       int
	Offset      int
}

// PropertyRepository encapsulates property persistence.
type PropertyRepository interface {
	Create(ctx context.Context, property *domain.Property) error
	GetByID(ctx context.Context, id string) (*domain.Property, error)
	ListPublic(ctx context.Context, filter PropertyFilter) ([]domain.Property, error)
	ListBySubmitter(ctx context.Context, submitterID string) ([]domain.Property, error)
	ListByStatus(ctx context.Context, status *domain.ApprovalStatus, limit, offset int) ([]domain.Property, error)
	Review(ctx context.Context, id string, status domain.ApprovalStatus, reviewedAt time.Time, reason *string) (*domain.Property, error)
	SetFeatured(ctx context.Context, id string, featured bool) (*domain.Property, error)
}

type propertyRepository struct {
	pool *pgxpool.Pool
}

// NewPropertyRepository instantiates repository.
func NewPropertyRepository(pool *pgxpool.Pool) PropertyRepository {
	return &propertyRepository{pool: pool}
}

const propertyColumns = `id, title, description, location, property_type, price, bedrooms, bathrooms, area_sqft,
               image_urls, listing_type, submitted_by, approval_status, approval_date, rejection_reason,
               submission_date, featured, created_at, updated_at`

// publicVisibility keeps rows from before moderation existed (NULL status) listable.
const publicVisibility = `(approval_status IS NULL OR approval_status = 'approved')`

func (r *propertyRepository) Create(ctx context.Context, p *domain.Property) error {
	const query = `
        INSERT INTO properties (title, description, location, property_type, price, bedrooms, bathrooms, area_sqft,
            image_urls, listing_type, submitted_by, approval_status, approval_date, rejection_reason,
            submission_date, featured)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
        RETURNING id, created_at, updated_at`

	imageURLs := p.ImageURLs
	if imageURLs == nil {
		imageURLs = []string{}
	}
	return r.pool.QueryRow(ctx, query,
		p.Title,
		p.Description,
		p.Location,
		p.PropertyType,
		p.Price,
		p.Bedrooms,
		p.Bathrooms,
		p.AreaSqft,
		imageURLs,
		p.ListingType,
		p.SubmittedBy,
		p.ApprovalStatus,
		p.ApprovalDate,
		p.RejectionReason,
		p.SubmissionDate,
		p.Featured,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *propertyRepository) GetByID(ctx context.Context, id string) (*domain.Property, error) {
	return scanProperty(r.pool.QueryRow(ctx, `SELECT `+propertyColumns+` FROM properties WHERE id=$1`, id))
}

func (r *propertyRepository) ListPublic(ctx context.Context, filter PropertyFilter) ([]domain.Property, error) {
	clauses := []string{publicVisibility}
	args := []any{}

	if filter.ListingType != nil {
		args = append(args, *filter.ListingType)
		clauses = append(clauses, fmt.Sprintf("listing_type=$%d", len(args)))
	}
	if filter.Featured != nil {
		args = append(args, *filter.Featured)
		clauses = append(clauses, fmt.Sprintf("featured=$%d", len(args)))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		args = append(args, "%"+strings.ToLower(strings.TrimSpace(*filter.SearchTerm))+"%")
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf("(LOWER(title) LIKE %s OR LOWER(location) LIKE %s)", placeholder, placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM properties WHERE %s ORDER BY featured DESC, created_at DESC LIMIT %d OFFSET %d`,
		propertyColumns, strings.Join(clauses, " AND "), limit, offset)
	return r.queryProperties(ctx, query, args...)
}

func (r *propertyRepository) ListBySubmitter(ctx context.Context, submitterID string) ([]domain.Property, error) {
	query := `SELECT ` + propertyColumns + ` FROM properties WHERE submitted_by=$1 ORDER BY created_at DESC`
	return r.queryProperties(ctx, query, submitterID)
}

func (r *propertyRepository) ListByStatus(ctx context.Context, status *domain.ApprovalStatus, limit, offset int) ([]domain.Property, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	if status == nil {
		query := fmt.Sprintf(`SELECT %s FROM properties ORDER BY created_at DESC LIMIT %d OFFSET %d`,
			propertyColumns, limit, offset)
		return r.queryProperties(ctx, query)
	}
	if *status == domain.ApprovalApproved {
		query := fmt.Sprintf(`SELECT %s FROM properties WHERE %s ORDER BY created_at DESC LIMIT %d OFFSET %d`,
			propertyColumns, publicVisibility, limit, offset)
		return r.queryProperties(ctx, query)
	}
	query := fmt.Sprintf(`SELECT %s FROM properties WHERE approval_status=$1 ORDER BY submission_date ASC NULLS LAST LIMIT %d OFFSET %d`,
		propertyColumns, limit, offset)
	return r.queryProperties(ctx, query, *status)
}

// Review stamps a moderation decision in a single statement.
func (r *propertyRepository) Review(ctx context.Context, id string, status domain.ApprovalStatus, reviewedAt time.Time, reason *string) (*domain.Property, error) {
	query := `
        UPDATE properties SET approval_status=$1, approval_date=$2, rejection_reason=$3, updated_at=NOW()
        WHERE id=$4
        RETURNING ` + propertyColumns
	return scanProperty(r.pool.QueryRow(ctx, query, status, reviewedAt, reason, id))
}

func (r *propertyRepository) SetFeatured(ctx context.Context, id string, featured bool) (*domain.Property, error) {
	query := `UPDATE properties SET featured=$1, updated_at=NOW() WHERE id=$2 RETURNING ` + propertyColumns
	return scanProperty(r.pool.QueryRow(ctx, query, featured, id))
}

func (r *propertyRepository) queryProperties(ctx context.Context, query string, args ...any) ([]domain.Property, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Property
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *p)
	}
	return result, rows.Err()
}

func scanProperty(row pgx.Row) (*domain.Property, error) {
	var p domain.Property
	if err := row.Scan(
		&p.ID,
		&p.Title,
		&p.Description,
		&p.Location,
		&p.PropertyType,
		&p.Price,
		&p.Bedrooms,
		&p.Bathrooms,
		&p.AreaSqft,
		&p.ImageURLs,
		&p.ListingType,
		&p.SubmittedBy,
		&p.ApprovalStatus,
		&p.ApprovalDate,
		&p.RejectionReason,
		&p.SubmissionDate,
		&p.Featured,
		&p.CreatedAt,
		&p.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &p, nil
}
