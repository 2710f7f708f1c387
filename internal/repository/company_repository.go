package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gtmhq/gtm-advisor/internal/domain"
)

// CompanyRepository defines persistence access for client companies.
type CompanyRepository interface {
	Create(ctx context.Context, company *domain.Company) error
	GetByID(ctx context.Context, id string) (*domain.Company, error)
	ListByOwner(ctx context.Context, ownerUserID string) ([]*domain.Company, error)
}

type companyRepository struct {
	pool *pgxpool.Pool
}

// NewCompanyRepository returns a Postgres-backed implementation.
func NewCompanyRepository(pool *pgxpool.Pool) CompanyRepository {
	return &companyRepository{pool: pool}
}

func (r *companyRepository) Create(ctx context.Context, company *domain.Company) error {
	const query = `
        INSERT INTO companies (owner_user_id, name, domain, industry, description)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		company.OwnerUserID,
		company.Name,
		company.Domain,
		company.Industry,
		company.Description,
	).Scan(&company.ID, &company.CreatedAt, &company.UpdatedAt)
}

func (r *companyRepository) GetByID(ctx context.Context, id string) (*domain.Company, error) {
	const query = `
        SELECT id, owner_user_id, name, domain, industry, description, created_at, updated_at
        FROM companies WHERE id=$1`

	var company domain.Company
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&company.ID,
		&company.OwnerUserID,
		&company.Name,
		&company.Domain,
		&company.Industry,
		&company.Description,
		&company.CreatedAt,
		&company.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &company, nil
}

func (r *companyRepository) ListByOwner(ctx context.Context, ownerUserID string) ([]*domain.Company, error) {
	const query = `
        SELECT id, owner_user_id, name, domain, industry, description, created_at, updated_at
        FROM companies WHERE owner_user_id=$1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, ownerUserID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var companies []*domain.Company
	for rows.Next() {
		var company domain.Company
		if err := rows.Scan(
			&company.ID,
			&company.OwnerUserID,
			&company.Name,
			&company.Domain,
			&company.Industry,
			&company.Description,
			&company.CreatedAt,
			&company.UpdatedAt,
		); err != nil {
			return nil, err
		}
		companies = append(companies, &company)
	}
	return companies, rows.Err()
}
