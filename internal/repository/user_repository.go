package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gtmhq/gtm-advisor/internal/domain"
)

// UserRepository defines persistence access for client accounts.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	Update(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	IncrementUsage(ctx context.Context, id string, day time.Time) error
}

type userRepository struct {
	pool *pgxpool.Pool
}

// NewUserRepository returns a Postgres-backed implementation.
func NewUserRepository(pool *pgxpool.Pool) UserRepository {
	return &userRepository{pool: pool}
}

func (r *userRepository) Create(ctx context.Context, user *domain.User) error {
	const query = `
        INSERT INTO users (email, name, company_name, password_hash, tier, active)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING id, created_at, updated_at`

	return r.pool.QueryRow(ctx, query,
		user.Email,
		user.Name,
		user.CompanyName,
		user.PasswordHash,
		user.Tier,
		user.Active,
	).Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
}

func (r *userRepository) Update(ctx context.Context, user *domain.User) error {
	const query = `
        UPDATE users SET email=$1, name=$2, company_name=$3, password_hash=$4,
            tier=$5, active=$6, daily_request_count=$7, last_request_date=$8, updated_at=NOW()
        WHERE id=$9`

	cmd, err := r.pool.Exec(ctx, query,
		user.Email,
		user.Name,
		user.CompanyName,
		user.PasswordHash,
		user.Tier,
		user.Active,
		user.DailyRequestCount,
		user.LastRequestDate,
		user.ID,
	)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	const query = `
        SELECT id, email, name, company_name, password_hash, tier, active,
               daily_request_count, last_request_date, created_at, updated_at
        FROM users WHERE id=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, id))
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	const query = `
        SELECT id, email, name, company_name, password_hash, tier, active,
               daily_request_count, last_request_date, created_at, updated_at
        FROM users WHERE email=$1`

	return r.scanOne(r.pool.QueryRow(ctx, query, email))
}

// IncrementUsage bumps the daily counter, resetting it when the request date
// rolled over since the last recorded request.
func (r *userRepository) IncrementUsage(ctx context.Context, id string, day time.Time) error {
	const query = `
        UPDATE users SET
            daily_request_count = CASE WHEN last_request_date = $2::date
                THEN daily_request_count + 1 ELSE 1 END,
            last_request_date = $2::date,
            updated_at = NOW()
        WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id, day)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *userRepository) scanOne(row pgx.Row) (*domain.User, error) {
	var user domain.User
	if err := row.Scan(
		&user.ID,
		&user.Email,
		&user.Name,
		&user.CompanyName,
		&user.PasswordHash,
		&user.Tier,
		&user.Active,
		&user.DailyRequestCount,
		&user.LastRequestDate,
		&user.CreatedAt,
		&user.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &user, nil
}
