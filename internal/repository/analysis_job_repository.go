package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/gtmhq/gtm-advisor/internal/domain"
)

// AnalysisJobRepository is the durable store for analysis runs. Results
// survive process restarts; the in-flight queue does not.
type AnalysisJobRepository interface {
	Create(ctx context.Context, job *domain.AnalysisJob) error
	GetByID(ctx context.Context, id string) (*domain.AnalysisJob, error)
	SetStatus(ctx context.Context, id string, status domain.AnalysisStatus) error
	SetResult(ctx context.Context, id string, status domain.AnalysisStatus, result []byte, errorMessage string) error
	MarkOrphans(ctx context.Context) (int64, error)
}

type analysisJobRepository struct {
	pool *pgxpool.Pool
}

// NewAnalysisJobRepository returns a Postgres-backed implementation.
func NewAnalysisJobRepository(pool *pgxpool.Pool) AnalysisJobRepository {
	return &analysisJobRepository{pool: pool}
}

func (r *analysisJobRepository) Create(ctx context.Context, job *domain.AnalysisJob) error {
	const query = `
        INSERT INTO analysis_jobs (id, company_id, requested_by, task, agents, status)
        VALUES ($1, $2, $3, $4, $5, $6)
        RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		job.ID,
		job.CompanyID,
		job.RequestedBy,
		job.Task,
		job.Agents,
		job.Status,
	).Scan(&job.CreatedAt)
}

func (r *analysisJobRepository) GetByID(ctx context.Context, id string) (*domain.AnalysisJob, error) {
	const query = `
        SELECT id, company_id, requested_by, task, agents, status, result,
               error_message, created_at, started_at, finished_at
        FROM analysis_jobs WHERE id=$1`

	var job domain.AnalysisJob
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.CompanyID,
		&job.RequestedBy,
		&job.Task,
		&job.Agents,
		&job.Status,
		&job.Result,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.StartedAt,
		&job.FinishedAt,
	); err != nil {
		return nil, err
	}
	return &job, nil
}

func (r *analysisJobRepository) SetStatus(ctx context.Context, id string, status domain.AnalysisStatus) error {
	const query = `
        UPDATE analysis_jobs SET status=$2,
            started_at = CASE WHEN $2 = 'running' THEN NOW() ELSE started_at END
        WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id, status)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *analysisJobRepository) SetResult(ctx context.Context, id string, status domain.AnalysisStatus, result []byte, errorMessage string) error {
	const query = `
        UPDATE analysis_jobs SET status=$2, result=$3, error_message=$4, finished_at=NOW()
        WHERE id=$1`

	cmd, err := r.pool.Exec(ctx, query, id, status, result, errorMessage)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// MarkOrphans flags jobs left in the running state by a previous process.
func (r *analysisJobRepository) MarkOrphans(ctx context.Context) (int64, error) {
	const query = `
        UPDATE analysis_jobs SET status='interrupted',
            error_message='process restarted during run', finished_at=NOW()
        WHERE status='running'`

	cmd, err := r.pool.Exec(ctx, query)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}
