package ledger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/repository"
)

// Repository stores calculation snapshots and the finalized flag they travel with.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func findSnapshot(ctx context.Context, q repository.Querier, jobID int64) (*models.Snapshot, error) {
	var s models.Snapshot
	var raw []byte
	err := q.QueryRow(ctx, `
		SELECT id, job_id, settings_version_id, snapshot, finalized_at
		FROM job_calculation_snapshots WHERE job_id = $1
	`, jobID).Scan(&s.ID, &s.JobID, &s.SettingsVersionID, &raw, &s.FinalizedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.Document); err != nil {
		return nil, fmt.Errorf("decode snapshot for job %d: %w", jobID, err)
	}
	return &s, nil
}

// FindByJob returns the job's snapshot, or nil when the job is not finalized.
func (r *Repository) FindByJob(ctx context.Context, jobID int64) (*models.Snapshot, error) {
	return findSnapshot(ctx, r.pool, jobID)
}

func (r *Repository) FindByJobTx(ctx context.Context, tx pgx.Tx, jobID int64) (*models.Snapshot, error) {
	return findSnapshot(ctx, tx, jobID)
}

// CreateTx inserts the snapshot. A second snapshot for the same job violates the unique job_id.
func (r *Repository) CreateTx(ctx context.Context, tx pgx.Tx, s *models.Snapshot) error {
	raw, err := json.Marshal(s.Document)
	if err != nil {
		return err
	}
	err = tx.QueryRow(ctx, `
		INSERT INTO job_calculation_snapshots (job_id, settings_version_id, snapshot, finalized_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id
	`, s.JobID, s.SettingsVersionID, raw, s.FinalizedAt).Scan(&s.ID)
	return repository.MapError(err)
}

func (r *Repository) DeleteByJobTx(ctx context.Context, tx pgx.Tx, jobID int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM job_calculation_snapshots WHERE job_id = $1`, jobID)
	return err
}

func (r *Repository) SetFinalizedTx(ctx context.Context, tx pgx.Tx, jobID int64, finalized bool) error {
	tag, err := tx.Exec(ctx, `UPDATE jobs SET is_finalized = $2, updated_at = now() WHERE id = $1`, jobID, finalized)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
