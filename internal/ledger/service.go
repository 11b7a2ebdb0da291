package ledger

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/repository"
	"github.com/jobledger/backend/internal/services"
)

// Service moves jobs between the live and finalized states.
type Service interface {
	// Finalize freezes the job's current figures. Finalizing a finalized job returns its existing snapshot.
	Finalize(ctx context.Context, jobID int64) (*models.Snapshot, error)
	// Unfinalize drops the snapshot so the job is recomputed from live data again.
	Unfinalize(ctx context.Context, jobID int64) error
}

// JobReader loads a job and what it owns inside a transaction.
// GetForUpdateTx must lock the job row until the transaction ends.
type JobReader interface {
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Job, error)
	ListReceiptsTx(ctx context.Context, tx pgx.Tx, jobID int64) ([]*models.Receipt, error)
	ListAllocationsTx(ctx context.Context, tx pgx.Tx, jobID int64) ([]*models.JobAllocation, error)
}

type RulesReader interface {
	GetRulesTx(ctx context.Context, tx pgx.Tx, versionID int64) (models.Rules, error)
}

// SnapshotStore is satisfied by *Repository.
type SnapshotStore interface {
	repository.TxBeginner
	FindByJobTx(ctx context.Context, tx pgx.Tx, jobID int64) (*models.Snapshot, error)
	CreateTx(ctx context.Context, tx pgx.Tx, s *models.Snapshot) error
	DeleteByJobTx(ctx context.Context, tx pgx.Tx, jobID int64) error
	SetFinalizedTx(ctx context.Context, tx pgx.Tx, jobID int64, finalized bool) error
}

type service struct {
	store SnapshotStore
	jobs  JobReader
	rules RulesReader
	log   *slog.Logger
}

func NewService(store SnapshotStore, jobs JobReader, rules RulesReader, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{store: store, jobs: jobs, rules: rules, log: log}
}

var _ Service = (*service)(nil)

func (s *service) Finalize(ctx context.Context, jobID int64) (*models.Snapshot, error) {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	// The row lock makes a concurrent finalize wait here and then see is_finalized.
	job, err := s.jobs.GetForUpdateTx(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	if job.IsFinalized {
		snap, err := s.store.FindByJobTx(ctx, tx, jobID)
		if err != nil {
			return nil, err
		}
		return snap, tx.Commit(ctx)
	}

	receipts, err := s.jobs.ListReceiptsTx(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	allocations, err := s.jobs.ListAllocationsTx(ctx, tx, jobID)
	if err != nil {
		return nil, err
	}
	rules, err := s.rules.GetRulesTx(ctx, tx, job.SettingsVersionID)
	if err != nil {
		return nil, err
	}

	totals := services.ComputeJobTotals(job, receipts, rules)
	results := services.ComputeAllocations(job, allocations, totals, rules)
	snap := services.BuildSnapshot(job, totals, results, job.SettingsVersionID)
	if err := s.store.CreateTx(ctx, tx, snap); err != nil {
		return nil, err
	}
	if err := s.store.SetFinalizedTx(ctx, tx, jobID, true); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	s.log.Info("job finalized", "job_id", jobID, "net_distributable", totals.NetDistributable.StringFixed(2))
	return snap, nil
}

func (s *service) Unfinalize(ctx context.Context, jobID int64) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := s.jobs.GetForUpdateTx(ctx, tx, jobID); err != nil {
		return err
	}
	if err := s.store.DeleteByJobTx(ctx, tx, jobID); err != nil {
		return err
	}
	if err := s.store.SetFinalizedTx(ctx, tx, jobID, false); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	s.log.Info("job unfinalized", "job_id", jobID)
	return nil
}
