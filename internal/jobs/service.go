package jobs

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/ledger"
	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/repository"
	"github.com/jobledger/backend/internal/services"
)

var (
	// ErrJobFinalized is returned for any change to a finalized job or what it owns.
	ErrJobFinalized     = errors.New("job is finalized")
	ErrNoActiveSettings = errors.New("no active settings version")
	ErrInvalidInput     = errors.New("invalid input")
)

// Store is satisfied by *Repository.
type Store interface {
	repository.TxBeginner
	Create(ctx context.Context, j *models.Job) error
	GetByID(ctx context.Context, id int64) (*models.Job, error)
	GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Job, error)
	UpdateTx(ctx context.Context, tx pgx.Tx, j *models.Job) error
	SetStatus(ctx context.Context, id int64, status models.JobStatus) error
	List(ctx context.Context, includeArchived bool) ([]*models.Job, error)
	ListCodes(ctx context.Context) ([]string, error)

	CreateReceiptTx(ctx context.Context, tx pgx.Tx, rc *models.Receipt) error
	GetReceipt(ctx context.Context, id int64) (*models.Receipt, error)
	UpdateReceiptTx(ctx context.Context, tx pgx.Tx, rc *models.Receipt) error
	DeleteReceiptTx(ctx context.Context, tx pgx.Tx, id int64) error
	ListReceipts(ctx context.Context, jobID int64) ([]*models.Receipt, error)

	CreateAllocationTx(ctx context.Context, tx pgx.Tx, a *models.JobAllocation) error
	GetAllocation(ctx context.Context, id int64) (*models.JobAllocation, error)
	UpdateAllocationTx(ctx context.Context, tx pgx.Tx, a *models.JobAllocation) error
	DeleteAllocationTx(ctx context.Context, tx pgx.Tx, id int64) error
	ListAllocations(ctx context.Context, jobID int64) ([]*models.JobAllocation, error)
	ListAllocationsTx(ctx context.Context, tx pgx.Tx, jobID int64) ([]*models.JobAllocation, error)
}

// SettingsSource is satisfied by *repository.SettingsRepo.
type SettingsSource interface {
	Active(ctx context.Context) (*models.SettingsVersion, error)
	GetRules(ctx context.Context, versionID int64) (models.Rules, error)
	GetRulesTx(ctx context.Context, tx pgx.Tx, versionID int64) (models.Rules, error)
}

// PaymentGenerator is satisfied by *services.PaymentGenerator.
type PaymentGenerator interface {
	GenerateFromReceipt(ctx context.Context, tx pgx.Tx, receipt *models.Receipt, job *models.Job, rules models.Rules) ([]*models.Payment, error)
}

type SnapshotReader interface {
	FindByJob(ctx context.Context, jobID int64) (*models.Snapshot, error)
}

type PaymentLister interface {
	List(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error)
}

// JobDetail is a job with its figures resolved from the snapshot when finalized.
type JobDetail struct {
	Job                *models.Job               `json:"job"`
	Totals             models.Totals             `json:"totals"`
	Allocations        []models.AllocationResult `json:"allocations"`
	Receipts           []*models.Receipt         `json:"receipts"`
	Payments           []*models.Payment         `json:"payments"`
	Snapshot           *models.Snapshot          `json:"snapshot,omitempty"`
	Frozen             bool                      `json:"frozen"`
	ConnectsUsed       int                       `json:"connects_used"`
	ConnectCostPerUnit decimal.Decimal           `json:"connect_cost_per_unit"`
}

type Service interface {
	CreateJob(ctx context.Context, j *models.Job) (*models.Job, error)
	UpdateJob(ctx context.Context, j *models.Job) (*models.Job, error)
	ArchiveJob(ctx context.Context, id int64) error
	GetJobDetail(ctx context.Context, id int64) (*JobDetail, error)
	ListJobs(ctx context.Context, includeArchived bool) ([]*models.Job, error)

	// AddReceipt stores the receipt and its generated payments in one transaction.
	AddReceipt(ctx context.Context, jobID int64, rc *models.Receipt) (*models.Receipt, []*models.Payment, error)
	UpdateReceipt(ctx context.Context, rc *models.Receipt) (*models.Receipt, error)
	DeleteReceipt(ctx context.Context, id int64) error

	AddAllocation(ctx context.Context, jobID int64, a *models.JobAllocation) (*models.JobAllocation, error)
	UpdateAllocation(ctx context.Context, a *models.JobAllocation) (*models.JobAllocation, error)
	DeleteAllocation(ctx context.Context, id int64) error

	Finalize(ctx context.Context, id int64) (*models.Snapshot, error)
	Unfinalize(ctx context.Context, id int64) error
}

type service struct {
	repo      Store
	settings  SettingsSource
	generator PaymentGenerator
	snapshots SnapshotReader
	payments  PaymentLister
	ledger    ledger.Service
	log       *slog.Logger
}

func NewService(repo Store, settings SettingsSource, generator PaymentGenerator, snapshots SnapshotReader, payments PaymentLister, ledger ledger.Service, log *slog.Logger) Service {
	if log == nil {
		log = slog.Default()
	}
	return &service{
		repo:      repo,
		settings:  settings,
		generator: generator,
		snapshots: snapshots,
		payments:  payments,
		ledger:    ledger,
		log:       log,
	}
}

var _ Service = (*service)(nil)

func validateJob(j *models.Job) error {
	j.Title = strings.TrimSpace(j.Title)
	if j.Title == "" {
		return fmt.Errorf("%w: title is required", ErrInvalidInput)
	}
	if j.Type == "" {
		j.Type = models.JobTypeFixed
	}
	if j.ConnectsUsed != nil && *j.ConnectsUsed < 0 {
		return fmt.Errorf("%w: connects_used must not be negative", ErrInvalidInput)
	}
	if j.PlatformFeeValueOverride != nil && j.PlatformFeeValueOverride.IsNegative() {
		return fmt.Errorf("%w: platform fee override must not be negative", ErrInvalidInput)
	}
	if j.StartDate != nil && j.EndDate != nil && j.EndDate.Before(*j.StartDate) {
		return fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}
	return nil
}

func (s *service) CreateJob(ctx context.Context, j *models.Job) (*models.Job, error) {
	if err := validateJob(j); err != nil {
		return nil, err
	}
	active, err := s.settings.Active(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrNoActiveSettings
	}
	if err != nil {
		return nil, err
	}
	j.SettingsVersionID = active.ID
	if j.Status == "" {
		j.Status = models.JobStatusDraft
	}
	if j.Code = strings.TrimSpace(j.Code); j.Code == "" {
		codes, err := s.repo.ListCodes(ctx)
		if err != nil {
			return nil, err
		}
		j.Code = services.NextCode(services.JobCodePrefix, services.JobCodeWidth, codes)
	}
	j.IsFinalized = false
	if err := s.repo.Create(ctx, j); err != nil {
		return nil, err
	}
	return j, nil
}

// withJob runs fn in a transaction holding the job's row lock, after rejecting finalized jobs.
func (s *service) withJob(ctx context.Context, jobID int64, fn func(tx pgx.Tx, job *models.Job) error) error {
	tx, err := s.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	job, err := s.repo.GetForUpdateTx(ctx, tx, jobID)
	if err != nil {
		return err
	}
	if job.IsFinalized {
		return ErrJobFinalized
	}
	if err := fn(tx, job); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func (s *service) UpdateJob(ctx context.Context, j *models.Job) (*models.Job, error) {
	if err := validateJob(j); err != nil {
		return nil, err
	}
	err := s.withJob(ctx, j.ID, func(tx pgx.Tx, current *models.Job) error {
		j.SettingsVersionID = current.SettingsVersionID
		j.CreatedAt = current.CreatedAt
		if j.Code = strings.TrimSpace(j.Code); j.Code == "" {
			j.Code = current.Code
		}
		if j.Status == "" {
			j.Status = current.Status
		}
		return s.repo.UpdateTx(ctx, tx, j)
	})
	if err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, j.ID)
}

func (s *service) ArchiveJob(ctx context.Context, id int64) error {
	return s.repo.SetStatus(ctx, id, models.JobStatusArchived)
}

func (s *service) GetJobDetail(ctx context.Context, id int64) (*JobDetail, error) {
	job, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	rules, err := s.settings.GetRules(ctx, job.SettingsVersionID)
	if err != nil {
		return nil, err
	}
	receipts, err := s.repo.ListReceipts(ctx, id)
	if err != nil {
		return nil, err
	}
	allocations, err := s.repo.ListAllocations(ctx, id)
	if err != nil {
		return nil, err
	}
	var snap *models.Snapshot
	if job.IsFinalized {
		if snap, err = s.snapshots.FindByJob(ctx, id); err != nil {
			return nil, err
		}
	}
	payments, err := s.payments.List(ctx, models.PaymentFilter{JobID: &id})
	if err != nil {
		return nil, err
	}
	figures := services.ResolveJobFigures(job, receipts, allocations, rules, snap)
	return &JobDetail{
		Job:                job,
		Totals:             figures.Totals,
		Allocations:        figures.Results,
		Receipts:           receipts,
		Payments:           payments,
		Snapshot:           snap,
		Frozen:             figures.Frozen,
		ConnectsUsed:       job.ConnectsUsedOrZero(),
		ConnectCostPerUnit: rules.ConnectCostPerUnit,
	}, nil
}

func (s *service) ListJobs(ctx context.Context, includeArchived bool) ([]*models.Job, error) {
	return s.repo.List(ctx, includeArchived)
}

func validateReceipt(rc *models.Receipt, allocations []*models.JobAllocation) error {
	if !rc.AmountReceived.IsPositive() {
		return fmt.Errorf("%w: amount_received must be positive", ErrInvalidInput)
	}
	if rc.ReceivedDate.IsZero() {
		return fmt.Errorf("%w: received_date is required", ErrInvalidInput)
	}
	known := make(map[int64]bool, len(allocations))
	for _, a := range allocations {
		known[a.ID] = true
	}
	for _, id := range rc.SelectedAllocationIDs {
		if !known[id] {
			return fmt.Errorf("%w: allocation %d does not belong to job %d", ErrInvalidInput, id, rc.JobID)
		}
	}
	return nil
}

func (s *service) AddReceipt(ctx context.Context, jobID int64, rc *models.Receipt) (*models.Receipt, []*models.Payment, error) {
	var payments []*models.Payment
	err := s.withJob(ctx, jobID, func(tx pgx.Tx, job *models.Job) error {
		rc.JobID = jobID
		allocations, err := s.repo.ListAllocationsTx(ctx, tx, jobID)
		if err != nil {
			return err
		}
		if err := validateReceipt(rc, allocations); err != nil {
			return err
		}
		rules, err := s.settings.GetRulesTx(ctx, tx, job.SettingsVersionID)
		if err != nil {
			return err
		}
		if err := s.repo.CreateReceiptTx(ctx, tx, rc); err != nil {
			return err
		}
		payments, err = s.generator.GenerateFromReceipt(ctx, tx, rc, job, rules)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.log.Info("receipt added", "job_id", jobID, "receipt_id", rc.ID, "payments", len(payments))
	return rc, payments, nil
}

// UpdateReceipt leaves payments already generated for the receipt untouched.
func (s *service) UpdateReceipt(ctx context.Context, rc *models.Receipt) (*models.Receipt, error) {
	current, err := s.repo.GetReceipt(ctx, rc.ID)
	if err != nil {
		return nil, err
	}
	rc.JobID = current.JobID
	err = s.withJob(ctx, current.JobID, func(tx pgx.Tx, _ *models.Job) error {
		allocations, err := s.repo.ListAllocationsTx(ctx, tx, current.JobID)
		if err != nil {
			return err
		}
		if err := validateReceipt(rc, allocations); err != nil {
			return err
		}
		return s.repo.UpdateReceiptTx(ctx, tx, rc)
	})
	if err != nil {
		return nil, err
	}
	return rc, nil
}

func (s *service) DeleteReceipt(ctx context.Context, id int64) error {
	current, err := s.repo.GetReceipt(ctx, id)
	if err != nil {
		return err
	}
	return s.withJob(ctx, current.JobID, func(tx pgx.Tx, _ *models.Job) error {
		return s.repo.DeleteReceiptTx(ctx, tx, id)
	})
}

func validateAllocation(a *models.JobAllocation) error {
	if a.ShareValue.IsNegative() {
		return fmt.Errorf("%w: share_value must not be negative", ErrInvalidInput)
	}
	if _, err := models.ParseShareType(string(a.ShareType)); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

func (s *service) AddAllocation(ctx context.Context, jobID int64, a *models.JobAllocation) (*models.JobAllocation, error) {
	a.JobID = jobID
	if err := validateAllocation(a); err != nil {
		return nil, err
	}
	err := s.withJob(ctx, jobID, func(tx pgx.Tx, job *models.Job) error {
		existing, err := s.repo.ListAllocationsTx(ctx, tx, jobID)
		if err != nil {
			return err
		}
		rules, err := s.settings.GetRulesTx(ctx, tx, job.SettingsVersionID)
		if err != nil {
			return err
		}
		if err := services.CheckPercentSum(services.PercentCheckCreate, append(existing, a), rules); err != nil {
			return err
		}
		return s.repo.CreateAllocationTx(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) UpdateAllocation(ctx context.Context, a *models.JobAllocation) (*models.JobAllocation, error) {
	if err := validateAllocation(a); err != nil {
		return nil, err
	}
	current, err := s.repo.GetAllocation(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	a.JobID = current.JobID
	err = s.withJob(ctx, current.JobID, func(tx pgx.Tx, job *models.Job) error {
		existing, err := s.repo.ListAllocationsTx(ctx, tx, current.JobID)
		if err != nil {
			return err
		}
		rules, err := s.settings.GetRulesTx(ctx, tx, job.SettingsVersionID)
		if err != nil {
			return err
		}
		edited := make([]*models.JobAllocation, 0, len(existing))
		for _, e := range existing {
			if e.ID == a.ID {
				e = a
			}
			edited = append(edited, e)
		}
		if err := services.CheckPercentSum(services.PercentCheckEdit, edited, rules); err != nil {
			return err
		}
		return s.repo.UpdateAllocationTx(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

func (s *service) DeleteAllocation(ctx context.Context, id int64) error {
	current, err := s.repo.GetAllocation(ctx, id)
	if err != nil {
		return err
	}
	return s.withJob(ctx, current.JobID, func(tx pgx.Tx, _ *models.Job) error {
		return s.repo.DeleteAllocationTx(ctx, tx, id)
	})
}

func (s *service) Finalize(ctx context.Context, id int64) (*models.Snapshot, error) {
	return s.ledger.Finalize(ctx, id)
}

func (s *service) Unfinalize(ctx context.Context, id int64) error {
	return s.ledger.Unfinalize(ctx, id)
}
