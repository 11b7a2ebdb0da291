package workers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/services"
)

var ErrInvalidInput = errors.New("invalid input")

// Repo is satisfied by *repository.WorkerRepo.
type Repo interface {
	Create(ctx context.Context, w *models.Worker) error
	GetByID(ctx context.Context, id int64) (*models.Worker, error)
	Update(ctx context.Context, w *models.Worker) error
	Archive(ctx context.Context, id int64) error
	List(ctx context.Context, includeArchived bool) ([]*models.Worker, error)
	ListCodes(ctx context.Context) ([]string, error)
}

// Totals is satisfied by *services.Aggregator.
type Totals interface {
	WorkerTotals(ctx context.Context, workerID int64) (models.WorkerTotals, error)
	WorkerJobs(ctx context.Context, workerID int64) ([]services.WorkerJob, error)
}

type PaymentLister interface {
	List(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error)
}

// Detail is a worker with their balance, the live jobs they are allocated on, and their payments newest first.
type Detail struct {
	Worker   *models.Worker       `json:"worker"`
	Totals   models.WorkerTotals  `json:"totals"`
	Jobs     []services.WorkerJob `json:"jobs"`
	Payments []*models.Payment    `json:"payments"`
}

type Service interface {
	Create(ctx context.Context, w *models.Worker) (*models.Worker, error)
	Update(ctx context.Context, w *models.Worker) (*models.Worker, error)
	Archive(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.Worker, error)
	List(ctx context.Context, includeArchived bool) ([]*models.Worker, error)
	Detail(ctx context.Context, id int64) (*Detail, error)
}

type service struct {
	repo     Repo
	totals   Totals
	payments PaymentLister
}

func NewService(repo Repo, totals Totals, payments PaymentLister) Service {
	return &service{repo: repo, totals: totals, payments: payments}
}

var _ Service = (*service)(nil)

func normalize(w *models.Worker) error {
	w.Name = strings.TrimSpace(w.Name)
	w.Code = strings.TrimSpace(w.Code)
	if w.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	return nil
}

func (s *service) Create(ctx context.Context, w *models.Worker) (*models.Worker, error) {
	if err := normalize(w); err != nil {
		return nil, err
	}
	if w.Code == "" {
		codes, err := s.repo.ListCodes(ctx)
		if err != nil {
			return nil, err
		}
		w.Code = services.NextCode(services.WorkerCodePrefix, services.WorkerCodeWidth, codes)
	}
	if err := s.repo.Create(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

// Update keeps the current code when none is given.
func (s *service) Update(ctx context.Context, w *models.Worker) (*models.Worker, error) {
	if err := normalize(w); err != nil {
		return nil, err
	}
	current, err := s.repo.GetByID(ctx, w.ID)
	if err != nil {
		return nil, err
	}
	if w.Code == "" {
		w.Code = current.Code
	}
	if err := s.repo.Update(ctx, w); err != nil {
		return nil, err
	}
	return s.repo.GetByID(ctx, w.ID)
}

func (s *service) Archive(ctx context.Context, id int64) error {
	return s.repo.Archive(ctx, id)
}

func (s *service) Get(ctx context.Context, id int64) (*models.Worker, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *service) List(ctx context.Context, includeArchived bool) ([]*models.Worker, error) {
	return s.repo.List(ctx, includeArchived)
}

func (s *service) Detail(ctx context.Context, id int64) (*Detail, error) {
	w, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	totals, err := s.totals.WorkerTotals(ctx, id)
	if err != nil {
		return nil, err
	}
	jobs, err := s.totals.WorkerJobs(ctx, id)
	if err != nil {
		return nil, err
	}
	payments, err := s.payments.List(ctx, models.PaymentFilter{WorkerID: &id})
	if err != nil {
		return nil, err
	}
	return &Detail{Worker: w, Totals: totals, Jobs: jobs, Payments: payments}, nil
}
