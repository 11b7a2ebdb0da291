package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobledger/backend/internal/models"
)

type WorkerRepo struct {
	pool *pgxpool.Pool
}

func NewWorkerRepo(pool *pgxpool.Pool) *WorkerRepo {
	return &WorkerRepo{pool: pool}
}

const workerColumns = `id, worker_code, name, contact, notes, is_owner, is_archived, created_at, updated_at`

func scanWorker(row interface{ Scan(...any) error }) (*models.Worker, error) {
	var w models.Worker
	if err := row.Scan(&w.ID, &w.Code, &w.Name, &w.Contact, &w.Notes, &w.IsOwner, &w.IsArchived, &w.CreatedAt, &w.UpdatedAt); err != nil {
		return nil, MapError(err)
	}
	return &w, nil
}

func (r *WorkerRepo) Create(ctx context.Context, w *models.Worker) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO workers (worker_code, name, contact, notes, is_owner)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, is_archived, created_at, updated_at
	`, w.Code, w.Name, w.Contact, w.Notes, w.IsOwner).Scan(&w.ID, &w.IsArchived, &w.CreatedAt, &w.UpdatedAt)
	return MapError(err)
}

func (r *WorkerRepo) GetByID(ctx context.Context, id int64) (*models.Worker, error) {
	return scanWorker(r.pool.QueryRow(ctx, `SELECT `+workerColumns+` FROM workers WHERE id = $1`, id))
}

func (r *WorkerRepo) Update(ctx context.Context, w *models.Worker) error {
	return affectedOne(r.pool.Exec(ctx, `
		UPDATE workers SET worker_code = $2, name = $3, contact = $4, notes = $5, is_owner = $6, updated_at = now()
		WHERE id = $1
	`, w.ID, w.Code, w.Name, w.Contact, w.Notes, w.IsOwner))
}

// Archive soft-deletes a worker; allocations and payments keep referencing it.
func (r *WorkerRepo) Archive(ctx context.Context, id int64) error {
	return affectedOne(r.pool.Exec(ctx, `UPDATE workers SET is_archived = TRUE, updated_at = now() WHERE id = $1`, id))
}

func (r *WorkerRepo) List(ctx context.Context, includeArchived bool) ([]*models.Worker, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+workerColumns+` FROM workers
		WHERE $1 OR NOT is_archived
		ORDER BY name
	`, includeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Worker{}
	for rows.Next() {
		w, err := scanWorker(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, w)
	}
	return list, rows.Err()
}

func (r *WorkerRepo) ListCodes(ctx context.Context) ([]string, error) {
	return listCodes(ctx, r.pool, `SELECT worker_code FROM workers`)
}
