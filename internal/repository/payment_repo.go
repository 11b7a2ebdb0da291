package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/models"
)

type PaymentRepo struct {
	pool *pgxpool.Pool
}

func NewPaymentRepo(pool *pgxpool.Pool) *PaymentRepo {
	return &PaymentRepo{pool: pool}
}

const paymentColumns = `id, payment_code, worker_id, job_id, receipt_id, amount_paid, paid_date, method, reference, notes, is_auto_generated, is_paid`

func scanPayment(row interface{ Scan(...any) error }) (*models.Payment, error) {
	var p models.Payment
	err := row.Scan(&p.ID, &p.Code, &p.WorkerID, &p.JobID, &p.ReceiptID, &p.AmountPaid, &p.PaidDate,
		&p.Method, &p.Reference, &p.Notes, &p.IsAutoGenerated, &p.IsPaid)
	if err != nil {
		return nil, MapError(err)
	}
	return &p, nil
}

func insertPayment(ctx context.Context, q Querier, p *models.Payment) error {
	err := q.QueryRow(ctx, `
		INSERT INTO payments (payment_code, worker_id, job_id, receipt_id, amount_paid, paid_date, method, reference, notes, is_auto_generated, is_paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id
	`, p.Code, p.WorkerID, p.JobID, p.ReceiptID, p.AmountPaid, p.PaidDate, p.Method, p.Reference, p.Notes, p.IsAutoGenerated, p.IsPaid).Scan(&p.ID)
	return MapError(err)
}

func (r *PaymentRepo) Create(ctx context.Context, p *models.Payment) error {
	return insertPayment(ctx, r.pool, p)
}

// CreateTx inserts a payment inside the given transaction.
func (r *PaymentRepo) CreateTx(ctx context.Context, tx pgx.Tx, p *models.Payment) error {
	return insertPayment(ctx, tx, p)
}

func (r *PaymentRepo) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	return scanPayment(r.pool.QueryRow(ctx, `SELECT `+paymentColumns+` FROM payments WHERE id = $1`, id))
}

func (r *PaymentRepo) Update(ctx context.Context, p *models.Payment) error {
	return affectedOne(r.pool.Exec(ctx, `
		UPDATE payments SET payment_code = $2, worker_id = $3, job_id = $4, amount_paid = $5, paid_date = $6,
			method = $7, reference = $8, notes = $9, is_paid = $10
		WHERE id = $1
	`, p.ID, p.Code, p.WorkerID, p.JobID, p.AmountPaid, p.PaidDate, p.Method, p.Reference, p.Notes, p.IsPaid))
}

func (r *PaymentRepo) SetPaid(ctx context.Context, id int64, paid bool) error {
	return affectedOne(r.pool.Exec(ctx, `UPDATE payments SET is_paid = $2 WHERE id = $1`, id, paid))
}

func (r *PaymentRepo) Delete(ctx context.Context, id int64) error {
	return affectedOne(r.pool.Exec(ctx, "DELETE FROM payments WHERE id = $1", id))
}

// List returns payments matching f, newest first.
func (r *PaymentRepo) List(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.WorkerID != nil {
		add("worker_id = $%d", *f.WorkerID)
	}
	if f.JobID != nil {
		add("job_id = $%d", *f.JobID)
	}
	if f.From != nil {
		add("paid_date >= $%d", *f.From)
	}
	if f.To != nil {
		add("paid_date <= $%d", *f.To)
	}
	query := `SELECT ` + paymentColumns + ` FROM payments`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY paid_date DESC, id DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// SumPaid totals payments marked paid, for one worker or for everyone when workerID is nil.
func (r *PaymentRepo) SumPaid(ctx context.Context, workerID *int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(amount_paid), 0) FROM payments
		WHERE is_paid AND ($1::BIGINT IS NULL OR worker_id = $1)
	`, workerID).Scan(&total)
	return total, err
}

func (r *PaymentRepo) ListCodes(ctx context.Context) ([]string, error) {
	return listCodes(ctx, r.pool, `SELECT payment_code FROM payments`)
}

// ListCodesTx sees payments inserted earlier in the same transaction.
func (r *PaymentRepo) ListCodesTx(ctx context.Context, tx pgx.Tx) ([]string, error) {
	return listCodes(ctx, tx, `SELECT payment_code FROM payments`)
}
