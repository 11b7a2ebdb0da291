package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/repository"
)

// Repository persists jobs and the receipts and allocations they own.
type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

const jobColumns = `id, job_code, title, client_name, job_post_url, source, description, cover_letter,
	company_name, company_website, company_email, company_phone, company_address, client_notes,
	upwork_job_id, upwork_contract_id, upwork_offer_id, job_type, status, start_date, end_date,
	settings_version_id, connects_used, platform_fee_override_enabled, platform_fee_override_mode,
	platform_fee_override_value, platform_fee_override_apply_on, is_finalized, created_at, updated_at`

func scanJob(row interface{ Scan(...any) error }) (*models.Job, error) {
	var j models.Job
	var source, feeMode, feeBase *string
	var jobType, status string
	err := row.Scan(&j.ID, &j.Code, &j.Title, &j.ClientName, &j.JobPostURL, &source, &j.Description, &j.CoverLetter,
		&j.CompanyName, &j.CompanyWebsite, &j.CompanyEmail, &j.CompanyPhone, &j.CompanyAddress, &j.ClientNotes,
		&j.UpworkJobID, &j.UpworkContractID, &j.UpworkOfferID, &jobType, &status, &j.StartDate, &j.EndDate,
		&j.SettingsVersionID, &j.ConnectsUsed, &j.PlatformFeeEnabledOverride, &feeMode,
		&j.PlatformFeeValueOverride, &feeBase, &j.IsFinalized, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, repository.MapError(err)
	}
	if j.Type, err = models.ParseJobType(jobType); err != nil {
		return nil, fmt.Errorf("job %d: %w", j.ID, err)
	}
	if j.Status, err = models.ParseJobStatus(status); err != nil {
		return nil, fmt.Errorf("job %d: %w", j.ID, err)
	}
	if source != nil {
		s, err := models.ParseJobSource(*source)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", j.ID, err)
		}
		j.Source = &s
	}
	if feeMode != nil {
		m, err := models.ParseFeeMode(*feeMode)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", j.ID, err)
		}
		j.PlatformFeeModeOverride = &m
	}
	if feeBase != nil {
		b, err := models.ParseFeeBase(*feeBase)
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", j.ID, err)
		}
		j.PlatformFeeApplyOnOverride = &b
	}
	return &j, nil
}

// jobArgs returns the writable columns in jobColumns order, from job_code through platform_fee_override_apply_on.
func jobArgs(j *models.Job) []any {
	var source, feeMode, feeBase *string
	if j.Source != nil {
		s := string(*j.Source)
		source = &s
	}
	if j.PlatformFeeModeOverride != nil {
		s := string(*j.PlatformFeeModeOverride)
		feeMode = &s
	}
	if j.PlatformFeeApplyOnOverride != nil {
		s := string(*j.PlatformFeeApplyOnOverride)
		feeBase = &s
	}
	return []any{j.Code, j.Title, j.ClientName, j.JobPostURL, source, j.Description, j.CoverLetter,
		j.CompanyName, j.CompanyWebsite, j.CompanyEmail, j.CompanyPhone, j.CompanyAddress, j.ClientNotes,
		j.UpworkJobID, j.UpworkContractID, j.UpworkOfferID, string(j.Type), string(j.Status), j.StartDate, j.EndDate,
		j.SettingsVersionID, j.ConnectsUsed, j.PlatformFeeEnabledOverride, feeMode,
		j.PlatformFeeValueOverride, feeBase}
}

func (r *Repository) Create(ctx context.Context, j *models.Job) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO jobs (job_code, title, client_name, job_post_url, source, description, cover_letter,
			company_name, company_website, company_email, company_phone, company_address, client_notes,
			upwork_job_id, upwork_contract_id, upwork_offer_id, job_type, status, start_date, end_date,
			settings_version_id, connects_used, platform_fee_override_enabled, platform_fee_override_mode,
			platform_fee_override_value, platform_fee_override_apply_on)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20,
			$21, $22, $23, $24, $25, $26)
		RETURNING id, is_finalized, created_at, updated_at
	`, jobArgs(j)...).Scan(&j.ID, &j.IsFinalized, &j.CreatedAt, &j.UpdatedAt)
	return repository.MapError(err)
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*models.Job, error) {
	return scanJob(r.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
}

// GetForUpdateTx locks the job row for the rest of tx.
func (r *Repository) GetForUpdateTx(ctx context.Context, tx pgx.Tx, id int64) (*models.Job, error) {
	return scanJob(tx.QueryRow(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1 FOR UPDATE`, id))
}

// UpdateTx rewrites every column except is_finalized.
func (r *Repository) UpdateTx(ctx context.Context, tx pgx.Tx, j *models.Job) error {
	args := append([]any{j.ID}, jobArgs(j)...)
	tag, err := tx.Exec(ctx, `
		UPDATE jobs SET job_code = $2, title = $3, client_name = $4, job_post_url = $5, source = $6,
			description = $7, cover_letter = $8, company_name = $9, company_website = $10, company_email = $11,
			company_phone = $12, company_address = $13, client_notes = $14, upwork_job_id = $15,
			upwork_contract_id = $16, upwork_offer_id = $17, job_type = $18, status = $19, start_date = $20,
			end_date = $21, settings_version_id = $22, connects_used = $23, platform_fee_override_enabled = $24,
			platform_fee_override_mode = $25, platform_fee_override_value = $26,
			platform_fee_override_apply_on = $27, updated_at = now()
		WHERE id = $1
	`, args...)
	if err != nil {
		return repository.MapError(err)
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *Repository) SetStatus(ctx context.Context, id int64, status models.JobStatus) error {
	tag, err := r.pool.Exec(ctx, `UPDATE jobs SET status = $2, updated_at = now() WHERE id = $1`, id, string(status))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// List returns jobs newest first.
func (r *Repository) List(ctx context.Context, includeArchived bool) ([]*models.Job, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT `+jobColumns+` FROM jobs
		WHERE $1 OR status <> 'archived'
		ORDER BY created_at DESC, id DESC
	`, includeArchived)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, j)
	}
	return list, rows.Err()
}

func (r *Repository) ListCodes(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT job_code FROM jobs`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

// --- Receipts ---

const receiptColumns = `id, job_id, received_date, amount_received, source, upwork_transaction_id, notes, selected_allocation_ids`

func scanReceipt(row interface{ Scan(...any) error }) (*models.Receipt, error) {
	var rc models.Receipt
	var source string
	err := row.Scan(&rc.ID, &rc.JobID, &rc.ReceivedDate, &rc.AmountReceived, &source, &rc.UpworkTransactionID, &rc.Notes, &rc.SelectedAllocationIDs)
	if err != nil {
		return nil, repository.MapError(err)
	}
	if rc.Source, err = models.ParseReceiptSource(source); err != nil {
		return nil, fmt.Errorf("receipt %d: %w", rc.ID, err)
	}
	return &rc, nil
}

func collectReceipts(rows pgx.Rows, err error) ([]*models.Receipt, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.Receipt{}
	for rows.Next() {
		rc, err := scanReceipt(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, rc)
	}
	return list, rows.Err()
}

// selectedIDs stores an empty selection as NULL.
func selectedIDs(rc *models.Receipt) []int64 {
	if len(rc.SelectedAllocationIDs) == 0 {
		return nil
	}
	return rc.SelectedAllocationIDs
}

func (r *Repository) CreateReceiptTx(ctx context.Context, tx pgx.Tx, rc *models.Receipt) error {
	return tx.QueryRow(ctx, `
		INSERT INTO receipts (job_id, received_date, amount_received, source, upwork_transaction_id, notes, selected_allocation_ids)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, rc.JobID, rc.ReceivedDate, rc.AmountReceived, string(rc.Source), rc.UpworkTransactionID, rc.Notes, selectedIDs(rc)).Scan(&rc.ID)
}

func (r *Repository) GetReceipt(ctx context.Context, id int64) (*models.Receipt, error) {
	return scanReceipt(r.pool.QueryRow(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE id = $1`, id))
}

func (r *Repository) UpdateReceiptTx(ctx context.Context, tx pgx.Tx, rc *models.Receipt) error {
	_, err := tx.Exec(ctx, `
		UPDATE receipts SET received_date = $2, amount_received = $3, source = $4, upwork_transaction_id = $5,
			notes = $6, selected_allocation_ids = $7
		WHERE id = $1
	`, rc.ID, rc.ReceivedDate, rc.AmountReceived, string(rc.Source), rc.UpworkTransactionID, rc.Notes, selectedIDs(rc))
	return err
}

func (r *Repository) DeleteReceiptTx(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM receipts WHERE id = $1`, id)
	return err
}

// ListReceipts returns a job's receipts oldest first.
func (r *Repository) ListReceipts(ctx context.Context, jobID int64) ([]*models.Receipt, error) {
	return collectReceipts(r.pool.Query(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE job_id = $1 ORDER BY received_date, id`, jobID))
}

func (r *Repository) ListReceiptsTx(ctx context.Context, tx pgx.Tx, jobID int64) ([]*models.Receipt, error) {
	return collectReceipts(tx.Query(ctx, `SELECT `+receiptColumns+` FROM receipts WHERE job_id = $1 ORDER BY received_date, id`, jobID))
}

// ListReceiptsBetween returns receipts of every job dated within [from, to].
func (r *Repository) ListReceiptsBetween(ctx context.Context, from, to time.Time) ([]*models.Receipt, error) {
	return collectReceipts(r.pool.Query(ctx, `
		SELECT `+receiptColumns+` FROM receipts
		WHERE received_date >= $1 AND received_date <= $2
		ORDER BY received_date, id
	`, from, to))
}

// --- Allocations ---

const allocationColumns = `id, job_id, worker_id, label, role, share_type, share_value, notes`

func scanAllocation(row interface{ Scan(...any) error }) (*models.JobAllocation, error) {
	var a models.JobAllocation
	var shareType string
	err := row.Scan(&a.ID, &a.JobID, &a.WorkerID, &a.Label, &a.Role, &shareType, &a.ShareValue, &a.Notes)
	if err != nil {
		return nil, repository.MapError(err)
	}
	if a.ShareType, err = models.ParseShareType(shareType); err != nil {
		return nil, fmt.Errorf("allocation %d: %w", a.ID, err)
	}
	return &a, nil
}

func collectAllocations(rows pgx.Rows, err error) ([]*models.JobAllocation, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	list := []*models.JobAllocation{}
	for rows.Next() {
		a, err := scanAllocation(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, a)
	}
	return list, rows.Err()
}

func (r *Repository) CreateAllocationTx(ctx context.Context, tx pgx.Tx, a *models.JobAllocation) error {
	return tx.QueryRow(ctx, `
		INSERT INTO job_allocations (job_id, worker_id, label, role, share_type, share_value, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, a.JobID, a.WorkerID, a.Label, a.Role, string(a.ShareType), a.ShareValue, a.Notes).Scan(&a.ID)
}

func (r *Repository) GetAllocation(ctx context.Context, id int64) (*models.JobAllocation, error) {
	return scanAllocation(r.pool.QueryRow(ctx, `SELECT `+allocationColumns+` FROM job_allocations WHERE id = $1`, id))
}

func (r *Repository) UpdateAllocationTx(ctx context.Context, tx pgx.Tx, a *models.JobAllocation) error {
	_, err := tx.Exec(ctx, `
		UPDATE job_allocations SET worker_id = $2, label = $3, role = $4, share_type = $5, share_value = $6, notes = $7
		WHERE id = $1
	`, a.ID, a.WorkerID, a.Label, a.Role, string(a.ShareType), a.ShareValue, a.Notes)
	return err
}

func (r *Repository) DeleteAllocationTx(ctx context.Context, tx pgx.Tx, id int64) error {
	_, err := tx.Exec(ctx, `DELETE FROM job_allocations WHERE id = $1`, id)
	return err
}

func (r *Repository) ListAllocations(ctx context.Context, jobID int64) ([]*models.JobAllocation, error) {
	return collectAllocations(r.pool.Query(ctx, `SELECT `+allocationColumns+` FROM job_allocations WHERE job_id = $1 ORDER BY id`, jobID))
}

func (r *Repository) ListAllocationsTx(ctx context.Context, tx pgx.Tx, jobID int64) ([]*models.JobAllocation, error) {
	return collectAllocations(tx.Query(ctx, `SELECT `+allocationColumns+` FROM job_allocations WHERE job_id = $1 ORDER BY id`, jobID))
}

func (r *Repository) ListAllocationsByWorker(ctx context.Context, workerID int64) ([]*models.JobAllocation, error) {
	return collectAllocations(r.pool.Query(ctx, `SELECT `+allocationColumns+` FROM job_allocations WHERE worker_id = $1 ORDER BY job_id, id`, workerID))
}
