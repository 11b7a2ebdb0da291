package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/money"
)

// ErrPaymentGeneration wraps any failure while generating payments for a receipt.
// The caller must roll back the transaction that created the receipt.
var ErrPaymentGeneration = errors.New("payment generation failed")

// GeneratorJobRepo reads the job-owned rows the generator needs, inside the caller's transaction.
type GeneratorJobRepo interface {
	ListReceiptsTx(ctx context.Context, tx pgx.Tx, jobID int64) ([]*models.Receipt, error)
	ListAllocationsTx(ctx context.Context, tx pgx.Tx, jobID int64) ([]*models.JobAllocation, error)
}

// GeneratorPaymentRepo is the minimal payment repository interface for the generator.
type GeneratorPaymentRepo interface {
	ListCodesTx(ctx context.Context, tx pgx.Tx) ([]string, error)
	CreateTx(ctx context.Context, tx pgx.Tx, p *models.Payment) error
}

// PaymentGenerator turns a new receipt into unpaid payments for the job's workers.
type PaymentGenerator struct {
	JobRepo     GeneratorJobRepo
	PaymentRepo GeneratorPaymentRepo
	Logger      *slog.Logger
}

func NewPaymentGenerator(jobRepo GeneratorJobRepo, paymentRepo GeneratorPaymentRepo, logger *slog.Logger) *PaymentGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentGenerator{JobRepo: jobRepo, PaymentRepo: paymentRepo, Logger: logger}
}

// workerShare is one payment the generator intends to create.
type workerShare struct {
	workerID int64
	amount   decimal.Decimal
}

// GenerateFromReceipt must run in the transaction that inserted receipt. The
// receipt's net, after its proportional share of connect cost and its own
// platform fee, is split across the targeted worker allocations by share value.
func (g *PaymentGenerator) GenerateFromReceipt(ctx context.Context, tx pgx.Tx, receipt *models.Receipt, job *models.Job, rules models.Rules) ([]*models.Payment, error) {
	receipts, err := g.JobRepo.ListReceiptsTx(ctx, tx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list receipts: %v", ErrPaymentGeneration, err)
	}
	if !containsReceipt(receipts, receipt.ID) {
		receipts = append(receipts, receipt)
	}
	allocations, err := g.JobRepo.ListAllocationsTx(ctx, tx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: list allocations: %v", ErrPaymentGeneration, err)
	}

	totals := ComputeReceiptTotals(job, receipt, receipts, rules)
	shares := splitReceiptNet(totals.NetDistributable, targetAllocations(allocations, receipt.SelectedAllocationIDs))
	if len(shares) == 0 {
		return nil, nil
	}

	codes, err := g.PaymentRepo.ListCodesTx(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("%w: list payment codes: %v", ErrPaymentGeneration, err)
	}
	alloc := NewCodeAllocator(PaymentCodePrefix, PaymentCodeWidth, codes)

	jobID, receiptID := job.ID, receipt.ID
	payments := make([]*models.Payment, 0, len(shares))
	for _, s := range shares {
		p := &models.Payment{
			Code:            alloc.Next(),
			WorkerID:        s.workerID,
			JobID:           &jobID,
			ReceiptID:       &receiptID,
			AmountPaid:      s.amount,
			PaidDate:        receiptDate(receipt),
			Method:          models.MethodAutoGenerated,
			Notes:           fmt.Sprintf("Auto-generated from receipt #%d", receipt.ID),
			IsAutoGenerated: true,
			IsPaid:          false,
		}
		if err := g.PaymentRepo.CreateTx(ctx, tx, p); err != nil {
			return nil, fmt.Errorf("%w: create payment %s: %v", ErrPaymentGeneration, p.Code, err)
		}
		payments = append(payments, p)
	}
	g.Logger.Info("payments generated", "job_id", job.ID, "receipt_id", receipt.ID, "count", len(payments))
	return payments, nil
}

// targetAllocations narrows allocations to the selected ids, or keeps all when none are selected.
func targetAllocations(allocations []*models.JobAllocation, selected []int64) []*models.JobAllocation {
	if len(selected) == 0 {
		return allocations
	}
	want := make(map[int64]struct{}, len(selected))
	for _, id := range selected {
		want[id] = struct{}{}
	}
	var out []*models.JobAllocation
	for _, a := range allocations {
		if _, ok := want[a.ID]; ok {
			out = append(out, a)
		}
	}
	return out
}

// splitReceiptNet weights net by share value across allocations that name a worker.
// Percent and fixed shares are both plain weights here. Non-positive results are dropped.
func splitReceiptNet(net decimal.Decimal, allocations []*models.JobAllocation) []workerShare {
	var withWorker []*models.JobAllocation
	weight := decimal.Zero
	for _, a := range allocations {
		if a.WorkerID == nil {
			continue
		}
		withWorker = append(withWorker, a)
		weight = weight.Add(a.ShareValue)
	}
	if len(withWorker) == 0 || !weight.IsPositive() {
		return nil
	}
	var out []workerShare
	for _, a := range withWorker {
		amount := money.Round(net.Mul(a.ShareValue).Div(weight))
		if !amount.IsPositive() {
			continue
		}
		out = append(out, workerShare{workerID: *a.WorkerID, amount: amount})
	}
	return out
}

func containsReceipt(receipts []*models.Receipt, id int64) bool {
	for _, r := range receipts {
		if r.ID == id {
			return true
		}
	}
	return false
}

func receiptDate(r *models.Receipt) time.Time {
	if r.ReceivedDate.IsZero() {
		return time.Now().UTC()
	}
	return r.ReceivedDate
}
