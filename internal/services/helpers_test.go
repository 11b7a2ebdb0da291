package services

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/models"
)

// ---------------------------------------------------------------------------
// Shared fixtures
// ---------------------------------------------------------------------------

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func int64Ptr(n int64) *int64 { return &n }

func assertMoney(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(d(want)) {
		t.Errorf("%s = %s, want %s", what, got.StringFixed(2), want)
	}
}

// plainRules has no connect cost and no platform fee.
func plainRules() models.Rules {
	return models.Rules{
		ConnectCostPerUnit: decimal.Zero,
		PlatformFee: models.PlatformFeeRules{
			Mode:    models.FeePercent,
			Value:   d("0.10"),
			ApplyOn: models.FeeOnNet,
		},
		RequirePercentAllocationsSumTo1: true,
	}
}

func receipt(id, jobID int64, amount string) *models.Receipt {
	return &models.Receipt{ID: id, JobID: jobID, AmountReceived: d(amount), Source: models.ReceiptManual}
}

func percentAlloc(id, jobID int64, workerID *int64, share string) *models.JobAllocation {
	return &models.JobAllocation{ID: id, JobID: jobID, WorkerID: workerID, ShareType: models.SharePercent, ShareValue: d(share)}
}

func fixedAlloc(id, jobID int64, workerID *int64, share string) *models.JobAllocation {
	return &models.JobAllocation{ID: id, JobID: jobID, WorkerID: workerID, ShareType: models.ShareFixedAmount, ShareValue: d(share)}
}

// --- noopTx satisfies pgx.Tx for test use; the generator never touches it directly. ---

type noopTx struct{}

func (noopTx) Begin(context.Context) (pgx.Tx, error) { return noopTx{}, nil }
func (noopTx) Commit(context.Context) error          { return nil }
func (noopTx) Rollback(context.Context) error        { return nil }
func (noopTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (noopTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (noopTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (noopTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (noopTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (noopTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (noopTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (noopTx) Conn() *pgx.Conn { return nil }
