package ledger

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/repository"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

// --- recordingTx satisfies pgx.Tx and records how the transaction ended. ---

type recordingTx struct {
	committed  bool
	rolledBack bool
}

func (t *recordingTx) Begin(context.Context) (pgx.Tx, error) { return t, nil }
func (t *recordingTx) Commit(context.Context) error {
	t.committed = true
	return nil
}
func (t *recordingTx) Rollback(context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}
func (t *recordingTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *recordingTx) Query(context.Context, string, ...any) (pgx.Rows, error) { return nil, nil }
func (t *recordingTx) QueryRow(context.Context, string, ...any) pgx.Row        { return nil }
func (t *recordingTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *recordingTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults { return nil }
func (t *recordingTx) LargeObjects() pgx.LargeObjects                         { return pgx.LargeObjects{} }
func (t *recordingTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *recordingTx) Conn() *pgx.Conn { return nil }

// memLedger implements SnapshotStore, JobReader and RulesReader.
type memLedger struct {
	jobs        map[int64]*models.Job
	receipts    []*models.Receipt
	allocations []*models.JobAllocation
	rules       models.Rules
	snapshots   map[int64]*models.Snapshot
	creates     int
	createErr   error
	txs         []*recordingTx
}

func newMemLedger() *memLedger {
	return &memLedger{jobs: map[int64]*models.Job{}, snapshots: map[int64]*models.Snapshot{}}
}

func (m *memLedger) Begin(context.Context) (pgx.Tx, error) {
	tx := &recordingTx{}
	m.txs = append(m.txs, tx)
	return tx, nil
}

func (m *memLedger) lastTx() *recordingTx { return m.txs[len(m.txs)-1] }

func (m *memLedger) GetForUpdateTx(_ context.Context, _ pgx.Tx, id int64) (*models.Job, error) {
	j, ok := m.jobs[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *j
	return &cp, nil
}

func (m *memLedger) ListReceiptsTx(_ context.Context, _ pgx.Tx, jobID int64) ([]*models.Receipt, error) {
	var out []*models.Receipt
	for _, r := range m.receipts {
		if r.JobID == jobID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memLedger) ListAllocationsTx(_ context.Context, _ pgx.Tx, jobID int64) ([]*models.JobAllocation, error) {
	var out []*models.JobAllocation
	for _, a := range m.allocations {
		if a.JobID == jobID {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *memLedger) GetRulesTx(context.Context, pgx.Tx, int64) (models.Rules, error) {
	return m.rules, nil
}

func (m *memLedger) FindByJobTx(_ context.Context, _ pgx.Tx, jobID int64) (*models.Snapshot, error) {
	return m.snapshots[jobID], nil
}

func (m *memLedger) CreateTx(_ context.Context, _ pgx.Tx, s *models.Snapshot) error {
	if m.createErr != nil {
		return m.createErr
	}
	if _, ok := m.snapshots[s.JobID]; ok {
		return repository.ErrDuplicateCode
	}
	m.creates++
	s.ID = int64(m.creates)
	m.snapshots[s.JobID] = s
	return nil
}

func (m *memLedger) DeleteByJobTx(_ context.Context, _ pgx.Tx, jobID int64) error {
	delete(m.snapshots, jobID)
	return nil
}

func (m *memLedger) SetFinalizedTx(_ context.Context, _ pgx.Tx, jobID int64, finalized bool) error {
	j, ok := m.jobs[jobID]
	if !ok {
		return repository.ErrNotFound
	}
	j.IsFinalized = finalized
	return nil
}

func newTestService(m *memLedger) Service {
	return NewService(m, m, m, slog.Default())
}

func fixture() *memLedger {
	m := newMemLedger()
	worker := int64(5)
	m.jobs[1] = &models.Job{ID: 1, SettingsVersionID: 3}
	m.receipts = []*models.Receipt{{ID: 1, JobID: 1, AmountReceived: decimal.RequireFromString("100.00")}}
	m.allocations = []*models.JobAllocation{{ID: 9, JobID: 1, WorkerID: &worker, Label: "Dev", ShareType: models.SharePercent, ShareValue: decimal.NewFromInt(1)}}
	return m
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

func TestFinalize_StoresSnapshotAndFlag(t *testing.T) {
	m := fixture()
	snap, err := newTestService(m).Finalize(context.Background(), 1)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !m.jobs[1].IsFinalized {
		t.Error("job should be finalized")
	}
	if !m.lastTx().committed {
		t.Error("transaction not committed")
	}
	if snap.SettingsVersionID != 3 || snap.JobID != 1 {
		t.Errorf("snapshot ids = %d/%d", snap.JobID, snap.SettingsVersionID)
	}
	if !snap.Document.Totals.NetDistributable.Equal(decimal.RequireFromString("100")) {
		t.Errorf("net = %s", snap.Document.Totals.NetDistributable)
	}
	earned, ok := snap.Document.EarnedFor(9)
	if !ok || !earned.Equal(decimal.RequireFromString("100")) {
		t.Errorf("earned for allocation 9 = %s (%v)", earned, ok)
	}
}

func TestFinalize_IsIdempotent(t *testing.T) {
	m := fixture()
	svc := newTestService(m)
	first, err := svc.Finalize(context.Background(), 1)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	m.receipts = append(m.receipts, &models.Receipt{ID: 2, JobID: 1, AmountReceived: decimal.RequireFromString("50.00")})
	second, err := svc.Finalize(context.Background(), 1)
	if err != nil {
		t.Fatalf("second Finalize: %v", err)
	}
	if m.creates != 1 {
		t.Fatalf("snapshots created = %d, want 1", m.creates)
	}
	if second != first {
		t.Error("second finalize should return the existing snapshot")
	}
}

func TestFinalize_CreateFailureRollsBack(t *testing.T) {
	m := fixture()
	boom := errors.New("insert failed")
	m.createErr = boom
	if _, err := newTestService(m).Finalize(context.Background(), 1); !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if m.jobs[1].IsFinalized {
		t.Error("job must stay live")
	}
	if !m.lastTx().rolledBack || m.lastTx().committed {
		t.Error("transaction should be rolled back")
	}
}

func TestFinalize_UnknownJob(t *testing.T) {
	_, err := newTestService(newMemLedger()).Finalize(context.Background(), 42)
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestUnfinalize_ClearsSnapshotAndFlag(t *testing.T) {
	m := fixture()
	svc := newTestService(m)
	if _, err := svc.Finalize(context.Background(), 1); err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if err := svc.Unfinalize(context.Background(), 1); err != nil {
		t.Fatalf("Unfinalize: %v", err)
	}
	if m.jobs[1].IsFinalized {
		t.Error("job should be live")
	}
	if _, ok := m.snapshots[1]; ok {
		t.Error("snapshot should be deleted")
	}

	// Finalizing again reflects receipts added while live.
	m.receipts = append(m.receipts, &models.Receipt{ID: 2, JobID: 1, AmountReceived: decimal.RequireFromString("50.00")})
	snap, err := svc.Finalize(context.Background(), 1)
	if err != nil {
		t.Fatalf("Finalize: %v", err)
	}
	if !snap.Document.Totals.TotalReceived.Equal(decimal.RequireFromString("150")) {
		t.Errorf("total_received = %s, want 150", snap.Document.Totals.TotalReceived)
	}
}

func TestUnfinalize_LiveJobSucceeds(t *testing.T) {
	m := fixture()
	if err := newTestService(m).Unfinalize(context.Background(), 1); err != nil {
		t.Fatalf("Unfinalize: %v", err)
	}
}
