package services

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/models"
)

// BuildSnapshot freezes totals and allocation results for a job being finalized.
func BuildSnapshot(job *models.Job, totals models.Totals, results []models.AllocationResult, versionID int64) *models.Snapshot {
	allocs := make([]models.SnapshotAllocation, 0, len(results))
	for _, r := range results {
		allocs = append(allocs, models.SnapshotAllocation{
			AllocationID: r.Allocation.ID,
			WorkerID:     r.Allocation.WorkerID,
			Label:        r.Allocation.Label,
			Earned:       r.Earned,
		})
	}
	return &models.Snapshot{
		JobID:             job.ID,
		SettingsVersionID: versionID,
		Document:          models.SnapshotDocument{Totals: totals, Allocations: allocs},
		FinalizedAt:       time.Now().UTC(),
	}
}

// AllocationResultsFromSnapshot pairs allocations with their frozen earned values.
// An allocation missing from the snapshot earns zero.
func AllocationResultsFromSnapshot(snap *models.Snapshot, allocations []*models.JobAllocation) []models.AllocationResult {
	out := make([]models.AllocationResult, 0, len(allocations))
	for _, a := range allocations {
		earned, ok := snap.Document.EarnedFor(a.ID)
		if !ok {
			earned = decimal.Zero
		}
		out = append(out, models.AllocationResult{Allocation: a, Earned: earned})
	}
	return out
}

// JobFigures is a job's totals and allocation results as every reader should see them.
type JobFigures struct {
	Totals  models.Totals
	Results []models.AllocationResult
	Frozen  bool
}

// ResolveJobFigures reads from snap when the job is finalized and recomputes otherwise.
func ResolveJobFigures(job *models.Job, receipts []*models.Receipt, allocations []*models.JobAllocation, rules models.Rules, snap *models.Snapshot) JobFigures {
	if job.IsFinalized && snap != nil {
		return JobFigures{
			Totals:  snap.Document.Totals,
			Results: AllocationResultsFromSnapshot(snap, allocations),
			Frozen:  true,
		}
	}
	totals := ComputeJobTotals(job, receipts, rules)
	return JobFigures{
		Totals:  totals,
		Results: ComputeAllocations(job, allocations, totals, rules),
	}
}
