package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Totals are a job's (or a single receipt's) money after deductions.
type Totals struct {
	TotalReceived    decimal.Decimal `json:"total_received"`
	ConnectDeduction decimal.Decimal `json:"connect_deduction"`
	PlatformFee      decimal.Decimal `json:"platform_fee"`
	NetDistributable decimal.Decimal `json:"net_distributable"`
}

// AllocationResult pairs an allocation with what it earned.
type AllocationResult struct {
	Allocation *JobAllocation  `json:"allocation"`
	Earned     decimal.Decimal `json:"earned"`
}

type SnapshotAllocation struct {
	AllocationID int64           `json:"allocation_id"`
	WorkerID     *int64          `json:"worker_id"`
	Label        string          `json:"label"`
	Earned       decimal.Decimal `json:"earned"`
}

// SnapshotDocument is the frozen calculation stored for a finalized job.
type SnapshotDocument struct {
	Totals      Totals               `json:"totals"`
	Allocations []SnapshotAllocation `json:"allocations"`
}

// EarnedFor returns the frozen earned amount for an allocation id.
func (d *SnapshotDocument) EarnedFor(allocationID int64) (decimal.Decimal, bool) {
	for _, a := range d.Allocations {
		if a.AllocationID == allocationID {
			return a.Earned, true
		}
	}
	return decimal.Zero, false
}

// Snapshot exists exactly while its job is finalized.
type Snapshot struct {
	ID                int64            `json:"id"`
	JobID             int64            `json:"job_id"`
	SettingsVersionID int64            `json:"settings_version_id"`
	Document          SnapshotDocument `json:"snapshot"`
	FinalizedAt       time.Time        `json:"finalized_at"`
}
