package services

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/money"
)

var (
	// ErrPercentSumExceeded is returned when a new percent allocation pushes the job above 100%.
	ErrPercentSumExceeded = errors.New("percent allocations exceed 100%")
	// ErrPercentSumMismatch is returned when edited percent allocations no longer total 100%.
	ErrPercentSumMismatch = errors.New("percent allocations must total 100%")
)

// PercentCheck selects how strictly CheckPercentSum treats the percent total.
type PercentCheck int

const (
	// PercentCheckCreate allows a total up to 1.01 so shares can be added one at a time.
	PercentCheckCreate PercentCheck = iota
	// PercentCheckEdit requires the total to be within 0.01 of 1.
	PercentCheckEdit
)

var (
	percentTolerance = decimal.RequireFromString("0.01")
	one              = decimal.NewFromInt(1)
)

// ComputeAllocations returns the earned amount for each allocation, in input order.
// Each amount is rounded on its own; the results are not forced to sum to net.
func ComputeAllocations(job *models.Job, allocations []*models.JobAllocation, totals models.Totals, rules models.Rules) []models.AllocationResult {
	out := make([]models.AllocationResult, 0, len(allocations))
	for _, a := range allocations {
		var earned decimal.Decimal
		switch a.ShareType {
		case models.SharePercent:
			earned = totals.NetDistributable.Mul(a.ShareValue)
		default:
			earned = a.ShareValue
		}
		out = append(out, models.AllocationResult{Allocation: a, Earned: money.Round(earned)})
	}
	return out
}

// CheckPercentSum validates the percent-type share total of allocations, which must
// be the job's full allocation set after the pending change. It is a no-op unless
// the rules require percent allocations to sum to one and at least one allocation is a percent.
func CheckPercentSum(mode PercentCheck, allocations []*models.JobAllocation, rules models.Rules) error {
	if !rules.RequirePercentAllocationsSumTo1 {
		return nil
	}
	total := decimal.Zero
	percents := 0
	for _, a := range allocations {
		if a.ShareType == models.SharePercent {
			total = total.Add(a.ShareValue)
			percents++
		}
	}
	if percents == 0 {
		return nil
	}
	switch mode {
	case PercentCheckEdit:
		if total.Sub(one).Abs().GreaterThan(percentTolerance) {
			return ErrPercentSumMismatch
		}
	default:
		if total.GreaterThan(one.Add(percentTolerance)) {
			return ErrPercentSumExceeded
		}
	}
	return nil
}
