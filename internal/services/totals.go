package services

import (
	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/money"
)

// feePolicy is the platform fee configuration after job overrides are applied.
type feePolicy struct {
	enabled bool
	mode    models.FeeMode
	value   decimal.Decimal
	applyOn models.FeeBase
}

// resolveFee takes each job override that is set, otherwise the rules value.
func resolveFee(job *models.Job, rules models.Rules) feePolicy {
	p := feePolicy{
		enabled: rules.PlatformFee.Enabled,
		mode:    rules.PlatformFee.Mode,
		value:   rules.PlatformFee.Value,
		applyOn: rules.PlatformFee.ApplyOn,
	}
	if job.PlatformFeeEnabledOverride != nil {
		p.enabled = *job.PlatformFeeEnabledOverride
	}
	if job.PlatformFeeModeOverride != nil {
		p.mode = *job.PlatformFeeModeOverride
	}
	if job.PlatformFeeValueOverride != nil {
		p.value = *job.PlatformFeeValueOverride
	}
	if job.PlatformFeeApplyOnOverride != nil {
		p.applyOn = *job.PlatformFeeApplyOnOverride
	}
	if p.mode == "" {
		p.mode = models.FeePercent
	}
	if p.applyOn == "" {
		p.applyOn = models.FeeOnNet
	}
	return p
}

// fee returns the rounded platform fee for gross and an already rounded connect deduction.
func (p feePolicy) fee(gross, connectDeduction decimal.Decimal) decimal.Decimal {
	if !p.enabled {
		return decimal.Zero
	}
	if p.mode == models.FeeFixed {
		return money.Round(p.value)
	}
	base := gross
	if p.applyOn == models.FeeOnNet {
		base = gross.Sub(connectDeduction)
	}
	return money.Round(base.Mul(p.value))
}

// connectCost is the job's unrounded connect cost.
func connectCost(job *models.Job, rules models.Rules) decimal.Decimal {
	return decimal.NewFromInt(int64(job.ConnectsUsedOrZero())).Mul(rules.ConnectCostPerUnit)
}

// ComputeJobTotals derives a job's totals from all of its receipts. The connect
// deduction and platform fee are rounded before net is taken.
func ComputeJobTotals(job *models.Job, receipts []*models.Receipt, rules models.Rules) models.Totals {
	amounts := make([]decimal.Decimal, 0, len(receipts))
	for _, r := range receipts {
		amounts = append(amounts, r.AmountReceived)
	}
	received := money.Round(money.Sum(amounts...))
	deduction := money.Round(connectCost(job, rules))
	fee := resolveFee(job, rules).fee(received, deduction)
	return models.Totals{
		TotalReceived:    received,
		ConnectDeduction: deduction,
		PlatformFee:      fee,
		NetDistributable: money.Round(received.Sub(deduction).Sub(fee)),
	}
}

// ComputeReceiptTotals scopes the job's deductions to one receipt. The receipt
// carries connect cost in proportion to its amount over allReceipts, which must
// include the receipt itself. When the receipts sum to zero it carries the whole cost.
func ComputeReceiptTotals(job *models.Job, receipt *models.Receipt, allReceipts []*models.Receipt, rules models.Rules) models.Totals {
	amount := receipt.AmountReceived
	cost := connectCost(job, rules)

	sum := decimal.Zero
	for _, r := range allReceipts {
		sum = sum.Add(r.AmountReceived)
	}
	share := cost
	if !sum.IsZero() {
		share = cost.Mul(amount).Div(sum)
	}
	deduction := money.Round(share)
	fee := resolveFee(job, rules).fee(amount, deduction)
	return models.Totals{
		TotalReceived:    money.Round(amount),
		ConnectDeduction: deduction,
		PlatformFee:      fee,
		NetDistributable: money.Round(amount.Sub(deduction).Sub(fee)),
	}
}
