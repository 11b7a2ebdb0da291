package models

import "github.com/shopspring/decimal"

type DashboardTotals struct {
	TotalReceived    decimal.Decimal `json:"total_received"`
	TotalConnects    decimal.Decimal `json:"total_connects"`
	TotalPlatformFee decimal.Decimal `json:"total_platform_fee"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	TotalDue         decimal.Decimal `json:"total_due"`
}

// ProfitSummary is owner profitability over a date range.
type ProfitSummary struct {
	OwnerEarnings decimal.Decimal `json:"owner_earnings"`
	Expenses      decimal.Decimal `json:"expenses"`
	Profit        decimal.Decimal `json:"profit"`
	Margin        decimal.Decimal `json:"margin"`
}

// ChartData holds parallel series, one point per label (day or month).
type ChartData struct {
	Labels        []string          `json:"labels"`
	Expenses      []decimal.Decimal `json:"expenses"`
	Earnings      []decimal.Decimal `json:"earnings"`
	OwnerEarnings []decimal.Decimal `json:"owner_earnings"`
}
