package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Rules is the typed form of a settings version's rules document.
type Rules struct {
	CurrencyDefault                 string           `json:"currency_default,omitempty"`
	ConnectCostPerUnit              decimal.Decimal  `json:"connect_cost_per_unit"`
	PlatformFee                     PlatformFeeRules `json:"platform_fee"`
	Rounding                        RoundingRules    `json:"rounding"`
	RequirePercentAllocationsSumTo1 bool             `json:"require_percent_allocations_sum_to_1"`
}

type PlatformFeeRules struct {
	Enabled bool            `json:"enabled"`
	Mode    FeeMode         `json:"mode,omitempty"`
	Value   decimal.Decimal `json:"value"`
	ApplyOn FeeBase         `json:"apply_on,omitempty"`
}

// RoundingRules is informational; rounding is always two places, half away from zero.
type RoundingRules struct {
	Mode string `json:"mode,omitempty"`
}

// SettingsVersion is an immutable, named rules document. Jobs pin the version active when they were created.
type SettingsVersion struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Rules     Rules     `json:"rules"`
	Notes     string    `json:"notes,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}
