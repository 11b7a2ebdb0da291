package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Worker struct {
	ID         int64     `json:"id"`
	Code       string    `json:"worker_code"`
	Name       string    `json:"name"`
	Contact    string    `json:"contact,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	IsOwner    bool      `json:"is_owner"`
	IsArchived bool      `json:"is_archived"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// WorkerTotals is a worker's running balance. Due is negative when the worker was overpaid.
type WorkerTotals struct {
	Earned decimal.Decimal `json:"earned"`
	Paid   decimal.Decimal `json:"paid"`
	Due    decimal.Decimal `json:"due"`
}
