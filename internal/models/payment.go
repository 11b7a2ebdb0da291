package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// MethodAutoGenerated marks payments created from receipts.
const MethodAutoGenerated = "Auto-generated"

// Payment is an amount owed to (IsPaid=false) or paid out to (IsPaid=true) a worker.
// Deleting the job leaves its payments in place.
type Payment struct {
	ID              int64           `json:"id"`
	Code            string          `json:"payment_code"`
	WorkerID        int64           `json:"worker_id"`
	JobID           *int64          `json:"job_id,omitempty"`
	ReceiptID       *int64          `json:"receipt_id,omitempty"`
	AmountPaid      decimal.Decimal `json:"amount_paid"`
	PaidDate        time.Time       `json:"paid_date"`
	Method          string          `json:"method,omitempty"`
	Reference       string          `json:"reference,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	IsAutoGenerated bool            `json:"is_auto_generated"`
	IsPaid          bool            `json:"is_paid"`
}

// PaymentFilter narrows payment listings. Zero values mean "no filter".
type PaymentFilter struct {
	WorkerID *int64
	JobID    *int64
	From     *time.Time
	To       *time.Time
}

type Expense struct {
	ID          int64           `json:"id"`
	Code        string          `json:"expense_code"`
	ExpenseDate time.Time       `json:"expense_date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    ExpenseCategory `json:"category"`
	Description string          `json:"description"`
	Vendor      string          `json:"vendor,omitempty"`
	Reference   string          `json:"reference,omitempty"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// ExpenseFilter narrows expense listings; both dates are inclusive.
type ExpenseFilter struct {
	From     *time.Time
	To       *time.Time
	Category *ExpenseCategory
}
