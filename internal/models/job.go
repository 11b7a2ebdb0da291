package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Job is a piece of client work whose receipts are split between allocations.
// Override fields are nil when the job defers to its pinned settings rules.
type Job struct {
	ID                int64      `json:"id"`
	Code              string     `json:"job_code"`
	Title             string     `json:"title"`
	ClientName        string     `json:"client_name,omitempty"`
	JobPostURL        string     `json:"job_post_url"`
	Source            *JobSource `json:"source,omitempty"`
	Description       string     `json:"description,omitempty"`
	CoverLetter       string     `json:"cover_letter,omitempty"`
	CompanyName       string     `json:"company_name,omitempty"`
	CompanyWebsite    string     `json:"company_website,omitempty"`
	CompanyEmail      string     `json:"company_email,omitempty"`
	CompanyPhone      string     `json:"company_phone,omitempty"`
	CompanyAddress    string     `json:"company_address,omitempty"`
	ClientNotes       string     `json:"client_notes,omitempty"`
	UpworkJobID       string     `json:"upwork_job_id,omitempty"`
	UpworkContractID  string     `json:"upwork_contract_id,omitempty"`
	UpworkOfferID     string     `json:"upwork_offer_id,omitempty"`
	Type              JobType    `json:"job_type"`
	Status            JobStatus  `json:"status"`
	StartDate         *time.Time `json:"start_date,omitempty"`
	EndDate           *time.Time `json:"end_date,omitempty"`
	SettingsVersionID int64      `json:"settings_version_id"`

	ConnectsUsed               *int             `json:"connects_used,omitempty"`
	PlatformFeeEnabledOverride *bool            `json:"platform_fee_override_enabled,omitempty"`
	PlatformFeeModeOverride    *FeeMode         `json:"platform_fee_override_mode,omitempty"`
	PlatformFeeValueOverride   *decimal.Decimal `json:"platform_fee_override_value,omitempty"`
	PlatformFeeApplyOnOverride *FeeBase         `json:"platform_fee_override_apply_on,omitempty"`

	IsFinalized bool      `json:"is_finalized"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// ConnectsUsedOrZero returns connects_used, treating an unset value as zero.
func (j *Job) ConnectsUsedOrZero() int {
	if j.ConnectsUsed == nil {
		return 0
	}
	return *j.ConnectsUsed
}

// IsArchived reports whether the job is excluded from rollups.
func (j *Job) IsArchived() bool {
	return j.Status == JobStatusArchived
}

// Receipt is money received from the client for a job.
// SelectedAllocationIDs narrows the audience of auto-generated payments; empty means all allocations.
type Receipt struct {
	ID                    int64           `json:"id"`
	JobID                 int64           `json:"job_id"`
	ReceivedDate          time.Time       `json:"received_date"`
	AmountReceived        decimal.Decimal `json:"amount_received"`
	Source                ReceiptSource   `json:"source"`
	UpworkTransactionID   string          `json:"upwork_transaction_id,omitempty"`
	Notes                 string          `json:"notes,omitempty"`
	SelectedAllocationIDs []int64         `json:"selected_allocation_ids,omitempty"`
}

// JobAllocation assigns a share of a job's net proceeds. A nil WorkerID is the owner's (unassigned) share.
type JobAllocation struct {
	ID         int64           `json:"id"`
	JobID      int64           `json:"job_id"`
	WorkerID   *int64          `json:"worker_id,omitempty"`
	Label      string          `json:"label"`
	Role       string          `json:"role,omitempty"`
	ShareType  ShareType       `json:"share_type"`
	ShareValue decimal.Decimal `json:"share_value"`
	Notes      string          `json:"notes,omitempty"`
}
