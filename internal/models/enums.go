package models

import "fmt"

// ShareType says how a JobAllocation's share_value is read.
type ShareType string

const (
	// SharePercent values are fractions: 0.30 means 30% of net distributable.
	SharePercent ShareType = "percent"
	// ShareFixedAmount values are money.
	ShareFixedAmount ShareType = "fixed_amount"
)

func ParseShareType(s string) (ShareType, error) {
	switch ShareType(s) {
	case SharePercent, ShareFixedAmount:
		return ShareType(s), nil
	}
	return "", fmt.Errorf("unknown share type %q", s)
}

type ReceiptSource string

const (
	ReceiptMilestone ReceiptSource = "milestone"
	ReceiptWeekly    ReceiptSource = "weekly"
	ReceiptBonus     ReceiptSource = "bonus"
	ReceiptManual    ReceiptSource = "manual"
)

func ParseReceiptSource(s string) (ReceiptSource, error) {
	switch ReceiptSource(s) {
	case ReceiptMilestone, ReceiptWeekly, ReceiptBonus, ReceiptManual:
		return ReceiptSource(s), nil
	}
	return "", fmt.Errorf("unknown receipt source %q", s)
}

type JobType string

const (
	JobTypeFixed  JobType = "fixed"
	JobTypeHourly JobType = "hourly"
)

func ParseJobType(s string) (JobType, error) {
	switch JobType(s) {
	case JobTypeFixed, JobTypeHourly:
		return JobType(s), nil
	}
	return "", fmt.Errorf("unknown job type %q", s)
}

type JobStatus string

const (
	JobStatusDraft     JobStatus = "draft"
	JobStatusActive    JobStatus = "active"
	JobStatusCompleted JobStatus = "completed"
	JobStatusArchived  JobStatus = "archived"
)

func ParseJobStatus(s string) (JobStatus, error) {
	switch JobStatus(s) {
	case JobStatusDraft, JobStatusActive, JobStatusCompleted, JobStatusArchived:
		return JobStatus(s), nil
	}
	return "", fmt.Errorf("unknown job status %q", s)
}

// JobSource is the marketplace or channel a job came from.
type JobSource string

const (
	JobSourceUpwork     JobSource = "upwork"
	JobSourceFreelancer JobSource = "freelancer"
	JobSourceLinkedIn   JobSource = "linkedin"
	JobSourceFiverr     JobSource = "fiverr"
	JobSourceDirect     JobSource = "direct"
	JobSourceOther      JobSource = "other"
)

func ParseJobSource(s string) (JobSource, error) {
	switch JobSource(s) {
	case JobSourceUpwork, JobSourceFreelancer, JobSourceLinkedIn, JobSourceFiverr, JobSourceDirect, JobSourceOther:
		return JobSource(s), nil
	}
	return "", fmt.Errorf("unknown job source %q", s)
}

// FeeMode selects how the platform fee value is applied.
type FeeMode string

const (
	FeePercent FeeMode = "percent"
	FeeFixed   FeeMode = "fixed"
)

func ParseFeeMode(s string) (FeeMode, error) {
	switch FeeMode(s) {
	case FeePercent, FeeFixed:
		return FeeMode(s), nil
	}
	return "", fmt.Errorf("unknown platform fee mode %q", s)
}

// FeeBase selects the amount a percent platform fee is taken from.
type FeeBase string

const (
	FeeOnGross FeeBase = "gross"
	FeeOnNet   FeeBase = "net"
)

func ParseFeeBase(s string) (FeeBase, error) {
	switch FeeBase(s) {
	case FeeOnGross, FeeOnNet:
		return FeeBase(s), nil
	}
	return "", fmt.Errorf("unknown platform fee base %q", s)
}

type ExpenseCategory string

const (
	ExpenseSoftware      ExpenseCategory = "software"
	ExpenseHardware      ExpenseCategory = "hardware"
	ExpenseConnects      ExpenseCategory = "connects"
	ExpenseMarketing     ExpenseCategory = "marketing"
	ExpenseOffice        ExpenseCategory = "office"
	ExpenseTravel        ExpenseCategory = "travel"
	ExpenseSubscriptions ExpenseCategory = "subscriptions"
	ExpenseOther         ExpenseCategory = "other"
)

func ParseExpenseCategory(s string) (ExpenseCategory, error) {
	switch ExpenseCategory(s) {
	case ExpenseSoftware, ExpenseHardware, ExpenseConnects, ExpenseMarketing,
		ExpenseOffice, ExpenseTravel, ExpenseSubscriptions, ExpenseOther:
		return ExpenseCategory(s), nil
	}
	return "", fmt.Errorf("unknown expense category %q", s)
}
