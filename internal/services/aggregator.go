package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/money"
)

// ErrInvalidRange is returned for a period whose end is before its start.
var ErrInvalidRange = errors.New("date range ends before it starts")

// AggregateJobRepo reads jobs and the rows they own.
type AggregateJobRepo interface {
	GetByID(ctx context.Context, id int64) (*models.Job, error)
	List(ctx context.Context, includeArchived bool) ([]*models.Job, error)
	ListReceipts(ctx context.Context, jobID int64) ([]*models.Receipt, error)
	ListReceiptsBetween(ctx context.Context, from, to time.Time) ([]*models.Receipt, error)
	ListAllocations(ctx context.Context, jobID int64) ([]*models.JobAllocation, error)
	ListAllocationsByWorker(ctx context.Context, workerID int64) ([]*models.JobAllocation, error)
}

type AggregateWorkerRepo interface {
	List(ctx context.Context, includeArchived bool) ([]*models.Worker, error)
}

type AggregatePaymentRepo interface {
	SumPaid(ctx context.Context, workerID *int64) (decimal.Decimal, error)
}

type AggregateExpenseRepo interface {
	List(ctx context.Context, f models.ExpenseFilter) ([]*models.Expense, error)
}

type AggregateSettingsRepo interface {
	GetRules(ctx context.Context, versionID int64) (models.Rules, error)
}

// AggregateSnapshotRepo returns nil, nil when the job has no snapshot.
type AggregateSnapshotRepo interface {
	FindByJob(ctx context.Context, jobID int64) (*models.Snapshot, error)
}

// Aggregator rolls job figures up per worker, across the business, and per period.
// Every read of a finalized job goes through its snapshot.
type Aggregator struct {
	Jobs      AggregateJobRepo
	Workers   AggregateWorkerRepo
	Payments  AggregatePaymentRepo
	Expenses  AggregateExpenseRepo
	Settings  AggregateSettingsRepo
	Snapshots AggregateSnapshotRepo
}

// jobView caches one job's inputs for the duration of a single aggregation.
type jobView struct {
	job         *models.Job
	receipts    []*models.Receipt
	allocations []*models.JobAllocation
	rules       models.Rules
	snapshot    *models.Snapshot
}

// loader memoizes per-request reads so a job is loaded once per aggregation.
type loader struct {
	a     *Aggregator
	rules map[int64]models.Rules
	jobs  map[int64]*jobView
}

func (a *Aggregator) newLoader() *loader {
	return &loader{a: a, rules: map[int64]models.Rules{}, jobs: map[int64]*jobView{}}
}

func (l *loader) rulesFor(ctx context.Context, versionID int64) (models.Rules, error) {
	if r, ok := l.rules[versionID]; ok {
		return r, nil
	}
	r, err := l.a.Settings.GetRules(ctx, versionID)
	if err != nil {
		return models.Rules{}, fmt.Errorf("rules for settings version %d: %w", versionID, err)
	}
	l.rules[versionID] = r
	return r, nil
}

func (l *loader) view(ctx context.Context, job *models.Job) (*jobView, error) {
	if v, ok := l.jobs[job.ID]; ok {
		return v, nil
	}
	receipts, err := l.a.Jobs.ListReceipts(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	allocations, err := l.a.Jobs.ListAllocations(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	rules, err := l.rulesFor(ctx, job.SettingsVersionID)
	if err != nil {
		return nil, err
	}
	var snap *models.Snapshot
	if job.IsFinalized {
		if snap, err = l.a.Snapshots.FindByJob(ctx, job.ID); err != nil {
			return nil, err
		}
	}
	v := &jobView{job: job, receipts: receipts, allocations: allocations, rules: rules, snapshot: snap}
	l.jobs[job.ID] = v
	return v, nil
}

func (l *loader) viewByID(ctx context.Context, jobID int64) (*jobView, error) {
	if v, ok := l.jobs[jobID]; ok {
		return v, nil
	}
	job, err := l.a.Jobs.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	return l.view(ctx, job)
}

func (v *jobView) figures() JobFigures {
	return ResolveJobFigures(v.job, v.receipts, v.allocations, v.rules, v.snapshot)
}

// earnedFor returns what one allocation earned on its job.
func (v *jobView) earnedFor(allocationID int64) decimal.Decimal {
	for _, r := range v.figures().Results {
		if r.Allocation.ID == allocationID {
			return r.Earned
		}
	}
	return decimal.Zero
}

// WorkerTotals returns earned, paid and due for a worker. Only payments marked
// paid count; due may go negative.
func (a *Aggregator) WorkerTotals(ctx context.Context, workerID int64) (models.WorkerTotals, error) {
	return a.workerTotals(ctx, a.newLoader(), workerID)
}

func (a *Aggregator) workerTotals(ctx context.Context, l *loader, workerID int64) (models.WorkerTotals, error) {
	allocations, err := a.Jobs.ListAllocationsByWorker(ctx, workerID)
	if err != nil {
		return models.WorkerTotals{}, err
	}
	earned := decimal.Zero
	for _, alloc := range allocations {
		v, err := l.viewByID(ctx, alloc.JobID)
		if err != nil {
			return models.WorkerTotals{}, err
		}
		earned = earned.Add(v.earnedFor(alloc.ID))
	}
	paid, err := a.Payments.SumPaid(ctx, &workerID)
	if err != nil {
		return models.WorkerTotals{}, err
	}
	return models.WorkerTotals{
		Earned: money.Round(earned),
		Paid:   money.Round(paid),
		Due:    money.Round(earned.Sub(paid)),
	}, nil
}

// WorkerJob is one job a worker is allocated on, with what each of their allocations earned.
type WorkerJob struct {
	Job         *models.Job               `json:"job"`
	Allocations []models.AllocationResult `json:"allocations"`
	Frozen      bool                      `json:"frozen"`
}

// WorkerJobs groups a worker's allocations by job, skipping archived jobs.
func (a *Aggregator) WorkerJobs(ctx context.Context, workerID int64) ([]WorkerJob, error) {
	allocations, err := a.Jobs.ListAllocationsByWorker(ctx, workerID)
	if err != nil {
		return nil, err
	}
	l := a.newLoader()
	out := []WorkerJob{}
	index := map[int64]int{}
	for _, alloc := range allocations {
		v, err := l.viewByID(ctx, alloc.JobID)
		if err != nil {
			return nil, err
		}
		if v.job.IsArchived() {
			continue
		}
		i, ok := index[alloc.JobID]
		if !ok {
			i = len(out)
			index[alloc.JobID] = i
			out = append(out, WorkerJob{Job: v.job, Frozen: v.job.IsFinalized && v.snapshot != nil})
		}
		out[i].Allocations = append(out[i].Allocations, models.AllocationResult{Allocation: alloc, Earned: v.earnedFor(alloc.ID)})
	}
	return out, nil
}

// WorkerDue is a worker with an outstanding balance.
type WorkerDue struct {
	Worker *models.Worker  `json:"worker"`
	Due    decimal.Decimal `json:"due"`
}

// DashboardTotals sums job totals over non-archived jobs and due over non-archived workers.
func (a *Aggregator) DashboardTotals(ctx context.Context) (models.DashboardTotals, error) {
	totals, _, err := a.dashboard(ctx)
	return totals, err
}

// TopDue returns up to limit non-archived workers with positive due, largest first.
func (a *Aggregator) TopDue(ctx context.Context, limit int) ([]WorkerDue, error) {
	_, dues, err := a.dashboard(ctx)
	if err != nil {
		return nil, err
	}
	var out []WorkerDue
	for _, d := range dues {
		if d.Due.IsPositive() {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Due.GreaterThan(out[j].Due) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (a *Aggregator) dashboard(ctx context.Context) (models.DashboardTotals, []WorkerDue, error) {
	l := a.newLoader()
	jobs, err := a.Jobs.List(ctx, false)
	if err != nil {
		return models.DashboardTotals{}, nil, err
	}
	received, connects, fees := decimal.Zero, decimal.Zero, decimal.Zero
	for _, job := range jobs {
		v, err := l.view(ctx, job)
		if err != nil {
			return models.DashboardTotals{}, nil, err
		}
		t := v.figures().Totals
		received = received.Add(t.TotalReceived)
		connects = connects.Add(t.ConnectDeduction)
		fees = fees.Add(t.PlatformFee)
	}
	paid, err := a.Payments.SumPaid(ctx, nil)
	if err != nil {
		return models.DashboardTotals{}, nil, err
	}
	workers, err := a.Workers.List(ctx, false)
	if err != nil {
		return models.DashboardTotals{}, nil, err
	}
	due := decimal.Zero
	dues := make([]WorkerDue, 0, len(workers))
	for _, w := range workers {
		wt, err := a.workerTotals(ctx, l, w.ID)
		if err != nil {
			return models.DashboardTotals{}, nil, err
		}
		due = due.Add(wt.Due)
		dues = append(dues, WorkerDue{Worker: w, Due: wt.Due})
	}
	return models.DashboardTotals{
		TotalReceived:    money.Round(received),
		TotalConnects:    money.Round(connects),
		TotalPlatformFee: money.Round(fees),
		TotalPaid:        money.Round(paid),
		TotalDue:         money.Round(due),
	}, dues, nil
}

// ownerIDs returns the ids of non-archived owner workers.
func (a *Aggregator) ownerIDs(ctx context.Context) (map[int64]bool, error) {
	workers, err := a.Workers.List(ctx, false)
	if err != nil {
		return nil, err
	}
	ids := make(map[int64]bool)
	for _, w := range workers {
		if w.IsOwner {
			ids[w.ID] = true
		}
	}
	return ids, nil
}

func isOwnerAllocation(alloc *models.JobAllocation, owners map[int64]bool) bool {
	return alloc.WorkerID == nil || owners[*alloc.WorkerID]
}

// groupByJob keeps receipt order within each job and job order of first appearance.
func groupByJob(receipts []*models.Receipt) ([]int64, map[int64][]*models.Receipt) {
	var order []int64
	groups := make(map[int64][]*models.Receipt)
	for _, r := range receipts {
		if _, ok := groups[r.JobID]; !ok {
			order = append(order, r.JobID)
		}
		groups[r.JobID] = append(groups[r.JobID], r)
	}
	return order, groups
}

// ownerEarnings sums owner allocation earnings attributable to receipts. A
// non-finalized job is recomputed from those receipts alone. A finalized job uses
// its snapshot, scaled by the receipts' share of the snapshot total when prorate is set.
func (a *Aggregator) ownerEarnings(ctx context.Context, l *loader, owners map[int64]bool, receipts []*models.Receipt, prorate bool) (decimal.Decimal, error) {
	total := decimal.Zero
	order, groups := groupByJob(receipts)
	for _, jobID := range order {
		v, err := l.viewByID(ctx, jobID)
		if err != nil {
			return decimal.Zero, err
		}
		if v.job.IsArchived() {
			continue
		}
		var ownerAllocs []*models.JobAllocation
		for _, alloc := range v.allocations {
			if isOwnerAllocation(alloc, owners) {
				ownerAllocs = append(ownerAllocs, alloc)
			}
		}
		if len(ownerAllocs) == 0 {
			continue
		}

		if v.job.IsFinalized && v.snapshot != nil {
			ratio := one
			if prorate {
				snapTotal := v.snapshot.Document.Totals.TotalReceived
				bucket := decimal.Zero
				for _, r := range groups[jobID] {
					bucket = bucket.Add(r.AmountReceived)
				}
				if !snapTotal.IsPositive() || !bucket.IsPositive() {
					continue
				}
				ratio = bucket.Div(snapTotal)
			}
			for _, r := range AllocationResultsFromSnapshot(v.snapshot, ownerAllocs) {
				total = total.Add(money.Round(ratio.Mul(r.Earned)))
			}
			continue
		}

		totals := ComputeJobTotals(v.job, groups[jobID], v.rules)
		for _, r := range ComputeAllocations(v.job, ownerAllocs, totals, v.rules) {
			total = total.Add(r.Earned)
		}
	}
	return money.Round(total), nil
}

// OwnerEarningsForPeriod returns owner earnings for receipts dated within
// [from, to]. Finalized jobs contribute their whole snapshot earnings.
func (a *Aggregator) OwnerEarningsForPeriod(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	receipts, err := a.Jobs.ListReceiptsBetween(ctx, from, to)
	if err != nil {
		return decimal.Zero, err
	}
	owners, err := a.ownerIDs(ctx)
	if err != nil {
		return decimal.Zero, err
	}
	return a.ownerEarnings(ctx, a.newLoader(), owners, receipts, false)
}

// ExpenseTotals sums expenses dated within the inclusive range. Nil bounds are open.
func (a *Aggregator) ExpenseTotals(ctx context.Context, from, to *time.Time) (decimal.Decimal, error) {
	expenses, err := a.Expenses.List(ctx, models.ExpenseFilter{From: from, To: to})
	if err != nil {
		return decimal.Zero, err
	}
	return sumExpenses(expenses), nil
}

// ExpensesForMonth sums expenses for one calendar month.
func (a *Aggregator) ExpensesForMonth(ctx context.Context, year int, month time.Month) (decimal.Decimal, error) {
	first, last := monthBounds(year, month)
	return a.ExpenseTotals(ctx, &first, &last)
}

// Profit returns owner earnings, expenses, profit and margin for [from, to].
func (a *Aggregator) Profit(ctx context.Context, from, to time.Time) (models.ProfitSummary, error) {
	if to.Before(from) {
		return models.ProfitSummary{}, ErrInvalidRange
	}
	owner, err := a.OwnerEarningsForPeriod(ctx, from, to)
	if err != nil {
		return models.ProfitSummary{}, err
	}
	expenses, err := a.ExpenseTotals(ctx, &from, &to)
	if err != nil {
		return models.ProfitSummary{}, err
	}
	profit := CalculateProfit(owner, expenses)
	return models.ProfitSummary{
		OwnerEarnings: owner,
		Expenses:      expenses,
		Profit:        profit,
		Margin:        CalculateMargin(profit, owner),
	}, nil
}

// chartDailyLimit is the longest range, in days, charted per day rather than per month.
const chartDailyLimit = 30

type chartBucket struct {
	label    string
	from, to time.Time
}

func chartBuckets(from, to time.Time) []chartBucket {
	from, to = truncateDay(from), truncateDay(to)
	var out []chartBucket
	days := int(to.Sub(from).Hours()/24) + 1
	if days <= chartDailyLimit {
		for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
			out = append(out, chartBucket{label: d.Format("01/02"), from: d, to: d})
		}
		return out
	}
	end := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)
	for m := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC); !m.After(end); m = m.AddDate(0, 1, 0) {
		first, last := monthBounds(m.Year(), m.Month())
		if first.Before(from) {
			first = from
		}
		if last.After(to) {
			last = to
		}
		out = append(out, chartBucket{label: m.Format("Jan 2006"), from: first, to: last})
	}
	return out
}

// ExpenseChart buckets expenses, gross receipts and owner earnings per day for
// ranges up to 30 days, per month otherwise. Finalized jobs' owner earnings are
// prorated by the bucket's share of the snapshot's total received.
func (a *Aggregator) ExpenseChart(ctx context.Context, from, to time.Time) (*models.ChartData, error) {
	if to.Before(from) {
		return nil, ErrInvalidRange
	}
	owners, err := a.ownerIDs(ctx)
	if err != nil {
		return nil, err
	}
	l := a.newLoader()
	data := &models.ChartData{}
	for _, b := range chartBuckets(from, to) {
		bfrom, bto := b.from, b.to
		expenses, err := a.Expenses.List(ctx, models.ExpenseFilter{From: &bfrom, To: &bto})
		if err != nil {
			return nil, err
		}
		receipts, err := a.Jobs.ListReceiptsBetween(ctx, bfrom, bto)
		if err != nil {
			return nil, err
		}
		gross := decimal.Zero
		for _, r := range receipts {
			gross = gross.Add(r.AmountReceived)
		}
		owner, err := a.ownerEarnings(ctx, l, owners, receipts, true)
		if err != nil {
			return nil, err
		}
		data.Labels = append(data.Labels, b.label)
		data.Expenses = append(data.Expenses, sumExpenses(expenses))
		data.Earnings = append(data.Earnings, money.Round(gross))
		data.OwnerEarnings = append(data.OwnerEarnings, owner)
	}
	return data, nil
}

// CalculateProfit is owner earnings less expenses.
func CalculateProfit(ownerEarnings, expenses decimal.Decimal) decimal.Decimal {
	return money.Round(ownerEarnings.Sub(expenses))
}

// CalculateMargin is profit as a percentage of owner earnings, or zero when there are none.
func CalculateMargin(profit, ownerEarnings decimal.Decimal) decimal.Decimal {
	if !ownerEarnings.IsPositive() {
		return money.Round(decimal.Zero)
	}
	return money.Round(profit.Div(ownerEarnings).Mul(decimal.NewFromInt(100)))
}

func sumExpenses(expenses []*models.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return money.Round(total)
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func monthBounds(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}
