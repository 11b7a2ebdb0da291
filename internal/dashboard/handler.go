package dashboard

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/handlers"
	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/services"
)

// topDueLimit is how many workers with money owed the dashboard lists.
const topDueLimit = 10

// Aggregates is satisfied by *services.Aggregator.
type Aggregates interface {
	DashboardTotals(ctx context.Context) (models.DashboardTotals, error)
	TopDue(ctx context.Context, limit int) ([]services.WorkerDue, error)
	ExpensesForMonth(ctx context.Context, year int, month time.Month) (decimal.Decimal, error)
	Profit(ctx context.Context, from, to time.Time) (models.ProfitSummary, error)
	ExpenseChart(ctx context.Context, from, to time.Time) (*models.ChartData, error)
}

type Handler struct {
	agg Aggregates
	now func() time.Time
	log *slog.Logger
}

func NewHandler(agg Aggregates, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{agg: agg, now: time.Now, log: log}
}

type overview struct {
	Totals            models.DashboardTotals `json:"totals"`
	TopDue            []services.WorkerDue   `json:"top_due"`
	ExpensesThisMonth decimal.Decimal        `json:"expenses_this_month"`
}

type periodResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	models.ProfitSummary
}

type chartResponse struct {
	From string `json:"from"`
	To   string `json:"to"`
	*models.ChartData
}

func (h *Handler) today() time.Time {
	now := h.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// period reads ?from=&to=, defaulting the start to defaultFrom and the end to today.
func (h *Handler) period(r *http.Request, defaultFrom time.Time) (time.Time, time.Time, error) {
	q := r.URL.Query()
	from, err := handlers.ParseDate(q.Get("from"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := handlers.ParseDate(q.Get("to"))
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if from == nil {
		from = &defaultFrom
	}
	if to == nil {
		today := h.today()
		to = &today
	}
	return *from, *to, nil
}

// Overview handles GET /api/v1/dashboard.
func (h *Handler) Overview(w http.ResponseWriter, r *http.Request) {
	totals, err := h.agg.DashboardTotals(r.Context())
	if err != nil {
		handlers.Fail(w, h.log, err)
		return
	}
	top, err := h.agg.TopDue(r.Context(), topDueLimit)
	if err != nil {
		handlers.Fail(w, h.log, err)
		return
	}
	today := h.today()
	expenses, err := h.agg.ExpensesForMonth(r.Context(), today.Year(), today.Month())
	if err != nil {
		handlers.Fail(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, overview{Totals: totals, TopDue: top, ExpensesThisMonth: expenses})
}

// Profit handles GET /api/v1/dashboard/profit. The default period is the current month to date.
func (h *Handler) Profit(w http.ResponseWriter, r *http.Request) {
	today := h.today()
	from, to, err := h.period(r, time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC))
	if err != nil {
		handlers.Fail(w, h.log, err)
		return
	}
	summary, err := h.agg.Profit(r.Context(), from, to)
	if err != nil {
		handlers.Fail(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, periodResponse{
		From:          from.Format(handlers.DateLayout),
		To:            to.Format(handlers.DateLayout),
		ProfitSummary: summary,
	})
}

// Chart handles GET /api/v1/dashboard/chart. The default range is the last 30 days.
func (h *Handler) Chart(w http.ResponseWriter, r *http.Request) {
	from, to, err := h.period(r, h.today().AddDate(0, 0, -29))
	if err != nil {
		handlers.Fail(w, h.log, err)
		return
	}
	data, err := h.agg.ExpenseChart(r.Context(), from, to)
	if err != nil {
		handlers.Fail(w, h.log, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, chartResponse{
		From:      from.Format(handlers.DateLayout),
		To:        to.Format(handlers.DateLayout),
		ChartData: data,
	})
}
