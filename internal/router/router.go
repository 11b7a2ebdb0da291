package router

import (
	"log/slog"
	"net/http"

	"github.com/jobledger/backend/internal/dashboard"
	"github.com/jobledger/backend/internal/handlers"
	"github.com/jobledger/backend/internal/jobs"
	"github.com/jobledger/backend/internal/middleware"
	"github.com/jobledger/backend/internal/workers"
)

// Handlers groups everything mounted under /api/v1.
type Handlers struct {
	Jobs      *jobs.Handler
	Workers   *workers.Handler
	Payments  *handlers.PaymentHandler
	Expenses  *handlers.ExpenseHandler
	Settings  *handlers.SettingsHandler
	Dashboard *dashboard.Handler
}

// New returns an http.Handler that serves the API under /api/v1, with request ids and access logging.
func New(h Handlers, log *slog.Logger) http.Handler {
	mux := http.NewServeMux()
	const base = "/api/v1"

	mux.HandleFunc("GET "+base+"/jobs", h.Jobs.ListJobs)
	mux.HandleFunc("POST "+base+"/jobs", h.Jobs.CreateJob)
	mux.HandleFunc("GET "+base+"/jobs/{id}", h.Jobs.GetJob)
	mux.HandleFunc("PUT "+base+"/jobs/{id}", h.Jobs.UpdateJob)
	mux.HandleFunc("POST "+base+"/jobs/{id}/archive", h.Jobs.ArchiveJob)
	mux.HandleFunc("POST "+base+"/jobs/{id}/finalize", h.Jobs.Finalize)
	mux.HandleFunc("POST "+base+"/jobs/{id}/unfinalize", h.Jobs.Unfinalize)
	mux.HandleFunc("POST "+base+"/jobs/{id}/receipts", h.Jobs.AddReceipt)
	mux.HandleFunc("PUT "+base+"/receipts/{id}", h.Jobs.UpdateReceipt)
	mux.HandleFunc("DELETE "+base+"/receipts/{id}", h.Jobs.DeleteReceipt)
	mux.HandleFunc("POST "+base+"/jobs/{id}/allocations", h.Jobs.AddAllocation)
	mux.HandleFunc("PUT "+base+"/allocations/{id}", h.Jobs.UpdateAllocation)
	mux.HandleFunc("DELETE "+base+"/allocations/{id}", h.Jobs.DeleteAllocation)

	mux.HandleFunc("GET "+base+"/workers", h.Workers.List)
	mux.HandleFunc("POST "+base+"/workers", h.Workers.Create)
	mux.HandleFunc("GET "+base+"/workers/{id}", h.Workers.Get)
	mux.HandleFunc("PUT "+base+"/workers/{id}", h.Workers.Update)
	mux.HandleFunc("POST "+base+"/workers/{id}/archive", h.Workers.Archive)

	mux.HandleFunc("GET "+base+"/payments", h.Payments.List)
	mux.HandleFunc("POST "+base+"/payments", h.Payments.Create)
	mux.HandleFunc("PUT "+base+"/payments/{id}", h.Payments.Update)
	mux.HandleFunc("DELETE "+base+"/payments/{id}", h.Payments.Delete)
	mux.HandleFunc("POST "+base+"/payments/{id}/mark-paid", h.Payments.MarkPaid)
	mux.HandleFunc("POST "+base+"/payments/{id}/mark-unpaid", h.Payments.MarkUnpaid)

	mux.HandleFunc("GET "+base+"/expenses", h.Expenses.List)
	mux.HandleFunc("POST "+base+"/expenses", h.Expenses.Create)
	mux.HandleFunc("GET "+base+"/expenses/{id}", h.Expenses.Get)
	mux.HandleFunc("PUT "+base+"/expenses/{id}", h.Expenses.Update)
	mux.HandleFunc("DELETE "+base+"/expenses/{id}", h.Expenses.Delete)

	mux.HandleFunc("GET "+base+"/settings", h.Settings.List)
	mux.HandleFunc("POST "+base+"/settings", h.Settings.Create)
	mux.HandleFunc("GET "+base+"/settings/{id}", h.Settings.Get)
	mux.HandleFunc("POST "+base+"/settings/{id}/activate", h.Settings.Activate)
	mux.HandleFunc("POST "+base+"/settings/{id}/clone", h.Settings.Clone)

	mux.HandleFunc("GET "+base+"/dashboard", h.Dashboard.Overview)
	mux.HandleFunc("GET "+base+"/dashboard/profit", h.Dashboard.Profit)
	mux.HandleFunc("GET "+base+"/dashboard/chart", h.Dashboard.Chart)

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return middleware.RequestID(middleware.AccessLog(log)(mux))
}
