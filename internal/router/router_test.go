package router

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/handlers"
	"github.com/jobledger/backend/internal/middleware"
	"github.com/jobledger/backend/internal/models"
)

type stubPayments struct {
	filter models.PaymentFilter
}

func (s *stubPayments) Create(ctx context.Context, p *models.Payment) error { return nil }
func (s *stubPayments) GetByID(ctx context.Context, id int64) (*models.Payment, error) {
	return nil, nil
}
func (s *stubPayments) Update(ctx context.Context, p *models.Payment) error    { return nil }
func (s *stubPayments) SetPaid(ctx context.Context, id int64, paid bool) error { return nil }
func (s *stubPayments) Delete(ctx context.Context, id int64) error             { return nil }
func (s *stubPayments) ListCodes(ctx context.Context) ([]string, error)        { return nil, nil }
func (s *stubPayments) List(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error) {
	s.filter = f
	return []*models.Payment{{ID: 1, Code: "P0001", WorkerID: 3, AmountPaid: decimal.RequireFromString("12.50")}}, nil
}

func newTestRouter(payments *stubPayments) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(Handlers{
		Payments: &handlers.PaymentHandler{Payments: payments, Logger: log},
	}, log)
}

func TestRouter_PaymentsList(t *testing.T) {
	payments := &stubPayments{}
	rec := httptest.NewRecorder()
	newTestRouter(payments).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/payments?worker_id=3", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if payments.filter.WorkerID == nil || *payments.filter.WorkerID != 3 {
		t.Errorf("worker filter not passed through: %+v", payments.filter)
	}
	var got []map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0]["amount_paid"] != "12.5" {
		t.Errorf("body = %s", rec.Body.String())
	}
	if rec.Header().Get(middleware.RequestIDHeader) == "" {
		t.Error("missing request id header")
	}
}

func TestRouter_Unmatched(t *testing.T) {
	h := newTestRouter(&stubPayments{})
	tests := []struct {
		method, path string
		want         int
	}{
		{http.MethodGet, "/api/v1/nope", http.StatusNotFound},
		{http.MethodPatch, "/api/v1/payments", http.StatusMethodNotAllowed},
		{http.MethodGet, "/healthz", http.StatusOK},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(tt.method, tt.path, nil))
		if rec.Code != tt.want {
			t.Errorf("%s %s = %d, want %d", tt.method, tt.path, rec.Code, tt.want)
		}
	}
}
