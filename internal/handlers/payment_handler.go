package handlers

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/services"
)

// PaymentStore is the subset of the payment repository needed by the handler.
type PaymentStore interface {
	Create(ctx context.Context, p *models.Payment) error
	GetByID(ctx context.Context, id int64) (*models.Payment, error)
	Update(ctx context.Context, p *models.Payment) error
	SetPaid(ctx context.Context, id int64, paid bool) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f models.PaymentFilter) ([]*models.Payment, error)
	ListCodes(ctx context.Context) ([]string, error)
}

// PaymentHandler serves /api/v1/payments.
type PaymentHandler struct {
	Payments PaymentStore
	Logger   *slog.Logger
}

type paymentRequest struct {
	Code       string          `json:"payment_code"`
	WorkerID   int64           `json:"worker_id"`
	JobID      *int64          `json:"job_id"`
	AmountPaid decimal.Decimal `json:"amount_paid"`
	PaidDate   string          `json:"paid_date"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference"`
	Notes      string          `json:"notes"`
	IsPaid     *bool           `json:"is_paid"`
}

// toModel validates the request. Manual payments are paid unless is_paid says otherwise.
func (req *paymentRequest) toModel() (*models.Payment, error) {
	if req.WorkerID <= 0 {
		return nil, fmt.Errorf("%w: worker_id is required", ErrBadRequest)
	}
	if !req.AmountPaid.IsPositive() {
		return nil, fmt.Errorf("%w: amount_paid must be positive", ErrBadRequest)
	}
	date, err := ParseDate(req.PaidDate)
	if err != nil {
		return nil, err
	}
	if date == nil {
		return nil, fmt.Errorf("%w: paid_date is required", ErrBadRequest)
	}
	p := &models.Payment{
		Code:       strings.TrimSpace(req.Code),
		WorkerID:   req.WorkerID,
		JobID:      req.JobID,
		AmountPaid: req.AmountPaid,
		PaidDate:   *date,
		Method:     req.Method,
		Reference:  req.Reference,
		Notes:      req.Notes,
		IsPaid:     true,
	}
	if req.IsPaid != nil {
		p.IsPaid = *req.IsPaid
	}
	return p, nil
}

func (h *PaymentHandler) log() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// List handles GET /api/v1/payments?worker_id=&job_id=&from=&to=.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	var f models.PaymentFilter
	var err error
	q := r.URL.Query()
	if f.WorkerID, err = QueryID(r, "worker_id"); err != nil {
		Fail(w, h.log(), err)
		return
	}
	if f.JobID, err = QueryID(r, "job_id"); err != nil {
		Fail(w, h.log(), err)
		return
	}
	if f.From, err = ParseDate(q.Get("from")); err != nil {
		Fail(w, h.log(), err)
		return
	}
	if f.To, err = ParseDate(q.Get("to")); err != nil {
		Fail(w, h.log(), err)
		return
	}
	list, err := h.Payments.List(r.Context(), f)
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *PaymentHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := Decode(r, &req); err != nil {
		Fail(w, h.log(), err)
		return
	}
	p, err := req.toModel()
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	if p.Code == "" {
		codes, err := h.Payments.ListCodes(r.Context())
		if err != nil {
			Fail(w, h.log(), err)
			return
		}
		p.Code = services.NextCode(services.PaymentCodePrefix, services.PaymentCodeWidth, codes)
	}
	if err := h.Payments.Create(r.Context(), p); err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusCreated, p)
}

// Update handles PUT /api/v1/payments/{id}. Provenance fields are kept from the stored payment.
func (h *PaymentHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req paymentRequest
	if err := Decode(r, &req); err != nil {
		Fail(w, h.log(), err)
		return
	}
	p, err := req.toModel()
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	current, err := h.Payments.GetByID(r.Context(), id)
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	p.ID = id
	p.ReceiptID = current.ReceiptID
	p.IsAutoGenerated = current.IsAutoGenerated
	if p.Code == "" {
		p.Code = current.Code
	}
	if req.IsPaid == nil {
		p.IsPaid = current.IsPaid
	}
	if err := h.Payments.Update(r.Context(), p); err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}

func (h *PaymentHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Payments.Delete(r.Context(), id); err != nil {
		Fail(w, h.log(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PaymentHandler) MarkPaid(w http.ResponseWriter, r *http.Request) {
	h.setPaid(w, r, true)
}

func (h *PaymentHandler) MarkUnpaid(w http.ResponseWriter, r *http.Request) {
	h.setPaid(w, r, false)
}

func (h *PaymentHandler) setPaid(w http.ResponseWriter, r *http.Request, paid bool) {
	id, ok := PathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Payments.SetPaid(r.Context(), id, paid); err != nil {
		Fail(w, h.log(), err)
		return
	}
	p, err := h.Payments.GetByID(r.Context(), id)
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusOK, p)
}
