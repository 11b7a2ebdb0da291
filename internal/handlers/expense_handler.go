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

type ExpenseStore interface {
	Create(ctx context.Context, e *models.Expense) error
	GetByID(ctx context.Context, id int64) (*models.Expense, error)
	Update(ctx context.Context, e *models.Expense) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f models.ExpenseFilter) ([]*models.Expense, error)
	ListCodes(ctx context.Context) ([]string, error)
}

// ExpenseHandler serves /api/v1/expenses.
type ExpenseHandler struct {
	Expenses ExpenseStore
	Logger   *slog.Logger
}

type expenseRequest struct {
	Code        string          `json:"expense_code"`
	ExpenseDate string          `json:"expense_date"`
	Amount      decimal.Decimal `json:"amount"`
	Category    string          `json:"category"`
	Description string          `json:"description"`
	Vendor      string          `json:"vendor"`
	Reference   string          `json:"reference"`
	Notes       string          `json:"notes"`
}

func (req *expenseRequest) toModel() (*models.Expense, error) {
	if !req.Amount.IsPositive() {
		return nil, fmt.Errorf("%w: amount must be positive", ErrBadRequest)
	}
	date, err := ParseDate(req.ExpenseDate)
	if err != nil {
		return nil, err
	}
	if date == nil {
		return nil, fmt.Errorf("%w: expense_date is required", ErrBadRequest)
	}
	category := models.ExpenseOther
	if req.Category != "" {
		if category, err = models.ParseExpenseCategory(req.Category); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrBadRequest, err)
		}
	}
	return &models.Expense{
		Code:        strings.TrimSpace(req.Code),
		ExpenseDate: *date,
		Amount:      req.Amount,
		Category:    category,
		Description: req.Description,
		Vendor:      req.Vendor,
		Reference:   req.Reference,
		Notes:       req.Notes,
	}, nil
}

func (h *ExpenseHandler) log() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

// List handles GET /api/v1/expenses?from=&to=&category=.
func (h *ExpenseHandler) List(w http.ResponseWriter, r *http.Request) {
	var f models.ExpenseFilter
	var err error
	q := r.URL.Query()
	if f.From, err = ParseDate(q.Get("from")); err != nil {
		Fail(w, h.log(), err)
		return
	}
	if f.To, err = ParseDate(q.Get("to")); err != nil {
		Fail(w, h.log(), err)
		return
	}
	if c := q.Get("category"); c != "" {
		category, err := models.ParseExpenseCategory(c)
		if err != nil {
			WriteError(w, http.StatusBadRequest, err.Error())
			return
		}
		f.Category = &category
	}
	list, err := h.Expenses.List(r.Context(), f)
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

func (h *ExpenseHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := Decode(r, &req); err != nil {
		Fail(w, h.log(), err)
		return
	}
	e, err := req.toModel()
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	if e.Code == "" {
		codes, err := h.Expenses.ListCodes(r.Context())
		if err != nil {
			Fail(w, h.log(), err)
			return
		}
		e.Code = services.NextCode(services.ExpenseCodePrefix, services.ExpenseCodeWidth, codes)
	}
	if err := h.Expenses.Create(r.Context(), e); err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusCreated, e)
}

func (h *ExpenseHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	e, err := h.Expenses.GetByID(r.Context(), id)
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req expenseRequest
	if err := Decode(r, &req); err != nil {
		Fail(w, h.log(), err)
		return
	}
	e, err := req.toModel()
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	current, err := h.Expenses.GetByID(r.Context(), id)
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	e.ID = id
	if e.Code == "" {
		e.Code = current.Code
	}
	if err := h.Expenses.Update(r.Context(), e); err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusOK, e)
}

func (h *ExpenseHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.Expenses.Delete(r.Context(), id); err != nil {
		Fail(w, h.log(), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
