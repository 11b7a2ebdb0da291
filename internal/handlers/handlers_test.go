package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/models"
	"github.com/jobledger/backend/internal/repository"
	"github.com/jobledger/backend/internal/services"
)

// ---------------------------------------------------------------------------
// Mocks
// ---------------------------------------------------------------------------

type memPayments struct {
	payments map[int64]*models.Payment
	nextID   int64
	filter   models.PaymentFilter
}

func newMemPayments() *memPayments { return &memPayments{payments: map[int64]*models.Payment{}} }

func (m *memPayments) Create(_ context.Context, p *models.Payment) error {
	for _, existing := range m.payments {
		if existing.Code == p.Code {
			return repository.ErrDuplicateCode
		}
	}
	m.nextID++
	p.ID = m.nextID
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *memPayments) GetByID(_ context.Context, id int64) (*models.Payment, error) {
	p, ok := m.payments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memPayments) Update(_ context.Context, p *models.Payment) error {
	if _, ok := m.payments[p.ID]; !ok {
		return repository.ErrNotFound
	}
	cp := *p
	m.payments[p.ID] = &cp
	return nil
}

func (m *memPayments) SetPaid(_ context.Context, id int64, paid bool) error {
	p, ok := m.payments[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.IsPaid = paid
	return nil
}

func (m *memPayments) Delete(_ context.Context, id int64) error {
	if _, ok := m.payments[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.payments, id)
	return nil
}

func (m *memPayments) List(_ context.Context, f models.PaymentFilter) ([]*models.Payment, error) {
	m.filter = f
	out := []*models.Payment{}
	for _, p := range m.payments {
		out = append(out, p)
	}
	return out, nil
}

func (m *memPayments) ListCodes(context.Context) ([]string, error) {
	var out []string
	for _, p := range m.payments {
		out = append(out, p.Code)
	}
	return out, nil
}

type memExpenses struct {
	expenses map[int64]*models.Expense
	nextID   int64
	filter   models.ExpenseFilter
}

func newMemExpenses() *memExpenses { return &memExpenses{expenses: map[int64]*models.Expense{}} }

func (m *memExpenses) Create(_ context.Context, e *models.Expense) error {
	m.nextID++
	e.ID = m.nextID
	cp := *e
	m.expenses[e.ID] = &cp
	return nil
}

func (m *memExpenses) GetByID(_ context.Context, id int64) (*models.Expense, error) {
	e, ok := m.expenses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (m *memExpenses) Update(_ context.Context, e *models.Expense) error {
	cp := *e
	m.expenses[e.ID] = &cp
	return nil
}

func (m *memExpenses) Delete(_ context.Context, id int64) error {
	if _, ok := m.expenses[id]; !ok {
		return repository.ErrNotFound
	}
	delete(m.expenses, id)
	return nil
}

func (m *memExpenses) List(_ context.Context, f models.ExpenseFilter) ([]*models.Expense, error) {
	m.filter = f
	return []*models.Expense{}, nil
}

func (m *memExpenses) ListCodes(context.Context) ([]string, error) {
	var out []string
	for _, e := range m.expenses {
		out = append(out, e.Code)
	}
	return out, nil
}

type memSettings struct {
	versions map[int64]*models.SettingsVersion
	active   int64
	nextID   int64
}

func newMemSettings() *memSettings {
	return &memSettings{versions: map[int64]*models.SettingsVersion{}}
}

func (m *memSettings) Create(_ context.Context, v *models.SettingsVersion) error {
	m.nextID++
	v.ID = m.nextID
	cp := *v
	m.versions[v.ID] = &cp
	return nil
}

func (m *memSettings) GetByID(_ context.Context, id int64) (*models.SettingsVersion, error) {
	v, ok := m.versions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *v
	cp.IsActive = id == m.active
	return &cp, nil
}

func (m *memSettings) List(context.Context) ([]*models.SettingsVersion, error) {
	out := []*models.SettingsVersion{}
	for _, v := range m.versions {
		out = append(out, v)
	}
	return out, nil
}

func (m *memSettings) Activate(_ context.Context, id int64) error {
	m.active = id
	return nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newRulesValidator(t *testing.T) *services.RulesValidator {
	t.Helper()
	v, err := services.NewRulesValidator()
	if err != nil {
		t.Fatalf("NewRulesValidator: %v", err)
	}
	return v
}

func do(h http.HandlerFunc, method, url, body string, id int64) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, url, nil)
	} else {
		req = httptest.NewRequest(method, url, strings.NewReader(body))
	}
	if id != 0 {
		req.SetPathValue("id", fmt.Sprint(id))
	}
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

// =====================================================================
// Payments
// =====================================================================

func TestCreatePayment_DefaultsToPaidWithCode(t *testing.T) {
	store := newMemPayments()
	h := &PaymentHandler{Payments: store}

	rec := do(h.Create, http.MethodPost, "/api/v1/payments", `{"worker_id":3,"amount_paid":"45.50","paid_date":"2024-04-02","method":"Wise"}`, 0)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Payment
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.Code != "P0001" || !got.IsPaid || got.IsAutoGenerated {
		t.Errorf("payment = %+v", got)
	}

	rec = do(h.Create, http.MethodPost, "/api/v1/payments", `{"worker_id":3,"amount_paid":"5","paid_date":"2024-04-03","is_paid":false}`, 0)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Code != "P0002" || got.IsPaid {
		t.Errorf("second payment = %+v", got)
	}
}

func TestCreatePayment_Validation(t *testing.T) {
	cases := map[string]string{
		"no worker":    `{"amount_paid":"1","paid_date":"2024-01-01"}`,
		"zero amount":  `{"worker_id":1,"amount_paid":"0","paid_date":"2024-01-01"}`,
		"missing date": `{"worker_id":1,"amount_paid":"1"}`,
		"bad date":     `{"worker_id":1,"amount_paid":"1","paid_date":"2024/01/01"}`,
		"invalid json": `not json`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h := &PaymentHandler{Payments: newMemPayments()}
			rec := do(h.Create, http.MethodPost, "/api/v1/payments", body, 0)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreatePayment_DuplicateCode(t *testing.T) {
	store := newMemPayments()
	h := &PaymentHandler{Payments: store}
	body := `{"payment_code":"P0009","worker_id":1,"amount_paid":"1","paid_date":"2024-01-01"}`
	if rec := do(h.Create, http.MethodPost, "/api/v1/payments", body, 0); rec.Code != http.StatusCreated {
		t.Fatalf("first create: %d", rec.Code)
	}
	if rec := do(h.Create, http.MethodPost, "/api/v1/payments", body, 0); rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
}

func TestMarkPaidAndUnpaid(t *testing.T) {
	store := newMemPayments()
	store.payments[1] = &models.Payment{ID: 1, Code: "P0001", WorkerID: 2, AmountPaid: d("30"), IsAutoGenerated: true}
	h := &PaymentHandler{Payments: store}

	if rec := do(h.MarkPaid, http.MethodPost, "/api/v1/payments/1/mark-paid", "", 1); rec.Code != http.StatusOK {
		t.Fatalf("mark-paid: %d", rec.Code)
	}
	if !store.payments[1].IsPaid {
		t.Error("payment should be paid")
	}
	if rec := do(h.MarkUnpaid, http.MethodPost, "/api/v1/payments/1/mark-unpaid", "", 1); rec.Code != http.StatusOK {
		t.Fatalf("mark-unpaid: %d", rec.Code)
	}
	if store.payments[1].IsPaid {
		t.Error("payment should be unpaid")
	}
	if rec := do(h.MarkPaid, http.MethodPost, "/api/v1/payments/9/mark-paid", "", 9); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestUpdatePayment_KeepsProvenance(t *testing.T) {
	store := newMemPayments()
	receiptID := int64(4)
	store.payments[1] = &models.Payment{ID: 1, Code: "P0001", WorkerID: 2, ReceiptID: &receiptID, AmountPaid: d("30"), IsAutoGenerated: true}
	h := &PaymentHandler{Payments: store}

	rec := do(h.Update, http.MethodPut, "/api/v1/payments/1", `{"worker_id":2,"amount_paid":"31","paid_date":"2024-05-01"}`, 1)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	p := store.payments[1]
	if p.Code != "P0001" || !p.IsAutoGenerated || p.ReceiptID == nil || p.IsPaid {
		t.Errorf("payment = %+v", p)
	}
	if !p.AmountPaid.Equal(d("31")) {
		t.Errorf("amount = %s", p.AmountPaid)
	}
}

func TestListPayments_Filters(t *testing.T) {
	store := newMemPayments()
	h := &PaymentHandler{Payments: store}

	rec := do(h.List, http.MethodGet, "/api/v1/payments?worker_id=3&job_id=5&from=2024-01-01&to=2024-01-31", "", 0)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	f := store.filter
	if f.WorkerID == nil || *f.WorkerID != 3 || f.JobID == nil || *f.JobID != 5 || f.From == nil || f.To == nil {
		t.Errorf("filter = %+v", f)
	}

	if rec := do(h.List, http.MethodGet, "/api/v1/payments?worker_id=abc", "", 0); rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

// =====================================================================
// Expenses
// =====================================================================

func TestCreateExpense(t *testing.T) {
	store := newMemExpenses()
	h := &ExpenseHandler{Expenses: store}

	rec := do(h.Create, http.MethodPost, "/api/v1/expenses", `{"expense_date":"2024-02-10","amount":"19.99","category":"software","description":"IDE"}`, 0)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var got models.Expense
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if got.Code != "E0001" || got.Category != models.ExpenseSoftware {
		t.Errorf("expense = %+v", got)
	}
}

func TestCreateExpense_Rejects(t *testing.T) {
	cases := map[string]string{
		"negative amount":  `{"expense_date":"2024-02-10","amount":"-1"}`,
		"unknown category": `{"expense_date":"2024-02-10","amount":"1","category":"yachts"}`,
		"no date":          `{"amount":"1"}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			h := &ExpenseHandler{Expenses: newMemExpenses()}
			if rec := do(h.Create, http.MethodPost, "/api/v1/expenses", body, 0); rec.Code != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestListExpenses_CategoryFilter(t *testing.T) {
	store := newMemExpenses()
	h := &ExpenseHandler{Expenses: store}

	if rec := do(h.List, http.MethodGet, "/api/v1/expenses?category=travel&from=2024-01-01", "", 0); rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if store.filter.Category == nil || *store.filter.Category != models.ExpenseTravel || store.filter.From == nil || store.filter.To != nil {
		t.Errorf("filter = %+v", store.filter)
	}
}

func TestDeleteExpense_NotFound(t *testing.T) {
	h := &ExpenseHandler{Expenses: newMemExpenses()}
	if rec := do(h.Delete, http.MethodDelete, "/api/v1/expenses/3", "", 3); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// =====================================================================
// Settings
// =====================================================================

func TestCreateSettings_ValidatesRules(t *testing.T) {
	store := newMemSettings()
	h := &SettingsHandler{Settings: store, Rules: newRulesValidator(t)}

	rec := do(h.Create, http.MethodPost, "/api/v1/settings", `{"name":"2024","rules":{"connect_cost_per_unit":"0.15","platform_fee":{"enabled":true,"mode":"percent","value":"0.1","apply_on":"gross"}}}`, 0)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	v := store.versions[1]
	if !v.Rules.PlatformFee.Enabled || v.Rules.PlatformFee.ApplyOn != models.FeeOnGross {
		t.Errorf("rules = %+v", v.Rules)
	}

	rec = do(h.Create, http.MethodPost, "/api/v1/settings", `{"name":"broken","rules":{"connect_cost_per_unit":-1}}`, 0)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(store.versions) != 1 {
		t.Errorf("invalid rules were stored")
	}
}

func TestCloneAndActivateSettings(t *testing.T) {
	store := newMemSettings()
	store.versions[1] = &models.SettingsVersion{ID: 1, Name: "Default", Rules: models.Rules{ConnectCostPerUnit: d("0.15")}}
	store.nextID = 1
	h := &SettingsHandler{Settings: store, Rules: newRulesValidator(t)}

	rec := do(h.Clone, http.MethodPost, "/api/v1/settings/1/clone", "", 1)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	clone := store.versions[2]
	if clone == nil || clone.Name != "Default (copy)" || !clone.Rules.ConnectCostPerUnit.Equal(d("0.15")) {
		t.Fatalf("clone = %+v", clone)
	}

	rec = do(h.Activate, http.MethodPost, "/api/v1/settings/2/activate", "", 2)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var got models.SettingsVersion
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if store.active != 2 || !got.IsActive {
		t.Errorf("active = %d, response = %+v", store.active, got)
	}

	if rec := do(h.Activate, http.MethodPost, "/api/v1/settings/9/activate", "", 9); rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

// =====================================================================
// Error mapping
// =====================================================================

func TestFail_StatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{repository.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", repository.ErrDuplicateCode), http.StatusConflict},
		{fmt.Errorf("%w: x", ErrBadRequest), http.StatusBadRequest},
		{services.ErrPercentSumMismatch, http.StatusUnprocessableEntity},
		{services.ErrInvalidRules, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		Fail(rec, discardLogger(), tc.err)
		if rec.Code != tc.want {
			t.Errorf("Fail(%v) = %d, want %d", tc.err, rec.Code, tc.want)
		}
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}
