package jobs

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/jobledger/backend/internal/handlers"
	"github.com/jobledger/backend/internal/models"
)

type jobRequest struct {
	Code             string `json:"job_code"`
	Title            string `json:"title"`
	ClientName       string `json:"client_name"`
	JobPostURL       string `json:"job_post_url"`
	Source           string `json:"source"`
	Description      string `json:"description"`
	CoverLetter      string `json:"cover_letter"`
	CompanyName      string `json:"company_name"`
	CompanyWebsite   string `json:"company_website"`
	CompanyEmail     string `json:"company_email"`
	CompanyPhone     string `json:"company_phone"`
	CompanyAddress   string `json:"company_address"`
	ClientNotes      string `json:"client_notes"`
	UpworkJobID      string `json:"upwork_job_id"`
	UpworkContractID string `json:"upwork_contract_id"`
	UpworkOfferID    string `json:"upwork_offer_id"`
	JobType          string `json:"job_type"`
	Status           string `json:"status"`
	StartDate        string `json:"start_date"`
	EndDate          string `json:"end_date"`
	ConnectsUsed     *int   `json:"connects_used"`

	PlatformFeeEnabled *bool            `json:"platform_fee_override_enabled"`
	PlatformFeeMode    *string          `json:"platform_fee_override_mode"`
	PlatformFeeValue   *decimal.Decimal `json:"platform_fee_override_value"`
	PlatformFeeApplyOn *string          `json:"platform_fee_override_apply_on"`
}

func badRequest(err error) error {
	return fmt.Errorf("%w: %v", handlers.ErrBadRequest, err)
}

func (req *jobRequest) toModel() (*models.Job, error) {
	j := &models.Job{
		Code:                       req.Code,
		Title:                      req.Title,
		ClientName:                 req.ClientName,
		JobPostURL:                 req.JobPostURL,
		Description:                req.Description,
		CoverLetter:                req.CoverLetter,
		CompanyName:                req.CompanyName,
		CompanyWebsite:             req.CompanyWebsite,
		CompanyEmail:               req.CompanyEmail,
		CompanyPhone:               req.CompanyPhone,
		CompanyAddress:             req.CompanyAddress,
		ClientNotes:                req.ClientNotes,
		UpworkJobID:                req.UpworkJobID,
		UpworkContractID:           req.UpworkContractID,
		UpworkOfferID:              req.UpworkOfferID,
		ConnectsUsed:               req.ConnectsUsed,
		PlatformFeeEnabledOverride: req.PlatformFeeEnabled,
		PlatformFeeValueOverride:   req.PlatformFeeValue,
	}
	var err error
	if req.Source != "" {
		src, err := models.ParseJobSource(req.Source)
		if err != nil {
			return nil, badRequest(err)
		}
		j.Source = &src
	}
	if req.JobType != "" {
		if j.Type, err = models.ParseJobType(req.JobType); err != nil {
			return nil, badRequest(err)
		}
	}
	if req.Status != "" {
		if j.Status, err = models.ParseJobStatus(req.Status); err != nil {
			return nil, badRequest(err)
		}
	}
	if req.PlatformFeeMode != nil {
		m, err := models.ParseFeeMode(*req.PlatformFeeMode)
		if err != nil {
			return nil, badRequest(err)
		}
		j.PlatformFeeModeOverride = &m
	}
	if req.PlatformFeeApplyOn != nil {
		b, err := models.ParseFeeBase(*req.PlatformFeeApplyOn)
		if err != nil {
			return nil, badRequest(err)
		}
		j.PlatformFeeApplyOnOverride = &b
	}
	if j.StartDate, err = handlers.ParseDate(req.StartDate); err != nil {
		return nil, err
	}
	if j.EndDate, err = handlers.ParseDate(req.EndDate); err != nil {
		return nil, err
	}
	return j, nil
}

type receiptRequest struct {
	ReceivedDate          string          `json:"received_date"`
	AmountReceived        decimal.Decimal `json:"amount_received"`
	Source                string          `json:"source"`
	UpworkTransactionID   string          `json:"upwork_transaction_id"`
	Notes                 string          `json:"notes"`
	SelectedAllocationIDs []int64         `json:"selected_allocation_ids"`
}

func (req *receiptRequest) toModel() (*models.Receipt, error) {
	rc := &models.Receipt{
		AmountReceived:        req.AmountReceived,
		Source:                models.ReceiptManual,
		UpworkTransactionID:   req.UpworkTransactionID,
		Notes:                 req.Notes,
		SelectedAllocationIDs: req.SelectedAllocationIDs,
	}
	if req.Source != "" {
		src, err := models.ParseReceiptSource(req.Source)
		if err != nil {
			return nil, badRequest(err)
		}
		rc.Source = src
	}
	date, err := handlers.ParseDate(req.ReceivedDate)
	if err != nil {
		return nil, err
	}
	if date != nil {
		rc.ReceivedDate = *date
	}
	return rc, nil
}

type allocationRequest struct {
	WorkerID   *int64          `json:"worker_id"`
	Label      string          `json:"label"`
	Role       string          `json:"role"`
	ShareType  string          `json:"share_type"`
	ShareValue decimal.Decimal `json:"share_value"`
	Notes      string          `json:"notes"`
}

func (req *allocationRequest) toModel() (*models.JobAllocation, error) {
	st, err := models.ParseShareType(req.ShareType)
	if err != nil {
		return nil, badRequest(err)
	}
	return &models.JobAllocation{
		WorkerID:   req.WorkerID,
		Label:      req.Label,
		Role:       req.Role,
		ShareType:  st,
		ShareValue: req.ShareValue,
		Notes:      req.Notes,
	}, nil
}

type receiptResponse struct {
	Receipt  *models.Receipt   `json:"receipt"`
	Payments []*models.Payment `json:"payments"`
}

// Handler serves /api/v1/jobs and the receipts and allocations under it.
type Handler struct {
	svc Service
	log *slog.Logger
}

func NewHandler(svc Service, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrJobFinalized):
		handlers.WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrInvalidInput):
		handlers.WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoActiveSettings):
		handlers.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		handlers.Fail(w, h.log, err)
	}
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := handlers.PathID(r)
	if !ok {
		handlers.WriteError(w, http.StatusBadRequest, "invalid id")
	}
	return id, ok
}

// ListJobs handles GET /api/v1/jobs. Archived jobs are included with ?include_archived=true.
func (h *Handler) ListJobs(w http.ResponseWriter, r *http.Request) {
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("include_archived"))
	list, err := h.svc.ListJobs(r.Context(), includeArchived)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) CreateJob(w http.ResponseWriter, r *http.Request) {
	var req jobRequest
	if err := handlers.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	j, err := req.toModel()
	if err != nil {
		h.fail(w, err)
		return
	}
	created, err := h.svc.CreateJob(r.Context(), j)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) GetJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	detail, err := h.svc.GetJobDetail(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) UpdateJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req jobRequest
	if err := handlers.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	j, err := req.toModel()
	if err != nil {
		h.fail(w, err)
		return
	}
	j.ID = id
	updated, err := h.svc.UpdateJob(r.Context(), j)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) ArchiveJob(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.ArchiveJob(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Finalize handles POST /api/v1/jobs/{id}/finalize. Finalizing twice returns the existing snapshot.
func (h *Handler) Finalize(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	snap, err := h.svc.Finalize(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, snap)
}

func (h *Handler) Unfinalize(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Unfinalize(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddReceipt handles POST /api/v1/jobs/{id}/receipts and returns the receipt with the payments it generated.
func (h *Handler) AddReceipt(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req receiptRequest
	if err := handlers.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	rc, err := req.toModel()
	if err != nil {
		h.fail(w, err)
		return
	}
	created, payments, err := h.svc.AddReceipt(r.Context(), jobID, rc)
	if err != nil {
		h.fail(w, err)
		return
	}
	if payments == nil {
		payments = []*models.Payment{}
	}
	handlers.WriteJSON(w, http.StatusCreated, receiptResponse{Receipt: created, Payments: payments})
}

func (h *Handler) UpdateReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req receiptRequest
	if err := handlers.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	rc, err := req.toModel()
	if err != nil {
		h.fail(w, err)
		return
	}
	rc.ID = id
	updated, err := h.svc.UpdateReceipt(r.Context(), rc)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteReceipt(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteReceipt(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) AddAllocation(w http.ResponseWriter, r *http.Request) {
	jobID, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req allocationRequest
	if err := handlers.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	a, err := req.toModel()
	if err != nil {
		h.fail(w, err)
		return
	}
	created, err := h.svc.AddAllocation(r.Context(), jobID, a)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, created)
}

func (h *Handler) UpdateAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var req allocationRequest
	if err := handlers.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	a, err := req.toModel()
	if err != nil {
		h.fail(w, err)
		return
	}
	a.ID = id
	updated, err := h.svc.UpdateAllocation(r.Context(), a)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) DeleteAllocation(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	if err := h.svc.DeleteAllocation(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
