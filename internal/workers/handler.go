package workers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jobledger/backend/internal/handlers"
	"github.com/jobledger/backend/internal/models"
)

type workerRequest struct {
	Code    string `json:"worker_code"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Notes   string `json:"notes"`
	IsOwner bool   `json:"is_owner"`
}

func (req *workerRequest) toModel() *models.Worker {
	return &models.Worker{Code: req.Code, Name: req.Name, Contact: req.Contact, Notes: req.Notes, IsOwner: req.IsOwner}
}

// Handler serves /api/v1/workers.
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
	if errors.Is(err, ErrInvalidInput) {
		handlers.WriteError(w, http.StatusBadRequest, err.Error())
		return
	}
	handlers.Fail(w, h.log, err)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	includeArchived, _ := strconv.ParseBool(r.URL.Query().Get("include_archived"))
	list, err := h.svc.List(r.Context(), includeArchived)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, list)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req workerRequest
	if err := handlers.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	created, err := h.svc.Create(r.Context(), req.toModel())
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusCreated, created)
}

// Get handles GET /api/v1/workers/{id} and returns the worker detail with totals.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r)
	if !ok {
		handlers.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	detail, err := h.svc.Detail(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, detail)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r)
	if !ok {
		handlers.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	var req workerRequest
	if err := handlers.Decode(r, &req); err != nil {
		h.fail(w, err)
		return
	}
	worker := req.toModel()
	worker.ID = id
	updated, err := h.svc.Update(r.Context(), worker)
	if err != nil {
		h.fail(w, err)
		return
	}
	handlers.WriteJSON(w, http.StatusOK, updated)
}

func (h *Handler) Archive(w http.ResponseWriter, r *http.Request) {
	id, ok := handlers.PathID(r)
	if !ok {
		handlers.WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if err := h.svc.Archive(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
