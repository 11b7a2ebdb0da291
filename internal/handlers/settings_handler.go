package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/jobledger/backend/internal/models"
)

type SettingsStore interface {
	Create(ctx context.Context, v *models.SettingsVersion) error
	GetByID(ctx context.Context, id int64) (*models.SettingsVersion, error)
	List(ctx context.Context) ([]*models.SettingsVersion, error)
	Activate(ctx context.Context, id int64) error
}

// RulesParser is satisfied by *services.RulesValidator.
type RulesParser interface {
	Parse(raw []byte) (models.Rules, error)
}

// SettingsHandler serves /api/v1/settings. Versions are never edited; a change is a new version.
type SettingsHandler struct {
	Settings SettingsStore
	Rules    RulesParser
	Logger   *slog.Logger
}

type settingsRequest struct {
	Name  string          `json:"name"`
	Notes string          `json:"notes"`
	Rules json.RawMessage `json:"rules"`
}

func (h *SettingsHandler) log() *slog.Logger {
	if h.Logger == nil {
		return slog.Default()
	}
	return h.Logger
}

func (h *SettingsHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.Settings.List(r.Context())
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusOK, list)
}

// Create handles POST /api/v1/settings. The rules document is validated before anything is stored.
func (h *SettingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := Decode(r, &req); err != nil {
		Fail(w, h.log(), err)
		return
	}
	if req.Name = strings.TrimSpace(req.Name); req.Name == "" {
		WriteError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(req.Rules) == 0 {
		WriteError(w, http.StatusBadRequest, "rules is required")
		return
	}
	rules, err := h.Rules.Parse(req.Rules)
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	v := &models.SettingsVersion{Name: req.Name, Notes: req.Notes, Rules: rules}
	if err := h.Settings.Create(r.Context(), v); err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusCreated, v)
}

func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	v, err := h.Settings.GetByID(r.Context(), id)
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

// Clone handles POST /api/v1/settings/{id}/clone. An optional body may rename the copy.
func (h *SettingsHandler) Clone(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	src, err := h.Settings.GetByID(r.Context(), id)
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	var req settingsRequest
	if r.ContentLength > 0 {
		if err := Decode(r, &req); err != nil {
			Fail(w, h.log(), err)
			return
		}
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = fmt.Sprintf("%s (copy)", src.Name)
	}
	v := &models.SettingsVersion{Name: name, Notes: src.Notes, Rules: src.Rules}
	if err := h.Settings.Create(r.Context(), v); err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusCreated, v)
}

// Activate handles POST /api/v1/settings/{id}/activate. New jobs pin this version from now on.
func (h *SettingsHandler) Activate(w http.ResponseWriter, r *http.Request) {
	id, ok := PathID(r)
	if !ok {
		WriteError(w, http.StatusBadRequest, "invalid id")
		return
	}
	if _, err := h.Settings.GetByID(r.Context(), id); err != nil {
		Fail(w, h.log(), err)
		return
	}
	if err := h.Settings.Activate(r.Context(), id); err != nil {
		Fail(w, h.log(), err)
		return
	}
	h.log().Info("settings version activated", "version_id", id)
	v, err := h.Settings.GetByID(r.Context(), id)
	if err != nil {
		Fail(w, h.log(), err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}
