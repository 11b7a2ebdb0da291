package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/jobledger/backend/internal/repository"
	"github.com/jobledger/backend/internal/services"
)

// DateLayout is the wire format of every date field.
const DateLayout = "2006-01-02"

// ErrBadRequest marks request decoding and field validation failures.
var ErrBadRequest = errors.New("bad request")

func WriteJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func WriteError(w http.ResponseWriter, status int, msg string) {
	WriteJSON(w, status, map[string]string{"error": msg})
}

// Fail writes the response for err. Errors without a known mapping are logged and reported as 500.
func Fail(w http.ResponseWriter, log *slog.Logger, err error) {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		WriteError(w, http.StatusNotFound, "not found")
	case errors.Is(err, repository.ErrDuplicateCode):
		WriteError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrBadRequest), errors.Is(err, services.ErrInvalidRange):
		WriteError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, services.ErrInvalidRules),
		errors.Is(err, services.ErrPercentSumExceeded),
		errors.Is(err, services.ErrPercentSumMismatch):
		WriteError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		log.Error("request failed", "error", err)
		WriteError(w, http.StatusInternalServerError, "internal error")
	}
}

// PathID parses the {id} path value.
func PathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Decode reads a JSON request body into v.
func Decode(r *http.Request, v interface{}) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON", ErrBadRequest)
	}
	return nil
}

// ParseDate parses an optional YYYY-MM-DD value. Empty input yields nil.
func ParseDate(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", ErrBadRequest, s)
	}
	return &t, nil
}

// QueryID parses an optional positive integer query parameter.
func QueryID(r *http.Request, name string) (*int64, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(v, 10, 64)
	if err != nil || id <= 0 {
		return nil, fmt.Errorf("%w: invalid %s", ErrBadRequest, name)
	}
	return &id, nil
}
