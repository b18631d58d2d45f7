package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/linguapath/backend/internal/models"
	"github.com/linguapath/backend/internal/services"
	"go.uber.org/zap"
)

// BaseHandler provides common handler functionality
type BaseHandler struct {
	Logger *zap.Logger
}

// RespondJSON sends a JSON response
func (h *BaseHandler) RespondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.Logger.Error("failed to encode JSON response", zap.Error(err))
	}
}

// RespondError sends an error JSON response
func (h *BaseHandler) RespondError(w http.ResponseWriter, status int, message string) {
	h.RespondJSON(w, status, map[string]string{"error": message})
}

// RespondServiceError maps a service error to its status code.
// Validation errors carry the invalid fields.
func (h *BaseHandler) RespondServiceError(w http.ResponseWriter, err error, message string) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		h.RespondJSON(w, http.StatusBadRequest, map[string]any{
			"error":  "validation failed",
			"fields": validationErr.Fields,
		})
		return
	}

	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		h.Logger.Error(message, zap.Error(err))
		h.RespondError(w, status, message)
		return
	}
	h.RespondError(w, status, err.Error())
}

func statusOf(err error) int {
	var readErr *services.StoreReadError
	var writeErr *services.StoreWriteError

	switch {
	case errors.Is(err, models.ErrNotFound), errors.Is(err, services.ErrFormNotFound):
		return http.StatusNotFound
	case errors.Is(err, services.ErrNotApproved), errors.Is(err, services.ErrStepNotAccessible):
		return http.StatusForbidden
	case errors.Is(err, services.ErrInvalidTransition):
		return http.StatusConflict
	case errors.As(err, &readErr), errors.As(err, &writeErr):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// pathID parses a positive integer URL parameter
func pathID(r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryInt parses an integer query parameter, returning def when it is absent
func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
