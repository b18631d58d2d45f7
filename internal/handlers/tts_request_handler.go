package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linguapath/backend/internal/models"
	"go.uber.org/zap"
)

// TTSRequestService is the interface that wraps methods for content generation job business logic.
type TTSRequestService interface {
	// Method List retrieves a page of jobs.
	//
	// "userID" and "status" parameters filter the list, zero and empty values disable the filter.
	// If a parameter is invalid, *ValidationError will be returned together with "nil" value.
	List(ctx context.Context, page, count, userID int, status string) ([]models.TTSRequestListItem, error)
	// Method GetByID retrieves a job by its ID.
	//
	// If the job does not exist, ErrNotFound will be returned together with "nil" value.
	GetByID(ctx context.Context, id int) (*models.TTSRequest, error)
	// Method Approve moves a pending or failed job to approved and queues its rendering.
	//
	// If the job is in another status, ErrInvalidTransition will be returned.
	Approve(ctx context.Context, id int) error
	// Method ApprovePending approves up to "limit" pending jobs and returns how many were approved.
	ApprovePending(ctx context.Context, limit int) (int, error)
	// Method Reject moves a pending or approved job to rejected with a reason.
	//
	// If "reason" is empty, *ValidationError will be returned.
	Reject(ctx context.Context, id int, reason string) error
	// Method UpdateStatus applies a status reported by the external TTS engine to the jobs of a lesson.
	//
	// Returns the number of updated jobs. If no job could make the transition, ErrInvalidTransition will be returned.
	UpdateStatus(ctx context.Context, req models.UpdateTTSStatusRequest) (int, error)
}

// TTSRequestHandler handles HTTP requests for content generation review and status callbacks
type TTSRequestHandler struct {
	BaseHandler
	service TTSRequestService
}

// NewTTSRequestHandler creates a new TTS request handler
func NewTTSRequestHandler(svc TTSRequestService, logger *zap.Logger) *TTSRequestHandler {
	return &TTSRequestHandler{
		service:     svc,
		BaseHandler: BaseHandler{Logger: logger},
	}
}

// RegisterAdminRoutes registers the review routes
// Note: This assumes the router is already scoped to /api/v1
func (h *TTSRequestHandler) RegisterAdminRoutes(r chi.Router, adminMiddleware func(http.Handler) http.Handler) {
	r.Route("/admin/tts-requests", func(r chi.Router) {
		r.Use(adminMiddleware)
		r.Get("/", h.GetAll)
		r.Post("/approve-pending", h.ApprovePending)
		r.Get("/{id}", h.GetByID)
		r.Post("/{id}/approve", h.Approve)
		r.Post("/{id}/reject", h.Reject)
	})
}

// RegisterCallbackRoutes registers the status callback of the external TTS engine
func (h *TTSRequestHandler) RegisterCallbackRoutes(r chi.Router, apiKeyMiddleware func(http.Handler) http.Handler) {
	r.With(apiKeyMiddleware).Post("/internal/tts-requests/status", h.UpdateStatus)
}

// GetAll handles GET /admin/tts-requests
// @Summary Get list of TTS requests
// @Description Get a paginated list of personalized audio jobs
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number (default: 1)"
// @Param count query int false "Items per page (default: 20)"
// @Param userId query int false "Filter by user"
// @Param status query string false "Filter by status"
// @Success 200 {array} models.TTSRequestListItem
// @Failure 400 {object} map[string]any "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /admin/tts-requests [get]
func (h *TTSRequestHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 1)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid page parameter")
		return
	}
	count, err := queryInt(r, "count", 20)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid count parameter")
		return
	}
	userID, err := queryInt(r, "userId", 0)
	if err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid userId parameter")
		return
	}

	items, err := h.service.List(r.Context(), page, count, userID, r.URL.Query().Get("status"))
	if err != nil {
		h.RespondServiceError(w, err, "failed to get TTS requests")
		return
	}

	h.RespondJSON(w, http.StatusOK, items)
}

// GetByID handles GET /admin/tts-requests/{id}
// @Summary Get TTS request
// @Description Get a personalized audio job with its full text
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "TTS request ID"
// @Success 200 {object} models.TTSRequest
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 404 {object} map[string]string "Not found"
// @Router /admin/tts-requests/{id} [get]
func (h *TTSRequestHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "invalid id parameter")
		return
	}

	req, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get TTS request")
		return
	}

	h.RespondJSON(w, http.StatusOK, req)
}

// Approve handles POST /admin/tts-requests/{id}/approve
// @Summary Approve TTS request
// @Description Approve a pending or failed job and queue its audio rendering
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "TTS request ID"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 404 {object} map[string]string "Not found"
// @Failure 409 {object} map[string]string "Invalid status transition"
// @Router /admin/tts-requests/{id}/approve [post]
func (h *TTSRequestHandler) Approve(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "invalid id parameter")
		return
	}

	if err := h.service.Approve(r.Context(), id); err != nil {
		h.RespondServiceError(w, err, "failed to approve TTS request")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"status": string(models.TTSRequestStatusApproved)})
}

// ApprovePending handles POST /admin/tts-requests/approve-pending
// @Summary Approve pending TTS requests
// @Description Approve pending jobs in bulk
// @Tags admin
// @Produce json
// @Security ApiKeyAuth
// @Param limit query int false "Maximum number of jobs to approve"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /admin/tts-requests/approve-pending [post]
func (h *TTSRequestHandler) ApprovePending(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil || limit < 0 {
		h.RespondError(w, http.StatusBadRequest, "invalid limit parameter")
		return
	}

	approved, err := h.service.ApprovePending(r.Context(), limit)
	if err != nil {
		h.RespondServiceError(w, err, "failed to approve pending TTS requests")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]int{"approved": approved})
}

// Reject handles POST /admin/tts-requests/{id}/reject
// @Summary Reject TTS request
// @Description Reject a pending or approved job with a reason shown to the learner
// @Tags admin
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "TTS request ID"
// @Param request body models.RejectTTSRequest true "Rejection reason"
// @Success 200 {object} map[string]string
// @Failure 400 {object} map[string]any "Bad request"
// @Failure 404 {object} map[string]string "Not found"
// @Failure 409 {object} map[string]string "Invalid status transition"
// @Router /admin/tts-requests/{id}/reject [post]
func (h *TTSRequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "invalid id parameter")
		return
	}

	var req models.RejectTTSRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.service.Reject(r.Context(), id, req.Reason); err != nil {
		h.RespondServiceError(w, err, "failed to reject TTS request")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]string{"status": string(models.TTSRequestStatusRejected)})
}

// UpdateStatus handles POST /internal/tts-requests/status
// @Summary Update TTS request status
// @Description Status callback of the external TTS engine for the jobs of a user lesson
// @Tags internal
// @Accept json
// @Produce json
// @Param X-API-Key header string true "API key"
// @Param request body models.UpdateTTSStatusRequest true "Status update"
// @Success 200 {object} map[string]int
// @Failure 400 {object} map[string]any "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 409 {object} map[string]string "Invalid status transition"
// @Router /internal/tts-requests/status [post]
func (h *TTSRequestHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateTTSStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.service.UpdateStatus(r.Context(), req)
	if err != nil {
		h.RespondServiceError(w, err, "failed to update TTS request status")
		return
	}

	h.RespondJSON(w, http.StatusOK, map[string]int{"updated": updated})
}
