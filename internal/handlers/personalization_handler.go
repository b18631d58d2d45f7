package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linguapath/backend/internal/auth"
	"github.com/linguapath/backend/internal/models"
	"github.com/linguapath/backend/internal/services"
	"go.uber.org/zap"
)

// PersonalizationService is the interface that wraps methods for personalization form business logic.
type PersonalizationService interface {
	// Method GetForm resolves a personalization page view.
	//
	// "viewer" parameter describes who is asking, "formID" identifies the form.
	// The form and the saved values are attached only when the decision is a render.
	// If the form is unknown, ErrFormNotFound will be returned together with "nil" value.
	GetForm(ctx context.Context, viewer services.Viewer, formID string) (*services.FormView, error)
	// Method Submit validates and saves the form answers and creates the content generation jobs.
	//
	// If a value is invalid, *ValidationError will be returned.
	// If the user may not submit the form yet, ErrNotApproved or ErrStepNotAccessible will be returned.
	// If the store fails, *StoreReadError or *StoreWriteError will be returned together with "nil" value.
	Submit(ctx context.Context, userID int, formID string, values models.ProfileData) (*services.SubmitResult, error)
}

// PersonalizationHandler handles HTTP requests for personalization forms
type PersonalizationHandler struct {
	BaseHandler
	service PersonalizationService
}

// NewPersonalizationHandler creates a new personalization handler
func NewPersonalizationHandler(svc PersonalizationService, logger *zap.Logger) *PersonalizationHandler {
	return &PersonalizationHandler{
		service:     svc,
		BaseHandler: BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers all personalization handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *PersonalizationHandler) RegisterRoutes(r chi.Router, authMiddleware, optionalAuthMiddleware func(http.Handler) http.Handler) {
	r.Route("/personalize/{formId}", func(r chi.Router) {
		r.With(optionalAuthMiddleware).Get("/", h.GetForm)
		r.With(authMiddleware).Post("/", h.Submit)
	})
}

// GetForm handles GET /personalize/{formId}
// @Summary View personalization form
// @Description Apply the step gate to a personalization form view. Returns the form and saved answers on render.
// @Tags personalization
// @Produce json
// @Param formId path string true "Form ID"
// @Success 200 {object} services.FormView "Render or redirect decision"
// @Failure 404 {object} map[string]string "Form not found"
// @Failure 503 {object} services.FormView "Retry decision"
// @Router /personalize/{formId} [get]
func (h *PersonalizationHandler) GetForm(w http.ResponseWriter, r *http.Request) {
	formID := chi.URLParam(r, "formId")

	view, err := h.service.GetForm(r.Context(), viewerOf(r), formID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to load personalization form")
		return
	}

	h.respondDecision(w, view.Decision, view)
}

// Submit handles POST /personalize/{formId}
// @Summary Submit personalization form
// @Description Save the answers of a personalization form. Creates the personalized audio jobs on first submit.
// @Tags personalization
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param formId path string true "Form ID"
// @Param values body map[string]any true "Field values by field id"
// @Success 200 {object} services.SubmitResult
// @Failure 400 {object} map[string]any "Validation failed"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Form not accessible"
// @Failure 404 {object} map[string]string "Form not found"
// @Failure 503 {object} map[string]string "Answers could not be saved"
// @Router /personalize/{formId} [post]
func (h *PersonalizationHandler) Submit(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}
	formID := chi.URLParam(r, "formId")

	var values models.ProfileData
	decoder := json.NewDecoder(r.Body)
	decoder.UseNumber()
	if err := decoder.Decode(&values); err != nil {
		h.RespondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := h.service.Submit(r.Context(), userID, formID, values)
	if err != nil {
		h.RespondServiceError(w, err, "failed to save personalization")
		return
	}

	h.Logger.Info("personalization submitted",
		zap.Int("user_id", userID),
		zap.String("form_id", formID),
		zap.Int("jobs_created", result.JobsCreated),
	)
	h.RespondJSON(w, http.StatusOK, result)
}
