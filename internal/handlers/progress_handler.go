package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/linguapath/backend/internal/auth"
	"github.com/linguapath/backend/internal/gate"
	"github.com/linguapath/backend/internal/monitoring"
	"github.com/linguapath/backend/internal/personalize"
	"github.com/linguapath/backend/internal/progression"
	"github.com/linguapath/backend/internal/services"
	"go.uber.org/zap"
)

// ProgressService is the interface that wraps methods for course progression business logic.
type ProgressService interface {
	// Method GetCurrentStep derives the step the user should be on from their completion history.
	//
	// "userID" parameter is used to identify the user.
	// If the account is not approved, ErrNotApproved will be returned.
	// If user state could not be read, *StoreReadError will be returned together with "nil" value.
	GetCurrentStep(ctx context.Context, userID int) (*services.CurrentStep, error)
	// Method ViewLesson resolves a lesson page view and renders the lesson when it may be shown.
	//
	// "viewer" parameter describes who is asking, anonymous viewers get a login redirect decision.
	// "mode" parameter selects how missing personalization values are rendered.
	// Store failures are reported inside the returned decision, not as error.
	// If the lesson content could not be loaded, the error will be returned together with "nil" value.
	ViewLesson(ctx context.Context, viewer services.Viewer, lessonID int, mode personalize.Mode) (*services.LessonView, error)
	// Method CheckStatus re-reads the content generation status of a lesson without side effects.
	//
	// If user state could not be read, the unavailable status is returned together with the error.
	CheckStatus(ctx context.Context, userID, lessonID int) (progression.StatusInfo, error)
	// Method CompleteLesson records a lesson completion and returns the step that follows.
	//
	// Completing a lesson twice succeeds. If the lesson is not accessible yet, ErrStepNotAccessible will be returned.
	// If the completion could not be saved, *StoreWriteError will be returned together with "nil" value.
	CompleteLesson(ctx context.Context, userID, lessonID int) (*services.CompletionResult, error)
	// Method ReviewPlaylist builds the listening practice playlist from the completed lessons of a user.
	//
	// If the account is not approved, ErrNotApproved will be returned.
	// If user state could not be read, *StoreReadError will be returned together with "nil" value.
	ReviewPlaylist(ctx context.Context, userID int) (*services.Playlist, error)
}

// ProgressHandler handles HTTP requests for course steps and lessons
type ProgressHandler struct {
	BaseHandler
	service     ProgressService
	defaultMode personalize.Mode
}

// NewProgressHandler creates a new progress handler
func NewProgressHandler(svc ProgressService, defaultMode personalize.Mode, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{
		service:     svc,
		defaultMode: defaultMode,
		BaseHandler: BaseHandler{Logger: logger},
	}
}

// RegisterRoutes registers all progress handler routes
// Note: This assumes the router is already scoped to /api/v1
func (h *ProgressHandler) RegisterRoutes(r chi.Router, authMiddleware, optionalAuthMiddleware func(http.Handler) http.Handler) {
	r.With(authMiddleware).Get("/steps/current", h.GetCurrentStep)
	r.With(authMiddleware).Get("/listen", h.GetPlaylist)
	r.Route("/lessons/{id}", func(r chi.Router) {
		r.With(optionalAuthMiddleware).Get("/", h.GetLesson)
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware)
			r.Get("/status", h.GetLessonStatus)
			r.Post("/complete", h.CompleteLesson)
		})
	})
}

// GetCurrentStep handles GET /steps/current
// @Summary Get current step
// @Description Get the step the user should continue with and the course progress
// @Tags progress
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} services.CurrentStep
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Account not approved"
// @Failure 503 {object} map[string]string "User state unavailable"
// @Router /steps/current [get]
func (h *ProgressHandler) GetCurrentStep(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	current, err := h.service.GetCurrentStep(r.Context(), userID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to get current step")
		return
	}

	h.RespondJSON(w, http.StatusOK, current)
}

// GetLesson handles GET /lessons/{id}
// @Summary View lesson
// @Description Apply the step gate to a lesson view. Renders the personalized lesson or returns a redirect, blocked or retry decision.
// @Tags progress
// @Produce json
// @Param id path int true "Lesson ID"
// @Param mode query string false "Personalization mode: auto, substitute or fallback"
// @Success 200 {object} services.LessonView "Render, redirect or blocked decision"
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 503 {object} services.LessonView "Retry decision"
// @Router /lessons/{id} [get]
func (h *ProgressHandler) GetLesson(w http.ResponseWriter, r *http.Request) {
	lessonID, ok := pathID(r, "id")
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	mode := h.defaultMode
	if raw := r.URL.Query().Get("mode"); raw != "" {
		mode = personalize.ParseMode(raw)
	}

	view, err := h.service.ViewLesson(r.Context(), viewerOf(r), lessonID, mode)
	if err != nil {
		h.RespondServiceError(w, err, "failed to load lesson")
		return
	}

	h.respondDecision(w, view.Decision, view)
}

// GetPlaylist handles GET /listen
// @Summary Get practice playlist
// @Description Get the listening practice tracks of the completed lessons. Recent lessons are repeated more often.
// @Tags progress
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} services.Playlist
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Account not approved"
// @Failure 503 {object} map[string]string "User state unavailable"
// @Router /listen [get]
func (h *ProgressHandler) GetPlaylist(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}

	list, err := h.service.ReviewPlaylist(r.Context(), userID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to build playlist")
		return
	}

	h.RespondJSON(w, http.StatusOK, list)
}

// GetLessonStatus handles GET /lessons/{id}/status
// @Summary Check lesson content status
// @Description Re-read whether the personalized content of a lesson is ready
// @Tags progress
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Lesson ID"
// @Success 200 {object} progression.StatusInfo
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Account not approved"
// @Failure 503 {object} progression.StatusInfo "Status unavailable"
// @Router /lessons/{id}/status [get]
func (h *ProgressHandler) GetLessonStatus(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}
	lessonID, ok := pathID(r, "id")
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	status, err := h.service.CheckStatus(r.Context(), userID, lessonID)
	if err != nil {
		var readErr *services.StoreReadError
		if errors.As(err, &readErr) {
			h.Logger.Error("failed to check lesson status", zap.Int("lesson_id", lessonID), zap.Error(err))
			h.RespondJSON(w, http.StatusServiceUnavailable, status)
			return
		}
		h.RespondServiceError(w, err, "failed to check lesson status")
		return
	}

	h.RespondJSON(w, http.StatusOK, status)
}

// CompleteLesson handles POST /lessons/{id}/complete
// @Summary Complete lesson
// @Description Record that the user finished the lesson and get the next step
// @Tags progress
// @Produce json
// @Security ApiKeyAuth
// @Param id path int true "Lesson ID"
// @Success 200 {object} services.CompletionResult
// @Failure 400 {object} map[string]string "Bad request"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Lesson not accessible"
// @Failure 503 {object} map[string]string "Completion could not be saved"
// @Router /lessons/{id}/complete [post]
func (h *ProgressHandler) CompleteLesson(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.GetUserID(r.Context())
	if !ok {
		h.RespondError(w, http.StatusUnauthorized, "user ID not found in context")
		return
	}
	lessonID, ok := pathID(r, "id")
	if !ok {
		h.RespondError(w, http.StatusBadRequest, "invalid lesson id")
		return
	}

	result, err := h.service.CompleteLesson(r.Context(), userID, lessonID)
	if err != nil {
		h.RespondServiceError(w, err, "failed to save lesson completion")
		return
	}

	h.RespondJSON(w, http.StatusOK, result)
}

// respondDecision writes a gate view with the status code of its decision
func (h *BaseHandler) respondDecision(w http.ResponseWriter, decision gate.Decision, body any) {
	monitoring.GateDecisions.WithLabelValues(string(decision.Action), decision.Reason).Inc()
	h.RespondJSON(w, decision.HTTPStatus(), body)
}

// viewerOf returns the viewer of a request that went through the optional auth middleware
func viewerOf(r *http.Request) services.Viewer {
	userID, ok := auth.GetUserID(r.Context())
	return services.Viewer{UserID: userID, Authenticated: ok}
}
