package services

import (
	"context"
	"encoding/json"
	"fmt"
	"slices"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/linguapath/backend/internal/content"
	"github.com/linguapath/backend/internal/gate"
	"github.com/linguapath/backend/internal/models"
	"github.com/linguapath/backend/internal/personalize"
	"github.com/linguapath/backend/internal/progression"
	"go.uber.org/zap"
)

// StepResolver loads user state and resolves page views
type StepResolver interface {
	// LoadSnapshot reads the progression state of a user.
	// Read failures are returned as *StoreReadError.
	LoadSnapshot(ctx context.Context, userID int) (*progression.Snapshot, error)
	// Resolve applies the step gate to a page view
	Resolve(ctx context.Context, viewer Viewer, step models.Step) (gate.Decision, *progression.Snapshot)
}

// TTSJobRepository defines the write access personalization needs to content generation jobs
type TTSJobRepository interface {
	// CountByUserAndLessons counts the jobs of a user for the given lessons
	//
	// If some error occurs during data retrieve, the error will be returned together with "0" value.
	CountByUserAndLessons(ctx context.Context, userID int, lessonIDs []int) (int, error)
	// CreateBatch inserts jobs in one transaction and fills their IDs
	//
	// If some error occurs during data insert, no job is stored and the error will be returned.
	CreateBatch(ctx context.Context, requests []models.TTSRequest) error
}

// ReviewNotifier tells administrators that new jobs wait for review
type ReviewNotifier interface {
	EnqueueReviewRequested(ctx context.Context, userID, count int) error
}

// FormView is a gate decision for a personalization step together with the form
type FormView struct {
	Decision gate.Decision              `json:"decision"`
	Form     *models.PersonalizationForm `json:"form,omitempty"`
	Values   models.ProfileData         `json:"values,omitempty"`
}

// SubmitResult is the outcome of a personalization submit
type SubmitResult struct {
	FormID      string       `json:"formId"`
	JobsCreated int          `json:"jobsCreated"`
	Next        *models.Step `json:"next,omitempty"`
	NextPath    string       `json:"nextPath,omitempty"`
}

type personalizationService struct {
	engine      *progression.Engine
	resolver    StepResolver
	profileRepo UserProfileRepository
	jobRepo     TTSJobRepository
	catalog     content.Catalog
	notifier    ReviewNotifier
	logger      *zap.Logger
}

// NewPersonalizationService creates a new personalization service
func NewPersonalizationService(
	engine *progression.Engine,
	resolver StepResolver,
	profileRepo UserProfileRepository,
	jobRepo TTSJobRepository,
	catalog content.Catalog,
	notifier ReviewNotifier,
	logger *zap.Logger,
) *personalizationService {
	return &personalizationService{
		engine:      engine,
		resolver:    resolver,
		profileRepo: profileRepo,
		jobRepo:     jobRepo,
		catalog:     catalog,
		notifier:    notifier,
		logger:      logger,
	}
}

// GetForm resolves a personalization page view. The form and the values the user already
// gave are attached only when the form may be rendered.
//
// If the form is unknown, ErrFormNotFound will be returned.
func (s *personalizationService) GetForm(ctx context.Context, viewer Viewer, formID string) (*FormView, error) {
	form, ok := s.engine.Form(formID)
	if !ok {
		return nil, ErrFormNotFound
	}

	decision, snap := s.resolver.Resolve(ctx, viewer, models.PersonalizationStep(formID))
	view := &FormView{Decision: decision}
	if decision.Action != gate.ActionRender {
		return view, nil
	}

	view.Form = form
	view.Values = make(models.ProfileData)
	for _, field := range form.Fields {
		if value, ok := snap.ProfileData[field.ID]; ok && value != nil {
			view.Values[field.ID] = value
		}
	}
	return view, nil
}

// Submit validates and saves the answers of a personalization form and creates the
// content generation jobs for the lessons that use them.
//
// Jobs are created only once per user and form: a resubmit updates the profile but keeps the
// existing jobs. The review notification is best effort.
//
// Errors:
//
// - ErrFormNotFound for unknown forms
//
// - ErrNotApproved and ErrStepNotAccessible when the user may not submit the form yet
//
// - *ValidationError when a field value is invalid
//
// - *StoreReadError and *StoreWriteError when the store fails; no next step is returned then
func (s *personalizationService) Submit(ctx context.Context, userID int, formID string, values models.ProfileData) (*SubmitResult, error) {
	form, ok := s.engine.Form(formID)
	if !ok {
		return nil, ErrFormNotFound
	}

	snap, err := s.resolver.LoadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !snap.Approved() {
		return nil, ErrNotApproved
	}

	step := models.PersonalizationStep(formID)
	if access := s.engine.Access(snap, step); !access.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrStepNotAccessible, access.Reason)
	}

	clean, err := validateFormValues(form, values)
	if err != nil {
		return nil, err
	}

	if err := s.profileRepo.MergeProfileData(ctx, userID, clean); err != nil {
		s.logger.Error("failed to save personalization",
			zap.Int("user_id", userID),
			zap.String("form_id", formID),
			zap.Error(err),
		)
		return nil, &StoreWriteError{Op: "save personalization", Err: err}
	}
	snap = snap.WithProfileData(clean)

	result := &SubmitResult{FormID: formID}

	if form.TriggersGeneration() {
		created, err := s.createJobs(ctx, userID, form, snap.ProfileData)
		if err != nil {
			return nil, err
		}
		result.JobsCreated = created
	}

	next, ok := s.engine.NextStep(step)
	if !ok {
		next = s.engine.CurrentStep(snap)
	}
	result.Next = &next
	result.NextPath = next.Path()

	s.logger.Info("personalization saved",
		zap.Int("user_id", userID),
		zap.String("form_id", formID),
		zap.Int("jobs_created", result.JobsCreated),
	)

	return result, nil
}

// createJobs builds the audio scripts of every lesson the form feeds and stores them as
// pending jobs. Nothing is created when the user already has jobs for those lessons.
func (s *personalizationService) createJobs(ctx context.Context, userID int, form *models.PersonalizationForm, profile models.ProfileData) (int, error) {
	existing, err := s.jobRepo.CountByUserAndLessons(ctx, userID, form.UsedInLessons)
	if err != nil {
		return 0, &StoreReadError{Op: "count content generation jobs", Err: err}
	}
	if existing > 0 {
		return 0, nil
	}

	sentences, err := s.catalog.Sentences()
	if err != nil {
		return 0, fmt.Errorf("failed to load sentences: %w", err)
	}

	var requests []models.TTSRequest
	for _, lessonID := range form.UsedInLessons {
		lesson, err := s.catalog.Lesson(lessonID)
		if err != nil {
			return 0, fmt.Errorf("failed to load lesson %d: %w", lessonID, err)
		}
		built := personalize.BuildAudioRequests(userID, lesson, sentences, profile)
		if len(built) == 0 {
			s.logger.Warn("lesson has no audio to generate",
				zap.Int("lesson_id", lessonID),
				zap.String("form_id", form.ID),
			)
		}
		requests = append(requests, built...)
	}
	if len(requests) == 0 {
		return 0, nil
	}

	if err := s.jobRepo.CreateBatch(ctx, requests); err != nil {
		return 0, &StoreWriteError{Op: "create content generation jobs", Err: err}
	}

	if s.notifier != nil {
		if err := s.notifier.EnqueueReviewRequested(ctx, userID, len(requests)); err != nil {
			s.logger.Warn("failed to enqueue review notification", zap.Int("user_id", userID), zap.Error(err))
		}
	}

	return len(requests), nil
}

// validateFormValues checks submitted values against the form fields and returns the
// normalized values. Keys that are not fields of the form are dropped.
func validateFormValues(form *models.PersonalizationForm, values models.ProfileData) (models.ProfileData, error) {
	clean := make(models.ProfileData, len(form.Fields))
	invalid := make(map[string]string)

	for _, field := range form.Fields {
		raw, present := values[field.ID]
		if !present || raw == nil || !values.Has(field.ID) {
			if field.Required {
				invalid[field.ID] = "is required"
			}
			continue
		}

		value, msg := normalizeField(field, raw)
		if msg != "" {
			invalid[field.ID] = msg
			continue
		}
		clean[field.ID] = value
	}

	if len(invalid) > 0 {
		return nil, &ValidationError{Fields: invalid}
	}
	return clean, nil
}

func normalizeField(field models.FormField, raw any) (any, string) {
	switch field.Type {
	case models.FieldTypeNumber:
		number, ok := toNumber(raw)
		if !ok {
			return nil, "must be a number"
		}
		return number, ""

	case models.FieldTypeSelect:
		text, ok := raw.(string)
		if !ok {
			return nil, "must be a single option"
		}
		text = strings.TrimSpace(text)
		if len(field.Options) > 0 && !slices.Contains(field.Options, text) {
			return nil, "must be one of: " + strings.Join(field.Options, ", ")
		}
		return text, ""

	case models.FieldTypeMultiselect:
		items, ok := toStrings(raw)
		if !ok {
			return nil, "must be a list of options"
		}
		for _, item := range items {
			if len(field.Options) > 0 && !slices.Contains(field.Options, item) {
				return nil, "must only contain: " + strings.Join(field.Options, ", ")
			}
		}
		return items, ""
	}

	text, ok := raw.(string)
	if !ok {
		return nil, "must be text"
	}
	text = strings.TrimSpace(text)
	length := utf8.RuneCountInString(text)
	if field.MinLength > 0 && length < field.MinLength {
		return nil, fmt.Sprintf("must be at least %d characters", field.MinLength)
	}
	if field.MaxLength > 0 && length > field.MaxLength {
		return nil, fmt.Sprintf("must be at most %d characters", field.MaxLength)
	}
	return text, ""
}

func toNumber(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		return f, err == nil
	}
	return 0, false
}

func toStrings(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		items := make([]string, 0, len(v))
		for _, item := range v {
			text, ok := item.(string)
			if !ok {
				return nil, false
			}
			items = append(items, strings.TrimSpace(text))
		}
		return items, true
	}
	return nil, false
}
