package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/linguapath/backend/internal/content"
	"github.com/linguapath/backend/internal/gate"
	"github.com/linguapath/backend/internal/models"
	"github.com/linguapath/backend/internal/monitoring"
	"github.com/linguapath/backend/internal/personalize"
	"github.com/linguapath/backend/internal/playlist"
	"github.com/linguapath/backend/internal/progression"
	"go.uber.org/zap"
)

// UserProgressRepository defines the interface for user progress repository
type UserProgressRepository interface {
	// GetCompletedLessons retrieves the completed lessons of a user in a course
	//
	// "userID" parameter is used to identify the user.
	// "courseID" parameter is used to identify the course.
	//
	// If some error occurs during data retrieve, the error will be returned together with "nil" value.
	GetCompletedLessons(ctx context.Context, userID int, courseID string) ([]models.ProgressRecord, error)
	// Exists checks if a progress record exists for user, course and lesson
	//
	// If some error occurs during data retrieve, the error will be returned together with "false" value.
	Exists(ctx context.Context, userID int, courseID string, lessonID int) (bool, error)
	// Create inserts a progress record
	//
	// "record" parameter is used to insert a progress record. Its ID is filled on success.
	//
	// Returns "false" without error if the record already exists.
	// If some error occurs during data insert, the error will be returned.
	Create(ctx context.Context, record *models.ProgressRecord) (bool, error)
}

// UserProfileRepository defines the interface for user profile repository
type UserProfileRepository interface {
	// GetByUserID retrieves the profile of a user
	//
	// Returns models.ErrNotFound if the user has no profile row yet.
	// If some other error occurs during data retrieve, the error will be returned together with "nil" value.
	GetByUserID(ctx context.Context, userID int) (*models.UserProfile, error)
	// MergeProfileData overlays "data" on the stored personalization data of a user
	//
	// A missing profile row is created with pending status. An existing row keeps its status.
	// If some error occurs during data update, the error will be returned.
	MergeProfileData(ctx context.Context, userID int, data models.ProfileData) error
}

// TTSStatusRepository defines the read access to content generation job statuses
type TTSStatusRepository interface {
	// GetStatusesByUserAndLessons retrieves the job statuses of a user grouped by lesson
	//
	// "lessonIDs" parameter is used to limit the lessons to read.
	//
	// If some error occurs during data retrieve, the error will be returned together with "nil" value.
	GetStatusesByUserAndLessons(ctx context.Context, userID int, lessonIDs []int) (map[int][]models.TTSRequestStatus, error)
	// GetCompletedAudio retrieves the audio URLs of the completed jobs of a user's lesson
	//
	// The result maps the lesson audio filename to the URL of the personalized file.
	// If some error occurs during data retrieve, the error will be returned together with "nil" value.
	GetCompletedAudio(ctx context.Context, userID, lessonID int) (map[string]string, error)
}

// Viewer identifies who is asking for a page view
type Viewer struct {
	UserID        int
	Authenticated bool
}

// CurrentStep is the derived position of a user in the course
type CurrentStep struct {
	Step               models.Step `json:"step"`
	Path               string      `json:"path"`
	ProgressPercentage int         `json:"progressPercentage"`
	CompletedLessons   []int       `json:"completedLessons"`
}

// CompletionResult is the outcome of completing a lesson
type CompletionResult struct {
	LessonID         int                     `json:"lessonId"`
	AlreadyCompleted bool                    `json:"alreadyCompleted"`
	Next             *models.Step            `json:"next,omitempty"`
	NextPath         string                  `json:"nextPath,omitempty"`
	NextStatus       *progression.StatusInfo `json:"nextStatus,omitempty"`
}

// LessonView is a gate decision for a lesson together with its rendered content
type LessonView struct {
	Decision gate.Decision          `json:"decision"`
	Lesson   *models.RenderedLesson `json:"lesson,omitempty"`
}

// Playlist is the listening practice playlist built from completed lessons
type Playlist struct {
	Tracks []playlist.Track `json:"tracks"`
}

type progressService struct {
	engine       *progression.Engine
	gate         *gate.Gate
	progressRepo UserProgressRepository
	profileRepo  UserProfileRepository
	jobRepo      TTSStatusRepository
	catalog      content.Catalog
	courseID     string
	logger       *zap.Logger
}

// NewProgressService creates a new progress service
func NewProgressService(
	engine *progression.Engine,
	progressRepo UserProgressRepository,
	profileRepo UserProfileRepository,
	jobRepo TTSStatusRepository,
	catalog content.Catalog,
	courseID string,
	logger *zap.Logger,
) *progressService {
	return &progressService{
		engine:       engine,
		gate:         gate.New(engine),
		progressRepo: progressRepo,
		profileRepo:  profileRepo,
		jobRepo:      jobRepo,
		catalog:      catalog,
		courseID:     courseID,
		logger:       logger,
	}
}

// LoadSnapshot reads the account status, completed lessons and job statuses of a user.
// Any read failure is returned as *StoreReadError.
func (s *progressService) LoadSnapshot(ctx context.Context, userID int) (*progression.Snapshot, error) {
	snap := &progression.Snapshot{
		UserID: userID,
		Status: models.AccountStatusPending,
		Jobs:   map[int][]models.TTSRequestStatus{},
	}

	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return snap, nil
	case err != nil:
		return nil, &StoreReadError{Op: "load account status", Err: err}
	}
	snap.Status = profile.Status
	snap.ProfileData = profile.ProfileData

	if !snap.Approved() {
		return snap, nil
	}

	errChan := make(chan error, 2)
	var records []models.ProgressRecord
	var jobs map[int][]models.TTSRequestStatus

	go func() {
		var err error
		records, err = s.progressRepo.GetCompletedLessons(ctx, userID, s.courseID)
		if err != nil {
			errChan <- &StoreReadError{Op: "load completed lessons", Err: err}
			return
		}
		errChan <- nil
	}()

	go func() {
		var err error
		jobs, err = s.jobRepo.GetStatusesByUserAndLessons(ctx, userID, s.engine.DependentLessons())
		if err != nil {
			errChan <- &StoreReadError{Op: "load content generation jobs", Err: err}
			return
		}
		errChan <- nil
	}()

	var firstErr error
	for range 2 {
		if err := <-errChan; err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if firstErr != nil {
		return nil, firstErr
	}

	for _, record := range records {
		if record.Status == models.ProgressStatusCompleted {
			snap.CompletedLessons = append(snap.CompletedLessons, record.LessonID)
		}
	}
	if jobs != nil {
		snap.Jobs = jobs
	}

	for _, drift := range s.engine.Drift(snap) {
		s.logger.Warn("ignoring data drift", zap.Error(drift))
	}

	return snap, nil
}

// Resolve loads the user state and applies the step gate to a page view
func (s *progressService) Resolve(ctx context.Context, viewer Viewer, step models.Step) (gate.Decision, *progression.Snapshot) {
	req := gate.Request{Authenticated: viewer.Authenticated, Step: step}
	if viewer.Authenticated {
		req.Snapshot, req.SnapshotErr = s.LoadSnapshot(ctx, viewer.UserID)
		if req.SnapshotErr != nil {
			s.logger.Error("failed to load user state",
				zap.Int("user_id", viewer.UserID),
				zap.String("step", step.String()),
				zap.Error(req.SnapshotErr),
			)
		}
	}
	return s.gate.Resolve(req), req.Snapshot
}

// ViewLesson resolves a lesson page view and renders the lesson when the user may see it
func (s *progressService) ViewLesson(ctx context.Context, viewer Viewer, lessonID int, mode personalize.Mode) (*LessonView, error) {
	decision, snap := s.Resolve(ctx, viewer, models.LessonStep(lessonID))
	view := &LessonView{Decision: decision}
	if decision.Action != gate.ActionRender {
		return view, nil
	}

	lesson, err := s.catalog.Lesson(lessonID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lesson %d: %w", lessonID, err)
	}
	sentences, err := s.catalog.Sentences()
	if err != nil {
		return nil, fmt.Errorf("failed to load sentences: %w", err)
	}

	view.Lesson = personalize.RenderLesson(lesson, sentences, snap.ProfileData, mode)
	view.Lesson.Completed = snap.HasCompleted(lessonID)

	if s.engine.DependsOnContent(lessonID) {
		urls, err := s.jobRepo.GetCompletedAudio(ctx, viewer.UserID, lessonID)
		if err != nil {
			return nil, &StoreReadError{Op: "load personalized audio", Err: err}
		}
		personalize.UsePersonalizedAudio(view.Lesson, urls)
	}
	return view, nil
}

// CanAccess reports whether the user may enter step
func (s *progressService) CanAccess(ctx context.Context, userID int, step models.Step) (bool, error) {
	snap, err := s.LoadSnapshot(ctx, userID)
	if err != nil {
		return false, err
	}
	return s.engine.CanAccess(snap, step), nil
}

// NextStep returns the step that follows step in the course flow
func (s *progressService) NextStep(step models.Step) (models.Step, bool) {
	return s.engine.NextStep(step)
}

// GetCurrentStep derives the step the user should be on from their completion history
func (s *progressService) GetCurrentStep(ctx context.Context, userID int) (*CurrentStep, error) {
	snap, err := s.LoadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !snap.Approved() {
		return nil, ErrNotApproved
	}

	step := s.engine.CurrentStep(snap)
	completed := snap.CompletedLessons
	if completed == nil {
		completed = []int{}
	}
	return &CurrentStep{
		Step:               step,
		Path:               step.Path(),
		ProgressPercentage: s.engine.ProgressPercentage(snap),
		CompletedLessons:   completed,
	}, nil
}

// ReviewPlaylist builds the listening practice playlist of a user from their completed lessons.
// Lessons with generated content play the personalized audio. Completed lessons missing from
// the course content are skipped.
func (s *progressService) ReviewPlaylist(ctx context.Context, userID int) (*Playlist, error) {
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	switch {
	case errors.Is(err, models.ErrNotFound):
		return nil, ErrNotApproved
	case err != nil:
		return nil, &StoreReadError{Op: "load account status", Err: err}
	}
	if profile.Status != models.AccountStatusApproved {
		return nil, ErrNotApproved
	}

	records, err := s.progressRepo.GetCompletedLessons(ctx, userID, s.courseID)
	if err != nil {
		return nil, &StoreReadError{Op: "load completed lessons", Err: err}
	}

	sources := make([]playlist.Source, 0, len(records))
	for _, record := range records {
		lesson, err := s.catalog.Lesson(record.LessonID)
		if err != nil {
			s.logger.Warn("skipping completed lesson without content",
				zap.Int("user_id", userID),
				zap.Int("lesson_id", record.LessonID),
				zap.Error(err),
			)
			continue
		}

		src := playlist.Source{Record: record, Lesson: lesson}
		if s.engine.DependsOnContent(record.LessonID) {
			if src.Audio, err = s.jobRepo.GetCompletedAudio(ctx, userID, record.LessonID); err != nil {
				return nil, &StoreReadError{Op: "load personalized audio", Err: err}
			}
		}
		sources = append(sources, src)
	}

	return &Playlist{Tracks: playlist.Build(sources, time.Now())}, nil
}

// CheckStatus re-reads the generation status of a lesson. It performs no writes
// and is safe to repeat.
func (s *progressService) CheckStatus(ctx context.Context, userID, lessonID int) (progression.StatusInfo, error) {
	snap, err := s.LoadSnapshot(ctx, userID)
	if err != nil {
		return progression.UnavailableStatus(lessonID), err
	}
	if !snap.Approved() {
		return progression.StatusInfo{LessonID: lessonID}, ErrNotApproved
	}
	return s.engine.StatusInfo(snap, lessonID), nil
}

// CompleteLesson records that the user finished a lesson and returns the step that follows.
// Completing a lesson twice succeeds without a second record. When the write fails no
// next step is returned.
func (s *progressService) CompleteLesson(ctx context.Context, userID, lessonID int) (*CompletionResult, error) {
	snap, err := s.LoadSnapshot(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !snap.Approved() {
		return nil, ErrNotApproved
	}

	step := models.LessonStep(lessonID)
	if access := s.engine.Access(snap, step); !access.Allowed {
		return nil, fmt.Errorf("%w: %s", ErrStepNotAccessible, access.Reason)
	}

	result := &CompletionResult{LessonID: lessonID}

	exists, err := s.progressRepo.Exists(ctx, userID, s.courseID, lessonID)
	if err != nil {
		return nil, &StoreReadError{Op: "check lesson completion", Err: err}
	}

	if exists {
		result.AlreadyCompleted = true
	} else {
		created, err := s.progressRepo.Create(ctx, &models.ProgressRecord{
			UserID:      userID,
			CourseID:    s.courseID,
			LessonID:    lessonID,
			Status:      models.ProgressStatusCompleted,
			CompletedAt: time.Now().UTC(),
		})
		if err != nil {
			monitoring.LessonCompletions.WithLabelValues("error").Inc()
			s.logger.Error("failed to record lesson completion",
				zap.Int("user_id", userID),
				zap.Int("lesson_id", lessonID),
				zap.Error(err),
			)
			return nil, &StoreWriteError{Op: "record lesson completion", Err: err}
		}
		result.AlreadyCompleted = !created
	}

	if result.AlreadyCompleted {
		monitoring.LessonCompletions.WithLabelValues("duplicate").Inc()
	} else {
		monitoring.LessonCompletions.WithLabelValues("created").Inc()
	}

	// The write is acknowledged, navigate from the state we just wrote
	snap = snap.WithCompleted(lessonID)
	if next, ok := s.engine.NextStep(step); ok {
		result.Next = &next
		result.NextPath = next.Path()
		if next.IsLesson() && s.engine.DependsOnContent(next.LessonID) {
			status := s.engine.StatusInfo(snap, next.LessonID)
			result.NextStatus = &status
		}
	}

	s.logger.Info("lesson completed",
		zap.Int("user_id", userID),
		zap.Int("lesson_id", lessonID),
		zap.Bool("already_completed", result.AlreadyCompleted),
	)

	return result, nil
}
