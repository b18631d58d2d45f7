package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/linguapath/backend/internal/content"
	"github.com/linguapath/backend/internal/courseflow"
	"github.com/linguapath/backend/internal/models"
	"github.com/linguapath/backend/internal/progression"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// mockProgressRepository is a mock implementation of UserProgressRepository
type mockProgressRepository struct {
	records   []models.ProgressRecord
	exists    bool
	created   bool
	err       error
	existsErr error
	createErr error

	createCalls int
}

func (m *mockProgressRepository) GetCompletedLessons(ctx context.Context, userID int, courseID string) ([]models.ProgressRecord, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.records, nil
}

func (m *mockProgressRepository) Exists(ctx context.Context, userID int, courseID string, lessonID int) (bool, error) {
	if m.existsErr != nil {
		return false, m.existsErr
	}
	return m.exists, nil
}

func (m *mockProgressRepository) Create(ctx context.Context, record *models.ProgressRecord) (bool, error) {
	m.createCalls++
	if m.createErr != nil {
		return false, m.createErr
	}
	return m.created, nil
}

// mockProfileRepository is a mock implementation of UserProfileRepository
type mockProfileRepository struct {
	profile  *models.UserProfile
	err      error
	mergeErr error

	merged models.ProfileData
}

func (m *mockProfileRepository) GetByUserID(ctx context.Context, userID int) (*models.UserProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	if m.profile == nil {
		return nil, models.ErrNotFound
	}
	return m.profile, nil
}

func (m *mockProfileRepository) MergeProfileData(ctx context.Context, userID int, data models.ProfileData) error {
	if m.mergeErr != nil {
		return m.mergeErr
	}
	m.merged = data
	return nil
}

// mockJobRepository is a mock implementation of TTSStatusRepository, TTSJobRepository and TTSRequestRepository
type mockJobRepository struct {
	statuses  map[int][]models.TTSRequestStatus
	count     int
	request   *models.TTSRequest
	items     []models.TTSRequestListItem
	ids       []int
	staleIDs  []int
	audio     map[string]string
	audioErr  error
	ok        bool
	updated   int
	err       error
	countErr  error
	createErr error
	getErr    error

	mu          sync.Mutex
	created     []models.TTSRequest
	transitions []models.TTSStatusTransition
}

func (m *mockJobRepository) GetStatusesByUserAndLessons(ctx context.Context, userID int, lessonIDs []int) (map[int][]models.TTSRequestStatus, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.statuses, nil
}

func (m *mockJobRepository) GetCompletedAudio(ctx context.Context, userID, lessonID int) (map[string]string, error) {
	if m.audioErr != nil {
		return nil, m.audioErr
	}
	return m.audio, nil
}

func (m *mockJobRepository) CountByUserAndLessons(ctx context.Context, userID int, lessonIDs []int) (int, error) {
	if m.countErr != nil {
		return 0, m.countErr
	}
	return m.count, nil
}

func (m *mockJobRepository) CreateBatch(ctx context.Context, requests []models.TTSRequest) error {
	if m.createErr != nil {
		return m.createErr
	}
	m.created = append(m.created, requests...)
	return nil
}

func (m *mockJobRepository) GetAll(ctx context.Context, page, count int, userID int, status models.TTSRequestStatus) ([]models.TTSRequestListItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.items, nil
}

func (m *mockJobRepository) GetByID(ctx context.Context, id int) (*models.TTSRequest, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if m.request == nil {
		return nil, models.ErrNotFound
	}
	return m.request, nil
}

func (m *mockJobRepository) GetIDsByStatus(ctx context.Context, status models.TTSRequestStatus, limit int) ([]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.ids, nil
}

func (m *mockJobRepository) GetStaleIDs(ctx context.Context, status models.TTSRequestStatus, olderThan time.Duration, limit int) ([]int, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.staleIDs, nil
}

func (m *mockJobRepository) TransitionStatus(ctx context.Context, id int, t models.TTSStatusTransition) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	m.transitions = append(m.transitions, t)
	return m.ok, nil
}

func (m *mockJobRepository) TransitionByUserLesson(ctx context.Context, userID, lessonID int, audioFilename string, t models.TTSStatusTransition) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.transitions = append(m.transitions, t)
	return m.updated, nil
}

// mockCatalog is a mock implementation of content.Catalog
type mockCatalog struct {
	lessons   map[int]*models.Lesson
	sentences map[int]models.SentenceTemplate
	err       error
}

func (m *mockCatalog) Lesson(lessonID int) (*models.Lesson, error) {
	if m.err != nil {
		return nil, m.err
	}
	lesson, ok := m.lessons[lessonID]
	if !ok {
		return nil, content.ErrLessonNotFound
	}
	return lesson, nil
}

func (m *mockCatalog) Sentences() (map[int]models.SentenceTemplate, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.sentences, nil
}

// mockEnqueuer is a mock implementation of RenderEnqueuer and ReviewNotifier
type mockEnqueuer struct {
	err error

	rendered []int
	reviews  int
}

func (m *mockEnqueuer) EnqueueRender(ctx context.Context, requestID int) error {
	if m.err != nil {
		return m.err
	}
	m.rendered = append(m.rendered, requestID)
	return nil
}

func (m *mockEnqueuer) EnqueueReviewRequested(ctx context.Context, userID, count int) error {
	if m.err != nil {
		return m.err
	}
	m.reviews += count
	return nil
}

func basicForm() models.PersonalizationForm {
	return models.PersonalizationForm{
		ID:            "basic",
		Title:         "About you",
		UsedInLessons: []int{3},
		Fields: []models.FormField{
			{ID: "name", Type: models.FieldTypeText, Required: true, MaxLength: 20},
			{ID: "city", Type: models.FieldTypeText},
			{ID: "level", Type: models.FieldTypeSelect, Options: []string{"A1", "A2"}},
			{ID: "languages", Type: models.FieldTypeMultiselect, Options: []string{"English", "French"}},
			{ID: "age", Type: models.FieldTypeNumber},
		},
	}
}

// [L1, L2, P basic, L3] where basic generates the audio of lesson 3
func setupTestEngine(t *testing.T) *progression.Engine {
	flow, err := courseflow.NewFlow("en-es", []models.Step{
		models.LessonStep(1),
		models.LessonStep(2),
		models.PersonalizationStep("basic"),
		models.LessonStep(3),
	})
	require.NoError(t, err)
	return progression.NewEngine(flow, courseflow.Forms{"basic": basicForm()})
}

func testCatalog() *mockCatalog {
	return &mockCatalog{
		lessons: map[int]*models.Lesson{
			1: {
				ID:    1,
				Title: "Greetings",
				Sections: map[string]models.LessonSection{
					models.SectionListenRead: {Instruction: "Listen", Audio: "l1.mp3", SentenceIDs: []int{1}},
				},
			},
			3: {
				ID:    3,
				Title: "About me",
				Sections: map[string]models.LessonSection{
					models.SectionListenRead:   {Instruction: "Listen", Audio: "l3.mp3", SentenceIDs: []int{2}},
					models.SectionListenRepeat: {Instruction: "Repeat", Audio: "l3.mp3", SentenceIDs: []int{2}},
				},
			},
		},
		sentences: map[int]models.SentenceTemplate{
			1: {ID: 1, Target: "Hola", Native: "Hello"},
			2: {ID: 2, Target: "Me llamo {name}", Native: "My name is {name}", Variables: []string{"name"},
				FallbackTarget: "Me llamo Ana", FallbackNative: "My name is Ana"},
		},
	}
}

func approvedProfile(data models.ProfileData) *mockProfileRepository {
	return &mockProfileRepository{
		profile: &models.UserProfile{UserID: 1, Status: models.AccountStatusApproved, ProfileData: data},
	}
}

func completed(lessonIDs ...int) *mockProgressRepository {
	repo := &mockProgressRepository{created: true}
	for _, id := range lessonIDs {
		repo.records = append(repo.records, models.ProgressRecord{
			UserID: 1, CourseID: "en-es", LessonID: id, Status: models.ProgressStatusCompleted,
		})
	}
	return repo
}

func newTestProgressService(t *testing.T, progress *mockProgressRepository, profile *mockProfileRepository, jobs *mockJobRepository) *progressService {
	return NewProgressService(setupTestEngine(t), progress, profile, jobs, testCatalog(), "en-es", zap.NewNop())
}
