// Package content reads static lesson content: sentence templates and lesson section layouts.
package content

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/linguapath/backend/internal/models"
)

// ErrLessonNotFound is returned when no content file exists for a lesson
var ErrLessonNotFound = fmt.Errorf("lesson content %w", models.ErrNotFound)

// Catalog provides static course content
type Catalog interface {
	// Lesson returns the layout of a lesson.
	// Returns ErrLessonNotFound if the lesson has no content file.
	Lesson(lessonID int) (*models.Lesson, error)
	// Sentences returns every sentence template keyed by sentence id
	Sentences() (map[int]models.SentenceTemplate, error)
}

// fileCatalog reads sentences.json and lessons/lesson-NNN.json from a directory.
// Files are read once and cached for the life of the process.
type fileCatalog struct {
	basePath string

	mu        sync.RWMutex
	sentences map[int]models.SentenceTemplate
	lessons   map[int]*models.Lesson
}

// NewFileCatalog creates a catalog over the content directory basePath
func NewFileCatalog(basePath string) *fileCatalog {
	return &fileCatalog{
		basePath: basePath,
		lessons:  make(map[int]*models.Lesson),
	}
}

// LessonPath returns the content file path of a lesson relative to the content directory
func LessonPath(lessonID int) string {
	return filepath.Join("lessons", fmt.Sprintf("lesson-%03d.json", lessonID))
}

func (c *fileCatalog) Lesson(lessonID int) (*models.Lesson, error) {
	c.mu.RLock()
	lesson, ok := c.lessons[lessonID]
	c.mu.RUnlock()
	if ok {
		return lesson, nil
	}

	data, err := os.ReadFile(filepath.Join(c.basePath, LessonPath(lessonID)))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrLessonNotFound
		}
		return nil, fmt.Errorf("failed to read lesson %d: %w", lessonID, err)
	}

	lesson = &models.Lesson{}
	if err := json.Unmarshal(data, lesson); err != nil {
		return nil, fmt.Errorf("failed to parse lesson %d: %w", lessonID, err)
	}
	if lesson.ID == 0 {
		lesson.ID = lessonID
	}

	c.mu.Lock()
	c.lessons[lessonID] = lesson
	c.mu.Unlock()
	return lesson, nil
}

func (c *fileCatalog) Sentences() (map[int]models.SentenceTemplate, error) {
	c.mu.RLock()
	sentences := c.sentences
	c.mu.RUnlock()
	if sentences != nil {
		return sentences, nil
	}

	data, err := os.ReadFile(filepath.Join(c.basePath, "sentences.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read sentences: %w", err)
	}

	raw := map[string]models.SentenceTemplate{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse sentences: %w", err)
	}

	sentences = make(map[int]models.SentenceTemplate, len(raw))
	for key, tpl := range raw {
		id, err := strconv.Atoi(key)
		if err != nil {
			return nil, fmt.Errorf("invalid sentence id %q", key)
		}
		tpl.ID = id
		sentences[id] = tpl
	}

	c.mu.Lock()
	c.sentences = sentences
	c.mu.Unlock()
	return sentences, nil
}
