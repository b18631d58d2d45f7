package models

// Lesson section names
const (
	SectionListenRead   = "listenRead"
	SectionListenRepeat = "listenRepeat"
	SectionWrite        = "write"
	SectionTranslation  = "translation"
	SectionRestOfDay    = "restOfDay"
)

// SentenceTemplate represents a lesson sentence with {variable} placeholders
type SentenceTemplate struct {
	ID             int      `json:"id"`
	Target         string   `json:"target"`
	Native         string   `json:"native"`
	Variables      []string `json:"variables,omitempty"`
	FallbackTarget string   `json:"fallback_target,omitempty"`
	FallbackNative string   `json:"fallback_native,omitempty"`
}

// LessonSection represents one section of a lesson
type LessonSection struct {
	Instruction string `json:"instruction"`
	Audio       string `json:"audio,omitempty"`
	SentenceIDs []int  `json:"sentence_ids"`
}

// Lesson represents static lesson content
type Lesson struct {
	ID       int                      `json:"id"`
	Title    string                   `json:"title"`
	Sections map[string]LessonSection `json:"sections"`
}

// RenderedSentence represents a sentence after personalization
type RenderedSentence struct {
	ID       int    `json:"id"`
	Target   string `json:"target"`
	Native   string `json:"native"`
	Fallback bool   `json:"fallback,omitempty"`
}

// RenderedSection represents a lesson section ready for the view layer
type RenderedSection struct {
	Name        string             `json:"name"`
	Instruction string             `json:"instruction"`
	Audio       string             `json:"audio,omitempty"`
	Sentences   []RenderedSentence `json:"sentences"`
}

// RenderedLesson represents a lesson ready for the view layer
type RenderedLesson struct {
	ID        int               `json:"id"`
	Title     string            `json:"title"`
	Completed bool              `json:"completed"`
	Sections  []RenderedSection `json:"sections"`
}
