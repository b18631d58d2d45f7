package models

// FieldType represents the input type of a personalization form field
type FieldType string

const (
	FieldTypeText        FieldType = "text"
	FieldTypeTextarea    FieldType = "textarea"
	FieldTypeNumber      FieldType = "number"
	FieldTypeSelect      FieldType = "select"
	FieldTypeMultiselect FieldType = "multiselect"
)

// FormField represents one field of a personalization form
type FormField struct {
	ID        string    `json:"id" yaml:"id"`
	Label     string    `json:"label" yaml:"label"`
	Type      FieldType `json:"type" yaml:"type"`
	Required  bool      `json:"required" yaml:"required"`
	MinLength int       `json:"minLength,omitempty" yaml:"minLength"`
	MaxLength int       `json:"maxLength,omitempty" yaml:"maxLength"`
	Options   []string  `json:"options,omitempty" yaml:"options"`
}

// PersonalizationForm represents a declarative personalization form.
// UsedInLessons lists the lessons whose audio is generated from the form's answers.
type PersonalizationForm struct {
	ID            string      `json:"id" yaml:"id"`
	Title         string      `json:"title" yaml:"title"`
	Description   string      `json:"description,omitempty" yaml:"description"`
	Fields        []FormField `json:"fields" yaml:"fields"`
	UsedInLessons []int       `json:"usedInLessons,omitempty" yaml:"usedInLessons"`
}

// RequiredFields returns the ids of the required fields
func (f *PersonalizationForm) RequiredFields() []string {
	ids := make([]string, 0, len(f.Fields))
	for _, field := range f.Fields {
		if field.Required {
			ids = append(ids, field.ID)
		}
	}
	return ids
}

// TriggersGeneration reports whether submitting the form creates content generation jobs
func (f *PersonalizationForm) TriggersGeneration() bool {
	return len(f.UsedInLessons) > 0
}
