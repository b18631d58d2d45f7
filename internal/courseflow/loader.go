package courseflow

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/linguapath/backend/internal/models"
	"gopkg.in/yaml.v3"
)

//go:embed default_flow.yaml default_forms.yaml
var defaultsFS embed.FS

type flowFile struct {
	Course string          `yaml:"course" json:"course"`
	Flow   []flowFileEntry `yaml:"flow" json:"flow"`
}

type flowFileEntry struct {
	Type string `yaml:"type" json:"type"`
	ID   stepID `yaml:"id" json:"id"`
}

// stepID accepts both numeric lesson ids and string form ids
type stepID string

func (s *stepID) UnmarshalJSON(b []byte) error {
	var text string
	if err := json.Unmarshal(b, &text); err == nil {
		*s = stepID(text)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(b, &number); err != nil {
		return fmt.Errorf("step id must be a string or a number: %w", err)
	}
	*s = stepID(number.String())
	return nil
}

func (s *stepID) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.ScalarNode {
		return fmt.Errorf("line %d: step id must be a scalar", value.Line)
	}
	*s = stepID(value.Value)
	return nil
}

// Load reads a course flow from a YAML or JSON file
func Load(path string) (*Flow, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}

	flow, err := ParseFlow(data, formatOf(path))
	if err != nil {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}
	return flow, nil
}

// LoadForms reads personalization forms from a YAML or JSON file
func LoadForms(path string) (Forms, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}

	forms, err := ParseForms(data, formatOf(path))
	if err != nil {
		return nil, &ConfigLoadError{Path: path, Err: err}
	}
	return forms, nil
}

// Default returns the course flow bundled with the binary
func Default() (*Flow, error) {
	data, err := defaultsFS.ReadFile("default_flow.yaml")
	if err != nil {
		return nil, &ConfigLoadError{Path: "default_flow.yaml", Err: err}
	}
	flow, err := ParseFlow(data, "yaml")
	if err != nil {
		return nil, &ConfigLoadError{Path: "default_flow.yaml", Err: err}
	}
	return flow, nil
}

// DefaultForms returns the personalization forms bundled with the binary
func DefaultForms() (Forms, error) {
	data, err := defaultsFS.ReadFile("default_forms.yaml")
	if err != nil {
		return nil, &ConfigLoadError{Path: "default_forms.yaml", Err: err}
	}
	forms, err := ParseForms(data, "yaml")
	if err != nil {
		return nil, &ConfigLoadError{Path: "default_forms.yaml", Err: err}
	}
	return forms, nil
}

// ParseFlow decodes a course flow document. format is "yaml" or "json".
func ParseFlow(data []byte, format string) (*Flow, error) {
	var doc flowFile
	if err := unmarshal(data, format, &doc); err != nil {
		return nil, err
	}

	steps := make([]models.Step, 0, len(doc.Flow))
	for i, entry := range doc.Flow {
		id := strings.TrimSpace(string(entry.ID))
		switch models.StepKind(strings.ToLower(strings.TrimSpace(entry.Type))) {
		case models.StepKindLesson:
			lessonID, err := strconv.Atoi(id)
			if err != nil {
				return nil, fmt.Errorf("step %d: invalid lesson id %q", i, id)
			}
			steps = append(steps, models.LessonStep(lessonID))
		case models.StepKindPersonalization:
			steps = append(steps, models.PersonalizationStep(id))
		default:
			return nil, fmt.Errorf("step %d: unknown step type %q", i, entry.Type)
		}
	}

	return NewFlow(doc.Course, steps)
}

// ParseForms decodes a personalization forms document keyed by form id
func ParseForms(data []byte, format string) (Forms, error) {
	raw := map[string]models.PersonalizationForm{}
	if err := unmarshal(data, format, &raw); err != nil {
		return nil, err
	}

	forms := make(Forms, len(raw))
	for id, form := range raw {
		if form.ID == "" {
			form.ID = id
		}
		if form.ID != id {
			return nil, fmt.Errorf("form %q declares mismatching id %q", id, form.ID)
		}
		seen := make(map[string]struct{}, len(form.Fields))
		for _, field := range form.Fields {
			if field.ID == "" {
				return nil, fmt.Errorf("form %q has a field without id", id)
			}
			if _, dup := seen[field.ID]; dup {
				return nil, fmt.Errorf("form %q has duplicate field %q", id, field.ID)
			}
			seen[field.ID] = struct{}{}
		}
		forms[id] = form
	}

	return forms, nil
}

func unmarshal(data []byte, format string, out any) error {
	switch format {
	case "json":
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse json: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse yaml: %w", err)
		}
	}
	return nil
}

func formatOf(path string) string {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return "json"
	}
	return "yaml"
}
