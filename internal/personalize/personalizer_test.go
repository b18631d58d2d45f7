package personalize

import (
	"testing"

	"github.com/linguapath/backend/internal/models"
	"github.com/stretchr/testify/assert"
)

func greeting() models.SentenceTemplate {
	return models.SentenceTemplate{
		ID:             10,
		Target:         "Me llamo {name} y vivo en {city}.",
		Native:         "My name is {name} and I live in {city}.",
		Variables:      []string{"name", "city"},
		FallbackTarget: "Me llamo Ana y vivo en Madrid.",
		FallbackNative: "My name is Ana and I live in Madrid.",
	}
}

func TestPersonalize(t *testing.T) {
	tests := []struct {
		name     string
		tpl      models.SentenceTemplate
		profile  models.ProfileData
		mode     Mode
		expected Result
	}{
		{
			name:     "all variables present",
			tpl:      greeting(),
			profile:  models.ProfileData{"name": "Lee", "city": "Seoul"},
			mode:     ModeAuto,
			expected: Result{Target: "Me llamo Lee y vivo en Seoul.", Native: "My name is Lee and I live in Seoul."},
		},
		{
			name:     "nil profile returns fallback",
			tpl:      greeting(),
			profile:  nil,
			mode:     ModeAuto,
			expected: Result{Target: "Me llamo Ana y vivo en Madrid.", Native: "My name is Ana and I live in Madrid.", Fallback: true},
		},
		{
			name:     "missing variable prefers whole fallback",
			tpl:      greeting(),
			profile:  models.ProfileData{"name": "Lee"},
			mode:     ModeAuto,
			expected: Result{Target: "Me llamo Ana y vivo en Madrid.", Native: "My name is Ana and I live in Madrid.", Fallback: true},
		},
		{
			name:     "substitute mode leaves missing placeholders literal",
			tpl:      greeting(),
			profile:  models.ProfileData{"name": "Lee", "city": ""},
			mode:     ModeSubstitute,
			expected: Result{Target: "Me llamo Lee y vivo en {city}.", Native: "My name is Lee and I live in {city}."},
		},
		{
			name:     "substitute mode with nil profile",
			tpl:      greeting(),
			profile:  nil,
			mode:     ModeSubstitute,
			expected: Result{Target: "Me llamo {name} y vivo en {city}.", Native: "My name is {name} and I live in {city}."},
		},
		{
			name:     "fallback mode is verbatim",
			tpl:      greeting(),
			profile:  models.ProfileData{"name": "Lee", "city": "Seoul"},
			mode:     ModeFallback,
			expected: Result{Target: "Me llamo Ana y vivo en Madrid.", Native: "My name is Ana and I live in Madrid.", Fallback: true},
		},
		{
			name: "auto mode without fallback leaves placeholders",
			tpl: models.SentenceTemplate{
				Target:    "Soy {job}.",
				Native:    "I am a {job}.",
				Variables: []string{"job"},
			},
			profile:  models.ProfileData{},
			mode:     ModeAuto,
			expected: Result{Target: "Soy {job}.", Native: "I am a {job}."},
		},
		{
			name: "only first occurrence is replaced",
			tpl: models.SentenceTemplate{
				Target:    "{name}, {name}!",
				Native:    "{name}, {name}!",
				Variables: []string{"name"},
			},
			profile:  models.ProfileData{"name": "Lee"},
			mode:     ModeSubstitute,
			expected: Result{Target: "Lee, {name}!", Native: "Lee, {name}!"},
		},
		{
			name: "values are not escaped",
			tpl: models.SentenceTemplate{
				Target:    "Hola {name}",
				Native:    "Hi {name}",
				Variables: []string{"name"},
			},
			profile:  models.ProfileData{"name": "<b>Lee</b>"},
			mode:     ModeAuto,
			expected: Result{Target: "Hola <b>Lee</b>", Native: "Hi <b>Lee</b>"},
		},
		{
			name: "numbers and lists are rendered as text",
			tpl: models.SentenceTemplate{
				Target:    "Tengo {age} años y hablo {languages}.",
				Native:    "I am {age} and speak {languages}.",
				Variables: []string{"age", "languages"},
			},
			profile:  models.ProfileData{"age": float64(31), "languages": []any{"English", "Korean"}},
			mode:     ModeAuto,
			expected: Result{Target: "Tengo 31 años y hablo English, Korean.", Native: "I am 31 and speak English, Korean."},
		},
		{
			name: "placeholder only in native sentence",
			tpl: models.SentenceTemplate{
				Target:    "Trabajo mucho.",
				Native:    "I work a lot as a {job}.",
				Variables: []string{"job"},
			},
			profile:  models.ProfileData{"job": "nurse"},
			mode:     ModeAuto,
			expected: Result{Target: "Trabajo mucho.", Native: "I work a lot as a nurse."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Personalize(tt.tpl, tt.profile, tt.mode))
		})
	}
}

func TestPersonalize_FullProfileLeavesNoPlaceholders(t *testing.T) {
	result := Personalize(greeting(), models.ProfileData{"name": "Lee", "city": "Seoul"}, ModeAuto)

	assert.True(t, result.Complete())
	assert.Empty(t, Placeholders(result.Target))
	assert.Empty(t, Placeholders(result.Native))
}

func TestPersonalize_Idempotent(t *testing.T) {
	profile := models.ProfileData{"name": "Lee", "city": "Seoul"}
	first := Personalize(greeting(), profile, ModeAuto)

	again := greeting()
	again.Target = first.Target
	again.Native = first.Native

	for _, mode := range []Mode{ModeAuto, ModeSubstitute} {
		assert.Equal(t, first, Personalize(again, profile, mode))
		assert.Equal(t, first, Personalize(again, nil, mode))
	}
}

func TestPlaceholders(t *testing.T) {
	assert.Equal(t, []string{"name", "city"}, Placeholders("I am {name} from {city}"))
	assert.Empty(t, Placeholders("no tokens { here }"))
	assert.Empty(t, Placeholders(""))
}

func TestParseMode(t *testing.T) {
	assert.Equal(t, ModeFallback, ParseMode("fallback"))
	assert.Equal(t, ModeSubstitute, ParseMode(" Substitute "))
	assert.Equal(t, ModeAuto, ParseMode(""))
	assert.Equal(t, ModeAuto, ParseMode("bogus"))
}
