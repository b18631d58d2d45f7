// Package personalize fills personalization values into sentence templates.
package personalize

import (
	"regexp"
	"strings"

	"github.com/linguapath/backend/internal/models"
)

// Mode selects how missing personalization values are handled
type Mode string

const (
	// ModeAuto substitutes when every placeholder can be filled and otherwise
	// returns the whole fallback sentence. Without a fallback the unfilled
	// placeholders stay literal.
	ModeAuto Mode = "auto"
	// ModeSubstitute fills what it can and leaves the rest literal
	ModeSubstitute Mode = "substitute"
	// ModeFallback returns the fallback sentence verbatim
	ModeFallback Mode = "fallback"
)

// ParseMode converts a query value to a Mode. Unknown values map to ModeAuto.
func ParseMode(s string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case ModeSubstitute:
		return ModeSubstitute
	case ModeFallback:
		return ModeFallback
	}
	return ModeAuto
}

// Result is a personalized sentence pair
type Result struct {
	Target string
	Native string
	// Fallback is set when the fallback sentence was used instead of the template
	Fallback bool
}

var placeholderPattern = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Placeholders returns the names of the {placeholders} left in text, in order of appearance
func Placeholders(text string) []string {
	matches := placeholderPattern.FindAllStringSubmatch(text, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Personalize renders tpl for a user. For every variable with a value only the first
// occurrence of {variable} is replaced, in both the target and the native sentence.
// Values are inserted as is.
func Personalize(tpl models.SentenceTemplate, profile models.ProfileData, mode Mode) Result {
	if mode == ModeFallback {
		if hasFallback(tpl) {
			return fallbackOf(tpl)
		}
		return Result{Target: tpl.Target, Native: tpl.Native}
	}

	if !placeholderPattern.MatchString(tpl.Target) && !placeholderPattern.MatchString(tpl.Native) {
		return Result{Target: tpl.Target, Native: tpl.Native}
	}

	if mode != ModeSubstitute && profile == nil && hasFallback(tpl) {
		return fallbackOf(tpl)
	}

	target, native := tpl.Target, tpl.Native
	missing := false
	for _, name := range tpl.Variables {
		token := "{" + name + "}"
		if !strings.Contains(target, token) && !strings.Contains(native, token) {
			continue
		}
		value, ok := profile.Lookup(name)
		if !ok {
			missing = true
			continue
		}
		target = strings.Replace(target, token, value, 1)
		native = strings.Replace(native, token, value, 1)
	}

	if missing && mode != ModeSubstitute && hasFallback(tpl) {
		return fallbackOf(tpl)
	}
	return Result{Target: target, Native: native}
}

// Complete reports whether r has no placeholders left
func (r Result) Complete() bool {
	return !placeholderPattern.MatchString(r.Target) && !placeholderPattern.MatchString(r.Native)
}

func hasFallback(tpl models.SentenceTemplate) bool {
	return tpl.FallbackTarget != "" || tpl.FallbackNative != ""
}

func fallbackOf(tpl models.SentenceTemplate) Result {
	return Result{Target: tpl.FallbackTarget, Native: tpl.FallbackNative, Fallback: true}
}
