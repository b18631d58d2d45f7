package personalize

import (
	"slices"
	"strings"

	"github.com/linguapath/backend/internal/models"
)

// audioSection is a lesson section that is played from a generated audio file
type audioSection struct {
	Name        string
	RepeatCount int
}

// audioSections lists the sections with audio in processing order.
// Listen and repeat plays each sentence several times.
var audioSections = []audioSection{
	{Name: models.SectionListenRead, RepeatCount: 1},
	{Name: models.SectionListenRepeat, RepeatCount: 5},
	{Name: models.SectionTranslation, RepeatCount: 1},
}

const sentenceSeparator = ". "

// RepeatCount returns how many times a sentence is spoken in the audio of section
func RepeatCount(section string) int {
	for _, s := range audioSections {
		if s.Name == section {
			return s.RepeatCount
		}
	}
	return 0
}

type audioGroup struct {
	filename    string
	sections    []string
	sentenceIDs []int
	repeat      int
}

// BuildAudioRequests builds one pending content generation job per distinct audio file of lesson.
// Sections sharing an audio file are merged and take the highest repeat count.
// Sentences are personalized, repeated, then joined in sentence_ids order.
// Sentence ids missing from sentences are skipped.
func BuildAudioRequests(userID int, lesson *models.Lesson, sentences map[int]models.SentenceTemplate, profile models.ProfileData) []models.TTSRequest {
	if lesson == nil {
		return nil
	}

	var groups []*audioGroup
	byFile := map[string]*audioGroup{}
	for _, section := range audioSections {
		data, ok := lesson.Sections[section.Name]
		if !ok || data.Audio == "" || len(data.SentenceIDs) == 0 {
			continue
		}

		group, ok := byFile[data.Audio]
		if !ok {
			group = &audioGroup{filename: data.Audio, sentenceIDs: data.SentenceIDs}
			byFile[data.Audio] = group
			groups = append(groups, group)
		}
		group.sections = append(group.sections, section.Name)
		group.repeat = max(group.repeat, section.RepeatCount)
	}

	requests := make([]models.TTSRequest, 0, len(groups))
	for _, group := range groups {
		var targets, natives []string
		for _, id := range group.sentenceIDs {
			tpl, ok := sentences[id]
			if !ok {
				continue
			}
			if tpl.Native == "" {
				tpl.Native = tpl.FallbackNative
			}
			result := Personalize(tpl, profile, ModeAuto)
			for i := 0; i < group.repeat; i++ {
				targets = append(targets, result.Target)
				natives = append(natives, result.Native)
			}
		}
		if len(targets) == 0 {
			continue
		}

		requests = append(requests, models.TTSRequest{
			UserID:           userID,
			LessonID:         lesson.ID,
			SectionName:      strings.Join(group.sections, ","),
			AudioFilename:    group.filename,
			PersonalizedText: strings.Join(targets, sentenceSeparator),
			NativeText:       strings.Join(natives, sentenceSeparator),
			SentenceCount:    len(group.sentenceIDs),
			RepeatCount:      group.repeat,
			Status:           models.TTSRequestStatusPending,
		})
	}
	return requests
}

// RenderLesson personalizes every section of lesson for display
func RenderLesson(lesson *models.Lesson, sentences map[int]models.SentenceTemplate, profile models.ProfileData, mode Mode) *models.RenderedLesson {
	rendered := &models.RenderedLesson{ID: lesson.ID, Title: lesson.Title}

	for _, name := range sectionOrder(lesson) {
		section := lesson.Sections[name]
		out := models.RenderedSection{
			Name:        name,
			Instruction: section.Instruction,
			Audio:       section.Audio,
			Sentences:   make([]models.RenderedSentence, 0, len(section.SentenceIDs)),
		}
		for _, id := range section.SentenceIDs {
			tpl, ok := sentences[id]
			if !ok {
				continue
			}
			result := Personalize(tpl, profile, mode)
			out.Sentences = append(out.Sentences, models.RenderedSentence{
				ID:       id,
				Target:   result.Target,
				Native:   result.Native,
				Fallback: result.Fallback,
			})
		}
		rendered.Sections = append(rendered.Sections, out)
	}
	return rendered
}

// UsePersonalizedAudio points every section whose audio file was generated for the user at the generated file.
// Sections without a generated file keep the lesson audio.
func UsePersonalizedAudio(lesson *models.RenderedLesson, urls map[string]string) {
	if lesson == nil {
		return
	}
	for i, section := range lesson.Sections {
		if url, ok := urls[section.Audio]; ok && url != "" {
			lesson.Sections[i].Audio = url
		}
	}
}

var knownSectionOrder = []string{
	models.SectionListenRead,
	models.SectionListenRepeat,
	models.SectionWrite,
	models.SectionTranslation,
	models.SectionRestOfDay,
}

// sectionOrder returns the known sections first, then any others sorted by name
func sectionOrder(lesson *models.Lesson) []string {
	order := make([]string, 0, len(lesson.Sections))
	known := map[string]bool{}
	for _, name := range knownSectionOrder {
		known[name] = true
		if _, ok := lesson.Sections[name]; ok {
			order = append(order, name)
		}
	}

	var rest []string
	for name := range lesson.Sections {
		if !known[name] {
			rest = append(rest, name)
		}
	}
	slices.Sort(rest)
	return append(order, rest...)
}
