package personalize

import (
	"testing"

	"github.com/linguapath/backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lessonSeven() *models.Lesson {
	return &models.Lesson{
		ID:    7,
		Title: "About me",
		Sections: map[string]models.LessonSection{
			models.SectionListenRead:   {Instruction: "Listen and read", Audio: "lesson-007-main.mp3", SentenceIDs: []int{1, 2}},
			models.SectionListenRepeat: {Instruction: "Listen and repeat", Audio: "lesson-007-main.mp3", SentenceIDs: []int{1, 2}},
			models.SectionWrite:        {Instruction: "Write", SentenceIDs: []int{1}},
			models.SectionTranslation:  {Instruction: "Translate", Audio: "lesson-007-translation.mp3", SentenceIDs: []int{2, 99}},
		},
	}
}

func lessonSentences() map[int]models.SentenceTemplate {
	return map[int]models.SentenceTemplate{
		1: {ID: 1, Target: "Me llamo {name}", Native: "My name is {name}", Variables: []string{"name"}},
		2: {ID: 2, Target: "Vivo en {country}", FallbackNative: "I live in {country}", Variables: []string{"country"}},
	}
}

func TestBuildAudioRequests(t *testing.T) {
	profile := models.ProfileData{"name": "Lee", "country": "Korea"}

	requests := BuildAudioRequests(42, lessonSeven(), lessonSentences(), profile)
	require.Len(t, requests, 2)

	main := requests[0]
	assert.Equal(t, 42, main.UserID)
	assert.Equal(t, 7, main.LessonID)
	assert.Equal(t, "lesson-007-main.mp3", main.AudioFilename)
	assert.Equal(t, "listenRead,listenRepeat", main.SectionName)
	assert.Equal(t, 5, main.RepeatCount)
	assert.Equal(t, 2, main.SentenceCount)
	assert.Equal(t, models.TTSRequestStatusPending, main.Status)
	assert.Equal(t,
		"Me llamo Lee. Me llamo Lee. Me llamo Lee. Me llamo Lee. Me llamo Lee. "+
			"Vivo en Korea. Vivo en Korea. Vivo en Korea. Vivo en Korea. Vivo en Korea",
		main.PersonalizedText)

	translation := requests[1]
	assert.Equal(t, "lesson-007-translation.mp3", translation.AudioFilename)
	assert.Equal(t, "translation", translation.SectionName)
	assert.Equal(t, 1, translation.RepeatCount)
	assert.Equal(t, 2, translation.SentenceCount)
	assert.Equal(t, "Vivo en Korea", translation.PersonalizedText)
	assert.Equal(t, "I live in Korea", translation.NativeText)
}

func TestBuildAudioRequests_NoAudio(t *testing.T) {
	lesson := &models.Lesson{
		ID: 3,
		Sections: map[string]models.LessonSection{
			models.SectionWrite: {SentenceIDs: []int{1}},
		},
	}
	assert.Empty(t, BuildAudioRequests(1, lesson, lessonSentences(), nil))
	assert.Nil(t, BuildAudioRequests(1, nil, lessonSentences(), nil))

	unknown := &models.Lesson{
		ID: 4,
		Sections: map[string]models.LessonSection{
			models.SectionListenRead: {Audio: "a.mp3", SentenceIDs: []int{500}},
		},
	}
	assert.Empty(t, BuildAudioRequests(1, unknown, lessonSentences(), nil))
}

func TestRepeatCount(t *testing.T) {
	assert.Equal(t, 1, RepeatCount(models.SectionListenRead))
	assert.Equal(t, 5, RepeatCount(models.SectionListenRepeat))
	assert.Equal(t, 1, RepeatCount(models.SectionTranslation))
	assert.Equal(t, 0, RepeatCount(models.SectionWrite))
}

func TestRenderLesson(t *testing.T) {
	lesson := lessonSeven()
	lesson.Sections["extra"] = models.LessonSection{Instruction: "Bonus", SentenceIDs: []int{1}}

	rendered := RenderLesson(lesson, lessonSentences(), models.ProfileData{"name": "Lee"}, ModeSubstitute)

	require.Len(t, rendered.Sections, 5)
	names := make([]string, 0, len(rendered.Sections))
	for _, section := range rendered.Sections {
		names = append(names, section.Name)
	}
	assert.Equal(t, []string{"listenRead", "listenRepeat", "write", "translation", "extra"}, names)

	assert.Equal(t, "Me llamo Lee", rendered.Sections[0].Sentences[0].Target)
	assert.Equal(t, "Vivo en {country}", rendered.Sections[0].Sentences[1].Target)
	assert.Len(t, rendered.Sections[3].Sentences, 1, "unknown sentence ids are skipped")
	assert.Equal(t, 7, rendered.ID)
	assert.Equal(t, "About me", rendered.Title)
}

func TestUsePersonalizedAudio(t *testing.T) {
	lesson := &models.RenderedLesson{Sections: []models.RenderedSection{
		{Name: models.SectionListenRead, Audio: "l7.mp3"},
		{Name: models.SectionWrite},
		{Name: models.SectionTranslation, Audio: "l7-t.mp3"},
	}}

	UsePersonalizedAudio(lesson, map[string]string{"l7.mp3": "/media/personalized/4/l7.mp3"})

	assert.Equal(t, "/media/personalized/4/l7.mp3", lesson.Sections[0].Audio)
	assert.Empty(t, lesson.Sections[1].Audio)
	assert.Equal(t, "l7-t.mp3", lesson.Sections[2].Audio)

	assert.NotPanics(t, func() { UsePersonalizedAudio(nil, nil) })
}
