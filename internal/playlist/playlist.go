// Package playlist builds the listening practice playlist from a user's completed lessons.
// Recently completed lessons are repeated more often.
package playlist

import (
	"hash/fnv"
	"slices"
	"strconv"
	"time"

	"github.com/linguapath/backend/internal/models"
)

// practiceSections are the lesson sections whose audio is replayed, in play order
var practiceSections = []string{models.SectionListenRead, models.SectionListenRepeat}

// Track is one entry of the practice playlist
type Track struct {
	LessonID           int    `json:"lessonId"`
	LessonTitle        string `json:"lessonTitle"`
	Section            string `json:"section"`
	Audio              string `json:"audio"`
	DaysSinceCompleted int    `json:"daysSinceCompleted"`
}

// Source is the content of one completed lesson
type Source struct {
	Record models.ProgressRecord
	Lesson *models.Lesson
	// Audio maps lesson audio filenames to the personalized files of the user
	Audio map[string]string
}

// DaysSince returns the number of whole days between completedAt and now.
// A completion time after now counts as today.
func DaysSince(completedAt, now time.Time) int {
	days := int(now.Sub(completedAt) / (24 * time.Hour))
	return max(days, 0)
}

// Repetitions returns how many times the audio of a lesson completed "days" ago is played:
// 3 times when completed today, twice within a week, once for older lessons.
func Repetitions(days int) int {
	switch {
	case days <= 0:
		return 3
	case days <= 7:
		return 2
	}
	return 1
}

// Build returns the practice tracks of sources.
// The order is stable within a day: lessons are shuffled by a hash of the date and the lesson id,
// and the tracks of one lesson stay together in section order.
// An audio file used by both practice sections is played once per repetition.
func Build(sources []Source, now time.Time) []Track {
	type lessonTracks struct {
		key    uint32
		id     int
		tracks []Track
	}

	day := now.Format(time.DateOnly)
	groups := make([]lessonTracks, 0, len(sources))
	for _, src := range sources {
		if src.Lesson == nil || src.Record.Status != models.ProgressStatusCompleted {
			continue
		}

		days := DaysSince(src.Record.CompletedAt, now)
		repetitions := Repetitions(days)

		var tracks []Track
		seen := map[string]bool{}
		for _, name := range practiceSections {
			section, ok := src.Lesson.Sections[name]
			if !ok || section.Audio == "" || seen[section.Audio] {
				continue
			}
			seen[section.Audio] = true

			audio := section.Audio
			if url, ok := src.Audio[section.Audio]; ok && url != "" {
				audio = url
			}
			for range repetitions {
				tracks = append(tracks, Track{
					LessonID:           src.Lesson.ID,
					LessonTitle:        lessonTitle(src.Lesson),
					Section:            name,
					Audio:              audio,
					DaysSinceCompleted: days,
				})
			}
		}
		if len(tracks) == 0 {
			continue
		}
		groups = append(groups, lessonTracks{key: shuffleKey(day, src.Lesson.ID), id: src.Lesson.ID, tracks: tracks})
	}

	slices.SortStableFunc(groups, func(a, b lessonTracks) int {
		if a.key != b.key {
			if a.key < b.key {
				return -1
			}
			return 1
		}
		return a.id - b.id
	})

	playlist := make([]Track, 0)
	for _, g := range groups {
		playlist = append(playlist, g.tracks...)
	}
	return playlist
}

func shuffleKey(day string, lessonID int) uint32 {
	h := fnv.New32a()
	h.Write([]byte(day))
	h.Write([]byte{':'})
	h.Write([]byte(strconv.Itoa(lessonID)))
	return h.Sum32()
}

func lessonTitle(lesson *models.Lesson) string {
	if lesson.Title != "" {
		return lesson.Title
	}
	return "Lesson " + strconv.Itoa(lesson.ID)
}
