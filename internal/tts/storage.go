package tts

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// personalizedDir is the media sub directory holding per-user audio
const personalizedDir = "personalized"

// localStorage writes audio files below basePath and serves them from baseURL
type localStorage struct {
	basePath string
	baseURL  string
}

// NewLocalStorage creates a new localStorage instance
func NewLocalStorage(basePath, baseURL string) *localStorage {
	return &localStorage{
		basePath: basePath,
		baseURL:  strings.TrimRight(baseURL, "/"),
	}
}

// generatePath returns personalized/{userID}/{filename}. Directory parts of filename are dropped.
func (s *localStorage) generatePath(userID int, filename string) (string, error) {
	name := filepath.Base(filepath.Clean("/" + filename))
	if name == "/" || name == "." || name == "" {
		return "", fmt.Errorf("invalid audio filename %q", filename)
	}
	return path.Join(personalizedDir, strconv.Itoa(userID), name), nil
}

// Save writes the audio of a user's file and returns its public URL.
// The file is written under a temporary name and renamed so readers never see partial audio.
func (s *localStorage) Save(userID int, filename string, audio []byte) (string, error) {
	rel, err := s.generatePath(userID, filename)
	if err != nil {
		return "", err
	}

	full := filepath.Join(s.basePath, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0755); err != nil {
		return "", fmt.Errorf("failed to create audio directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(full), ".audio-*")
	if err != nil {
		return "", fmt.Errorf("failed to create audio file: %w", err)
	}
	if _, err := tmp.Write(audio); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to write audio file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to close audio file: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to set audio file mode: %w", err)
	}
	if err := os.Rename(tmp.Name(), full); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("failed to store audio file: %w", err)
	}

	return s.baseURL + "/" + rel, nil
}
