// Package tts renders personalized lesson scripts to audio through Google Cloud
// Text-to-Speech and stores the result on the media path.
package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// maxChunkBytes stays under the 5000 byte input limit of the API
const maxChunkBytes = 4500

// ErrEmptyText is returned when there is nothing to synthesize
var ErrEmptyText = errors.New("text is empty")

// Synthesizer turns text into MP3 audio
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
	Close() error
}

// Voice selects the voice and pace of the generated audio
type Voice struct {
	LanguageCode string
	Name         string
	SpeakingRate float64
}

type synthesizeFunc func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

type googleSynthesizer struct {
	voice      Voice
	synthesize synthesizeFunc
	close      func() error
	logger     *zap.Logger
}

// NewGoogleSynthesizer creates a synthesizer backed by Google Cloud Text-to-Speech.
// An empty credentialsFile uses the application default credentials.
func NewGoogleSynthesizer(ctx context.Context, credentialsFile string, voice Voice, logger *zap.Logger) (*googleSynthesizer, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create text-to-speech client: %w", err)
	}

	return &googleSynthesizer{
		voice: voice,
		synthesize: func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
			return client.SynthesizeSpeech(ctx, req)
		},
		close:  client.Close,
		logger: logger,
	}, nil
}

// Synthesize renders text in chunks under the API input limit and concatenates the MP3 frames
func (s *googleSynthesizer) Synthesize(ctx context.Context, text string) ([]byte, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyText
	}

	rate := s.voice.SpeakingRate
	if rate <= 0 {
		rate = 1.0
	}

	chunks := SplitChunks(text, maxChunkBytes)
	var audio []byte
	for idx, chunk := range chunks {
		s.logger.Debug("synthesizing chunk",
			zap.Int("chunk", idx+1),
			zap.Int("chunks", len(chunks)),
			zap.Int("bytes", len(chunk)),
		)

		resp, err := s.synthesize(ctx, &texttospeechpb.SynthesizeSpeechRequest{
			Input: &texttospeechpb.SynthesisInput{
				InputSource: &texttospeechpb.SynthesisInput_Text{Text: chunk},
			},
			Voice: &texttospeechpb.VoiceSelectionParams{
				LanguageCode: s.voice.LanguageCode,
				Name:         s.voice.Name,
			},
			AudioConfig: &texttospeechpb.AudioConfig{
				AudioEncoding: texttospeechpb.AudioEncoding_MP3,
				SpeakingRate:  rate,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("failed to synthesize chunk %d/%d: %w", idx+1, len(chunks), err)
		}
		audio = append(audio, resp.GetAudioContent()...)
	}

	return audio, nil
}

func (s *googleSynthesizer) Close() error {
	if s.close == nil {
		return nil
	}
	return s.close()
}

// SplitChunks splits text into pieces of at most maxBytes bytes, cutting after sentence
// punctuation when possible and never inside a UTF-8 sequence
func SplitChunks(text string, maxBytes int) []string {
	var chunks []string
	remaining := text

	for len(remaining) > 0 {
		if len(remaining) <= maxBytes {
			chunks = append(chunks, remaining)
			break
		}

		cut := 0
		for i := maxBytes; i > 0; i-- {
			switch remaining[i-1] {
			case '.', '!', '?', '\n':
				cut = i
			}
			if cut > 0 {
				break
			}
		}

		if cut == 0 {
			// no punctuation, step back to a rune boundary
			cut = maxBytes
			for cut > 0 && remaining[cut]&0xC0 == 0x80 {
				cut--
			}
			if cut == 0 {
				cut = maxBytes
			}
		}

		chunks = append(chunks, remaining[:cut])
		remaining = strings.TrimLeft(remaining[cut:], " ")
	}

	return chunks
}
