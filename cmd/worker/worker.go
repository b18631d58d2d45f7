package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/linguapath/backend/internal/models"
	"github.com/linguapath/backend/internal/monitoring"
	"github.com/linguapath/backend/internal/services"
	"github.com/linguapath/backend/internal/tasks"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// JobProcessor defines the worker side of the content generation job lifecycle
type JobProcessor interface {
	// StartProcessing claims an approved job and returns it
	//
	// "id" parameter is used to identify the job.
	//
	// If the job is not approved, ErrInvalidTransition will be returned together with "nil" value.
	StartProcessing(ctx context.Context, id int) (*models.TTSRequest, error)
	// Complete marks a processing job as completed with the URL of its audio
	//
	// If some error occurs during data update, the error will be returned.
	Complete(ctx context.Context, id int, audioURL string) error
	// Fail marks a processing job as failed so an admin can approve it again
	//
	// If some error occurs during data update, the error will be returned.
	Fail(ctx context.Context, id int) error
}

// AudioSynthesizer turns a personalized script into MP3 audio
type AudioSynthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// AudioStorage stores the audio of a user and returns its public URL
type AudioStorage interface {
	Save(userID int, filename string, audio []byte) (string, error)
}

// EmailSender sends plain text emails
type EmailSender interface {
	Send(to, subject, body string) error
}

// Worker handles task processing
type Worker struct {
	logger       *zap.Logger
	jobs         JobProcessor
	synthesizer  AudioSynthesizer
	storage      AudioStorage
	sender       EmailSender
	adminEmail   string
	synthTimeout time.Duration
}

// NewWorker creates a new worker instance
func NewWorker(
	logger *zap.Logger,
	jobs JobProcessor,
	synthesizer AudioSynthesizer,
	storage AudioStorage,
	sender EmailSender,
	adminEmail string,
	synthTimeout time.Duration,
) *Worker {
	return &Worker{
		logger:       logger,
		jobs:         jobs,
		synthesizer:  synthesizer,
		storage:      storage,
		sender:       sender,
		adminEmail:   adminEmail,
		synthTimeout: synthTimeout,
	}
}

// HandleRenderAudio renders the audio of one approved job.
// Synthesis and storage failures mark the job failed and are not retried by asynq:
// the job is retried only after an admin approves it again.
// A job whose result cannot be recorded stays in processing until the scheduler recovers it.
func (w *Worker) HandleRenderAudio(ctx context.Context, t *asynq.Task) error {
	id, err := tasks.ParseRenderAudioPayload(t.Payload())
	if err != nil {
		w.logger.Error("dropping render task", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	job, err := w.jobs.StartProcessing(ctx, id)
	if err != nil {
		if errors.Is(err, services.ErrInvalidTransition) || errors.Is(err, models.ErrNotFound) {
			// rejected, already rendered or claimed by another worker
			w.logger.Info("skipping render task", zap.Int("request_id", id), zap.Error(err))
			return nil
		}
		return fmt.Errorf("failed to claim tts request %d: %w", id, err)
	}

	url, err := w.render(ctx, job)
	if err != nil {
		w.logger.Error("failed to render audio",
			zap.Int("request_id", id),
			zap.Int("user_id", job.UserID),
			zap.Int("lesson_id", job.LessonID),
			zap.Error(err),
		)
		if failErr := w.jobs.Fail(ctx, id); failErr != nil {
			return fmt.Errorf("failed to mark tts request %d failed: %w", id, failErr)
		}
		return nil
	}

	if err := w.jobs.Complete(ctx, id, url); err != nil {
		return fmt.Errorf("failed to complete tts request %d: %w", id, err)
	}

	w.logger.Info("audio rendered",
		zap.Int("request_id", id),
		zap.Int("user_id", job.UserID),
		zap.Int("lesson_id", job.LessonID),
		zap.String("audio_url", url),
	)
	return nil
}

func (w *Worker) render(ctx context.Context, job *models.TTSRequest) (string, error) {
	synthCtx := ctx
	if w.synthTimeout > 0 {
		var cancel context.CancelFunc
		synthCtx, cancel = context.WithTimeout(ctx, w.synthTimeout)
		defer cancel()
	}

	start := time.Now()
	audio, err := w.synthesizer.Synthesize(synthCtx, job.PersonalizedText)
	monitoring.TTSSynthesisDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return "", fmt.Errorf("failed to synthesize audio: %w", err)
	}

	url, err := w.storage.Save(job.UserID, job.AudioFilename, audio)
	if err != nil {
		return "", fmt.Errorf("failed to save audio: %w", err)
	}
	return url, nil
}

// HandleReviewRequested emails the admin that a user submitted personalization answers
func (w *Worker) HandleReviewRequested(ctx context.Context, t *asynq.Task) error {
	userID, count, err := tasks.ParseReviewRequestedPayload(t.Payload())
	if err != nil {
		w.logger.Error("dropping review notification", zap.Error(err))
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}

	if w.adminEmail == "" {
		w.logger.Warn("admin email is not configured, skipping review notification", zap.Int("user_id", userID))
		return nil
	}

	subject := "Personalized audio waiting for review"
	body := fmt.Sprintf("User %d submitted personalization answers.\n%d audio request(s) are waiting for review.\n", userID, count)
	if err := w.sender.Send(w.adminEmail, subject, body); err != nil {
		return fmt.Errorf("failed to send review notification: %w", err)
	}

	w.logger.Info("review notification sent", zap.Int("user_id", userID), zap.Int("count", count))
	return nil
}

// smtpSender sends emails using gopkg.in/mail.v2
type smtpSender struct {
	host     string
	port     int
	username string
	password string
	from     string
}

func newSMTPSender(host string, port int, username, password, from string) *smtpSender {
	return &smtpSender{host: host, port: port, username: username, password: password, from: from}
}

func (s *smtpSender) Send(to, subject, body string) error {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := mail.NewDialer(s.host, s.port, s.username, s.password)
	if err := d.DialAndSend(m); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}
	return nil
}
