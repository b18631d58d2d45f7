package main

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const sweepLockKey = "linguapath:sweep:lock"

// releaseScript deletes the lock only while it still holds our token
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// ApprovedSweeper re-enqueues approved jobs that have no render task
type ApprovedSweeper interface {
	// RecoverStale returns jobs stuck in processing for longer than "olderThan" to approved and enqueues them.
	//
	// If some error occurs during data retrieve or update, the error will be returned together with the count so far.
	RecoverStale(ctx context.Context, olderThan time.Duration, limit int) (int, error)
	// SweepApproved enqueues render tasks for up to "limit" approved jobs and returns how many were enqueued.
	//
	// If some error occurs during data retrieve, the error will be returned together with the count so far.
	SweepApproved(ctx context.Context, limit int) (int, error)
}

// Locker guards the sweep when several scheduler instances run
type Locker interface {
	// TryLock returns a release function when the lock was taken, and nil when another instance holds it
	TryLock(ctx context.Context) (func(), error)
}

// Scheduler runs the approved job sweep on a cron schedule
type Scheduler struct {
	cron      *cron.Cron
	sweeper   ApprovedSweeper
	locker    Locker
	logger    *zap.Logger
	spec       string
	batchSize  int
	staleAfter time.Duration
	timeout    time.Duration
}

// NewScheduler creates a new scheduler instance
func NewScheduler(sweeper ApprovedSweeper, locker Locker, logger *zap.Logger, spec string, batchSize int, staleAfter, timeout time.Duration) *Scheduler {
	return &Scheduler{
		cron:       cron.New(),
		sweeper:    sweeper,
		locker:     locker,
		logger:     logger,
		spec:       spec,
		batchSize:  batchSize,
		staleAfter: staleAfter,
		timeout:    timeout,
	}
}

// Start schedules the sweep and runs it once immediately
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.spec, func() { s.sweep(context.Background()) }); err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("Scheduler started", zap.String("schedule", s.spec))

	go s.sweep(context.Background())
	return nil
}

// Stop stops the scheduler and waits for a running sweep
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("Scheduler stopped")
}

// sweep recovers stalled processing jobs, then enqueues render tasks for approved jobs whose task was lost
func (s *Scheduler) sweep(ctx context.Context) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	release, err := s.locker.TryLock(ctx)
	if err != nil {
		s.logger.Error("Failed to take sweep lock", zap.Error(err))
		return
	}
	if release == nil {
		s.logger.Debug("Sweep is running on another instance")
		return
	}
	defer release()

	recovered, err := s.sweeper.RecoverStale(ctx, s.staleAfter, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to recover stalled tts requests", zap.Int("recovered", recovered), zap.Error(err))
	} else if recovered > 0 {
		s.logger.Warn("Recovered stalled tts requests", zap.Int("recovered", recovered))
	}

	enqueued, err := s.sweeper.SweepApproved(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("Failed to sweep approved tts requests", zap.Int("enqueued", enqueued), zap.Error(err))
		return
	}
	if enqueued > 0 {
		s.logger.Info("Swept approved tts requests", zap.Int("enqueued", enqueued))
	}
}

// redisLocker is a Locker backed by a Redis key with an expiry
type redisLocker struct {
	redis *redis.Client
	key   string
	ttl   time.Duration
}

func newRedisLocker(client *redis.Client, ttl time.Duration) *redisLocker {
	return &redisLocker{redis: client, key: sweepLockKey, ttl: ttl}
}

func (l *redisLocker) TryLock(ctx context.Context) (func(), error) {
	token := uuid.NewString()
	ok, err := l.redis.SetNX(ctx, l.key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to set lock: %w", err)
	}
	if !ok {
		return nil, nil
	}

	return func() {
		// the sweep context may already be done
		releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		releaseScript.Run(releaseCtx, l.redis, []string{l.key}, token)
	}, nil
}
