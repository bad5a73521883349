// Package scheduler drives the periodic bookmark sync fan-out.
package scheduler

import (
	"context"
	"log/slog"
	"time"
)

// Producer is what the scheduler triggers on each tick.
type Producer interface {
	EnqueueAll(ctx context.Context) (int, error)
}

// Scheduler periodically enqueues sync jobs for all users.
type Scheduler struct {
	producer   Producer
	logger     *slog.Logger
	syncTicker *time.Ticker
	stopChan   chan struct{}
	isRunning  bool
}

// Config holds scheduler configuration
type Config struct {
	SyncInterval time.Duration
}

// DefaultConfig returns the default scheduler configuration.
func DefaultConfig() Config {
	return Config{
		SyncInterval: 15 * time.Minute,
	}
}

// NewScheduler creates a sync scheduler.
func NewScheduler(producer Producer, logger *slog.Logger) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		producer: producer,
		logger:   logger.With("component", "scheduler"),
		stopChan: make(chan struct{}),
	}
}

// Start starts the scheduling loop
func (s *Scheduler) Start(cfg Config) {
	if s.isRunning {
		s.logger.Warn("Scheduler is already running")
		return
	}

	s.logger.Info("Starting sync scheduler", "sync_interval", cfg.SyncInterval)

	s.syncTicker = time.NewTicker(cfg.SyncInterval)
	s.isRunning = true

	go s.runLoop()
}

// Stop stops the scheduler
func (s *Scheduler) Stop() {
	if !s.isRunning {
		return
	}

	s.logger.Info("Stopping sync scheduler")
	close(s.stopChan)
	if s.syncTicker != nil {
		s.syncTicker.Stop()
	}
	s.isRunning = false
}

func (s *Scheduler) runLoop() {
	for {
		select {
		case <-s.stopChan:
			return
		case <-s.syncTicker.C:
			s.enqueueSyncJobs()
		}
	}
}

func (s *Scheduler) enqueueSyncJobs() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	count, err := s.producer.EnqueueAll(ctx)
	if err != nil {
		s.logger.Error("Failed to enqueue sync jobs", "error", err)
		return
	}

	s.logger.Info("Scheduled sync tick completed", "jobs", count)
}
