// ABOUTME: This file orchestrates scheduled bookmark syncs across all users
// ABOUTME: A producer fans jobs into the stream, workers drain it with bounded retries

package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"xmarks/driver"
	"xmarks/metrics"
	"xmarks/models"
	"xmarks/repository"
)

const (
	maxSyncAttempts = 3
	readBatchSize   = 10
	readBlock       = 5 * time.Second
	perUserTimeout  = 2 * time.Minute
)

// SyncService produces sync jobs for every active user and runs the worker
// pool that consumes them.
type SyncService struct {
	users   repository.UserRepository
	queue   JobQueue
	syncer  BookmarkSyncer
	logger  *slog.Logger
	workers int
}

// NewSyncService creates a sync orchestrator.
func NewSyncService(
	users repository.UserRepository,
	queue JobQueue,
	syncer BookmarkSyncer,
	logger *slog.Logger,
	workers int,
) *SyncService {
	if logger == nil {
		logger = slog.Default()
	}
	if workers < 1 {
		workers = 1
	}

	return &SyncService{
		users:   users,
		queue:   queue,
		syncer:  syncer,
		logger:  logger.With("component", "sync_service"),
		workers: workers,
	}
}

// EnqueueAll creates one sync job per active user. Called by the scheduler
// on every tick. Returns the number of jobs enqueued.
func (s *SyncService) EnqueueAll(ctx context.Context) (int, error) {
	ids, err := s.users.ListActiveIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users for sync: %w", err)
	}

	if len(ids) == 0 {
		s.logger.Info("No users to sync")
		return 0, nil
	}

	jobs := make([]*models.SyncJob, 0, len(ids))
	for _, id := range ids {
		jobs = append(jobs, models.NewSyncJob(id))
	}

	enqueued := len(jobs)
	if _, err := s.queue.EnqueueBatch(ctx, jobs); err != nil {
		// One bad pipeline must not cost every user their sync this tick
		s.logger.Warn("Batch enqueue failed, falling back to per-job enqueue", "error", err)
		enqueued = 0
		for _, job := range jobs {
			if _, enqErr := s.queue.Enqueue(ctx, job); enqErr != nil {
				s.logger.Error("Failed to enqueue sync job",
					"user_id", job.UserID,
					"error", enqErr)
				continue
			}
			enqueued++
		}
		if enqueued == 0 {
			return 0, fmt.Errorf("failed to enqueue sync jobs: %w", err)
		}
	}

	metrics.SyncJobsEnqueued.Add(float64(enqueued))
	s.logger.Info("Sync jobs enqueued", "count", enqueued)
	return enqueued, nil
}

// RunWorkers starts the worker pool and blocks until ctx is cancelled and
// every worker has drained.
func (s *SyncService) RunWorkers(ctx context.Context) error {
	if err := s.queue.EnsureGroup(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			s.workerLoop(ctx, name)
		}(fmt.Sprintf("worker-%d", i+1))
	}

	wg.Wait()
	return nil
}

func (s *SyncService) workerLoop(ctx context.Context, name string) {
	logger := s.logger.With("worker", name)
	logger.Info("Sync worker started")

	for {
		select {
		case <-ctx.Done():
			logger.Info("Sync worker stopping")
			return
		default:
		}

		messages, err := s.queue.Read(ctx, name, readBatchSize, readBlock)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("Failed to read sync jobs", "error", err)
			time.Sleep(time.Second)
			continue
		}

		for _, msg := range messages {
			s.processJob(ctx, logger, msg)
		}
	}
}

// processJob runs one sync job. Jobs for users without a usable token are
// skipped; transient failures are re-enqueued up to maxSyncAttempts.
func (s *SyncService) processJob(ctx context.Context, logger *slog.Logger, msg driver.QueueMessage) {
	jobCtx, cancel := context.WithTimeout(ctx, perUserTimeout)
	defer cancel()

	start := time.Now()
	stored, err := s.syncer.SyncUser(jobCtx, msg.Job.UserID)
	duration := time.Since(start).Seconds()

	switch {
	case err == nil:
		metrics.RecordSync("success", duration, stored)
		logger.Info("Sync job completed",
			"user_id", msg.Job.UserID,
			"attempt", msg.Job.Attempt,
			"entries", stored)

	case errors.Is(err, ErrNoTokenFound), errors.Is(err, ErrRefreshFailed):
		// The user needs to re-authorize, retrying will not help
		metrics.RecordSync("skipped", duration, 0)
		logger.Warn("Sync job skipped, user has no usable token",
			"user_id", msg.Job.UserID,
			"error", err)

	default:
		if msg.Job.Attempt < maxSyncAttempts {
			retry := msg.Job.NextAttempt()
			if _, enqErr := s.queue.Enqueue(ctx, retry); enqErr != nil {
				logger.Error("Failed to re-enqueue sync job",
					"user_id", msg.Job.UserID,
					"error", enqErr)
			}
			metrics.RecordSync("retried", duration, 0)
			logger.Warn("Sync job failed, retrying",
				"user_id", msg.Job.UserID,
				"attempt", msg.Job.Attempt,
				"error", err)
		} else {
			metrics.RecordSync("failed", duration, 0)
			logger.Error("Sync job failed permanently",
				"user_id", msg.Job.UserID,
				"attempts", msg.Job.Attempt,
				"error", err)
		}
	}

	if ackErr := s.queue.Ack(ctx, msg.ID); ackErr != nil {
		logger.Error("Failed to ack sync job", "message_id", msg.ID, "error", ackErr)
	}
}
