package driver

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"xmarks/models"
)

const (
	// SyncJobStream is the Redis stream carrying per-user sync jobs.
	SyncJobStream = "xmarks:sync:jobs"
	// SyncConsumerGroup is the consumer group the sync workers read from.
	SyncConsumerGroup = "sync-workers"
)

// QueueMessage is a sync job together with its stream message id, needed for
// acknowledgement after processing.
type QueueMessage struct {
	ID  string
	Job *models.SyncJob
}

// QueueDriver implements the sync job queue on Redis Streams.
type QueueDriver struct {
	client *redis.Client
}

// NewQueueDriver creates a queue driver on an existing Redis client.
func NewQueueDriver(client *redis.Client) *QueueDriver {
	return &QueueDriver{client: client}
}

// EnsureGroup creates the consumer group, tolerating an already existing one.
func (d *QueueDriver) EnsureGroup(ctx context.Context) error {
	err := d.client.XGroupCreateMkStream(ctx, SyncJobStream, SyncConsumerGroup, "0").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}
	return nil
}

// Enqueue appends a single job to the stream and returns its message id.
func (d *QueueDriver) Enqueue(ctx context.Context, job *models.SyncJob) (string, error) {
	if job == nil {
		return "", fmt.Errorf("job is nil")
	}

	id, err := d.client.XAdd(ctx, &redis.XAddArgs{
		Stream: SyncJobStream,
		Values: jobToValues(job),
	}).Result()
	if err != nil {
		return "", fmt.Errorf("failed to enqueue sync job: %w", err)
	}

	return id, nil
}

// EnqueueBatch appends multiple jobs in one pipeline round trip.
func (d *QueueDriver) EnqueueBatch(ctx context.Context, jobs []*models.SyncJob) ([]string, error) {
	if len(jobs) == 0 {
		return []string{}, nil
	}

	pipe := d.client.Pipeline()
	cmds := make([]*redis.StringCmd, 0, len(jobs))

	for _, job := range jobs {
		if job == nil {
			continue
		}
		cmds = append(cmds, pipe.XAdd(ctx, &redis.XAddArgs{
			Stream: SyncJobStream,
			Values: jobToValues(job),
		}))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("failed to enqueue sync job batch: %w", err)
	}

	ids := make([]string, 0, len(cmds))
	for _, cmd := range cmds {
		ids = append(ids, cmd.Val())
	}

	return ids, nil
}

// Read blocks up to the given duration for new jobs delivered to this
// consumer. Returns an empty slice on timeout.
func (d *QueueDriver) Read(ctx context.Context, consumer string, count int, block time.Duration) ([]QueueMessage, error) {
	streams, err := d.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    SyncConsumerGroup,
		Consumer: consumer,
		Streams:  []string{SyncJobStream, ">"},
		Count:    int64(count),
		Block:    block,
	}).Result()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read sync jobs: %w", err)
	}

	var messages []QueueMessage
	for _, stream := range streams {
		for _, msg := range stream.Messages {
			job, err := valuesToJob(msg.Values)
			if err != nil {
				// Malformed message, acknowledge so it never redelivers
				d.client.XAck(ctx, SyncJobStream, SyncConsumerGroup, msg.ID)
				continue
			}
			messages = append(messages, QueueMessage{ID: msg.ID, Job: job})
		}
	}

	return messages, nil
}

// Ack acknowledges a processed message.
func (d *QueueDriver) Ack(ctx context.Context, messageID string) error {
	return d.client.XAck(ctx, SyncJobStream, SyncConsumerGroup, messageID).Err()
}

// Ping checks Redis availability.
func (d *QueueDriver) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

func jobToValues(job *models.SyncJob) map[string]interface{} {
	return map[string]interface{}{
		"user_id":     job.UserID.String(),
		"attempt":     job.Attempt,
		"enqueued_at": job.EnqueuedAt.Format(time.RFC3339Nano),
	}
}

func valuesToJob(values map[string]interface{}) (*models.SyncJob, error) {
	rawID, ok := values["user_id"].(string)
	if !ok {
		return nil, fmt.Errorf("sync job missing user_id")
	}

	userID, err := uuid.Parse(rawID)
	if err != nil {
		return nil, fmt.Errorf("sync job has invalid user_id: %w", err)
	}

	job := &models.SyncJob{UserID: userID, Attempt: 1}

	if rawAttempt, ok := values["attempt"].(string); ok {
		if attempt, err := strconv.Atoi(rawAttempt); err == nil {
			job.Attempt = attempt
		}
	}

	if rawAt, ok := values["enqueued_at"].(string); ok {
		if at, err := time.Parse(time.RFC3339Nano, rawAt); err == nil {
			job.EnqueuedAt = at
		}
	}

	return job, nil
}
