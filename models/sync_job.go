package models

import (
	"time"

	"github.com/google/uuid"
)

// SyncJob is one unit of bookmark sync work for a single user. Jobs travel
// through the Redis stream as flat field maps.
type SyncJob struct {
	UserID     uuid.UUID `json:"user_id"`
	Attempt    int       `json:"attempt"`
	EnqueuedAt time.Time `json:"enqueued_at"`
}

// NewSyncJob creates a first-attempt job for the given user.
func NewSyncJob(userID uuid.UUID) *SyncJob {
	return &SyncJob{
		UserID:     userID,
		Attempt:    1,
		EnqueuedAt: time.Now().UTC(),
	}
}

// NextAttempt returns a copy of the job with the attempt counter advanced.
func (j *SyncJob) NextAttempt() *SyncJob {
	return &SyncJob{
		UserID:     j.UserID,
		Attempt:    j.Attempt + 1,
		EnqueuedAt: time.Now().UTC(),
	}
}
