package domain

import (
	"time"

	"github.com/google/uuid"
)

// Collection groups the papers gathered by one collection run.
type Collection struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// NewCollection creates a collection with a fresh ID.
func NewCollection(name, description string) *Collection {
	return &Collection{
		ID:          uuid.New(),
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}
}

// CollectionTask records the lifecycle of a single collection run:
// its input parameters, status transitions, and final counters.
type CollectionTask struct {
	ID           uuid.UUID `json:"id"`
	CollectionID uuid.UUID `json:"collection_id"`
	TaskType     TaskType  `json:"task_type"`

	// Status and progress
	Status          TaskStatus `json:"status"`
	PapersCollected int        `json:"papers_collected"`
	ErrorMessage    string     `json:"error_message,omitempty"`

	// Parameters holds the run inputs (seed authors, keywords, limits).
	// Stored as JSONB.
	Parameters map[string]interface{} `json:"parameters,omitempty"`

	// Timestamps
	CreatedAt   time.Time  `json:"created_at"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// NewCollectionTask creates a pending task for the given collection.
func NewCollectionTask(collectionID uuid.UUID, taskType TaskType, parameters map[string]interface{}) *CollectionTask {
	return &CollectionTask{
		ID:           uuid.New(),
		CollectionID: collectionID,
		TaskType:     taskType,
		Status:       TaskStatusPending,
		Parameters:   parameters,
		CreatedAt:    time.Now(),
	}
}

// Duration returns the duration of the task.
// Returns zero if the task has not started.
// Returns elapsed time from start if still running.
// Returns total duration if completed.
func (t *CollectionTask) Duration() time.Duration {
	if t.StartedAt == nil {
		return 0
	}

	if t.CompletedAt != nil {
		return t.CompletedAt.Sub(*t.StartedAt)
	}

	return time.Since(*t.StartedAt)
}

// IsActive returns true if the task is still in progress.
func (t *CollectionTask) IsActive() bool {
	return !t.Status.IsTerminal()
}
