package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// CollectionRepository handles collections and the lifecycle of their
// collection tasks. Task status transitions are guarded: a task moves
// pending -> running -> completed/failed and terminal states never change.
type CollectionRepository interface {
	// CreateCollection inserts a new collection and returns it with its
	// assigned ID and creation timestamp.
	// Returns domain.ErrInvalidInput if the collection is nil or unnamed.
	CreateCollection(ctx context.Context, collection *domain.Collection) (*domain.Collection, error)

	// AddPaper adds a paper to a collection. Adding the same paper twice is
	// a no-op.
	// Returns domain.ErrNotFound if the collection or paper does not exist.
	AddPaper(ctx context.Context, collectionID, paperID uuid.UUID) error

	// CreateTask inserts a new pending task for a collection and returns it
	// with its assigned ID and creation timestamp.
	// Returns domain.ErrInvalidInput for a nil task or missing collection ID.
	// Returns domain.ErrNotFound if the collection does not exist.
	CreateTask(ctx context.Context, task *domain.CollectionTask) (*domain.CollectionTask, error)

	// StartTask transitions a pending task to running and stamps started_at.
	// Returns domain.ErrNotFound if the task does not exist or is not pending.
	StartTask(ctx context.Context, taskID uuid.UUID) error

	// CompleteTask transitions a running task to completed, recording the
	// number of papers collected and stamping completed_at.
	// Returns domain.ErrNotFound if the task does not exist or is not running.
	CompleteTask(ctx context.Context, taskID uuid.UUID, papersCollected int) error

	// FailTask transitions a pending or running task to failed, recording
	// partial progress and the error message.
	// Returns domain.ErrNotFound if the task does not exist or is already
	// terminal.
	FailTask(ctx context.Context, taskID uuid.UUID, papersCollected int, message string) error
}
