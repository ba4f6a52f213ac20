package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// Compile-time check that PgCollectionRepository implements CollectionRepository.
var _ CollectionRepository = (*PgCollectionRepository)(nil)

// PgCollectionRepository is a PostgreSQL implementation of CollectionRepository.
type PgCollectionRepository struct {
	db DBTX
}

// NewPgCollectionRepository creates a new PostgreSQL collection repository.
func NewPgCollectionRepository(db DBTX) *PgCollectionRepository {
	return &PgCollectionRepository{db: db}
}

// CreateCollection inserts a new collection.
func (r *PgCollectionRepository) CreateCollection(ctx context.Context, collection *domain.Collection) (*domain.Collection, error) {
	if collection == nil {
		return nil, domain.NewValidationError("collection", "collection cannot be nil")
	}
	if strings.TrimSpace(collection.Name) == "" {
		return nil, domain.NewValidationError("name", "collection name cannot be empty")
	}

	id := collection.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	createdAt := collection.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	query := `
		INSERT INTO collections (id, name, description, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`

	result := *collection
	err := r.db.QueryRow(ctx, query, id, collection.Name, collection.Description, createdAt).
		Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.NewAlreadyExistsError("collection", id.String())
		}
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}

	return &result, nil
}

// AddPaper adds a paper to a collection. Replays are no-ops.
func (r *PgCollectionRepository) AddPaper(ctx context.Context, collectionID, paperID uuid.UUID) error {
	if collectionID == uuid.Nil {
		return domain.NewValidationError("collection_id", "collection id cannot be nil")
	}
	if paperID == uuid.Nil {
		return domain.NewValidationError("paper_id", "paper id cannot be nil")
	}

	query := `
		INSERT INTO collection_papers (collection_id, paper_id)
		VALUES ($1, $2)
		ON CONFLICT (collection_id, paper_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, query, collectionID, paperID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return domain.NewNotFoundError("collection or paper", fmt.Sprintf("%s/%s", collectionID, paperID))
		}
		return fmt.Errorf("failed to add paper to collection: %w", err)
	}

	return nil
}

// CreateTask inserts a new pending task for a collection.
func (r *PgCollectionRepository) CreateTask(ctx context.Context, task *domain.CollectionTask) (*domain.CollectionTask, error) {
	if task == nil {
		return nil, domain.NewValidationError("task", "task cannot be nil")
	}
	if task.CollectionID == uuid.Nil {
		return nil, domain.NewValidationError("collection_id", "collection id cannot be nil")
	}
	if task.TaskType == "" {
		return nil, domain.NewValidationError("task_type", "task type cannot be empty")
	}

	id := task.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	status := task.Status
	if status == "" {
		status = domain.TaskStatusPending
	}
	createdAt := task.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	parameters := task.Parameters
	if parameters == nil {
		parameters = map[string]interface{}{}
	}
	parametersJSON, err := json.Marshal(parameters)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal task parameters: %w", err)
	}

	query := `
		INSERT INTO collection_tasks (
			id, collection_id, task_type, status, parameters,
			papers_collected, error_message, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, created_at`

	result := *task
	result.Status = status
	err = r.db.QueryRow(ctx, query,
		id, task.CollectionID, task.TaskType, status, parametersJSON,
		task.PapersCollected, task.ErrorMessage, createdAt,
	).Scan(&result.ID, &result.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.NewNotFoundError("collection", task.CollectionID.String())
		}
		return nil, fmt.Errorf("failed to create collection task: %w", err)
	}

	return &result, nil
}

// StartTask transitions a pending task to running.
func (r *PgCollectionRepository) StartTask(ctx context.Context, taskID uuid.UUID) error {
	if taskID == uuid.Nil {
		return domain.NewValidationError("task_id", "task id cannot be nil")
	}

	query := `
		UPDATE collection_tasks
		SET status = 'running', started_at = now()
		WHERE id = $1 AND status = 'pending'`

	tag, err := r.db.Exec(ctx, query, taskID)
	if err != nil {
		return fmt.Errorf("failed to start collection task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("pending collection task", taskID.String())
	}

	return nil
}

// CompleteTask transitions a running task to completed.
func (r *PgCollectionRepository) CompleteTask(ctx context.Context, taskID uuid.UUID, papersCollected int) error {
	if taskID == uuid.Nil {
		return domain.NewValidationError("task_id", "task id cannot be nil")
	}
	if papersCollected < 0 {
		return domain.NewValidationError("papers_collected", "papers collected cannot be negative")
	}

	query := `
		UPDATE collection_tasks
		SET status = 'completed', papers_collected = $2, completed_at = now()
		WHERE id = $1 AND status = 'running'`

	tag, err := r.db.Exec(ctx, query, taskID, papersCollected)
	if err != nil {
		return fmt.Errorf("failed to complete collection task: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("running collection task", taskID.String())
	}

	return nil
}

// FailTask transitions a pending or running task to failed, keeping any
// partial progress.
func (r *PgCollectionRepository) FailTask(ctx context.Context, taskID uuid.UUID, papersCollected int, message string) error {
	if taskID == uuid.Nil {
		return domain.NewValidationError("task_id", "task id cannot be nil")
	}
	if papersCollected < 0 {
		return domain.NewValidationError("papers_collected", "papers collected cannot be negative")
	}

	query := `
		UPDATE collection_tasks
		SET status = 'failed', papers_collected = $2, error_message = $3, completed_at = now()
		WHERE id = $1 AND status IN ('pending', 'running')`

	tag, err := r.db.Exec(ctx, query, taskID, papersCollected, message)
	if err != nil {
		return fmt.Errorf("failed to mark collection task failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.NewNotFoundError("active collection task", taskID.String())
	}

	return nil
}
