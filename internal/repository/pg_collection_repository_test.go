package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

func TestNewPgCollectionRepository(t *testing.T) {
	t.Run("creates repository with mock db", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		assert.NotNil(t, repo)
		assert.NotNil(t, repo.db)
	})
}

func TestPgCollectionRepository_CreateCollection(t *testing.T) {
	ctx := context.Background()

	t.Run("creates collection successfully", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		collection := domain.NewCollection("Quantum Computing Survey", "Papers gathered for the Q3 survey")

		mock.ExpectQuery("INSERT INTO collections").
			WithArgs(collection.ID, collection.Name, collection.Description, pgxmock.AnyArg()).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
				AddRow(collection.ID, collection.CreatedAt))

		result, err := repo.CreateCollection(ctx, collection)
		require.NoError(t, err)
		assert.Equal(t, collection.ID, result.ID)
		assert.Equal(t, collection.Name, result.Name)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns validation error for nil collection", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		result, err := repo.CreateCollection(ctx, nil)

		assert.Nil(t, result)
		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "collection", validationErr.Field)
	})

	t.Run("returns validation error for empty name", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		result, err := repo.CreateCollection(ctx, &domain.Collection{Name: "  "})

		assert.Nil(t, result)
		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "name", validationErr.Field)
	})
}

func TestPgCollectionRepository_AddPaper(t *testing.T) {
	ctx := context.Background()

	t.Run("adds paper to collection", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		collectionID, paperID := uuid.New(), uuid.New()

		mock.ExpectExec("INSERT INTO collection_papers").
			WithArgs(collectionID, paperID).
			WillReturnResult(pgxmock.NewResult("INSERT", 1))

		err = repo.AddPaper(ctx, collectionID, paperID)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("adding the same paper twice is a no-op", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		collectionID, paperID := uuid.New(), uuid.New()

		mock.ExpectExec("INSERT INTO collection_papers").
			WithArgs(collectionID, paperID).
			WillReturnResult(pgxmock.NewResult("INSERT", 0))

		err = repo.AddPaper(ctx, collectionID, paperID)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns not found on foreign key violation", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)

		mock.ExpectExec("INSERT INTO collection_papers").
			WillReturnError(&pgconn.PgError{Code: "23503"})

		err = repo.AddPaper(ctx, uuid.New(), uuid.New())
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns validation error for nil ids", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)

		err = repo.AddPaper(ctx, uuid.Nil, uuid.New())
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))

		err = repo.AddPaper(ctx, uuid.New(), uuid.Nil)
		assert.True(t, errors.Is(err, domain.ErrInvalidInput))
	})
}

func TestPgCollectionRepository_CreateTask(t *testing.T) {
	ctx := context.Background()

	t.Run("creates pending task", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		collectionID := uuid.New()
		task := domain.NewCollectionTask(collectionID, domain.TaskTypeCollectAuthors, map[string]interface{}{
			"authors": []string{"Jane Doe"},
			"rounds":  2,
		})

		mock.ExpectQuery("INSERT INTO collection_tasks").
			WithArgs(
				task.ID, collectionID, domain.TaskTypeCollectAuthors, domain.TaskStatusPending,
				pgxmock.AnyArg(), 0, "", pgxmock.AnyArg(),
			).
			WillReturnRows(pgxmock.NewRows([]string{"id", "created_at"}).
				AddRow(task.ID, task.CreatedAt))

		result, err := repo.CreateTask(ctx, task)
		require.NoError(t, err)
		assert.Equal(t, task.ID, result.ID)
		assert.Equal(t, domain.TaskStatusPending, result.Status)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns validation error for nil task", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		result, err := repo.CreateTask(ctx, nil)

		assert.Nil(t, result)
		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "task", validationErr.Field)
	})

	t.Run("returns validation error for missing collection id", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		result, err := repo.CreateTask(ctx, &domain.CollectionTask{TaskType: domain.TaskTypeCollectKeywords})

		assert.Nil(t, result)
		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "collection_id", validationErr.Field)
	})

	t.Run("returns not found when collection is missing", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		task := domain.NewCollectionTask(uuid.New(), domain.TaskTypeCollectAuthors, nil)

		mock.ExpectQuery("INSERT INTO collection_tasks").
			WillReturnError(&pgconn.PgError{Code: "23503"})

		result, err := repo.CreateTask(ctx, task)
		assert.Nil(t, result)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestPgCollectionRepository_TaskTransitions(t *testing.T) {
	ctx := context.Background()

	t.Run("starts pending task", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		taskID := uuid.New()

		mock.ExpectExec("UPDATE collection_tasks SET status = 'running'").
			WithArgs(taskID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = repo.StartTask(ctx, taskID)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("start fails for task that is not pending", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		taskID := uuid.New()

		mock.ExpectExec("UPDATE collection_tasks SET status = 'running'").
			WithArgs(taskID).
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repo.StartTask(ctx, taskID)
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("completes running task with paper count", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		taskID := uuid.New()

		mock.ExpectExec("UPDATE collection_tasks SET status = 'completed'").
			WithArgs(taskID, 42).
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = repo.CompleteTask(ctx, taskID, 42)
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("complete rejects negative paper count", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)

		err = repo.CompleteTask(ctx, uuid.New(), -1)
		var validationErr *domain.ValidationError
		assert.True(t, errors.As(err, &validationErr))
		assert.Equal(t, "papers_collected", validationErr.Field)
	})

	t.Run("fails active task with message and partial progress", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		taskID := uuid.New()

		mock.ExpectExec("UPDATE collection_tasks SET status = 'failed'").
			WithArgs(taskID, 7, "semantic scholar API unavailable").
			WillReturnResult(pgxmock.NewResult("UPDATE", 1))

		err = repo.FailTask(ctx, taskID, 7, "semantic scholar API unavailable")
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("fail is rejected for terminal task", func(t *testing.T) {
		mock, err := pgxmock.NewPool()
		require.NoError(t, err)
		defer mock.Close()

		repo := NewPgCollectionRepository(mock)
		taskID := uuid.New()

		mock.ExpectExec("UPDATE collection_tasks SET status = 'failed'").
			WithArgs(taskID, 0, "boom").
			WillReturnResult(pgxmock.NewResult("UPDATE", 0))

		err = repo.FailTask(ctx, taskID, 0, "boom")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
