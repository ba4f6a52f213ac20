package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// Compile-time check that PgCollaborationRepository implements CollaborationRepository.
var _ CollaborationRepository = (*PgCollaborationRepository)(nil)

// PgCollaborationRepository is a PostgreSQL implementation of CollaborationRepository.
type PgCollaborationRepository struct {
	db DBTX
}

// NewPgCollaborationRepository creates a new PostgreSQL collaboration repository.
func NewPgCollaborationRepository(db DBTX) *PgCollaborationRepository {
	return &PgCollaborationRepository{db: db}
}

// RecordPaper registers one co-authored paper for an author pair. The paper
// count is recomputed from collaboration_papers rather than incremented, so
// the stored count always equals the number of linked papers.
func (r *PgCollaborationRepository) RecordPaper(ctx context.Context, author1ID, author2ID, paperID uuid.UUID, date *time.Time) (*domain.Collaboration, error) {
	if author1ID == uuid.Nil || author2ID == uuid.Nil {
		return nil, domain.NewValidationError("author_id", "author ids cannot be nil")
	}
	if author1ID == author2ID {
		return nil, domain.NewValidationError("author_id", "collaboration requires two distinct authors")
	}
	if paperID == uuid.Nil {
		return nil, domain.NewValidationError("paper_id", "paper id cannot be nil")
	}

	// LEAST and GREATEST ignore NULLs, so a nil date keeps the stored dates.
	upsertQuery := `
		INSERT INTO collaborations (
			id, author1_id, author2_id, paper_count,
			first_collaboration_date, last_collaboration_date,
			created_at, updated_at
		) VALUES ($1, $2, $3, 0, $4, $4, now(), now())
		ON CONFLICT (author1_id, author2_id) DO UPDATE SET
			first_collaboration_date = LEAST(collaborations.first_collaboration_date, EXCLUDED.first_collaboration_date),
			last_collaboration_date = GREATEST(collaborations.last_collaboration_date, EXCLUDED.last_collaboration_date),
			updated_at = now()
		RETURNING id`

	var collabID uuid.UUID
	err := r.db.QueryRow(ctx, upsertQuery, uuid.New(), author1ID, author2ID, date).Scan(&collabID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.NewNotFoundError("author", fmt.Sprintf("%s/%s", author1ID, author2ID))
		}
		return nil, fmt.Errorf("failed to upsert collaboration: %w", err)
	}

	linkQuery := `
		INSERT INTO collaboration_papers (collaboration_id, paper_id)
		VALUES ($1, $2)
		ON CONFLICT (collaboration_id, paper_id) DO NOTHING`

	if _, err := r.db.Exec(ctx, linkQuery, collabID, paperID); err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			return nil, domain.NewNotFoundError("paper", paperID.String())
		}
		return nil, fmt.Errorf("failed to link collaboration paper: %w", err)
	}

	recountQuery := `
		UPDATE collaborations c
		SET paper_count = (
			SELECT COUNT(*) FROM collaboration_papers cp WHERE cp.collaboration_id = c.id
		), updated_at = now()
		WHERE c.id = $1
		RETURNING c.paper_count, c.first_collaboration_date, c.last_collaboration_date, c.created_at, c.updated_at`

	collab := domain.Collaboration{
		ID:        collabID,
		Author1ID: author1ID,
		Author2ID: author2ID,
	}
	err = r.db.QueryRow(ctx, recountQuery, collabID).Scan(
		&collab.PaperCount,
		&collab.FirstCollaborationDate,
		&collab.LastCollaborationDate,
		&collab.CreatedAt,
		&collab.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to recount collaboration papers: %w", err)
	}

	return &collab, nil
}

// ListAll returns every collaboration as a name-level edge.
func (r *PgCollaborationRepository) ListAll(ctx context.Context) ([]domain.CollaborationEdge, error) {
	query := `
		SELECT a1.name, a2.name, c.paper_count
		FROM collaborations c
		JOIN authors a1 ON a1.id = c.author1_id
		JOIN authors a2 ON a2.id = c.author2_id
		ORDER BY c.paper_count DESC, a1.name ASC, a2.name ASC`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list collaborations: %w", err)
	}
	defer rows.Close()

	edges := []domain.CollaborationEdge{}
	for rows.Next() {
		var edge domain.CollaborationEdge
		if err := rows.Scan(&edge.Author1Name, &edge.Author2Name, &edge.PaperCount); err != nil {
			return nil, fmt.Errorf("failed to scan collaboration edge: %w", err)
		}
		edges = append(edges, edge)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate collaborations: %w", err)
	}

	return edges, nil
}

// Count returns the total number of collaboration pairs.
func (r *PgCollaborationRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM collaborations`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count collaborations: %w", err)
	}
	return count, nil
}
