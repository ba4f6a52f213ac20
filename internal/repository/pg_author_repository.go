package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// Compile-time check that PgAuthorRepository implements AuthorRepository.
var _ AuthorRepository = (*PgAuthorRepository)(nil)

// PgAuthorRepository is a PostgreSQL implementation of AuthorRepository.
type PgAuthorRepository struct {
	db DBTX
}

// NewPgAuthorRepository creates a new PostgreSQL author repository.
func NewPgAuthorRepository(db DBTX) *PgAuthorRepository {
	return &PgAuthorRepository{db: db}
}

// UpsertByName inserts the author or returns the existing row with the same
// name. The conflict branch only fills profile fields that are still empty,
// so the first non-empty value a source reports sticks.
func (r *PgAuthorRepository) UpsertByName(ctx context.Context, author *domain.Author) (*domain.Author, error) {
	if author == nil {
		return nil, domain.NewValidationError("author", "author cannot be nil")
	}
	if strings.TrimSpace(author.Name) == "" {
		return nil, domain.NewValidationError("name", "author name cannot be empty")
	}

	id := author.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	query := `
		INSERT INTO authors (id, name, email, affiliation, orcid, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (name) DO UPDATE SET
			email = CASE WHEN authors.email = '' THEN EXCLUDED.email ELSE authors.email END,
			affiliation = CASE WHEN authors.affiliation = '' THEN EXCLUDED.affiliation ELSE authors.affiliation END,
			orcid = CASE WHEN authors.orcid = '' THEN EXCLUDED.orcid ELSE authors.orcid END
		RETURNING id, name, email, affiliation, orcid, created_at`

	var result domain.Author
	err := r.db.QueryRow(ctx, query,
		id, author.Name, author.Email, author.Affiliation, author.ORCID, time.Now().UTC(),
	).Scan(&result.ID, &result.Name, &result.Email, &result.Affiliation, &result.ORCID, &result.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert author: %w", err)
	}

	return &result, nil
}

// GetByName retrieves an author by exact name.
func (r *PgAuthorRepository) GetByName(ctx context.Context, name string) (*domain.Author, error) {
	if strings.TrimSpace(name) == "" {
		return nil, domain.NewValidationError("name", "author name cannot be empty")
	}

	query := `
		SELECT id, name, email, affiliation, orcid, created_at
		FROM authors
		WHERE name = $1`

	var author domain.Author
	err := r.db.QueryRow(ctx, query, name).Scan(
		&author.ID, &author.Name, &author.Email, &author.Affiliation, &author.ORCID, &author.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("author", name)
		}
		return nil, fmt.Errorf("failed to get author by name: %w", err)
	}

	return &author, nil
}

// LinkAuthors records the authorship of a paper in a single batch roundtrip.
// Position follows slice order; existing links are left untouched.
func (r *PgAuthorRepository) LinkAuthors(ctx context.Context, paperID uuid.UUID, authorIDs []uuid.UUID) error {
	if paperID == uuid.Nil {
		return domain.NewValidationError("paper_id", "paper id cannot be nil")
	}
	if len(authorIDs) == 0 {
		return nil
	}

	query := `
		INSERT INTO paper_authors (paper_id, author_id, position)
		VALUES ($1, $2, $3)
		ON CONFLICT (paper_id, author_id) DO NOTHING`

	batch := &pgx.Batch{}
	for position, authorID := range authorIDs {
		batch.Queue(query, paperID, authorID, position)
	}

	results := r.db.SendBatch(ctx, batch)
	defer results.Close()

	for range authorIDs {
		if _, err := results.Exec(); err != nil {
			var pgErr *pgconn.PgError
			if errors.As(err, &pgErr) && pgErr.Code == "23503" {
				return domain.NewNotFoundError("paper or author", paperID.String())
			}
			return fmt.Errorf("failed to link paper authors: %w", err)
		}
	}

	return nil
}

// AuthorsByFrequency returns authors ranked by stored paper count descending,
// ties broken by name ascending.
func (r *PgAuthorRepository) AuthorsByFrequency(ctx context.Context, limit int) ([]AuthorPaperCount, error) {
	offset := 0
	applyPaginationDefaults(&limit, &offset)

	query := `
		SELECT a.id, a.name, a.email, a.affiliation, a.orcid, a.created_at,
			COUNT(pa.paper_id) AS paper_count
		FROM authors a
		JOIN paper_authors pa ON pa.author_id = a.id
		GROUP BY a.id
		ORDER BY paper_count DESC, a.name ASC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query authors by frequency: %w", err)
	}
	defer rows.Close()

	ranked := []AuthorPaperCount{}
	for rows.Next() {
		var entry AuthorPaperCount
		err := rows.Scan(
			&entry.Author.ID, &entry.Author.Name, &entry.Author.Email,
			&entry.Author.Affiliation, &entry.Author.ORCID, &entry.Author.CreatedAt,
			&entry.PaperCount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan author frequency: %w", err)
		}
		ranked = append(ranked, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate authors by frequency: %w", err)
	}

	return ranked, nil
}

// MostProductive returns the top n authors by stored paper count. It is the
// stats view of the AuthorsByFrequency ranking.
func (r *PgAuthorRepository) MostProductive(ctx context.Context, n int) ([]AuthorPaperCount, error) {
	return r.AuthorsByFrequency(ctx, n)
}
