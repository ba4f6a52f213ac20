package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/scholarnet/paper-network-service/internal/domain"
)

// Compile-time check that PgPaperRepository implements PaperRepository.
var _ PaperRepository = (*PgPaperRepository)(nil)

// PgPaperRepository is a PostgreSQL implementation of PaperRepository.
type PgPaperRepository struct {
	db DBTX
}

// NewPgPaperRepository creates a new PostgreSQL paper repository.
func NewPgPaperRepository(db DBTX) *PgPaperRepository {
	return &PgPaperRepository{db: db}
}

// selectPaperColumns is the column list shared by every paper query.
// The authors column aggregates the paper_authors join table into a JSON
// array ordered by author position, so a single row scan reconstructs the
// full paper.
const selectPaperColumns = `
	p.id, p.title, p.abstract, p.publication_date, p.publication_year,
	p.arxiv_id, p.pubmed_id, p.doi, p.journal, p.volume, p.pages,
	p.keywords, p.citation_count, p.pdf_url, p.source, p.raw_metadata,
	p.created_at, p.updated_at,
	COALESCE((
		SELECT jsonb_agg(jsonb_build_object(
			'id', a.id, 'name', a.name, 'email', a.email,
			'affiliation', a.affiliation, 'orcid', a.orcid
		) ORDER BY pa.position)
		FROM paper_authors pa
		JOIN authors a ON a.id = pa.author_id
		WHERE pa.paper_id = p.id
	), '[]'::jsonb) AS authors`

// Create inserts a new paper row. The paper's authors travel on the struct but
// are persisted separately through AuthorRepository, so the merge store can
// upsert them by name and record collaborations in the same transaction.
func (r *PgPaperRepository) Create(ctx context.Context, paper *domain.Paper) (*domain.Paper, error) {
	if paper == nil {
		return nil, domain.NewValidationError("paper", "paper cannot be nil")
	}
	if strings.TrimSpace(paper.Title) == "" {
		return nil, domain.NewValidationError("title", "title cannot be empty")
	}
	if paper.PublicationDate == nil {
		return nil, domain.NewValidationError("publication_date", "publication date cannot be nil")
	}

	if paper.ID == uuid.Nil {
		paper.ID = uuid.New()
	}

	keywords := paper.Keywords
	if keywords == nil {
		keywords = []string{}
	}
	keywordsJSON, err := json.Marshal(keywords)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal keywords: %w", err)
	}

	metadata := paper.RawMetadata
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	metadataJSON, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal raw metadata: %w", err)
	}

	now := time.Now().UTC()

	query := `
		INSERT INTO papers (
			id, title, abstract, publication_date, publication_year,
			arxiv_id, pubmed_id, doi, journal, volume, pages,
			keywords, citation_count, pdf_url, source, raw_metadata,
			created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18
		)
		RETURNING id, created_at, updated_at`

	result := *paper
	err = r.db.QueryRow(ctx, query,
		paper.ID, paper.Title, paper.Abstract, *paper.PublicationDate, paper.PublicationYear,
		nullIfEmpty(paper.ArXivID), nullIfEmpty(paper.PubMedID), nullIfEmpty(paper.DOI),
		paper.Journal, paper.Volume, paper.Pages,
		keywordsJSON, paper.CitationCount, paper.PDFURL, paper.Source, metadataJSON,
		now, now,
	).Scan(&result.ID, &result.CreatedAt, &result.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, domain.NewAlreadyExistsError("paper", paper.CanonicalKey())
		}
		return nil, fmt.Errorf("failed to create paper: %w", err)
	}

	return &result, nil
}

// GetByID retrieves a paper by its internal UUID.
func (r *PgPaperRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Paper, error) {
	if id == uuid.Nil {
		return nil, domain.NewValidationError("id", "id cannot be nil")
	}

	query := fmt.Sprintf(`SELECT %s FROM papers p WHERE p.id = $1`, selectPaperColumns)

	paper, err := scanPaper(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", id.String())
		}
		return nil, fmt.Errorf("failed to get paper by id: %w", err)
	}

	return paper, nil
}

// FindByIdentifier searches for a paper by one of its external identifiers.
func (r *PgPaperRepository) FindByIdentifier(ctx context.Context, idType domain.IdentifierType, value string) (*domain.Paper, error) {
	if strings.TrimSpace(value) == "" {
		return nil, domain.NewValidationError("identifier", "identifier value cannot be empty")
	}

	var column string
	switch idType {
	case domain.IdentifierTypeArXivID:
		column = "arxiv_id"
	case domain.IdentifierTypePubMedID:
		column = "pubmed_id"
	case domain.IdentifierTypeDOI:
		column = "doi"
	default:
		return nil, domain.NewValidationError("identifier_type", fmt.Sprintf("unknown identifier type: %s", idType))
	}

	query := fmt.Sprintf(`SELECT %s FROM papers p WHERE p.%s = $1`, selectPaperColumns, column)

	paper, err := scanPaper(r.db.QueryRow(ctx, query, value))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", fmt.Sprintf("%s=%s", idType, value))
		}
		return nil, fmt.Errorf("failed to find paper by %s: %w", idType, err)
	}

	return paper, nil
}

// FindByTitleAndDate searches for a paper by title and publication date.
// Title matching is case-insensitive to line up with the lowercased title
// hash used in fallback deduplication keys.
func (r *PgPaperRepository) FindByTitleAndDate(ctx context.Context, title string, date time.Time) (*domain.Paper, error) {
	if strings.TrimSpace(title) == "" {
		return nil, domain.NewValidationError("title", "title cannot be empty")
	}

	query := fmt.Sprintf(`SELECT %s FROM papers p WHERE LOWER(p.title) = LOWER($1) AND p.publication_date = $2`, selectPaperColumns)

	paper, err := scanPaper(r.db.QueryRow(ctx, query, title, date))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.NewNotFoundError("paper", fmt.Sprintf("title=%s date=%s", title, date.Format("2006-01-02")))
		}
		return nil, fmt.Errorf("failed to find paper by title and date: %w", err)
	}

	return paper, nil
}

// List retrieves papers matching the filter criteria.
func (r *PgPaperRepository) List(ctx context.Context, filter PaperFilter) ([]*domain.Paper, int64, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, err
	}

	conditions := []string{}
	args := []interface{}{}
	argIndex := 1

	if filter.Source != nil {
		conditions = append(conditions, fmt.Sprintf("p.source = $%d", argIndex))
		args = append(args, *filter.Source)
		argIndex++
	}
	if filter.Year != nil {
		conditions = append(conditions, fmt.Sprintf("p.publication_year = $%d", argIndex))
		args = append(args, *filter.Year)
		argIndex++
	}
	if filter.AuthorName != nil {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM paper_authors pa
			JOIN authors a ON a.id = pa.author_id
			WHERE pa.paper_id = p.id AND a.name = $%d
		)`, argIndex))
		args = append(args, *filter.AuthorName)
		argIndex++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM papers p %s", whereClause)

	var total int64
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count papers: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM papers p %s
		ORDER BY p.created_at DESC
		LIMIT $%d OFFSET $%d`, selectPaperColumns, whereClause, argIndex, argIndex+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list papers: %w", err)
	}
	defer rows.Close()

	papers := []*domain.Paper{}
	for rows.Next() {
		paper, err := scanPaperFromRows(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("failed to iterate papers: %w", err)
	}

	return papers, total, nil
}

// CountBySource returns the number of stored papers per source API.
func (r *PgPaperRepository) CountBySource(ctx context.Context) (map[domain.SourceType]int, error) {
	query := `SELECT p.source, COUNT(*) FROM papers p GROUP BY p.source`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count papers by source: %w", err)
	}
	defer rows.Close()

	counts := make(map[domain.SourceType]int)
	for rows.Next() {
		var source domain.SourceType
		var count int
		if err := rows.Scan(&source, &count); err != nil {
			return nil, fmt.Errorf("failed to scan source count: %w", err)
		}
		counts[source] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate source counts: %w", err)
	}

	return counts, nil
}

// CountByYear returns the number of stored papers per publication year.
func (r *PgPaperRepository) CountByYear(ctx context.Context) (map[int]int, error) {
	query := `SELECT p.publication_year, COUNT(*) FROM papers p GROUP BY p.publication_year ORDER BY p.publication_year`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to count papers by year: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var year, count int
		if err := rows.Scan(&year, &count); err != nil {
			return nil, fmt.Errorf("failed to scan year count: %w", err)
		}
		counts[year] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate year counts: %w", err)
	}

	return counts, nil
}

// TopCited returns the n most cited papers.
func (r *PgPaperRepository) TopCited(ctx context.Context, n int) ([]*domain.Paper, error) {
	offset := 0
	applyPaginationDefaults(&n, &offset)

	query := fmt.Sprintf(`
		SELECT %s
		FROM papers p
		ORDER BY p.citation_count DESC, p.title ASC
		LIMIT $1`, selectPaperColumns)

	rows, err := r.db.Query(ctx, query, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query top cited papers: %w", err)
	}
	defer rows.Close()

	papers := []*domain.Paper{}
	for rows.Next() {
		paper, err := scanPaperFromRows(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan paper: %w", err)
		}
		papers = append(papers, paper)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate top cited papers: %w", err)
	}

	return papers, nil
}

// Stats returns aggregate counts across the whole repository.
func (r *PgPaperRepository) Stats(ctx context.Context) (*PaperStats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM papers),
			(SELECT COUNT(*) FROM authors),
			(SELECT COUNT(*) FROM collaborations),
			(SELECT COUNT(*) FROM collections)`

	var stats PaperStats
	err := r.db.QueryRow(ctx, query).Scan(
		&stats.TotalPapers,
		&stats.TotalAuthors,
		&stats.TotalCollaborations,
		&stats.TotalCollections,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query repository stats: %w", err)
	}

	return &stats, nil
}

// paperScanDest collects scan targets for a full paper row. Nullable
// identifier columns land in pointers and JSON columns in raw bytes;
// finalize folds them back into the domain model.
type paperScanDest struct {
	paper        domain.Paper
	arxivID      *string
	pubmedID     *string
	doi          *string
	keywordsJSON []byte
	metadataJSON []byte
	authorsJSON  []byte
}

func (d *paperScanDest) destinations() []interface{} {
	return []interface{}{
		&d.paper.ID, &d.paper.Title, &d.paper.Abstract, &d.paper.PublicationDate, &d.paper.PublicationYear,
		&d.arxivID, &d.pubmedID, &d.doi, &d.paper.Journal, &d.paper.Volume, &d.paper.Pages,
		&d.keywordsJSON, &d.paper.CitationCount, &d.paper.PDFURL, &d.paper.Source, &d.metadataJSON,
		&d.paper.CreatedAt, &d.paper.UpdatedAt,
		&d.authorsJSON,
	}
}

func (d *paperScanDest) finalize() (*domain.Paper, error) {
	paper := d.paper

	if d.arxivID != nil {
		paper.ArXivID = *d.arxivID
	}
	if d.pubmedID != nil {
		paper.PubMedID = *d.pubmedID
	}
	if d.doi != nil {
		paper.DOI = *d.doi
	}

	if len(d.keywordsJSON) > 0 {
		if err := json.Unmarshal(d.keywordsJSON, &paper.Keywords); err != nil {
			return nil, fmt.Errorf("failed to unmarshal keywords: %w", err)
		}
	}
	if len(d.metadataJSON) > 0 {
		if err := json.Unmarshal(d.metadataJSON, &paper.RawMetadata); err != nil {
			return nil, fmt.Errorf("failed to unmarshal raw metadata: %w", err)
		}
	}
	if len(d.authorsJSON) > 0 {
		if err := json.Unmarshal(d.authorsJSON, &paper.Authors); err != nil {
			return nil, fmt.Errorf("failed to unmarshal authors: %w", err)
		}
	}

	return &paper, nil
}

// scanPaper scans a single paper row.
func scanPaper(row pgx.Row) (*domain.Paper, error) {
	var d paperScanDest
	if err := row.Scan(d.destinations()...); err != nil {
		return nil, err
	}
	return d.finalize()
}

// scanPaperFromRows scans the current row of an open rows iterator.
func scanPaperFromRows(rows pgx.Rows) (*domain.Paper, error) {
	var d paperScanDest
	if err := rows.Scan(d.destinations()...); err != nil {
		return nil, err
	}
	return d.finalize()
}
