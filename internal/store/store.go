// Package store provides the deduplicating merge store that writes collected
// papers into the central repository. Candidates arrive normalized from any
// source; the store decides whether each one is new or a duplicate of a
// stored paper and persists papers, authors, collection membership, and
// collaborations in a single transaction.
package store

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/scholarnet/paper-network-service/internal/database"
	"github.com/scholarnet/paper-network-service/internal/domain"
	"github.com/scholarnet/paper-network-service/internal/normalize"
	"github.com/scholarnet/paper-network-service/internal/repository"
)

// TxDatabase is the slice of database.DB the merge store needs: transactions
// and the transaction-scoped advisory lock that serializes writes sharing a
// deduplication key.
type TxDatabase interface {
	WithTransaction(ctx context.Context, fn func(tx pgx.Tx) error) error
	AcquireAdvisoryLockTx(ctx context.Context, tx pgx.Tx, key int64) error
}

// Compile-time check that database.DB satisfies TxDatabase.
var _ TxDatabase = (*database.DB)(nil)

// MergeStore deduplicates and persists collected papers.
type MergeStore struct {
	db     TxDatabase
	logger zerolog.Logger
}

// NewMergeStore creates a merge store over the given database.
func NewMergeStore(db TxDatabase, logger zerolog.Logger) *MergeStore {
	return &MergeStore{
		db:     db,
		logger: logger.With().Str("component", "merge_store").Logger(),
	}
}

// Store writes one collected paper into the central repository and reports
// whether a new row was created.
//
// The method:
//  1. Normalizes the candidate in place (identifiers, whitespace, authors).
//  2. Opens a transaction and serializes on an advisory lock derived from
//     the candidate's deduplication key.
//  3. Runs the lookup cascade in priority order: arXiv ID, PubMed ID, DOI,
//     then title with publication date. A hit returns the stored paper with
//     created == false; the stored fields are not merged with the candidate.
//  4. On a miss, inserts the paper, upserts its authors by name, links
//     authorship with positions, adds the paper to the collection when
//     collectionID is set, and records a collaboration for every unordered
//     author pair.
//  5. A unique violation despite the lock means the candidate collided with
//     a row written under a different lock key (for example two candidates
//     sharing a DOI but keyed by different identifiers). The write retries
//     once; the second pass resolves to the winning row.
//
// Duplicates are still added to the collection, so a collection reflects
// every paper a run touched, not just the newly created ones.
func (s *MergeStore) Store(ctx context.Context, candidate *domain.Paper, collectionID uuid.UUID) (*domain.Paper, bool, error) {
	if candidate == nil {
		return nil, false, domain.NewValidationError("paper", "paper cannot be nil")
	}

	normalize.Paper(candidate)

	if candidate.Title == "" {
		return nil, false, domain.NewValidationError("title", "title cannot be empty")
	}
	if len(candidate.Authors) == 0 {
		return nil, false, domain.NewValidationError("authors", "paper must have at least one author")
	}

	stored, created, err := s.storeOnce(ctx, candidate, collectionID)
	if err != nil && errors.Is(err, domain.ErrAlreadyExists) {
		s.logger.Debug().
			Str("canonical_key", candidate.CanonicalKey()).
			Msg("paper insert raced an existing row, retrying lookup")
		stored, created, err = s.storeOnce(ctx, candidate, collectionID)
	}
	if err != nil {
		return nil, false, err
	}

	s.logger.Debug().
		Str("paper_id", stored.ID.String()).
		Str("canonical_key", candidate.CanonicalKey()).
		Str("source", string(candidate.Source)).
		Bool("created", created).
		Msg("paper stored")

	return stored, created, nil
}

// storeOnce runs one lock-lookup-insert pass in a single transaction.
func (s *MergeStore) storeOnce(ctx context.Context, candidate *domain.Paper, collectionID uuid.UUID) (*domain.Paper, bool, error) {
	var (
		stored  *domain.Paper
		created bool
	)

	key := lockKey(candidate.CanonicalKey())

	err := s.db.WithTransaction(ctx, func(tx pgx.Tx) error {
		if err := s.db.AcquireAdvisoryLockTx(ctx, tx, key); err != nil {
			return fmt.Errorf("acquiring merge lock: %w", err)
		}

		papers := repository.NewPgPaperRepository(tx)
		authors := repository.NewPgAuthorRepository(tx)
		collaborations := repository.NewPgCollaborationRepository(tx)
		collections := repository.NewPgCollectionRepository(tx)

		existing, err := s.lookup(ctx, papers, candidate)
		if err != nil {
			return err
		}
		if existing != nil {
			if collectionID != uuid.Nil {
				if err := collections.AddPaper(ctx, collectionID, existing.ID); err != nil {
					return fmt.Errorf("adding duplicate to collection: %w", err)
				}
			}
			stored = existing
			return nil
		}

		inserted, err := papers.Create(ctx, candidate)
		if err != nil {
			return err
		}

		persisted := make([]domain.Author, 0, len(candidate.Authors))
		authorIDs := make([]uuid.UUID, 0, len(candidate.Authors))
		for _, author := range candidate.Authors {
			a := author
			upserted, err := authors.UpsertByName(ctx, &a)
			if err != nil {
				return fmt.Errorf("upserting author %q: %w", author.Name, err)
			}
			persisted = append(persisted, *upserted)
			authorIDs = append(authorIDs, upserted.ID)
		}
		if err := authors.LinkAuthors(ctx, inserted.ID, authorIDs); err != nil {
			return fmt.Errorf("linking authors: %w", err)
		}

		if collectionID != uuid.Nil {
			if err := collections.AddPaper(ctx, collectionID, inserted.ID); err != nil {
				return fmt.Errorf("adding paper to collection: %w", err)
			}
		}

		for _, pair := range domain.CollaborationPairs(persisted) {
			if _, err := collaborations.RecordPaper(ctx, pair[0].ID, pair[1].ID, inserted.ID, candidate.PublicationDate); err != nil {
				return fmt.Errorf("recording collaboration %s/%s: %w", pair[0].Name, pair[1].Name, err)
			}
		}

		inserted.Authors = persisted
		stored = inserted
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return stored, created, nil
}

// lookup runs the deduplication cascade against stored papers: every external
// identifier the candidate carries, in priority order, then the title and
// publication date pair. Returns nil with no error when nothing matches.
func (s *MergeStore) lookup(ctx context.Context, papers repository.PaperRepository, candidate *domain.Paper) (*domain.Paper, error) {
	for _, id := range candidate.Identifiers() {
		existing, err := papers.FindByIdentifier(ctx, id.Type, id.Value)
		if err == nil {
			return existing, nil
		}
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("looking up paper by %s: %w", id.Type, err)
		}
	}

	existing, err := papers.FindByTitleAndDate(ctx, candidate.Title, *candidate.PublicationDate)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("looking up paper by title and date: %w", err)
	}

	return nil, nil
}

// lockKey folds a deduplication key into the signed 64-bit space PostgreSQL
// advisory locks use.
func lockKey(key string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	return int64(h.Sum64())
}
