// Package expand drives multi-round paper collection runs. A run searches
// every enabled source for each seed author (and the optional keyword query),
// persists candidates through the deduplicating merge store, and can then
// expand the author network: each expansion round ranks the most frequent
// stored authors and searches the ones the run has not touched yet.
package expand

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/scholarnet/paper-network-service/internal/dedup"
	"github.com/scholarnet/paper-network-service/internal/domain"
	"github.com/scholarnet/paper-network-service/internal/events"
	"github.com/scholarnet/paper-network-service/internal/observability"
	"github.com/scholarnet/paper-network-service/internal/repository"
	"github.com/scholarnet/paper-network-service/internal/sources"
)

// Collection run defaults and expansion bounds.
const (
	// defaultMaxPapers is the per-source result cap for seed searches when
	// the request does not set one.
	defaultMaxPapers = 50

	// defaultCandidateAuthors is how many of the most frequent stored
	// authors are pulled as expansion candidates each round.
	defaultCandidateAuthors = 20

	// defaultAuthorsPerRound caps how many unvisited candidates are
	// actually searched per round.
	defaultAuthorsPerRound = 10

	// defaultExpansionPaperCap is the reduced per-source result cap for
	// expansion searches.
	defaultExpansionPaperCap = 20

	// defaultAuthorDelay keeps sequential author searches a polite distance
	// apart.
	defaultAuthorDelay = 2 * time.Second
)

// Searcher fans a query out to every enabled paper source.
type Searcher interface {
	EnabledSources() []sources.Collector
	SearchAllByAuthor(ctx context.Context, author string, limit int) []sources.SourceResult
	SearchAllByKeywords(ctx context.Context, keywords []string, limit int) []sources.SourceResult
}

// PaperStore is the deduplicating write path for collected papers.
type PaperStore interface {
	Store(ctx context.Context, candidate *domain.Paper, collectionID uuid.UUID) (*domain.Paper, bool, error)
}

// AuthorRanker ranks stored authors by how many papers they appear on.
type AuthorRanker interface {
	AuthorsByFrequency(ctx context.Context, limit int) ([]repository.AuthorPaperCount, error)
}

// TaskTracker transitions the collection task backing a run.
type TaskTracker interface {
	StartTask(ctx context.Context, taskID uuid.UUID) error
	CompleteTask(ctx context.Context, taskID uuid.UUID, papersCollected int) error
	FailTask(ctx context.Context, taskID uuid.UUID, papersCollected int, message string) error
}

// Config tunes a collection run.
type Config struct {
	// AuthorDelay is the pause between consecutive author searches, on top
	// of the per-source rate limiters. Zero disables the pause.
	AuthorDelay time.Duration

	// CandidateAuthors is how many of the most frequent stored authors are
	// pulled as expansion candidates per round. Zero means the default of 20.
	CandidateAuthors int

	// AuthorsPerRound caps how many unvisited candidates are searched per
	// round. Zero means the default of 10.
	AuthorsPerRound int

	// ExpansionPaperCap is the reduced per-source result cap for expansion
	// searches. Zero means the default of 20.
	ExpansionPaperCap int
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		AuthorDelay:       defaultAuthorDelay,
		CandidateAuthors:  defaultCandidateAuthors,
		AuthorsPerRound:   defaultAuthorsPerRound,
		ExpansionPaperCap: defaultExpansionPaperCap,
	}
}

// Request describes one collection run.
type Request struct {
	// CollectionID is the collection stored papers are added to. Leave zero
	// to collect without collection membership.
	CollectionID uuid.UUID

	// TaskID is the collection task tracking this run. Leave zero to run
	// without task bookkeeping.
	TaskID uuid.UUID

	// SeedAuthors are the author names searched in the seed round.
	SeedAuthors []string

	// Keywords form a single query searched once after the seed authors.
	Keywords []string

	// MaxPapers caps results per source for each seed search. Zero means
	// defaultMaxPapers.
	MaxPapers int

	// Expand turns on author network expansion after the seed round.
	Expand bool

	// Rounds is how many expansion rounds may run when Expand is set.
	// Zero keeps the run seed-only.
	Rounds int
}

// Report summarizes a finished run.
type Report struct {
	// PapersStored counts newly stored papers.
	PapersStored int `json:"papers_stored"`

	// Duplicates counts candidates that matched an already stored paper.
	Duplicates int `json:"duplicates"`

	// SourceFailures counts individual source searches that errored.
	SourceFailures int `json:"source_failures"`

	// PapersBySource breaks newly stored papers down by reporting source.
	PapersBySource map[domain.SourceType]int `json:"papers_by_source"`

	// AuthorsVisited lists every author searched, in search order.
	AuthorsVisited []string `json:"authors_visited"`

	// RoundsRun is the number of expansion rounds that actually searched
	// anyone.
	RoundsRun int `json:"rounds_run"`

	// Duration is the total wall-clock time of the run.
	Duration time.Duration `json:"duration"`
}

// Orchestrator runs collection rounds against the registered paper sources
// and persists everything through the merge store. One orchestrator serves
// any number of runs; all per-run state lives in Run.
type Orchestrator struct {
	searcher  Searcher
	store     PaperStore
	authors   AuthorRanker
	tasks     TaskTracker
	publisher events.Publisher
	metrics   *observability.Metrics
	logger    zerolog.Logger
	cfg       Config
}

// NewOrchestrator creates an orchestrator with the given dependencies.
// Zero expansion bounds in cfg fall back to the documented defaults.
func NewOrchestrator(
	searcher Searcher,
	store PaperStore,
	authors AuthorRanker,
	tasks TaskTracker,
	publisher events.Publisher,
	metrics *observability.Metrics,
	logger zerolog.Logger,
	cfg Config,
) *Orchestrator {
	if cfg.CandidateAuthors <= 0 {
		cfg.CandidateAuthors = defaultCandidateAuthors
	}
	if cfg.AuthorsPerRound <= 0 {
		cfg.AuthorsPerRound = defaultAuthorsPerRound
	}
	if cfg.ExpansionPaperCap <= 0 {
		cfg.ExpansionPaperCap = defaultExpansionPaperCap
	}
	return &Orchestrator{
		searcher:  searcher,
		store:     store,
		authors:   authors,
		tasks:     tasks,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger.With().Str("component", "orchestrator").Logger(),
		cfg:       cfg,
	}
}

// Run executes one collection run.
//
// The run:
//  1. Marks the collection task running and publishes the started event.
//  2. Seed round: searches every enabled source for each seed author and for
//     the keyword query, storing all candidates through the merge store.
//  3. Expansion rounds (when requested): ranks stored authors by paper
//     frequency, filters out visited ones, and searches the top remainder
//     with a reduced per-author cap; stops early when no new authors surface.
//  4. Marks the task completed and publishes the completed event.
//
// Individual source and store failures are counted in the report and never
// abort the run; task transition and author ranking errors do. The visited
// set lives here and is threaded through the round helpers, so concurrent
// runs of one orchestrator stay independent.
func (o *Orchestrator) Run(ctx context.Context, req Request) (*Report, error) {
	if len(req.SeedAuthors) == 0 && len(req.Keywords) == 0 {
		return nil, domain.NewValidationError("request", "at least one seed author or keyword is required")
	}

	limit := req.MaxPapers
	if limit <= 0 {
		limit = defaultMaxPapers
	}

	var collectionID, taskID string
	if req.CollectionID != uuid.Nil {
		collectionID = req.CollectionID.String()
	}
	if req.TaskID != uuid.Nil {
		taskID = req.TaskID.String()
	}
	ctx = observability.WithRun(ctx, collectionID, taskID)
	logger := observability.WithRunContext(o.logger, collectionID, taskID)

	startTime := time.Now()
	report := &Report{PapersBySource: make(map[domain.SourceType]int)}
	visited := make(map[string]struct{})

	o.metrics.RecordRunStarted()

	// fail marks the task failed with partial progress, publishes the failed
	// event, and hands back the original error. Bookkeeping runs on a
	// detached context so it still happens when ctx itself is what failed.
	fail := func(phase string, origErr error) (*Report, error) {
		bg := context.WithoutCancel(ctx)
		o.metrics.RecordRunFailed(time.Since(startTime).Seconds())
		if req.TaskID != uuid.Nil {
			if err := o.tasks.FailTask(bg, req.TaskID, report.PapersStored, origErr.Error()); err != nil {
				logger.Error().Err(err).Msg("marking task failed")
			}
		}
		o.publish(bg, domain.EventTypeCollectionFailed, domain.CollectionFailedPayload{
			TaskID: req.TaskID,
			Error:  origErr.Error(),
			Phase:  phase,
		})
		logger.Error().Err(origErr).Str("phase", phase).Msg("collection run failed")
		return nil, origErr
	}

	if req.TaskID != uuid.Nil {
		if err := o.tasks.StartTask(ctx, req.TaskID); err != nil {
			return fail("start", fmt.Errorf("starting collection task: %w", err))
		}
	}

	taskType := domain.TaskTypeCollectAuthors
	if len(req.SeedAuthors) == 0 {
		taskType = domain.TaskTypeCollectKeywords
	}
	expansionRounds := 0
	if req.Expand {
		expansionRounds = req.Rounds
	}
	o.publish(ctx, domain.EventTypeCollectionStarted, domain.CollectionStartedPayload{
		TaskID:          req.TaskID,
		CollectionID:    req.CollectionID,
		TaskType:        taskType,
		SeedAuthors:     req.SeedAuthors,
		Keywords:        req.Keywords,
		MaxPapers:       limit,
		ExpansionRounds: expansionRounds,
	})
	logger.Info().
		Strs("seed_authors", req.SeedAuthors).
		Strs("keywords", req.Keywords).
		Int("max_papers", limit).
		Bool("expand", req.Expand).
		Int("rounds", req.Rounds).
		Msg("collection run started")

	// Seed round.
	for i, author := range req.SeedAuthors {
		if err := ctx.Err(); err != nil {
			return fail("seed", err)
		}
		if i > 0 {
			if err := o.pause(ctx); err != nil {
				return fail("seed", err)
			}
		}
		o.collectAuthor(ctx, report, visited, req, author, limit, 0)
	}
	if len(req.Keywords) > 0 {
		if err := ctx.Err(); err != nil {
			return fail("seed", err)
		}
		if len(req.SeedAuthors) > 0 {
			if err := o.pause(ctx); err != nil {
				return fail("seed", err)
			}
		}
		o.collectKeywords(ctx, report, req, limit)
	}

	// Expansion rounds. Rounds <= 0 leaves the run seed-only.
	if req.Expand {
		for round := 1; round <= req.Rounds; round++ {
			ranked, err := o.authors.AuthorsByFrequency(ctx, o.cfg.CandidateAuthors)
			if err != nil {
				return fail("expansion", fmt.Errorf("ranking authors for expansion round %d: %w", round, err))
			}
			next := o.nextAuthors(ranked, visited)
			if len(next) == 0 {
				logger.Info().Int("round", round).Msg("no unvisited authors ranked, stopping expansion")
				break
			}

			storedBefore := report.PapersStored
			for _, author := range next {
				if err := ctx.Err(); err != nil {
					return fail("expansion", err)
				}
				if err := o.pause(ctx); err != nil {
					return fail("expansion", err)
				}
				o.collectAuthor(ctx, report, visited, req, author, o.cfg.ExpansionPaperCap, round)
			}

			report.RoundsRun = round
			o.metrics.RecordExpansionRound()
			o.publish(ctx, domain.EventTypeRoundCompleted, domain.RoundCompletedPayload{
				TaskID:       req.TaskID,
				Round:        round,
				NewAuthors:   len(next),
				PapersStored: report.PapersStored - storedBefore,
			})
			logger.Info().
				Int("round", round).
				Int("authors", len(next)).
				Int("papers_stored", report.PapersStored-storedBefore).
				Msg("expansion round completed")
		}
	}

	report.Duration = time.Since(startTime)

	if req.TaskID != uuid.Nil {
		if err := o.tasks.CompleteTask(ctx, req.TaskID, report.PapersStored); err != nil {
			return fail("complete", fmt.Errorf("completing collection task: %w", err))
		}
	}

	o.metrics.RecordRunCompleted(report.Duration.Seconds())
	o.publish(ctx, domain.EventTypeCollectionCompleted, domain.CollectionCompletedPayload{
		TaskID:         req.TaskID,
		CollectionID:   req.CollectionID,
		PapersStored:   report.PapersStored,
		Duplicates:     report.Duplicates,
		SourceFailures: report.SourceFailures,
		AuthorsVisited: len(report.AuthorsVisited),
		RoundsRun:      report.RoundsRun,
		Duration:       report.Duration,
	})
	logger.Info().
		Int("papers_stored", report.PapersStored).
		Int("duplicates", report.Duplicates).
		Int("source_failures", report.SourceFailures).
		Int("authors_visited", len(report.AuthorsVisited)).
		Int("rounds_run", report.RoundsRun).
		Dur("duration", report.Duration).
		Msg("collection run completed")

	return report, nil
}

// collectAuthor searches every enabled source for one author and stores the
// results. Authors whose normalized name is already in the visited set are
// skipped, so no author is collected twice in one run.
func (o *Orchestrator) collectAuthor(ctx context.Context, report *Report, visited map[string]struct{}, req Request, author string, limit, round int) {
	key := dedup.NormalizeName(author)
	if key == "" {
		o.logger.Debug().Str("author", author).Msg("author name normalizes to nothing, skipping")
		return
	}
	if _, ok := visited[key]; ok {
		o.logger.Debug().Str("author", author).Msg("author already collected this run, skipping")
		return
	}
	visited[key] = struct{}{}
	report.AuthorsVisited = append(report.AuthorsVisited, author)
	o.metrics.RecordAuthorVisited()

	for _, src := range o.searcher.EnabledSources() {
		o.metrics.RecordSearchStarted(string(src.SourceType()))
	}

	storedBefore, duplicatesBefore := report.PapersStored, report.Duplicates
	found := o.harvest(ctx, report, req.CollectionID, o.searcher.SearchAllByAuthor(ctx, author, limit))

	o.publish(ctx, domain.EventTypeAuthorSearched, domain.AuthorSearchedPayload{
		TaskID:       req.TaskID,
		Author:       author,
		Round:        round,
		PapersFound:  found,
		PapersStored: report.PapersStored - storedBefore,
		Duplicates:   report.Duplicates - duplicatesBefore,
	})
	o.logger.Info().
		Str("author", author).
		Int("round", round).
		Int("papers_found", found).
		Int("papers_stored", report.PapersStored-storedBefore).
		Int("duplicates", report.Duplicates-duplicatesBefore).
		Msg("author search completed")
}

// collectKeywords runs the keyword query across every enabled source and
// stores the results. The query runs once per run and does not interact
// with the visited set.
func (o *Orchestrator) collectKeywords(ctx context.Context, report *Report, req Request, limit int) {
	for _, src := range o.searcher.EnabledSources() {
		o.metrics.RecordSearchStarted(string(src.SourceType()))
	}

	storedBefore, duplicatesBefore := report.PapersStored, report.Duplicates
	found := o.harvest(ctx, report, req.CollectionID, o.searcher.SearchAllByKeywords(ctx, req.Keywords, limit))

	o.publish(ctx, domain.EventTypeAuthorSearched, domain.AuthorSearchedPayload{
		TaskID:       req.TaskID,
		Query:        strings.Join(req.Keywords, " "),
		PapersFound:  found,
		PapersStored: report.PapersStored - storedBefore,
		Duplicates:   report.Duplicates - duplicatesBefore,
	})
	o.logger.Info().
		Strs("keywords", req.Keywords).
		Int("papers_found", found).
		Int("papers_stored", report.PapersStored-storedBefore).
		Int("duplicates", report.Duplicates-duplicatesBefore).
		Msg("keyword search completed")
}

// harvest stores every candidate from the per-source results and returns how
// many papers the sources handed back. Failed sources and failed candidates
// are counted and logged, never fatal: one bad source must not cost the run
// the results of the others.
func (o *Orchestrator) harvest(ctx context.Context, report *Report, collectionID uuid.UUID, results []sources.SourceResult) int {
	found := 0
	for _, r := range results {
		source := string(r.Source)
		if r.Error != nil {
			report.SourceFailures++
			o.metrics.RecordSearchFailed(source, r.Duration.Seconds())
			o.logger.Warn().Err(r.Error).Str("source", source).Msg("source search failed")
			continue
		}

		o.metrics.RecordSearchCompleted(source, len(r.Result.Papers), r.Duration.Seconds())
		found += len(r.Result.Papers)

		for _, candidate := range r.Result.Papers {
			if candidate == nil {
				continue
			}
			stored, created, err := o.store.Store(ctx, candidate, collectionID)
			if err != nil {
				o.metrics.RecordStoreFailure()
				o.logger.Warn().Err(err).
					Str("source", source).
					Str("title", candidate.Title).
					Msg("skipping candidate that failed to store")
				continue
			}
			if created {
				report.PapersStored++
				report.PapersBySource[stored.Source]++
				o.metrics.RecordPaperStored(string(stored.Source))
			} else {
				report.Duplicates++
				o.metrics.RecordPaperDuplicate()
			}
		}
	}
	return found
}

// nextAuthors selects the expansion authors for one round: ranked names are
// filtered against the visited set, then truncated to the per-round cap.
// Two spellings that normalize to the same key count as one author.
func (o *Orchestrator) nextAuthors(ranked []repository.AuthorPaperCount, visited map[string]struct{}) []string {
	var next []string
	picked := make(map[string]struct{})
	for _, entry := range ranked {
		if len(next) == o.cfg.AuthorsPerRound {
			break
		}
		key := dedup.NormalizeName(entry.Author.Name)
		if key == "" {
			continue
		}
		if _, ok := visited[key]; ok {
			continue
		}
		if _, ok := picked[key]; ok {
			continue
		}
		picked[key] = struct{}{}
		next = append(next, entry.Author.Name)
	}
	return next
}

// pause sleeps for the configured inter-author delay, waking early if the
// context is canceled. The delay sits between consecutive searches, on top
// of the per-source rate limiters, to stay within courteous-use norms of
// the upstream APIs.
func (o *Orchestrator) pause(ctx context.Context) error {
	if o.cfg.AuthorDelay <= 0 {
		return nil
	}
	timer := time.NewTimer(o.cfg.AuthorDelay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// publish sends a run event, logging and swallowing failures. Event delivery
// is best effort; a broker outage must not abort a run.
func (o *Orchestrator) publish(ctx context.Context, eventType string, payload interface{}) {
	if err := o.publisher.Publish(ctx, eventType, payload); err != nil {
		o.logger.Warn().Err(err).Str("event_type", eventType).Msg("publishing run event")
	}
}
