// Package main provides the paper collection CLI. One invocation runs one
// collection: it seeds from author names or keywords, optionally expands the
// author network, and reports what was collected.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/scholarnet/paper-network-service/internal/config"
	"github.com/scholarnet/paper-network-service/internal/database"
	"github.com/scholarnet/paper-network-service/internal/domain"
	"github.com/scholarnet/paper-network-service/internal/events"
	"github.com/scholarnet/paper-network-service/internal/expand"
	"github.com/scholarnet/paper-network-service/internal/graph"
	"github.com/scholarnet/paper-network-service/internal/observability"
	"github.com/scholarnet/paper-network-service/internal/opsserver"
	"github.com/scholarnet/paper-network-service/internal/repository"
	"github.com/scholarnet/paper-network-service/internal/sources"
	"github.com/scholarnet/paper-network-service/internal/sources/arxiv"
	"github.com/scholarnet/paper-network-service/internal/sources/pubmed"
	"github.com/scholarnet/paper-network-service/internal/sources/semanticscholar"
	"github.com/scholarnet/paper-network-service/internal/store"
)

// statsTopN is how many entries the top-cited and most-productive stats
// tables show.
const statsTopN = 5

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Define CLI flags.
	emailFlag := flag.String("email", "", "Contact email identifying you to arXiv and NCBI (required)")
	authorsFlag := flag.String("authors", "", "Comma-separated seed author names")
	keywordsFlag := flag.String("keywords", "", "Comma-separated keywords searched as one query")
	expandFlag := flag.Bool("expand", false, "Expand the author network after the seed round")
	roundsFlag := flag.Int("rounds", 2, "Number of expansion rounds when -expand is set")
	maxPapersFlag := flag.Int("max-papers", 50, "Maximum papers per source for each seed search")
	analysisFlag := flag.Bool("analysis", false, "Print collaboration network analysis after the run")
	exportFlag := flag.String("export-network", "", "Write the collaboration network as JSON to this file")
	statsFlag := flag.Bool("stats", false, "Print repository statistics after the run")
	nameFlag := flag.String("collection-name", "", "Name for the created collection")
	flag.Parse()

	seedAuthors := splitList(*authorsFlag)
	keywords := splitList(*keywordsFlag)

	if len(seedAuthors) == 0 && len(keywords) == 0 {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nPlease specify at least one of: -authors \"Name One,Name Two\", -keywords \"term one,term two\"")
		return fmt.Errorf("no seed authors or keywords: %w", domain.ErrInvalidInput)
	}

	// Load configuration (database, sources, and run settings from env/config file).
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// Flags override their configured counterparts only when set explicitly.
	rounds := cfg.Collection.ExpansionRounds
	maxPapers := cfg.Collection.SeedPaperLimit
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "rounds":
			rounds = *roundsFlag
		case "max-papers":
			maxPapers = *maxPapersFlag
		}
	})

	contactEmail := strings.TrimSpace(*emailFlag)
	if contactEmail == "" {
		contactEmail = cfg.Collection.ContactEmail
	}
	if contactEmail == "" {
		flag.Usage()
		fmt.Fprintln(os.Stderr, "\nPlease provide a contact email with -email; the arXiv and NCBI usage policies require one")
		return fmt.Errorf("contact email is required: %w", domain.ErrInvalidInput)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "collector").Logger()
	logger.Info().Msg("paper-network-service collector starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to PostgreSQL.
	db, err := database.New(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()
	logger.Info().Msg("database connection established")

	// Run migrations if configured.
	if cfg.Database.MigrationAutoRun {
		migrator, err := database.NewMigrator(db, cfg.Database.MigrationPath, logger)
		if err != nil {
			return fmt.Errorf("create migrator: %w", err)
		}
		defer func() {
			if closeErr := migrator.Close(); closeErr != nil {
				logger.Error().Err(closeErr).Msg("failed to close migrator")
			}
		}()

		if err := migrator.Up(); err != nil {
			return fmt.Errorf("run migrations: %w", err)
		}
	}

	// Create repositories and the merge store.
	paperRepo := repository.NewPgPaperRepository(db)
	authorRepo := repository.NewPgAuthorRepository(db)
	collectionRepo := repository.NewPgCollectionRepository(db)
	collaborationRepo := repository.NewPgCollaborationRepository(db)
	mergeStore := store.NewMergeStore(db, logger)

	metrics := observability.NewMetrics("paper_network")

	// Wire the configured source clients.
	registry := buildRegistry(cfg.Sources, contactEmail)
	enabled := registry.EnabledSources()
	if len(enabled) == 0 {
		return fmt.Errorf("no paper sources are enabled; enable at least one under sources in the configuration")
	}
	names := make([]string, len(enabled))
	for i, source := range enabled {
		names[i] = source.Name()
	}
	logger.Info().Strs("sources", names).Msg("paper sources enabled")

	// Publish run events to Kafka when configured.
	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Events.Enabled {
		kafkaPublisher := events.NewKafkaPublisher(events.Config{
			Brokers:      cfg.Events.Brokers,
			Topic:        cfg.Events.Topic,
			BatchSize:    cfg.Events.BatchSize,
			BatchTimeout: cfg.Events.BatchTimeout,
		}, logger)
		defer func() {
			if closeErr := kafkaPublisher.Close(); closeErr != nil {
				logger.Warn().Err(closeErr).Msg("failed to close event publisher")
			}
		}()
		publisher = kafkaPublisher
	}

	// Serve health and metrics while the run is active.
	if cfg.Metrics.Enabled {
		ops := opsserver.NewServer(opsserver.Config{
			Address:      cfg.Server.Address(),
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
			IdleTimeout:  2 * time.Minute,
			MetricsPath:  cfg.Metrics.Path,
		}, db, logger)

		go func() {
			if err := ops.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error().Err(err).Msg("operational server error")
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := ops.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("operational server shutdown error")
			}
		}()
	}

	orchestrator := expand.NewOrchestrator(
		registry,
		mergeStore,
		authorRepo,
		collectionRepo,
		publisher,
		metrics,
		logger,
		expand.Config{
			AuthorDelay:       cfg.Collection.RequestDelay,
			CandidateAuthors:  cfg.Collection.CandidateAuthors,
			AuthorsPerRound:   cfg.Collection.AuthorsPerRound,
			ExpansionPaperCap: cfg.Collection.ExpansionPaperLimit,
		},
	)

	// Create the collection and its task record.
	name := strings.TrimSpace(*nameFlag)
	if name == "" {
		name = "Collection " + time.Now().Format("2006-01-02 15:04")
	}
	collection, err := collectionRepo.CreateCollection(ctx, domain.NewCollection(name, describeRun(seedAuthors, keywords)))
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}

	taskType := domain.TaskTypeCollectAuthors
	if len(seedAuthors) == 0 {
		taskType = domain.TaskTypeCollectKeywords
	}
	task, err := collectionRepo.CreateTask(ctx, domain.NewCollectionTask(collection.ID, taskType, map[string]interface{}{
		"seed_authors": seedAuthors,
		"keywords":     keywords,
		"max_papers":   maxPapers,
		"expand":       *expandFlag,
		"rounds":       rounds,
	}))
	if err != nil {
		return fmt.Errorf("create collection task: %w", err)
	}

	logger.Info().
		Str("collection_id", collection.ID.String()).
		Str("task_id", task.ID.String()).
		Str("collection_name", collection.Name).
		Msg("collection created")

	report, err := orchestrator.Run(ctx, expand.Request{
		CollectionID: collection.ID,
		TaskID:       task.ID,
		SeedAuthors:  seedAuthors,
		Keywords:     keywords,
		MaxPapers:    maxPapers,
		Expand:       *expandFlag,
		Rounds:       rounds,
	})
	if err != nil {
		return fmt.Errorf("collection run: %w", err)
	}

	printReport(os.Stdout, report)

	if *analysisFlag || *exportFlag != "" {
		edges, err := collaborationRepo.ListAll(ctx)
		if err != nil {
			return fmt.Errorf("loading collaboration network: %w", err)
		}
		g := graph.NewFromEdges(edges)

		if *analysisFlag {
			printAnalysis(os.Stdout, graph.Analyze(g))
		}
		if *exportFlag != "" {
			if err := writeNetworkExport(*exportFlag, g); err != nil {
				return err
			}
			fmt.Fprintf(os.Stdout, "\nNetwork written to %s\n", *exportFlag)
		}
	}

	if *statsFlag {
		if err := printStats(ctx, os.Stdout, paperRepo, authorRepo); err != nil {
			return err
		}
	}

	return nil
}

// buildRegistry wires the configured source clients into a registry. The
// contact email reaches arXiv through the User-Agent header and PubMed
// through the E-utilities email parameter.
func buildRegistry(cfg config.SourcesConfig, contactEmail string) *sources.Registry {
	registry := sources.NewRegistry()

	registry.Register(arxiv.New(arxiv.Config{
		BaseURL:      cfg.ArXiv.BaseURL,
		Timeout:      cfg.ArXiv.Timeout,
		WindowCalls:  cfg.ArXiv.WindowCalls,
		Window:       cfg.ArXiv.Window,
		MaxResults:   cfg.ArXiv.MaxResults,
		ContactEmail: contactEmail,
		Enabled:      cfg.ArXiv.Enabled,
	}))

	registry.Register(pubmed.New(pubmed.Config{
		BaseURL:         cfg.PubMed.BaseURL,
		APIKey:          cfg.PubMed.APIKey,
		Email:           contactEmail,
		Timeout:         cfg.PubMed.Timeout,
		RateLimit:       cfg.PubMed.RateLimit,
		BurstSize:       cfg.PubMed.BurstSize,
		MaxResults:      cfg.PubMed.MaxResults,
		MaintenanceMode: cfg.PubMed.MaintenanceMode,
		Enabled:         cfg.PubMed.Enabled,
	}))

	registry.Register(semanticscholar.NewClient(semanticscholar.Config{
		BaseURL:     cfg.SemanticScholar.BaseURL,
		APIKey:      cfg.SemanticScholar.APIKey,
		Timeout:     cfg.SemanticScholar.Timeout,
		WindowCalls: cfg.SemanticScholar.WindowCalls,
		Window:      cfg.SemanticScholar.Window,
		MaxResults:  cfg.SemanticScholar.MaxResults,
		Enabled:     cfg.SemanticScholar.Enabled,
	}, nil))

	return registry
}

// splitList splits a comma-separated flag value, trimming whitespace and
// dropping empty entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// describeRun summarizes the run inputs for the collection description.
func describeRun(authors, keywords []string) string {
	var parts []string
	if len(authors) > 0 {
		parts = append(parts, "authors: "+strings.Join(authors, ", "))
	}
	if len(keywords) > 0 {
		parts = append(parts, "keywords: "+strings.Join(keywords, ", "))
	}
	return "Collected from " + strings.Join(parts, "; ")
}

// printReport writes the human-readable run summary.
func printReport(w io.Writer, report *expand.Report) {
	fmt.Fprintf(w, "\nCollection run completed in %s\n\n", report.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Papers stored:    %d\n", report.PapersStored)
	fmt.Fprintf(w, "  Duplicates:       %d\n", report.Duplicates)
	fmt.Fprintf(w, "  Source failures:  %d\n", report.SourceFailures)
	fmt.Fprintf(w, "  Authors visited:  %d\n", len(report.AuthorsVisited))
	fmt.Fprintf(w, "  Expansion rounds: %d\n", report.RoundsRun)

	if len(report.PapersBySource) > 0 {
		fmt.Fprintf(w, "\n  Papers by source:\n")
		for _, source := range domain.AllSourceTypes() {
			if count, ok := report.PapersBySource[source]; ok {
				fmt.Fprintf(w, "    %-18s %d\n", source, count)
			}
		}
	}
}

// printAnalysis writes the collaboration network metrics block.
func printAnalysis(w io.Writer, analysis *graph.NetworkAnalysis) {
	fmt.Fprintf(w, "\nCollaboration network:\n\n")
	fmt.Fprintf(w, "  Authors:              %d\n", analysis.TotalAuthors)
	fmt.Fprintf(w, "  Collaborations:       %d\n", analysis.TotalCollaborations)
	fmt.Fprintf(w, "  Avg collaborators:    %.2f\n", analysis.AverageCollaborationsPerAuthor)
	fmt.Fprintf(w, "  Connected components: %d\n", analysis.ConnectedComponents)
	fmt.Fprintf(w, "  Largest component:    %d\n", analysis.LargestComponentSize)
	fmt.Fprintf(w, "  Density:              %.4f\n", analysis.NetworkDensity)
	fmt.Fprintf(w, "  Clustering:           %.4f\n", analysis.ClusteringCoefficient)

	if len(analysis.MostCollaborativeAuthors) > 0 {
		fmt.Fprintf(w, "\n  Most collaborative authors:\n")
		for i, author := range analysis.MostCollaborativeAuthors {
			fmt.Fprintf(w, "    %2d. %s (%d collaborators)\n", i+1, author.Name, author.Degree)
		}
	}
}

// writeNetworkExport renders the graph as JSON node and edge lists and writes
// it to the given path.
func writeNetworkExport(path string, g *graph.Graph) error {
	export := graph.ExportNetwork(g)
	data, err := json.MarshalIndent(export, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding network export: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing network export: %w", err)
	}
	return nil
}

// printStats writes repository-wide statistics.
func printStats(ctx context.Context, w io.Writer, papers repository.PaperRepository, authors repository.AuthorRepository) error {
	stats, err := papers.Stats(ctx)
	if err != nil {
		return fmt.Errorf("loading repository stats: %w", err)
	}
	fmt.Fprintf(w, "\nRepository statistics:\n\n")
	fmt.Fprintf(w, "  Papers:         %d\n", stats.TotalPapers)
	fmt.Fprintf(w, "  Authors:        %d\n", stats.TotalAuthors)
	fmt.Fprintf(w, "  Collaborations: %d\n", stats.TotalCollaborations)
	fmt.Fprintf(w, "  Collections:    %d\n", stats.TotalCollections)

	bySource, err := papers.CountBySource(ctx)
	if err != nil {
		return fmt.Errorf("counting papers by source: %w", err)
	}
	if len(bySource) > 0 {
		fmt.Fprintf(w, "\n  Papers by source:\n")
		for _, source := range domain.AllSourceTypes() {
			if count, ok := bySource[source]; ok {
				fmt.Fprintf(w, "    %-18s %d\n", source, count)
			}
		}
	}

	byYear, err := papers.CountByYear(ctx)
	if err != nil {
		return fmt.Errorf("counting papers by year: %w", err)
	}
	if len(byYear) > 0 {
		years := make([]int, 0, len(byYear))
		for year := range byYear {
			years = append(years, year)
		}
		sort.Sort(sort.Reverse(sort.IntSlice(years)))
		fmt.Fprintf(w, "\n  Papers by year:\n")
		for _, year := range years {
			fmt.Fprintf(w, "    %d  %d\n", year, byYear[year])
		}
	}

	topCited, err := papers.TopCited(ctx, statsTopN)
	if err != nil {
		return fmt.Errorf("ranking top cited papers: %w", err)
	}
	if len(topCited) > 0 {
		fmt.Fprintf(w, "\n  Most cited papers:\n")
		for i, paper := range topCited {
			fmt.Fprintf(w, "    %2d. %s (%d citations)\n", i+1, paper.Title, paper.CitationCount)
		}
	}

	productive, err := authors.MostProductive(ctx, statsTopN)
	if err != nil {
		return fmt.Errorf("ranking most productive authors: %w", err)
	}
	if len(productive) > 0 {
		fmt.Fprintf(w, "\n  Most productive authors:\n")
		for i, entry := range productive {
			fmt.Fprintf(w, "    %2d. %s (%d papers)\n", i+1, entry.Author.Name, entry.PaperCount)
		}
	}

	return nil
}
