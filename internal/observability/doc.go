// Package observability provides logging and metrics support for the paper
// collection service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for collection runs, searches, papers, and expansion
//   - Context helpers for propagating run identity
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("collection_id", id).Msg("collection run started")
//
// Add run context to a logger:
//
//	logger = observability.WithRunContext(logger, collectionID, taskID)
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("paper_network")
//
// Record metrics:
//
//	metrics.RecordRunStarted()
//	metrics.RecordSearchCompleted("arxiv", 25, 1.2)
//	metrics.RecordPaperStored("arxiv")
//
// # Context Helpers
//
// Store and retrieve run identity:
//
//	ctx = observability.WithRun(ctx, collectionID, taskID)
//
//	collectionID, taskID := observability.RunFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - collection_id: Collection driving the current run
//   - task_id: Collection task tracking the run
//   - query: Author name or keyword query being searched
//   - source: Paper source (arxiv, semantic_scholar, pubmed)
//   - paper_id: Paper identifier
//   - external_id: Source-side identifier (arXiv ID, PMID, DOI)
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
