package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event type constants for collection progress events.
const (
	EventTypeCollectionStarted   = "collection.started"
	EventTypeAuthorSearched      = "collection.author_searched"
	EventTypeRoundCompleted      = "collection.round_completed"
	EventTypeCollectionCompleted = "collection.completed"
	EventTypeCollectionFailed    = "collection.failed"
)

// CollectionStartedPayload is the payload for collection.started events.
type CollectionStartedPayload struct {
	TaskID          uuid.UUID `json:"task_id"`
	CollectionID    uuid.UUID `json:"collection_id"`
	TaskType        TaskType  `json:"task_type"`
	SeedAuthors     []string  `json:"seed_authors,omitempty"`
	Keywords        []string  `json:"keywords,omitempty"`
	MaxPapers       int       `json:"max_papers"`
	ExpansionRounds int       `json:"expansion_rounds"`
}

// AuthorSearchedPayload is the payload for collection.author_searched events.
// Author is set for author searches, Query for the keyword search.
type AuthorSearchedPayload struct {
	TaskID       uuid.UUID          `json:"task_id"`
	Author       string             `json:"author,omitempty"`
	Query        string             `json:"query,omitempty"`
	Round        int                `json:"round"`
	PapersFound  int                `json:"papers_found"`
	PapersStored int                `json:"papers_stored"`
	Duplicates   int                `json:"duplicates"`
	BySource     map[SourceType]int `json:"by_source,omitempty"`
}

// RoundCompletedPayload is the payload for collection.round_completed events.
type RoundCompletedPayload struct {
	TaskID       uuid.UUID `json:"task_id"`
	Round        int       `json:"round"`
	NewAuthors   int       `json:"new_authors"`
	PapersStored int       `json:"papers_stored"`
}

// CollectionCompletedPayload is the payload for collection.completed events.
type CollectionCompletedPayload struct {
	TaskID         uuid.UUID     `json:"task_id"`
	CollectionID   uuid.UUID     `json:"collection_id"`
	PapersStored   int           `json:"papers_stored"`
	Duplicates     int           `json:"duplicates"`
	SourceFailures int           `json:"source_failures"`
	AuthorsVisited int           `json:"authors_visited"`
	RoundsRun      int           `json:"rounds_run"`
	Duration       time.Duration `json:"duration_ns"`
}

// CollectionFailedPayload is the payload for collection.failed events.
type CollectionFailedPayload struct {
	TaskID uuid.UUID `json:"task_id"`
	Error  string    `json:"error"`
	Phase  string    `json:"phase"`
}
