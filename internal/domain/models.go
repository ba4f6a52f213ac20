// Package domain provides domain models and business logic for the paper network service.
package domain

// SourceType represents the source API that provided paper data.
// These values must match the database enum source_type.
type SourceType string

const (
	SourceTypeArXiv           SourceType = "arxiv"
	SourceTypePubMed          SourceType = "pubmed"
	SourceTypeSemanticScholar SourceType = "semantic_scholar"
)

// AllSourceTypes lists every supported source in registry order.
func AllSourceTypes() []SourceType {
	return []SourceType{SourceTypeArXiv, SourceTypePubMed, SourceTypeSemanticScholar}
}

// IdentifierType represents the type of academic paper identifier.
// The declaration order is the deduplication priority order.
// These values must match the database enum identifier_type.
type IdentifierType string

const (
	IdentifierTypeArXivID  IdentifierType = "arxiv_id"
	IdentifierTypePubMedID IdentifierType = "pubmed_id"
	IdentifierTypeDOI      IdentifierType = "doi"
)

// TaskType represents the kind of collection task.
// These values must match the database enum task_type.
type TaskType string

const (
	TaskTypeCollectAuthors  TaskType = "collect_authors"
	TaskTypeCollectKeywords TaskType = "collect_keywords"
)

// TaskStatus represents the lifecycle states of a collection task.
// These values must match the database enum task_status.
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusRunning   TaskStatus = "running"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusFailed    TaskStatus = "failed"
)

// IsTerminal returns true if the status represents a final state that will not change.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case TaskStatusCompleted, TaskStatusFailed:
		return true
	default:
		return false
	}
}
