package common

import (
	"fmt"
	"time"
)

// ExtractionError reports that entity extraction failed for a chunk after
// all retries. The chunk stays in the vector index but contributes no
// mentions to the graph.
type ExtractionError struct {
	ChunkID string
	Err     error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed for chunk %s: %v", e.ChunkID, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// EmbeddingError reports that embedding failed for a chunk after all
// retries. The chunk is excluded from the vector index but its mentions
// still enter the graph.
type EmbeddingError struct {
	ChunkID string
	Err     error
}

func (e *EmbeddingError) Error() string {
	return fmt.Sprintf("embedding failed for chunk %s: %v", e.ChunkID, e.Err)
}

func (e *EmbeddingError) Unwrap() error { return e.Err }

// GraphMergeConflictError reports a structural invariant violation while
// merging relations, such as the same entity pair appearing under both
// endpoint orders. It aborts the build; the previous snapshot stays
// authoritative.
type GraphMergeConflictError struct {
	Detail string
}

func (e *GraphMergeConflictError) Error() string {
	return fmt.Sprintf("graph merge conflict: %s", e.Detail)
}

// CommunityDetectionError reports that community detection produced an
// inconsistent hierarchy or could not run on the given graph. It aborts
// the build; the previous snapshot stays authoritative.
type CommunityDetectionError struct {
	Detail string
}

func (e *CommunityDetectionError) Error() string {
	return fmt.Sprintf("community detection failed: %s", e.Detail)
}

// RateLimitError reports that a call could not acquire a rate-limit
// permit for a capability before the acquire timeout elapsed. Callers
// retry with backoff and eventually drop the work item.
type RateLimitError struct {
	Capability string
	Timeout    time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s: no permit within %s", e.Capability, e.Timeout)
}

// SummaryError reports that summarization failed for a community after
// all retries. Global search excludes the community from the reduce step
// and counts the omission in the answer metadata.
type SummaryError struct {
	CommunityID string
	Err         error
}

func (e *SummaryError) Error() string {
	return fmt.Sprintf("summarization failed for community %s: %v", e.CommunityID, e.Err)
}

func (e *SummaryError) Unwrap() error { return e.Err }

// EmptyIndexError reports a local search against an engine whose vector
// index holds no chunks.
type EmptyIndexError struct{}

func (e *EmptyIndexError) Error() string { return "vector index is empty" }

// Is lets errors.Is match any two EmptyIndexError values.
func (e *EmptyIndexError) Is(target error) bool {
	_, ok := target.(*EmptyIndexError)
	return ok
}
