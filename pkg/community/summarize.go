package community

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gUtil "github.com/nevergoodstudy-hub/wechat-article-summarizer/internal/util"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/ai"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/logger"

	"golang.org/x/sync/errgroup"
)

const (
	defaultParallelAiRequests = 4
	defaultMaxRetries         = 3
	defaultRetryBackoff       = 500 * time.Millisecond
)

// Summarizer generates the natural-language summaries of communities
// that global search maps over. Failures leave a community's summary
// empty rather than failing the caller; empty summaries are retried
// lazily at query time.
type Summarizer struct {
	parallelAiRequests int
	maxRetries         int
	retryBackoff       time.Duration
}

// NewSummarizerParams defines the configuration parameters for creating
// a new Summarizer. Zero values fall back to package defaults.
type NewSummarizerParams struct {
	ParallelAiRequests int
	MaxRetries         int
	RetryBackoff       time.Duration
}

// NewSummarizer creates a Summarizer configured with the provided
// parameters.
func NewSummarizer(params NewSummarizerParams) *Summarizer {
	parallel := params.ParallelAiRequests
	if parallel <= 0 {
		parallel = defaultParallelAiRequests
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	backoff := params.RetryBackoff
	if backoff <= 0 {
		backoff = defaultRetryBackoff
	}
	return &Summarizer{
		parallelAiRequests: parallel,
		maxRetries:         maxRetries,
		retryBackoff:       backoff,
	}
}

// SummaryContext renders the community's entities and intra-community
// relations as the data block the summary prompt runs over.
func SummaryContext(graph common.Graph, c common.Community) string {
	byID := make(map[string]common.Entity, len(graph.Entities))
	for _, e := range graph.Entities {
		byID[e.ID] = e
	}
	member := make(map[string]bool, len(c.EntityIDs))
	for _, id := range c.EntityIDs {
		member[id] = true
	}

	var b strings.Builder
	b.WriteString("Entities:\n")
	for _, id := range c.EntityIDs {
		e, ok := byID[id]
		if !ok {
			continue
		}
		if e.Description != "" {
			fmt.Fprintf(&b, "%s (%s): %s\n", e.Name, e.Type, e.Description)
		} else {
			fmt.Fprintf(&b, "%s (%s)\n", e.Name, e.Type)
		}
	}

	b.WriteString("\nRelationships:\n")
	for _, rel := range graph.Relations {
		if !member[rel.SourceID] || !member[rel.TargetID] {
			continue
		}
		texts := make([]string, 0, len(rel.Descriptions))
		for _, d := range rel.Descriptions {
			texts = append(texts, d.Text)
		}
		line := strings.Join(texts, "; ")
		if line == "" {
			line = "related"
		}
		fmt.Fprintf(&b, "%s <-> %s: %s\n", byID[rel.SourceID].Name, byID[rel.TargetID].Name, line)
	}
	return b.String()
}

// SummarizeOne generates the summary for a single community. The error
// is a SummaryError wrapping the last attempt's failure.
func (s *Summarizer) SummarizeOne(
	ctx context.Context,
	graph common.Graph,
	c common.Community,
	aiClient ai.Client,
) (string, error) {
	prompt := fmt.Sprintf(ai.CommunitySummaryPrompt, SummaryContext(graph, c))
	summary, err := gUtil.RetryWithContext(ctx, s.maxRetries, s.retryBackoff, func(ctx context.Context) (string, error) {
		return aiClient.GenerateCompletion(ctx, prompt)
	})
	if err != nil {
		return "", &common.SummaryError{CommunityID: c.ID, Err: err}
	}
	return strings.TrimSpace(summary), nil
}

// SummarizeHierarchy fills in the summaries of every community in the
// hierarchy that does not have one yet, in place, fanning out over a
// bounded worker pool. It returns how many communities were left
// without a summary; only context cancellation is an error.
func (s *Summarizer) SummarizeHierarchy(
	ctx context.Context,
	graph common.Graph,
	hierarchy *common.CommunityHierarchy,
	aiClient ai.Client,
) (int, error) {
	total := 0
	for _, level := range hierarchy.Levels {
		total += len(level)
	}
	logger.Info("[Community] Summarizing", "communities", total)

	failed := make([][]bool, len(hierarchy.Levels))
	for li := range hierarchy.Levels {
		failed[li] = make([]bool, len(hierarchy.Levels[li]))
	}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(s.parallelAiRequests)

	for li := range hierarchy.Levels {
		for ci := range hierarchy.Levels[li] {
			li := li
			ci := ci
			c := hierarchy.Levels[li][ci]
			if c.Summary != "" {
				continue
			}
			eg.Go(func() error {
				select {
				case <-gCtx.Done():
					return nil
				default:
				}

				summary, err := s.SummarizeOne(gCtx, graph, c, aiClient)
				if err != nil {
					if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
						return err
					}
					failed[li][ci] = true
					logger.Warn("[Community] summary degraded", "community_id", c.ID, "err", err)
					return nil
				}
				hierarchy.Levels[li][ci].Summary = summary
				return nil
			})
		}
	}

	if err := eg.Wait(); err != nil {
		return 0, fmt.Errorf("failed to summarize communities:\n%w", err)
	}
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("failed to summarize communities:\n%w", err)
	}

	failedCount := 0
	for li := range failed {
		for _, f := range failed[li] {
			if f {
				failedCount++
			}
		}
	}
	logger.Info("[Community] Summaries generated", "generated", total-failedCount, "failed", failedCount)
	return failedCount, nil
}
