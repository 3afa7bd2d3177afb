package query

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/internal/util"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/ai"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/logger"
)

// mapResponse is the structured output of one community map call.
type mapResponse struct {
	Answer         string `json:"answer" jsonschema_description:"Partial answer to the question based only on the community summary, empty if the community contains nothing relevant"`
	RelevanceScore int    `json:"relevance_score" jsonschema_description:"How relevant the community is to the question, from 0 (nothing useful) to 100 (directly and completely addresses it)"`
}

// partialAnswer is one community's contribution to the reduce step.
type partialAnswer struct {
	communityID string
	text        string
	score       int
}

// GlobalSearch answers a corpus-wide question by mapping it over every
// community at the given hierarchy level and reducing the partial
// answers whose relevance reaches the threshold. Communities whose map
// call keeps failing are excluded and counted in the answer metadata.
//
// A corpus with no snapshot, no communities at the level, or no partial
// answer above the threshold yields an answer stating that no relevant
// information was found, never an error.
func (e *QueryEngine) GlobalSearch(ctx context.Context, query string, level, threshold int) (*common.Answer, error) {
	if level < 0 {
		return nil, fmt.Errorf("level must not be negative, got %d", level)
	}
	if threshold < 0 || threshold > 100 {
		return nil, fmt.Errorf("threshold must be between 0 and 100, got %d", threshold)
	}

	state := e.currentState()
	if state == nil {
		return noDataAnswer(0, 0), nil
	}
	degraded := len(state.snapshot.Report.DegradedChunks)

	communities := state.snapshot.Hierarchy.AtLevel(level)
	if len(communities) == 0 {
		return noDataAnswer(degraded, 0), nil
	}

	logger.Info("[Engine] Global search",
		"level", level,
		"communities", len(communities),
		"threshold", threshold,
	)

	partials := make([]*partialAnswer, len(communities))
	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(e.parallelAiRequests)
	for i, candidate := range communities {
		pos := i
		c := candidate
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
			}

			partial, err := e.mapCommunity(gCtx, state, query, c)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return err
				}
				logger.Warn("[Engine] map call degraded", "error", err)
				return nil
			}
			partials[pos] = partial
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to map communities:\n%w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to map communities:\n%w", err)
	}

	omitted := 0
	survivors := make([]*partialAnswer, 0, len(partials))
	for _, p := range partials {
		if p == nil {
			omitted++
			continue
		}
		if p.score >= threshold && p.score > 0 && p.text != "" {
			survivors = append(survivors, p)
		}
	}
	if len(survivors) == 0 {
		return noDataAnswer(degraded, omitted), nil
	}

	sort.Slice(survivors, func(i, j int) bool {
		if survivors[i].score != survivors[j].score {
			return survivors[i].score > survivors[j].score
		}
		return survivors[i].communityID < survivors[j].communityID
	})
	if len(survivors) > maxReducePartials {
		survivors = survivors[:maxReducePartials]
	}

	var sb strings.Builder
	sb.WriteString("Partial Answers:\n")
	communityIDs := make([]string, len(survivors))
	for i, p := range survivors {
		communityIDs[i] = p.communityID
		sb.WriteString(fmt.Sprintf("%s: %s\n", p.communityID, p.text))
	}
	RecordQueriedCommunityIDs(e.tracer, communityIDs...)

	prompt := fmt.Sprintf(ai.ReduceAnswerPrompt, sb.String(), query)
	text, err := util.RetryWithContext(ctx, e.maxRetries, e.retryBackoff, func(ctx context.Context) (string, error) {
		return e.aiClient.GenerateCompletion(ctx, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to generate answer from AI:\n%w", err)
	}
	text = util.NormalizeIDs(strings.TrimSpace(text))

	return &common.Answer{
		Text:         text,
		CommunityIDs: communityIDs,
		Metadata: common.AnswerMetadata{
			DegradedChunks:     degraded,
			OmittedCommunities: omitted,
		},
	}, nil
}

// mapCommunity produces one community's partial answer. A community
// without a stored summary gets one generated on the fly; the transient
// summary is not written back to the snapshot.
func (e *QueryEngine) mapCommunity(ctx context.Context, state *engineState, query string, c common.Community) (*partialAnswer, error) {
	summary := c.Summary
	if summary == "" {
		generated, err := e.summarizer.SummarizeOne(ctx, state.snapshot.Graph, c, e.aiClient)
		if err != nil {
			return nil, err
		}
		summary = generated
	}

	prompt := fmt.Sprintf(ai.MapAnswerPrompt, query, summary)
	res, err := util.RetryWithContext(ctx, e.maxRetries, e.retryBackoff, func(ctx context.Context) (mapResponse, error) {
		var out mapResponse
		err := e.aiClient.GenerateCompletionWithFormat(
			ctx,
			"map_partial_answer",
			"Write a partial answer to a question from one community summary and score its relevance.",
			prompt,
			&out,
		)
		return out, err
	})
	if err != nil {
		return nil, &common.SummaryError{CommunityID: c.ID, Err: err}
	}

	score := res.RelevanceScore
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return &partialAnswer{
		communityID: c.ID,
		text:        strings.TrimSpace(res.Answer),
		score:       score,
	}, nil
}

func noDataAnswer(degradedChunks, omittedCommunities int) *common.Answer {
	return &common.Answer{
		Text: noDataAnswerText,
		Metadata: common.AnswerMetadata{
			DegradedChunks:     degradedChunks,
			OmittedCommunities: omittedCommunities,
		},
	}
}
