package query

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/internal/util"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/ai"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/index"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/logger"
)

// LocalSearch answers a question from the neighborhood of the query:
// the kChunks most similar chunks, the entities those chunks mention,
// and everything within kHops of them in the graph. The answer cites
// the chunks and entities that supplied its context.
//
// It returns an EmptyIndexError when no snapshot is installed or the
// vector index holds no chunks.
func (e *QueryEngine) LocalSearch(ctx context.Context, query string, kChunks, kHops int) (*common.Answer, error) {
	if kChunks <= 0 {
		return nil, fmt.Errorf("k_chunks must be positive, got %d", kChunks)
	}
	if kHops < 0 {
		return nil, fmt.Errorf("k_hops must not be negative, got %d", kHops)
	}

	state := e.currentState()
	if state == nil || state.index.Len() == 0 {
		return nil, &common.EmptyIndexError{}
	}

	vector, err := util.RetryWithContext(ctx, e.maxRetries, e.retryBackoff, func(ctx context.Context) ([]float32, error) {
		return e.aiClient.GenerateEmbedding(ctx, []byte(query))
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to embed query:\n%w", err)
	}

	matches, err := state.index.Query(vector, kChunks)
	if err != nil {
		return nil, fmt.Errorf("Failed to query vector index:\n%w", err)
	}

	chunkIDs := make([]string, len(matches))
	for i, m := range matches {
		chunkIDs[i] = m.ChunkID
	}
	RecordConsideredChunkIDs(e.tracer, chunkIDs...)

	entities := rankEntities(state, matches, kHops, e.similarityWeight, e.degreeWeight)
	entityIDs := make([]string, len(entities))
	for i, se := range entities {
		entityIDs[i] = se.entity.ID
	}
	RecordQueriedEntityIDs(e.tracer, entityIDs...)

	logger.Info("[Engine] Local search",
		"chunks", len(matches),
		"entities", len(entities),
		"k_hops", kHops,
	)

	prompt := fmt.Sprintf(ai.LocalAnswerPrompt, localContext(state, matches, entities), query)
	text, err := util.RetryWithContext(ctx, e.maxRetries, e.retryBackoff, func(ctx context.Context) (string, error) {
		return e.aiClient.GenerateCompletion(ctx, prompt)
	})
	if err != nil {
		return nil, fmt.Errorf("Failed to generate answer from AI:\n%w", err)
	}
	text = util.NormalizeIDs(strings.TrimSpace(text))
	RecordUsedChunkIDs(e.tracer, util.ExtractIDs(text)...)

	return &common.Answer{
		Text:      text,
		ChunkIDs:  chunkIDs,
		EntityIDs: entityIDs,
		Metadata: common.AnswerMetadata{
			DegradedChunks: len(state.snapshot.Report.DegradedChunks),
		},
	}, nil
}

// scoredEntity pairs an entity with its combined relevance score.
type scoredEntity struct {
	entity common.Entity
	score  float64
}

// rankEntities selects and orders the entities that enter the answer
// context. Seeds are entities with at least one source chunk among the
// retrieved matches; the selection then grows kHops outward along
// relations. Each selected entity is scored by the similarity of its
// nearest retrieved source chunk and its normalized degree.
func rankEntities(state *engineState, matches []index.Match, kHops int, simWeight, degWeight float64) []scoredEntity {
	simByChunk := make(map[string]float64, len(matches))
	for _, m := range matches {
		simByChunk[m.ChunkID] = m.Similarity
	}

	selected := make(map[string]bool)
	var frontier []string
	for _, ent := range state.snapshot.Graph.Entities {
		for _, chunkID := range ent.ChunkIDs {
			if _, ok := simByChunk[chunkID]; ok {
				selected[ent.ID] = true
				frontier = append(frontier, ent.ID)
				break
			}
		}
	}

	for hop := 0; hop < kHops && len(frontier) > 0; hop++ {
		var next []string
		for _, id := range frontier {
			for _, neighbor := range state.neighbors[id] {
				if !selected[neighbor] {
					selected[neighbor] = true
					next = append(next, neighbor)
				}
			}
		}
		frontier = next
	}

	scored := make([]scoredEntity, 0, len(selected))
	for _, ent := range state.snapshot.Graph.Entities {
		if !selected[ent.ID] {
			continue
		}
		similarity := 0.0
		for _, chunkID := range ent.ChunkIDs {
			if s, ok := simByChunk[chunkID]; ok && s > similarity {
				similarity = s
			}
		}
		degree := 0.0
		if state.maxDegree > 0 {
			degree = float64(ent.Degree) / float64(state.maxDegree)
		}
		scored = append(scored, scoredEntity{
			entity: ent,
			score:  similarity*simWeight + degree*degWeight,
		})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].entity.ID < scored[j].entity.ID
	})
	if len(scored) > maxContextEntities {
		scored = scored[:maxContextEntities]
	}
	return scored
}
