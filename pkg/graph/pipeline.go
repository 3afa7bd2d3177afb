package graph

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	gUtil "github.com/nevergoodstudy-hub/wechat-article-summarizer/internal/util"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/ai"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// GraphClient turns a chunk corpus into embeddings and a knowledge
// graph. It manages AI request parallelism and per-chunk retries.
//
// A GraphClient should be created using NewGraphClient.
type GraphClient struct {
	parallelAiRequests int
	maxRetries         int
	retryBackoff       time.Duration
	entityTypes        []string
}

// NewGraphClientParams defines the configuration parameters for creating
// a new GraphClient.
//
// ParallelAiRequests controls how many chunks are embedded and extracted
// concurrently. MaxRetries and RetryBackoff govern per-chunk retry
// behavior. EntityTypes overrides the extraction vocabulary; when empty
// the GRAPH_ENTITY_TYPES env var and then DefaultEntityTypes apply.
type NewGraphClientParams struct {
	ParallelAiRequests int
	MaxRetries         int
	RetryBackoff       time.Duration
	EntityTypes        []string
}

// NewGraphClient creates and returns a new GraphClient configured with
// the provided parameters.
//
// Example:
//
//	params := graph.NewGraphClientParams{
//		ParallelAiRequests: 8,
//		MaxRetries:         3,
//	}
//	client, err := graph.NewGraphClient(params)
//	if err != nil {
//		log.Fatal(err)
//	}
func NewGraphClient(params NewGraphClientParams) (*GraphClient, error) {
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	parallel := params.ParallelAiRequests
	if parallel <= 0 {
		parallel = 4
	}
	backoff := params.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}
	types := params.EntityTypes
	if len(types) == 0 {
		types = entityTypesFromEnv()
	}

	g := &GraphClient{
		parallelAiRequests: parallel,
		maxRetries:         maxRetries,
		retryBackoff:       backoff,
		entityTypes:        types,
	}

	return g, nil
}

// ProcessResult is the output of one pass over a chunk corpus.
type ProcessResult struct {
	Graph      common.Graph
	Embeddings []common.ChunkEmbedding
	Report     common.BuildReport
}

type chunkMentions struct {
	ordinal   int
	entities  []common.EntityMention
	relations []common.RelationMention
}

// ProcessChunks embeds every chunk and extracts entity and relation
// mentions from it, then resolves mentions into canonical entities and
// assembles the weighted graph. Chunk work fans out over a bounded
// worker pool; mention merging is serialized.
//
// A chunk whose embedding keeps failing stays in the corpus but is
// reported as unembedded; one whose extraction keeps failing is
// reported as degraded and contributes no mentions. Neither aborts the
// pass. Context cancellation does.
//
// The result is deterministic for a fixed chunk sequence and fixed
// model responses: mentions are merged in chunk order regardless of
// which worker finishes first.
func (g *GraphClient) ProcessChunks(
	ctx context.Context,
	chunks []common.Chunk,
	aiClient ai.Client,
) (*ProcessResult, error) {
	logger.Info("[Graph] Processing", "total_chunks", len(chunks))

	vectors := make([][]float32, len(chunks))
	embedFailed := make([]bool, len(chunks))
	extractFailed := make([]bool, len(chunks))
	pool := make([]chunkMentions, 0, len(chunks))
	mergeMu := sync.Mutex{}

	eg, gCtx := errgroup.WithContext(ctx)
	eg.SetLimit(g.parallelAiRequests)

	for i, chunk := range chunks {
		pos := i
		c := chunk
		eg.Go(func() error {
			select {
			case <-gCtx.Done():
				return nil
			default:
			}

			vector, embedErr := gUtil.RetryWithContext(gCtx, g.maxRetries, g.retryBackoff, func(ctx context.Context) ([]float32, error) {
				return aiClient.GenerateEmbedding(ctx, []byte(c.Text))
			})
			if embedErr != nil {
				if errors.Is(embedErr, context.Canceled) || errors.Is(embedErr, context.DeadlineExceeded) {
					return embedErr
				}
				embedFailed[pos] = true
				logger.Warn("[Graph] embedding degraded", "chunk_id", c.ID, "err", &common.EmbeddingError{ChunkID: c.ID, Err: embedErr})
			} else {
				vectors[pos] = vector
			}

			ents, rels, extractErr := gUtil.Retry2WithContext(gCtx, g.maxRetries, g.retryBackoff, func(ctx context.Context) ([]common.EntityMention, []common.RelationMention, error) {
				return extractFromChunk(ctx, c, g.entityTypes, aiClient)
			})
			if extractErr != nil {
				if errors.Is(extractErr, context.Canceled) || errors.Is(extractErr, context.DeadlineExceeded) {
					return extractErr
				}
				extractFailed[pos] = true
				logger.Warn("[Graph] extraction degraded", "chunk_id", c.ID, "err", &common.ExtractionError{ChunkID: c.ID, Err: extractErr})
				return nil
			}

			mergeMu.Lock()
			pool = append(pool, chunkMentions{ordinal: pos, entities: ents, relations: rels})
			mergeMu.Unlock()
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, fmt.Errorf("failed to process chunks:\n%w", err)
	}
	if err := ctx.Err(); err != nil {
		// workers skip silently once the context is done; don't pass
		// that off as an empty corpus
		return nil, fmt.Errorf("failed to process chunks:\n%w", err)
	}

	sort.Slice(pool, func(i, j int) bool { return pool[i].ordinal < pool[j].ordinal })

	resolver := NewResolver()
	relMentions := make([]common.RelationMention, 0)
	for _, cm := range pool {
		for _, m := range cm.entities {
			resolver.Absorb(m)
		}
		relMentions = append(relMentions, cm.relations...)
	}

	builtGraph, droppedRelations := buildGraph(resolver, relMentions)
	if err := verifyGraph(builtGraph); err != nil {
		return nil, fmt.Errorf("failed to process chunks:\n%w", err)
	}

	report := common.BuildReport{
		SkippedMentions:  resolver.Skipped(),
		DroppedRelations: droppedRelations,
	}
	embeddings := make([]common.ChunkEmbedding, 0, len(chunks))
	for i, c := range chunks {
		if embedFailed[i] {
			report.UnembeddedChunks = append(report.UnembeddedChunks, c.ID)
		} else {
			embeddings = append(embeddings, common.ChunkEmbedding{ChunkID: c.ID, Vector: vectors[i]})
		}
		if extractFailed[i] {
			report.DegradedChunks = append(report.DegradedChunks, c.ID)
		}
	}

	logger.Info("[Graph] Chunks processed",
		"entities", len(builtGraph.Entities),
		"relations", len(builtGraph.Relations),
		"degraded_chunks", len(report.DegradedChunks),
		"unembedded_chunks", len(report.UnembeddedChunks),
	)

	return &ProcessResult{
		Graph:      builtGraph,
		Embeddings: embeddings,
		Report:     report,
	}, nil
}
