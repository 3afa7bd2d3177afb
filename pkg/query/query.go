// Package query is the engine surface of the retrieval core: it owns
// the current corpus snapshot and answers local and global searches
// against it. Rebuild produces a fresh snapshot from chunks; in-flight
// searches keep reading the prior one until the swap.
package query

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/ai"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/community"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/graph"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/index"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/logger"
)

const (
	// DefaultSimilarityWeight and DefaultDegreeWeight combine chunk
	// similarity and degree centrality into the local entity score.
	DefaultSimilarityWeight = 0.7
	DefaultDegreeWeight     = 0.3

	maxContextEntities  = 20
	maxContextRelations = 20
	maxReducePartials   = 10

	noDataAnswerText = "No relevant information found."
)

// QueryEngine answers searches over one corpus snapshot and rebuilds
// that snapshot from chunks. All searches read the snapshot installed
// at call start; Rebuild swaps in a new one atomically without
// cancelling in-flight readers.
//
// A QueryEngine should be created using NewQueryEngine.
type QueryEngine struct {
	aiClient    ai.Client
	graphClient *graph.GraphClient
	summarizer  *community.Summarizer

	resolution         float64
	seed               int64
	similarityWeight   float64
	degreeWeight       float64
	parallelAiRequests int
	maxRetries         int
	retryBackoff       time.Duration
	tracer             Tracer

	mu    sync.RWMutex
	state *engineState
}

// NewQueryEngineParams defines the configuration parameters for
// creating a new QueryEngine.
//
// AiClient is required. SimilarityWeight and DegreeWeight form the
// local search entity score; leaving both zero selects the defaults
// 0.7/0.3. Resolution and Seed configure community detection; zero
// values select the community package defaults. The remaining fields
// bound AI request parallelism and retries and default like the graph
// client's.
type NewQueryEngineParams struct {
	AiClient           ai.Client
	ParallelAiRequests int
	MaxRetries         int
	RetryBackoff       time.Duration
	Resolution         float64
	Seed               int64
	SimilarityWeight   float64
	DegreeWeight       float64
	EntityTypes        []string
	Tracer             Tracer
}

// NewQueryEngine creates and returns a new QueryEngine configured with
// the provided parameters.
//
// Example:
//
//	engine, err := query.NewQueryEngine(query.NewQueryEngineParams{
//		AiClient: aiClient,
//	})
//	if err != nil {
//		log.Fatal(err)
//	}
func NewQueryEngine(params NewQueryEngineParams) (*QueryEngine, error) {
	if params.AiClient == nil {
		return nil, fmt.Errorf("ai client is required")
	}

	graphClient, err := graph.NewGraphClient(graph.NewGraphClientParams{
		ParallelAiRequests: params.ParallelAiRequests,
		MaxRetries:         params.MaxRetries,
		RetryBackoff:       params.RetryBackoff,
		EntityTypes:        params.EntityTypes,
	})
	if err != nil {
		return nil, err
	}
	summarizer := community.NewSummarizer(community.NewSummarizerParams{
		ParallelAiRequests: params.ParallelAiRequests,
		MaxRetries:         params.MaxRetries,
		RetryBackoff:       params.RetryBackoff,
	})

	resolution := params.Resolution
	if resolution <= 0 {
		resolution = community.DefaultResolution
	}
	seed := params.Seed
	if seed == 0 {
		seed = community.DefaultSeed
	}
	simWeight := params.SimilarityWeight
	degWeight := params.DegreeWeight
	if simWeight == 0 && degWeight == 0 {
		simWeight = DefaultSimilarityWeight
		degWeight = DefaultDegreeWeight
	}
	parallel := params.ParallelAiRequests
	if parallel <= 0 {
		parallel = 4
	}
	maxRetries := params.MaxRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	backoff := params.RetryBackoff
	if backoff <= 0 {
		backoff = 500 * time.Millisecond
	}

	e := &QueryEngine{
		aiClient:           params.AiClient,
		graphClient:        graphClient,
		summarizer:         summarizer,
		resolution:         resolution,
		seed:               seed,
		similarityWeight:   simWeight,
		degreeWeight:       degWeight,
		parallelAiRequests: parallel,
		maxRetries:         maxRetries,
		retryBackoff:       backoff,
		tracer:             params.Tracer,
	}

	return e, nil
}

// engineState is everything derived from one snapshot: the vector index
// and the lookup structures searches traverse. It is immutable once
// installed.
type engineState struct {
	snapshot     common.Snapshot
	index        *index.Index
	chunksByID   map[string]common.Chunk
	entitiesByID map[string]common.Entity
	neighbors    map[string][]string
	maxDegree    int
}

func newEngineState(snapshot common.Snapshot) (*engineState, error) {
	ix := index.New()
	for _, emb := range snapshot.Embeddings {
		if err := ix.Insert(emb.ChunkID, emb.Vector); err != nil {
			return nil, fmt.Errorf("failed to index embeddings:\n%w", err)
		}
	}

	chunksByID := make(map[string]common.Chunk, len(snapshot.Chunks))
	for _, c := range snapshot.Chunks {
		chunksByID[c.ID] = c
	}

	entitiesByID := make(map[string]common.Entity, len(snapshot.Graph.Entities))
	maxDegree := 0
	for _, e := range snapshot.Graph.Entities {
		entitiesByID[e.ID] = e
		if e.Degree > maxDegree {
			maxDegree = e.Degree
		}
	}

	// relations are sorted by endpoint pair, so the lists come out
	// deterministic
	neighbors := make(map[string][]string)
	for _, rel := range snapshot.Graph.Relations {
		neighbors[rel.SourceID] = append(neighbors[rel.SourceID], rel.TargetID)
		neighbors[rel.TargetID] = append(neighbors[rel.TargetID], rel.SourceID)
	}

	return &engineState{
		snapshot:     snapshot,
		index:        ix,
		chunksByID:   chunksByID,
		entitiesByID: entitiesByID,
		neighbors:    neighbors,
		maxDegree:    maxDegree,
	}, nil
}

func (e *QueryEngine) currentState() *engineState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

func (e *QueryEngine) install(state *engineState) {
	e.mu.Lock()
	e.state = state
	e.mu.Unlock()
}

// Rebuild runs the full pipeline over the chunks: embed, extract,
// resolve, build the graph, detect communities, and install the
// resulting snapshot. Per-chunk embedding and extraction failures
// degrade the snapshot (recorded in its report); structural failures
// abort the rebuild and leave the prior snapshot authoritative.
func (e *QueryEngine) Rebuild(ctx context.Context, chunks []common.Chunk) error {
	logger.Info("[Engine] Rebuilding", "chunks", len(chunks))
	start := time.Now()

	result, err := e.graphClient.ProcessChunks(ctx, chunks, e.aiClient)
	if err != nil {
		return fmt.Errorf("failed to rebuild:\n%w", err)
	}

	hierarchy, err := community.Detect(result.Graph, e.resolution, e.seed)
	if err != nil {
		return fmt.Errorf("failed to rebuild:\n%w", err)
	}

	state, err := newEngineState(common.Snapshot{
		Chunks:     chunks,
		Embeddings: result.Embeddings,
		Graph:      result.Graph,
		Hierarchy:  hierarchy,
		Report:     result.Report,
	})
	if err != nil {
		return fmt.Errorf("failed to rebuild:\n%w", err)
	}
	e.install(state)

	logger.Info("[Engine] Rebuild complete",
		"entities", len(result.Graph.Entities),
		"relations", len(result.Graph.Relations),
		"levels", hierarchy.Depth(),
		"degraded_chunks", len(result.Report.DegradedChunks),
		"duration", time.Since(start).String(),
	)
	return nil
}

// Restore installs a previously persisted snapshot, rebuilding the
// vector index from its embeddings. This is the worker startup path.
func (e *QueryEngine) Restore(snapshot common.Snapshot) error {
	state, err := newEngineState(snapshot)
	if err != nil {
		return fmt.Errorf("failed to restore snapshot:\n%w", err)
	}
	e.install(state)
	logger.Info("[Engine] Snapshot restored",
		"chunks", len(snapshot.Chunks),
		"entities", len(snapshot.Graph.Entities),
		"levels", snapshot.Hierarchy.Depth(),
	)
	return nil
}

// Snapshot returns the currently installed snapshot. The second return
// is false when no snapshot has been installed yet.
func (e *QueryEngine) Snapshot() (common.Snapshot, bool) {
	state := e.currentState()
	if state == nil {
		return common.Snapshot{}, false
	}
	return state.snapshot, true
}

// SummarizeCommunities generates summaries for every community of the
// current snapshot that lacks one, then installs the updated snapshot.
// It returns how many communities still have no summary; those are
// retried lazily at query time.
func (e *QueryEngine) SummarizeCommunities(ctx context.Context) (int, error) {
	state := e.currentState()
	if state == nil {
		return 0, nil
	}

	hierarchy := copyHierarchy(state.snapshot.Hierarchy)
	failed, err := e.summarizer.SummarizeHierarchy(ctx, state.snapshot.Graph, &hierarchy, e.aiClient)
	if err != nil {
		return 0, err
	}

	snapshot := state.snapshot
	snapshot.Hierarchy = hierarchy
	next, err := newEngineState(snapshot)
	if err != nil {
		return 0, fmt.Errorf("failed to install summarized snapshot:\n%w", err)
	}
	e.install(next)
	return failed, nil
}

// copyHierarchy deep-copies the level structure so summarization never
// mutates a snapshot searches may still be reading.
func copyHierarchy(h common.CommunityHierarchy) common.CommunityHierarchy {
	if len(h.Levels) == 0 {
		return common.CommunityHierarchy{}
	}
	levels := make([][]common.Community, len(h.Levels))
	for i, level := range h.Levels {
		levels[i] = make([]common.Community, len(level))
		copy(levels[i], level)
	}
	return common.CommunityHierarchy{Levels: levels}
}
