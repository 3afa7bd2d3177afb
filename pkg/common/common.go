package common

// Chunk represents a contiguous segment of article text. Chunks are the
// smallest unit of retrieval and the provenance anchor for everything the
// engine derives from a corpus.
//
// Chunks are produced outside the engine (the ingestion worker splits
// articles into token-limited segments) and are never modified by it. The
// ID is deterministic for a given article and position, so re-ingesting
// the same article yields the same chunk identifiers.
type Chunk struct {
	ID         string `json:"id"`
	DocumentID string `json:"document_id"`
	Ordinal    int    `json:"ordinal"`
	Text       string `json:"text"`
}

// EntityMention is a raw entity occurrence reported by the extraction
// model for a single chunk. Mentions are ephemeral: they exist only
// between extraction and resolution and are never persisted.
type EntityMention struct {
	ChunkID     string `json:"chunk_id"`
	Name        string `json:"name"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// RelationMention is a raw relation occurrence between two entity names
// reported by the extraction model for a single chunk. Like
// EntityMention it is ephemeral.
type RelationMention struct {
	ChunkID     string `json:"chunk_id"`
	SourceName  string `json:"source_name"`
	TargetName  string `json:"target_name"`
	Description string `json:"description"`
}

// Entity represents a canonical node in the knowledge graph. All mentions
// whose normalized name matches are merged into one entity: the first
// mention fixes the type, later mentions append their descriptions with
// chunk provenance and extend the source set.
//
// The ID is a deterministic content hash of the entity's type and
// canonical name, so resolving the same corpus twice yields identical
// entities.
type Entity struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	ChunkIDs    []string `json:"chunk_ids"`
	Degree      int      `json:"degree"`
}

// RelationDescription is one description of a relation together with the
// chunk it was extracted from. A relation keeps every description it has
// ever been given, in merge order.
type RelationDescription struct {
	ChunkID string `json:"chunk_id"`
	Text    string `json:"text"`
}

// Relation represents an undirected weighted edge between two entities.
// The endpoint pair is stored in canonical order (SourceID < TargetID),
// there are no self-loops, and at most one relation exists per pair.
// Weight counts the mentions merged into the relation and only ever
// grows.
type Relation struct {
	SourceID     string                `json:"source_id"`
	TargetID     string                `json:"target_id"`
	Weight       float64               `json:"weight"`
	Descriptions []RelationDescription `json:"descriptions"`
}

// Graph is the knowledge graph derived from one build pass over a corpus:
// every canonical entity plus every merged relation. A graph is read-only
// once built; corpus changes produce a new graph rather than mutating an
// existing one.
type Graph struct {
	Entities  []Entity   `json:"entities"`
	Relations []Relation `json:"relations"`
}

// Community represents one cluster of entities found by community
// detection. Level 0 is the coarsest partition; higher levels refine
// their parents, so a community's members are always a subset of its
// parent's members. Rank orders communities by size (member count at
// detection time), and Summary holds the generated description used by
// global search.
//
// The ID is a deterministic hash of the community's level and position,
// so detection with a fixed seed yields identical identifiers.
type Community struct {
	ID        string   `json:"id"`
	Level     int      `json:"level"`
	ParentID  string   `json:"parent_id,omitempty"`
	EntityIDs []string `json:"entity_ids"`
	Summary   string   `json:"summary,omitempty"`
	Rank      int      `json:"rank"`
}

// CommunityHierarchy holds every community of a graph grouped by level,
// index 0 being the coarsest partition. An empty hierarchy (no levels)
// is the valid result of detecting communities on an empty graph.
type CommunityHierarchy struct {
	Levels [][]Community `json:"levels"`
}

// Depth returns the number of levels in the hierarchy.
func (h *CommunityHierarchy) Depth() int {
	return len(h.Levels)
}

// AtLevel returns the communities at the given level, or nil if the
// level does not exist.
func (h *CommunityHierarchy) AtLevel(level int) []Community {
	if level < 0 || level >= len(h.Levels) {
		return nil
	}
	return h.Levels[level]
}

// AnswerMetadata records the ways an answer is incomplete: chunks that
// were degraded during the build and communities that were dropped from
// a global search after their map call kept failing.
type AnswerMetadata struct {
	DegradedChunks     int `json:"degraded_chunks"`
	OmittedCommunities int `json:"omitted_communities"`
}

// Answer is the result of a local or global search: the generated text
// plus the identifiers of every chunk, entity, and community that
// contributed context to it.
type Answer struct {
	Text         string         `json:"text"`
	ChunkIDs     []string       `json:"chunk_ids,omitempty"`
	EntityIDs    []string       `json:"entity_ids,omitempty"`
	CommunityIDs []string       `json:"community_ids,omitempty"`
	Metadata     AnswerMetadata `json:"metadata"`
}

// ChunkEmbedding pairs a chunk with its embedding vector for persistence.
type ChunkEmbedding struct {
	ChunkID string    `json:"chunk_id"`
	Vector  []float32 `json:"vector"`
}

// BuildReport summarizes what a build pass had to leave out. Degraded
// chunks stayed in the vector index but contributed no graph mentions
// (extraction failed); unembedded chunks contributed mentions but are
// absent from the vector index (embedding failed). Neither failure mode
// aborts a build.
type BuildReport struct {
	SkippedMentions  int      `json:"skipped_mentions"`
	DroppedRelations int      `json:"dropped_relations"`
	DegradedChunks   []string `json:"degraded_chunks,omitempty"`
	UnembeddedChunks []string `json:"unembedded_chunks,omitempty"`
}

// Snapshot is the complete output of one build pass: the corpus it was
// built from, the embeddings, the graph, the community hierarchy, and
// the build report. Snapshots are immutable; the engine swaps in a new
// one atomically when a rebuild succeeds and persists it as a unit.
type Snapshot struct {
	Chunks     []Chunk            `json:"chunks"`
	Embeddings []ChunkEmbedding   `json:"embeddings"`
	Graph      Graph              `json:"graph"`
	Hierarchy  CommunityHierarchy `json:"hierarchy"`
	Report     BuildReport        `json:"report"`
}
