// Package index provides the in-memory vector index local search
// retrieves chunks from. The snapshot store persists embeddings
// separately; an index is rebuilt from them on startup.
package index

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Match is one query result: a chunk and its cosine similarity to the
// query vector.
type Match struct {
	ChunkID    string
	Similarity float64
}

// Index is an exact cosine-similarity index over chunk vectors. All
// vectors must share one dimensionality, fixed by the first insert.
// An Index is safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	dim     int
	ids     []string
	vectors map[string][]float32
}

// New returns an empty Index.
func New() *Index {
	return &Index{vectors: make(map[string][]float32)}
}

// Len returns the number of indexed chunks.
func (ix *Index) Len() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return len(ix.ids)
}

// Dimensions returns the vector dimensionality the index is fixed to,
// or 0 before the first insert.
func (ix *Index) Dimensions() int {
	ix.mu.RLock()
	defer ix.mu.RUnlock()
	return ix.dim
}

// Insert adds a chunk vector. Re-inserting a chunk id replaces its
// vector. The first insert fixes the index dimensionality; inserts with
// any other dimensionality are rejected.
func (ix *Index) Insert(chunkID string, vector []float32) error {
	if len(vector) == 0 {
		return fmt.Errorf("empty vector for chunk %s", chunkID)
	}

	ix.mu.Lock()
	defer ix.mu.Unlock()

	if ix.dim == 0 {
		ix.dim = len(vector)
	} else if len(vector) != ix.dim {
		return fmt.Errorf("vector for chunk %s has %d dimensions, index has %d", chunkID, len(vector), ix.dim)
	}

	if _, exists := ix.vectors[chunkID]; !exists {
		ix.ids = append(ix.ids, chunkID)
	}
	stored := make([]float32, len(vector))
	copy(stored, vector)
	ix.vectors[chunkID] = stored
	return nil
}

// Query returns the k chunks most similar to the vector, similarity
// descending with ties by ascending chunk id. Fewer than k results are
// returned when the index holds fewer chunks. A zero query vector or a
// zero stored vector yields similarity 0.
func (ix *Index) Query(vector []float32, k int) ([]Match, error) {
	if k <= 0 {
		return nil, fmt.Errorf("k must be positive, got %d", k)
	}

	ix.mu.RLock()
	defer ix.mu.RUnlock()

	if ix.dim != 0 && len(vector) != ix.dim {
		return nil, fmt.Errorf("query vector has %d dimensions, index has %d", len(vector), ix.dim)
	}

	matches := make([]Match, 0, len(ix.ids))
	for _, id := range ix.ids {
		matches = append(matches, Match{
			ChunkID:    id,
			Similarity: cosine(vector, ix.vectors[id]),
		})
	}

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Similarity != matches[j].Similarity {
			return matches[i].Similarity > matches[j].Similarity
		}
		return matches[i].ChunkID < matches[j].ChunkID
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches, nil
}

// cosine computes the cosine similarity of two equal-length vectors,
// treating zero vectors as orthogonal to everything.
func cosine(a, b []float32) float64 {
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
