package index

import (
	"math"
	"testing"
)

func TestInsertAndQuery(t *testing.T) {
	ix := New()
	inserts := map[string][]float32{
		"chunk-a": {1, 0},
		"chunk-b": {0, 1},
		"chunk-c": {1, 1},
	}
	for id, v := range inserts {
		if err := ix.Insert(id, v); err != nil {
			t.Fatalf("Insert(%s): %v", id, err)
		}
	}
	if ix.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", ix.Len())
	}
	if ix.Dimensions() != 2 {
		t.Fatalf("Dimensions() = %d, want 2", ix.Dimensions())
	}

	matches, err := ix.Query([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d: %#v", len(matches), matches)
	}
	if matches[0].ChunkID != "chunk-a" {
		t.Errorf("matches[0] = %q, want chunk-a", matches[0].ChunkID)
	}
	if math.Abs(matches[0].Similarity-1) > 1e-9 {
		t.Errorf("matches[0].Similarity = %v, want 1", matches[0].Similarity)
	}
	if matches[1].ChunkID != "chunk-c" {
		t.Errorf("matches[1] = %q, want chunk-c", matches[1].ChunkID)
	}
	if math.Abs(matches[1].Similarity-1/math.Sqrt2) > 1e-9 {
		t.Errorf("matches[1].Similarity = %v, want %v", matches[1].Similarity, 1/math.Sqrt2)
	}
}

func TestQueryTiesByAscendingChunkID(t *testing.T) {
	ix := New()
	// insert in descending id order; ties must still come out ascending
	for _, id := range []string{"chunk-c", "chunk-b", "chunk-a"} {
		if err := ix.Insert(id, []float32{1, 0}); err != nil {
			t.Fatalf("Insert(%s): %v", id, err)
		}
	}

	matches, err := ix.Query([]float32{1, 0}, 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	want := []string{"chunk-a", "chunk-b", "chunk-c"}
	for i, m := range matches {
		if m.ChunkID != want[i] {
			t.Errorf("matches[%d] = %q, want %q", i, m.ChunkID, want[i])
		}
	}
}

func TestInsertOverwrites(t *testing.T) {
	ix := New()
	if err := ix.Insert("chunk-a", []float32{1, 0}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := ix.Insert("chunk-a", []float32{0, 1}); err != nil {
		t.Fatalf("re-Insert: %v", err)
	}
	if ix.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", ix.Len())
	}

	matches, err := ix.Query([]float32{0, 1}, 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if math.Abs(matches[0].Similarity-1) > 1e-9 {
		t.Errorf("Similarity = %v, want 1 after overwrite", matches[0].Similarity)
	}
}

func TestInsertDimensionMismatch(t *testing.T) {
	ix := New()
	if err := ix.Insert("chunk-a", []float32{1, 0}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := ix.Insert("chunk-b", []float32{1, 0, 0}); err == nil {
		t.Fatal("expected error for mismatched dimensions")
	}
	if ix.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after rejected insert", ix.Len())
	}
}

func TestInsertEmptyVector(t *testing.T) {
	ix := New()
	if err := ix.Insert("chunk-a", nil); err == nil {
		t.Fatal("expected error for empty vector")
	}
}

func TestQueryDimensionMismatch(t *testing.T) {
	ix := New()
	if err := ix.Insert("chunk-a", []float32{1, 0}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if _, err := ix.Query([]float32{1, 0, 0}, 1); err == nil {
		t.Fatal("expected error for mismatched query dimensions")
	}
}

func TestQueryInvalidK(t *testing.T) {
	ix := New()
	if _, err := ix.Query([]float32{1, 0}, 0); err == nil {
		t.Fatal("expected error for k = 0")
	}
}

func TestQueryKExceedsSize(t *testing.T) {
	ix := New()
	if err := ix.Insert("chunk-a", []float32{1, 0}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	matches, err := ix.Query([]float32{1, 0}, 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(matches) != 1 {
		t.Errorf("expected 1 match, got %d", len(matches))
	}
}

func TestZeroVectorsSimilarityZero(t *testing.T) {
	ix := New()
	if err := ix.Insert("chunk-a", []float32{0, 0}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := ix.Insert("chunk-b", []float32{1, 0}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	matches, err := ix.Query([]float32{1, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if matches[0].ChunkID != "chunk-b" || math.Abs(matches[0].Similarity-1) > 1e-9 {
		t.Errorf("matches[0] = %#v, want chunk-b with similarity 1", matches[0])
	}
	if matches[1].ChunkID != "chunk-a" || matches[1].Similarity != 0 {
		t.Errorf("matches[1] = %#v, want chunk-a with similarity 0", matches[1])
	}

	// zero query vector is orthogonal to everything
	matches, err = ix.Query([]float32{0, 0}, 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	for _, m := range matches {
		if m.Similarity != 0 {
			t.Errorf("chunk %s Similarity = %v, want 0", m.ChunkID, m.Similarity)
		}
	}
}
