package queue

import (
	"reflect"
	"testing"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
)

func chunkFixture(documentID string, ordinal int, text string) common.Chunk {
	return common.Chunk{
		ID:         common.HashID(text),
		DocumentID: documentID,
		Ordinal:    ordinal,
		Text:       text,
	}
}

func TestUnionCorpusReplacesDocument(t *testing.T) {
	stored := []common.Chunk{
		chunkFixture("doc-a", 0, "old a0"),
		chunkFixture("doc-a", 1, "old a1"),
		chunkFixture("doc-b", 0, "b0"),
	}
	fresh := []common.Chunk{
		chunkFixture("doc-a", 0, "new a0"),
	}

	corpus := unionCorpus(stored, "doc-a", fresh)

	want := []common.Chunk{
		chunkFixture("doc-a", 0, "new a0"),
		chunkFixture("doc-b", 0, "b0"),
	}
	if !reflect.DeepEqual(corpus, want) {
		t.Fatalf("expected %v, got %v", want, corpus)
	}
}

func TestUnionCorpusSortsByDocumentAndOrdinal(t *testing.T) {
	stored := []common.Chunk{
		chunkFixture("doc-b", 0, "b0"),
		chunkFixture("doc-c", 0, "c0"),
	}
	fresh := []common.Chunk{
		chunkFixture("doc-a", 1, "a1"),
		chunkFixture("doc-a", 0, "a0"),
	}

	corpus := unionCorpus(stored, "doc-a", fresh)

	var order []string
	for _, chunk := range corpus {
		order = append(order, chunk.DocumentID)
	}
	want := []string{"doc-a", "doc-a", "doc-b", "doc-c"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("expected document order %v, got %v", want, order)
	}
	if corpus[0].Ordinal != 0 || corpus[1].Ordinal != 1 {
		t.Fatalf("expected doc-a chunks ordered by ordinal, got %d then %d", corpus[0].Ordinal, corpus[1].Ordinal)
	}
}

func TestUnionCorpusEmptyDocumentDropsIt(t *testing.T) {
	stored := []common.Chunk{
		chunkFixture("doc-a", 0, "a0"),
		chunkFixture("doc-b", 0, "b0"),
	}

	corpus := unionCorpus(stored, "doc-a", nil)

	if len(corpus) != 1 || corpus[0].DocumentID != "doc-b" {
		t.Fatalf("expected only doc-b to remain, got %v", corpus)
	}
}

func TestUnionCorpusNewDocumentAppends(t *testing.T) {
	stored := []common.Chunk{
		chunkFixture("doc-a", 0, "a0"),
	}
	fresh := []common.Chunk{
		chunkFixture("doc-b", 0, "b0"),
		chunkFixture("doc-b", 1, "b1"),
	}

	corpus := unionCorpus(stored, "doc-b", fresh)

	if len(corpus) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(corpus))
	}
	if corpus[0].DocumentID != "doc-a" {
		t.Fatalf("expected doc-a first, got %s", corpus[0].DocumentID)
	}
}
