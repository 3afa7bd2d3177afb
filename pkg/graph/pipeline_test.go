package graph

import (
	"context"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/ai"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
)

// stubAiClient serves canned extraction responses and embeddings keyed
// by chunk text.
type stubAiClient struct {
	extractions map[string]extractResponse
	embeddings  map[string][]float32
	failExtract map[string]bool
	failEmbed   map[string]bool
}

func (s *stubAiClient) GenerateCompletion(ctx context.Context, prompt string, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (s *stubAiClient) GenerateCompletionWithFormat(ctx context.Context, name string, description string, prompt string, out any, opts ...ai.GenerateOption) error {
	if s.failExtract[prompt] {
		return fmt.Errorf("model unavailable")
	}
	res, ok := out.(*extractResponse)
	if !ok {
		return fmt.Errorf("unexpected output type %T", out)
	}
	*res = s.extractions[prompt]
	return nil
}

func (s *stubAiClient) GenerateChat(ctx context.Context, messages []ai.ChatMessage, opts ...ai.GenerateOption) (string, error) {
	return "", nil
}

func (s *stubAiClient) GenerateEmbedding(ctx context.Context, input []byte) ([]float32, error) {
	if s.failEmbed[string(input)] {
		return nil, fmt.Errorf("embedding unavailable")
	}
	if v, ok := s.embeddings[string(input)]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func (s *stubAiClient) LoadModel(ctx context.Context, opts ...ai.GenerateOption) error {
	return nil
}

func (s *stubAiClient) ResetMetrics() {}

func (s *stubAiClient) GetMetrics() ai.ModelMetrics {
	return ai.ModelMetrics{}
}

func testGraphClient(t *testing.T) *GraphClient {
	t.Helper()
	client, err := NewGraphClient(NewGraphClientParams{
		ParallelAiRequests: 4,
		MaxRetries:         1,
		RetryBackoff:       time.Millisecond,
		EntityTypes:        []string{"person", "organization", "concept"},
	})
	if err != nil {
		t.Fatalf("NewGraphClient: %v", err)
	}
	return client
}

func testChunks() []common.Chunk {
	return []common.Chunk{
		{ID: "chunk-1", DocumentID: "doc-1", Ordinal: 0, Text: "text one"},
		{ID: "chunk-2", DocumentID: "doc-1", Ordinal: 1, Text: "text two"},
	}
}

func testStub() *stubAiClient {
	return &stubAiClient{
		extractions: map[string]extractResponse{
			"text one": {
				Entities: []extractEntity{
					{EntityName: "WeChat", EntityType: "organization", EntityDescription: "messaging app"},
					{EntityName: "Tencent", EntityType: "organization", EntityDescription: "parent company"},
				},
				Relationships: []extractRelationship{
					{SourceEntity: "Tencent", TargetEntity: "WeChat", RelationshipDescription: "operates"},
				},
			},
			"text two": {
				Entities: []extractEntity{
					{EntityName: "wechat", EntityType: "concept", EntityDescription: "super app"},
					{EntityName: "Mini Programs", EntityType: "concept", EntityDescription: "embedded apps"},
				},
				Relationships: []extractRelationship{
					{SourceEntity: "WeChat", TargetEntity: "Mini Programs", RelationshipDescription: "hosts"},
					{SourceEntity: "Tencent", TargetEntity: "WeChat", RelationshipDescription: "maintains"},
				},
			},
		},
		embeddings: map[string][]float32{
			"text one": {1, 0},
			"text two": {0, 1},
		},
		failExtract: map[string]bool{},
		failEmbed:   map[string]bool{},
	}
}

func TestProcessChunks(t *testing.T) {
	client := testGraphClient(t)
	result, err := client.ProcessChunks(context.Background(), testChunks(), testStub())
	if err != nil {
		t.Fatalf("ProcessChunks: %v", err)
	}

	if got := len(result.Graph.Entities); got != 3 {
		t.Fatalf("expected 3 entities, got %d: %#v", got, result.Graph.Entities)
	}

	// mentions of wechat across chunks collapse into one entity with
	// the first-seen type
	var wechat *common.Entity
	for i := range result.Graph.Entities {
		if result.Graph.Entities[i].Name == "wechat" {
			wechat = &result.Graph.Entities[i]
		}
	}
	if wechat == nil {
		t.Fatal("wechat entity missing")
	}
	if wechat.Type != "organization" {
		t.Errorf("wechat Type = %q, want %q", wechat.Type, "organization")
	}
	wantDesc := "messaging app (chunk chunk-1)\nsuper app (chunk chunk-2)"
	if wechat.Description != wantDesc {
		t.Errorf("wechat Description = %q, want %q", wechat.Description, wantDesc)
	}
	if want := []string{"chunk-1", "chunk-2"}; !reflect.DeepEqual(wechat.ChunkIDs, want) {
		t.Errorf("wechat ChunkIDs = %#v, want %#v", wechat.ChunkIDs, want)
	}
	if wechat.Degree != 2 {
		t.Errorf("wechat Degree = %d, want 2", wechat.Degree)
	}

	if got := len(result.Graph.Relations); got != 2 {
		t.Fatalf("expected 2 relations, got %d: %#v", got, result.Graph.Relations)
	}
	var tencentWechat *common.Relation
	for i := range result.Graph.Relations {
		rel := &result.Graph.Relations[i]
		if len(rel.Descriptions) == 2 {
			tencentWechat = rel
		}
	}
	if tencentWechat == nil {
		t.Fatal("merged tencent-wechat relation missing")
	}
	if tencentWechat.Weight != 2 {
		t.Errorf("Weight = %v, want 2", tencentWechat.Weight)
	}
	wantDescs := []common.RelationDescription{
		{ChunkID: "chunk-1", Text: "operates"},
		{ChunkID: "chunk-2", Text: "maintains"},
	}
	if !reflect.DeepEqual(tencentWechat.Descriptions, wantDescs) {
		t.Errorf("Descriptions = %#v, want %#v", tencentWechat.Descriptions, wantDescs)
	}

	wantEmbeddings := []common.ChunkEmbedding{
		{ChunkID: "chunk-1", Vector: []float32{1, 0}},
		{ChunkID: "chunk-2", Vector: []float32{0, 1}},
	}
	if !reflect.DeepEqual(result.Embeddings, wantEmbeddings) {
		t.Errorf("Embeddings = %#v, want %#v", result.Embeddings, wantEmbeddings)
	}

	if !reflect.DeepEqual(result.Report, common.BuildReport{}) {
		t.Errorf("Report = %#v, want zero report", result.Report)
	}
}

func TestProcessChunksDeterministic(t *testing.T) {
	client := testGraphClient(t)

	first, err := client.ProcessChunks(context.Background(), testChunks(), testStub())
	if err != nil {
		t.Fatalf("first ProcessChunks: %v", err)
	}
	second, err := client.ProcessChunks(context.Background(), testChunks(), testStub())
	if err != nil {
		t.Fatalf("second ProcessChunks: %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("results differ across runs:\nfirst:  %#v\nsecond: %#v", first, second)
	}
}

func TestProcessChunksDegradedExtraction(t *testing.T) {
	stub := testStub()
	stub.failExtract["text two"] = true

	client := testGraphClient(t)
	result, err := client.ProcessChunks(context.Background(), testChunks(), stub)
	if err != nil {
		t.Fatalf("ProcessChunks: %v", err)
	}

	if want := []string{"chunk-2"}; !reflect.DeepEqual(result.Report.DegradedChunks, want) {
		t.Errorf("DegradedChunks = %#v, want %#v", result.Report.DegradedChunks, want)
	}
	// only chunk-1 contributes mentions
	if got := len(result.Graph.Entities); got != 2 {
		t.Errorf("expected 2 entities, got %d", got)
	}
	if got := len(result.Graph.Relations); got != 1 {
		t.Errorf("expected 1 relation, got %d", got)
	}
	// the degraded chunk is still embedded
	if got := len(result.Embeddings); got != 2 {
		t.Errorf("expected 2 embeddings, got %d", got)
	}
}

func TestProcessChunksUnembedded(t *testing.T) {
	stub := testStub()
	stub.failEmbed["text one"] = true

	client := testGraphClient(t)
	result, err := client.ProcessChunks(context.Background(), testChunks(), stub)
	if err != nil {
		t.Fatalf("ProcessChunks: %v", err)
	}

	if want := []string{"chunk-1"}; !reflect.DeepEqual(result.Report.UnembeddedChunks, want) {
		t.Errorf("UnembeddedChunks = %#v, want %#v", result.Report.UnembeddedChunks, want)
	}
	wantEmbeddings := []common.ChunkEmbedding{
		{ChunkID: "chunk-2", Vector: []float32{0, 1}},
	}
	if !reflect.DeepEqual(result.Embeddings, wantEmbeddings) {
		t.Errorf("Embeddings = %#v, want %#v", result.Embeddings, wantEmbeddings)
	}
	// the unembedded chunk still contributes mentions
	if got := len(result.Graph.Entities); got != 3 {
		t.Errorf("expected 3 entities, got %d", got)
	}
}

func TestProcessChunksEmptyCorpus(t *testing.T) {
	client := testGraphClient(t)
	result, err := client.ProcessChunks(context.Background(), nil, testStub())
	if err != nil {
		t.Fatalf("ProcessChunks: %v", err)
	}
	if len(result.Graph.Entities) != 0 || len(result.Graph.Relations) != 0 {
		t.Errorf("expected empty graph, got %#v", result.Graph)
	}
	if len(result.Embeddings) != 0 {
		t.Errorf("expected no embeddings, got %#v", result.Embeddings)
	}
	if !reflect.DeepEqual(result.Report, common.BuildReport{}) {
		t.Errorf("Report = %#v, want zero report", result.Report)
	}
}

func TestProcessChunksCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := testGraphClient(t)
	if _, err := client.ProcessChunks(ctx, testChunks(), testStub()); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}
