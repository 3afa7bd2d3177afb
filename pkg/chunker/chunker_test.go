package chunker

import (
	"reflect"
	"testing"
)

func TestSplitIntoSentences(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "empty input",
			text: "",
			want: []string(nil),
		},
		{
			name: "single sentence",
			text: "Hello world.",
			want: []string{"Hello world."},
		},
		{
			name: "multiple sentences",
			text: "Hello world. This is a test! How are you?",
			want: []string{
				"Hello world.",
				"This is a test!",
				"How are you?",
			},
		},
		{
			name: "sentences with empty lines",
			text: "First sentence.\n\nSecond sentence.\n\nThird sentence.",
			want: []string{
				"First sentence.",
				"Second sentence.",
				"Third sentence.",
			},
		},
		{
			name: "multi-line sentence",
			text: "This is a long\nsentence that spans\nmultiple lines.",
			want: []string{"This is a long sentence that spans multiple lines."},
		},
		{
			name: "text with no punctuation",
			text: "Just some text without punctuation\nMore text here",
			want: []string{"Just some text without punctuation More text here"},
		},
		{
			name: "numeric listing should stay in same sentence",
			text: "Today we discuss three points. 1. First item 2. Second item 3. Third item. Done!",
			want: []string{
				"Today we discuss three points.",
				"1. First item 2. Second item 3. Third item.",
				"Done!",
			},
		},
		{
			name: "closing quote stays attached",
			text: `He said "Stop." Then left.`,
			want: []string{
				`He said "Stop."`,
				"Then left.",
			},
		},
		{
			name: "fullwidth terminators",
			text: "今天天气很好。我们去公园吧！你觉得呢？",
			want: []string{
				"今天天气很好。",
				"我们去公园吧！",
				"你觉得呢？",
			},
		},
		{
			name: "fullwidth closing bracket stays attached",
			text: "他说：「走吧。」然后离开了。",
			want: []string{
				"他说：「走吧。」",
				"然后离开了。",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := splitIntoSentences(tt.text)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("splitIntoSentences() = %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name      string
		text      string
		maxTokens int
		wantTexts []string
	}{
		{
			name:      "single sentence under limit",
			text:      "Hello world.",
			maxTokens: 10,
			wantTexts: []string{"Hello world."},
		},
		{
			name:      "multiple sentences under limit",
			text:      "First sentence. Second sentence.",
			maxTokens: 20,
			wantTexts: []string{"First sentence. Second sentence."},
		},
		{
			name:      "sentences split by token limit",
			text:      "First sentence. Second sentence. Third sentence.",
			maxTokens: 1,
			wantTexts: []string{
				"First sentence.",
				"Second sentence.",
				"Third sentence.",
			},
		},
		{
			name:      "empty text",
			text:      "",
			maxTokens: 10,
			wantTexts: nil,
		},
		{
			name:      "whitespace only",
			text:      "   \n\t  ",
			maxTokens: 10,
			wantTexts: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New("", tt.maxTokens)
			got, err := c.Split("doc-1", tt.text)
			if err != nil {
				t.Fatalf("Split() error = %v", err)
			}
			if len(got) != len(tt.wantTexts) {
				t.Fatalf("Split() produced %d chunks, want %d", len(got), len(tt.wantTexts))
			}
			for i, chunk := range got {
				if chunk.Text != tt.wantTexts[i] {
					t.Errorf("chunk %d text = %q, want %q", i, chunk.Text, tt.wantTexts[i])
				}
				if chunk.Ordinal != i {
					t.Errorf("chunk %d ordinal = %d, want %d", i, chunk.Ordinal, i)
				}
				if chunk.DocumentID != "doc-1" {
					t.Errorf("chunk %d document id = %q, want %q", i, chunk.DocumentID, "doc-1")
				}
				if chunk.ID != ChunkID("doc-1", i) {
					t.Errorf("chunk %d id = %q, want %q", i, chunk.ID, ChunkID("doc-1", i))
				}
			}
		})
	}
}

func TestSplitDeterministic(t *testing.T) {
	c := New("", 50)
	text := "First sentence. Second sentence. Third sentence. Fourth sentence."

	first, err := c.Split("doc-1", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}
	second, err := c.Split("doc-1", text)
	if err != nil {
		t.Fatalf("Split() error = %v", err)
	}

	if !reflect.DeepEqual(first, second) {
		t.Errorf("Split() not deterministic: %#v != %#v", first, second)
	}
}

func TestChunkID(t *testing.T) {
	id := ChunkID("doc-1", 0)
	if len(id) != 12 {
		t.Errorf("ChunkID() length = %d, want 12", len(id))
	}
	if id != ChunkID("doc-1", 0) {
		t.Errorf("ChunkID() not deterministic")
	}
	if id == ChunkID("doc-1", 1) {
		t.Errorf("ChunkID() identical for different ordinals")
	}
	if id == ChunkID("doc-2", 0) {
		t.Errorf("ChunkID() identical for different documents")
	}
}
