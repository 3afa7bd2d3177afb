package graph

import (
	"reflect"
	"testing"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
)

func TestNormalizeName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "lowercase passthrough",
			raw:  "tencent",
			want: "tencent",
		},
		{
			name: "case folded",
			raw:  "OpenAI",
			want: "openai",
		},
		{
			name: "punctuation stripped",
			raw:  "U.S.A.",
			want: "usa",
		},
		{
			name: "symbols stripped",
			raw:  "AT&T",
			want: "att",
		},
		{
			name: "whitespace collapsed",
			raw:  "  New    York\tCity ",
			want: "new york city",
		},
		{
			name: "quotes and brackets stripped",
			raw:  "\"WeChat\" (app)",
			want: "wechat app",
		},
		{
			name: "cjk preserved",
			raw:  "微信公众号",
			want: "微信公众号",
		},
		{
			name: "cjk with fullwidth punctuation",
			raw:  "微信（腾讯）",
			want: "微信腾讯",
		},
		{
			name: "only punctuation",
			raw:  "!!!",
			want: "",
		},
		{
			name: "empty",
			raw:  "",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeName(tt.raw)
			if got != tt.want {
				t.Errorf("NormalizeName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolverMergesByNormalizedName(t *testing.T) {
	r := NewResolver()
	r.Absorb(common.EntityMention{ChunkID: "c1", Name: "WeChat", Type: "organization", Description: "messaging platform"})
	r.Absorb(common.EntityMention{ChunkID: "c2", Name: "wechat!", Type: "concept", Description: "super app"})
	r.Absorb(common.EntityMention{ChunkID: "c2", Name: "WECHAT", Type: "organization", Description: ""})

	entities := r.Entities()
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity, got %d: %#v", len(entities), entities)
	}

	e := entities[0]
	if e.Name != "wechat" {
		t.Errorf("Name = %q, want %q", e.Name, "wechat")
	}
	// first mention fixes the type, the id follows from it
	if e.Type != "organization" {
		t.Errorf("Type = %q, want %q", e.Type, "organization")
	}
	if want := EntityID("organization", "wechat"); e.ID != want {
		t.Errorf("ID = %q, want %q", e.ID, want)
	}
	wantDesc := "messaging platform (chunk c1)\nsuper app (chunk c2)"
	if e.Description != wantDesc {
		t.Errorf("Description = %q, want %q", e.Description, wantDesc)
	}
	if want := []string{"c1", "c2"}; !reflect.DeepEqual(e.ChunkIDs, want) {
		t.Errorf("ChunkIDs = %#v, want %#v", e.ChunkIDs, want)
	}
	if r.Skipped() != 0 {
		t.Errorf("Skipped() = %d, want 0", r.Skipped())
	}
}

func TestResolverDefaultsEmptyType(t *testing.T) {
	r := NewResolver()
	r.Absorb(common.EntityMention{ChunkID: "c1", Name: "GraphRAG", Type: "  "})

	entities := r.Entities()
	if len(entities) != 1 {
		t.Fatalf("expected 1 entity, got %d", len(entities))
	}
	if entities[0].Type != "concept" {
		t.Errorf("Type = %q, want %q", entities[0].Type, "concept")
	}
	if want := EntityID("concept", "graphrag"); entities[0].ID != want {
		t.Errorf("ID = %q, want %q", entities[0].ID, want)
	}
}

func TestResolverSkipsEmptyNames(t *testing.T) {
	r := NewResolver()
	r.Absorb(common.EntityMention{ChunkID: "c1", Name: "...", Type: "concept"})
	r.Absorb(common.EntityMention{ChunkID: "c1", Name: "  ", Type: "concept"})
	r.Absorb(common.EntityMention{ChunkID: "c1", Name: "valid", Type: "concept"})

	if got := r.Skipped(); got != 2 {
		t.Errorf("Skipped() = %d, want 2", got)
	}
	if got := len(r.Entities()); got != 1 {
		t.Errorf("len(Entities()) = %d, want 1", got)
	}
}

func TestResolverLookup(t *testing.T) {
	r := NewResolver()
	r.Absorb(common.EntityMention{ChunkID: "c1", Name: "Pony Ma", Type: "person"})

	id, ok := r.Lookup("pony  ma!")
	if !ok {
		t.Fatal("Lookup of alias failed")
	}
	if want := EntityID("person", "pony ma"); id != want {
		t.Errorf("Lookup id = %q, want %q", id, want)
	}

	if _, ok := r.Lookup("unknown name"); ok {
		t.Error("Lookup of unknown name succeeded")
	}
}

func TestResolverFirstSeenOrder(t *testing.T) {
	mentions := []common.EntityMention{
		{ChunkID: "c1", Name: "Beta", Type: "concept"},
		{ChunkID: "c1", Name: "Alpha", Type: "concept"},
		{ChunkID: "c2", Name: "beta", Type: "concept"},
		{ChunkID: "c2", Name: "Gamma", Type: "concept"},
	}

	r := NewResolver()
	for _, m := range mentions {
		r.Absorb(m)
	}

	var names []string
	for _, e := range r.Entities() {
		names = append(names, e.Name)
	}
	if want := []string{"beta", "alpha", "gamma"}; !reflect.DeepEqual(names, want) {
		t.Errorf("entity order = %#v, want %#v", names, want)
	}
}

func TestResolverDeterministic(t *testing.T) {
	mentions := []common.EntityMention{
		{ChunkID: "c1", Name: "WeChat", Type: "organization", Description: "app"},
		{ChunkID: "c1", Name: "Tencent", Type: "organization", Description: "company"},
		{ChunkID: "c2", Name: "wechat", Type: "concept", Description: "platform"},
		{ChunkID: "c2", Name: "???", Type: "concept"},
	}

	resolve := func() []common.Entity {
		r := NewResolver()
		for _, m := range mentions {
			r.Absorb(m)
		}
		return r.Entities()
	}

	first := resolve()
	second := resolve()
	if !reflect.DeepEqual(first, second) {
		t.Errorf("resolution not deterministic:\nfirst:  %#v\nsecond: %#v", first, second)
	}
}
