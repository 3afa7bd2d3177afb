package query

import (
	"sort"
	"sync"
)

type TraceEventKind string

const (
	TraceEventConsideredChunkIDs  TraceEventKind = "considered_chunk_ids"
	TraceEventUsedChunkIDs        TraceEventKind = "used_chunk_ids"
	TraceEventQueriedEntityIDs    TraceEventKind = "queried_entity_ids"
	TraceEventQueriedCommunityIDs TraceEventKind = "queried_community_ids"
)

// TraceEvent is an extensible event envelope for search tracing.
// Additive changes to this struct are backward compatible for implementers.
type TraceEvent struct {
	Kind TraceEventKind

	ChunkIDs     []string
	EntityIDs    []string
	CommunityIDs []string

	DurationMs int64
	Error      string
}

// Tracer is a sink for search tracing events.
//
// Implementers can forward events to logs, telemetry, or custom
// post-processing pipelines.
type Tracer interface {
	Record(event TraceEvent)
}

// MultiTracer fan-outs trace events to multiple tracers.
type MultiTracer []Tracer

func (m MultiTracer) Record(event TraceEvent) {
	for _, t := range m {
		if t == nil {
			continue
		}
		t.Record(event)
	}
}

func RecordConsideredChunkIDs(t Tracer, ids ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventConsideredChunkIDs, ChunkIDs: ids})
}

func RecordUsedChunkIDs(t Tracer, ids ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventUsedChunkIDs, ChunkIDs: ids})
}

func RecordQueriedEntityIDs(t Tracer, ids ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventQueriedEntityIDs, EntityIDs: ids})
}

func RecordQueriedCommunityIDs(t Tracer, ids ...string) {
	if t == nil {
		return
	}
	t.Record(TraceEvent{Kind: TraceEventQueriedCommunityIDs, CommunityIDs: ids})
}

// QueryTrace collects which chunks, entities, and communities a search
// considered and used.
//
// This is primarily used to expose search metadata like "chunks
// considered" for both local and global search modes.
//
// QueryTrace is safe for concurrent use.
type QueryTrace struct {
	mu sync.Mutex

	consideredChunkIDs  map[string]struct{}
	usedChunkIDs        map[string]struct{}
	queriedEntityIDs    map[string]struct{}
	queriedCommunityIDs map[string]struct{}
}

type QueryTraceSnapshot struct {
	ConsideredChunkIDs  []string
	UsedChunkIDs        []string
	QueriedEntityIDs    []string
	QueriedCommunityIDs []string
}

func NewQueryTrace() *QueryTrace {
	return &QueryTrace{
		consideredChunkIDs:  make(map[string]struct{}),
		usedChunkIDs:        make(map[string]struct{}),
		queriedEntityIDs:    make(map[string]struct{}),
		queriedCommunityIDs: make(map[string]struct{}),
	}
}

func (t *QueryTrace) Record(event TraceEvent) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	switch event.Kind {
	case TraceEventConsideredChunkIDs:
		for _, id := range event.ChunkIDs {
			if id == "" {
				continue
			}
			t.consideredChunkIDs[id] = struct{}{}
		}
	case TraceEventUsedChunkIDs:
		for _, id := range event.ChunkIDs {
			if id == "" {
				continue
			}
			t.usedChunkIDs[id] = struct{}{}
		}
	case TraceEventQueriedEntityIDs:
		for _, id := range event.EntityIDs {
			if id == "" {
				continue
			}
			t.queriedEntityIDs[id] = struct{}{}
		}
	case TraceEventQueriedCommunityIDs:
		for _, id := range event.CommunityIDs {
			if id == "" {
				continue
			}
			t.queriedCommunityIDs[id] = struct{}{}
		}
	default:
		return
	}
}

func (t *QueryTrace) Snapshot() QueryTraceSnapshot {
	if t == nil {
		return QueryTraceSnapshot{}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	s := QueryTraceSnapshot{
		ConsideredChunkIDs:  make([]string, 0, len(t.consideredChunkIDs)),
		UsedChunkIDs:        make([]string, 0, len(t.usedChunkIDs)),
		QueriedEntityIDs:    make([]string, 0, len(t.queriedEntityIDs)),
		QueriedCommunityIDs: make([]string, 0, len(t.queriedCommunityIDs)),
	}

	for id := range t.consideredChunkIDs {
		s.ConsideredChunkIDs = append(s.ConsideredChunkIDs, id)
	}
	for id := range t.usedChunkIDs {
		s.UsedChunkIDs = append(s.UsedChunkIDs, id)
	}
	for id := range t.queriedEntityIDs {
		s.QueriedEntityIDs = append(s.QueriedEntityIDs, id)
	}
	for id := range t.queriedCommunityIDs {
		s.QueriedCommunityIDs = append(s.QueriedCommunityIDs, id)
	}

	sort.Strings(s.ConsideredChunkIDs)
	sort.Strings(s.UsedChunkIDs)
	sort.Strings(s.QueriedEntityIDs)
	sort.Strings(s.QueriedCommunityIDs)

	return s
}
