package graph

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
)

// buildGraph assembles the weighted undirected graph from resolved
// entities and raw relation mentions. Endpoint names resolve through
// the resolver; mentions with an unknown endpoint or whose endpoints
// collapse to the same entity are dropped and counted. Repeat mentions
// of a pair increment its weight and append to its descriptions.
//
// Relations come out with SourceID < TargetID and sorted by endpoint
// pair; entity degrees are populated from the final edge set.
func buildGraph(resolver *Resolver, mentions []common.RelationMention) (common.Graph, int) {
	type pairKey struct {
		a, b string
	}

	relIndex := make(map[pairKey]int)
	relations := make([]common.Relation, 0)
	dropped := 0

	for _, m := range mentions {
		srcID, okSrc := resolver.Lookup(m.SourceName)
		tgtID, okTgt := resolver.Lookup(m.TargetName)
		if !okSrc || !okTgt {
			dropped++
			continue
		}
		if srcID == tgtID {
			// self-loop after resolution
			dropped++
			continue
		}

		a, b := srcID, tgtID
		if a > b {
			a, b = b, a
		}

		key := pairKey{a: a, b: b}
		idx, ok := relIndex[key]
		if !ok {
			relations = append(relations, common.Relation{SourceID: a, TargetID: b})
			idx = len(relations) - 1
			relIndex[key] = idx
		}

		rel := &relations[idx]
		rel.Weight++
		if desc := strings.TrimSpace(m.Description); desc != "" {
			rel.Descriptions = append(rel.Descriptions, common.RelationDescription{
				ChunkID: m.ChunkID,
				Text:    desc,
			})
		}
	}

	sort.Slice(relations, func(i, j int) bool {
		if relations[i].SourceID != relations[j].SourceID {
			return relations[i].SourceID < relations[j].SourceID
		}
		return relations[i].TargetID < relations[j].TargetID
	})

	degree := make(map[string]int)
	for _, rel := range relations {
		degree[rel.SourceID]++
		degree[rel.TargetID]++
	}

	entities := make([]common.Entity, len(resolver.Entities()))
	copy(entities, resolver.Entities())
	for i := range entities {
		entities[i].Degree = degree[entities[i].ID]
	}

	return common.Graph{Entities: entities, Relations: relations}, dropped
}

// verifyGraph checks the structural invariants of a merged graph:
// canonical endpoint order, no self-loops, no duplicate pairs, every
// endpoint backed by an entity. A violation means the single-writer
// merge was broken somewhere and the build must not be installed.
func verifyGraph(g common.Graph) error {
	ids := make(map[string]bool, len(g.Entities))
	for _, e := range g.Entities {
		ids[e.ID] = true
	}

	type pairKey struct {
		a, b string
	}
	seen := make(map[pairKey]bool, len(g.Relations))

	for _, rel := range g.Relations {
		if rel.SourceID == rel.TargetID {
			return &common.GraphMergeConflictError{
				Detail: fmt.Sprintf("self-loop on entity %s", rel.SourceID),
			}
		}
		if rel.SourceID > rel.TargetID {
			return &common.GraphMergeConflictError{
				Detail: fmt.Sprintf("relation %s-%s not in canonical order", rel.SourceID, rel.TargetID),
			}
		}
		key := pairKey{a: rel.SourceID, b: rel.TargetID}
		if seen[key] {
			return &common.GraphMergeConflictError{
				Detail: fmt.Sprintf("duplicate relation %s-%s", rel.SourceID, rel.TargetID),
			}
		}
		seen[key] = true
		if !ids[rel.SourceID] || !ids[rel.TargetID] {
			return &common.GraphMergeConflictError{
				Detail: fmt.Sprintf("relation %s-%s references unknown entity", rel.SourceID, rel.TargetID),
			}
		}
		if rel.Weight < 1 {
			return &common.GraphMergeConflictError{
				Detail: fmt.Sprintf("relation %s-%s has weight %v", rel.SourceID, rel.TargetID, rel.Weight),
			}
		}
	}

	return nil
}
