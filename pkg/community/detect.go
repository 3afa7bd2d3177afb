// Package community partitions the knowledge graph into a hierarchy of
// entity communities and generates the natural-language summaries global
// search runs over.
package community

import (
	"fmt"
	"math/rand"
	"sort"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
)

const (
	// DefaultResolution is the modularity resolution used when the
	// caller passes a non-positive value. Higher resolutions produce
	// smaller communities.
	DefaultResolution = 1.0

	// DefaultSeed makes repeated detection runs over the same graph
	// produce identical hierarchies.
	DefaultSeed int64 = 0xDEADBEEF
)

type edge struct {
	to     int
	weight float64
}

// workGraph is the mutable multigraph detection iterates on. Nodes of
// round 0 are entities in ascending id order; later rounds aggregate
// whole communities into single nodes, folding internal weight into
// self-loops.
type workGraph struct {
	adj      [][]edge
	selfLoop []float64
	total    float64 // sum of node strengths (2m)
}

func (g *workGraph) size() int { return len(g.adj) }

func (g *workGraph) strength(i int) float64 {
	s := 2 * g.selfLoop[i]
	for _, e := range g.adj[i] {
		s += e.weight
	}
	return s
}

// Detect clusters the graph into a community hierarchy by modularity
// optimization: greedy local moves while modularity improves, then
// aggregation of communities into super-nodes, repeated on the
// aggregated graph until no further improvement.
//
// Aggregation rounds become hierarchy levels with the coarsest
// partition at level 0. Detection is deterministic for a fixed seed:
// node visit order comes from the seed and gain ties resolve to the
// lowest community label. An empty graph yields an empty hierarchy.
func Detect(graph common.Graph, resolution float64, seed int64) (common.CommunityHierarchy, error) {
	if resolution <= 0 {
		resolution = DefaultResolution
	}
	if len(graph.Entities) == 0 {
		return common.CommunityHierarchy{}, nil
	}
	for _, rel := range graph.Relations {
		if rel.Weight < 0 {
			return common.CommunityHierarchy{}, &common.CommunityDetectionError{
				Detail: fmt.Sprintf("negative weight %v on relation %s-%s", rel.Weight, rel.SourceID, rel.TargetID),
			}
		}
	}

	entityIDs, g, err := buildWorkGraph(graph)
	if err != nil {
		return common.CommunityHierarchy{}, err
	}

	rounds := runRounds(g, resolution, rand.New(rand.NewSource(seed)))
	hierarchy := assembleHierarchy(entityIDs, rounds)
	if err := validateHierarchy(entityIDs, hierarchy); err != nil {
		return common.CommunityHierarchy{}, err
	}
	return hierarchy, nil
}

// buildWorkGraph maps entities to node indices in ascending id order and
// folds the relation list into adjacency lists.
func buildWorkGraph(graph common.Graph) ([]string, *workGraph, error) {
	entityIDs := make([]string, 0, len(graph.Entities))
	for _, e := range graph.Entities {
		entityIDs = append(entityIDs, e.ID)
	}
	sort.Strings(entityIDs)

	index := make(map[string]int, len(entityIDs))
	for i, id := range entityIDs {
		if _, dup := index[id]; dup {
			return nil, nil, &common.CommunityDetectionError{Detail: fmt.Sprintf("duplicate entity id %s", id)}
		}
		index[id] = i
	}

	g := &workGraph{
		adj:      make([][]edge, len(entityIDs)),
		selfLoop: make([]float64, len(entityIDs)),
	}
	for _, rel := range graph.Relations {
		src, ok := index[rel.SourceID]
		if !ok {
			return nil, nil, &common.CommunityDetectionError{Detail: fmt.Sprintf("relation endpoint %s has no entity", rel.SourceID)}
		}
		tgt, ok := index[rel.TargetID]
		if !ok {
			return nil, nil, &common.CommunityDetectionError{Detail: fmt.Sprintf("relation endpoint %s has no entity", rel.TargetID)}
		}
		g.adj[src] = append(g.adj[src], edge{to: tgt, weight: rel.Weight})
		g.adj[tgt] = append(g.adj[tgt], edge{to: src, weight: rel.Weight})
	}
	for i := range g.adj {
		sort.Slice(g.adj[i], func(a, b int) bool { return g.adj[i][a].to < g.adj[i][b].to })
	}
	for i := range g.adj {
		g.total += g.strength(i)
	}
	return entityIDs, g, nil
}

// runRounds performs local-move plus aggregation passes and returns one
// membership vector per round: original entity index to compacted
// community index, finest partition first.
func runRounds(g *workGraph, resolution float64, rng *rand.Rand) [][]int {
	membership := make([]int, g.size())
	for i := range membership {
		membership[i] = i
	}

	var rounds [][]int
	for {
		labels := make([]int, g.size())
		for i := range labels {
			labels[i] = i
		}
		moved := localMove(g, labels, resolution, rng)
		compacted, count := compactLabels(labels)

		mem := make([]int, len(membership))
		for orig, node := range membership {
			mem[orig] = compacted[node]
		}
		if len(rounds) > 0 && equalInts(mem, rounds[len(rounds)-1]) {
			break
		}
		rounds = append(rounds, mem)
		if !moved || count == g.size() {
			break
		}

		g = aggregate(g, compacted, count)
		membership = mem
	}
	return rounds
}

// localMove greedily reassigns nodes to the neighboring community with
// the best modularity gain until a full sweep makes no move. Visit
// order comes from rng; a move happens only on a strict improvement, and
// equal gains resolve to the lowest community label.
func localMove(g *workGraph, labels []int, resolution float64, rng *rand.Rand) bool {
	m2 := g.total
	if m2 == 0 {
		return false
	}

	n := g.size()
	commTot := make([]float64, n)
	for i := 0; i < n; i++ {
		commTot[labels[i]] += g.strength(i)
	}

	order := rng.Perm(n)
	moved := false
	for {
		movedThisSweep := false
		for _, i := range order {
			cur := labels[i]
			ki := g.strength(i)

			wTo := make(map[int]float64)
			for _, e := range g.adj[i] {
				wTo[labels[e.to]] += e.weight
			}

			commTot[cur] -= ki

			candidates := make([]int, 0, len(wTo))
			for c := range wTo {
				candidates = append(candidates, c)
			}
			sort.Ints(candidates)

			best := cur
			bestGain := wTo[cur] - resolution*ki*commTot[cur]/m2
			for _, c := range candidates {
				if c == cur {
					continue
				}
				gain := wTo[c] - resolution*ki*commTot[c]/m2
				if gain > bestGain {
					best = c
					bestGain = gain
				}
			}

			commTot[best] += ki
			if best != cur {
				labels[i] = best
				movedThisSweep = true
				moved = true
			}
		}
		if !movedThisSweep {
			break
		}
	}
	return moved
}

// compactLabels renumbers arbitrary community labels to 0..count-1 in
// ascending label order.
func compactLabels(labels []int) ([]int, int) {
	present := make([]int, 0, len(labels))
	seen := make(map[int]bool, len(labels))
	for _, l := range labels {
		if !seen[l] {
			seen[l] = true
			present = append(present, l)
		}
	}
	sort.Ints(present)

	remap := make(map[int]int, len(present))
	for i, l := range present {
		remap[l] = i
	}

	compacted := make([]int, len(labels))
	for i, l := range labels {
		compacted[i] = remap[l]
	}
	return compacted, len(present)
}

// aggregate collapses each community into a single node, summing edge
// weights between communities and folding internal weight into
// self-loops.
func aggregate(g *workGraph, compacted []int, count int) *workGraph {
	next := &workGraph{
		adj:      make([][]edge, count),
		selfLoop: make([]float64, count),
	}
	between := make([]map[int]float64, count)

	for i := 0; i < g.size(); i++ {
		ci := compacted[i]
		next.selfLoop[ci] += g.selfLoop[i]
		for _, e := range g.adj[i] {
			if e.to < i {
				continue // count each undirected edge once
			}
			cj := compacted[e.to]
			if ci == cj {
				next.selfLoop[ci] += e.weight
				continue
			}
			a, b := ci, cj
			if a > b {
				a, b = b, a
			}
			if between[a] == nil {
				between[a] = make(map[int]float64)
			}
			between[a][b] += e.weight
		}
	}

	for a, row := range between {
		for b, w := range row {
			next.adj[a] = append(next.adj[a], edge{to: b, weight: w})
			next.adj[b] = append(next.adj[b], edge{to: a, weight: w})
		}
	}
	for i := range next.adj {
		sort.Slice(next.adj[i], func(a, b int) bool { return next.adj[i][a].to < next.adj[i][b].to })
	}
	for i := range next.adj {
		next.total += next.strength(i)
	}
	return next
}

// assembleHierarchy turns per-round membership vectors into levels of
// Community values. The last round is the coarsest partition and maps
// to level 0; community ids hash the level and the community's position
// in the level.
func assembleHierarchy(entityIDs []string, rounds [][]int) common.CommunityHierarchy {
	depth := len(rounds)
	levels := make([][]common.Community, depth)

	for level := 0; level < depth; level++ {
		mem := rounds[depth-1-level]

		groups := make(map[int][]int)
		maxIdx := -1
		for entity, comm := range mem {
			groups[comm] = append(groups[comm], entity)
			if comm > maxIdx {
				maxIdx = comm
			}
		}

		communities := make([]common.Community, 0, maxIdx+1)
		for idx := 0; idx <= maxIdx; idx++ {
			members := groups[idx]
			memberIDs := make([]string, 0, len(members))
			for _, e := range members {
				memberIDs = append(memberIDs, entityIDs[e])
			}
			sort.Strings(memberIDs)

			c := common.Community{
				ID:        common.HashID(fmt.Sprintf("community-%d-%d", level, idx)),
				Level:     level,
				EntityIDs: memberIDs,
				Rank:      len(memberIDs),
			}
			if level > 0 && len(members) > 0 {
				parentIdx := rounds[depth-level][members[0]]
				c.ParentID = levels[level-1][parentIdx].ID
			}
			communities = append(communities, c)
		}
		levels[level] = communities
	}

	return common.CommunityHierarchy{Levels: levels}
}

// validateHierarchy checks the structural invariants of the result:
// every level partitions the full entity set, and every community's
// members are contained in its parent's members.
func validateHierarchy(entityIDs []string, h common.CommunityHierarchy) error {
	membersOf := make(map[string]map[string]bool)

	for level, communities := range h.Levels {
		seen := make(map[string]bool, len(entityIDs))
		for _, c := range communities {
			members := make(map[string]bool, len(c.EntityIDs))
			for _, id := range c.EntityIDs {
				if seen[id] {
					return &common.CommunityDetectionError{
						Detail: fmt.Sprintf("entity %s appears twice at level %d", id, level),
					}
				}
				seen[id] = true
				members[id] = true
			}
			membersOf[c.ID] = members

			if level == 0 {
				continue
			}
			parent, ok := membersOf[c.ParentID]
			if !ok {
				return &common.CommunityDetectionError{
					Detail: fmt.Sprintf("community %s at level %d has unknown parent %s", c.ID, level, c.ParentID),
				}
			}
			for _, id := range c.EntityIDs {
				if !parent[id] {
					return &common.CommunityDetectionError{
						Detail: fmt.Sprintf("entity %s of community %s escapes parent %s", id, c.ID, c.ParentID),
					}
				}
			}
		}
		if len(seen) != len(entityIDs) {
			return &common.CommunityDetectionError{
				Detail: fmt.Sprintf("level %d covers %d of %d entities", level, len(seen), len(entityIDs)),
			}
		}
	}
	return nil
}

func equalInts(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
