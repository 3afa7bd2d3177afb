package graph

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
)

// defaultEntityType is assigned when the extraction model reports a
// mention without a type.
const defaultEntityType = "concept"

// NormalizeName canonicalizes a raw mention name: case-folded,
// punctuation stripped, whitespace runs collapsed to a single space.
// Two mentions refer to the same entity exactly when their normalized
// names are equal.
func NormalizeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		if unicode.IsPunct(r) || unicode.IsSymbol(r) {
			continue
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// EntityID returns the deterministic id for an entity: a hash of its
// first-seen type and canonical name.
func EntityID(entityType string, canonicalName string) string {
	return common.HashID(fmt.Sprintf("%s:%s", entityType, canonicalName))
}

// Resolver merges raw entity mentions into canonical entities. Matching
// is by normalized name only; the first mention of a name fixes the
// entity's type and id, later mentions append their descriptions with
// chunk provenance and extend the source chunk set.
//
// Resolution is order-dependent but deterministic: the same mention
// sequence always yields byte-identical entities. A Resolver is not
// safe for concurrent use.
type Resolver struct {
	entities []common.Entity
	byName   map[string]int
	hasChunk map[string]map[string]bool
	skipped  int
}

// NewResolver returns an empty Resolver.
func NewResolver() *Resolver {
	return &Resolver{
		byName:   make(map[string]int),
		hasChunk: make(map[string]map[string]bool),
	}
}

// Absorb merges one mention. Mentions whose name normalizes to the
// empty string are skipped and counted.
func (r *Resolver) Absorb(m common.EntityMention) {
	name := NormalizeName(m.Name)
	if name == "" {
		r.skipped++
		return
	}

	entityType := strings.TrimSpace(m.Type)
	if entityType == "" {
		entityType = defaultEntityType
	}

	idx, ok := r.byName[name]
	if !ok {
		e := common.Entity{
			ID:   EntityID(entityType, name),
			Name: name,
			Type: entityType,
		}
		r.entities = append(r.entities, e)
		idx = len(r.entities) - 1
		r.byName[name] = idx
		r.hasChunk[name] = make(map[string]bool)
	}

	entity := &r.entities[idx]

	if desc := strings.TrimSpace(m.Description); desc != "" {
		line := fmt.Sprintf("%s (chunk %s)", desc, m.ChunkID)
		if entity.Description == "" {
			entity.Description = line
		} else {
			entity.Description += "\n" + line
		}
	}

	if m.ChunkID != "" && !r.hasChunk[name][m.ChunkID] {
		r.hasChunk[name][m.ChunkID] = true
		entity.ChunkIDs = append(entity.ChunkIDs, m.ChunkID)
	}
}

// Lookup returns the entity id for a raw name, if a mention with the
// same normalized name has been absorbed.
func (r *Resolver) Lookup(rawName string) (string, bool) {
	idx, ok := r.byName[NormalizeName(rawName)]
	if !ok {
		return "", false
	}
	return r.entities[idx].ID, true
}

// Entities returns the resolved entities in first-seen order.
func (r *Resolver) Entities() []common.Entity {
	return r.entities
}

// Skipped returns how many mentions were dropped for an empty
// normalized name.
func (r *Resolver) Skipped() int {
	return r.skipped
}
