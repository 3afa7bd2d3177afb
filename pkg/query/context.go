package query

import (
	"fmt"
	"strings"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/index"
)

// localContext renders the retrieved chunks, selected entities, and the
// relations connecting them into the data block the local answer prompt
// declares. Relations appear only when both endpoints were selected.
func localContext(state *engineState, matches []index.Match, entities []scoredEntity) string {
	var sb strings.Builder

	sb.WriteString("Relevant Chunks:\n")
	for _, m := range matches {
		chunk, ok := state.chunksByID[m.ChunkID]
		if !ok {
			continue
		}
		sb.WriteString(fmt.Sprintf("%s: %s\n", chunk.ID, chunk.Text))
	}

	sb.WriteString("\nRelevant Entities:\n")
	selected := make(map[string]string, len(entities))
	for _, se := range entities {
		selected[se.entity.ID] = se.entity.Name
		sb.WriteString(fmt.Sprintf("%s,%s: %s\n", se.entity.Name, se.entity.ID, se.entity.Description))
	}

	sb.WriteString("\nConnecting Relationships:\n")
	count := 0
	for _, rel := range state.snapshot.Graph.Relations {
		if count >= maxContextRelations {
			break
		}
		sourceName, ok := selected[rel.SourceID]
		if !ok {
			continue
		}
		targetName, ok := selected[rel.TargetID]
		if !ok {
			continue
		}
		texts := make([]string, 0, len(rel.Descriptions))
		for _, d := range rel.Descriptions {
			texts = append(texts, d.Text)
		}
		description := strings.Join(texts, "; ")
		if description == "" {
			description = "related"
		}
		sb.WriteString(fmt.Sprintf("%s<->%s: %s\n", sourceName, targetName, description))
		count++
	}

	return sb.String()
}
