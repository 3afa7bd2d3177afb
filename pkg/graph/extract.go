package graph

import (
	"context"
	"fmt"
	"strings"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/internal/util"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/ai"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
)

// DefaultEntityTypes is the extraction vocabulary used when neither the
// client params nor the GRAPH_ENTITY_TYPES env var provide one.
var DefaultEntityTypes = []string{
	"person", "organization", "location", "event", "concept", "time", "object",
}

type extractEntity struct {
	EntityName        string `json:"entity_name" jsonschema_description:"Name of the entity, all letters capitalized"`
	EntityType        string `json:"entity_type" jsonschema_description:"One of the provided entity types"`
	EntityDescription string `json:"entity_description" jsonschema_description:"Comprehensive description of the entity's attributes, activities and information provided by the source."`
}

type extractRelationship struct {
	SourceEntity            string `json:"source_entity" jsonschema_description:"Name of the source entity, as identified in step 1"`
	TargetEntity            string `json:"target_entity" jsonschema_description:"Name of the target entity, as identified in step 1"`
	RelationshipDescription string `json:"relationship_description" jsonschema_description:"Explanation as to why you think the source entity and the target entity are related to each other"`
}

type extractResponse struct {
	Entities      []extractEntity       `json:"entities" jsonschema_description:"Entities identified in the text chunk"`
	Relationships []extractRelationship `json:"relationships" jsonschema_description:"Relationships identified in the text chunk"`
}

func entityTypesFromEnv() []string {
	raw := util.GetEnvString("GRAPH_ENTITY_TYPES", "")
	if strings.TrimSpace(raw) == "" {
		return DefaultEntityTypes
	}

	parts := strings.Split(raw, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		return DefaultEntityTypes
	}
	return types
}

func extractFromChunk(
	ctx context.Context,
	chunk common.Chunk,
	entityTypes []string,
	client ai.Client,
) ([]common.EntityMention, []common.RelationMention, error) {
	types := strings.Join(entityTypes, ",")
	systemPrompt := fmt.Sprintf(ai.ExtractPrompt, types, chunk.DocumentID, types, types)

	var res extractResponse
	err := client.GenerateCompletionWithFormat(
		ctx,
		"extract_entities_and_relationships",
		"Extract entities and relationships from a provided article chunk.",
		chunk.Text,
		&res,
		ai.WithSystemPrompts(systemPrompt),
	)
	if err != nil {
		return nil, nil, err
	}

	entities := make([]common.EntityMention, 0, len(res.Entities))
	for _, e := range res.Entities {
		entities = append(entities, common.EntityMention{
			ChunkID:     chunk.ID,
			Name:        e.EntityName,
			Type:        e.EntityType,
			Description: e.EntityDescription,
		})
	}

	relations := make([]common.RelationMention, 0, len(res.Relationships))
	for _, r := range res.Relationships {
		relations = append(relations, common.RelationMention{
			ChunkID:     chunk.ID,
			SourceName:  r.SourceEntity,
			TargetName:  r.TargetEntity,
			Description: r.RelationshipDescription,
		})
	}

	return entities, relations, nil
}
