package pgx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/internal/util"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/logger"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/store"
)

// SaveSnapshot replaces the stored snapshot with the given one inside a
// single transaction: wipe, then batched inserts of chunks (with their
// embeddings), entities, relations, communities, and the build report.
func (s *SnapshotDBStorage) SaveSnapshot(ctx context.Context, snapshot common.Snapshot) error {
	logger.Info("[Store] Saving snapshot",
		"chunks", len(snapshot.Chunks),
		"entities", len(snapshot.Graph.Entities),
		"relations", len(snapshot.Graph.Relations),
		"levels", snapshot.Hierarchy.Depth(),
	)

	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin snapshot transaction:\n%w", err)
	}
	defer tx.Rollback(ctx)

	// wipe order respects the relations -> entities foreign key
	for _, stmt := range []string{
		deleteAllRelationsSQL,
		deleteAllCommunitiesSQL,
		deleteAllEntitiesSQL,
		deleteAllChunksSQL,
		deleteSnapshotMetaSQL,
	} {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("failed to clear stored snapshot:\n%w", err)
		}
	}

	vectors := make(map[string][]float32, len(snapshot.Embeddings))
	for _, emb := range snapshot.Embeddings {
		vectors[emb.ChunkID] = emb.Vector
	}

	err = store.ChunkRange(len(snapshot.Chunks), insertBatchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, chunk := range snapshot.Chunks[start:end] {
			var embedding any
			if v, ok := vectors[chunk.ID]; ok {
				embedding = pgvector.NewVector(v)
			}
			batch.Queue(insertChunkSQL,
				chunk.ID,
				chunk.DocumentID,
				chunk.Ordinal,
				util.SanitizePostgresText(chunk.Text),
				embedding,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save chunks:\n%w", err)
	}

	err = store.ChunkRange(len(snapshot.Graph.Entities), insertBatchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, entity := range snapshot.Graph.Entities[start:end] {
			batch.Queue(insertEntitySQL,
				entity.ID,
				entity.Name,
				entity.Type,
				util.SanitizePostgresText(entity.Description),
				entity.ChunkIDs,
				entity.Degree,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save entities:\n%w", err)
	}

	err = store.ChunkRange(len(snapshot.Graph.Relations), insertBatchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, relation := range snapshot.Graph.Relations[start:end] {
			descriptions, err := json.Marshal(sanitizeDescriptions(relation.Descriptions))
			if err != nil {
				return err
			}
			batch.Queue(insertRelationSQL,
				relation.SourceID,
				relation.TargetID,
				relation.Weight,
				descriptions,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save relations:\n%w", err)
	}

	communities := flattenCommunities(snapshot.Hierarchy)
	err = store.ChunkRange(len(communities), insertBatchSize, func(start, end int) error {
		batch := &pgxv5.Batch{}
		for _, c := range communities[start:end] {
			batch.Queue(insertCommunitySQL,
				c.ID,
				c.Level,
				c.ParentID,
				c.EntityIDs,
				util.SanitizePostgresText(c.Summary),
				c.Rank,
			)
		}
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("failed to save communities:\n%w", err)
	}

	report, err := json.Marshal(snapshot.Report)
	if err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, insertSnapshotMetaSQL, report); err != nil {
		return fmt.Errorf("failed to save build report:\n%w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit snapshot:\n%w", err)
	}
	return nil
}

// LoadSnapshot reads the stored snapshot back, or returns nil when the
// store is empty.
func (s *SnapshotDBStorage) LoadSnapshot(ctx context.Context) (*common.Snapshot, error) {
	var snapshot common.Snapshot

	rows, err := s.conn.Query(ctx, selectChunksSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to load chunks:\n%w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var chunk common.Chunk
		var embedding *pgvector.Vector
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Ordinal, &chunk.Text, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan chunk:\n%w", err)
		}
		snapshot.Chunks = append(snapshot.Chunks, chunk)
		if embedding != nil {
			snapshot.Embeddings = append(snapshot.Embeddings, common.ChunkEmbedding{
				ChunkID: chunk.ID,
				Vector:  embedding.Slice(),
			})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load chunks:\n%w", err)
	}
	rows.Close()

	entityRows, err := s.conn.Query(ctx, selectEntitiesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to load entities:\n%w", err)
	}
	defer entityRows.Close()
	for entityRows.Next() {
		var entity common.Entity
		if err := entityRows.Scan(&entity.ID, &entity.Name, &entity.Type, &entity.Description, &entity.ChunkIDs, &entity.Degree); err != nil {
			return nil, fmt.Errorf("failed to scan entity:\n%w", err)
		}
		snapshot.Graph.Entities = append(snapshot.Graph.Entities, entity)
	}
	if err := entityRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load entities:\n%w", err)
	}
	entityRows.Close()

	relationRows, err := s.conn.Query(ctx, selectRelationsSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to load relations:\n%w", err)
	}
	defer relationRows.Close()
	for relationRows.Next() {
		var relation common.Relation
		var descriptions []byte
		if err := relationRows.Scan(&relation.SourceID, &relation.TargetID, &relation.Weight, &descriptions); err != nil {
			return nil, fmt.Errorf("failed to scan relation:\n%w", err)
		}
		if err := json.Unmarshal(descriptions, &relation.Descriptions); err != nil {
			return nil, fmt.Errorf("failed to decode relation descriptions:\n%w", err)
		}
		snapshot.Graph.Relations = append(snapshot.Graph.Relations, relation)
	}
	if err := relationRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load relations:\n%w", err)
	}
	relationRows.Close()

	communityRows, err := s.conn.Query(ctx, selectCommunitiesSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to load communities:\n%w", err)
	}
	defer communityRows.Close()
	var communities []common.Community
	for communityRows.Next() {
		var c common.Community
		if err := communityRows.Scan(&c.ID, &c.Level, &c.ParentID, &c.EntityIDs, &c.Summary, &c.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan community:\n%w", err)
		}
		communities = append(communities, c)
	}
	if err := communityRows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load communities:\n%w", err)
	}
	communityRows.Close()
	snapshot.Hierarchy = groupCommunities(communities)

	var report []byte
	err = s.conn.QueryRow(ctx, selectSnapshotMetaSQL).Scan(&report)
	if err != nil && !errors.Is(err, pgxv5.ErrNoRows) {
		return nil, fmt.Errorf("failed to load build report:\n%w", err)
	}
	if len(report) > 0 {
		if err := json.Unmarshal(report, &snapshot.Report); err != nil {
			return nil, fmt.Errorf("failed to decode build report:\n%w", err)
		}
	}

	if len(snapshot.Chunks) == 0 && len(snapshot.Graph.Entities) == 0 && snapshot.Hierarchy.Depth() == 0 {
		return nil, nil
	}

	logger.Info("[Store] Snapshot loaded",
		"chunks", len(snapshot.Chunks),
		"entities", len(snapshot.Graph.Entities),
		"levels", snapshot.Hierarchy.Depth(),
	)
	return &snapshot, nil
}

func sanitizeDescriptions(descriptions []common.RelationDescription) []common.RelationDescription {
	out := make([]common.RelationDescription, len(descriptions))
	for i, d := range descriptions {
		out[i] = common.RelationDescription{
			ChunkID: d.ChunkID,
			Text:    util.SanitizePostgresText(d.Text),
		}
	}
	return out
}

// flattenCommunities lists every community of the hierarchy; the Level
// field carries the level for regrouping on load.
func flattenCommunities(hierarchy common.CommunityHierarchy) []common.Community {
	var out []common.Community
	for _, level := range hierarchy.Levels {
		out = append(out, level...)
	}
	return out
}

// groupCommunities rebuilds the level structure from stored rows. Rows
// arrive ordered by (level, id), so the per-level order is stable
// across loads.
func groupCommunities(communities []common.Community) common.CommunityHierarchy {
	if len(communities) == 0 {
		return common.CommunityHierarchy{}
	}
	maxLevel := 0
	for _, c := range communities {
		if c.Level > maxLevel {
			maxLevel = c.Level
		}
	}
	levels := make([][]common.Community, maxLevel+1)
	for _, c := range communities {
		levels[c.Level] = append(levels[c.Level], c)
	}
	return common.CommunityHierarchy{Levels: levels}
}

const insertChunkSQL = `
INSERT INTO chunks (id, document_id, ordinal, text, embedding)
VALUES ($1, $2, $3, $4, $5);
`

const insertEntitySQL = `
INSERT INTO entities (id, name, type, description, chunk_ids, degree)
VALUES ($1, $2, $3, $4, $5, $6);
`

const insertRelationSQL = `
INSERT INTO relations (source_id, target_id, weight, descriptions)
VALUES ($1, $2, $3, $4);
`

const insertCommunitySQL = `
INSERT INTO communities (id, level, parent_id, entity_ids, summary, rank)
VALUES ($1, $2, $3, $4, $5, $6);
`

const insertSnapshotMetaSQL = `
INSERT INTO snapshot_meta (id, report, saved_at)
VALUES (1, $1, now());
`

const deleteAllChunksSQL = `DELETE FROM chunks;`

const deleteAllEntitiesSQL = `DELETE FROM entities;`

const deleteAllRelationsSQL = `DELETE FROM relations;`

const deleteAllCommunitiesSQL = `DELETE FROM communities;`

const deleteSnapshotMetaSQL = `DELETE FROM snapshot_meta;`

const selectChunksSQL = `
SELECT id, document_id, ordinal, text, embedding
FROM chunks
ORDER BY document_id, ordinal;
`

const selectEntitiesSQL = `
SELECT id, name, type, description, chunk_ids, degree
FROM entities
ORDER BY id;
`

const selectRelationsSQL = `
SELECT source_id, target_id, weight, descriptions
FROM relations
ORDER BY source_id, target_id;
`

const selectCommunitiesSQL = `
SELECT id, level, parent_id, entity_ids, summary, rank
FROM communities
ORDER BY level, id;
`

const selectSnapshotMetaSQL = `
SELECT report
FROM snapshot_meta
WHERE id = 1;
`
