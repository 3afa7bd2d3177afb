package pgx

import (
	"context"
	"fmt"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/logger"
)

// DeleteDocument removes one document's chunks. The graph and community
// rows still reference the prior corpus until the caller rebuilds and
// saves the next snapshot.
func (s *SnapshotDBStorage) DeleteDocument(ctx context.Context, documentID string) error {
	tag, err := s.conn.Exec(ctx, deleteDocumentChunksSQL, documentID)
	if err != nil {
		return fmt.Errorf("failed to delete document chunks:\n%w", err)
	}
	logger.Info("[Store] Document chunks deleted", "document_id", documentID, "chunks", tag.RowsAffected())
	return nil
}

// ListChunks returns the stored corpus in (document_id, ordinal) order.
func (s *SnapshotDBStorage) ListChunks(ctx context.Context) ([]common.Chunk, error) {
	rows, err := s.conn.Query(ctx, listChunksSQL)
	if err != nil {
		return nil, fmt.Errorf("failed to list chunks:\n%w", err)
	}
	defer rows.Close()

	var chunks []common.Chunk
	for rows.Next() {
		var chunk common.Chunk
		if err := rows.Scan(&chunk.ID, &chunk.DocumentID, &chunk.Ordinal, &chunk.Text); err != nil {
			return nil, fmt.Errorf("failed to scan chunk:\n%w", err)
		}
		chunks = append(chunks, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list chunks:\n%w", err)
	}
	return chunks, nil
}

const deleteDocumentChunksSQL = `
DELETE FROM chunks
WHERE document_id = $1;
`

const listChunksSQL = `
SELECT id, document_id, ordinal, text
FROM chunks
ORDER BY document_id, ordinal;
`
