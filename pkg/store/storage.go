// Package store defines the persistence boundary of the engine: a
// snapshot goes in and out as one unit. Implementations live in
// subpackages (pkg/store/pgx for PostgreSQL).
package store

import (
	"context"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
)

// SnapshotStorage persists engine snapshots. SaveSnapshot replaces the
// stored snapshot wholesale inside one transaction; LoadSnapshot
// returns nil when nothing has been stored yet. DeleteDocument removes
// one document's chunks so the next rebuild excludes them; ListChunks
// returns the stored corpus for rebuilds.
type SnapshotStorage interface {
	SaveSnapshot(ctx context.Context, snapshot common.Snapshot) error
	LoadSnapshot(ctx context.Context) (*common.Snapshot, error)
	DeleteDocument(ctx context.Context, documentID string) error
	ListChunks(ctx context.Context) ([]common.Chunk, error)
}
