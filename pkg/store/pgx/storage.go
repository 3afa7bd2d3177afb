// Package pgx persists engine snapshots in PostgreSQL: chunk text and
// pgvector embeddings, the entity/relation graph, and the community
// hierarchy, replaced as one unit per snapshot save.
package pgx

import (
	"context"

	pgxv5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const insertBatchSize = 1000

type pgxIConn interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgxv5.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgxv5.Row
	Begin(ctx context.Context) (pgxv5.Tx, error)
}

// SnapshotDBStorage implements the SnapshotStorage interface on
// PostgreSQL with pgvector for the embedding column. The connection is
// expected to have pgvector types registered (the worker registers them
// in the pool's AfterConnect hook).
type SnapshotDBStorage struct {
	conn pgxIConn
}

// NewSnapshotDBStorageWithConnection creates a SnapshotDBStorage on an
// existing connection or pool.
func NewSnapshotDBStorageWithConnection(conn pgxIConn) *SnapshotDBStorage {
	return &SnapshotDBStorage{conn: conn}
}
