package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/internal/storage"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/leaselock"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/logger"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/query"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/store"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DeleteMessage asks the worker to drop one article from the corpus.
// ObjectKey is optional; when set the stored article body is removed
// from the bucket after the rebuild.
type DeleteMessage struct {
	DocumentID string `json:"document_id"`
	ObjectKey  string `json:"object_key,omitempty"`
}

func ProcessDeleteMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	engine *query.QueryEngine,
	storageClient store.SnapshotStorage,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(DeleteMessage)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}
	if data.DocumentID == "" {
		return fmt.Errorf("delete message needs document_id, got %q", msg)
	}

	start := time.Now()
	var corpusSize int

	lockClient := leaselock.New(conn)
	err := lockClient.WithLease(ctx, CorpusLockKey, leaselock.Options{
		TTL:         10 * time.Minute,
		RenewEvery:  4 * time.Minute,
		Wait:        true,
		TokenPrefix: fmt.Sprintf("delete/%s/", data.DocumentID),
	}, func(ctx context.Context) error {
		if err := storageClient.DeleteDocument(ctx, data.DocumentID); err != nil {
			return err
		}

		remaining, err := storageClient.ListChunks(ctx)
		if err != nil {
			return err
		}
		corpusSize = len(remaining)

		return rebuildAndSave(ctx, engine, storageClient, remaining)
	})
	if err != nil {
		return err
	}

	duration := time.Since(start)
	logger.Info(
		"[Queue] Delete completed",
		"document_id", data.DocumentID,
		"corpus_chunks", corpusSize,
		"duration_sec", duration.Seconds(),
	)

	if data.ObjectKey != "" {
		if err := storage.DeleteFile(ctx, s3Client, data.ObjectKey); err != nil {
			logger.Warn("[Queue] Failed to delete S3 file", "object_key", data.ObjectKey, "err", err)
		}
	}

	return nil
}
