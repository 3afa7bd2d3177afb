package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/nevergoodstudy-hub/wechat-article-summarizer/internal/storage"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/internal/util"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/chunker"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/common"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/leaselock"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/logger"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/query"
	"github.com/nevergoodstudy-hub/wechat-article-summarizer/pkg/store"

	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/jackc/pgx/v5/pgxpool"
)

// IndexMessage asks the worker to (re)index one article. ObjectKey
// points at the plain-text article body in the S3 bucket.
type IndexMessage struct {
	DocumentID string `json:"document_id"`
	ObjectKey  string `json:"object_key"`
}

func ProcessIndexMessage(
	ctx context.Context,
	s3Client *awss3.Client,
	engine *query.QueryEngine,
	storageClient store.SnapshotStorage,
	conn *pgxpool.Pool,
	msg string,
) error {
	data := new(IndexMessage)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return err
	}
	if data.DocumentID == "" || data.ObjectKey == "" {
		return fmt.Errorf("index message needs document_id and object_key, got %q", msg)
	}

	body, err := storage.GetFile(ctx, s3Client, data.ObjectKey)
	if err != nil {
		return err
	}

	ck := chunker.New(
		util.GetEnvString("CHUNK_ENCODER", ""),
		int(util.GetEnvNumeric("CHUNK_MAX_TOKENS", 0)),
	)
	chunks, err := ck.Split(data.DocumentID, string(body))
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		logger.Warn("[Queue] Article produced no chunks", "document_id", data.DocumentID, "object_key", data.ObjectKey)
	}

	start := time.Now()
	var corpusSize int

	lockClient := leaselock.New(conn)
	err = lockClient.WithLease(ctx, CorpusLockKey, leaselock.Options{
		TTL:         10 * time.Minute,
		RenewEvery:  4 * time.Minute,
		Wait:        true,
		TokenPrefix: fmt.Sprintf("index/%s/", data.DocumentID),
	}, func(ctx context.Context) error {
		stored, err := storageClient.ListChunks(ctx)
		if err != nil {
			return err
		}
		corpus := unionCorpus(stored, data.DocumentID, chunks)
		corpusSize = len(corpus)

		return rebuildAndSave(ctx, engine, storageClient, corpus)
	})
	if err != nil {
		return err
	}

	duration := time.Since(start)
	logger.Info(
		"[Queue] Index completed",
		"document_id", data.DocumentID,
		"chunks", len(chunks),
		"corpus_chunks", corpusSize,
		"duration_sec", duration.Seconds(),
	)

	return nil
}

// unionCorpus replaces a document's chunks inside the stored corpus.
// The result is sorted by (document_id, ordinal) so rebuilds see the
// same corpus order no matter which document triggered them.
func unionCorpus(stored []common.Chunk, documentID string, chunks []common.Chunk) []common.Chunk {
	corpus := make([]common.Chunk, 0, len(stored)+len(chunks))
	for _, chunk := range stored {
		if chunk.DocumentID == documentID {
			continue
		}
		corpus = append(corpus, chunk)
	}
	corpus = append(corpus, chunks...)

	sort.Slice(corpus, func(i, j int) bool {
		if corpus[i].DocumentID != corpus[j].DocumentID {
			return corpus[i].DocumentID < corpus[j].DocumentID
		}
		return corpus[i].Ordinal < corpus[j].Ordinal
	})
	return corpus
}

// rebuildAndSave runs the full index refresh under the corpus lease:
// rebuild the graph from the corpus, fill missing community summaries,
// persist the result.
func rebuildAndSave(
	ctx context.Context,
	engine *query.QueryEngine,
	storageClient store.SnapshotStorage,
	corpus []common.Chunk,
) error {
	if err := engine.Rebuild(ctx, corpus); err != nil {
		return err
	}

	failed, err := engine.SummarizeCommunities(ctx)
	if err != nil {
		return err
	}
	if failed > 0 {
		logger.Warn("[Queue] Some community summaries failed", "failed", failed)
	}

	snapshot, ok := engine.Snapshot()
	if !ok {
		return fmt.Errorf("engine has no snapshot after rebuild")
	}
	return storageClient.SaveSnapshot(ctx, snapshot)
}
