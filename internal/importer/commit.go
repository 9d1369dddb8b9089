package importer

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// DefaultChunkSize bounds one insert call in replace-partition mode.
const DefaultChunkSize = 500

// ErrModeUnsupported is returned by stores that cannot serve a commit mode.
var ErrModeUnsupported = errors.New("commit mode not supported by this store")

// RecordStore is the narrow write surface an import needs from persistence.
type RecordStore interface {
	DeletePartition(ctx context.Context, partition string) error
	InsertBatch(ctx context.Context, partition string, records []Record) error
	UpsertByKey(ctx context.Context, keyField string, records []Record) error
}

// CommitResult is what a caller gets back from a commit, success or not.
type CommitResult struct {
	Success        bool   `json:"success"`
	TotalCommitted int    `json:"totalCommitted"`
	Error          string `json:"error,omitempty"`
}

// Committer writes accepted batches to a RecordStore.
type Committer struct {
	chunkSize int
	logger    *zap.Logger
}

// NewCommitter returns a committer; chunkSize <= 0 means DefaultChunkSize.
func NewCommitter(chunkSize int, logger *zap.Logger) *Committer {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Committer{chunkSize: chunkSize, logger: logger}
}

// Commit dispatches on job.Mode. Store failures and panics come back as a
// failed CommitResult.
func (c *Committer) Commit(ctx context.Context, store RecordStore, job Job, partition string, records []Record) (res CommitResult) {
	defer func() {
		if p := recover(); p != nil {
			c.logger.Error("commit panicked", zap.String("job", job.Name), zap.Any("panic", p))
			res = CommitResult{Error: fmt.Sprintf("commit failed: %v", p)}
		}
	}()

	if len(records) == 0 {
		return CommitResult{Error: "no valid records to import"}
	}

	switch job.Mode {
	case ModeReplacePartition:
		return c.replacePartition(ctx, store, job, partition, records)
	case ModeUpsert:
		return c.upsert(ctx, store, job, records)
	default:
		return CommitResult{Error: fmt.Sprintf("unknown commit mode %d", job.Mode)}
	}
}

// replacePartition deletes the partition and inserts the batch chunk by chunk,
// one record per key with the last occurrence winning. Chunks already inserted stay in place when a later one fails, and two
// concurrent imports of the same partition can interleave.
func (c *Committer) replacePartition(ctx context.Context, store RecordStore, job Job, partition string, records []Record) CommitResult {
	if partition == "" {
		return CommitResult{Error: "partition key is required"}
	}

	key := job.KeyField
	if key == "" {
		key = FieldCode
	}
	batch := DedupeByKey(records, key)
	if dropped := len(records) - len(batch); dropped > 0 {
		c.logger.Warn("duplicate keys in batch, keeping last", zap.String("job", job.Name), zap.String("key", key), zap.Int("duplicates", dropped))
	}
	records = batch

	if err := store.DeletePartition(ctx, partition); err != nil {
		c.logger.Error("partition delete failed", zap.String("job", job.Name), zap.String("partition", partition), zap.Error(err))
		return CommitResult{Error: err.Error()}
	}

	committed := 0
	for start := 0; start < len(records); start += c.chunkSize {
		end := min(start+c.chunkSize, len(records))
		if err := store.InsertBatch(ctx, partition, records[start:end]); err != nil {
			c.logger.Warn("chunk insert failed, partition left partially loaded",
				zap.String("job", job.Name),
				zap.String("partition", partition),
				zap.Int("committed", committed),
				zap.Int("total", len(records)),
				zap.Error(err))
			return CommitResult{Error: err.Error()}
		}
		committed += end - start
	}

	c.logger.Info("partition replaced", zap.String("job", job.Name), zap.String("partition", partition), zap.Int("records", committed))
	return CommitResult{Success: true, TotalCommitted: committed}
}

func (c *Committer) upsert(ctx context.Context, store RecordStore, job Job, records []Record) CommitResult {
	if job.KeyField == "" {
		return CommitResult{Error: "upsert job has no key field"}
	}

	batch := DedupeByKey(records, job.KeyField)
	if err := store.UpsertByKey(ctx, job.KeyField, batch); err != nil {
		c.logger.Error("upsert failed", zap.String("job", job.Name), zap.Int("records", len(batch)), zap.Error(err))
		return CommitResult{Error: err.Error()}
	}

	c.logger.Info("records upserted", zap.String("job", job.Name), zap.Int("records", len(batch)), zap.Int("duplicates", len(records)-len(batch)))
	return CommitResult{Success: true, TotalCommitted: len(batch)}
}

// DedupeByKey keeps one record per key: the values of the last occurrence, at
// the position of the first.
func DedupeByKey(records []Record, key string) []Record {
	pos := make(map[string]int, len(records))
	out := make([]Record, 0, len(records))
	for _, r := range records {
		k := r[key]
		if i, ok := pos[k]; ok {
			out[i] = r
			continue
		}
		pos[k] = len(out)
		out = append(out, r)
	}
	return out
}
