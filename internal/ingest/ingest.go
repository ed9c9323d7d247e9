package ingest

import (
	"context"
)

// IngestionResult is the per-file ingest outcome.
type IngestionResult struct {
	SourcePath   string
	JobID        string
	Deduplicated bool
	HashHex      string
	FileExt      string
	Err          string
}

// DirStats summarizes a directory ingest.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Ingestor is the behavior the service depends on.
type Ingestor interface {
	// IngestPath queues a single image.
	IngestPath(ctx context.Context, userID int64, path string) (IngestionResult, error)
	// IngestDirectory queues all matching images under root.
	IngestDirectory(ctx context.Context, userID int64, root string, skipHidden bool) ([]IngestionResult, DirStats, error)
}

// KnownImages reports the receipt an image hash was stored under.
// *repository.Queries satisfies it.
type KnownImages interface {
	ReceiptByImageHash(ctx context.Context, hash string) (int64, error)
}
