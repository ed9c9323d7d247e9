package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/async"
	"github.com/joseph-ayodele/pantry-receipts/internal/common"
)

// FSIngestor hashes images on the local filesystem and queues the ones not
// seen before. Duplicates are detected by content, not by path.
type FSIngestor struct {
	queue  async.Queue
	known  KnownImages
	logger *slog.Logger

	mu   sync.Mutex
	seen map[string]struct{}
}

// NewFSIngestor builds an ingestor. known may be nil, in which case only
// images seen by this ingestor are skipped.
func NewFSIngestor(queue async.Queue, known KnownImages, logger *slog.Logger) *FSIngestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &FSIngestor{queue: queue, known: known, logger: logger, seen: make(map[string]struct{})}
}

func (i *FSIngestor) IngestPath(ctx context.Context, userID int64, path string) (IngestionResult, error) {
	var out IngestionResult

	abs, err := filepath.Abs(path)
	if err != nil {
		return out, err
	}
	out.SourcePath = abs

	ext := constants.NormalizeExt(filepath.Ext(abs))
	if ext == "" || !AllowedExt(ext) {
		return out, fmt.Errorf("unsupported or missing extension %q: %w", ext, common.ErrInvalidInput)
	}
	out.FileExt = ext

	sum, err := hashFile(abs, i.logger)
	if err != nil {
		return out, err
	}
	out.HashHex = sum

	if i.markSeen(sum) {
		out.Deduplicated = true
		return out, nil
	}
	if i.known != nil {
		id, err := i.known.ReceiptByImageHash(ctx, sum)
		switch {
		case err == nil:
			i.logger.Debug("ingest.known_image", "path", abs, "receipt_id", id)
			out.Deduplicated = true
			return out, nil
		case !errors.Is(err, common.ErrNotFound):
			i.forget(sum)
			return out, fmt.Errorf("lookup image hash: %w", err)
		}
	}

	jobID, err := i.queue.Enqueue(ctx, async.Job{Path: abs, UserID: userID})
	if err != nil {
		i.forget(sum)
		return out, err
	}
	out.JobID = jobID.String()
	return out, nil
}

// IngestDirectory walks root, skips hidden entries if requested, and calls
// IngestPath for each accepted image.
func (i *FSIngestor) IngestDirectory(ctx context.Context, userID int64, root string, skipHidden bool) ([]IngestionResult, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root_path is required")
	}

	var results []IngestionResult
	var stats DirStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, IngestionResult{SourcePath: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if skipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() || !AllowedExt(filepath.Ext(path)) {
			return nil
		}
		stats.Matched++

		r, err := i.IngestPath(ctx, userID, path)
		if err != nil {
			r.Err = err.Error()
			results = append(results, r)
			stats.Failed++
			return nil
		}
		results = append(results, r)
		stats.Succeeded++
		if r.Deduplicated {
			stats.Deduplicated++
		}
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	i.logger.Info("ingest.directory.ok",
		"root", root,
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"queued", stats.Succeeded-stats.Deduplicated,
		"deduplicated", stats.Deduplicated,
		"failed", stats.Failed,
	)
	return results, stats, nil
}

// markSeen records sum and reports whether it was already recorded.
func (i *FSIngestor) markSeen(sum string) bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	if _, ok := i.seen[sum]; ok {
		return true
	}
	i.seen[sum] = struct{}{}
	return false
}

func (i *FSIngestor) forget(sum string) {
	i.mu.Lock()
	delete(i.seen, sum)
	i.mu.Unlock()
}

func hashFile(path string, logger *slog.Logger) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer func(f *os.File) {
		if err := f.Close(); err != nil {
			logger.Warn("close file error", "path", path, "error", err)
		}
	}(f)

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}
