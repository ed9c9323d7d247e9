package ingest

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pantry-receipts/internal/async"
	"github.com/joseph-ayodele/pantry-receipts/internal/common"
)

type recordingQueue struct {
	mu   sync.Mutex
	jobs []async.Job
	err  error
}

func (q *recordingQueue) Enqueue(_ context.Context, job async.Job) (uuid.UUID, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err != nil {
		return uuid.Nil, q.err
	}
	q.jobs = append(q.jobs, job)
	return uuid.New(), nil
}

func (q *recordingQueue) Status(uuid.UUID) (async.JobState, bool) { return async.JobState{}, false }
func (q *recordingQueue) Shutdown(context.Context) {}

func (q *recordingQueue) paths() []string {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]string, len(q.jobs))
	for i, j := range q.jobs {
		out[i] = j.Path
	}
	return out
}

type knownHashes map[string]int64

func (k knownHashes) ReceiptByImageHash(_ context.Context, hash string) (int64, error) {
	if id, ok := k[hash]; ok {
		return id, nil
	}
	return 0, common.ErrNotFound
}

func writeFile(t *testing.T, path, body string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestIngestPath(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	q := &recordingQueue{}
	ing := NewFSIngestor(q, nil, nil)

	a := writeFile(t, filepath.Join(dir, "a.JPG"), "receipt-a")
	r, err := ing.IngestPath(ctx, 7, a)
	require.NoError(t, err)
	assert.Equal(t, "jpg", r.FileExt)
	assert.Len(t, r.HashHex, 64)
	assert.NotEmpty(t, r.JobID)
	assert.False(t, r.Deduplicated)

	// Same content under another name is a duplicate.
	b := writeFile(t, filepath.Join(dir, "copy.png"), "receipt-a")
	r, err = ing.IngestPath(ctx, 7, b)
	require.NoError(t, err)
	assert.True(t, r.Deduplicated)
	assert.Empty(t, r.JobID)

	require.Len(t, q.jobs, 1)
	assert.Equal(t, a, q.jobs[0].Path)
	assert.Equal(t, int64(7), q.jobs[0].UserID)

	txt := writeFile(t, filepath.Join(dir, "notes.txt"), "hello")
	_, err = ing.IngestPath(ctx, 7, txt)
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	_, err = ing.IngestPath(ctx, 7, filepath.Join(dir, "missing.jpg"))
	assert.Error(t, err)
}

func TestIngestPath_SkipsStoredImages(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	q := &recordingQueue{}
	p := writeFile(t, filepath.Join(dir, "r.jpeg"), "stored")

	first, err := NewFSIngestor(&recordingQueue{}, nil, nil).IngestPath(ctx, 1, p)
	require.NoError(t, err)

	ing := NewFSIngestor(q, knownHashes{first.HashHex: 42}, nil)
	r, err := ing.IngestPath(ctx, 1, p)
	require.NoError(t, err)
	assert.True(t, r.Deduplicated)
	assert.Empty(t, q.jobs)
}

func TestIngestPath_EnqueueFailureCanRetry(t *testing.T) {
	ctx := context.Background()
	p := writeFile(t, filepath.Join(t.TempDir(), "r.png"), "retry")
	q := &recordingQueue{err: async.ErrClosed}
	ing := NewFSIngestor(q, nil, nil)

	_, err := ing.IngestPath(ctx, 1, p)
	assert.True(t, errors.Is(err, async.ErrClosed))

	q.err = nil
	r, err := ing.IngestPath(ctx, 1, p)
	require.NoError(t, err)
	assert.False(t, r.Deduplicated)
	assert.Len(t, q.jobs, 1)
}

func TestIngestDirectory(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "one.jpg"), "1")
	writeFile(t, filepath.Join(root, "nested", "two.heic"), "2")
	writeFile(t, filepath.Join(root, "nested", "dup.png"), "1")
	writeFile(t, filepath.Join(root, "readme.md"), "docs")
	writeFile(t, filepath.Join(root, ".cache", "three.jpg"), "3")
	writeFile(t, filepath.Join(root, ".hidden.jpg"), "4")

	q := &recordingQueue{}
	results, stats, err := NewFSIngestor(q, nil, nil).IngestDirectory(ctx, 1, root, true)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(3), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Deduplicated)
	assert.Zero(t, stats.Failed)
	assert.Len(t, results, 3)
	assert.Len(t, q.jobs, 2)

	_, stats, err = NewFSIngestor(&recordingQueue{}, nil, nil).IngestDirectory(ctx, 1, root, false)
	require.NoError(t, err)
	assert.Equal(t, uint32(5), stats.Matched)

	_, _, err = NewFSIngestor(q, nil, nil).IngestDirectory(ctx, 1, "  ", true)
	assert.Error(t, err)
}

func TestIsHidden(t *testing.T) {
	assert.True(t, IsHidden("/a/.git"))
	assert.False(t, IsHidden("/a/b.jpg"))
	assert.False(t, IsHidden("."))
	assert.True(t, AllowedExt(".HEIC"))
	assert.False(t, AllowedExt("pdf"))
}

func TestStartWatcher(t *testing.T) {
	root := t.TempDir()
	existing := writeFile(t, filepath.Join(root, "old.jpg"), "old")
	writeFile(t, filepath.Join(root, "skip.txt"), "x")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events, _, err := StartWatcher(ctx, WatchConfig{Roots: []string{root}, InitialScan: true, Debounce: 10 * time.Millisecond})
	require.NoError(t, err)

	select {
	case p := <-events:
		assert.Equal(t, existing, p)
	case <-time.After(2 * time.Second):
		t.Fatal("initial scan did not emit existing file")
	}

	fresh := writeFile(t, filepath.Join(root, "new.png"), "new")
	deadline := time.After(5 * time.Second)
	for {
		select {
		case p := <-events:
			if p == fresh {
				cancel()
				for range events {
				}
				return
			}
		case <-deadline:
			t.Fatal("new file was not reported")
		}
	}
}

func TestStartWatcher_NoRoots(t *testing.T) {
	_, _, err := StartWatcher(context.Background(), WatchConfig{})
	assert.Error(t, err)
}

func TestWatch_QueuesNewFiles(t *testing.T) {
	root := t.TempDir()
	q := &recordingQueue{}
	ing := NewFSIngestor(q, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Watch(ctx, ing, 1, WatchConfig{Roots: []string{root}, Debounce: 50 * time.Millisecond}) }()

	// Give the watcher time to register the root.
	time.Sleep(100 * time.Millisecond)
	p := writeFile(t, filepath.Join(root, "in.jpg"), "watched")

	require.Eventually(t, func() bool {
		ps := q.paths()
		return len(ps) == 1 && ps[0] == p
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("watch did not stop")
	}
}
