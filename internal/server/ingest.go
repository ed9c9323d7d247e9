package server

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/ingest"
)

type ingestFileRequest struct {
	Path   string `json:"path" validate:"required"`
	UserID int64  `json:"user_id" validate:"gte=0"`
}

type ingestView struct {
	SourcePath   string `json:"source_path"`
	JobID        string `json:"job_id,omitempty"`
	Deduplicated bool   `json:"deduplicated"`
	HashHex      string `json:"content_hash_hex,omitempty"`
	FileExt      string `json:"file_ext,omitempty"`
	Error        string `json:"error,omitempty"`
}

func toIngestView(r ingest.IngestionResult) ingestView {
	return ingestView{
		SourcePath:   r.SourcePath,
		JobID:        r.JobID,
		Deduplicated: r.Deduplicated,
		HashHex:      r.HashHex,
		FileExt:      r.FileExt,
		Error:        r.Err,
	}
}

// IngestFile queues one image for background processing.
func (s *PantryServer) IngestFile(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ingestFileRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	userID := s.user(ctx, req.UserID)
	path := strings.TrimSpace(req.Path)

	s.log(ctx).Info("starting file ingest", "user_id", userID, "path", path)
	r, err := s.deps.Ingestor.IngestPath(ctx, userID, path)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("ingest: %v", err)
	}
	s.log(ctx).Info("file ingest succeeded", "user_id", userID, "job_id", r.JobID, "deduplicated", r.Deduplicated)
	return encode(toIngestView(r))
}

type ingestDirectoryRequest struct {
	RootPath   string `json:"root_path" validate:"required"`
	UserID     int64  `json:"user_id" validate:"gte=0"`
	SkipHidden *bool  `json:"skip_hidden"`
}

type ingestDirectoryView struct {
	Scanned      uint32       `json:"scanned"`
	Matched      uint32       `json:"matched"`
	Succeeded    uint32       `json:"succeeded"`
	Deduplicated uint32       `json:"deduplicated"`
	Failed       uint32       `json:"failed"`
	Results      []ingestView `json:"results"`
}

// IngestDirectory queues every image under root_path. Hidden entries are
// skipped unless skip_hidden is false.
func (s *PantryServer) IngestDirectory(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req ingestDirectoryRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	userID := s.user(ctx, req.UserID)
	skipHidden := req.SkipHidden == nil || *req.SkipHidden

	s.log(ctx).Info("starting directory ingest", "user_id", userID, "root", req.RootPath, "skip_hidden", skipHidden)
	results, stats, err := s.deps.Ingestor.IngestDirectory(ctx, userID, strings.TrimSpace(req.RootPath), skipHidden)
	if err != nil {
		return nil, common.InvalidArgumentErrorf("ingest directory: %v", err)
	}

	out := ingestDirectoryView{
		Scanned:      stats.Scanned,
		Matched:      stats.Matched,
		Succeeded:    stats.Succeeded,
		Deduplicated: stats.Deduplicated,
		Failed:       stats.Failed,
		Results:      make([]ingestView, 0, len(results)),
	}
	for _, r := range results {
		out.Results = append(out.Results, toIngestView(r))
	}
	return encode(out)
}

type jobRequest struct {
	JobID string `json:"job_id" validate:"required,uuid"`
}

type jobView struct {
	JobID     string `json:"job_id"`
	Status    string `json:"status"`
	ReceiptID int64  `json:"receipt_id,omitempty"`
	Duplicate bool   `json:"duplicate"`
	Items     int    `json:"items"`
	Error     string `json:"error,omitempty"`
	UpdatedAt string `json:"updated_at"`
}

// GetJob reports the state of a queued receipt.
func (s *PantryServer) GetJob(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req jobRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	id, err := uuid.Parse(req.JobID)
	if err != nil {
		return nil, common.InvalidArgumentError("job_id must be a UUID")
	}
	st, ok := s.deps.Queue.Status(id)
	if !ok {
		return nil, common.NotFoundError("job " + req.JobID + " not found")
	}
	return encode(jobView{
		JobID:     req.JobID,
		Status:    string(st.Status),
		ReceiptID: st.ReceiptID,
		Duplicate: st.Duplicate,
		Items:     st.Items,
		Error:     st.Error,
		UpdatedAt: st.UpdatedAt.UTC().Format(time.RFC3339),
	})
}
