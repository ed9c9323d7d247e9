package async

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pantry-receipts/constants"
)

// Job asks for one receipt image on disk to be processed.
type Job struct {
	ID          uuid.UUID
	Path        string
	UserID      int64
	SubmittedAt time.Time
	TraceID     string
}

// JobState is the last known state of a job.
type JobState struct {
	Status    constants.JobStatus
	ReceiptID int64
	Duplicate bool
	Items     int
	Error     string
	UpdatedAt time.Time
}

type Queue interface {
	Enqueue(ctx context.Context, job Job) (uuid.UUID, error)
	Status(id uuid.UUID) (JobState, bool)
	Shutdown(ctx context.Context)
}
