package server

import (
	"context"
	"log/slog"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	"github.com/joseph-ayodele/pantry-receipts/internal/async"
	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/export"
	"github.com/joseph-ayodele/pantry-receipts/internal/ingest"
	"github.com/joseph-ayodele/pantry-receipts/internal/normalize"
	"github.com/joseph-ayodele/pantry-receipts/internal/pipeline"
	"github.com/joseph-ayodele/pantry-receipts/internal/recipe"
	"github.com/joseph-ayodele/pantry-receipts/internal/repository"
)

// Deps are the collaborators behind PantryServer.
type Deps struct {
	DB          *repository.DB
	Processor   *pipeline.Processor
	Queue       async.Queue
	Ingestor    ingest.Ingestor
	Normalizer  *normalize.Normalizer
	Recommender *recipe.Recommender
	Export      *export.Service
	DefaultUser int64 // default 1
	Storage     int64 // storage used when a batch and its product have none, default 1
}

// PantryServer implements PantryServiceServer.
type PantryServer struct {
	deps   Deps
	logger *slog.Logger
	now    func() time.Time
}

var _ PantryServiceServer = (*PantryServer)(nil)

func NewPantryServer(deps Deps, logger *slog.Logger) *PantryServer {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.DefaultUser == 0 {
		deps.DefaultUser = 1
	}
	if deps.Storage == 0 {
		deps.Storage = 1
	}
	return &PantryServer{deps: deps, logger: logger, now: time.Now}
}

func (s *PantryServer) log(ctx context.Context) *slog.Logger {
	return common.LoggerFromContext(ctx, s.logger)
}

// user resolves the owner of a call: the request field, then the x-user-id
// metadata, then the configured default.
func (s *PantryServer) user(ctx context.Context, id int64) int64 {
	if id != 0 {
		return id
	}
	if id = common.UserIDFromContext(ctx); id != 0 {
		return id
	}
	return s.deps.DefaultUser
}

// RequestLogger tags every call with a request id, taken from x-request-id
// metadata when the client sent one, and logs its outcome. A numeric
// x-user-id is stored as the calling user.
func RequestLogger(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		requestID := firstMetadata(ctx, "x-request-id")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		ctx = common.WithRequestID(ctx, requestID)
		if uid, err := strconv.ParseInt(firstMetadata(ctx, "x-user-id"), 10, 64); err == nil && uid > 0 {
			ctx = common.WithUserID(ctx, uid)
		}
		ctx = common.WithLogger(ctx, logger.With("method", info.FullMethod))
		l := common.LoggerFromContext(ctx, logger)

		resp, err := handler(ctx, req)
		if err != nil {
			l.Warn("grpc.call.failed", "duration_ms", time.Since(start).Milliseconds(), "error", err)
			return resp, err
		}
		l.Info("grpc.call.ok", "duration_ms", time.Since(start).Milliseconds())
		return resp, nil
	}
}

func firstMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}
