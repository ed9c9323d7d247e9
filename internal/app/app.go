// Package app wires the pantry components from configuration. The daemon and
// the batch tool share it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/pantry-receipts/internal/async"
	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/export"
	"github.com/joseph-ayodele/pantry-receipts/internal/ingest"
	"github.com/joseph-ayodele/pantry-receipts/internal/normalize"
	"github.com/joseph-ayodele/pantry-receipts/internal/ocr"
	"github.com/joseph-ayodele/pantry-receipts/internal/parser"
	"github.com/joseph-ayodele/pantry-receipts/internal/pipeline"
	"github.com/joseph-ayodele/pantry-receipts/internal/preprocess"
	"github.com/joseph-ayodele/pantry-receipts/internal/recipe"
	"github.com/joseph-ayodele/pantry-receipts/internal/repository"
	"github.com/joseph-ayodele/pantry-receipts/internal/server"
	"github.com/joseph-ayodele/pantry-receipts/internal/translate"
)

// App holds the wired components. Close releases the queue and the database.
type App struct {
	Config      *common.Config
	DB          *repository.DB
	Processor   *pipeline.Processor
	Normalizer  *normalize.Normalizer
	Queue       *async.ProcessorQueue
	Ingestor    *ingest.FSIngestor
	Recommender *recipe.Recommender
	Export      *export.Service
	logger      *slog.Logger
}

// New connects to the database and builds every component. The recommender
// is nil when no recipe API key is configured.
func New(ctx context.Context, cfg *common.Config, logger *slog.Logger) (*App, error) {
	db, err := server.ConnectDB(ctx, cfg.Database, logger)
	if err != nil {
		return nil, err
	}
	if err := server.PingDB(ctx, db, logger, 5*time.Second); err != nil {
		server.CloseDB(db, logger)
		return nil, err
	}

	engine, err := ocr.NewEngine(ocr.EngineConfig{
		Kind:        cfg.OCR.Engine,
		Binary:      cfg.OCR.Tesseract,
		TessdataDir: cfg.OCR.TessdataDir,
	}, logger)
	if err != nil {
		server.CloseDB(db, logger)
		return nil, fmt.Errorf("ocr engine: %w", err)
	}

	lineParser := parser.New(logger)
	reconciler := ocr.NewReconciler(engine, lineParser, logger,
		ocr.WithPasses(ocr.DefaultPasses(cfg.OCR.Lang, cfg.OCR.OEM)...),
		ocr.WithParallel(cfg.OCR.Parallel),
	)

	catalog := repository.NewCatalog(db, logger)
	normalizer := normalize.New(normalize.Config{
		PatternAccept:  cfg.Normalize.PatternAccept,
		FuzzyBaseScore: cfg.Normalize.FuzzyBaseScore,
	}, catalog, normalize.LoadLearned(ctx, catalog, logger), logger)

	translator := translate.New(translate.Config{
		APIKey:     cfg.Translate.APIKey,
		BaseURL:    cfg.Translate.BaseURL,
		Timeout:    cfg.Translate.Timeout,
		RatePerSec: cfg.Translate.RatePerSec,
	}, logger)

	processor := pipeline.NewProcessor(
		pipeline.Config{
			UserID:           cfg.Ingest.UserID,
			DefaultStorageID: cfg.ShelfLife.DefaultStorageID,
			HEICConverter:    cfg.OCR.HEICConverter,
		},
		db,
		preprocess.New(preprocess.Config{}, logger),
		reconciler,
		lineParser,
		normalizer,
		translator,
		logger,
	)

	queue := async.NewProcessorQueue(processor, logger,
		async.WithWorkers(cfg.Queue.Workers),
		async.WithQueueSize(cfg.Queue.Size),
		async.WithProcessTimeout(cfg.Queue.Timeout),
	)

	var recommender *recipe.Recommender
	if cfg.Recipe.APIKey != "" {
		client := recipe.NewClient(recipe.SearchConfig{
			APIKey:     cfg.Recipe.APIKey,
			BaseURL:    cfg.Recipe.BaseURL,
			Timeout:    cfg.Recipe.Timeout,
			RatePerSec: cfg.Recipe.RatePerSec,
		}, logger)
		recommender = recipe.NewRecommender(recipe.RecommenderConfig{
			MaxRecipes: cfg.Recipe.MaxRecipes,
			MaxMissing: cfg.Recipe.MaxMissing,
		}, client, translator, logger)
	} else {
		logger.Warn("recipe API key not configured, recommendations are limited to supplied candidates")
	}

	return &App{
		Config:      cfg,
		DB:          db,
		Processor:   processor,
		Normalizer:  normalizer,
		Queue:       queue,
		Ingestor:    ingest.NewFSIngestor(queue, db.Queries(), logger),
		Recommender: recommender,
		Export:      export.NewService(db.Queries(), logger),
		logger:      logger,
	}, nil
}

// Deps returns the server dependencies backed by this App.
func (a *App) Deps() server.Deps {
	return server.Deps{
		DB:          a.DB,
		Processor:   a.Processor,
		Queue:       a.Queue,
		Ingestor:    a.Ingestor,
		Normalizer:  a.Normalizer,
		Recommender: a.Recommender,
		Export:      a.Export,
		DefaultUser: a.Config.Ingest.UserID,
		Storage:     a.Config.ShelfLife.DefaultStorageID,
	}
}

// Close drains the queue, then closes the database.
func (a *App) Close(ctx context.Context) {
	a.Queue.Shutdown(ctx)
	server.CloseDB(a.DB, a.logger)
}
