package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/app"
	"github.com/joseph-ayodele/pantry-receipts/internal/async"
	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/recipe"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir       = flag.String("dir", "", "directory to process receipts from (required)")
		out       = flag.String("out", "", "output XLSX file path (optional, defaults to parent directory)")
		userID    = flag.Int64("user", 0, "owner of the receipts (default from config)")
		recommend = flag.Bool("recommend", false, "add recipe recommendations to the workbook")
		wait      = flag.Duration("wait", 30*time.Minute, "maximum time to wait for processing")
	)
	flag.Parse()

	if *dir == "" {
		printError("Error: --dir is required\n")
		os.Exit(1)
	}
	if *out == "" {
		*out = filepath.Join(filepath.Dir(*dir), "pantry.xlsx")
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	cfg, err := common.LoadConfig()
	if err != nil {
		printError("Error: %v\n", err)
		os.Exit(1)
	}
	if *userID == 0 {
		*userID = cfg.Ingest.UserID
	}

	ctx, cancel := context.WithTimeout(context.Background(), *wait)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	logger.Info("starting ingestion", "dir", *dir, "user_id", *userID)
	results, stats, err := a.Ingestor.IngestDirectory(ctx, *userID, *dir, true)
	if err != nil {
		logger.Error("failed to ingest directory", "error", err)
		os.Exit(1)
	}

	var jobs []uuid.UUID
	for _, r := range results {
		if r.Err != "" || r.JobID == "" {
			continue
		}
		id, err := uuid.Parse(r.JobID)
		if err != nil {
			logger.Error("failed to parse job ID", "job_id", r.JobID, "error", err)
			continue
		}
		jobs = append(jobs, id)
	}
	logger.Info("ingestion complete",
		"jobs", len(jobs),
		"scanned", stats.Scanned,
		"matched", stats.Matched,
		"succeeded", stats.Succeeded,
		"failed", stats.Failed,
		"deduplicated", stats.Deduplicated)

	processed, failures := waitForJobs(ctx, a.Queue, jobs, logger)

	var recs []recipe.Recommendation
	if *recommend {
		if a.Recommender == nil {
			logger.Warn("recipe API key not configured, skipping recommendations")
		} else {
			recs = recommendations(ctx, a, *userID)
		}
	}

	logger.Info("exporting to XLSX", "output", *out)
	xlsxBytes, err := a.Export.ExportPantryXLSX(ctx, *userID, recs)
	if err != nil {
		logger.Error("failed to export pantry", "error", err)
		os.Exit(1)
	}
	if err := os.WriteFile(*out, xlsxBytes, 0o644); err != nil {
		logger.Error("failed to write output file", "error", err)
		os.Exit(1)
	}

	logger.Info("batch processing complete",
		"jobs", len(jobs),
		"processed", processed,
		"failures", failures,
		"output_file", *out)

	fmt.Printf("Batch processing complete!\n")
	fmt.Printf("- Files queued: %d\n", len(jobs))
	fmt.Printf("- Files processed: %d\n", processed)
	fmt.Printf("- Failures: %d\n", failures)
	fmt.Printf("- Output: %s\n", *out)
}

// waitForJobs polls the queue until every job is parsed or failed, or ctx
// ends. Jobs still pending at that point count as failures.
func waitForJobs(ctx context.Context, q async.Queue, jobs []uuid.UUID, logger *slog.Logger) (processed, failures int) {
	pending := make(map[uuid.UUID]struct{}, len(jobs))
	for _, id := range jobs {
		pending[id] = struct{}{}
	}
	tick := time.NewTicker(250 * time.Millisecond)
	defer tick.Stop()

	for len(pending) > 0 {
		for id := range pending {
			st, ok := q.Status(id)
			if !ok {
				continue
			}
			switch st.Status {
			case constants.JobStatusParsed:
				processed++
				delete(pending, id)
			case constants.JobStatusFailed:
				failures++
				logger.Error("failed to process file", "job_id", id, "error", st.Error)
				delete(pending, id)
			}
		}
		if len(pending) == 0 {
			break
		}
		select {
		case <-ctx.Done():
			logger.Error("gave up waiting for jobs", "pending", len(pending), "error", ctx.Err())
			return processed, failures + len(pending)
		case <-tick.C:
		}
	}
	return processed, failures
}

func recommendations(ctx context.Context, a *app.App, userID int64) []recipe.Recommendation {
	rows, err := a.DB.Queries().ListInventory(ctx, userID, constants.BatchStatusInStock)
	if err != nil {
		slog.Error("failed to list inventory", "error", err)
		return nil
	}
	items := make([]recipe.InventoryItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, recipe.InventoryItem{
			NameEN:             r.NameEN,
			NameTR:             r.NameTR,
			Qty:                r.Qty,
			Status:             r.Status,
			ExpectedExpiryDate: r.ExpectedExpiryDate,
		})
	}
	prefs := recipe.Preferences{}
	if stored, err := a.DB.Queries().GetPreferences(ctx, userID); err == nil {
		prefs.Allergies, prefs.Dislikes, prefs.Diets = stored.Allergies, stored.Dislikes, stored.Diets
	}
	return a.Recommender.FromInventory(ctx, recipe.FromInventory(items, time.Now()), prefs)
}
