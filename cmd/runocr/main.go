package main

import (
	"context"
	"encoding/json"
	"flag"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/pantry-receipts/internal/app"
	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/pipeline"
	"github.com/joseph-ayodele/pantry-receipts/internal/utils"
)

type lineOut struct {
	No         int      `json:"no"`
	Text       string   `json:"text"`
	Confidence *float64 `json:"confidence,omitempty"`
}

type itemOut struct {
	RawName        string  `json:"raw_name"`
	Price          string  `json:"price"`
	NormalizedName string  `json:"normalized_name"`
	Method         string  `json:"method"`
	Confidence     float64 `json:"confidence"`
	ProductID      *int64  `json:"product_id,omitempty"`
	ExpiryDate     string  `json:"expiry_date,omitempty"`
}

type output struct {
	ReceiptID int64     `json:"receipt_id,omitempty"`
	Duplicate bool      `json:"duplicate,omitempty"`
	Variant   string    `json:"variant"`
	Lines     []lineOut `json:"lines"`
	Items     []itemOut `json:"items"`
}

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	var (
		store   = flag.Bool("store", false, "store the receipt and its inventory batches")
		dateStr = flag.String("date", "", "purchase date YYYY-MM-DD (default today)")
		userID  = flag.Int64("user", 0, "owner of the stored receipt")
	)
	flag.Parse()
	if flag.NArg() != 1 {
		logger.Error("usage", "cmd", "runocr [-store] [-date YYYY-MM-DD] [-user ID] <image>")
		os.Exit(2)
	}
	path := flag.Arg(0)

	opts := pipeline.Options{UserID: *userID, SourcePath: path}
	if *dateStr != "" {
		d, err := utils.ParseYMD(*dateStr)
		if err != nil {
			logger.Error("invalid -date, use YYYY-MM-DD", "value", *dateStr, "error", err)
			os.Exit(2)
		}
		opts.PurchaseDate = d
	}

	cfg, err := common.LoadConfig()
	if err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(2)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to start", "error", err)
		os.Exit(1)
	}
	defer a.Close(context.Background())

	start := time.Now()
	var res *pipeline.Result
	if *store {
		res, err = a.Processor.ProcessFile(ctx, path, opts)
	} else {
		var data []byte
		if data, err = a.Processor.LoadFile(ctx, path); err == nil {
			res, err = a.Processor.Recognize(ctx, data)
		}
	}
	stored := *store
	switch {
	case err != nil && res != nil:
		logger.Warn("receipt not stored, printing recognized items", "path", path, "error", err)
		stored = false
	case err != nil:
		logger.Error("receipt processing failed", "path", path, "error", err, "duration_ms", time.Since(start).Milliseconds())
		os.Exit(1)
	}

	out := output{ReceiptID: res.ReceiptID, Duplicate: res.Duplicate, Variant: res.Variant}
	for _, l := range res.Lines {
		out.Lines = append(out.Lines, lineOut{No: l.LineNumber, Text: l.Text, Confidence: l.AvgConfidence})
	}
	for _, it := range res.Items {
		io := itemOut{
			RawName:        it.Parsed.RawName,
			Price:          it.Parsed.Price.String(),
			NormalizedName: it.Normalized.NormalizedName,
			Method:         string(it.Normalized.Method),
			Confidence:     it.Normalized.Confidence,
			ProductID:      it.Normalized.Match.ProductID,
		}
		if it.ExpiryDate != nil {
			io.ExpiryDate = it.ExpiryDate.Format(time.DateOnly)
		}
		out.Items = append(out.Items, io)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(out); err != nil {
		logger.Error("write output", "error", err)
		os.Exit(1)
	}
	logger.Info("receipt processed",
		"variant", res.Variant,
		"lines", len(res.Lines),
		"items", len(res.Items),
		"stored", stored,
		"duration_ms", time.Since(start).Milliseconds(),
	)
}
