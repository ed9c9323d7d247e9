// Package pipeline turns one receipt image into stored receipt lines, items,
// learned aliases and inventory batches.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/normalize"
	"github.com/joseph-ayodele/pantry-receipts/internal/ocr"
	"github.com/joseph-ayodele/pantry-receipts/internal/parser"
	"github.com/joseph-ayodele/pantry-receipts/internal/preprocess"
	"github.com/joseph-ayodele/pantry-receipts/internal/repository"
	"github.com/joseph-ayodele/pantry-receipts/internal/translate"
)

// Config holds the per-deployment defaults of the persist stage.
type Config struct {
	UserID           int64  // owner of receipts processed without one, default 1
	DefaultStorageID int64  // used when a product has no default storage, default 1
	HEICConverter    string // "heif-convert" | "magick" | "sips"
}

// Options describe one receipt.
type Options struct {
	UserID       int64
	PurchaseDate time.Time // zero means today
	SourcePath   string
}

// Item is one parsed product line and everything derived from it.
type Item struct {
	Parsed        parser.ParsedItem
	Normalized    normalize.NormalizationResult
	ReceiptItemID int64
	BatchID       *int64
	ShelfLifeDays int
	ExpiryDate    *time.Time
}

// Result describes a processed receipt. Duplicate is set when the image had
// been processed before; Items then come from storage.
type Result struct {
	ReceiptID int64
	Duplicate bool
	ImageHash string
	Variant   string
	Lines     []ocr.RawLine
	Items     []Item
}

// Processor coordinates OCR, parsing and normalization, then stores the
// outcome in one transaction.
type Processor struct {
	cfg        Config
	db         *repository.DB
	prep       *preprocess.Preprocessor
	reconciler *ocr.Reconciler
	parser     *parser.LineParser
	normalizer *normalize.Normalizer
	translator translate.Translator
	runner     ocr.Runner
	logger     *slog.Logger
}

func NewProcessor(
	cfg Config,
	db *repository.DB,
	prep *preprocess.Preprocessor,
	reconciler *ocr.Reconciler,
	lineParser *parser.LineParser,
	normalizer *normalize.Normalizer,
	translator translate.Translator,
	logger *slog.Logger,
) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.UserID == 0 {
		cfg.UserID = 1
	}
	if cfg.DefaultStorageID == 0 {
		cfg.DefaultStorageID = 1
	}
	if translator == nil {
		translator = translate.Noop{}
	}
	return &Processor{
		cfg:        cfg,
		db:         db,
		prep:       prep,
		reconciler: reconciler,
		parser:     lineParser,
		normalizer: normalizer,
		translator: translator,
		runner:     ocr.NewExecRunner(logger),
		logger:     logger,
	}
}

// ProcessFile reads an image from disk and processes it.
func (p *Processor) ProcessFile(ctx context.Context, path string, opts Options) (*Result, error) {
	data, err := p.LoadFile(ctx, path)
	if err != nil {
		return nil, err
	}
	if opts.SourcePath == "" {
		opts.SourcePath = path
	}
	return p.ProcessImage(ctx, data, opts)
}

// LoadFile reads an image from disk. HEIC photos are converted to PNG.
func (p *Processor) LoadFile(ctx context.Context, path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	if constants.NormalizeExt(filepath.Ext(path)) == "heic" {
		return ocr.ConvertHEIC(ctx, p.runner, p.cfg.HEICConverter, data)
	}
	return data, nil
}

// ProcessImage is the full flow for one receipt. An image whose sha256 is
// already stored is not processed again. When the persist transaction fails
// the recognized items are still returned next to the error, with every
// storage ID cleared.
func (p *Processor) ProcessImage(ctx context.Context, data []byte, opts Options) (*Result, error) {
	traceID := uuid.NewString()
	start := time.Now()
	if opts.UserID == 0 {
		opts.UserID = p.cfg.UserID
	}
	if opts.PurchaseDate.IsZero() {
		opts.PurchaseDate = time.Now()
	}
	opts.PurchaseDate = civilDay(opts.PurchaseDate)

	sum := sha256.Sum256(data)
	hash := hex.EncodeToString(sum[:])

	if res, ok, err := p.existing(ctx, hash); err != nil || ok {
		return res, err
	}

	rec, err := p.Recognize(ctx, data)
	if err != nil {
		p.logger.Error("pipeline.recognize.failed", "trace_id", traceID, "path", opts.SourcePath, "error", err)
		return nil, err
	}
	rec.ImageHash = hash
	translations := p.translateLinked(ctx, rec.Items)

	err = p.db.InTx(ctx, func(q *repository.Queries) error {
		return p.persist(ctx, q, rec, opts, translations)
	})
	if err != nil {
		p.logger.Error("pipeline.persist.failed", "trace_id", traceID, "path", opts.SourcePath, "items", len(rec.Items), "error", err)
		rec.unpersisted()
		return rec, fmt.Errorf("persist receipt: %w", err)
	}

	p.logger.Info("pipeline.receipt.ok",
		"trace_id", traceID,
		"receipt_id", rec.ReceiptID,
		"duplicate", rec.Duplicate,
		"variant", rec.Variant,
		"lines", len(rec.Lines),
		"items", len(rec.Items),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rec, nil
}

// Recognize runs preprocessing, OCR, parsing and normalization without
// touching storage.
func (p *Processor) Recognize(ctx context.Context, data []byte) (*Result, error) {
	lines, variant, err := p.ocrStage(ctx, data)
	if err != nil {
		return nil, err
	}
	return &Result{
		Variant: variant,
		Lines:   lines,
		Items:   p.parseStage(ctx, lines),
	}, nil
}

func (p *Processor) existing(ctx context.Context, hash string) (*Result, bool, error) {
	q := p.db.Queries()
	id, err := q.ReceiptByImageHash(ctx, hash)
	if errors.Is(err, common.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("lookup image hash: %w", err)
	}
	items, err := q.ListReceiptItems(ctx, id)
	if err != nil {
		return nil, false, fmt.Errorf("load receipt items: %w", err)
	}
	res := &Result{ReceiptID: id, Duplicate: true, ImageHash: hash}
	for _, it := range items {
		res.Items = append(res.Items, storedItem(it))
	}
	p.logger.Info("pipeline.receipt.duplicate", "receipt_id", id, "hash", hash)
	return res, true, nil
}

// unpersisted drops the IDs a rolled back transaction handed out.
func (r *Result) unpersisted() {
	r.ReceiptID, r.Duplicate = 0, false
	for i := range r.Items {
		it := &r.Items[i]
		it.ReceiptItemID, it.BatchID = 0, nil
		it.ShelfLifeDays, it.ExpiryDate = 0, nil
	}
}

func civilDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
