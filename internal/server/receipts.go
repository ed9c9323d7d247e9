package server

import (
	"context"
	"encoding/base64"
	"strings"
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
	"github.com/joseph-ayodele/pantry-receipts/internal/normalize"
	"github.com/joseph-ayodele/pantry-receipts/internal/pipeline"
	"github.com/joseph-ayodele/pantry-receipts/internal/recipe"
	"github.com/joseph-ayodele/pantry-receipts/internal/utils"
)

type processReceiptRequest struct {
	Path            string   `json:"path" validate:"required_without=ImageBase64"`
	ImageBase64     string   `json:"image_base64" validate:"omitempty,base64"`
	UserID          int64    `json:"user_id" validate:"gte=0"`
	PurchaseDate    string   `json:"purchase_date" validate:"omitempty,datetime=2006-01-02"`
	DryRun          bool     `json:"dry_run"`
	Recommend       bool     `json:"recommend"`
	LikedCategories []string `json:"liked_categories"`
}

type itemView struct {
	ReceiptItemID  int64   `json:"receipt_item_id,omitempty"`
	Line           string  `json:"line,omitempty"`
	RawName        string  `json:"raw_name"`
	Price          float64 `json:"price"`
	NormalizedName string  `json:"normalized_name"`
	Method         string  `json:"method"`
	Confidence     float64 `json:"confidence"`
	ProductID      *int64  `json:"product_id,omitempty"`
	CategoryID     *int    `json:"category_id,omitempty"`
	BatchID        *int64  `json:"batch_id,omitempty"`
	ShelfLifeDays  int     `json:"shelf_life_days,omitempty"`
	ExpiryDate     string  `json:"expiry_date,omitempty"`
}

type receiptView struct {
	ReceiptID       int64                   `json:"receipt_id,omitempty"`
	Duplicate       bool                    `json:"duplicate"`
	Variant         string                  `json:"variant,omitempty"`
	Lines           []string                `json:"lines,omitempty"`
	Items           []itemView              `json:"items"`
	Recommendations []recipe.Recommendation `json:"recommendations,omitempty"`
}

func toItemView(it pipeline.Item) itemView {
	v := itemView{
		ReceiptItemID:  it.ReceiptItemID,
		Line:           it.Parsed.OriginalLine,
		RawName:        it.Parsed.RawName,
		Price:          it.Parsed.Price.Float64(),
		NormalizedName: it.Normalized.NormalizedName,
		Method:         string(it.Normalized.Method),
		Confidence:     it.Normalized.Confidence,
		ProductID:      it.Normalized.Match.ProductID,
		CategoryID:     it.Normalized.Match.CategoryID,
		BatchID:        it.BatchID,
		ShelfLifeDays:  it.ShelfLifeDays,
	}
	if it.ExpiryDate != nil {
		v.ExpiryDate = it.ExpiryDate.Format(time.DateOnly)
	}
	return v
}

// ProcessReceipt runs one receipt image through the pipeline synchronously.
// With dry_run the result is not stored.
func (s *PantryServer) ProcessReceipt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req processReceiptRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	log := s.log(ctx)
	userID := s.user(ctx, req.UserID)

	opts := pipeline.Options{UserID: userID, SourcePath: strings.TrimSpace(req.Path)}
	if req.PurchaseDate != "" {
		d, err := utils.ParseYMD(req.PurchaseDate)
		if err != nil {
			return nil, common.InvalidArgumentErrorf("purchase_date invalid (YYYY-MM-DD): %v", err)
		}
		opts.PurchaseDate = d
	}

	var data []byte
	var err error
	if req.ImageBase64 != "" {
		if data, err = base64.StdEncoding.DecodeString(req.ImageBase64); err != nil {
			return nil, common.InvalidArgumentErrorf("image_base64: %v", err)
		}
	} else if data, err = s.deps.Processor.LoadFile(ctx, opts.SourcePath); err != nil {
		return nil, fail(log, "receipt.load.failed", common.WrapError(common.ErrInvalidInput, err.Error()), "path", opts.SourcePath)
	}

	var res *pipeline.Result
	if req.DryRun {
		res, err = s.deps.Processor.Recognize(ctx, data)
	} else {
		res, err = s.deps.Processor.ProcessImage(ctx, data, opts)
	}
	if err != nil {
		return nil, fail(log, "receipt.process.failed", err, "path", opts.SourcePath, "dry_run", req.DryRun)
	}

	out := receiptView{
		ReceiptID: res.ReceiptID,
		Duplicate: res.Duplicate,
		Variant:   res.Variant,
		Items:     make([]itemView, 0, len(res.Items)),
	}
	for _, l := range res.Lines {
		out.Lines = append(out.Lines, l.Text)
	}
	names := make([]string, 0, len(res.Items))
	for _, it := range res.Items {
		out.Items = append(out.Items, toItemView(it))
		names = append(names, it.Normalized.NormalizedName)
	}

	if req.Recommend && s.deps.Recommender != nil {
		prefs, err := s.preferences(ctx, userID, req.LikedCategories)
		if err != nil {
			return nil, fail(log, "receipt.preferences.failed", err, "user_id", userID)
		}
		out.Recommendations = s.deps.Recommender.FromReceipt(ctx, names, prefs)
	}

	log.Info("receipt.processed", "receipt_id", res.ReceiptID, "items", len(res.Items), "duplicate", res.Duplicate)
	return encode(out)
}

type receiptRequest struct {
	ReceiptID int64 `json:"receipt_id" validate:"required,gt=0"`
}

type storedReceiptView struct {
	Receipt entity.Receipt       `json:"receipt"`
	Lines   []entity.OCRLine     `json:"lines"`
	Items   []entity.ReceiptItem `json:"items"`
}

// GetReceipt returns a stored receipt with its OCR lines and items.
func (s *PantryServer) GetReceipt(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req receiptRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	q := s.deps.DB.Queries()
	r, err := q.GetReceipt(ctx, req.ReceiptID)
	if err != nil {
		return nil, fail(s.log(ctx), "receipt.get.failed", err, "receipt_id", req.ReceiptID)
	}
	lines, err := q.ListOCRLines(ctx, req.ReceiptID)
	if err != nil {
		return nil, fail(s.log(ctx), "receipt.lines.failed", err, "receipt_id", req.ReceiptID)
	}
	items, err := q.ListReceiptItems(ctx, req.ReceiptID)
	if err != nil {
		return nil, fail(s.log(ctx), "receipt.items.failed", err, "receipt_id", req.ReceiptID)
	}
	return encode(storedReceiptView{Receipt: r, Lines: lines, Items: items})
}

type correctItemRequest struct {
	ItemID         int64  `json:"item_id" validate:"required,gt=0"`
	NormalizedName string `json:"normalized_name" validate:"required"`
	ProductID      *int64 `json:"product_id" validate:"omitempty,gt=0"`
}

// CorrectItem stores a manual correction of a receipt item. Corrections are
// read back as labeled pairs the next time the learned layer is loaded. When
// a product is given the raw name is also learned as its alias.
func (s *PantryServer) CorrectItem(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	var req correctItemRequest
	if err := decode(in, &req); err != nil {
		return nil, err
	}
	log := s.log(ctx)
	name := strings.TrimSpace(req.NormalizedName)

	if err := s.deps.DB.Queries().CorrectReceiptItem(ctx, req.ItemID, name, req.ProductID); err != nil {
		return nil, fail(log, "receipt.correct.failed", err, "item_id", req.ItemID)
	}

	if s.deps.Normalizer != nil {
		if req.ProductID != nil {
			if err := s.learnAlias(ctx, req.ItemID, *req.ProductID); err != nil {
				log.Warn("receipt.correct.alias_failed", "item_id", req.ItemID, "error", err)
			}
		}
		if err := s.deps.Normalizer.Reload(ctx); err != nil {
			log.Warn("receipt.correct.reload_failed", "error", err)
		}
	}
	log.Info("receipt.corrected", "item_id", req.ItemID, "normalized_name", name)
	return encode(map[string]any{"item_id": req.ItemID, "normalized_name": name})
}

func (s *PantryServer) learnAlias(ctx context.Context, itemID, productID int64) error {
	q := s.deps.DB.Queries()
	it, err := q.GetReceiptItem(ctx, itemID)
	if err != nil {
		return err
	}
	return s.deps.Normalizer.LearnAlias(ctx, it.RawName, productID, normalize.ManualAliasConfidence)
}
