package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
	"github.com/joseph-ayodele/pantry-receipts/internal/normalize"
	"github.com/joseph-ayodele/pantry-receipts/internal/ocr"
	"github.com/joseph-ayodele/pantry-receipts/internal/parser"
	"github.com/joseph-ayodele/pantry-receipts/internal/repository"
	"github.com/joseph-ayodele/pantry-receipts/internal/shelflife"
)

// parseStage parses the winning lines and normalizes every product name.
// Each parsed item gets exactly one normalization result.
func (p *Processor) parseStage(ctx context.Context, lines []ocr.RawLine) []Item {
	parsed := p.parser.ParseLines(ocr.Texts(lines))
	items := make([]Item, len(parsed.Items))
	for i, it := range parsed.Items {
		items[i] = Item{Parsed: it, Normalized: p.normalizer.Normalize(ctx, it.RawName)}
	}
	p.logger.Debug("pipeline.parse.ok", "items", len(items), "unparsed", parsed.Unparsed)
	return items
}

// translateLinked fetches English names of linked products ahead of the
// transaction. A failed translation comes back as the source text and is
// not stored.
func (p *Processor) translateLinked(ctx context.Context, items []Item) map[int64]string {
	out := make(map[int64]string)
	for _, it := range items {
		m := it.Normalized.Match
		if !m.Linked() {
			continue
		}
		if _, done := out[*m.ProductID]; done {
			continue
		}
		name := it.Normalized.NormalizedName
		if en := p.translator.Translate(ctx, name, "tr", "en"); en != "" && en != name {
			out[*m.ProductID] = en
		}
	}
	return out
}

func (p *Processor) persist(ctx context.Context, q *repository.Queries, res *Result, opts Options, translations map[int64]string) error {
	// A concurrent run may have stored the same image since the first check.
	if id, err := q.ReceiptByImageHash(ctx, res.ImageHash); err == nil {
		res.ReceiptID, res.Duplicate = id, true
		return nil
	}

	receiptID, err := q.CreateReceipt(ctx, entity.Receipt{
		UserID:       opts.UserID,
		PurchaseDate: opts.PurchaseDate,
		ImagePath:    opts.SourcePath,
		OCREngine:    constants.OCREngineTesseract,
		Status:       string(constants.ReceiptStatusParsed),
		CreatedAt:    time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	res.ReceiptID = receiptID

	if _, err := q.AddReceiptImage(ctx, entity.ReceiptImage{ReceiptID: receiptID, FilePath: opts.SourcePath, HashSHA256: res.ImageHash}); err != nil {
		return err
	}

	lines := make([]entity.OCRLine, len(res.Lines))
	for i, l := range res.Lines {
		lines[i] = entity.OCRLine{
			ReceiptID:     receiptID,
			LineNo:        l.LineNumber,
			RawText:       l.Text,
			OCRConfidence: round2(l.AvgConfidence),
			BlockType:     constants.OCRBlockTypeLine,
		}
	}
	if err := q.AddOCRLines(ctx, lines); err != nil {
		return err
	}

	resolver := shelflife.NewResolver(q, p.logger)
	for i := range res.Items {
		if err := p.persistItem(ctx, q, resolver, receiptID, opts, &res.Items[i]); err != nil {
			return err
		}
	}

	for productID, en := range translations {
		if err := q.UpsertTranslation(ctx, productID, "tr", "en", en); err != nil {
			return err
		}
	}
	return nil
}

func (p *Processor) persistItem(ctx context.Context, q *repository.Queries, resolver *shelflife.Resolver, receiptID int64, opts Options, it *Item) error {
	n := it.Normalized
	price := it.Parsed.Price.Float64()
	conf := n.Confidence
	row := entity.ReceiptItem{
		ReceiptID:               receiptID,
		LineText:                it.Parsed.OriginalLine,
		RawName:                 it.Parsed.RawName,
		NormalizedName:          n.NormalizedName,
		NormalizationMethod:     string(n.Method),
		Price:                   &price,
		ProductID:               n.Match.ProductID,
		CategoryID:              n.Match.CategoryID,
		NormalizationConfidence: &conf,
	}
	id, err := q.CreateReceiptItem(ctx, row)
	if err != nil {
		return err
	}
	it.ReceiptItemID = id

	if !n.Match.Linked() {
		return nil
	}
	productID := *n.Match.ProductID

	if _, err := q.InsertAlias(ctx, normalize.AliasKey(it.Parsed.RawName), productID, normalize.AliasConfidence(n), constants.AliasSourceOCR); err != nil {
		return err
	}

	product, err := q.GetProduct(ctx, productID)
	if err != nil {
		return err
	}
	storageID := p.cfg.DefaultStorageID
	if product.DefaultStorageID != nil {
		storageID = *product.DefaultStorageID
	}
	categoryID := n.Match.CategoryID
	if categoryID == nil {
		categoryID = product.CategoryID
	}

	days, src := resolver.ResolveOrDefault(ctx, shelflife.Query{
		ProductID:  &productID,
		CategoryID: categoryID,
		StorageID:  storageID,
		OpenState:  constants.OpenStateSealed,
	})
	var expiry *time.Time
	if days > 0 {
		e := opts.PurchaseDate.AddDate(0, 0, days)
		expiry = &e
	}

	batchID, err := q.CreateBatch(ctx, entity.InventoryBatch{
		UserID:             opts.UserID,
		ProductID:          productID,
		ReceiptItemID:      &id,
		Qty:                1,
		PurchaseDate:       opts.PurchaseDate,
		StorageID:          &storageID,
		ExpectedExpiryDate: expiry,
		Status:             constants.BatchStatusInStock,
		Source:             constants.BatchSourceReceipt,
	})
	if err != nil {
		return err
	}
	it.BatchID, it.ShelfLifeDays, it.ExpiryDate = &batchID, days, expiry
	p.logger.Debug("pipeline.batch.ok", "receipt_item_id", id, "product_id", productID, "days", days, "rule", src)
	return nil
}

// storedItem rebuilds an Item from a stored row for duplicate receipts.
func storedItem(row entity.ReceiptItem) Item {
	it := Item{
		ReceiptItemID: row.ID,
		Parsed:        parser.ParsedItem{RawName: row.RawName, OriginalLine: row.LineText},
		Normalized: normalize.NormalizationResult{
			NormalizedName: row.NormalizedName,
			Method:         normalize.Method(row.NormalizationMethod),
			OriginalText:   row.RawName,
			Match: normalize.ProductMatch{
				NormalizedName: row.NormalizedName,
				ProductID:      row.ProductID,
				CategoryID:     row.CategoryID,
			},
		},
	}
	if row.Price != nil {
		it.Parsed.Price = parser.Price(math.Round(*row.Price * 100))
	}
	if row.NormalizationConfidence != nil {
		it.Normalized.Confidence = *row.NormalizationConfidence
	}
	return it
}

func round2(v *float64) *float64 {
	if v == nil {
		return nil
	}
	r := math.Round(*v*100) / 100
	return &r
}
