package repository

import (
	"context"
	"database/sql"
	"fmt"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
)

var receiptColumns = []string{"receipt_id", "user_id", "purchase_date", "image_path", "ocr_engine", "ocr_version", "status", "created_at"}

func scanReceipt(scan func(dest ...any) error) (entity.Receipt, error) {
	var (
		r       entity.Receipt
		version sql.NullString
	)
	if err := scan(&r.ID, &r.UserID, &r.PurchaseDate, &r.ImagePath, &r.OCREngine, &version, &r.Status, &r.CreatedAt); err != nil {
		return entity.Receipt{}, err
	}
	r.OCRVersion = stringPtr(version)
	return r, nil
}

func (q *Queries) CreateReceipt(ctx context.Context, r entity.Receipt) (int64, error) {
	ib := q.b.Insert("receipts").
		Columns("user_id", "purchase_date", "image_path", "ocr_engine", "ocr_version", "status", "created_at").
		Values(r.UserID, r.PurchaseDate, r.ImagePath, r.OCREngine, nullable(r.OCRVersion), r.Status, r.CreatedAt)
	id, err := q.insertID(ctx, ib, "receipt_id")
	if err != nil {
		q.logger.Error("failed to create receipt", "user_id", r.UserID, "error", err)
		return 0, err
	}
	return id, nil
}

func (q *Queries) GetReceipt(ctx context.Context, id int64) (entity.Receipt, error) {
	row := q.row(ctx, q.b.Select(receiptColumns...).
		From(q.b.Table("receipts")).
		Where(entsql.EQ("receipt_id", id)))
	r, err := scanReceipt(row.Scan)
	if err != nil {
		return entity.Receipt{}, scanErr(err, fmt.Sprintf("receipt %d", id))
	}
	return r, nil
}

// ListReceipts returns a user's receipts, newest first.
func (q *Queries) ListReceipts(ctx context.Context, userID int64, limit int) ([]entity.Receipt, error) {
	sel := q.b.Select(receiptColumns...).
		From(q.b.Table("receipts")).
		Where(entsql.EQ("user_id", userID)).
		OrderBy(entsql.Desc("receipt_id"))
	if limit > 0 {
		sel.Limit(limit)
	}
	rows, err := q.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, q.logger)

	var out []entity.Receipt
	for rows.Next() {
		r, err := scanReceipt(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// ReceiptByImageHash finds the receipt an image with this content was
// already processed into.
func (q *Queries) ReceiptByImageHash(ctx context.Context, hash string) (int64, error) {
	var id int64
	row := q.row(ctx, q.b.Select("receipt_id").
		From(q.b.Table("receipt_images")).
		Where(entsql.EQ("hash_sha256", hash)).
		Limit(1))
	if err := scanOne(row, "receipt image "+hash, &id); err != nil {
		return 0, err
	}
	return id, nil
}

func (q *Queries) AddReceiptImage(ctx context.Context, img entity.ReceiptImage) (int64, error) {
	ib := q.b.Insert("receipt_images").
		Columns("receipt_id", "file_path", "hash_sha256").
		Values(img.ReceiptID, img.FilePath, img.HashSHA256)
	return q.insertID(ctx, ib, "image_id")
}

// AddOCRLines writes all lines in one statement.
func (q *Queries) AddOCRLines(ctx context.Context, lines []entity.OCRLine) error {
	if len(lines) == 0 {
		return nil
	}
	ib := q.b.Insert("ocr_lines").Columns("receipt_id", "line_no", "raw_text", "ocr_confidence", "block_type")
	for _, l := range lines {
		block := l.BlockType
		if block == "" {
			block = constants.OCRBlockTypeLine
		}
		ib.Values(l.ReceiptID, l.LineNo, l.RawText, nullable(l.OCRConfidence), block)
	}
	_, err := q.exec(ctx, ib)
	return err
}

func (q *Queries) ListOCRLines(ctx context.Context, receiptID int64) ([]entity.OCRLine, error) {
	rows, err := q.query(ctx, q.b.Select("receipt_id", "line_no", "raw_text", "ocr_confidence", "block_type").
		From(q.b.Table("ocr_lines")).
		Where(entsql.EQ("receipt_id", receiptID)).
		OrderBy("line_no"))
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, q.logger)

	var out []entity.OCRLine
	for rows.Next() {
		var (
			l    entity.OCRLine
			conf sql.NullFloat64
		)
		if err := rows.Scan(&l.ReceiptID, &l.LineNo, &l.RawText, &conf, &l.BlockType); err != nil {
			return nil, err
		}
		l.OCRConfidence = float64Ptr(conf)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (q *Queries) CreateReceiptItem(ctx context.Context, it entity.ReceiptItem) (int64, error) {
	manual := it.IsManualCorrection
	if manual == "" {
		manual = constants.ManualCorrectionNo
	}
	ib := q.b.Insert("receipt_items").
		Columns("receipt_id", "line_text", "raw_name", "normalized_name", "normalization_method",
			"price", "normalized_product_id", "category_id", "normalization_confidence", "is_manual_correction").
		Values(it.ReceiptID, it.LineText, it.RawName, it.NormalizedName, it.NormalizationMethod,
			nullable(it.Price), nullable(it.ProductID), nullable(it.CategoryID), nullable(it.NormalizationConfidence), manual)
	return q.insertID(ctx, ib, "receipt_item_id")
}

// CorrectReceiptItem records a reviewed name for an item. Corrected items
// feed the learned normalization layer on the next reload.
func (q *Queries) CorrectReceiptItem(ctx context.Context, itemID int64, normalizedName string, productID *int64) error {
	ub := q.b.Update("receipt_items").
		Set("normalized_name", normalizedName).
		Set("is_manual_correction", constants.ManualCorrectionYes).
		Where(entsql.EQ("receipt_item_id", itemID))
	if productID != nil {
		ub.Set("normalized_product_id", *productID)
	}
	res, err := q.exec(ctx, ub)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return scanErr(sql.ErrNoRows, fmt.Sprintf("receipt item %d", itemID))
	}
	return nil
}

var receiptItemColumns = []string{"receipt_item_id", "receipt_id", "line_text", "raw_name", "normalized_name",
	"normalization_method", "price", "normalized_product_id", "category_id", "normalization_confidence", "is_manual_correction"}

func scanReceiptItem(scan func(dest ...any) error) (entity.ReceiptItem, error) {
	var (
		it      entity.ReceiptItem
		price   sql.NullFloat64
		product sql.NullInt64
		cat     sql.NullInt64
		conf    sql.NullFloat64
	)
	if err := scan(&it.ID, &it.ReceiptID, &it.LineText, &it.RawName, &it.NormalizedName,
		&it.NormalizationMethod, &price, &product, &cat, &conf, &it.IsManualCorrection); err != nil {
		return entity.ReceiptItem{}, err
	}
	it.Price = float64Ptr(price)
	it.ProductID = int64Ptr(product)
	it.CategoryID = intPtr(cat)
	it.NormalizationConfidence = float64Ptr(conf)
	return it, nil
}

func (q *Queries) GetReceiptItem(ctx context.Context, itemID int64) (entity.ReceiptItem, error) {
	row := q.row(ctx, q.b.Select(receiptItemColumns...).
		From(q.b.Table("receipt_items")).
		Where(entsql.EQ("receipt_item_id", itemID)))
	it, err := scanReceiptItem(row.Scan)
	if err != nil {
		return entity.ReceiptItem{}, scanErr(err, fmt.Sprintf("receipt item %d", itemID))
	}
	return it, nil
}

func (q *Queries) ListReceiptItems(ctx context.Context, receiptID int64) ([]entity.ReceiptItem, error) {
	rows, err := q.query(ctx, q.b.Select(receiptItemColumns...).
		From(q.b.Table("receipt_items")).
		Where(entsql.EQ("receipt_id", receiptID)).
		OrderBy("receipt_item_id"))
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, q.logger)

	var out []entity.ReceiptItem
	for rows.Next() {
		it, err := scanReceiptItem(rows.Scan)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}
