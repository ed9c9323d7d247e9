package repository

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
)

func (q *Queries) CreateBatch(ctx context.Context, b entity.InventoryBatch) (int64, error) {
	status, source := b.Status, b.Source
	if status == "" {
		status = constants.BatchStatusInStock
	}
	if source == "" {
		source = constants.BatchSourceReceipt
	}
	ib := q.b.Insert("inventory_batches").
		Columns("user_id", "product_id", "receipt_item_id", "qty", "purchase_date",
			"storage_id", "expected_expiry_date", "opened_at", "status", "source").
		Values(b.UserID, b.ProductID, nullable(b.ReceiptItemID), b.Qty, b.PurchaseDate,
			nullable(b.StorageID), nullable(b.ExpectedExpiryDate), nullable(b.OpenedAt), status, source)
	id, err := q.insertID(ctx, ib, "batch_id")
	if err != nil {
		q.logger.Error("failed to create inventory batch", "product_id", b.ProductID, "error", err)
		return 0, err
	}
	return id, nil
}

func (q *Queries) GetBatch(ctx context.Context, batchID int64) (entity.InventoryBatch, error) {
	var (
		b       entity.InventoryBatch
		itemID  sql.NullInt64
		storage sql.NullInt64
		expiry  sql.NullTime
		opened  sql.NullTime
	)
	row := q.row(ctx, q.b.Select("batch_id", "user_id", "product_id", "receipt_item_id", "qty",
		"purchase_date", "storage_id", "expected_expiry_date", "opened_at", "status", "source").
		From(q.b.Table("inventory_batches")).
		Where(entsql.EQ("batch_id", batchID)))
	err := scanOne(row, fmt.Sprintf("inventory batch %d", batchID),
		&b.ID, &b.UserID, &b.ProductID, &itemID, &b.Qty,
		&b.PurchaseDate, &storage, &expiry, &opened, &b.Status, &b.Source)
	if err != nil {
		return entity.InventoryBatch{}, err
	}
	b.ReceiptItemID = int64Ptr(itemID)
	b.StorageID = int64Ptr(storage)
	b.ExpectedExpiryDate = timePtr(expiry)
	b.OpenedAt = timePtr(opened)
	return b, nil
}

// ListInventory returns a user's batches with product names, soonest expiry
// first. An empty status lists every batch. The English name prefers the
// product's own, then a stored translation, then the Turkish name.
func (q *Queries) ListInventory(ctx context.Context, userID int64, status string) ([]entity.InventoryRow, error) {
	b := q.b.Table("inventory_batches")
	p := q.b.Table("products")
	t := q.b.Table("product_translations")

	where := entsql.EQ(b.C("user_id"), userID)
	if status != "" {
		where = entsql.And(where, entsql.EQ(b.C("status"), status))
	}
	translation := entsql.And(
		entsql.ColumnsEQ(t.C("product_id"), p.C("product_id")),
		entsql.EQ(t.C("source_lang"), "tr"),
		entsql.EQ(t.C("target_lang"), "en"),
	)
	sel := q.b.Select(
		b.C("batch_id"), b.C("user_id"), b.C("product_id"), b.C("receipt_item_id"), b.C("qty"),
		b.C("purchase_date"), b.C("storage_id"), b.C("expected_expiry_date"), b.C("opened_at"),
		b.C("status"), b.C("source"),
		p.C("canonical_name"), p.C("canonical_name_en"), p.C("category_id"), t.C("translated_text"),
	).
		From(b).
		Join(p).On(b.C("product_id"), p.C("product_id")).
		LeftJoin(t).OnP(translation).
		Where(where).
		OrderBy(b.C("batch_id"))

	rows, err := q.query(ctx, sel)
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, q.logger)

	var out []entity.InventoryRow
	for rows.Next() {
		var (
			r          entity.InventoryRow
			itemID     sql.NullInt64
			storage    sql.NullInt64
			expiry     sql.NullTime
			opened     sql.NullTime
			nameEN     sql.NullString
			cat        sql.NullInt64
			translated sql.NullString
		)
		if err := rows.Scan(&r.ID, &r.UserID, &r.ProductID, &itemID, &r.Qty,
			&r.PurchaseDate, &storage, &expiry, &opened, &r.Status, &r.Source,
			&r.NameTR, &nameEN, &cat, &translated); err != nil {
			return nil, err
		}
		r.ReceiptItemID = int64Ptr(itemID)
		r.StorageID = int64Ptr(storage)
		r.ExpectedExpiryDate = timePtr(expiry)
		r.OpenedAt = timePtr(opened)
		r.CategoryID = intPtr(cat)
		switch {
		case nameEN.Valid && nameEN.String != "":
			r.NameEN = nameEN.String
		case translated.Valid && translated.String != "":
			r.NameEN = translated.String
		default:
			r.NameEN = r.NameTR
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	sortByExpiry(out)
	return out, nil
}

func (q *Queries) UpdateBatchStatus(ctx context.Context, batchID int64, status string) error {
	res, err := q.exec(ctx, q.b.Update("inventory_batches").
		Set("status", status).
		Where(entsql.EQ("batch_id", batchID)))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return scanErr(sql.ErrNoRows, fmt.Sprintf("inventory batch %d", batchID))
	}
	return nil
}

// OpenBatch marks a batch opened and sets its new expiry.
func (q *Queries) OpenBatch(ctx context.Context, batchID int64, openedAt time.Time, expiry *time.Time) error {
	res, err := q.exec(ctx, q.b.Update("inventory_batches").
		Set("opened_at", openedAt).
		Set("expected_expiry_date", nullable(expiry)).
		Where(entsql.EQ("batch_id", batchID)))
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return scanErr(sql.ErrNoRows, fmt.Sprintf("inventory batch %d", batchID))
	}
	return nil
}

func sortByExpiry(rows []entity.InventoryRow) {
	slices.SortStableFunc(rows, func(a, b entity.InventoryRow) int {
		switch {
		case a.ExpectedExpiryDate == nil && b.ExpectedExpiryDate == nil:
			return 0
		case a.ExpectedExpiryDate == nil:
			return 1
		case b.ExpectedExpiryDate == nil:
			return -1
		}
		return a.ExpectedExpiryDate.Compare(*b.ExpectedExpiryDate)
	})
}
