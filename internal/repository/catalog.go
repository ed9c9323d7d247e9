package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
	"github.com/joseph-ayodele/pantry-receipts/internal/normalize"
)

// SeedCategories inserts the known food categories, skipping existing rows.
func (q *Queries) SeedCategories(ctx context.Context) error {
	for id, name := range constants.CategoryNames() {
		ib := q.b.Insert("categories").
			Columns("category_id", "name").
			Values(id, name).
			OnConflict(entsql.DoNothing())
		if _, err := q.exec(ctx, ib); err != nil {
			return fmt.Errorf("seed category %d: %w", id, err)
		}
	}
	return nil
}

func (q *Queries) ListCategories(ctx context.Context) ([]entity.Category, error) {
	rows, err := q.query(ctx, q.b.Select("category_id", "name").
		From(q.b.Table("categories")).
		OrderBy("category_id"))
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, q.logger)

	var out []entity.Category
	for rows.Next() {
		var c entity.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (q *Queries) CreateStorage(ctx context.Context, name string) (int64, error) {
	return q.insertID(ctx, q.b.Insert("storage").Columns("name").Values(name), "storage_id")
}

func (q *Queries) CreateProduct(ctx context.Context, p entity.Product) (int64, error) {
	ib := q.b.Insert("products").
		Columns("canonical_name", "canonical_name_en", "category_id", "default_storage_id").
		Values(p.CanonicalName, nullable(p.CanonicalNameEN), nullable(p.CategoryID), nullable(p.DefaultStorageID))
	id, err := q.insertID(ctx, ib, "product_id")
	if err != nil {
		q.logger.Error("failed to create product", "name", p.CanonicalName, "error", err)
		return 0, err
	}
	return id, nil
}

func (q *Queries) GetProduct(ctx context.Context, id int64) (entity.Product, error) {
	var (
		p       entity.Product
		nameEN  sql.NullString
		cat     sql.NullInt64
		storage sql.NullInt64
	)
	row := q.row(ctx, q.b.Select("product_id", "canonical_name", "canonical_name_en", "category_id", "default_storage_id").
		From(q.b.Table("products")).
		Where(entsql.EQ("product_id", id)))
	if err := scanOne(row, fmt.Sprintf("product %d", id), &p.ID, &p.CanonicalName, &nameEN, &cat, &storage); err != nil {
		return entity.Product{}, err
	}
	p.CanonicalNameEN = stringPtr(nameEN)
	p.CategoryID = intPtr(cat)
	p.DefaultStorageID = int64Ptr(storage)
	return p, nil
}

// ProductIDByName finds a product by its Turkish or English canonical name.
func (q *Queries) ProductIDByName(ctx context.Context, name string) (int64, error) {
	var id int64
	row := q.row(ctx, q.b.Select("product_id").
		From(q.b.Table("products")).
		Where(entsql.Or(entsql.EQ("canonical_name", name), entsql.EQ("canonical_name_en", name))).
		OrderBy("product_id").
		Limit(1))
	if err := scanOne(row, fmt.Sprintf("product %q", name), &id); err != nil {
		return 0, err
	}
	return id, nil
}

// CorpusEntries returns every product name and every alias, products first.
func (q *Queries) CorpusEntries(ctx context.Context) ([]normalize.CorpusEntry, error) {
	var out []normalize.CorpusEntry

	rows, err := q.query(ctx, q.b.Select("product_id", "canonical_name", "category_id").
		From(q.b.Table("products")).
		OrderBy("product_id"))
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var (
			e   normalize.CorpusEntry
			cat sql.NullInt64
		)
		if err := rows.Scan(&e.ProductID, &e.Text, &cat); err != nil {
			closeRows(rows, q.logger)
			return nil, err
		}
		e.Canonical = e.Text
		e.CategoryID = intPtr(cat)
		out = append(out, e)
	}
	closeRows(rows, q.logger)
	if err := rows.Err(); err != nil {
		return nil, err
	}

	a := q.b.Table("product_aliases")
	p := q.b.Table("products")
	rows, err = q.query(ctx, q.b.Select(a.C("alias_text"), p.C("product_id"), p.C("canonical_name"), p.C("category_id")).
		From(a).
		Join(p).On(a.C("product_id"), p.C("product_id")).
		OrderBy(a.C("alias_id")))
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, q.logger)
	for rows.Next() {
		var (
			e   normalize.CorpusEntry
			cat sql.NullInt64
		)
		if err := rows.Scan(&e.Text, &e.ProductID, &e.Canonical, &cat); err != nil {
			return nil, err
		}
		e.CategoryID = intPtr(cat)
		e.Alias = true
		out = append(out, e)
	}
	return out, rows.Err()
}

// InsertAlias adds alias for productID unless the alias text already exists.
// It reports whether a row was written.
func (q *Queries) InsertAlias(ctx context.Context, alias string, productID int64, confidence int, source string) (bool, error) {
	ib := q.b.Insert("product_aliases").
		Columns("product_id", "alias_text", "source", "confidence", "created_at").
		Values(productID, alias, source, confidence, time.Now().UTC()).
		OnConflict(entsql.ConflictColumns("alias_text"), entsql.DoNothing())
	res, err := q.exec(ctx, ib)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (q *Queries) ListAliases(ctx context.Context) ([]entity.Alias, error) {
	rows, err := q.query(ctx, q.b.Select("alias_id", "product_id", "alias_text", "source", "confidence", "created_at").
		From(q.b.Table("product_aliases")).
		OrderBy("alias_id"))
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, q.logger)

	var out []entity.Alias
	for rows.Next() {
		var a entity.Alias
		if err := rows.Scan(&a.ID, &a.ProductID, &a.AliasText, &a.Source, &a.Confidence, &a.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// UpsertTranslation stores or replaces a product name translation.
func (q *Queries) UpsertTranslation(ctx context.Context, productID int64, source, target, text string) error {
	ib := q.b.Insert("product_translations").
		Columns("product_id", "source_lang", "target_lang", "translated_text").
		Values(productID, source, target, text).
		OnConflict(
			entsql.ConflictColumns("product_id", "source_lang", "target_lang"),
			entsql.ResolveWithNewValues(),
		)
	_, err := q.exec(ctx, ib)
	return err
}

func (q *Queries) GetTranslation(ctx context.Context, productID int64, source, target string) (string, error) {
	var text string
	row := q.row(ctx, q.b.Select("translated_text").
		From(q.b.Table("product_translations")).
		Where(entsql.And(
			entsql.EQ("product_id", productID),
			entsql.EQ("source_lang", source),
			entsql.EQ("target_lang", target),
		)))
	if err := scanOne(row, "translation", &text); err != nil {
		return "", err
	}
	return text, nil
}

// ManualLabels returns reviewed (raw name, corrected name) pairs.
func (q *Queries) ManualLabels(ctx context.Context) ([]normalize.LabeledPair, error) {
	rows, err := q.query(ctx, q.b.Select("raw_name", "normalized_name").
		From(q.b.Table("receipt_items")).
		Where(entsql.EQ("is_manual_correction", constants.ManualCorrectionYes)).
		OrderBy("receipt_item_id"))
	if err != nil {
		return nil, err
	}
	defer closeRows(rows, q.logger)

	var out []normalize.LabeledPair
	for rows.Next() {
		var p normalize.LabeledPair
		if err := rows.Scan(&p.Raw, &p.Normalized); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Catalog adapts the store to the normalizer's corpus and label sources.
type Catalog struct {
	db     *DB
	logger *slog.Logger
}

func NewCatalog(db *DB, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}
	return &Catalog{db: db, logger: logger}
}

func (c *Catalog) LoadEntries(ctx context.Context) ([]normalize.CorpusEntry, error) {
	return c.db.Queries().CorpusEntries(ctx)
}

func (c *Catalog) LoadLabels(ctx context.Context) ([]normalize.LabeledPair, error) {
	return c.db.Queries().ManualLabels(ctx)
}

// UpsertAlias is atomic and idempotent; transient failures are retried.
func (c *Catalog) UpsertAlias(ctx context.Context, alias string, productID int64, confidence int) error {
	return c.db.InTx(ctx, func(q *Queries) error {
		inserted, err := q.InsertAlias(ctx, alias, productID, confidence, constants.AliasSourceOCR)
		if err != nil {
			return err
		}
		c.logger.Debug("catalog.alias.upsert", "alias", alias, "product_id", productID, "inserted", inserted)
		return nil
	})
}
