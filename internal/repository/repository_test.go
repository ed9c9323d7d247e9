package repository

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/common"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "pantry.db")
	db, err := Open(context.Background(), Config{Driver: DriverSQLite, DSN: dsn}, nil)
	require.NoError(t, err)
	t.Cleanup(db.Close)
	require.NoError(t, db.Migrate(context.Background()))
	return db
}

func strPtr(s string) *string { return &s }
func catPtr(c int) *int { return &c }

func seedProduct(t *testing.T, q *Queries, name, nameEN string, cat int) int64 {
	t.Helper()
	p := entity.Product{CanonicalName: name, CategoryID: catPtr(cat)}
	if nameEN != "" {
		p.CanonicalNameEN = strPtr(nameEN)
	}
	id, err := q.CreateProduct(context.Background(), p)
	require.NoError(t, err)
	return id
}

func TestSQLiteDSN(t *testing.T) {
	assert.Equal(t, "file:pantry.db?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN(""))
	assert.Equal(t, "file:x.db?mode=rwc&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)", sqliteDSN("file:x.db?mode=rwc"))
	assert.Equal(t, "file:x.db?_pragma=busy_timeout(100)&_pragma=foreign_keys(1)", sqliteDSN("file:x.db?_pragma=busy_timeout(100)"))
}

func TestMigrateTwice(t *testing.T) {
	db := openTestDB(t)
	require.NoError(t, db.Migrate(context.Background()))
	require.NoError(t, db.HealthCheck(context.Background(), time.Second))
}

func TestCatalog(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	q := db.Queries()

	require.NoError(t, q.SeedCategories(ctx))
	require.NoError(t, q.SeedCategories(ctx))
	cats, err := q.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, cats, len(constants.CategoryNames()))

	milk := seedProduct(t, q, "Süt", "Milk", 20)
	p, err := q.GetProduct(ctx, milk)
	require.NoError(t, err)
	assert.Equal(t, "Süt", p.CanonicalName)
	require.NotNil(t, p.CanonicalNameEN)
	assert.Equal(t, "Milk", *p.CanonicalNameEN)
	assert.Nil(t, p.DefaultStorageID)

	_, err = q.GetProduct(ctx, 999)
	assert.ErrorIs(t, err, common.ErrNotFound)

	id, err := q.ProductIDByName(ctx, "Milk")
	require.NoError(t, err)
	assert.Equal(t, milk, id)

	t.Run("alias insert is idempotent", func(t *testing.T) {
		cat := NewCatalog(db, nil)
		require.NoError(t, cat.UpsertAlias(ctx, "sut 1l", milk, 80))
		require.NoError(t, cat.UpsertAlias(ctx, "sut 1l", milk, 40))

		aliases, err := q.ListAliases(ctx)
		require.NoError(t, err)
		require.Len(t, aliases, 1)
		assert.Equal(t, 80, aliases[0].Confidence)
		assert.Equal(t, constants.AliasSourceOCR, aliases[0].Source)

		inserted, err := q.InsertAlias(ctx, "sut 1l", milk, 10, constants.AliasSourceOCR)
		require.NoError(t, err)
		assert.False(t, inserted)
	})

	t.Run("corpus lists products then aliases", func(t *testing.T) {
		entries, err := NewCatalog(db, nil).LoadEntries(ctx)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, "Süt", entries[0].Text)
		assert.False(t, entries[0].Alias)
		assert.Equal(t, "sut 1l", entries[1].Text)
		assert.Equal(t, "Süt", entries[1].Canonical)
		assert.True(t, entries[1].Alias)
		require.NotNil(t, entries[1].CategoryID)
		assert.Equal(t, 20, *entries[1].CategoryID)
	})

	t.Run("translations upsert", func(t *testing.T) {
		require.NoError(t, q.UpsertTranslation(ctx, milk, "tr", "en", "Milk"))
		require.NoError(t, q.UpsertTranslation(ctx, milk, "tr", "en", "Whole milk"))
		text, err := q.GetTranslation(ctx, milk, "tr", "en")
		require.NoError(t, err)
		assert.Equal(t, "Whole milk", text)

		_, err = q.GetTranslation(ctx, milk, "tr", "de")
		assert.ErrorIs(t, err, common.ErrNotFound)
	})
}

func TestShelfLifeRules(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	q := db.Queries()
	require.NoError(t, q.SeedCategories(ctx))

	fridge, err := q.CreateStorage(ctx, "fridge")
	require.NoError(t, err)
	milk := seedProduct(t, q, "Süt", "", 20)

	_, err = q.CreateShelfLifeRule(ctx, entity.ShelfLifeRule{ProductID: &milk, StorageID: fridge, OpenState: "sealed", Days: 5})
	require.NoError(t, err)
	_, err = q.CreateShelfLifeRule(ctx, entity.ShelfLifeRule{CategoryID: catPtr(20), StorageID: fridge, OpenState: "opened", Days: 3})
	require.NoError(t, err)

	days, ok, err := q.ProductRule(ctx, milk, fridge, constants.OpenStateSealed)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 5, days)

	_, ok, err = q.ProductRule(ctx, milk, fridge, constants.OpenStateOpened)
	require.NoError(t, err)
	assert.False(t, ok)

	days, ok, err = q.CategoryRule(ctx, 20, fridge, constants.OpenStateOpened)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 3, days)

	_, ok, err = q.CategoryRule(ctx, 20, fridge+1, constants.OpenStateOpened)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReceiptsInTx(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	purchased := time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC)

	var receiptID int64
	err := db.InTx(ctx, func(q *Queries) error {
		var err error
		receiptID, err = q.CreateReceipt(ctx, entity.Receipt{
			UserID:       1,
			PurchaseDate: purchased,
			ImagePath:    "/in/r1.jpg",
			OCREngine:    constants.OCREngineTesseract,
			Status:       string(constants.ReceiptStatusParsed),
			CreatedAt:    time.Now().UTC(),
		})
		if err != nil {
			return err
		}
		if _, err := q.AddReceiptImage(ctx, entity.ReceiptImage{ReceiptID: receiptID, FilePath: "/in/r1.jpg", HashSHA256: "abc"}); err != nil {
			return err
		}
		conf := 0.91
		if err := q.AddOCRLines(ctx, []entity.OCRLine{
			{ReceiptID: receiptID, LineNo: 2, RawText: "EKMEK 7,50"},
			{ReceiptID: receiptID, LineNo: 1, RawText: "SUT 1L 24,90", OCRConfidence: &conf},
		}); err != nil {
			return err
		}
		_, err = q.CreateReceiptItem(ctx, entity.ReceiptItem{
			ReceiptID:           receiptID,
			LineText:            "SUT 1L 24,90",
			RawName:             "SUT 1L",
			NormalizedName:      "Süt",
			NormalizationMethod: "fuzzy_match",
		})
		return err
	})
	require.NoError(t, err)

	q := db.Queries()
	got, err := q.ReceiptByImageHash(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, receiptID, got)
	_, err = q.ReceiptByImageHash(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	r, err := q.GetReceipt(ctx, receiptID)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-04", r.PurchaseDate.UTC().Format("2006-01-02"))
	assert.Nil(t, r.OCRVersion)

	lines, err := q.ListOCRLines(ctx, receiptID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	assert.Equal(t, "SUT 1L 24,90", lines[0].RawText)
	require.NotNil(t, lines[0].OCRConfidence)
	assert.InDelta(t, 0.91, *lines[0].OCRConfidence, 1e-9)
	assert.Equal(t, constants.OCRBlockTypeLine, lines[1].BlockType)

	items, err := q.ListReceiptItems(ctx, receiptID)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, constants.ManualCorrectionNo, items[0].IsManualCorrection)
	assert.Nil(t, items[0].ProductID)

	t.Run("manual corrections become labels", func(t *testing.T) {
		require.NoError(t, q.CorrectReceiptItem(ctx, items[0].ID, "Süt 1 L", nil))
		labels, err := NewCatalog(db, nil).LoadLabels(ctx)
		require.NoError(t, err)
		require.Len(t, labels, 1)
		assert.Equal(t, "SUT 1L", labels[0].Raw)
		assert.Equal(t, "Süt 1 L", labels[0].Normalized)

		assert.ErrorIs(t, q.CorrectReceiptItem(ctx, 999, "x", nil), common.ErrNotFound)
	})

	t.Run("failed unit of work leaves nothing", func(t *testing.T) {
		boom := errors.New("boom")
		err := db.InTx(ctx, func(q *Queries) error {
			if _, err := q.CreateReceipt(ctx, entity.Receipt{UserID: 2, PurchaseDate: purchased, CreatedAt: purchased, Status: "parsed"}); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		list, err := q.ListReceipts(ctx, 2, 0)
		require.NoError(t, err)
		assert.Empty(t, list)
	})

	t.Run("duplicate image hash is rejected", func(t *testing.T) {
		_, err := q.AddReceiptImage(ctx, entity.ReceiptImage{ReceiptID: receiptID, FilePath: "/in/copy.jpg", HashSHA256: "abc"})
		require.Error(t, err)
		assert.False(t, IsTransient(err))
	})
}

func TestListInventory(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	q := db.Queries()
	require.NoError(t, q.SeedCategories(ctx))

	milk := seedProduct(t, q, "Süt", "Milk", 20)
	bread := seedProduct(t, q, "Ekmek", "", 18)
	cheese := seedProduct(t, q, "Peynir", "", 7)
	require.NoError(t, q.UpsertTranslation(ctx, cheese, "tr", "en", "Cheese"))

	day := func(d int) *time.Time {
		v := time.Date(2026, 1, d, 0, 0, 0, 0, time.UTC)
		return &v
	}
	purchased := *day(1)
	for _, b := range []entity.InventoryBatch{
		{UserID: 1, ProductID: bread, Qty: 1, PurchaseDate: purchased},
		{UserID: 1, ProductID: cheese, Qty: 1, PurchaseDate: purchased, ExpectedExpiryDate: day(20)},
		{UserID: 1, ProductID: milk, Qty: 2, PurchaseDate: purchased, ExpectedExpiryDate: day(6)},
		{UserID: 2, ProductID: milk, Qty: 1, PurchaseDate: purchased},
	} {
		_, err := q.CreateBatch(ctx, b)
		require.NoError(t, err)
	}

	rows, err := q.ListInventory(ctx, 1, constants.BatchStatusInStock)
	require.NoError(t, err)
	require.Len(t, rows, 3)

	names := make([]string, len(rows))
	for i, r := range rows {
		names[i] = fmt.Sprintf("%s/%s", r.NameTR, r.NameEN)
	}
	assert.Equal(t, []string{"Süt/Milk", "Peynir/Cheese", "Ekmek/Ekmek"}, names)
	assert.Equal(t, constants.BatchSourceReceipt, rows[0].Source)
	require.NotNil(t, rows[0].CategoryID)
	assert.Equal(t, 20, *rows[0].CategoryID)

	require.NoError(t, q.UpdateBatchStatus(ctx, rows[0].ID, "consumed"))
	rows, err = q.ListInventory(ctx, 1, constants.BatchStatusInStock)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	all, err := q.ListInventory(ctx, 1, "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	assert.ErrorIs(t, q.UpdateBatchStatus(ctx, 999, "consumed"), common.ErrNotFound)
}

func TestPreferences(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	seedProduct(t, db.Queries(), "Mantar", "Mushroom", 1)

	err := db.InTx(ctx, func(q *Queries) error {
		return q.SetPreferences(ctx, 7, entity.Preferences{
			Allergies: []string{"peanut", " peanut ", "gluten"},
			Dislikes:  []string{"Mushroom", "Unknown"},
			Diets:     []string{"vegetarian"},
		})
	})
	require.NoError(t, err)

	prefs, err := db.Queries().GetPreferences(ctx, 7)
	require.NoError(t, err)
	assert.Equal(t, []string{"gluten", "peanut"}, prefs.Allergies)
	assert.Equal(t, []string{"Mantar"}, prefs.Dislikes)
	assert.Equal(t, []string{"vegetarian"}, prefs.Diets)

	err = db.InTx(ctx, func(q *Queries) error {
		return q.SetPreferences(ctx, 7, entity.Preferences{Diets: []string{"vegan"}})
	})
	require.NoError(t, err)
	prefs, err = db.Queries().GetPreferences(ctx, 7)
	require.NoError(t, err)
	assert.Empty(t, prefs.Allergies)
	assert.Empty(t, prefs.Dislikes)
	assert.Equal(t, []string{"vegan"}, prefs.Diets)
}

func TestInTxRetries(t *testing.T) {
	ctx := context.Background()
	db := openTestDB(t)
	old := retryBackoff
	retryBackoff = time.Millisecond
	t.Cleanup(func() { retryBackoff = old })

	t.Run("transient then success", func(t *testing.T) {
		calls := 0
		err := db.InTx(ctx, func(*Queries) error {
			calls++
			if calls <= MaxRetries {
				return &pgconn.PgError{Code: "40001"}
			}
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, MaxRetries+1, calls)
	})

	t.Run("gives up after max retries", func(t *testing.T) {
		calls := 0
		err := db.InTx(ctx, func(*Queries) error {
			calls++
			return &pgconn.PgError{Code: "40P01"}
		})
		assert.ErrorIs(t, err, common.ErrTransientStorage)
		assert.Equal(t, MaxRetries+1, calls)
	})

	t.Run("permanent error is not retried", func(t *testing.T) {
		calls := 0
		err := db.InTx(ctx, func(*Queries) error {
			calls++
			return &pgconn.PgError{Code: "23505"}
		})
		require.Error(t, err)
		assert.False(t, errors.Is(err, common.ErrTransientStorage))
		assert.Equal(t, 1, calls)
	})
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(&pgconn.PgError{Code: "08006"}))
	assert.True(t, IsTransient(fmt.Errorf("wrapped: %w", common.ErrTransientStorage)))
	assert.False(t, IsTransient(&pgconn.PgError{Code: "22001"}))
	assert.False(t, IsTransient(errors.New("plain")))
	assert.False(t, IsTransient(nil))
}
