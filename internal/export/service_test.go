package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
	"github.com/joseph-ayodele/pantry-receipts/internal/recipe"
)

type stubInventory struct {
	rows   []entity.InventoryRow
	err    error
	status string
}

func (s *stubInventory) ListInventory(_ context.Context, _ int64, status string) ([]entity.InventoryRow, error) {
	s.status = status
	return s.rows, s.err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestExportPantryXLSX(t *testing.T) {
	expiry := date(2026, 3, 3)
	inv := &stubInventory{rows: []entity.InventoryRow{
		{
			InventoryBatch: entity.InventoryBatch{Qty: 1, PurchaseDate: date(2026, 2, 27), ExpectedExpiryDate: &expiry},
			NameTR:         "Süt",
			NameEN:         "Milk",
		},
		{
			InventoryBatch: entity.InventoryBatch{Qty: 2, PurchaseDate: date(2026, 2, 27)},
			NameTR:         "Pirinç",
			NameEN:         "Rice",
		},
	}}
	svc := NewService(inv, nil)
	svc.now = func() time.Time { return date(2026, 3, 1).Add(9 * time.Hour) }

	recs := []recipe.Recommendation{{
		Candidate:     recipe.Candidate{Title: "Rice Pudding", Used: []string{"milk", "rice"}, Missing: []string{"sugar"}, ReadyInMinutes: 40},
		TitleTR:       "Sütlaç",
		PriorityScore: 92.5,
		Urgency:       recipe.VeryUrgent,
	}}

	data, err := svc.ExportPantryXLSX(context.Background(), 1, recs)
	require.NoError(t, err)
	assert.Equal(t, constants.BatchStatusInStock, inv.status)

	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{inventorySheet, recommendationsSheet}, f.GetSheetList())

	rows, err := f.GetRows(inventorySheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Product", rows[0][0])
	assert.Equal(t, []string{"Süt", "Milk", "1", "2026-02-27", "2026-03-03", "2", "80", "urgent"}, rows[1])
	assert.Equal(t, "Pirinç", rows[2][0])
	assert.Equal(t, "2026-02-27", rows[2][3])

	rows, err = f.GetRows(recommendationsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Rice Pudding", rows[1][0])
	assert.Equal(t, "Sütlaç", rows[1][1])
	assert.Equal(t, "92.5", rows[1][2])
	assert.Equal(t, "very_urgent", rows[1][3])
	assert.Equal(t, "milk, rice", rows[1][4])
	assert.Equal(t, "sugar", rows[1][5])
}

func TestExportPantryXLSX_QueryError(t *testing.T) {
	svc := NewService(&stubInventory{err: errors.New("db down")}, nil)
	_, err := svc.ExportPantryXLSX(context.Background(), 1, nil)
	assert.ErrorContains(t, err, "db down")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab…", truncate("abcdef", 3))
	assert.Equal(t, "ği…", truncate("ğişö", 3))
}
