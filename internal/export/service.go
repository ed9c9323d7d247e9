package export

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/pantry-receipts/constants"
	"github.com/joseph-ayodele/pantry-receipts/internal/entity"
	"github.com/joseph-ayodele/pantry-receipts/internal/recipe"
)

const (
	inventorySheet       = "Inventory"
	recommendationsSheet = "Recommendations"
)

// InventoryLister is the read side the export needs. *repository.Queries
// satisfies it.
type InventoryLister interface {
	ListInventory(ctx context.Context, userID int64, status string) ([]entity.InventoryRow, error)
}

// Service produces XLSX bytes for pantry exports.
type Service struct {
	inventory InventoryLister
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(inventory InventoryLister, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{inventory: inventory, logger: logger, now: time.Now}
}

// ExportPantryXLSX returns a workbook with the user's in-stock inventory,
// most urgent first, and the given recommendations on a second sheet. recs
// may be empty, in which case the second sheet only has headers.
func (s *Service) ExportPantryXLSX(ctx context.Context, userID int64, recs []recipe.Recommendation) ([]byte, error) {
	start := time.Now()

	rows, err := s.inventory.ListInventory(ctx, userID, constants.BatchStatusInStock)
	if err != nil {
		return nil, fmt.Errorf("query inventory: %w", err)
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("close workbook error", "error", err)
		}
	}()

	// The default sheet is renamed rather than left empty.
	if err := f.SetSheetName(f.GetSheetName(0), inventorySheet); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(recommendationsSheet); err != nil {
		return nil, err
	}
	f.SetActiveSheet(0)

	if err := s.writeInventory(f, rows); err != nil {
		return nil, err
	}
	if err := writeRecommendations(f, recs); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	s.logger.Info("export.xlsx.ok",
		"user_id", userID,
		"inventory_rows", len(rows),
		"recommendations", len(recs),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

func (s *Service) writeInventory(f *excelize.File, rows []entity.InventoryRow) error {
	headers := []string{
		"Product",
		"Product (EN)",
		"Quantity",
		"Purchase Date",
		"Expiry Date",
		"Days Remaining",
		"Priority",
		"Urgency",
	}
	if err := writeHeader(f, inventorySheet, headers); err != nil {
		return err
	}

	today := s.now()
	for i, r := range rows {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(inventorySheet, cell, v)
		}
		write(1, r.NameTR)
		write(2, r.NameEN)
		write(3, r.Qty)
		write(4, r.PurchaseDate.Format(time.DateOnly))
		if r.ExpectedExpiryDate == nil {
			// Unknown shelf life: leave the date columns empty.
			write(5, "")
			write(6, "")
			write(7, "")
			write(8, "")
			continue
		}
		days := recipe.DaysBetween(today, *r.ExpectedExpiryDate)
		write(5, r.ExpectedExpiryDate.Format(time.DateOnly))
		write(6, days)
		write(7, recipe.PriorityScore(days))
		write(8, string(recipe.ProductUrgency(days)))
	}

	_ = f.SetColWidth(inventorySheet, "A", "B", 28) // names
	_ = f.SetColWidth(inventorySheet, "C", "C", 10)
	_ = f.SetColWidth(inventorySheet, "D", "E", 14) // dates
	_ = f.SetColWidth(inventorySheet, "F", "H", 14)
	return nil
}

func writeRecommendations(f *excelize.File, recs []recipe.Recommendation) error {
	headers := []string{
		"Recipe",
		"Recipe (TR)",
		"Score",
		"Urgency",
		"Uses",
		"Missing",
		"Ready In (min)",
		"Source",
	}
	if err := writeHeader(f, recommendationsSheet, headers); err != nil {
		return err
	}

	for i, r := range recs {
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(recommendationsSheet, cell, v)
		}
		write(1, r.Title)
		write(2, r.TitleTR)
		write(3, r.PriorityScore)
		write(4, string(r.Urgency))
		write(5, strings.Join(r.Used, ", "))
		write(6, truncate(strings.Join(r.Missing, ", "), 140))
		write(7, r.ReadyInMinutes)
		write(8, r.SourceURL)
	}

	_ = f.SetColWidth(recommendationsSheet, "A", "B", 36)
	_ = f.SetColWidth(recommendationsSheet, "C", "D", 12)
	_ = f.SetColWidth(recommendationsSheet, "E", "F", 48)
	_ = f.SetColWidth(recommendationsSheet, "H", "H", 60) // url
	return nil
}

func writeHeader(f *excelize.File, sheet string, headers []string) error {
	for i, h := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, h); err != nil {
			return err
		}
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if n <= 0 || len(r) <= n {
		return s
	}
	if n <= 1 {
		return string(r[:n])
	}
	return string(r[:n-1]) + "…"
}
