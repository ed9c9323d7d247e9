package recipe

import (
	"slices"
	"time"

	"github.com/joseph-ayodele/pantry-receipts/constants"
)

const (
	receiptDefaultDays   = 7
	inventoryDefaultDays = 30
)

// FromReceipt turns freshly bought product names into owned products. Earlier
// lines get a higher priority, never below 20.
func FromReceipt(names []string) []OwnedProduct {
	out := make([]OwnedProduct, 0, len(names))
	for i, n := range names {
		out = append(out, OwnedProduct{
			NameEN:        n,
			NameTR:        n,
			DaysRemaining: receiptDefaultDays,
			PriorityScore: max(20, 100-10*i),
		})
	}
	return out
}

// InventoryItem is a stocked batch joined with its product names.
type InventoryItem struct {
	NameEN             string
	NameTR             string
	Qty                float64
	Status             string
	ExpectedExpiryDate *time.Time
	RuleDays           *int
}

// FromInventory keeps batches that are in stock and not expired, most
// urgent first. Days remaining come from the expiry date, then the shelf-life
// rule, then a 30 day default.
func FromInventory(items []InventoryItem, now time.Time) []OwnedProduct {
	today := civilDate(now)
	out := make([]OwnedProduct, 0, len(items))
	for _, it := range items {
		if it.Status != constants.BatchStatusInStock || it.Qty <= 0 {
			continue
		}
		days := inventoryDefaultDays
		switch {
		case it.ExpectedExpiryDate != nil:
			days = DaysBetween(today, civilDate(*it.ExpectedExpiryDate))
			if days <= 0 {
				continue
			}
		case it.RuleDays != nil && *it.RuleDays > 0:
			days = *it.RuleDays
		}
		nameTR := it.NameTR
		if nameTR == "" {
			nameTR = it.NameEN
		}
		out = append(out, NewOwnedProduct(it.NameEN, nameTR, days))
	}
	slices.SortStableFunc(out, func(a, b OwnedProduct) int { return a.DaysRemaining - b.DaysRemaining })
	return out
}

// DaysBetween counts whole calendar days from a to b.
func DaysBetween(a, b time.Time) int {
	return int(civilDate(b).Sub(civilDate(a)).Hours() / 24)
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
