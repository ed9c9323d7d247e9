package entity

import "time"

// InventoryBatch is a stocked quantity of one product.
type InventoryBatch struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	ProductID          int64      `json:"product_id"`
	ReceiptItemID      *int64     `json:"receipt_item_id,omitempty"`
	Qty                float64    `json:"qty"`
	PurchaseDate       time.Time  `json:"purchase_date"`
	StorageID          *int64     `json:"storage_id,omitempty"`
	ExpectedExpiryDate *time.Time `json:"expected_expiry_date,omitempty"`
	OpenedAt           *time.Time `json:"opened_at,omitempty"`
	Status             string     `json:"status"`
	Source             string     `json:"source"`
}

// InventoryRow is a batch joined with its product names for display and
// recipe ranking.
type InventoryRow struct {
	InventoryBatch
	NameTR     string `json:"name_tr"`
	NameEN     string `json:"name_en"`
	CategoryID *int   `json:"category_id,omitempty"`
}

// Preferences is a user's personalization settings.
type Preferences struct {
	Allergies []string `json:"allergies"`
	Dislikes  []string `json:"dislikes"`
	Diets     []string `json:"diets"`
}
