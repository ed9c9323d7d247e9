package entity

import "time"

// Product is a catalog entry that receipt items are normalized to.
type Product struct {
	ID               int64   `json:"id"`
	CanonicalName    string  `json:"canonical_name"`
	CanonicalNameEN  *string `json:"canonical_name_en,omitempty"`
	CategoryID       *int    `json:"category_id,omitempty"`
	DefaultStorageID *int64  `json:"default_storage_id,omitempty"`
}

// Alias is an observed spelling linked to a product.
type Alias struct {
	ID         int64     `json:"id"`
	ProductID  int64     `json:"product_id"`
	AliasText  string    `json:"alias_text"`
	Source     string    `json:"source"`
	Confidence int       `json:"confidence"`
	CreatedAt  time.Time `json:"created_at"`
}

// ShelfLifeRule maps a product or category in a storage/open state to days.
type ShelfLifeRule struct {
	ID         int64  `json:"id"`
	ProductID  *int64 `json:"product_id,omitempty"`
	CategoryID *int   `json:"category_id,omitempty"`
	StorageID  int64  `json:"storage_id"`
	OpenState  string `json:"open_state"`
	Days       int    `json:"days"`
}
