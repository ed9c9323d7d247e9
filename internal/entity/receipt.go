package entity

import "time"

// Receipt represents a scanned receipt for data transfer between layers.
type Receipt struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	PurchaseDate time.Time `json:"purchase_date"`
	ImagePath    string    `json:"image_path"`
	OCREngine    string    `json:"ocr_engine"`
	OCRVersion   *string   `json:"ocr_version,omitempty"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
}

// ReceiptImage records the file a receipt was read from.
type ReceiptImage struct {
	ID         int64  `json:"id"`
	ReceiptID  int64  `json:"receipt_id"`
	FilePath   string `json:"file_path"`
	HashSHA256 string `json:"hash_sha256"`
}

// OCRLine is one line of the winning OCR variant.
type OCRLine struct {
	ReceiptID     int64    `json:"receipt_id"`
	LineNo        int      `json:"line_no"`
	RawText       string   `json:"raw_text"`
	OCRConfidence *float64 `json:"ocr_confidence,omitempty"`
	BlockType     string   `json:"block_type"`
}

// ReceiptItem is a parsed product line and its normalization.
type ReceiptItem struct {
	ID                      int64    `json:"id"`
	ReceiptID               int64    `json:"receipt_id"`
	LineText                string   `json:"line_text"`
	RawName                 string   `json:"raw_name"`
	NormalizedName          string   `json:"normalized_name"`
	NormalizationMethod     string   `json:"normalization_method"`
	Price                   *float64 `json:"price,omitempty"`
	ProductID               *int64   `json:"product_id,omitempty"`
	CategoryID              *int     `json:"category_id,omitempty"`
	NormalizationConfidence *float64 `json:"normalization_confidence,omitempty"`
	IsManualCorrection      string   `json:"is_manual_correction"`
}
