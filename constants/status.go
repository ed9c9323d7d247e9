package constants

// JobStatus is the lifecycle of a queued receipt job.
type JobStatus string

const (
	JobStatusQueued  JobStatus = "QUEUED"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusParsed  JobStatus = "PARSED"
	JobStatusFailed  JobStatus = "FAILED"
)

// ReceiptStatus is stored on the receipts row (lowercase, as persisted).
type ReceiptStatus string

const (
	ReceiptStatusParsed ReceiptStatus = "parsed"
)

// OpenState is the sealed/opened/cooked condition used by shelf-life rules.
type OpenState string

const (
	OpenStateSealed OpenState = "sealed"
	OpenStateOpened OpenState = "opened"
	OpenStateCooked OpenState = "cooked"
)

// ParseOpenState returns OpenStateSealed for anything unrecognised.
func ParseOpenState(s string) OpenState {
	switch OpenState(s) {
	case OpenStateOpened, OpenStateCooked:
		return OpenState(s)
	default:
		return OpenStateSealed
	}
}

// Inventory batch values.
const (
	BatchStatusInStock   = "in_stock"
	BatchStatusConsumed  = "consumed"
	BatchStatusDiscarded = "discarded"
	BatchSourceReceipt   = "receipt"
	AliasSourceOCR       = "OCR"
	OCREngineTesseract   = "tesseract"
	OCRBlockTypeLine     = "line"
	ManualCorrectionNo   = "N"
	ManualCorrectionYes  = "Y"
)
