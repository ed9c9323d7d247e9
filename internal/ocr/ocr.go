// Package ocr wraps the OCR engine boundary and reconciles the output of
// several engine passes into a single ordered set of receipt lines.
package ocr

import (
	"context"
	"fmt"
)

// PageSegMode is tesseract's --psm value.
type PageSegMode int

const (
	PSMSingleColumn PageSegMode = 4  // single column of variable-size text
	PSMSingleBlock  PageSegMode = 6  // dense uniform block
	PSMSparseText   PageSegMode = 11 // scattered text, no order
)

// DefaultLang covers Turkish receipts with English product names.
const DefaultLang = "tur+eng"

// PassConfig is one engine configuration.
type PassConfig struct {
	Name string
	PSM  PageSegMode
	Lang string
	OEM  int
}

// DefaultPasses returns the dense, column and sparse configurations in the
// order they are tried.
func DefaultPasses(lang string, oem int) []PassConfig {
	if lang == "" {
		lang = DefaultLang
	}
	modes := []PageSegMode{PSMSingleBlock, PSMSingleColumn, PSMSparseText}
	out := make([]PassConfig, len(modes))
	for i, m := range modes {
		out[i] = PassConfig{Name: fmt.Sprintf("psm%d", m), PSM: m, Lang: lang, OEM: oem}
	}
	return out
}

// Token is one recognised word. Confidence is 0..100, or negative when the
// engine did not report one.
type Token struct {
	Text       string
	Confidence float64
	Block      int
	Paragraph  int
	Line       int
}

// Engine runs OCR on encoded image bytes under one configuration.
type Engine interface {
	Recognize(ctx context.Context, img []byte, pass PassConfig) ([]Token, error)
}

// RawLine is one aggregated OCR line. AvgConfidence is nil when none of its
// tokens carried a confidence.
type RawLine struct {
	LineNumber    int
	Text          string
	AvgConfidence *float64
}

// Texts returns the line texts in order.
func Texts(lines []RawLine) []string {
	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.Text
	}
	return out
}
