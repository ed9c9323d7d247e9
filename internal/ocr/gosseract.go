//go:build gosseract

package ocr

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"
)

// Gosseract runs recognition in-process through libtesseract. It needs cgo
// and the tesseract headers, so it is only built with -tags gosseract.
type Gosseract struct {
	tessdataDir string
}

func NewGosseract(tessdataDir string) *Gosseract {
	return &Gosseract{tessdataDir: tessdataDir}
}

func (g *Gosseract) Recognize(ctx context.Context, img []byte, pass PassConfig) ([]Token, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if g.tessdataDir != "" {
		if err := client.SetTessdataPrefix(g.tessdataDir); err != nil {
			return nil, fmt.Errorf("set tessdata: %w", err)
		}
	}
	if err := client.SetLanguage(pass.Lang); err != nil {
		return nil, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PageSegMode(pass.PSM)); err != nil {
		return nil, fmt.Errorf("set psm: %w", err)
	}
	if err := client.SetImageFromBytes(img); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return nil, fmt.Errorf("recognize %s: %w", pass.Name, err)
	}
	tokens := make([]Token, 0, len(boxes))
	for _, b := range boxes {
		tokens = append(tokens, Token{
			Text:       b.Word,
			Confidence: b.Confidence,
			Block:      b.BlockNum,
			Paragraph:  b.ParNum,
			Line:       b.LineNum,
		})
	}
	return tokens, nil
}

func init() {
	engineFactories["gosseract"] = func(cfg EngineConfig, _ *slog.Logger) Engine {
		return NewGosseract(cfg.TessdataDir)
	}
}
