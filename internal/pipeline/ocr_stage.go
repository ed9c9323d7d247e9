package pipeline

import (
	"context"
	"fmt"

	"github.com/joseph-ayodele/pantry-receipts/internal/ocr"
	"github.com/joseph-ayodele/pantry-receipts/internal/preprocess"
)

// ocrStage enhances the image and reconciles the engine passes over the
// enhanced and original forms. An image that cannot be decoded fails the
// receipt; an image with no readable text yields no lines.
func (p *Processor) ocrStage(ctx context.Context, data []byte) ([]ocr.RawLine, string, error) {
	enhanced, err := p.prep.Enhance(data)
	if err != nil {
		return nil, "", err
	}
	encoded, err := preprocess.EncodePNG(enhanced.Image)
	if err != nil {
		return nil, "", fmt.Errorf("encode enhanced image: %w", err)
	}

	sel, err := p.reconciler.Reconcile(ctx,
		ocr.Image{Name: "enhanced", Data: encoded},
		ocr.Image{Name: "original", Data: data},
	)
	if err != nil {
		return nil, "", fmt.Errorf("ocr: %w", err)
	}
	if len(sel.Best.Lines) == 0 {
		p.logger.Warn("pipeline.ocr.empty", "variants", len(sel.Variants))
	}
	return sel.Best.Lines, sel.Best.Name, nil
}
