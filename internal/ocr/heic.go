package ocr

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
)

// ConvertHEIC turns a HEIC/HEIF photo into PNG bytes with an external converter.
// converter: "heif-convert" | "magick" | "sips"
func ConvertHEIC(ctx context.Context, r Runner, converter string, data []byte) ([]byte, error) {
	tmpDir, err := os.MkdirTemp("", "pantry-heic-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(tmpDir)

	in := filepath.Join(tmpDir, "page.heic")
	out := filepath.Join(tmpDir, "page.png")
	if err := os.WriteFile(in, data, 0o600); err != nil {
		return nil, err
	}

	switch converter {
	case "heif-convert":
		if _, errb, err := r.Run(ctx, "heif-convert", in, out); err != nil {
			return nil, fmt.Errorf("heif-convert failed: %w: %s", err, truncate(string(errb), 512))
		}
	case "magick", "":
		if _, errb, err := r.Run(ctx, "magick", in, out); err != nil {
			return nil, fmt.Errorf("magick convert failed: %w: %s", err, truncate(string(errb), 512))
		}
	case "sips":
		if _, errb, err := r.Run(ctx, "sips", "-s", "format", "png", in, "--out", out); err != nil {
			return nil, fmt.Errorf("sips convert failed: %w: %s", err, truncate(string(errb), 512))
		}
	default:
		return nil, fmt.Errorf("HEIC not supported: converter must be one of heif-convert | magick | sips")
	}

	png, err := os.ReadFile(out)
	if err != nil {
		return nil, fmt.Errorf("HEIC conversion produced no output: %w", err)
	}
	return png, nil
}
