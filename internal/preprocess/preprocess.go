// Package preprocess turns a photographed receipt into a single-channel
// bitmap tuned for OCR: deskew, local contrast equalization, adaptive
// binarization and a light speckle cleanup. No resizing or blurring of the
// output is done so glyph geometry is preserved.
package preprocess

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"log/slog"
	"math"
	"time"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/pantry-receipts/internal/common"
)

// Config tunes each step. Zero values take the defaults in New.
type Config struct {
	CannyLow      float64 // 50
	CannyHigh     float64 // 150
	HoughVotes    int     // 120
	HoughMaxLines int     // 50
	SkewRejectDeg float64 // 20: angles in [20,160] are not text lines
	MinSkewDeg    float64 // 0.5
	ClipLimit     float64 // 3.0
	TileGrid      int     // 8
	BlockSize     int     // 41
	ThresholdC    float64 // 11
	MorphKernel   int     // 2
}

// Result is the enhanced bitmap and the skew that was corrected.
type Result struct {
	Image   *image.Gray
	SkewDeg float64
	Rotated bool
}

// ImageDecodeError is returned when the input bytes are not a decodable image.
type ImageDecodeError struct {
	Err error
}

func (e *ImageDecodeError) Error() string {
	return fmt.Sprintf("decode image: %v", e.Err)
}

func (e *ImageDecodeError) Unwrap() []error {
	return []error{common.ErrImageDecode, e.Err}
}

type Preprocessor struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Preprocessor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.CannyLow <= 0 {
		cfg.CannyLow = 50
	}
	if cfg.CannyHigh <= 0 {
		cfg.CannyHigh = 150
	}
	if cfg.HoughVotes <= 0 {
		cfg.HoughVotes = 120
	}
	if cfg.HoughMaxLines <= 0 {
		cfg.HoughMaxLines = 50
	}
	if cfg.SkewRejectDeg <= 0 {
		cfg.SkewRejectDeg = 20
	}
	if cfg.MinSkewDeg <= 0 {
		cfg.MinSkewDeg = 0.5
	}
	if cfg.ClipLimit <= 0 {
		cfg.ClipLimit = 3.0
	}
	if cfg.TileGrid <= 0 {
		cfg.TileGrid = 8
	}
	if cfg.BlockSize <= 1 {
		cfg.BlockSize = 41
	}
	if cfg.ThresholdC == 0 {
		cfg.ThresholdC = 11
	}
	if cfg.MorphKernel <= 0 {
		cfg.MorphKernel = 2
	}
	return &Preprocessor{cfg: cfg, logger: logger}
}

// Decode reads any registered image format and honours EXIF orientation.
func Decode(data []byte) (image.Image, error) {
	if len(data) == 0 {
		return nil, &ImageDecodeError{Err: fmt.Errorf("empty input")}
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, &ImageDecodeError{Err: err}
	}
	return img, nil
}

// Enhance runs the full pipeline on encoded image bytes.
func (p *Preprocessor) Enhance(data []byte) (*Result, error) {
	start := time.Now()
	img, err := Decode(data)
	if err != nil {
		return nil, err
	}
	gray := Grayscale(img)

	angle := p.estimateSkew(gray)
	rotated := false
	if math.Abs(angle) > p.cfg.MinSkewDeg {
		gray = rotate(gray, angle)
		rotated = true
	}

	eq := clahe(gray, p.cfg.ClipLimit, p.cfg.TileGrid)
	bin := adaptiveThreshold(eq, p.cfg.BlockSize, p.cfg.ThresholdC)
	out := morphClose(morphOpen(bin, p.cfg.MorphKernel), p.cfg.MorphKernel)

	b := out.Bounds()
	p.logger.Debug("preprocess.ok",
		"width", b.Dx(),
		"height", b.Dy(),
		"skew_deg", angle,
		"rotated", rotated,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return &Result{Image: out, SkewDeg: angle, Rotated: rotated}, nil
}

// EncodePNG serialises a bitmap for engines that take encoded bytes.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// Grayscale converts to an 8-bit single channel image anchored at (0,0).
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}
	nrgba := imaging.Grayscale(img)
	b := nrgba.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			dst[x] = src[x*4]
		}
	}
	return out
}

// rotate turns the bitmap counter-clockwise by deg around its centre and
// keeps the original canvas size. Uncovered corners are filled with paper white.
func rotate(g *image.Gray, deg float64) *image.Gray {
	b := g.Bounds()
	r := imaging.Rotate(g, deg, color.White)
	return Grayscale(imaging.CropCenter(r, b.Dx(), b.Dy()))
}
