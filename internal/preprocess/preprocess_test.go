package preprocess

import (
	"errors"
	"image"
	"image/color"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/pantry-receipts/internal/common"
)

func blankGray(w, h int, v uint8) *image.Gray {
	g := image.NewGray(image.Rect(0, 0, w, h))
	for i := range g.Pix {
		g.Pix[i] = v
	}
	return g
}

// receiptLike draws dark horizontal "text rows" on a light background.
func receiptLike(w, h int) *image.Gray {
	g := blankGray(w, h, 230)
	for y := 20; y+6 < h; y += 24 {
		for dy := 0; dy < 6; dy++ {
			for x := 15; x < w-15; x++ {
				if (x/7)%3 != 0 {
					g.SetGray(x, y+dy, color.Gray{Y: 20})
				}
			}
		}
	}
	return g
}

// tiltedBand draws a dark band whose edges lean by deg from vertical.
func tiltedBand(w, h int, deg float64) *image.Gray {
	g := blankGray(w, h, 255)
	t := math.Tan(deg * math.Pi / 180)
	for y := 0; y < h; y++ {
		x0 := 100 + int(float64(y)*t)
		for x := x0; x < x0+25 && x < w; x++ {
			g.SetGray(x, y, color.Gray{Y: 0})
		}
	}
	return g
}

func TestEnhance_DecodeError(t *testing.T) {
	p := New(Config{}, nil)

	for _, in := range [][]byte{nil, []byte("definitely not an image")} {
		_, err := p.Enhance(in)
		require.Error(t, err)
		assert.True(t, errors.Is(err, common.ErrImageDecode))

		var de *ImageDecodeError
		assert.True(t, errors.As(err, &de))
	}
}

func TestEnhance_KeepsGeometryAndBinarizes(t *testing.T) {
	src := receiptLike(240, 200)
	data, err := EncodePNG(src)
	require.NoError(t, err)

	res, err := New(Config{}, nil).Enhance(data)
	require.NoError(t, err)

	assert.Equal(t, src.Bounds(), res.Image.Bounds())
	for _, v := range res.Image.Pix {
		require.True(t, v == 0 || v == 255, "pixel %d is not binary", v)
	}
	assert.False(t, res.Rotated)
}

func TestEstimateSkew_HorizontalRowsAreIgnored(t *testing.T) {
	p := New(Config{}, nil)
	assert.Equal(t, 0.0, p.estimateSkew(receiptLike(300, 300)))
}

func TestEstimateSkew_TiltedEdge(t *testing.T) {
	p := New(Config{}, nil)
	angle := p.estimateSkew(tiltedBand(300, 400, 3))
	assert.InDelta(t, -3.0, angle, 1.0)
}

func TestOtsuThreshold_Bimodal(t *testing.T) {
	g := blankGray(100, 100, 40)
	for y := 50; y < 100; y++ {
		for x := 0; x < 100; x++ {
			g.SetGray(x, y, color.Gray{Y: 200})
		}
	}
	th := otsuThreshold(g)
	assert.GreaterOrEqual(t, th, uint8(40))
	assert.Less(t, th, uint8(200))

	inv := thresholdInv(g, th)
	assert.Equal(t, uint8(255), inv.GrayAt(0, 0).Y)
	assert.Equal(t, uint8(0), inv.GrayAt(0, 99).Y)
}

func TestMorphOpen_RemovesSpeckle(t *testing.T) {
	g := blankGray(10, 10, 0)
	g.SetGray(5, 5, color.Gray{Y: 255})
	out := morphOpen(g, 2)
	assert.Equal(t, uint8(0), out.GrayAt(5, 5).Y)

	// a 3x3 block survives opening
	g2 := blankGray(10, 10, 0)
	for y := 3; y < 6; y++ {
		for x := 3; x < 6; x++ {
			g2.SetGray(x, y, color.Gray{Y: 255})
		}
	}
	assert.Equal(t, uint8(255), morphOpen(g2, 2).GrayAt(4, 4).Y)
}

func TestMorphClose_FillsPinhole(t *testing.T) {
	g := blankGray(10, 10, 255)
	g.SetGray(5, 5, color.Gray{Y: 0})
	assert.Equal(t, uint8(255), morphClose(g, 2).GrayAt(5, 5).Y)
}

func TestCLAHE_StretchesLowContrast(t *testing.T) {
	// every 8x8 tile holds the values 100..115 four times each
	g := blankGray(64, 64, 0)
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			g.SetGray(x, y, color.Gray{Y: uint8(100 + (x+8*y)%16)})
		}
	}
	out := clahe(g, 3.0, 8)

	lo, hi := uint8(255), uint8(0)
	for _, v := range out.Pix {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	assert.Greater(t, int(hi)-int(lo), 40)
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 0.0, median(nil))
	assert.Equal(t, 2.0, median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, median([]float64{4, 1, 2, 3}))
}
