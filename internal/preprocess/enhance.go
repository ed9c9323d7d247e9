package preprocess

import (
	"image"
	"math"

	"github.com/anthonynsimon/bild/blur"
)

// clahe equalizes histograms per tile on a grid x grid layout, clipping each
// tile histogram at clipLimit times the uniform bin height, and bilinearly
// blends neighbouring tile mappings.
func clahe(g *image.Gray, clipLimit float64, grid int) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	if w == 0 || h == 0 {
		return out
	}
	tw := (w + grid - 1) / grid
	th := (h + grid - 1) / grid
	tilesX := (w + tw - 1) / tw
	tilesY := (h + th - 1) / th

	luts := make([][256]uint8, tilesX*tilesY)
	for ty := 0; ty < tilesY; ty++ {
		for tx := 0; tx < tilesX; tx++ {
			x0, y0 := tx*tw, ty*th
			x1, y1 := min(x0+tw, w), min(y0+th, h)
			luts[ty*tilesX+tx] = tileLUT(g, x0, y0, x1, y1, clipLimit)
		}
	}

	for y := 0; y < h; y++ {
		tyf := float64(y)/float64(th) - 0.5
		ty1 := int(math.Floor(tyf))
		ya := tyf - float64(ty1)
		ty2 := ty1 + 1
		ty1 = clampInt(ty1, 0, tilesY-1)
		ty2 = clampInt(ty2, 0, tilesY-1)
		src := g.Pix[y*g.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			txf := float64(x)/float64(tw) - 0.5
			tx1 := int(math.Floor(txf))
			xa := txf - float64(tx1)
			tx2 := tx1 + 1
			tx1 = clampInt(tx1, 0, tilesX-1)
			tx2 = clampInt(tx2, 0, tilesX-1)

			v := src[x]
			top := float64(luts[ty1*tilesX+tx1][v])*(1-xa) + float64(luts[ty1*tilesX+tx2][v])*xa
			bot := float64(luts[ty2*tilesX+tx1][v])*(1-xa) + float64(luts[ty2*tilesX+tx2][v])*xa
			dst[x] = uint8(clampInt(int(math.Round(top*(1-ya)+bot*ya)), 0, 255))
		}
	}
	return out
}

func tileLUT(g *image.Gray, x0, y0, x1, y1 int, clipLimit float64) [256]uint8 {
	var hist [256]int
	for y := y0; y < y1; y++ {
		row := g.Pix[y*g.Stride+x0 : y*g.Stride+x1]
		for _, v := range row {
			hist[v]++
		}
	}
	area := (x1 - x0) * (y1 - y0)

	clip := int(clipLimit * float64(area) / 256)
	if clip < 1 {
		clip = 1
	}
	excess := 0
	for i := range hist {
		if hist[i] > clip {
			excess += hist[i] - clip
			hist[i] = clip
		}
	}
	batch := excess / 256
	residual := excess - batch*256
	for i := range hist {
		hist[i] += batch
	}
	if residual > 0 {
		step := max(256/residual, 1)
		for i := 0; i < 256 && residual > 0; i += step {
			hist[i]++
			residual--
		}
	}

	var lut [256]uint8
	scale := 255.0 / float64(area)
	sum := 0
	for i := range hist {
		sum += hist[i]
		lut[i] = uint8(clampInt(int(math.Round(float64(sum)*scale)), 0, 255))
	}
	return lut
}

// adaptiveThreshold keeps a pixel white when it is brighter than its
// gaussian-weighted block x block neighbourhood mean minus c.
func adaptiveThreshold(g *image.Gray, block int, c float64) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	// bild's kernel length is ceil(2r+1)
	mean := blur.Gaussian(g, float64(block-1)/2)

	out := image.NewGray(image.Rect(0, 0, w, h))
	delta := int(math.Ceil(c))
	for y := 0; y < h; y++ {
		src := g.Pix[y*g.Stride:]
		m := mean.Pix[y*mean.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < w; x++ {
			if int(src[x])-int(m[x*4]) > -delta {
				dst[x] = 255
			}
		}
	}
	return out
}

// morphology with a k x k all-ones kernel anchored at (k/2, k/2).
// Pixels outside the image never win the min/max.
func morph(g *image.Gray, k int, dilate bool) *image.Gray {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	out := image.NewGray(image.Rect(0, 0, w, h))
	a := k / 2
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			var v uint8 = 255
			if dilate {
				v = 0
			}
			for ky := 0; ky < k; ky++ {
				sy := y + ky - a
				if sy < 0 || sy >= h {
					continue
				}
				for kx := 0; kx < k; kx++ {
					sx := x + kx - a
					if sx < 0 || sx >= w {
						continue
					}
					p := g.Pix[sy*g.Stride+sx]
					if dilate && p > v || !dilate && p < v {
						v = p
					}
				}
			}
			out.Pix[y*out.Stride+x] = v
		}
	}
	return out
}

func morphOpen(g *image.Gray, k int) *image.Gray {
	return morph(morph(g, k, false), k, true)
}

func morphClose(g *image.Gray, k int) *image.Gray {
	return morph(morph(g, k, true), k, false)
}
