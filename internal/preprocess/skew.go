package preprocess

import (
	"image"
	"math"
	"sort"
)

// estimateSkew votes for dominant straight lines on the inverted Otsu mask
// and returns the median of the near-axis angles, mapped into (-20, 20).
func (p *Preprocessor) estimateSkew(g *image.Gray) float64 {
	mask := thresholdInv(g, otsuThreshold(g))
	edges := canny(mask, p.cfg.CannyLow, p.cfg.CannyHigh)
	lines := houghLines(edges, p.cfg.HoughVotes)
	if len(lines) > p.cfg.HoughMaxLines {
		lines = lines[:p.cfg.HoughMaxLines]
	}

	lo, hi := p.cfg.SkewRejectDeg, 180-p.cfg.SkewRejectDeg
	var angles []float64
	for _, l := range lines {
		deg := l.theta * 180 / math.Pi
		if deg < lo || deg > hi {
			if deg > 90 {
				deg -= 180
			}
			angles = append(angles, deg)
		}
	}
	return median(angles)
}

func median(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	n := len(s)
	if n%2 == 1 {
		return s[n/2]
	}
	return (s[n/2-1] + s[n/2]) / 2
}

// otsuThreshold picks the level maximising between-class variance.
func otsuThreshold(g *image.Gray) uint8 {
	var hist [256]int
	b := g.Bounds()
	for y := 0; y < b.Dy(); y++ {
		row := g.Pix[y*g.Stride : y*g.Stride+b.Dx()]
		for _, v := range row {
			hist[v]++
		}
	}
	total := float64(b.Dx() * b.Dy())
	var sum float64
	for i, c := range hist {
		sum += float64(i * c)
	}

	var sumB, wB, maxVar float64
	best := 0
	for t := 0; t < 256; t++ {
		wB += float64(hist[t])
		if wB == 0 {
			continue
		}
		wF := total - wB
		if wF == 0 {
			break
		}
		sumB += float64(t * hist[t])
		mB := sumB / wB
		mF := (sum - sumB) / wF
		v := wB * wF * (mB - mF) * (mB - mF)
		if v > maxVar {
			maxVar = v
			best = t
		}
	}
	return uint8(best)
}

// thresholdInv maps pixels above t to 0 and the rest to 255.
func thresholdInv(g *image.Gray, t uint8) *image.Gray {
	b := g.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := 0; y < b.Dy(); y++ {
		src := g.Pix[y*g.Stride:]
		dst := out.Pix[y*out.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if src[x] <= t {
				dst[x] = 255
			}
		}
	}
	return out
}

// edgeMap is a row-major binary edge image.
type edgeMap struct {
	w, h int
	on   []bool
}

// canny is a 3x3 Sobel, L1-magnitude Canny detector with hysteresis.
func canny(g *image.Gray, low, high float64) edgeMap {
	b := g.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < 3 || h < 3 {
		return edgeMap{w: w, h: h, on: make([]bool, w*h)}
	}
	px := func(x, y int) int {
		x = clampInt(x, 0, w-1)
		y = clampInt(y, 0, h-1)
		return int(g.Pix[y*g.Stride+x])
	}

	dx := make([]int, w*h)
	dy := make([]int, w*h)
	mag := make([]int, w*h)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			gx := -px(x-1, y-1) + px(x+1, y-1) - 2*px(x-1, y) + 2*px(x+1, y) - px(x-1, y+1) + px(x+1, y+1)
			gy := -px(x-1, y-1) - 2*px(x, y-1) - px(x+1, y-1) + px(x-1, y+1) + 2*px(x, y+1) + px(x+1, y+1)
			i := y*w + x
			dx[i], dy[i] = gx, gy
			mag[i] = absInt(gx) + absInt(gy)
		}
	}
	at := func(x, y int) int {
		if x < 0 || y < 0 || x >= w || y >= h {
			return 0
		}
		return mag[y*w+x]
	}

	const (
		tan22 = 0.41421356237
		tan67 = 2.41421356237
	)
	const (
		none = iota
		weak
		strong
	)
	state := make([]uint8, w*h)
	var stack []int
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			i := y*w + x
			m := mag[i]
			if float64(m) <= low {
				continue
			}
			ax, ay := math.Abs(float64(dx[i])), math.Abs(float64(dy[i]))
			var keep bool
			switch {
			case ay <= ax*tan22:
				keep = m > at(x-1, y) && m >= at(x+1, y)
			case ay >= ax*tan67:
				keep = m > at(x, y-1) && m >= at(x, y+1)
			default:
				s := 1
				if (dx[i] < 0) != (dy[i] < 0) {
					s = -1
				}
				keep = m > at(x-s, y-1) && m > at(x+s, y+1)
			}
			if !keep {
				continue
			}
			if float64(m) > high {
				state[i] = strong
				stack = append(stack, i)
			} else {
				state[i] = weak
			}
		}
	}

	edges := make([]bool, w*h)
	for len(stack) > 0 {
		i := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if edges[i] {
			continue
		}
		edges[i] = true
		x, y := i%w, i/w
		for oy := -1; oy <= 1; oy++ {
			for ox := -1; ox <= 1; ox++ {
				nx, ny := x+ox, y+oy
				if nx < 0 || ny < 0 || nx >= w || ny >= h {
					continue
				}
				j := ny*w + nx
				if state[j] == weak && !edges[j] {
					state[j] = strong
					stack = append(stack, j)
				}
			}
		}
	}
	return edgeMap{w: w, h: h, on: edges}
}

type houghLine struct {
	rho   float64
	theta float64
	votes int
}

// houghLines is the standard (rho, theta) transform at 1px / 1 degree
// resolution. Peaks must beat votes and be local maxima; the result is
// ordered by descending vote count.
func houghLines(e edgeMap, votes int) []houghLine {
	w, h := e.w, e.h
	if w == 0 || h == 0 {
		return nil
	}
	const numAngle = 180
	numRho := (w+h)*2 + 1
	offset := (numRho - 1) / 2

	cosT := make([]float64, numAngle)
	sinT := make([]float64, numAngle)
	for n := 0; n < numAngle; n++ {
		t := float64(n) * math.Pi / 180
		cosT[n], sinT[n] = math.Cos(t), math.Sin(t)
	}

	stride := numRho + 2
	acc := make([]int, (numAngle+2)*stride)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if !e.on[y*w+x] {
				continue
			}
			for n := 0; n < numAngle; n++ {
				r := int(math.RoundToEven(float64(x)*cosT[n]+float64(y)*sinT[n])) + offset
				acc[(n+1)*stride+r+1]++
			}
		}
	}

	type peak struct{ idx, n, r int }
	var peaks []peak
	for n := 0; n < numAngle; n++ {
		for r := 0; r < numRho; r++ {
			base := (n+1)*stride + r + 1
			v := acc[base]
			if v > votes && v > acc[base-1] && v >= acc[base+1] && v > acc[base-stride] && v >= acc[base+stride] {
				peaks = append(peaks, peak{idx: base, n: n, r: r})
			}
		}
	}
	sort.SliceStable(peaks, func(i, j int) bool {
		vi, vj := acc[peaks[i].idx], acc[peaks[j].idx]
		if vi != vj {
			return vi > vj
		}
		return peaks[i].idx < peaks[j].idx
	})

	out := make([]houghLine, len(peaks))
	for i, pk := range peaks {
		out[i] = houghLine{
			rho:   float64(pk.r - offset),
			theta: float64(pk.n) * math.Pi / 180,
			votes: acc[pk.idx],
		}
	}
	return out
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
