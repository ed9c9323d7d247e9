package ocr

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// LineParser reports how many of the given lines parse as product lines.
type LineParser interface {
	CountProducts(lines []string) int
}

// Image is one form of the receipt handed to the engine.
type Image struct {
	Name string // "enhanced" | "original"
	Data []byte
}

// Variant is the outcome of one engine pass over one image form.
type Variant struct {
	Name           string
	Lines          []RawLine
	MeanConfidence float64
	Products       int
	Err            error
}

// Score weights parseable product lines far above raw engine confidence.
func (v Variant) Score() float64 {
	return 3*float64(v.Products) + v.MeanConfidence/10
}

// SelectBest returns the index of the highest scoring variant that did not
// fail. Ties keep the earliest. It returns -1 when every variant failed.
func SelectBest(variants []Variant) int {
	best := -1
	for i, v := range variants {
		if v.Err != nil {
			continue
		}
		if best < 0 || v.Score() > variants[best].Score() {
			best = i
		}
	}
	return best
}

// Selection is the reconciled OCR result of one receipt.
type Selection struct {
	Best     Variant
	Variants []Variant
}

type Reconciler struct {
	engine   Engine
	parser   LineParser
	passes   []PassConfig
	parallel bool
	logger   *slog.Logger
}

type ReconcilerOption func(*Reconciler)

func WithPasses(passes ...PassConfig) ReconcilerOption {
	return func(r *Reconciler) {
		if len(passes) > 0 {
			r.passes = passes
		}
	}
}

// WithParallel runs the passes concurrently. Each pass writes only its own slot.
func WithParallel(on bool) ReconcilerOption {
	return func(r *Reconciler) { r.parallel = on }
}

func NewReconciler(engine Engine, parser LineParser, logger *slog.Logger, opts ...ReconcilerOption) *Reconciler {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Reconciler{
		engine: engine,
		parser: parser,
		passes: DefaultPasses(DefaultLang, 3),
		logger: logger,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// Reconcile runs every pass on every image (images first, passes second, in
// the order given) and picks the best variant. A failing pass is logged and
// contributes nothing. No lines at all is a valid, empty result; only context
// cancellation is returned as an error.
func (r *Reconciler) Reconcile(ctx context.Context, images ...Image) (Selection, error) {
	start := time.Now()
	type job struct {
		img  Image
		pass PassConfig
	}
	var jobs []job
	for _, img := range images {
		if len(img.Data) == 0 {
			continue
		}
		for _, p := range r.passes {
			jobs = append(jobs, job{img, p})
		}
	}

	variants := make([]Variant, len(jobs))
	run := func(ctx context.Context, i int) {
		j := jobs[i]
		variants[i] = r.runPass(ctx, j.img, j.pass)
	}

	if r.parallel {
		g, gctx := errgroup.WithContext(ctx)
		for i := range jobs {
			g.Go(func() error {
				run(gctx, i)
				return nil
			})
		}
		_ = g.Wait()
	} else {
		for i := range jobs {
			if ctx.Err() != nil {
				break
			}
			run(ctx, i)
		}
	}
	if err := ctx.Err(); err != nil {
		return Selection{Variants: variants}, err
	}

	sel := Selection{Variants: variants}
	if idx := SelectBest(variants); idx >= 0 {
		sel.Best = variants[idx]
	}
	r.logger.Info("ocr.reconcile.ok",
		"variants", len(variants),
		"best", sel.Best.Name,
		"lines", len(sel.Best.Lines),
		"products", sel.Best.Products,
		"score", sel.Best.Score(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return sel, nil
}

func (r *Reconciler) runPass(ctx context.Context, img Image, pass PassConfig) Variant {
	name := img.Name + "/" + pass.Name
	tokens, err := r.engine.Recognize(ctx, img.Data, pass)
	if err != nil {
		r.logger.Warn("ocr.pass.failed", "variant", name, "error", err)
		return Variant{Name: name, Err: err}
	}
	lines := AggregateLines(tokens)
	v := Variant{
		Name:           name,
		Lines:          lines,
		MeanConfidence: MeanConfidence(lines),
		Products:       r.parser.CountProducts(Texts(lines)),
	}
	r.logger.Debug("ocr.pass.ok", "variant", name, "lines", len(lines), "products", v.Products, "score", v.Score())
	return v
}
