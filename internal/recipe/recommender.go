package recipe

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/joseph-ayodele/pantry-receipts/internal/translate"
)

const (
	detailLimit          = 5
	inventoryIngredients = 15
	translatedUsed       = 3
)

// RecommenderConfig bounds a recommendation run.
type RecommenderConfig struct {
	MaxRecipes int
	MaxMissing int
}

// Recommender searches for recipes, personalizes the results and ranks them
// by how urgently they use owned products.
type Recommender struct {
	cfg        RecommenderConfig
	search     Searcher
	translator translate.Translator
	log        *slog.Logger
}

// NewRecommender defaults to ten recipes and eight missing ingredients.
func NewRecommender(cfg RecommenderConfig, search Searcher, translator translate.Translator, logger *slog.Logger) *Recommender {
	if logger == nil {
		logger = slog.Default()
	}
	if translator == nil {
		translator = translate.Noop{}
	}
	if cfg.MaxRecipes <= 0 {
		cfg.MaxRecipes = 10
	}
	if cfg.MaxMissing <= 0 {
		cfg.MaxMissing = DefaultMaxMissing
	}
	return &Recommender{cfg: cfg, search: search, translator: translator, log: logger}
}

// FromReceipt recommends recipes for the products on one receipt. Every
// ranked candidate is returned, including those that match nothing.
func (r *Recommender) FromReceipt(ctx context.Context, ingredients []string, prefs Preferences) []Recommendation {
	if len(ingredients) == 0 {
		return nil
	}
	candidates := r.candidates(ctx, ingredients, prefs)
	recs := Rank(candidates, FromReceipt(ingredients))
	return r.finish(ctx, recs, false)
}

// FromInventory recommends recipes for stocked products, searching with the
// most urgent ones. Candidates that match no product are dropped.
func (r *Recommender) FromInventory(ctx context.Context, products []OwnedProduct, prefs Preferences) []Recommendation {
	if len(products) == 0 {
		return nil
	}
	byPriority := slices.Clone(products)
	slices.SortStableFunc(byPriority, func(a, b OwnedProduct) int { return b.PriorityScore - a.PriorityScore })
	var ingredients []string
	for _, p := range byPriority {
		if len(ingredients) == inventoryIngredients {
			break
		}
		if p.NameEN != "" {
			ingredients = append(ingredients, p.NameEN)
		}
	}
	candidates := r.candidates(ctx, ingredients, prefs)
	recs := Rank(candidates, products)
	return r.finish(ctx, recs, true)
}

func (r *Recommender) candidates(ctx context.Context, ingredients []string, prefs Preferences) []Candidate {
	start := time.Now()
	found, err := r.search.Search(ctx, ingredients, r.cfg.MaxRecipes*2, prefs.Diets)
	if err != nil {
		r.log.Error("recipe.search_failed", "ingredients", len(ingredients), "error", err)
		return nil
	}
	kept := Personalize(found, prefs, ingredients, r.cfg.MaxMissing)
	out := make([]Candidate, 0, len(kept))
	for i, k := range kept {
		c := k.Candidate
		if i < detailLimit && c.ID > 0 {
			d, err := r.search.Details(ctx, c.ID)
			if err != nil {
				r.log.Warn("recipe.details_failed", "recipe_id", c.ID, "error", err)
			} else {
				c.ReadyInMinutes = d.ReadyInMinutes
				c.Servings = d.Servings
				c.SourceURL = d.SourceURL
				c.Instructions = d.Instructions
				c.Summary = d.Summary
			}
		}
		out = append(out, c)
	}
	r.log.Info("recipe.candidates",
		"found", len(found),
		"kept", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func (r *Recommender) finish(ctx context.Context, recs []Recommendation, matchedOnly bool) []Recommendation {
	out := make([]Recommendation, 0, min(len(recs), r.cfg.MaxRecipes))
	for _, rec := range recs {
		if len(out) == r.cfg.MaxRecipes {
			break
		}
		if matchedOnly && rec.Urgency == NoMatch {
			continue
		}
		if rec.SourceURL == "" && rec.ID > 0 {
			rec.SourceURL = recipePageBase + strconv.FormatInt(rec.ID, 10)
		}
		rec.TitleTR = r.translator.Translate(ctx, rec.Title, "en", "tr")
		rec.UsedTR = r.translateAll(ctx, rec.Used[:min(len(rec.Used), translatedUsed)])
		rec.MissingTR = r.translateAll(ctx, rec.EssentialMissing)
		out = append(out, rec)
	}
	return out
}

func (r *Recommender) translateAll(ctx context.Context, in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		out = append(out, r.translator.Translate(ctx, s, "en", "tr"))
	}
	return out
}
