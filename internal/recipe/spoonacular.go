package recipe

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	maxSearchIngredients = 10
	recipePageBase       = "https://spoonacular.com/recipes/"
)

var reHTMLTag = regexp.MustCompile(`<[^>]+>`)

// ErrNoAPIKey is returned when the search client has no credentials.
var ErrNoAPIKey = errors.New("recipe search api key not configured")

// SearchConfig configures the Spoonacular client.
type SearchConfig struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
	Burst      int
}

// Searcher finds candidate recipes for a set of ingredients.
type Searcher interface {
	Search(ctx context.Context, ingredients []string, number int, diets []string) ([]Candidate, error)
	Details(ctx context.Context, id int64) (Details, error)
}

// Details is the subset of recipe information merged into a candidate.
type Details struct {
	ReadyInMinutes int
	Servings       int
	SourceURL      string
	Summary        string
	Instructions   string
}

// Client talks to the Spoonacular recipes API.
type Client struct {
	cfg     SearchConfig
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// NewClient fills defaults and builds a rate limited client.
func NewClient(cfg SearchConfig, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.spoonacular.com"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 1
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		log:     logger,
	}
}

// Search calls findByIngredients with at most ten ingredients, ranking by
// fewest missing ingredients.
func (c *Client) Search(ctx context.Context, ingredients []string, number int, diets []string) ([]Candidate, error) {
	if c.cfg.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if len(ingredients) > maxSearchIngredients {
		ingredients = ingredients[:maxSearchIngredients]
	}
	params := url.Values{}
	params.Set("ingredients", strings.Join(ingredients, ","))
	params.Set("number", strconv.Itoa(number))
	params.Set("ranking", "2")
	params.Set("ignorePantry", "false")
	if len(diets) > 0 {
		params.Set("diet", strings.Join(diets, ","))
	}

	raw, err := c.get(ctx, "/recipes/findByIngredients", params)
	if err != nil {
		return nil, err
	}
	out, err := decodeSearchResult(raw)
	if err != nil {
		return nil, fmt.Errorf("recipe search response: %w", err)
	}
	return out, nil
}

// Details fetches cooking time, servings, source and instructions for one
// recipe. Instructions are best effort.
func (c *Client) Details(ctx context.Context, id int64) (Details, error) {
	if c.cfg.APIKey == "" {
		return Details{}, ErrNoAPIKey
	}
	params := url.Values{}
	params.Set("includeNutrition", "false")
	raw, err := c.get(ctx, fmt.Sprintf("/recipes/%d/information", id), params)
	if err != nil {
		return Details{}, err
	}
	var info struct {
		ReadyInMinutes int    `json:"readyInMinutes"`
		Servings       int    `json:"servings"`
		SourceURL      string `json:"sourceUrl"`
		Summary        string `json:"summary"`
	}
	if err := json.Unmarshal(raw, &info); err != nil {
		return Details{}, fmt.Errorf("decode recipe information: %w", err)
	}
	d := Details{
		ReadyInMinutes: info.ReadyInMinutes,
		Servings:       info.Servings,
		SourceURL:      info.SourceURL,
		Summary:        info.Summary,
	}
	if d.SourceURL == "" {
		d.SourceURL = recipePageBase + strconv.FormatInt(id, 10)
	}

	steps, err := c.instructions(ctx, id)
	if err != nil {
		c.log.Warn("recipe.instructions_failed", "recipe_id", id, "error", err)
	}
	d.Instructions = steps
	return d, nil
}

func (c *Client) instructions(ctx context.Context, id int64) (string, error) {
	params := url.Values{}
	params.Set("stepBreakdown", "true")
	raw, err := c.get(ctx, fmt.Sprintf("/recipes/%d/analyzedInstructions", id), params)
	if err != nil {
		return "", err
	}
	var groups []struct {
		Steps []struct {
			Step string `json:"step"`
		} `json:"steps"`
	}
	if err := json.Unmarshal(raw, &groups); err != nil {
		return "", fmt.Errorf("decode instructions: %w", err)
	}
	var steps []string
	for _, g := range groups {
		for _, s := range g.Steps {
			if t := strings.TrimSpace(reHTMLTag.ReplaceAllString(s.Step, "")); t != "" {
				steps = append(steps, t)
			}
		}
	}
	return strings.Join(steps, " "), nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	rid := uuid.New().String()
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}
	params.Set("apiKey", c.cfg.APIKey)
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Error("recipe.http.error", "req_id", rid, "path", path, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("recipe http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			c.log.Warn("recipe response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.log.Error("recipe.http.status", "req_id", rid, "path", path, "status", resp.StatusCode,
			"elapsed_ms", time.Since(start).Milliseconds())
		return nil, fmt.Errorf("recipe status %d: %s", resp.StatusCode, truncate(buf.String(), 200))
	}
	c.log.Debug("recipe.http.ok", "req_id", rid, "path", path, "bytes", buf.Len(),
		"elapsed_ms", time.Since(start).Milliseconds())
	return buf.Bytes(), nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
