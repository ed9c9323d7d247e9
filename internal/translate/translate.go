// Package translate wraps the Google Translate v2 REST API. Every failure
// degrades to returning the source text.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://translation.googleapis.com/language/translate/v2"

// Translator turns text from one language into another. Implementations
// never fail; they return the input when translation is unavailable.
type Translator interface {
	Translate(ctx context.Context, text, source, target string) string
}

// Config configures the Google client.
type Config struct {
	APIKey     string
	BaseURL    string
	Timeout    time.Duration
	RatePerSec float64
}

// Google is a Translator backed by the v2 REST endpoint.
type Google struct {
	cfg     Config
	http    *http.Client
	limiter *rate.Limiter
	log     *slog.Logger
}

// New returns a Noop translator when no API key is configured.
func New(cfg Config, logger *slog.Logger) Translator {
	if cfg.APIKey == "" {
		return Noop{}
	}
	return NewGoogle(cfg, logger)
}

// NewGoogle fills defaults and builds the client.
func NewGoogle(cfg Config, logger *slog.Logger) *Google {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 6 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	return &Google{
		cfg:     cfg,
		http:    &http.Client{Timeout: cfg.Timeout},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSec), 1),
		log:     logger,
	}
}

// Translate returns text unchanged on any error, an empty input, or when
// source and target match.
func (g *Google) Translate(ctx context.Context, text, source, target string) string {
	if strings.TrimSpace(text) == "" || source == target || g.cfg.APIKey == "" {
		return text
	}
	out, err := g.translate(ctx, text, source, target)
	if err != nil {
		g.log.Warn("translate.failed", "source", source, "target", target, "error", err)
		return text
	}
	return out
}

func (g *Google) translate(ctx context.Context, text, source, target string) (string, error) {
	rid := uuid.New().String()
	start := time.Now()

	if err := g.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limiter: %w", err)
	}
	form := url.Values{}
	form.Set("q", text)
	form.Set("source", source)
	form.Set("target", target)
	form.Set("format", "text")
	form.Set("key", g.cfg.APIKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("translate http error: %w", err)
	}
	defer func(Body io.ReadCloser) {
		if err := Body.Close(); err != nil {
			g.log.Warn("translate response body close error", "error", err)
		}
	}(resp.Body)

	buf := new(bytes.Buffer)
	_, _ = buf.ReadFrom(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("translate status %d: %s", resp.StatusCode, buf.String())
	}

	var body struct {
		Data struct {
			Translations []struct {
				TranslatedText string `json:"translatedText"`
			} `json:"translations"`
		} `json:"data"`
	}
	if err := json.Unmarshal(buf.Bytes(), &body); err != nil {
		return "", fmt.Errorf("decode translate response: %w", err)
	}
	if len(body.Data.Translations) == 0 || body.Data.Translations[0].TranslatedText == "" {
		return "", fmt.Errorf("no translations in response")
	}
	g.log.Debug("translate.ok", "req_id", rid, "source", source, "target", target,
		"elapsed_ms", time.Since(start).Milliseconds())
	return body.Data.Translations[0].TranslatedText, nil
}

// Noop returns its input.
type Noop struct{}

func (Noop) Translate(_ context.Context, text, _, _ string) string { return text }
