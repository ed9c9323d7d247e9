package ocr

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
)

// EngineConfig selects and configures an Engine implementation.
type EngineConfig struct {
	Kind        string // "cli" (default) or "gosseract"
	Binary      string
	TessdataDir string
	TmpDir      string
	Runner      Runner
}

var engineFactories = map[string]func(EngineConfig, *slog.Logger) Engine{
	"cli": func(cfg EngineConfig, logger *slog.Logger) Engine {
		return NewTesseract(TesseractConfig{
			Binary:      cfg.Binary,
			TessdataDir: cfg.TessdataDir,
			TmpDir:      cfg.TmpDir,
		}, cfg.Runner, logger)
	},
}

// NewEngine builds the configured engine. The gosseract engine is only
// available in binaries built with -tags gosseract.
func NewEngine(cfg EngineConfig, logger *slog.Logger) (Engine, error) {
	kind := cfg.Kind
	if kind == "" {
		kind = "cli"
	}
	f, ok := engineFactories[kind]
	if !ok {
		known := make([]string, 0, len(engineFactories))
		for k := range engineFactories {
			known = append(known, k)
		}
		sort.Strings(known)
		return nil, fmt.Errorf("unknown ocr engine %q (available: %s)", kind, strings.Join(known, ", "))
	}
	return f(cfg, logger), nil
}
