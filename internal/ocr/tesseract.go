package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

type TesseractConfig struct {
	Binary      string // binary name or absolute path; if empty -> "tesseract"
	TessdataDir string
	TmpDir      string // where page images are staged; "" uses os.TempDir
}

// Tesseract drives the tesseract CLI in TSV mode.
type Tesseract struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseract(cfg TesseractConfig, runner Runner, logger *slog.Logger) *Tesseract {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if runner == nil {
		runner = NewExecRunner(logger, "OMP_THREAD_LIMIT=1")
	}
	return &Tesseract{cfg: cfg, runner: runner, logger: logger}
}

func (t *Tesseract) Recognize(ctx context.Context, img []byte, pass PassConfig) ([]Token, error) {
	f, err := os.CreateTemp(t.cfg.TmpDir, "pantry-ocr-*.png")
	if err != nil {
		return nil, fmt.Errorf("stage image: %w", err)
	}
	path := f.Name()
	defer os.Remove(path)
	if _, err := f.Write(img); err != nil {
		f.Close()
		return nil, fmt.Errorf("stage image: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("stage image: %w", err)
	}

	// tesseract <file> stdout -l <lang> --psm N [--oem M] tsv
	args := []string{path, "stdout", "-l", pass.Lang, "--psm", strconv.Itoa(int(pass.PSM))}
	if pass.OEM > 0 {
		args = append(args, "--oem", strconv.Itoa(pass.OEM))
	}
	if t.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", t.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return nil, fmt.Errorf("tesseract %s: %w: %s", pass.Name, err, truncate(string(errb), 512))
	}
	return ParseTSV(string(out)), nil
}

// ParseTSV reads tesseract's TSV output. Only rows with text become tokens.
// Columns: level page block par line word left top width height conf text.
func ParseTSV(tsv string) []Token {
	var tokens []Token
	for i, ln := range strings.Split(tsv, "\n") {
		if i == 0 || len(ln) == 0 {
			continue // header row and blank lines
		}
		cols := strings.Split(strings.TrimRight(ln, "\r"), "\t")
		if len(cols) < 12 {
			continue
		}
		text := strings.TrimSpace(cols[11])
		if text == "" {
			continue
		}
		conf := -1.0
		if v, err := strconv.ParseFloat(cols[10], 64); err == nil && v >= 0 {
			conf = v
		}
		tokens = append(tokens, Token{
			Text:       text,
			Confidence: conf,
			Block:      atoi(cols[2]),
			Paragraph:  atoi(cols[3]),
			Line:       atoi(cols[4]),
		})
	}
	return tokens
}

func atoi(s string) int {
	n, _ := strconv.Atoi(strings.TrimSpace(s))
	return n
}
