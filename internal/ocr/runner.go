package ocr

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"time"
	"unicode/utf8"
)

// Runner executes an external command. Tesseract and the HEIC converters
// go through it so tests can fake them.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (stdout, stderr []byte, err error)
}

const stderrLogLimit = 8 << 10

// ExecRunner runs real processes. Env entries are appended to the parent
// environment; OMP_THREAD_LIMIT=1 keeps parallel tesseract passes from
// oversubscribing the CPU.
type ExecRunner struct {
	Env    []string
	logger *slog.Logger
}

func NewExecRunner(logger *slog.Logger, env ...string) *ExecRunner {
	if logger == nil {
		logger = slog.Default()
	}
	return &ExecRunner{Env: env, logger: logger}
}

func (r *ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if len(r.Env) > 0 {
		cmd.Env = append(os.Environ(), r.Env...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	start := time.Now()
	err := cmd.Run()
	attrs := []any{
		"cmd", name,
		"args", strings.Join(args, " "),
		"duration_ms", time.Since(start).Milliseconds(),
	}
	if err != nil {
		r.logger.Error("ocr.exec.failed", append(attrs, "error", err, "stderr", truncate(stderr.String(), stderrLogLimit))...)
	} else {
		r.logger.Debug("ocr.exec.ok", append(attrs, "stdout_bytes", stdout.Len())...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

// truncate cuts s to at most max bytes without splitting a rune.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "...(truncated)"
}
