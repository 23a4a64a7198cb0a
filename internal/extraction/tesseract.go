package extraction

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"github.com/anhducmata/myath/constants"
)

// TesseractConfig configures the local OCR fallback provider.
type TesseractConfig struct {
	Tesseract string // binary name or absolute path; if empty -> "tesseract"
	Pdftotext string // binary name or absolute path; if empty -> "pdftotext"
	Lang      string // default "eng"
	WorkDir   string // scratch dir for temp files; default os.TempDir()
}

// TesseractProvider is the universal last-resort extractor: generic OCR for
// images, pdftotext for PDFs. It knows nothing about math, so confidence is
// a heuristic over the decoded text.
type TesseractProvider struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractProvider(cfg TesseractConfig, logger *slog.Logger) *TesseractProvider {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Pdftotext == "" {
		cfg.Pdftotext = "pdftotext"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if cfg.WorkDir == "" {
		cfg.WorkDir = os.TempDir()
	}
	return &TesseractProvider{cfg: cfg, runner: execRunner{}, logger: logger}
}

func (p *TesseractProvider) Name() string { return "tesseract" }

func (p *TesseractProvider) Attempt(ctx context.Context, data []byte, mimeType string) (Result, error) {
	ext := constants.MapMIMEToExt(mimeType)
	if ext == "" {
		return Result{}, fmt.Errorf("unsupported mime type %q", mimeType)
	}
	path := filepath.Join(p.cfg.WorkDir, uuid.New().String()+"."+ext)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return Result{}, fmt.Errorf("write scratch file: %w", err)
	}
	defer func() {
		if err := os.Remove(path); err != nil {
			p.logger.Warn("scratch file cleanup failed", "path", path, "error", err)
		}
	}()

	var text string
	var err error
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		text, err = p.extractPDF(ctx, path)
	case constants.IMAGE:
		text, err = p.extractImage(ctx, path)
	default:
		return Result{}, fmt.Errorf("unsupported extension %q", ext)
	}
	if err != nil {
		return Result{}, err
	}

	text = strings.TrimSpace(text)
	return Result{
		Text:       text,
		Normalized: Normalize(text),
		Confidence: heuristicConfidence(text),
	}, nil
}

func (p *TesseractProvider) extractImage(ctx context.Context, path string) (string, error) {
	out, stderr, err := p.runner.Run(ctx, p.cfg.Tesseract, path, "stdout", "-l", p.cfg.Lang, "--psm", "6")
	if err != nil {
		return "", fmt.Errorf("tesseract: %w (%s)", err, truncate(string(stderr), 256))
	}
	return string(out), nil
}

func (p *TesseractProvider) extractPDF(ctx context.Context, path string) (string, error) {
	out, stderr, err := p.runner.Run(ctx, p.cfg.Pdftotext, "-layout", path, "-")
	if err != nil {
		return "", fmt.Errorf("pdftotext: %w (%s)", err, truncate(string(stderr), 256))
	}
	return string(out), nil
}

var (
	reMathOp    = regexp.MustCompile(`[=+\-*/^<>]`)
	reMathDigit = regexp.MustCompile(`\d`)
	reMathVar   = regexp.MustCompile(`\b[a-z]\b`)
	reMathFunc  = regexp.MustCompile(`\b(sin|cos|tan|exp|ln|log|sqrt|int|lim|dx|dy)\b`)
)

// heuristicConfidence scores OCR text on how math-like it looks. Operators,
// digits, lone-letter variables and function names each add a little.
func heuristicConfidence(txt string) float64 {
	if strings.TrimSpace(txt) == "" {
		return 0
	}
	txtL := strings.ToLower(txt)
	score := 0.2 // base
	if reMathOp.MatchString(txtL) {
		score += 0.2
	}
	if reMathDigit.MatchString(txtL) {
		score += 0.15
	}
	if reMathVar.MatchString(txtL) {
		score += 0.1
	}
	if reMathFunc.MatchString(txtL) {
		score += 0.1
	}
	if score > 1.0 {
		score = 1.0
	}
	return score
}
