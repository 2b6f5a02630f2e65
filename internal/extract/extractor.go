package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/medinsight/medinsight/constants"
	"github.com/medinsight/medinsight/internal/common"
)

// Config for the extraction strategies.
type Config struct {
	Tesseract   string // binary name or absolute path; if empty -> "tesseract"
	Language    string // tesseract language model, default "eng"
	TessdataDir string
	PSM         int // page segmentation mode; 0 = tesseract default

	Progress ProgressFunc // optional; nil -> debug log
}

// Extractor dispatches to the strategy for a detected format category.
type Extractor struct {
	cfg    Config
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.Language == "" {
		cfg.Language = "eng"
	}
	e := &Extractor{cfg: cfg, runner: execRunner{logger: logger}, logger: logger}
	if e.cfg.Progress == nil {
		e.cfg.Progress = func(stage string, percent int) {
			logger.Debug("extract.progress", "stage", stage, "percent", percent)
		}
	}
	return e
}

// Extract runs the strategy for format. The caller decides what to do with
// empty output; this layer only distinguishes success from failure.
func (e *Extractor) Extract(ctx context.Context, data []byte, format constants.FileFormat) (Result, error) {
	start := time.Now()
	e.logger.Debug("extract.start", "format", format, "bytes", len(data))

	var res Result
	var err error
	switch format {
	case constants.FormatPDF:
		res, err = e.extractPDF(ctx, data)
	case constants.FormatImage:
		res, err = e.extractImage(ctx, data)
	case constants.FormatText:
		res, err = e.extractText(data)
	default:
		return Result{}, common.UnsupportedFormat(fmt.Sprintf("unsupported file type: %q", format))
	}
	res.Duration = time.Since(start)

	if err != nil {
		e.logger.Error("extract.failed", "format", format, "error", err,
			"elapsed_ms", res.Duration.Milliseconds())
		return res, err
	}
	e.logger.Info("extract.ok", "format", format, "method", res.Method,
		"text_bytes", len(res.Text), "pages", res.Pages,
		"elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}
