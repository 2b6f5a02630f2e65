package extract

import (
	"context"
	"time"

	"github.com/medinsight/medinsight/constants"
)

// TextExtractor turns file bytes into normalized text for one detected
// format. Strategies may block on external tooling; all take a context.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte, format constants.FileFormat) (Result, error)
}

// Result is the outcome of one extraction run.
type Result struct {
	Text     string
	Method   string // "pdf-text" | "image-ocr" | "text-passthrough"
	Language string
	Pages    int
	Duration time.Duration
	Warnings []string
}

// ProgressFunc receives coarse completion events from long-running
// strategies. Observability only; never affects the extraction outcome.
type ProgressFunc func(stage string, percent int)
