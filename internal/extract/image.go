package extract

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/disintegration/imaging"

	"github.com/medinsight/medinsight/internal/common"
)

// extractImage is the two-stage OCR strategy: preprocess the image so the
// recognition model sees clean glyphs, then run tesseract over the result.
func (e *Extractor) extractImage(ctx context.Context, data []byte) (Result, error) {
	res := Result{Method: "image-ocr", Language: e.cfg.Language}
	e.cfg.Progress("preprocess", 0)

	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return res, common.ExtractionFailed("failed to extract text from image", false, err)
	}

	// Greyscale -> intensity normalize -> sharpen, mirroring what gives the
	// recognition model the best character hit rate on photographed reports.
	img = imaging.Grayscale(img)
	img = imaging.AdjustContrast(img, 15)
	img = imaging.Sharpen(img, 1.0)
	e.cfg.Progress("preprocess", 30)

	tmpDir, err := os.MkdirTemp("", "mi-ocr-*")
	if err != nil {
		return res, common.ExtractionFailed("failed to stage image for OCR", true, err)
	}
	defer func() {
		if rmErr := os.RemoveAll(tmpDir); rmErr != nil {
			e.logger.Warn("extract.image.cleanup_failed", "dir", tmpDir, "error", rmErr)
		}
	}()

	page := filepath.Join(tmpDir, "page.png")
	if err := imaging.Save(img, page); err != nil {
		return res, common.ExtractionFailed("failed to stage image for OCR", true, err)
	}

	e.cfg.Progress("recognize", 40)
	text, warns, err := e.tesseractOCR(ctx, page)
	res.Warnings = append(res.Warnings, warns...)
	if err != nil {
		return res, common.ExtractionFailed("failed to extract text from image", false, err)
	}
	e.cfg.Progress("recognize", 100)

	res.Text = text
	res.Pages = 1
	return res, nil
}

// tesseractOCR shells out to tesseract and returns recognized text from stdout.
func (e *Extractor) tesseractOCR(ctx context.Context, path string) (string, []string, error) {
	args := []string{path, "stdout", "-l", e.cfg.Language}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}

	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", []string{string(errb)}, fmt.Errorf("tesseract: %w", err)
	}
	var warns []string
	if len(errb) > 0 {
		warns = append(warns, truncate(string(errb), 2<<10))
	}
	return string(out), warns, nil
}
