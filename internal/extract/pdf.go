package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ledongthuc/pdf"

	"github.com/medinsight/medinsight/internal/common"
)

// maxPDFTextBytes caps extracted text so a pathological document cannot
// balloon memory before the AI stage truncates anyway.
const maxPDFTextBytes = 512 << 10

// extractPDF parses the PDF's content streams and concatenates page text in
// document order. Image-only (scanned) PDFs legitimately produce an empty
// string; that is reported upstream as an empty extraction, not escalated
// to OCR here.
func (e *Extractor) extractPDF(_ context.Context, data []byte) (res Result, err error) {
	res.Method = "pdf-text"

	// The parser panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("extract.pdf.panic", "panic", r)
			err = common.ExtractionFailed("failed to extract text from PDF", false,
				fmt.Errorf("panic during PDF parse: %v", r))
		}
	}()

	reader, rerr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if rerr != nil {
		return res, common.ExtractionFailed("failed to extract text from PDF", false, rerr)
	}
	res.Pages = reader.NumPage()

	plain, perr := reader.GetPlainText()
	if perr != nil {
		return res, common.ExtractionFailed("failed to extract text from PDF", false, perr)
	}
	textBytes, rerr := io.ReadAll(io.LimitReader(plain, maxPDFTextBytes))
	if rerr != nil {
		return res, common.ExtractionFailed("failed to read PDF text", false, rerr)
	}

	res.Text = string(textBytes)
	if len(textBytes) == maxPDFTextBytes {
		res.Warnings = append(res.Warnings, "pdf text truncated at cap")
	}
	return res, nil
}
