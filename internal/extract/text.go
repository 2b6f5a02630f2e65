package extract

import (
	"unicode/utf8"

	"github.com/medinsight/medinsight/internal/common"
)

// extractText reads the bytes verbatim as UTF-8.
func (e *Extractor) extractText(data []byte) (Result, error) {
	res := Result{Method: "text-passthrough"}
	if !utf8.Valid(data) {
		return res, common.ExtractionFailed("file is not valid UTF-8 text", false, nil)
	}
	res.Text = string(data)
	return res, nil
}
