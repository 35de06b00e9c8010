package extract

import (
	"context"
)

// extractImage routes a standalone image straight through OCR. No provenance
// marker is added: the format itself says the text was recognized, not
// parsed. A missing OCR runtime surfaces as an unavailable-kind error.
func (e *Extractor) extractImage(ctx context.Context, path string) (string, error) {
	if err := e.ocr.Available(); err != nil {
		return "", err
	}
	text, err := e.ocr.RecognizeFile(ctx, path)
	if err != nil {
		return "", err
	}
	return Normalize(text), nil
}
