package extract

import (
	"os"

	"code.sajari.com/docconv"

	"github.com/docmill/docmill/internal/models"
)

// extractDocx pulls the document body out of a DOCX container. Decoder
// failures are content-level: the batch keeps going and the file reports a
// warning entry.
func (e *Extractor) extractDocx(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", models.ExtractionError("open docx", err)
	}
	defer f.Close()

	body, _, err := docconv.ConvertDocx(f)
	if err != nil {
		return "", models.ExtractionError("decode docx", err)
	}
	return Normalize(body), nil
}
