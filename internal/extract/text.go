package extract

import (
	"os"
	"strings"

	"github.com/ssor/bom"

	"github.com/docmill/docmill/internal/models"
)

// extractText reads a plain-text file permissively: BOM stripped, invalid
// UTF-8 sequences replaced with spaces rather than failing. Encoding damage
// never rejects a text file; only an unreadable file is an error.
func (e *Extractor) extractText(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", models.ExtractionError("read text file", err)
	}
	text := strings.ToValidUTF8(string(bom.Clean(raw)), " ")
	return Normalize(text), nil
}
