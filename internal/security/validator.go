package security

import (
	"bytes"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/gabriel-vasile/mimetype"

	"github.com/docmill/docmill/internal/models"
)

// Validator screens raw file bytes before any parser touches them. Checks run
// in a fixed order and stop at the first failure: extension/content agreement,
// malicious-pattern scan, size ceiling, magic-number confirmation.
type Validator struct {
	maxFileSize int64
}

func NewValidator(maxFileSize int64) *Validator {
	return &Validator{maxFileSize: maxFileSize}
}

// mimeExpectations maps extensions to the MIME type their content must sniff
// as. Extensions without an entry skip the agreement check.
var mimeExpectations = map[string]string{
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".png":  "image/png",
}

// magicHeaders lists the fixed signatures a format family must start with.
// Formats without an entry (plain text, CSV) have no header to confirm.
var magicHeaders = map[string][][]byte{
	".pdf":  {[]byte("%PDF-")},
	".docx": {{0x50, 0x4B, 0x03, 0x04}},
	".xlsx": {{0x50, 0x4B, 0x03, 0x04}},
	".png":  {{0x89, 0x50, 0x4E, 0x47}},
	".jpg":  {{0xFF, 0xD8, 0xFF}},
	".jpeg": {{0xFF, 0xD8, 0xFF}},
}

type pattern struct {
	category string
	re       *regexp.Regexp
}

// maliciousPatterns run against the permissively decoded content. The
// verdict reports the category only, never the matched text.
var maliciousPatterns = []pattern{
	{"embedded script tag", regexp.MustCompile(`(?i)<\s*script[^>]*>.*?<\s*/\s*script\s*>`)},
	{"shell function call", regexp.MustCompile(`(?i)\b(eval|system|exec|passthru)\s*\(`)},
	{"sql injection keyword", regexp.MustCompile(`(?i)\b(union\s+select|drop\s+table)\b`)},
}

// binaryRunLen is the shortest NUL/0xFF/0xFE run treated as hostile in
// formats without a signature. Stray markers and BOM fragments show up in
// damaged but honest text; a run this long means smuggled binary content.
const binaryRunLen = 8

// Validate screens the named file's bytes and returns a verdict. The order
// of checks is fixed; the first failure wins.
func (v *Validator) Validate(name string, data []byte) models.ValidationVerdict {
	ext := strings.ToLower(filepath.Ext(name))

	if want, ok := mimeExpectations[ext]; ok && len(data) > 0 {
		if got := mimetype.Detect(data); !got.Is(want) {
			return models.Invalid(fmt.Sprintf("content type %s does not match extension %s", got.String(), ext))
		}
	}

	if category := scanMalicious(ext, data); category != "" {
		return models.Invalid("malicious pattern: " + category)
	}

	if int64(len(data)) > v.maxFileSize {
		return models.Invalid(fmt.Sprintf("file size %d exceeds limit %d", len(data), v.maxFileSize))
	}

	if headers, ok := magicHeaders[ext]; ok {
		if !hasMagic(data, headers) {
			return models.Invalid("file header does not match " + ext + " signature")
		}
	}

	return models.Valid()
}

// scanMalicious returns the category of the first hostile pattern found, or
// "" for clean content. Text patterns are matched on the bytes decoded
// permissively (invalid UTF-8 dropped); byte runs are matched on the raw
// bytes, but only for extensions with no magic signature: container formats
// carry structural NUL runs in their framing, and the signature check is
// what binds those.
func scanMalicious(ext string, data []byte) string {
	text := strings.ToValidUTF8(string(data), "")
	for _, p := range maliciousPatterns {
		if p.re.MatchString(text) {
			return p.category
		}
	}
	if _, structural := magicHeaders[ext]; structural {
		return ""
	}
	if b, found := binaryRun(data); found {
		return fmt.Sprintf("binary byte run (0x%02X)", b)
	}
	return ""
}

// binaryRun reports the first run of binaryRunLen or more identical
// NUL/0xFF/0xFE bytes.
func binaryRun(data []byte) (byte, bool) {
	run := 1
	for i := 1; i < len(data); i++ {
		if data[i] == data[i-1] {
			run++
		} else {
			run = 1
		}
		if run >= binaryRunLen {
			switch data[i] {
			case 0x00, 0xFF, 0xFE:
				return data[i], true
			}
		}
	}
	return 0, false
}

func hasMagic(data []byte, headers [][]byte) bool {
	for _, h := range headers {
		if bytes.HasPrefix(data, h) {
			return true
		}
	}
	return false
}
