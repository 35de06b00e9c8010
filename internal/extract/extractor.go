package extract

import (
	"context"
	"fmt"
	"image"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"github.com/docmill/docmill/internal/models"
)

// Format tags the file families the engine can extract. Dispatch is a closed
// switch over these constants: adding a format means adding a constant, a
// dispatch arm and an extractor, all visible at compile time.
type Format string

const (
	FormatPDF   Format = "pdf"
	FormatDOCX  Format = "docx"
	FormatText  Format = "txt"
	FormatCSV   Format = "csv"
	FormatXLSX  Format = "xlsx"
	FormatImage Format = "image"
)

// FormatFromPath maps a file path to its Format by lowercased extension. An
// unknown extension is a configuration-level error, distinct from
// content-level extraction failures.
func FormatFromPath(path string) (Format, error) {
	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".pdf":
		return FormatPDF, nil
	case ".docx":
		return FormatDOCX, nil
	case ".txt":
		return FormatText, nil
	case ".csv":
		return FormatCSV, nil
	case ".xlsx":
		return FormatXLSX, nil
	case ".png", ".jpg", ".jpeg":
		return FormatImage, nil
	default:
		return "", models.ConfigError(fmt.Sprintf("no extractor registered for extension %q", ext), nil)
	}
}

// Recognizer is the OCR capability the extractors need; *ocr.Engine satisfies
// it. Tests substitute a stub.
type Recognizer interface {
	RecognizeFile(ctx context.Context, path string) (string, error)
	RecognizeImage(ctx context.Context, img image.Image) (string, error)
	Available() error
}

// Config carries the extraction tunables.
//
// MinNativeText: chars of native PDF text below which the whole file is
//                retried through OCR.
// OCRDPI:        rasterization density for the OCR fallback.
// MaxPages:      PDF page-count ceiling, enforced in preflight.
// PlainTables:   render tabular formats with fixed-width columns instead of
//                markdown pipes.
type Config struct {
	MinNativeText int
	OCRDPI        int
	MaxPages      int
	PlainTables   bool
}

// Extractor turns files into normalized text. One instance serves a whole
// batch; it holds no per-file state.
type Extractor struct {
	cfg Config
	ocr Recognizer
	log zerolog.Logger
}

func New(cfg Config, recognizer Recognizer, log zerolog.Logger) *Extractor {
	if cfg.OCRDPI <= 0 {
		cfg.OCRDPI = 300
	}
	return &Extractor{
		cfg: cfg,
		ocr: recognizer,
		log: log.With().Str("component", "extract").Logger(),
	}
}

// Extract pulls normalized text from the file at path. Warnings report
// recoverable page- or cell-level problems; a non-nil error means the file
// produced nothing usable.
func (e *Extractor) Extract(ctx context.Context, path string, format Format) (string, []string, error) {
	switch format {
	case FormatPDF:
		return e.extractPDF(ctx, path)
	case FormatDOCX:
		text, err := e.extractDocx(path)
		return text, nil, err
	case FormatText:
		text, err := e.extractText(path)
		return text, nil, err
	case FormatCSV:
		return e.extractCSV(path)
	case FormatXLSX:
		return e.extractXLSX(path)
	case FormatImage:
		text, err := e.extractImage(ctx, path)
		return text, nil, err
	default:
		return "", nil, models.ConfigError(fmt.Sprintf("no extractor registered for format %q", format), nil)
	}
}
