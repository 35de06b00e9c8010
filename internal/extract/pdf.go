package extract

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/docmill/docmill/internal/models"
)

// extractPDF tries native text first and falls back to OCR for the whole
// file when the native pass fails to open or yields less than MinNativeText
// characters. Individual bad pages are skipped with warnings in both passes.
func (e *Extractor) extractPDF(ctx context.Context, path string) (string, []string, error) {
	var warnings []string

	pages, err := e.preflight(path)
	if err != nil {
		// MuPDF tolerates a lot that stricter parsers reject; note it and go on.
		warnings = append(warnings, "preflight: "+err.Error())
	} else if e.cfg.MaxPages > 0 && pages > e.cfg.MaxPages {
		return "", warnings, models.ResourceError(fmt.Sprintf("page count %d exceeds limit %d", pages, e.cfg.MaxPages), nil)
	}

	native, nativeWarnings, nativeErr := e.nativePDFText(ctx, path)
	warnings = append(warnings, nativeWarnings...)
	if nativeErr == nil && len(native) >= e.cfg.MinNativeText {
		return native, warnings, nil
	}
	if nativeErr != nil {
		if ctx.Err() != nil {
			return "", warnings, nativeErr
		}
		warnings = append(warnings, "native extraction: "+nativeErr.Error())
	} else {
		warnings = append(warnings, fmt.Sprintf("native text below %d chars, retrying with ocr", e.cfg.MinNativeText))
	}

	ocrText, ocrWarnings, ocrErr := e.ocrPDFText(ctx, path)
	warnings = append(warnings, ocrWarnings...)
	if ocrErr != nil {
		return "", warnings, ocrErr
	}
	return ocrText, warnings, nil
}

// preflight counts pages with pdfcpu under relaxed validation, before any
// heavy parsing or rasterization happens.
func (e *Extractor) preflight(path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return api.PageCount(f, conf)
}

// nativePDFText walks the pages collecting embedded text. A page that
// individually errors is skipped with a warning; cancellation is checked
// between pages.
func (e *Extractor) nativePDFText(ctx context.Context, path string) (string, []string, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return "", nil, models.ExtractionError("open pdf", err)
	}
	defer doc.Close()

	var warnings []string
	var b strings.Builder
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return "", warnings, err
		}
		text, err := doc.Text(n)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: %v", n+1, err))
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}
	return Normalize(b.String()), warnings, nil
}

// ocrPDFText rasterizes each page and recognizes it, prefixing recovered
// text with a provenance marker. Pages that fail to rasterize or recognize
// contribute warnings, not errors.
func (e *Extractor) ocrPDFText(ctx context.Context, path string) (string, []string, error) {
	if err := e.ocr.Available(); err != nil {
		return "", nil, err
	}

	doc, err := fitz.New(path)
	if err != nil {
		return "", nil, models.ExtractionError("open pdf for ocr", err)
	}
	defer doc.Close()

	var warnings []string
	var parts []string
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return "", warnings, err
		}
		img, err := doc.ImageDPI(n, float64(e.cfg.OCRDPI))
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: rasterize: %v", n+1, err))
			continue
		}
		text, err := e.ocr.RecognizeImage(ctx, img)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("page %d: ocr: %v", n+1, err))
			continue
		}
		text = Normalize(text)
		if text == "" {
			warnings = append(warnings, fmt.Sprintf("page %d: ocr produced no text", n+1))
			continue
		}
		parts = append(parts, pageMarker(n+1)+" "+text)
	}
	if len(parts) == 0 {
		return "", warnings, nil
	}
	return strings.Join(parts, " "), warnings, nil
}

// pageMarker prefixes OCR-recovered page text so downstream consumers can
// tell recovered content from native text.
func pageMarker(page int) string {
	return fmt.Sprintf("[OCR Page %d]", page)
}
