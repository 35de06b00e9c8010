package ocr

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"sync"

	"github.com/otiai10/gosseract/v2"
	"github.com/rs/zerolog"

	"github.com/docmill/docmill/internal/models"
)

// Engine runs Tesseract through gosseract. Clients hold native state and are
// not safe for concurrent use, so recognition is serialized; each call gets a
// fresh client to keep the native memory footprint bounded.
type Engine struct {
	language string
	log      zerolog.Logger

	mu sync.Mutex

	availOnce sync.Once
	availErr  error
}

func NewEngine(language string, log zerolog.Logger) *Engine {
	if language == "" {
		language = "eng"
	}
	return &Engine{
		language: language,
		log:      log.With().Str("component", "ocr").Logger(),
	}
}

// Available probes the Tesseract runtime with a tiny recognition, which
// catches missing language data as well as a missing install. The probe runs
// once; the result is cached for the engine's lifetime.
func (e *Engine) Available() error {
	e.availOnce.Do(func() {
		client := gosseract.NewClient()
		defer client.Close()
		if err := client.SetLanguage(e.language); err != nil {
			e.availErr = models.UnavailableError("tesseract language "+e.language, err)
			return
		}
		if err := client.SetImageFromBytes(probeImage()); err != nil {
			e.availErr = models.UnavailableError("tesseract probe image", err)
			return
		}
		if _, err := client.Text(); err != nil {
			e.availErr = models.UnavailableError("tesseract runtime", err)
			return
		}
		e.log.Debug().Str("version", client.Version()).Msg("tesseract runtime detected")
	})
	return e.availErr
}

// RecognizeFile runs OCR over a standalone image file.
func (e *Engine) RecognizeFile(ctx context.Context, path string) (string, error) {
	if err := e.Available(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(e.language); err != nil {
		return "", models.ExtractionError("ocr language", err)
	}
	if err := client.SetImage(path); err != nil {
		return "", models.ExtractionError("ocr load image", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", models.ExtractionError("ocr recognize", err)
	}
	return text, nil
}

// RecognizeImage runs OCR over an in-memory image, typically a rasterized
// PDF page. The image is handed to Tesseract as PNG bytes.
func (e *Engine) RecognizeImage(ctx context.Context, img image.Image) (string, error) {
	if err := e.Available(); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", models.ExtractionError("encode page raster", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	client := gosseract.NewClient()
	defer client.Close()
	if err := client.SetLanguage(e.language); err != nil {
		return "", models.ExtractionError("ocr language", err)
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", models.ExtractionError("ocr load raster", err)
	}
	text, err := client.Text()
	if err != nil {
		return "", models.ExtractionError("ocr recognize", err)
	}
	return text, nil
}

// probeImage is a blank 8x8 PNG; recognizing it exercises the full Tesseract
// init path without costing real work.
func probeImage() []byte {
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			img.Set(x, y, color.White)
		}
	}
	var buf bytes.Buffer
	_ = png.Encode(&buf, img)
	return buf.Bytes()
}
