package app

import (
	"github.com/rs/zerolog"

	"github.com/docmill/docmill/internal/chunk"
	"github.com/docmill/docmill/internal/config"
	"github.com/docmill/docmill/internal/extract"
	"github.com/docmill/docmill/internal/ocr"
	"github.com/docmill/docmill/internal/pipeline"
	"github.com/docmill/docmill/internal/security"
)

// App is the composition root: it wires configuration into the engine
// components so cmd binaries only deal with one constructor.
type App struct {
	Config   *config.Config
	Pipeline *pipeline.Pipeline
	Splitter *chunk.Splitter
	OCR      *ocr.Engine
	Log      zerolog.Logger
}

func New(cfg *config.Config, log zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	engine := ocr.NewEngine(cfg.OCRLanguage, log)

	extractor := extract.New(extract.Config{
		MinNativeText: cfg.MinNativeText,
		OCRDPI:        cfg.OCRDPI,
		MaxPages:      cfg.MaxPages,
		PlainTables:   cfg.PlainTables,
	}, engine, log)

	limits := cfg.Limits()
	validator := security.NewValidator(limits.MaxFileSize)

	pipe, err := pipeline.New(pipeline.Options{
		Limits:  limits,
		Allowed: cfg.AllowedExtensions,
		TempDir: cfg.TempDir,
	}, validator, extractor, log)
	if err != nil {
		return nil, err
	}

	chunkCfg := chunk.DefaultConfig()
	chunkCfg.ChunkSize = cfg.ChunkSize
	chunkCfg.ChunkOverlap = cfg.ChunkOverlap
	chunkCfg.MinChunkLen = cfg.MinChunkLength
	splitter, err := chunk.NewSplitter(chunkCfg)
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		Pipeline: pipe,
		Splitter: splitter,
		OCR:      engine,
		Log:      log,
	}, nil
}
