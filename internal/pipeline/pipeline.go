package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/docmill/docmill/internal/extract"
	"github.com/docmill/docmill/internal/models"
	"github.com/docmill/docmill/internal/security"
)

// Pipeline drives the full per-file sequence: policy check, memory
// admission, security validation, private temp copy, extraction, metadata
// assembly. One instance serves any number of batches.
type Pipeline struct {
	limits    models.ResourceLimits
	allowed   map[string]bool
	validator *security.Validator
	extractor *extract.Extractor
	guard     *Guard
	tempDir   string
	log       zerolog.Logger
}

// Options bundles the pipeline construction inputs that come from
// configuration.
type Options struct {
	Limits  models.ResourceLimits
	Allowed []string
	TempDir string
}

// New validates the options and wires the pipeline. An allowed extension
// with no registered extractor is a configuration error here, at startup,
// rather than a runtime surprise.
func New(opts Options, validator *security.Validator, extractor *extract.Extractor, log zerolog.Logger) (*Pipeline, error) {
	if opts.Limits.MaxWorkers <= 0 {
		return nil, models.ConfigError("worker count must be positive", nil)
	}
	if opts.Limits.MaxFileSize <= 0 {
		return nil, models.ConfigError("max file size must be positive", nil)
	}
	if validator == nil || extractor == nil {
		return nil, models.ConfigError("pipeline needs a validator and an extractor", nil)
	}

	allowed := make(map[string]bool, len(opts.Allowed))
	for _, ext := range opts.Allowed {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if _, err := extract.FormatFromPath("policy" + ext); err != nil {
			return nil, err
		}
		allowed[ext] = true
	}
	if len(allowed) == 0 {
		return nil, models.ConfigError("allowed extension list is empty", nil)
	}

	return &Pipeline{
		limits:    opts.Limits,
		allowed:   allowed,
		validator: validator,
		extractor: extractor,
		guard:     NewGuard(opts.Limits),
		tempDir:   opts.TempDir,
		log:       log.With().Str("component", "pipeline").Logger(),
	}, nil
}

// ProcessBatch runs every file through the pipeline under the configured
// worker pool and deadlines. The returned map always holds one entry per
// submitted identity; files that fail carry warnings instead of content.
// Duplicate identities collapse to a single entry, last completion wins.
func (p *Pipeline) ProcessBatch(ctx context.Context, files []models.SourceFile) (models.BatchResult, error) {
	result := make(models.BatchResult, len(files))
	if len(files) == 0 {
		return result, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	batchID := uuid.NewString()
	logger := p.log.With().Str("batch_id", batchID).Logger()
	logger.Info().
		Int("files", len(files)).
		Int("workers", p.limits.MaxWorkers).
		Dur("batch_timeout", p.limits.BatchTimeout).
		Msg("starting batch")

	tasks := make([]Task[models.SourceFile], 0, len(files))
	for _, f := range files {
		tasks = append(tasks, Task[models.SourceFile]{ID: f.Name, Payload: f})
	}

	outcomes := RunTasks(ctx, tasks, p.limits.MaxWorkers, p.limits.BatchTimeout, p.limits.TaskTimeout,
		func(ctx context.Context, f models.SourceFile) (models.ExtractionResult, error) {
			return p.processOne(ctx, logger, f), nil
		})

	for id, outcome := range outcomes {
		res := outcome.Value
		if outcome.Err != nil {
			res.Content = ""
			res.Warnings = append(res.Warnings, outcome.Err.Error())
		}
		// A file that produced nothing always says why.
		if res.Content == "" && len(res.Warnings) == 0 {
			res.Warnings = append(res.Warnings, "no text content could be extracted")
		}
		result[id] = res
	}

	logger.Info().
		Int("ok", len(result)-result.Failures()).
		Int("failed", result.Failures()).
		Msg("batch finished")
	return result, nil
}

// processOne runs the staged sequence for a single file. Every failure path
// returns a result with warnings; errors never escape to the pool.
func (p *Pipeline) processOne(ctx context.Context, logger zerolog.Logger, f models.SourceFile) models.ExtractionResult {
	var res models.ExtractionResult
	taskLog := logger.With().Str("task_id", f.ID).Str("file", f.Name).Logger()

	data, err := p.readSource(f)
	if err != nil {
		taskLog.Warn().Err(err).Msg("read failed")
		res.Warnings = append(res.Warnings, err.Error())
		return res
	}

	ext := strings.ToLower(filepath.Ext(f.Name))
	if !p.allowed[ext] {
		res.Warnings = append(res.Warnings, fmt.Sprintf("extension %q is not in the allowed list", ext))
		return res
	}
	format, err := extract.FormatFromPath(f.Name)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		return res
	}

	if err := p.guard.Admit(int64(len(data))); err != nil {
		taskLog.Warn().Err(err).Msg("memory admission refused")
		res.Warnings = append(res.Warnings, err.Error())
		return res
	}
	defer p.guard.Release(int64(len(data)))

	if verdict := p.validator.Validate(f.Name, data); !verdict.Valid {
		taskLog.Warn().Str("reason", verdict.Reason).Msg("validation failed")
		res.Warnings = append(res.Warnings, "validation failed: "+verdict.Reason)
		return res
	}

	tmpPath, cleanup, err := p.stageTemp(f, data)
	if err != nil {
		res.Warnings = append(res.Warnings, err.Error())
		return res
	}
	defer cleanup()

	text, warnings, err := p.extractor.Extract(ctx, tmpPath, format)
	res.Warnings = append(res.Warnings, warnings...)
	if err != nil {
		taskLog.Warn().Err(err).Msg("extraction failed")
		res.Warnings = append(res.Warnings, err.Error())
		return res
	}

	meta, metaWarnings := extract.Describe(tmpPath, format, data)
	res.Metadata = meta
	res.Warnings = append(res.Warnings, metaWarnings...)
	res.Content = text

	taskLog.Debug().Int("chars", len(text)).Str("format", string(format)).Msg("extracted")
	return res
}

// readSource materializes the file bytes, reading lazily from Path when the
// payload was not submitted in memory. The size ceiling is checked against
// the stat before reading, so an oversized file is rejected without loading
// it, and re-checked after.
func (p *Pipeline) readSource(f models.SourceFile) ([]byte, error) {
	data := f.Data
	if data == nil {
		if f.Path == "" {
			return nil, models.ValidationError("source has neither path nor data", nil)
		}
		info, err := os.Stat(f.Path)
		if err != nil {
			return nil, models.ExtractionError("stat source", err)
		}
		if info.Size() > p.limits.MaxFileSize {
			return nil, models.ValidationError(fmt.Sprintf(
				"file size %d exceeds limit %d", info.Size(), p.limits.MaxFileSize), nil)
		}
		data, err = os.ReadFile(f.Path)
		if err != nil {
			return nil, models.ExtractionError("read source", err)
		}
	}
	if int64(len(data)) > p.limits.MaxFileSize {
		return nil, models.ValidationError(fmt.Sprintf(
			"file size %d exceeds limit %d", len(data), p.limits.MaxFileSize), nil)
	}
	return data, nil
}

// stageTemp writes data to a private temp copy (0600) that the extractors
// operate on, so parser code never touches the submitted file. The cleanup
// func removes the copy and runs on every exit path.
func (p *Pipeline) stageTemp(f models.SourceFile, data []byte) (string, func(), error) {
	tmp, err := os.CreateTemp(p.tempDir, "docmill-"+f.ID+"-*"+filepath.Ext(f.Name))
	if err != nil {
		return "", nil, models.ExtractionError("stage temp copy", err)
	}
	path := tmp.Name()
	cleanup := func() { _ = os.Remove(path) }

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, models.ExtractionError("restrict temp copy", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, models.ExtractionError("write temp copy", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, models.ExtractionError("close temp copy", err)
	}
	return path, cleanup, nil
}
