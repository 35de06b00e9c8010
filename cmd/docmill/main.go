package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/docmill/docmill/internal/app"
	"github.com/docmill/docmill/internal/config"
	"github.com/docmill/docmill/internal/models"
)

var (
	dirPath    string
	outputPath string
	withChunks bool
	verbose    bool
)

func init() {
	flag.StringVar(&dirPath, "dir", "", "Process every supported file in a directory (non-recursive)")
	flag.StringVar(&outputPath, "o", "", "Write the JSON report to a file instead of stdout")
	flag.BoolVar(&withChunks, "chunks", false, "Include chunk count and a first-chunk preview per file")
	flag.BoolVar(&verbose, "verbose", false, "Enable debug logging")
	flag.Usage = usage
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: docmill [flags] <file>...\n\n")
	fmt.Fprintf(os.Stderr, "Extracts clean text and metadata from documents (PDF, DOCX, TXT, CSV, XLSX, images).\n\n")
	fmt.Fprintf(os.Stderr, "Flags:\n")
	flag.PrintDefaults()
}

func main() {
	flag.Parse()

	cfg := config.Load()

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if verbose {
		level = zerolog.DebugLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(level).With().Timestamp().Logger()

	application, err := app.New(cfg, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid configuration")
	}

	files, err := collectSources(flag.Args(), dirPath, cfg.AllowedExtensions)
	if err != nil {
		logger.Fatal().Err(err).Msg("could not resolve inputs")
	}
	if len(files) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigCh
		logger.Warn().Msg("interrupt received, cancelling batch")
		cancel()
	}()

	batch, err := application.Pipeline.ProcessBatch(ctx, files)
	if err != nil {
		logger.Fatal().Err(err).Msg("batch failed")
	}

	report := buildReport(application, batch)
	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		logger.Fatal().Err(err).Msg("could not encode report")
	}

	if outputPath != "" {
		if err := os.WriteFile(outputPath, out, 0o644); err != nil {
			logger.Fatal().Err(err).Msg("could not write report")
		}
		logger.Info().Str("path", outputPath).Msg("report written")
	} else {
		fmt.Println(string(out))
	}

	if batch.Failures() == len(batch) {
		os.Exit(1)
	}
}

// collectSources resolves the positional arguments, plus the -dir listing
// when given, into batch sources. Directory listings are filtered by the
// allowed-extension policy; explicit arguments are passed through and left
// to the pipeline to judge.
func collectSources(args []string, dir string, allowedExts []string) ([]models.SourceFile, error) {
	var files []models.SourceFile
	for _, arg := range args {
		f, err := models.NewSourceFile(arg)
		if err != nil {
			return nil, err
		}
		files = append(files, f)
	}

	if dir != "" {
		allowed := make(map[string]bool, len(allowedExts))
		for _, ext := range allowedExts {
			allowed[ext] = true
		}
		entries, err := os.ReadDir(dir)
		if err != nil {
			return nil, err
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			if !allowed[strings.ToLower(filepath.Ext(entry.Name()))] {
				continue
			}
			f, err := models.NewSourceFile(filepath.Join(dir, entry.Name()))
			if err != nil {
				return nil, err
			}
			files = append(files, f)
		}
	}
	return files, nil
}

// fileReport is one entry of the JSON report; chunk fields only appear with
// -chunks.
type fileReport struct {
	models.ExtractionResult
	Chunks     int    `json:"chunks,omitempty"`
	FirstChunk string `json:"first_chunk,omitempty"`
}

func buildReport(application *app.App, batch models.BatchResult) map[string]fileReport {
	report := make(map[string]fileReport, len(batch))
	for name, res := range batch {
		entry := fileReport{ExtractionResult: res}
		if withChunks && res.Content != "" {
			chunks := application.Splitter.Split(res.Content)
			entry.Chunks = len(chunks)
			if len(chunks) > 0 {
				preview := chunks[0].Text
				if len(preview) > 200 {
					preview = preview[:200]
				}
				entry.FirstChunk = preview
			}
		}
		report[name] = entry
	}
	return report
}
