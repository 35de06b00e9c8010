package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var configKeys = []string{
	"MAX_FILE_SIZE_MB", "MAX_PAGES", "PARALLEL_WORKERS", "MAX_WORKER_MEMORY_MB",
	"BATCH_TIMEOUT_SECONDS", "TASK_TIMEOUT_SECONDS", "MIN_NATIVE_TEXT",
	"OCR_DPI", "OCR_LANGUAGE", "CHUNK_SIZE", "CHUNK_OVERLAP", "MIN_CHUNK_LENGTH",
	"ALLOWED_EXTENSIONS", "PLAIN_TABLES", "TEMP_DIR", "LOG_LEVEL",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range configKeys {
		// t.Setenv registers the restore, then the unset gives Load a clean
		// environment for this test.
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func validConfig() *Config {
	return &Config{
		MaxFileSizeMB:     100,
		MaxPages:          800,
		ParallelWorkers:   4,
		MaxWorkerMemoryMB: 1024,
		BatchTimeout:      5 * time.Minute,
		TaskTimeout:       2 * time.Minute,
		MinNativeText:     50,
		OCRDPI:            300,
		OCRLanguage:       "eng",
		ChunkSize:         2000,
		ChunkOverlap:      400,
		MinChunkLength:    100,
		AllowedExtensions: []string{".pdf", ".txt"},
		LogLevel:          "info",
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg := Load()

	assert.Equal(t, 100, cfg.MaxFileSizeMB)
	assert.Equal(t, 800, cfg.MaxPages)
	assert.Equal(t, 4, cfg.ParallelWorkers)
	assert.Equal(t, 1024, cfg.MaxWorkerMemoryMB)
	assert.Equal(t, 5*time.Minute, cfg.BatchTimeout)
	assert.Equal(t, 2*time.Minute, cfg.TaskTimeout)
	assert.Equal(t, 50, cfg.MinNativeText)
	assert.Equal(t, 300, cfg.OCRDPI)
	assert.Equal(t, "eng", cfg.OCRLanguage)
	assert.Equal(t, 2000, cfg.ChunkSize)
	assert.Equal(t, 400, cfg.ChunkOverlap)
	assert.Equal(t, 100, cfg.MinChunkLength)
	assert.Equal(t, []string{".pdf", ".docx", ".txt", ".png", ".jpg", ".jpeg", ".csv", ".xlsx"}, cfg.AllowedExtensions)
	assert.False(t, cfg.PlainTables)
	assert.Empty(t, cfg.TempDir)
	assert.Equal(t, "info", cfg.LogLevel)

	assert.NoError(t, cfg.Validate())
}

func TestLoadOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_FILE_SIZE_MB", "5")
	t.Setenv("PARALLEL_WORKERS", "2")
	t.Setenv("BATCH_TIMEOUT_SECONDS", "10")
	t.Setenv("OCR_LANGUAGE", "deu")
	t.Setenv("ALLOWED_EXTENSIONS", " .PDF, .txt ,,")
	t.Setenv("PLAIN_TABLES", "true")

	cfg := Load()
	assert.Equal(t, 5, cfg.MaxFileSizeMB)
	assert.Equal(t, 2, cfg.ParallelWorkers)
	assert.Equal(t, 10*time.Second, cfg.BatchTimeout)
	assert.Equal(t, "deu", cfg.OCRLanguage)
	assert.Equal(t, []string{".pdf", ".txt"}, cfg.AllowedExtensions, "entries are trimmed, lowercased, empties dropped")
	assert.True(t, cfg.PlainTables)
}

func TestLoadBadValuesFallBack(t *testing.T) {
	clearEnv(t)
	t.Setenv("MAX_PAGES", "lots")
	t.Setenv("PLAIN_TABLES", "yup")

	cfg := Load()
	assert.Equal(t, 800, cfg.MaxPages)
	assert.False(t, cfg.PlainTables)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"zero file size", func(c *Config) { c.MaxFileSizeMB = 0 }, "MAX_FILE_SIZE_MB"},
		{"zero pages", func(c *Config) { c.MaxPages = 0 }, "MAX_PAGES"},
		{"zero workers", func(c *Config) { c.ParallelWorkers = 0 }, "PARALLEL_WORKERS"},
		{"zero worker memory", func(c *Config) { c.MaxWorkerMemoryMB = 0 }, "MAX_WORKER_MEMORY_MB"},
		{"negative native text", func(c *Config) { c.MinNativeText = -1 }, "MIN_NATIVE_TEXT"},
		{"dpi too low", func(c *Config) { c.OCRDPI = 60 }, "OCR_DPI"},
		{"zero chunk size", func(c *Config) { c.ChunkSize = 0 }, "CHUNK_SIZE"},
		{"overlap not below size", func(c *Config) { c.ChunkOverlap = c.ChunkSize }, "CHUNK_OVERLAP"},
		{"negative overlap", func(c *Config) { c.ChunkOverlap = -1 }, "CHUNK_OVERLAP"},
		{"no extensions", func(c *Config) { c.AllowedExtensions = nil }, "ALLOWED_EXTENSIONS"},
		{"extension without dot", func(c *Config) { c.AllowedExtensions = []string{"pdf"} }, "must start with a dot"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestLimitsConversion(t *testing.T) {
	cfg := validConfig()
	cfg.MaxFileSizeMB = 2
	cfg.MaxWorkerMemoryMB = 512

	limits := cfg.Limits()
	assert.Equal(t, int64(2<<20), limits.MaxFileSize)
	assert.Equal(t, int64(512<<20), limits.MaxWorkerMemory)
	assert.Equal(t, cfg.MaxPages, limits.MaxPages)
	assert.Equal(t, cfg.ParallelWorkers, limits.MaxWorkers)
	assert.Equal(t, cfg.BatchTimeout, limits.BatchTimeout)
	assert.Equal(t, cfg.TaskTimeout, limits.TaskTimeout)
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("DOCMILL_TEST_STR", "value")
	assert.Equal(t, "value", getEnv("DOCMILL_TEST_STR", "fallback"))
	assert.Equal(t, "fallback", getEnv("DOCMILL_TEST_STR_ABSENT", "fallback"))

	t.Setenv("DOCMILL_TEST_INT", "42")
	assert.Equal(t, 42, getEnvInt("DOCMILL_TEST_INT", 7))
	t.Setenv("DOCMILL_TEST_INT", "4.2")
	assert.Equal(t, 7, getEnvInt("DOCMILL_TEST_INT", 7))

	t.Setenv("DOCMILL_TEST_BOOL", "1")
	assert.True(t, getEnvBool("DOCMILL_TEST_BOOL", false))

	t.Setenv("DOCMILL_TEST_LIST", "A, b ,c,")
	assert.Equal(t, []string{"a", "b", "c"}, getEnvList("DOCMILL_TEST_LIST", ""))
}
