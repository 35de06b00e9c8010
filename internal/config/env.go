package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/docmill/docmill/internal/models"
)

type Config struct {
	MaxFileSizeMB     int
	MaxPages          int
	ParallelWorkers   int
	MaxWorkerMemoryMB int
	BatchTimeout      time.Duration
	TaskTimeout       time.Duration
	MinNativeText     int
	OCRDPI            int
	OCRLanguage       string
	ChunkSize         int
	ChunkOverlap      int
	MinChunkLength    int
	AllowedExtensions []string
	PlainTables       bool
	TempDir           string
	LogLevel          string
}

// Load reads the environment (and an optional .env file) and returns the
// configuration with defaults applied. Call Validate before handing the
// result to the engine.
func Load() *Config {

	_ = godotenv.Load()

	cfg := &Config{
		MaxFileSizeMB:     getEnvInt("MAX_FILE_SIZE_MB", 100),
		MaxPages:          getEnvInt("MAX_PAGES", 800),
		ParallelWorkers:   getEnvInt("PARALLEL_WORKERS", 4),
		MaxWorkerMemoryMB: getEnvInt("MAX_WORKER_MEMORY_MB", 1024),
		BatchTimeout:      time.Duration(getEnvInt("BATCH_TIMEOUT_SECONDS", 300)) * time.Second,
		TaskTimeout:       time.Duration(getEnvInt("TASK_TIMEOUT_SECONDS", 120)) * time.Second,
		MinNativeText:     getEnvInt("MIN_NATIVE_TEXT", 50),
		OCRDPI:            getEnvInt("OCR_DPI", 300),
		OCRLanguage:       getEnv("OCR_LANGUAGE", "eng"),
		ChunkSize:         getEnvInt("CHUNK_SIZE", 2000),
		ChunkOverlap:      getEnvInt("CHUNK_OVERLAP", 400),
		MinChunkLength:    getEnvInt("MIN_CHUNK_LENGTH", 100),
		AllowedExtensions: getEnvList("ALLOWED_EXTENSIONS", ".pdf,.docx,.txt,.png,.jpg,.jpeg,.csv,.xlsx"),
		PlainTables:       getEnvBool("PLAIN_TABLES", false),
		TempDir:           getEnv("TEMP_DIR", ""),
		LogLevel:          getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Validate rejects configurations the engine cannot run with. Any error here
// is fatal at startup.
func (c *Config) Validate() error {
	if c.MaxFileSizeMB <= 0 {
		return models.ConfigError("MAX_FILE_SIZE_MB must be positive", nil)
	}
	if c.MaxPages <= 0 {
		return models.ConfigError("MAX_PAGES must be positive", nil)
	}
	if c.ParallelWorkers <= 0 {
		return models.ConfigError("PARALLEL_WORKERS must be positive", nil)
	}
	if c.MaxWorkerMemoryMB <= 0 {
		return models.ConfigError("MAX_WORKER_MEMORY_MB must be positive", nil)
	}
	if c.MinNativeText < 0 {
		return models.ConfigError("MIN_NATIVE_TEXT cannot be negative", nil)
	}
	if c.OCRDPI < 72 {
		return models.ConfigError("OCR_DPI below 72 produces unusable rasters", nil)
	}
	if c.ChunkSize <= 0 {
		return models.ConfigError("CHUNK_SIZE must be positive", nil)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return models.ConfigError("CHUNK_OVERLAP must be in [0, CHUNK_SIZE)", nil)
	}
	if len(c.AllowedExtensions) == 0 {
		return models.ConfigError("ALLOWED_EXTENSIONS is empty", nil)
	}
	for _, ext := range c.AllowedExtensions {
		if !strings.HasPrefix(ext, ".") {
			return models.ConfigError(fmt.Sprintf("allowed extension %q must start with a dot", ext), nil)
		}
	}
	return nil
}

// Limits converts the size fields to bytes and packs the batch bounds for
// the pipeline.
func (c *Config) Limits() models.ResourceLimits {
	return models.ResourceLimits{
		MaxFileSize:     int64(c.MaxFileSizeMB) << 20,
		MaxPages:        c.MaxPages,
		MaxWorkers:      c.ParallelWorkers,
		MaxWorkerMemory: int64(c.MaxWorkerMemoryMB) << 20,
		BatchTimeout:    c.BatchTimeout,
		TaskTimeout:     c.TaskTimeout,
	}
}

// Helper to read environment variables with a default fallback
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		log.Printf("WARN: %s=%q not an int, using default %d", key, v, def)
		return def
	}
	return n
}

func getEnvBool(key string, def bool) bool {
	v := getEnv(key, "")
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		log.Printf("WARN: %s=%q not a bool, using default %t", key, v, def)
		return def
	}
	return b
}

// getEnvList splits a comma-separated value, trimming and lowercasing each
// entry and dropping empties.
func getEnvList(key, def string) []string {
	v := getEnv(key, def)
	var out []string
	for _, item := range strings.Split(v, ",") {
		item = strings.ToLower(strings.TrimSpace(item))
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
