package models

import (
	"os"
	"time"

	"github.com/google/uuid"
)

// SourceFile identifies one file submitted to a batch. Exactly one of Path or
// Data carries the content: Path-backed files are read lazily by the worker
// that processes them, Data-backed files come from callers that already hold
// the bytes (e.g. an upload handler). Treated as read-only once submitted.
type SourceFile struct {
	ID   string `json:"id"`             // generated, used for temp naming and log correlation
	Name string `json:"name"`           // submitted identity: path or filename
	Path string `json:"path,omitempty"` // on-disk location, read lazily
	Data []byte `json:"-"`              // in-memory payload, not serialized
	Size int64  `json:"size"`
}

// NewSourceFile builds a Path-backed source from a local file. The file is
// stat'ed for its size but not read until a worker picks it up.
func NewSourceFile(path string) (SourceFile, error) {
	info, err := os.Stat(path)
	if err != nil {
		return SourceFile{}, ValidationError("stat source file", err)
	}
	if info.IsDir() {
		return SourceFile{}, ValidationError("source is a directory: "+path, nil)
	}
	return SourceFile{
		ID:   uuid.NewString(),
		Name: path,
		Path: path,
		Size: info.Size(),
	}, nil
}

// SourceFileFromBytes builds a Data-backed source for callers that already
// hold the file content in memory.
func SourceFileFromBytes(name string, data []byte) SourceFile {
	return SourceFile{
		ID:   uuid.NewString(),
		Name: name,
		Data: data,
		Size: int64(len(data)),
	}
}

// Metadata describes one processed file.
type Metadata struct {
	Format    string    `json:"format"` // extension without the dot
	SizeBytes int64     `json:"size_bytes"`
	Created   time.Time `json:"created,omitzero"`
	Modified  time.Time `json:"modified,omitzero"`
	Pages     int       `json:"pages,omitempty"` // PDF only
	Author    string    `json:"author,omitempty"`
	Title     string    `json:"title,omitempty"`
	SHA256    string    `json:"sha256,omitempty"` // hex digest of the raw bytes
}

// ExtractionResult is the per-file outcome of a batch. Content holds the
// normalized text, empty when the file produced nothing usable; Warnings
// accumulate in stage order. An empty Content always comes with at least
// one warning.
type ExtractionResult struct {
	Content  string   `json:"content"`
	Metadata Metadata `json:"metadata"`
	Warnings []string `json:"warnings,omitempty"`
}

// Failed reports whether the file produced no usable text.
func (r ExtractionResult) Failed() bool { return r.Content == "" }

// ValidationVerdict is the outcome of the security screen. Reason names the
// failed check category, never the matched payload.
type ValidationVerdict struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason,omitempty"`
}

// Valid is the passing verdict.
func Valid() ValidationVerdict { return ValidationVerdict{Valid: true} }

// Invalid is a failing verdict with the category of the failed check.
func Invalid(reason string) ValidationVerdict {
	return ValidationVerdict{Valid: false, Reason: reason}
}

// BatchResult maps submitted file identities to their outcomes. Keys are
// exactly the identities handed to ProcessBatch; failed files appear as
// entries with warnings, never as missing keys.
type BatchResult map[string]ExtractionResult

// Failures counts entries that produced no usable text.
func (b BatchResult) Failures() int {
	n := 0
	for _, r := range b {
		if r.Failed() {
			n++
		}
	}
	return n
}

// ResourceLimits bounds one batch run. Read-only after construction; the
// pipeline and its workers share a single value.
//
// MaxFileSize:     per-file byte ceiling, enforced before and after read.
// MaxPages:        PDF page-count ceiling, enforced before heavy parsing.
// MaxWorkers:      parallel worker count for the batch pool.
// MaxWorkerMemory: advisory per-worker memory ceiling in bytes.
// BatchTimeout:    wall-clock bound for one ProcessBatch call.
// TaskTimeout:     per-file bound inside the batch; zero disables it.
type ResourceLimits struct {
	MaxFileSize     int64
	MaxPages        int
	MaxWorkers      int
	MaxWorkerMemory int64
	BatchTimeout    time.Duration
	TaskTimeout     time.Duration
}
