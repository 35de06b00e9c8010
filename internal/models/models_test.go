package models

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSourceFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	f, err := NewSourceFile(path)
	require.NoError(t, err)
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, path, f.Name)
	assert.Equal(t, path, f.Path)
	assert.Equal(t, int64(5), f.Size)
	assert.Nil(t, f.Data)
}

func TestNewSourceFileRejectsDirectory(t *testing.T) {
	_, err := NewSourceFile(t.TempDir())
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestNewSourceFileMissingPath(t *testing.T) {
	_, err := NewSourceFile(filepath.Join(t.TempDir(), "ghost.txt"))
	require.Error(t, err)
	assert.Equal(t, KindValidation, KindOf(err))
}

func TestSourceFileFromBytes(t *testing.T) {
	f := SourceFileFromBytes("upload.pdf", []byte("%PDF-1.4"))
	assert.NotEmpty(t, f.ID)
	assert.Equal(t, "upload.pdf", f.Name)
	assert.Empty(t, f.Path)
	assert.Equal(t, int64(8), f.Size)

	g := SourceFileFromBytes("upload.pdf", []byte("%PDF-1.4"))
	assert.NotEqual(t, f.ID, g.ID, "every submission gets its own identity")
}

func TestExtractionResultFailed(t *testing.T) {
	assert.True(t, ExtractionResult{}.Failed())
	assert.False(t, ExtractionResult{Content: "some text"}.Failed())
}

func TestBatchResultFailures(t *testing.T) {
	batch := BatchResult{
		"a.txt": {Content: "ok"},
		"b.txt": {Warnings: []string{"validation failed: oversized"}},
		"c.txt": {},
	}
	assert.Equal(t, 2, batch.Failures())
	assert.Equal(t, 0, BatchResult{}.Failures())
}

func TestVerdicts(t *testing.T) {
	assert.True(t, Valid().Valid)
	assert.Empty(t, Valid().Reason)

	v := Invalid("malicious pattern: embedded script tag")
	assert.False(t, v.Valid)
	assert.Equal(t, "malicious pattern: embedded script tag", v.Reason)
}
