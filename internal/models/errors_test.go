package models

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConstructorsCarryTheirKind(t *testing.T) {
	tests := []struct {
		name string
		err  *PipelineError
		kind Kind
	}{
		{"validation", ValidationError("bad file", nil), KindValidation},
		{"extraction", ExtractionError("parse failed", nil), KindExtraction},
		{"resource", ResourceError("limit hit", nil), KindResource},
		{"timeout", TimeoutError("too slow", nil), KindTimeout},
		{"config", ConfigError("bad setting", nil), KindConfig},
		{"unavailable", UnavailableError("no ocr", nil), KindUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.kind, KindOf(tt.err))
		})
	}
}

func TestErrorMessageFormat(t *testing.T) {
	plain := ValidationError("size check", nil)
	assert.Equal(t, "validation: size check", plain.Error())

	wrapped := ExtractionError("decode docx", errors.New("unexpected EOF"))
	assert.Equal(t, "extraction: decode docx: unexpected EOF", wrapped.Error())
}

func TestKindOfUnwrapsNestedErrors(t *testing.T) {
	inner := ResourceError("page limit", nil)
	outer := fmt.Errorf("processing report.pdf: %w", inner)

	assert.Equal(t, KindResource, KindOf(outer))
	assert.True(t, IsKind(outer, KindResource))
	assert.False(t, IsKind(outer, KindTimeout))
}

func TestKindOfForeignError(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(errors.New("not ours")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("disk full")
	err := ExtractionError("stage temp copy", cause)
	assert.True(t, errors.Is(err, cause))
}
