package chunk

import (
	"context"
	"strings"

	"github.com/docmill/docmill/internal/models"
)

// Chunk is one window of source text.
//
// Text:   the window content, never longer than ChunkSize.
// Offset: byte offset of Text within the input handed to Split, so callers
//         can verify coverage or map a chunk back to its source.
// Tokens: rough token estimate (~4 chars per token) for embedding budgets.
type Chunk struct {
	Text   string `json:"text"`
	Offset int    `json:"offset"`
	Tokens int    `json:"tokens"`
}

// Config carries the splitter tunables.
//
// ChunkSize:          hard capacity per chunk, in bytes of text.
// ChunkOverlap:       how much of a chunk's tail reopens the next one.
// MinChunkLen:        chunks at or under this length are dropped as noise;
//                     zero keeps everything non-empty.
// MaxUnderscoreRatio: chunks with a higher '_' proportion are dropped
//                     (form-field rows); zero disables the check.
// MaxPeriodRatio:     chunks with a higher '.' proportion are dropped
//                     (dot leaders, TOC artifacts); zero disables the check.
// Separators:         split points in priority order; the empty string means
//                     a hard cut and is always honored last.
type Config struct {
	ChunkSize          int
	ChunkOverlap       int
	MinChunkLen        int
	MaxUnderscoreRatio float64
	MaxPeriodRatio     float64
	Separators         []string
}

// DefaultConfig returns the production defaults.
func DefaultConfig() Config {
	return Config{
		ChunkSize:          2000,
		ChunkOverlap:       400,
		MinChunkLen:        100,
		MaxUnderscoreRatio: 0.3,
		MaxPeriodRatio:     0.1,
		Separators:         []string{"\n\n", "\n", ". ", " ", ""},
	}
}

// Splitter cuts normalized text into bounded, overlapping chunks. It is
// stateless: the same input and config always regenerate the same chunks.
type Splitter struct {
	cfg Config
}

func NewSplitter(cfg Config) (*Splitter, error) {
	if cfg.ChunkSize <= 0 {
		return nil, models.ConfigError("chunk size must be positive", nil)
	}
	if cfg.ChunkOverlap < 0 || cfg.ChunkOverlap >= cfg.ChunkSize {
		return nil, models.ConfigError("chunk overlap must be in [0, chunk size)", nil)
	}
	if cfg.MaxUnderscoreRatio < 0 || cfg.MaxUnderscoreRatio > 1 {
		return nil, models.ConfigError("underscore ratio must be in [0, 1]", nil)
	}
	if cfg.MaxPeriodRatio < 0 || cfg.MaxPeriodRatio > 1 {
		return nil, models.ConfigError("period ratio must be in [0, 1]", nil)
	}
	if len(cfg.Separators) == 0 {
		cfg.Separators = DefaultConfig().Separators
	}
	return &Splitter{cfg: cfg}, nil
}

// Split cuts text into chunks of at most ChunkSize bytes, consecutive chunks
// sharing roughly ChunkOverlap bytes, then drops chunks that fail the noise
// filter. Before filtering, chunk offsets cover the input with no gaps.
// Empty or whitespace-only input yields no chunks.
func (s *Splitter) Split(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	assembled := s.assemble(s.fragments(text, s.cfg.Separators))
	out := assembled[:0]
	for _, c := range assembled {
		if s.keep(c.Text) {
			out = append(out, c)
		}
	}
	return out
}

// Stream delivers chunks over a channel so large documents can be consumed
// lazily; the channel closes when the text is exhausted or ctx is cancelled.
// Restarting is just calling Stream again: regeneration is deterministic.
func (s *Splitter) Stream(ctx context.Context, text string) <-chan Chunk {
	out := make(chan Chunk, 8)
	go func() {
		defer close(out)
		for _, c := range s.Split(text) {
			select {
			case out <- c:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// fragments cuts text into ordered pieces no longer than ChunkSize using the
// highest-priority separator that applies at each level. Separators stay
// attached to the piece they end, so concatenating the fragments restores
// the input exactly.
func (s *Splitter) fragments(text string, seps []string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= s.cfg.ChunkSize {
		return []string{text}
	}
	if len(seps) == 0 || seps[0] == "" {
		return hardCut(text, s.cfg.ChunkSize)
	}

	sep, rest := seps[0], seps[1:]
	var out []string
	for _, p := range strings.SplitAfter(text, sep) {
		if p == "" {
			continue
		}
		if len(p) > s.cfg.ChunkSize {
			out = append(out, s.fragments(p, rest)...)
		} else {
			out = append(out, p)
		}
	}
	return out
}

// hardCut is the last resort for unbroken runs: fixed-width slices.
func hardCut(text string, size int) []string {
	out := make([]string, 0, len(text)/size+1)
	for len(text) > size {
		out = append(out, text[:size])
		text = text[size:]
	}
	if text != "" {
		out = append(out, text)
	}
	return out
}

// assemble merges fragments greedily up to ChunkSize, reopening each new
// chunk with the previous chunk's tail fragments up to ChunkOverlap. Offsets
// are tracked so consecutive chunks provably overlap or abut.
func (s *Splitter) assemble(frags []string) []Chunk {
	var chunks []Chunk
	var window []string
	winLen, winStart := 0, 0

	for _, f := range frags {
		if winLen > 0 && winLen+len(f) > s.cfg.ChunkSize {
			chunks = append(chunks, s.newChunk(strings.Join(window, ""), winStart))
			// Shed leading fragments until the tail fits the overlap budget
			// and leaves room for f.
			for winLen > 0 && (winLen > s.cfg.ChunkOverlap || winLen+len(f) > s.cfg.ChunkSize) {
				winStart += len(window[0])
				winLen -= len(window[0])
				window = window[1:]
			}
		}
		window = append(window, f)
		winLen += len(f)
	}
	if winLen > 0 {
		chunks = append(chunks, s.newChunk(strings.Join(window, ""), winStart))
	}
	return chunks
}

func (s *Splitter) newChunk(text string, offset int) Chunk {
	return Chunk{Text: text, Offset: offset, Tokens: approxTokens(text)}
}

// keep reports whether a chunk carries signal worth keeping: long enough,
// and not dominated by underscore or period runs.
func (s *Splitter) keep(text string) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) <= s.cfg.MinChunkLen {
		return false
	}
	if s.cfg.MaxUnderscoreRatio > 0 && charRatio(trimmed, '_') > s.cfg.MaxUnderscoreRatio {
		return false
	}
	if s.cfg.MaxPeriodRatio > 0 && charRatio(trimmed, '.') > s.cfg.MaxPeriodRatio {
		return false
	}
	return true
}

func charRatio(text string, c byte) float64 {
	if text == "" {
		return 0
	}
	n := 0
	for i := 0; i < len(text); i++ {
		if text[i] == c {
			n++
		}
	}
	return float64(n) / float64(len(text))
}

// approxTokens estimates tokens at ~4 chars per token, close enough for
// embedding batch budgets.
func approxTokens(text string) int {
	return (len(text) + 3) / 4
}
