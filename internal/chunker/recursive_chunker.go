package chunker

import (
	"strings"
	"unicode/utf8"

	"syllabus-rag/internal/domain"
)

const (
	DefaultChunkSize    = 10000
	DefaultChunkOverlap = 1000
)

// defaultSeparators are tried in order; the first one found inside the
// cut window decides where a chunk ends.
var defaultSeparators = []string{"\n\n", "\n", ". ", " "}

// RecursiveChunker splits text into chunks of at most chunkSize characters.
// Consecutive chunks share exactly overlap characters, so the chunks always
// reassemble into the original text.
type RecursiveChunker struct {
	chunkSize  int
	overlap    int
	separators []string
}

func NewRecursiveChunker(chunkSize, overlap int) *RecursiveChunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= chunkSize {
		overlap = chunkSize / 10
	}
	return &RecursiveChunker{
		chunkSize:  chunkSize,
		overlap:    overlap,
		separators: defaultSeparators,
	}
}

// Size returns the configured maximum chunk length in characters.
func (c *RecursiveChunker) Size() int { return c.chunkSize }

// Overlap returns the configured overlap in characters.
func (c *RecursiveChunker) Overlap() int { return c.overlap }

func (c *RecursiveChunker) Chunk(document domain.Document) ([]domain.Chunk, error) {
	if strings.TrimSpace(document.Content) == "" {
		return nil, nil
	}
	text := []rune(document.Content)
	var chunks []domain.Chunk
	start := 0
	for idx := 0; ; idx++ {
		end := start + c.chunkSize
		if end >= len(text) {
			chunks = append(chunks, domain.Chunk{Index: idx, Text: string(text[start:])})
			break
		}
		end = c.cutPoint(text, start, end)
		chunks = append(chunks, domain.Chunk{Index: idx, Text: string(text[start:end])})
		start = end - c.overlap
	}
	return chunks, nil
}

// cutPoint returns the end of the chunk starting at start. The result is
// always greater than start+overlap so the next chunk makes progress.
func (c *RecursiveChunker) cutPoint(text []rune, start, end int) int {
	lo := start + c.overlap + 1
	window := string(text[lo:end])
	for _, sep := range c.separators {
		pos := strings.LastIndex(window, sep)
		if pos < 0 {
			continue
		}
		return lo + utf8.RuneCountInString(window[:pos+len(sep)])
	}
	return end
}
