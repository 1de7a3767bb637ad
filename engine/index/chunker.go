// Package index builds and queries the compliance document index: chunking,
// embedding, and vector search over an in-memory or Qdrant backend.
package index

import (
	"strings"
	"unicode"

	"github.com/RegPulseAI/regpulse/engine/domain"
)

const (
	// DefaultChunkSize is the target number of tokens per chunk.
	DefaultChunkSize = 512
	// DefaultOverlap is the number of overlapping tokens between chunks.
	DefaultOverlap = 50
)

// Document is a source compliance document before chunking.
type Document struct {
	ID           string
	Title        string
	Section      string
	Jurisdiction string
	Text         string
}

// Chunker splits documents at sentence boundaries under a token budget.
type Chunker struct {
	chunkSize int
	overlap   int
}

// NewChunker creates a chunker; non-positive arguments use the defaults.
func NewChunker(chunkSize, overlap int) *Chunker {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if overlap < 0 {
		overlap = DefaultOverlap
	}
	return &Chunker{chunkSize: chunkSize, overlap: overlap}
}

// Chunk splits a document into embedded-ready chunks. Chunk indexes are
// contiguous from 0; empty documents yield no chunks.
func (c *Chunker) Chunk(doc Document) []domain.DocumentChunk {
	sentences := splitSentences(doc.Text)
	if len(sentences) == 0 {
		return nil
	}

	meta := domain.ChunkMeta{
		SourceDocTitle: doc.Title,
		Section:        doc.Section,
		Jurisdiction:   doc.Jurisdiction,
	}

	var chunks []domain.DocumentChunk
	idx := 0
	start := 0

	for start < len(sentences) {
		var buf strings.Builder
		tokens := 0
		end := start

		for end < len(sentences) {
			words := wordCount(sentences[end])
			if tokens+words > c.chunkSize && tokens > 0 {
				break
			}
			if buf.Len() > 0 {
				buf.WriteRune(' ')
			}
			buf.WriteString(sentences[end])
			tokens += words
			end++
		}

		chunks = append(chunks, domain.DocumentChunk{
			DocID:      doc.ID,
			ChunkIndex: idx,
			Text:       buf.String(),
			Meta:       meta,
		})
		idx++

		// Back start up by the overlap budget, guaranteeing progress.
		overlapTokens := 0
		newStart := end
		for newStart > start && overlapTokens < c.overlap {
			newStart--
			overlapTokens += wordCount(sentences[newStart])
		}
		if newStart == start {
			start = end
		} else {
			start = newStart
		}
	}
	return chunks
}

// splitSentences splits text into sentences using punctuation and newlines.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			if r == '\n' || i == len(text)-1 || (i+1 < len(text) && unicode.IsSpace(rune(text[i+1]))) {
				s := strings.TrimSpace(current.String())
				if s != "" {
					sentences = append(sentences, s)
				}
				current.Reset()
			}
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

func wordCount(s string) int {
	return len(strings.Fields(s))
}
