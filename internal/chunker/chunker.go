// Package chunker splits raw document text into overlapping fixed-size
// segments suitable for embedding and retrieval.
package chunker

import (
	"strings"
)

const (
	// DefaultChunkSize is the maximum chunk length in runes.
	DefaultChunkSize = 1000

	// DefaultOverlap is the number of runes shared between adjacent chunks.
	DefaultOverlap = 200
)

// Options controls chunk sizing. Zero values fall back to the defaults.
type Options struct {
	ChunkSize int
	Overlap   int
}

func (o Options) normalized() Options {
	if o.ChunkSize <= 0 {
		o.ChunkSize = DefaultChunkSize
	}
	if o.Overlap < 0 {
		o.Overlap = 0
	}
	// The boundary search never cuts before the window midpoint, so the
	// overlap must not reach past it or chunking would stop advancing.
	if o.Overlap > o.ChunkSize/2 {
		o.Overlap = o.ChunkSize / 2
	}
	return o
}

// Split breaks text into ordered chunks of at most ChunkSize runes where
// each chunk starts exactly Overlap runes before the end of the previous
// one. Chunk ends prefer paragraph breaks, then sentence ends, within the
// second half of the window. Splitting is deterministic: the same text and
// options always produce the same sequence.
//
// Whitespace-only input yields no chunks; rejecting such documents is the
// ingestion layer's job.
func Split(text string, opts Options) []string {
	opts = opts.normalized()

	if strings.TrimSpace(text) == "" {
		return nil
	}

	runes := []rune(text)
	if len(runes) <= opts.ChunkSize {
		return []string{text}
	}

	var chunks []string
	start := 0
	for {
		end := start + opts.ChunkSize
		if end >= len(runes) {
			chunks = append(chunks, string(runes[start:]))
			break
		}
		cut := boundaryCut(runes, start, end)
		chunks = append(chunks, string(runes[start:cut]))
		start = cut - opts.Overlap
	}
	return chunks
}

// boundaryCut picks where the chunk covering runes[start:end] should stop.
// It scans backwards from end to the window midpoint for a paragraph break,
// then for a sentence end, and falls back to a hard cut at end. The cut is
// always strictly past the midpoint, which keeps the next start ahead of
// the current one.
func boundaryCut(runes []rune, start, end int) int {
	mid := start + (end-start)/2

	for i := end; i > mid; i-- {
		if runes[i-1] == '\n' && i >= 2 && runes[i-2] == '\n' {
			return i
		}
	}
	for i := end; i > mid; i-- {
		r := runes[i-1]
		if r == '\n' {
			return i
		}
		if (r == ' ' || r == '\t') && i >= 2 && isSentenceEnd(runes[i-2]) {
			return i
		}
	}
	return end
}

func isSentenceEnd(r rune) bool {
	switch r {
	case '.', '!', '?':
		return true
	}
	return false
}
