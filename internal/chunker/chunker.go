// Package chunker splits cleaned document text into overlapping fixed-size
// segments for embedding. A single sliding-window strategy is used for all
// ingestion paths: it bounds the chunk count for arbitrarily long documents
// and has no sentence-detection edge cases.
package chunker

import (
	"errors"
	"strings"
)

const (
	DefaultSize    = 1000
	DefaultOverlap = 200
	// DefaultMinLen discards trailing fragments too short to be useful
	// retrieval units.
	DefaultMinLen = 50
)

type Options struct {
	Size    int
	Overlap int
	MinLen  int
}

func (o Options) withDefaults() Options {
	if o.Size <= 0 {
		o.Size = DefaultSize
	}
	if o.Overlap < 0 {
		o.Overlap = DefaultOverlap
	}
	if o.MinLen <= 0 {
		o.MinLen = DefaultMinLen
	}
	return o
}

// Normalize collapses all runs of whitespace to single spaces and trims the
// ends. Chunking always operates on normalized text.
func Normalize(text string) string {
	return strings.Join(strings.Fields(text), " ")
}

// Split slides a window of opts.Size over the normalized text, stepping by
// Size-Overlap, so each chunk shares its first Overlap characters with the
// previous one. Fragments shorter than MinLen are dropped as noise.
func Split(text string, opts Options) ([]string, error) {
	opts = opts.withDefaults()
	if opts.Overlap >= opts.Size {
		return nil, errors.New("chunker: overlap must be smaller than size")
	}

	text = Normalize(text)
	n := len(text)
	if n == 0 {
		return nil, nil
	}
	if n <= opts.Size {
		if n < opts.MinLen {
			return nil, nil
		}
		return []string{text}, nil
	}

	step := opts.Size - opts.Overlap
	var chunks []string
	for start := 0; start < n; start += step {
		end := start + opts.Size
		if end > n {
			end = n
		}
		if end-start >= opts.MinLen {
			chunks = append(chunks, text[start:end])
		}
		if end == n {
			break
		}
	}
	return chunks, nil
}
