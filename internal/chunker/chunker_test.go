package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	assert.Equal(t, "a b c", Normalize("  a\t\tb\n\nc  "))
	assert.Equal(t, "", Normalize(" \n\t "))
}

func TestSplitShortText(t *testing.T) {
	chunks, err := Split("hello world, this is a short but not too short text.", Options{Size: 100, Overlap: 20, MinLen: 10})
	require.NoError(t, err)
	require.Len(t, chunks, 1)
}

func TestSplitBelowMinimumDropped(t *testing.T) {
	chunks, err := Split("tiny", Options{Size: 100, Overlap: 20, MinLen: 50})
	require.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestSplitInvalidOverlap(t *testing.T) {
	_, err := Split("whatever", Options{Size: 100, Overlap: 100, MinLen: 10})
	require.Error(t, err)
}

func TestSplitWindowsAndOverlap(t *testing.T) {
	text := strings.Repeat("a", 2600)
	chunks, err := Split(text, Options{Size: 1000, Overlap: 200, MinLen: 50})
	require.NoError(t, err)
	// windows 0:1000, 800:1800, 1600:2600
	require.Len(t, chunks, 3)
	for _, c := range chunks {
		assert.Len(t, c, 1000)
	}
}

// A text longer than an exact window cover gets one extra final window:
// 3000 chars at 1000/200 steps 0, 800, 1600, 2400, with the last window
// ending at the text end.
func TestSplitEmitsFinalPartialWindow(t *testing.T) {
	text := strings.Repeat("a", 3000)
	chunks, err := Split(text, Options{Size: 1000, Overlap: 200, MinLen: 50})
	require.NoError(t, err)
	require.Len(t, chunks, 4)
	for _, c := range chunks[:3] {
		assert.Len(t, c, 1000)
	}
	assert.Len(t, chunks[3], 600)
}

func TestSplitNoFragmentBelowMinimum(t *testing.T) {
	opts := Options{Size: 100, Overlap: 30, MinLen: 20}
	for _, n := range []int{1, 19, 20, 99, 100, 101, 170, 171, 350, 1000} {
		chunks, err := Split(strings.Repeat("x", n), opts)
		require.NoError(t, err)
		for _, c := range chunks {
			assert.GreaterOrEqual(t, len(c), opts.MinLen, "input length %d", n)
		}
	}
}

// Concatenating the first chunk with every later chunk minus its leading
// overlap reconstructs the normalized source, as long as no trailing
// fragment was dropped.
func TestSplitReconstructsSource(t *testing.T) {
	opts := Options{Size: 100, Overlap: 30, MinLen: 1}
	src := Normalize(strings.Repeat("the quick brown fox jumps over the lazy dog ", 40))
	chunks, err := Split(src, opts)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	var sb strings.Builder
	sb.WriteString(chunks[0])
	for _, c := range chunks[1:] {
		sb.WriteString(c[opts.Overlap:])
	}
	assert.Equal(t, src, sb.String())
}
