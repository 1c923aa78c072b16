package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextPlain(t *testing.T) {
	got, err := Text([]byte("hello world"), "notes.txt", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "hello world", got)
}

func TestTextDispatchByContentType(t *testing.T) {
	got, err := Text([]byte("no extension"), "upload", "text/plain")
	require.NoError(t, err)
	assert.Equal(t, "no extension", got)
}

func TestTextMarkdown(t *testing.T) {
	src := []byte("# Title\n\nSome *emphasised* prose with a [link](https://example.com).\n")
	got, err := Text(src, "readme.md", "text/markdown")
	require.NoError(t, err)
	assert.Contains(t, got, "Title")
	assert.Contains(t, got, "emphasised")
	assert.Contains(t, got, "link")
	assert.NotContains(t, got, "https://example.com")
	assert.NotContains(t, got, "<h1>")
}

func TestTextUnsupported(t *testing.T) {
	_, err := Text([]byte{0x00}, "video.mp4", "video/mp4")
	require.ErrorIs(t, err, ErrUnsupportedType)
}

func TestTextCorruptSupportedFormat(t *testing.T) {
	_, err := Text([]byte("not a zip archive"), "broken.docx", "")
	require.ErrorIs(t, err, ErrExtraction)
}

func TestStripTags(t *testing.T) {
	assert.Equal(t, " a  b ", stripTags("<p>a</p><p>b</p>"))
}
