// Package extract pulls plain text out of uploaded files. Each supported
// format maps to a dedicated extractor; everything else is rejected up
// front with ErrUnsupportedType.
package extract

import (
	"bytes"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	// ErrUnsupportedType rejects unknown file formats. Not retryable.
	ErrUnsupportedType = errors.New("unsupported file type")
	// ErrExtraction wraps extractor failures on supported formats.
	ErrExtraction = errors.New("text extraction failed")
)

// mimeExt maps declared content types to the extension-keyed dispatch,
// used when the filename carries no usable extension.
var mimeExt = map[string]string{
	"application/pdf": ".pdf",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": ".docx",
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":       ".xlsx",
	"application/vnd.oasis.opendocument.spreadsheet":                          ".ods",
	"text/markdown": ".md",
	"text/plain":    ".txt",
}

// Text extracts plain text from the raw file bytes, dispatching on the
// filename extension first and the declared content type second.
func Text(data []byte, filename, contentType string) (string, error) {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = mimeExt[contentType]
	}

	var (
		text string
		err  error
	)
	switch ext {
	case ".pdf":
		text, err = fromPDF(data)
	case ".docx":
		text, err = fromDOCX(data)
	case ".xlsx":
		text, err = fromXLSX(data)
	case ".ods":
		text, err = fromODS(data)
	case ".md", ".markdown":
		text, err = fromMarkdown(data)
	case ".txt", ".text", ".log":
		text = string(data)
	default:
		return "", fmt.Errorf("%w: %q (%s)", ErrUnsupportedType, ext, contentType)
	}
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrExtraction, filename, err)
	}
	return text, nil
}

func fromPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", err
		}
		sb.WriteString(pageText)
		sb.WriteString("\n")
	}
	return sb.String(), nil
}

func fromDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	return stripTags(r.Editable().GetContent()), nil
}

func fromXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for _, sheet := range f.Sheets {
		sb.WriteString("Sheet: " + sheet.Name + "\n")
		for _, row := range sheet.Rows {
			for _, cell := range row.Cells {
				sb.WriteString(cell.String() + "\t")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

func fromODS(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sb strings.Builder
	for _, sheetName := range f.GetSheetList() {
		rows, err := f.GetRows(sheetName)
		if err != nil {
			continue
		}
		sb.WriteString("Sheet: " + sheetName + "\n")
		for _, row := range rows {
			sb.WriteString(strings.Join(row, "\t"))
			sb.WriteString("\n")
		}
	}
	return sb.String(), nil
}

// fromMarkdown renders the markdown to HTML and strips the tags, which
// drops link targets and formatting glyphs while keeping the prose.
func fromMarkdown(data []byte) (string, error) {
	md := goldmark.New(goldmark.WithExtensions(extension.GFM))
	var buf bytes.Buffer
	if err := md.Convert(data, &buf); err != nil {
		return "", err
	}
	return stripTags(buf.String()), nil
}

// stripTags removes anything between angle brackets and inserts a space in
// its place, so adjacent text runs don't fuse together.
func stripTags(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
			sb.WriteRune(' ')
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
