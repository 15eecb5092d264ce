// Package pdftext pulls selectable text out of transcript PDFs.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
	"go.uber.org/zap"
)

var (
	// ErrEmpty is returned for zero-length input.
	ErrEmpty = errors.New("empty pdf content")
	// ErrNoPages is returned when the document parses but has no pages.
	ErrNoPages = errors.New("pdf has no pages")
	// ErrMalformed is returned when the parser gives up on the file structure.
	ErrMalformed = errors.New("malformed pdf")
)

// Document is a parsed PDF ready for text extraction.
type Document struct {
	reader *pdf.Reader
	logger *zap.Logger
}

// Open parses content as a PDF. Trailing bytes after the last %%EOF marker,
// common in files saved from web portals, are discarded first.
func Open(content []byte, logger *zap.Logger) (doc *Document, err error) {
	if len(content) == 0 {
		return nil, ErrEmpty
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	// The pdf package reports structural damage by panicking.
	defer func() {
		if r := recover(); r != nil {
			logger.Warn("pdf parser panicked", zap.Any("panic", r))
			doc, err = nil, fmt.Errorf("%w: %v", ErrMalformed, r)
		}
	}()

	content = Sanitize(content)
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("parse pdf: %w", err)
	}
	if r.NumPage() == 0 {
		return nil, ErrNoPages
	}
	return &Document{reader: r, logger: logger}, nil
}

// Pages returns the number of pages in the document.
func (d *Document) Pages() int {
	return d.reader.NumPage()
}

// Text concatenates the text of every page, row by row, with a blank line
// between pages. Pages that cannot be read are skipped.
func (d *Document) Text() string {
	var b strings.Builder
	total := d.reader.NumPage()

	for i := 1; i <= total; i++ {
		b.WriteString(d.pageText(i))
	}

	return strings.TrimSpace(b.String())
}

// pageText extracts one page. A page that makes the parser panic yields no
// text.
func (d *Document) pageText(i int) (text string) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Warn("pdf page parser panicked", zap.Int("page", i), zap.Any("panic", r))
			text = ""
		}
	}()

	page := d.reader.Page(i)
	if page.V.IsNull() {
		d.logger.Debug("pdf page is null", zap.Int("page", i))
		return ""
	}

	rows, err := page.GetTextByRow()
	if err != nil {
		plain, plainErr := page.GetPlainText(nil)
		if plainErr != nil {
			d.logger.Warn("pdf page unreadable", zap.Int("page", i), zap.Error(plainErr))
			return ""
		}
		return plain + "\n\n"
	}

	var b strings.Builder
	for _, row := range rows {
		var line strings.Builder
		for _, word := range row.Content {
			line.WriteString(word.S)
		}
		if s := strings.TrimSpace(line.String()); s != "" {
			b.WriteString(s)
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	return b.String()
}

// Sanitize truncates content after the final %%EOF marker when more than a
// few stray bytes follow it. Non-PDF input is returned unchanged.
func Sanitize(content []byte) []byte {
	if !bytes.HasPrefix(content, []byte("%PDF-")) {
		return content
	}

	marker := []byte("%%EOF")
	last := bytes.LastIndex(content, marker)
	if last == -1 {
		return content
	}

	end := last + len(marker)
	for end < len(content) && (content[end] == '\n' || content[end] == '\r') {
		end++
	}
	if len(content)-end > 10 {
		return content[:end]
	}
	return content
}
