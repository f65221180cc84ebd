package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoText is returned for documents without an extractable text layer.
var ErrNoText = errors.New("no extractable text")

// Result is the text layer of a document plus its counts.
type Result struct {
	Text      string
	PageCount int
	WordCount int
}

// Extractor turns uploaded bytes into text.
type Extractor interface {
	Extract(ctx context.Context, data []byte) (Result, error)
}

// PDFExtractor reads PDFs with github.com/ledongthuc/pdf.
type PDFExtractor struct{}

func (PDFExtractor) Extract(ctx context.Context, data []byte) (res Result, err error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	if len(data) == 0 {
		return Result{}, errors.New("empty pdf data")
	}

	// the pdf reader panics on some malformed inputs
	defer func() {
		if rec := recover(); rec != nil {
			res = Result{}
			err = fmt.Errorf("read pdf: %v", rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Result{}, fmt.Errorf("open pdf: %w", err)
	}

	pages := reader.NumPage()
	fonts := make(map[string]*pdf.Font)
	parts := make([]string, 0, pages)
	for i := 1; i <= pages; i++ {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		text, err := page.GetPlainText(fonts)
		if err != nil {
			return Result{}, fmt.Errorf("read page %d: %w", i, err)
		}
		parts = append(parts, text)
	}

	text := strings.TrimSpace(strings.Join(parts, "\n"))
	if text == "" {
		return Result{PageCount: pages}, ErrNoText
	}
	return Result{
		Text:      text,
		PageCount: pages,
		WordCount: CountWords(text),
	}, nil
}

// CountWords counts whitespace-separated tokens.
func CountWords(text string) int {
	return len(strings.Fields(text))
}

var _ Extractor = PDFExtractor{}
