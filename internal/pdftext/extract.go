// Package pdftext reconstructs readable text from the positioned text
// fragments of a PDF, preserving the line and paragraph structure that
// reference segmentation depends on.
package pdftext

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/ledongthuc/pdf"
)

// ErrNoTextLayer indicates the PDF contained no extractable text
// (likely a scanned document). This is a blocking error for the document.
var ErrNoTextLayer = errors.New("no extractable text layer in PDF")

// Fragment is one positioned text run on a page.
type Fragment struct {
	X        float64
	Y        float64
	FontSize float64
	S        string
}

// ExtractText extracts layout-aware text from a PDF file.
// Pages are concatenated in order, lines separated by newlines.
func ExtractText(filePath string, opts Options) (string, error) {
	f, r, err := pdf.Open(filePath)
	if err != nil {
		return "", err
	}
	defer f.Close()

	return extractAll(r, opts)
}

// ExtractTextReader extracts layout-aware text from a PDF reader.
func ExtractTextReader(r io.ReaderAt, size int64, opts Options) (text string, err error) {
	defer func() {
		// The xref parser panics on some malformed PDFs.
		if rec := recover(); rec != nil {
			text = ""
			err = fmt.Errorf("malformed PDF: %v", rec)
		}
	}()

	pdfReader, err := pdf.NewReader(r, size)
	if err != nil {
		return "", err
	}
	return extractAll(pdfReader, opts)
}

func extractAll(r *pdf.Reader, opts Options) (string, error) {
	var builder strings.Builder

	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}

		frags := pageFragments(page)
		if len(frags) == 0 {
			continue
		}

		builder.WriteString(ReconstructPage(frags, pageWidth(page, frags), opts))
	}

	text := builder.String()
	if strings.TrimSpace(text) == "" {
		return "", ErrNoTextLayer
	}
	return text, nil
}

// pageFragments collects the positioned text runs of a page. Pages whose
// content stream cannot be decoded are treated as empty rather than fatal.
func pageFragments(page pdf.Page) (frags []Fragment) {
	defer func() {
		// The content-stream parser panics on some malformed PDFs.
		if r := recover(); r != nil {
			frags = nil
		}
	}()

	content := page.Content()
	frags = make([]Fragment, 0, len(content.Text))
	for _, t := range content.Text {
		if t.S == "" {
			continue
		}
		frags = append(frags, Fragment{X: t.X, Y: t.Y, FontSize: t.FontSize, S: t.S})
	}
	return frags
}

// pageWidth resolves the page width from the MediaBox, walking up to the
// parent page-tree node when the box is inherited. Falls back to the
// horizontal extent of the fragments themselves.
func pageWidth(page pdf.Page, frags []Fragment) float64 {
	v := page.V
	for !v.IsNull() {
		if box := v.Key("MediaBox"); !box.IsNull() && box.Len() == 4 {
			return box.Index(2).Float64() - box.Index(0).Float64()
		}
		v = v.Key("Parent")
	}

	minX, maxX := frags[0].X, frags[0].X
	for _, f := range frags {
		if f.X < minX {
			minX = f.X
		}
		if f.X > maxX {
			maxX = f.X
		}
	}
	return minX + maxX
}
