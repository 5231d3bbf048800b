// Package pipeline assembles the per-document extraction stages: text
// reconstruction, bibliography segmentation, and field parsing.
package pipeline

import (
	"errors"
	"io"
	"strconv"

	"github.com/matsen/citecheck/internal/citation"
	"github.com/matsen/citecheck/internal/pdftext"
	"github.com/matsen/citecheck/internal/refparse"
	"github.com/matsen/citecheck/internal/segment"
)

// ErrNoCitations indicates the document parsed fine but no reference
// entries survived segmentation and filtering: the bibliography is
// absent or in an unrecognized format. Distinct from a parse failure
// and non-fatal to the caller.
var ErrNoCitations = errors.New("no citations found in document")

// ExtractFile extracts citations from a PDF on disk.
func ExtractFile(path string, opts pdftext.Options) ([]citation.Citation, string, error) {
	text, err := pdftext.ExtractText(path, opts)
	if err != nil {
		return nil, "", err
	}
	return FromText(text)
}

// ExtractReader extracts citations from an in-memory PDF.
func ExtractReader(r io.ReaderAt, size int64, opts pdftext.Options) ([]citation.Citation, string, error) {
	text, err := pdftext.ExtractTextReader(r, size, opts)
	if err != nil {
		return nil, "", err
	}
	return FromText(text)
}

// FromText segments reconstructed text and parses each entry, returning
// the citations and the detected document style. The style is copied
// onto every citation for downstream display.
func FromText(text string) ([]citation.Citation, string, error) {
	entries, style := segment.Segment(text)
	if len(entries) == 0 {
		return nil, style, ErrNoCitations
	}

	citations := make([]citation.Citation, len(entries))
	for i, e := range entries {
		citations[i] = refparse.Parse(strconv.Itoa(i+1), e.Raw, style)
	}
	return citations, style, nil
}
