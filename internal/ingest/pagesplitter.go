// Package ingest implements the page splitter: it turns a PDF byte buffer
// into an ordered slice of page-text strings preserving the document's
// visual reading order. It is built on github.com/ledongthuc/pdf, the
// sole PDF library this codebase depends on, using the reader's native
// per-page access (Reader.Page/NumPage) rather than the quadratic
// whole-document-prefix-subtraction approach the original source used
// (see DESIGN.md, Open Question 1) — each page is read exactly once.
package ingest

import (
	"bytes"
	"fmt"
	"log"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/fantomftfw/bankParse/internal/engineerrors"
)

// Split reads a PDF byte buffer and returns one text string per page, in
// document order. Empty pages produce an empty string at their ordinal
// position (never a missing element). Any parse failure — including a
// panic from the underlying library, per this codebase's AnalyzePDF
// convention — yields MalformedSource.
func Split(data []byte) (pages []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("[ingest] recovered from panic splitting PDF: %v", r)
			pages = nil
			err = engineerrors.Wrap(engineerrors.MalformedSource, "panic while splitting PDF", fmt.Errorf("%v", r))
		}
	}()

	reader, readErr := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if readErr != nil {
		return nil, engineerrors.Wrap(engineerrors.MalformedSource, "open PDF reader", readErr)
	}

	numPages := reader.NumPage()
	if numPages < 1 {
		return nil, engineerrors.New(engineerrors.MalformedSource, "PDF reports zero pages")
	}

	out := make([]string, numPages)
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			out[i-1] = ""
			continue
		}
		out[i-1] = pageText(page)
	}
	return out, nil
}

// pageText reconstructs one page's reading-order text: items sharing a
// row position are joined with single spaces, a row-position change emits
// a newline.
func pageText(page pdf.Page) string {
	rows, err := page.GetTextByRow()
	if err != nil {
		return ""
	}

	var b strings.Builder
	for i, row := range rows {
		if i > 0 {
			b.WriteString("\n")
		}
		for j, word := range row.Content {
			if j > 0 {
				b.WriteString(" ")
			}
			b.WriteString(word.S)
		}
	}
	return b.String()
}
