package loader

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/papercomputeco/docqa/pkg/document"
)

// LoadPDF extracts the plain text of each page of a PDF. Pages without text
// are skipped.
func LoadPDF(name string, r io.ReaderAt, size int64) (docs []document.Document, err error) {
	// the pdf reader panics on some malformed files
	defer func() {
		if p := recover(); p != nil {
			docs = nil
			err = fmt.Errorf("%w: parsing %s: %v", document.ErrLoad, name, p)
		}
	}()

	rdr, err := pdf.NewReader(r, size)
	if err != nil {
		return nil, fmt.Errorf("%w: opening %s: %v", document.ErrLoad, name, err)
	}

	for i := 1; i <= rdr.NumPage(); i++ {
		page := rdr.Page(i)
		if page.V.IsNull() {
			continue
		}

		raw, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("%w: extracting %s page %d: %v", document.ErrLoad, name, i, err)
		}
		text := normalizeText(raw)
		if strings.TrimSpace(text) == "" {
			continue
		}

		docs = append(docs, document.Document{
			Source:   name,
			Locator:  "page " + strconv.Itoa(i),
			Text:     text,
			Metadata: map[string]string{"page": strconv.Itoa(i)},
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: no text extracted from %s", document.ErrLoad, name)
	}

	return docs, nil
}
