package loader

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/papercomputeco/docqa/pkg/document"
)

// AllColumns makes LoadCSV render every column of a row as the document text.
const AllColumns = "-"

// LoadCSV reads a CSV file with a header row. Each row becomes a document
// whose text is the textColumn value; the remaining columns become metadata.
// Rows with an empty text value are skipped.
func LoadCSV(name string, r io.Reader, textColumn string) ([]document.Document, error) {
	data, err := readUTF8(name, r)
	if err != nil {
		return nil, err
	}

	cr := csv.NewReader(strings.NewReader(data))
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("%w: %s is empty", document.ErrLoad, name)
		}
		return nil, fmt.Errorf("%w: reading %s header: %v", document.ErrLoad, name, err)
	}

	textIdx := -1
	if textColumn != AllColumns {
		textIdx = slices.Index(header, textColumn)
		if textIdx < 0 {
			return nil, fmt.Errorf("%w: %s has no %q column (columns: %s)",
				document.ErrLoad, name, textColumn, strings.Join(header, ", "))
		}
	}

	var docs []document.Document
	for row := 1; ; row++ {
		record, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: reading %s: %v", document.ErrLoad, name, err)
		}

		text := renderRow(header, record, textIdx)
		if strings.TrimSpace(text) == "" {
			continue
		}

		meta := make(map[string]string, len(header))
		for i, col := range header {
			if i == textIdx {
				continue
			}
			meta[col] = record[i]
		}

		docs = append(docs, document.Document{
			Source:   name,
			Locator:  "row " + strconv.Itoa(row),
			Text:     text,
			Metadata: meta,
		})
	}

	if len(docs) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows with text", document.ErrLoad, name)
	}

	return docs, nil
}

func renderRow(header, record []string, textIdx int) string {
	if textIdx >= 0 {
		return record[textIdx]
	}

	lines := make([]string, 0, len(header))
	for i, col := range header {
		if strings.TrimSpace(record[i]) == "" {
			continue
		}
		lines = append(lines, col+": "+record[i])
	}
	return strings.Join(lines, "\n")
}
