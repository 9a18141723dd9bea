// Package loader reads source files into documents. Plain text files map to
// one document, CSV files to one document per row, and PDF files to one
// document per page.
package loader

import (
	"bytes"
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/papercomputeco/docqa/pkg/document"
)

// Kind is the format of a source file.
type Kind string

const (
	KindText Kind = "text"
	KindCSV  Kind = "csv"
	KindPDF  Kind = "pdf"
)

const defaultCSVTextColumn = "prompt"

// Options configures a Loader.
type Options struct {
	// CSVTextColumn names the CSV column holding the primary text of each row.
	// When set to "-", every column is rendered as a "name: value" line.
	CSVTextColumn string
}

// Loader dispatches files to the reader for their format.
type Loader struct {
	opts Options
}

// New creates a Loader.
func New(opts Options) *Loader {
	if opts.CSVTextColumn == "" {
		opts.CSVTextColumn = defaultCSVTextColumn
	}
	return &Loader{opts: opts}
}

// KindOf returns the format of name judged by its extension. ok is false for
// extensions docqa does not read.
func KindOf(name string) (Kind, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".text", ".md", ".markdown", ".rst":
		return KindText, true
	case ".csv":
		return KindCSV, true
	case ".pdf":
		return KindPDF, true
	default:
		return "", false
	}
}

// LoadPaths loads every supported file under paths. Directories are walked
// recursively and unsupported files inside them are skipped; an unsupported
// file named directly is an error. Documents are returned in path order.
//
// A file named directly is sourced by its base name and a file found in a
// directory by its slash-separated path relative to that directory. When two
// files would share a source, the later one uses its cleaned path instead.
func (l *Loader) LoadPaths(ctx context.Context, paths []string) ([]document.Document, error) {
	files, err := expand(paths)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("%w: no supported files found", document.ErrLoad)
	}

	var docs []document.Document
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		loaded, err := l.load(f.path, f.name)
		if err != nil {
			return nil, err
		}
		docs = append(docs, loaded...)
	}

	return docs, nil
}

// LoadFile loads a single file, sourced by its base name.
func (l *Loader) LoadFile(path string) ([]document.Document, error) {
	return l.load(path, filepath.Base(path))
}

func (l *Loader) load(path, name string) ([]document.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", document.ErrLoad, path, err)
	}

	return l.LoadBytes(name, data)
}

// LoadBytes loads the contents of a file called name.
func (l *Loader) LoadBytes(name string, data []byte) ([]document.Document, error) {
	kind, ok := KindOf(name)
	if !ok {
		return nil, fmt.Errorf("%w: unsupported file type: %s", document.ErrLoad, name)
	}

	switch kind {
	case KindCSV:
		return LoadCSV(name, bytes.NewReader(data), l.opts.CSVTextColumn)
	case KindPDF:
		return LoadPDF(name, bytes.NewReader(data), int64(len(data)))
	default:
		return LoadText(name, bytes.NewReader(data))
	}
}

// sourceFile is a file to load and the source name its documents carry.
type sourceFile struct {
	path string
	name string
}

// expand resolves directories into the supported files they contain.
func expand(paths []string) ([]sourceFile, error) {
	var files []sourceFile
	taken := map[string]string{}

	add := func(path, name string) {
		path = filepath.Clean(path)
		if owner, ok := taken[name]; ok && owner != path {
			name = filepath.ToSlash(path)
		}
		taken[name] = path
		files = append(files, sourceFile{path: path, name: name})
	}

	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", document.ErrLoad, err)
		}

		if !info.IsDir() {
			if _, ok := KindOf(p); !ok {
				return nil, fmt.Errorf("%w: unsupported file type: %s", document.ErrLoad, p)
			}
			add(p, filepath.Base(p))
			continue
		}

		var found []string
		err = filepath.WalkDir(p, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != p && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if _, ok := KindOf(path); ok {
				found = append(found, path)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("%w: walking %s: %v", document.ErrLoad, p, err)
		}

		sort.Strings(found)
		for _, f := range found {
			rel, err := filepath.Rel(p, f)
			if err != nil {
				return nil, fmt.Errorf("%w: %v", document.ErrLoad, err)
			}
			add(f, filepath.ToSlash(rel))
		}
	}

	return files, nil
}
