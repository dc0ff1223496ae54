// Package ingest reads lot exports (XLSX or CSV) into rows keyed by header label.
package ingest

import (
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// maxHeaderScan bounds how far auto-detection looks for the header row.
const maxHeaderScan = 10

// Row maps a header label to the cell text of one data row.
type Row map[string]string

// Get returns the trimmed value for label. Missing cells and spreadsheet
// null markers read as "".
func (r Row) Get(label string) string {
	v := strings.TrimSpace(r[label])
	switch strings.ToLower(v) {
	case "nan", "null", "none", "-":
		return ""
	}
	return v
}

// Options controls how a sheet is turned into rows.
type Options struct {
	SheetIndex int    // XLSX only
	SheetName  string // XLSX only; overrides SheetIndex
	// HeaderRow is the zero-based header row. A negative value searches the
	// first rows for one containing HeaderHint and falls back to row 0.
	HeaderRow  int
	HeaderHint string
	Delimiter  rune // CSV only; 0 detects ',' or ';'
}

// ReadFile reads path, choosing the parser by extension.
func ReadFile(path string, opts Options) ([]Row, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		return ReadXLSX(path, opts)
	case ".csv", ".txt":
		f, err := os.Open(path)
		if err != nil {
			return nil, eris.Wrap(err, "ingest: open csv")
		}
		defer f.Close() //nolint:errcheck
		return ReadCSV(f, opts)
	default:
		return nil, eris.Errorf("ingest: unsupported file type %q", filepath.Ext(path))
	}
}

// ReadUpload reads an uploaded file whose original name is name.
func ReadUpload(name string, r io.Reader, opts Options) ([]Row, error) {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == ".csv" || ext == ".txt" {
		return ReadCSV(r, opts)
	}
	if ext != ".xlsx" && ext != ".xlsm" {
		return nil, eris.Errorf("ingest: unsupported file type %q", ext)
	}

	tmp, err := os.CreateTemp("", "lotmap-upload-*"+ext)
	if err != nil {
		return nil, eris.Wrap(err, "ingest: create temp file")
	}
	defer os.Remove(tmp.Name()) //nolint:errcheck

	if _, err := io.Copy(tmp, r); err != nil {
		_ = tmp.Close()
		return nil, eris.Wrap(err, "ingest: buffer upload")
	}
	if err := tmp.Close(); err != nil {
		return nil, eris.Wrap(err, "ingest: close temp file")
	}
	return ReadXLSX(tmp.Name(), opts)
}

// buildRows turns raw records into Rows using the header chosen by opts.
func buildRows(records [][]string, opts Options) []Row {
	if len(records) == 0 {
		return nil
	}
	h := headerIndex(records, opts)
	if h >= len(records) {
		return nil
	}
	header := dedupeHeaders(records[h])

	rows := make([]Row, 0, len(records)-h-1)
	for _, rec := range records[h+1:] {
		if blank(rec) {
			continue
		}
		row := make(Row, len(header))
		for i, label := range header {
			if label == "" || i >= len(rec) {
				continue
			}
			row[label] = rec[i]
		}
		rows = append(rows, row)
	}
	return rows
}

func headerIndex(records [][]string, opts Options) int {
	if opts.HeaderRow >= 0 {
		return opts.HeaderRow
	}
	if opts.HeaderHint == "" {
		return 0
	}
	for i := 0; i < len(records) && i < maxHeaderScan; i++ {
		for _, cell := range records[i] {
			if strings.TrimSpace(cell) == opts.HeaderHint {
				return i
			}
		}
	}
	return 0
}

// dedupeHeaders trims labels and suffixes repeats with ".1", ".2", ...
func dedupeHeaders(raw []string) []string {
	seen := make(map[string]int, len(raw))
	out := make([]string, len(raw))
	for i, h := range raw {
		h = strings.TrimSpace(h)
		if h == "" {
			continue
		}
		n := seen[h]
		seen[h] = n + 1
		if n > 0 {
			h = h + "." + strconv.Itoa(n)
		}
		out[i] = h
	}
	return out
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
