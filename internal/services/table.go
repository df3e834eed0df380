package services

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
)

const utf8BOM = "\ufeff"

// Table is a semicolon-delimited file held in memory: one header and the
// raw cells of every row, in file order.
type Table struct {
	Header []string
	Rows   [][]string
	// Skipped counts the malformed rows ReadTableFrom dropped.
	Skipped int
	index   map[string]int
}

// NewTable builds a table and indexes its header.
func NewTable(header []string, rows [][]string) *Table {
	t := &Table{Header: header, Rows: rows}
	t.reindex()
	return t
}

func (t *Table) reindex() {
	t.index = make(map[string]int, len(t.Header))
	for i, name := range t.Header {
		if _, dup := t.index[name]; !dup {
			t.index[name] = i
		}
	}
}

// ReadTable loads a semicolon-delimited file with a header row.
func ReadTable(path string) (*Table, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error opening CSV file %s", path)
	}
	defer file.Close()

	t, err := ReadTableFrom(file)
	if err != nil {
		return nil, errors.Wrapf(err, "error reading %s", path)
	}
	return t, nil
}

// ReadTableFrom reads a table from r. Rows that fail to parse, or that carry
// values past the header, are skipped and counted in Skipped.
func ReadTableFrom(r io.Reader) (*Table, error) {
	reader := csv.NewReader(bufio.NewReader(r))
	reader.Comma = ';'
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, errors.Wrap(err, "error reading CSV header")
	}
	if len(header) > 0 {
		header[0] = strings.TrimPrefix(header[0], utf8BOM)
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([][]string, 0, 1024)
	skipped := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if errors.As(err, &parseErr) {
			skipped++
			continue
		}
		if err != nil {
			return nil, errors.Wrap(err, "error reading CSV row")
		}
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if overflows(record, len(header)) {
			skipped++
			continue
		}
		rows = append(rows, record)
	}
	t := NewTable(header, rows)
	t.Skipped = skipped
	return t, nil
}

// overflows reports whether record carries non-empty cells past the header;
// such cells cannot be attributed to a column.
func overflows(record []string, width int) bool {
	for i := width; i < len(record); i++ {
		if strings.TrimSpace(record[i]) != "" {
			return true
		}
	}
	return false
}

// Has reports whether every named column is in the header.
func (t *Table) Has(cols ...string) bool {
	for _, c := range cols {
		if _, ok := t.index[c]; !ok {
			return false
		}
	}
	return true
}

// Missing returns the named columns absent from the header.
func (t *Table) Missing(cols ...string) []string {
	var out []string
	for _, c := range cols {
		if _, ok := t.index[c]; !ok {
			out = append(out, c)
		}
	}
	return out
}

// Value returns the cell of row under col, or "" when either is absent.
func (t *Table) Value(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

// Getter returns a cell accessor bound to one row.
func (t *Table) Getter(row []string) func(col string) string {
	return func(col string) string { return t.Value(row, col) }
}

// WithColumns returns a new table where each named column holds the values
// produced by fill. Existing columns are overwritten in place and new ones
// are appended, so applying the same columns twice leaves the shape unchanged.
func (t *Table) WithColumns(cols []string, fill func(row []string) []string) *Table {
	header := append([]string(nil), t.Header...)
	pos := make([]int, len(cols))
	for i, c := range cols {
		if j, ok := t.index[c]; ok {
			pos[i] = j
			continue
		}
		pos[i] = len(header)
		header = append(header, c)
	}

	rows := make([][]string, len(t.Rows))
	for r, row := range t.Rows {
		out := make([]string, len(header))
		copy(out, row)
		for i, v := range fill(row) {
			out[pos[i]] = v
		}
		rows[r] = out
	}
	return NewTable(header, rows)
}

// Write encodes the table as semicolon-delimited text.
func (t *Table) Write(w io.Writer) error {
	writer := csv.NewWriter(w)
	writer.Comma = ';'
	if err := writer.Write(t.Header); err != nil {
		return err
	}
	if err := writer.WriteAll(t.Rows); err != nil {
		return err
	}
	return writer.Error()
}

// WriteFile replaces path with the table contents atomically.
func (t *Table) WriteFile(path string) error {
	return writeFileAtomic(path, t.Write)
}

// writeFileAtomic writes to a temporary file next to path and renames it
// into place, so readers never observe a partially written file.
func writeFileAtomic(path string, write func(w io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrapf(err, "error creating directory %s", dir)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "error creating temporary file")
	}
	defer os.Remove(tmp.Name())

	buf := bufio.NewWriterSize(tmp, 1<<20)
	if err := write(buf); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "error writing %s", path)
	}
	if err := buf.Flush(); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "error writing %s", path)
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrapf(err, "error closing %s", tmp.Name())
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return errors.Wrapf(err, "error replacing %s", path)
	}
	return nil
}
