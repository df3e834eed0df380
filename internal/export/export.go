// Package export renders indicator rows as CSV, XLSX or a text table. Rows
// are slices of flat structs whose csv tags name the columns.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"strings"

	"github.com/gocarina/gocsv"
	"github.com/olekukonko/tablewriter"
	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
)

// Formats accepted by Write.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// ErrUnknownFormat is returned by Write for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown export format")

// ContentType returns the MIME type of format.
func ContentType(format string) string {
	switch format {
	case FormatXLSX:
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case FormatCSV:
		return "text/csv; charset=utf-8"
	}
	return "application/octet-stream"
}

// Write encodes rows in the named format.
func Write(w io.Writer, format string, rows interface{}) error {
	switch format {
	case FormatCSV:
		return CSV(w, rows)
	case FormatXLSX:
		return XLSX(w, rows)
	}
	return errors.Wrapf(ErrUnknownFormat, "%q", format)
}

// asSlice wraps a single struct in a one-element slice.
func asSlice(rows interface{}) (interface{}, error) {
	v := reflect.ValueOf(rows)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil, errors.New("nil rows")
		}
		v = v.Elem()
	}
	switch v.Kind() {
	case reflect.Slice, reflect.Array:
		return v.Interface(), nil
	case reflect.Struct:
		s := reflect.MakeSlice(reflect.SliceOf(v.Type()), 1, 1)
		s.Index(0).Set(v)
		return s.Interface(), nil
	}
	return nil, errors.Errorf("cannot export %T", rows)
}

// CSV writes rows as comma-delimited text with a header line.
func CSV(w io.Writer, rows interface{}) error {
	in, err := asSlice(rows)
	if err != nil {
		return err
	}
	if err := gocsv.Marshal(in, w); err != nil {
		return errors.Wrap(err, "error encoding CSV")
	}
	return nil
}

// Records returns rows as a header record followed by one record per row.
func Records(rows interface{}) ([][]string, error) {
	in, err := asSlice(rows)
	if err != nil {
		return nil, err
	}
	text, err := gocsv.MarshalString(in)
	if err != nil {
		return nil, errors.Wrap(err, "error encoding rows")
	}
	records, err := csv.NewReader(strings.NewReader(text)).ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "error decoding rows")
	}
	return records, nil
}

// XLSX writes rows to the first sheet of a new workbook. Cells that parse as
// numbers are stored as numbers.
func XLSX(w io.Writer, rows interface{}) error {
	records, err := Records(rows)
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "Sheet1"
	for i, record := range records {
		row := make([]interface{}, len(record))
		for j, cell := range record {
			if v, err := strconv.ParseFloat(cell, 64); err == nil && i > 0 {
				row[j] = v
			} else {
				row[j] = cell
			}
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+1), &row); err != nil {
			return errors.Wrapf(err, "error writing row %d", i+1)
		}
	}
	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "error writing workbook")
	}
	return nil
}

// Table renders rows as an aligned text table.
func Table(w io.Writer, rows interface{}) error {
	records, err := Records(rows)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}
	table := tablewriter.NewWriter(w)
	table.SetAutoFormatHeaders(false)
	table.SetHeader(records[0])
	table.AppendBulk(records[1:])
	table.Render()
	return nil
}
