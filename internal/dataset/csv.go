package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/san-kum/frapfit/internal/frap"
)

const timesHeader = "times"

// ReadCSV parses a wide table with header "times,A,B,...". Group columns
// must carry the letter labels A, B, ... in order.
func ReadCSV(r io.Reader) (*Table, error) {
	return readCSV(r, true)
}

// ReadLabeledCSV is ReadCSV without the letter-label rule, for derived tables
// such as fitted curves that add a "pooled" column.
func ReadLabeledCSV(r io.Reader) (*Table, error) {
	return readCSV(r, false)
}

func readCSV(r io.Reader, letterLabels bool) (*Table, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", frap.ErrDataShape, err)
	}
	if len(records) == 0 {
		return nil, frap.NewShapeError("empty input")
	}

	header := records[0]
	if len(header) < 2 || strings.TrimSpace(header[0]) != timesHeader {
		return nil, frap.NewShapeError("header must be %q followed by group columns, got %v", timesHeader, header)
	}
	ngroups := len(header) - 1
	if ngroups > MaxGroups {
		return nil, frap.NewShapeError("%d groups exceeds label alphabet of %d", ngroups, MaxGroups)
	}

	t := &Table{
		Labels: make([]string, ngroups),
		Values: make([][]float64, ngroups),
	}
	for g := range t.Labels {
		t.Labels[g] = strings.TrimSpace(header[g+1])
		if !letterLabels {
			continue
		}
		if want, _ := Label(g); t.Labels[g] != want {
			return nil, &frap.DataShapeError{Row: -1, Column: g + 1, Reason: fmt.Sprintf("group column %d labelled %q, want %q", g+1, t.Labels[g], want)}
		}
	}

	for i, record := range records[1:] {
		if len(record) == 1 && strings.TrimSpace(record[0]) == "" {
			continue
		}
		if len(record) != len(header) {
			return nil, &frap.DataShapeError{Row: i, Column: -1, Reason: fmt.Sprintf("%d fields, want %d", len(record), len(header))}
		}
		ts, err := strconv.ParseFloat(strings.TrimSpace(record[0]), 64)
		if err != nil {
			return nil, &frap.DataShapeError{Row: i, Column: 0, Reason: fmt.Sprintf("non-numeric time %q", record[0])}
		}
		t.Times = append(t.Times, ts)
		for g := 0; g < ngroups; g++ {
			v, err := strconv.ParseFloat(strings.TrimSpace(record[g+1]), 64)
			if err != nil {
				return nil, &frap.DataShapeError{Row: i, Column: g + 1, Reason: fmt.Sprintf("non-numeric value %q", record[g+1])}
			}
			t.Values[g] = append(t.Values[g], v)
		}
	}

	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}

// WriteCSV writes t in the same layout ReadCSV accepts.
func WriteCSV(w io.Writer, t *Table) error {
	cw := csv.NewWriter(w)

	header := append([]string{timesHeader}, t.Labels...)
	if err := cw.Write(header); err != nil {
		return err
	}

	for i, ts := range t.Times {
		row := make([]string, 0, len(header))
		row = append(row, strconv.FormatFloat(ts, 'g', -1, 64))
		for _, col := range t.Values {
			row = append(row, strconv.FormatFloat(col[i], 'g', -1, 64))
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func LoadCSV(path string) (*Table, error) {
	return loadCSV(path, ReadCSV)
}

func LoadLabeledCSV(path string) (*Table, error) {
	return loadCSV(path, ReadLabeledCSV)
}

func loadCSV(path string, read func(io.Reader) (*Table, error)) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return read(f)
}

func SaveCSV(path string, t *Table) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCSV(f, t); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
