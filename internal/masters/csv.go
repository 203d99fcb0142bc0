package masters

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/tbmap/tbmap/internal/model"
)

const (
	numFields       = 6
	colMajorCode    = 0
	colMajorName    = 1
	colMinorCode    = 2
	colMinorName    = 3
	colGroupingCode = 4
	colGroupingName = 5
)

var csvHeader = []string{"major_head_code", "major_head_name", "minor_head_code", "minor_head_name", "grouping_code", "grouping_name"}

// WriteCSV writes the hierarchy flattened to one row per grouping.
func WriteCSV(w io.Writer, rows []model.Ancestry) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, r := range rows {
		if err := cw.Write(MarshalRow(r)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	return cw.Error()
}

// ReadCSV rebuilds a Masters tree from the flat format written by WriteCSV.
// Heads repeated across rows must agree on their names.
func ReadCSV(r io.Reader) (model.Masters, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return model.Masters{}, fmt.Errorf("reading masters CSV: %w", err)
	}
	if len(records) == 0 {
		return model.Masters{}, nil
	}

	var m model.Masters
	majors := make(map[string]string)
	minors := make(map[string]string)
	for i, rec := range records[1:] {
		row, err := UnmarshalRow(rec)
		if err != nil {
			return model.Masters{}, fmt.Errorf("row %d: %w", i+2, err)
		}
		if name, ok := majors[row.Major.Code]; !ok {
			majors[row.Major.Code] = row.Major.Name
			m.MajorHeads = append(m.MajorHeads, row.Major)
		} else if name != row.Major.Name {
			return model.Masters{}, fmt.Errorf("row %d: major head %q named both %q and %q", i+2, row.Major.Code, name, row.Major.Name)
		}
		if name, ok := minors[row.Minor.Code]; !ok {
			minors[row.Minor.Code] = row.Minor.Name
			m.MinorHeads = append(m.MinorHeads, row.Minor)
		} else if name != row.Minor.Name {
			return model.Masters{}, fmt.Errorf("row %d: minor head %q named both %q and %q", i+2, row.Minor.Code, name, row.Minor.Name)
		}
		m.Groupings = append(m.Groupings, row.Grouping)
	}
	return m, nil
}

// MarshalRow converts an Ancestry to a CSV row.
func MarshalRow(a model.Ancestry) []string {
	row := make([]string, numFields)
	row[colMajorCode] = a.Major.Code
	row[colMajorName] = a.Major.Name
	row[colMinorCode] = a.Minor.Code
	row[colMinorName] = a.Minor.Name
	row[colGroupingCode] = a.Grouping.Code
	row[colGroupingName] = a.Grouping.Name
	return row
}

// UnmarshalRow converts a CSV row to an Ancestry.
func UnmarshalRow(record []string) (model.Ancestry, error) {
	if len(record) != numFields {
		return model.Ancestry{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	for i, v := range record {
		if strings.TrimSpace(v) == "" {
			return model.Ancestry{}, fmt.Errorf("empty %s", csvHeader[i])
		}
	}
	major := model.MajorHead{Code: record[colMajorCode], Name: record[colMajorName]}
	minor := model.MinorHead{Code: record[colMinorCode], Name: record[colMinorName], MajorHeadCode: major.Code}
	g := model.Grouping{Code: record[colGroupingCode], Name: record[colGroupingName], MinorHeadCode: minor.Code}
	return model.Ancestry{Major: major, Minor: minor, Grouping: g}, nil
}
