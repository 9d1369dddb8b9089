package importer

import (
	"fmt"
	"strings"
)

// Extraction is the outcome of reading a grid: accepted records plus one
// message per rejected row. Both are always returned together.
type Extraction struct {
	Records []Record `json:"records"`
	Errors  []string `json:"errors"`
	Skipped int      `json:"skipped"` // fully blank rows, not errors
}

// Extract reads every data row of grid (grid[0] is the header row) into a
// Record holding job.Fields. Rows with a blank required field are rejected
// and reported by their 1-based line number in the file, counting the header
// row as line 1. A nil row stands for a line continued inside a multi-line
// cell and is neither a record nor a blank row.
func Extract(grid [][]string, mapping ColumnMapping, job Job) Extraction {
	out := Extraction{Records: []Record{}, Errors: []string{}}
	if len(grid) < 2 {
		return out
	}

	for i, row := range grid[1:] {
		lineNo := i + 2
		if row == nil {
			continue
		}
		if blankRow(row) {
			out.Skipped++
			continue
		}

		rec := make(Record, len(job.Fields))
		for _, field := range job.Fields {
			col, ok := mapping.Column(field)
			if !ok {
				continue
			}
			v := cell(row, col)
			if field == FieldCode {
				v = NormalizeCode(v)
			}
			rec[field] = v
		}

		var missing []string
		for _, field := range job.Required {
			if rec[field] == "" {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			out.Errors = append(out.Errors, fmt.Sprintf("row %d: missing %s", lineNo, strings.Join(missing, ", ")))
			continue
		}
		out.Records = append(out.Records, rec)
	}
	return out
}

// NormalizeCode trims the value and removes '.' and ',' left behind by
// spreadsheet number formatting ("12.345" -> "12345").
func NormalizeCode(v string) string {
	v = strings.TrimSpace(v)
	return strings.Map(func(r rune) rune {
		if r == '.' || r == ',' {
			return -1
		}
		return r
	}, v)
}

func cell(row []string, col int) string {
	if col < 0 || col >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[col])
}

func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
