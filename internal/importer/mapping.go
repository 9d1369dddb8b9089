package importer

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoDataRows is returned when a file has a header but nothing under it.
var ErrNoDataRows = errors.New("file has no data rows")

// ConfigError reports required fields that no header column maps to.
type ConfigError struct {
	Missing []string
	Headers []string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("missing required columns: %s", strings.Join(e.Missing, ", "))
}

// MalformedInputError wraps a file that could not be read as a grid.
type MalformedInputError struct {
	Filename string
	Err      error
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("could not read %s: %v", e.Filename, e.Err)
}

func (e *MalformedInputError) Unwrap() error { return e.Err }

// ColumnMapping records which column holds each semantic field.
type ColumnMapping struct {
	fields    map[string]int
	unmatched []string
}

// BuildMapping matches every header cell against the table. When two columns
// match the same field the later one wins.
func BuildMapping(headers []string, table *SynonymTable) ColumnMapping {
	m := ColumnMapping{fields: make(map[string]int)}
	for i, h := range headers {
		field, ok := table.MatchHeader(h)
		if !ok {
			if strings.TrimSpace(h) != "" {
				m.unmatched = append(m.unmatched, h)
			}
			continue
		}
		m.fields[field] = i
	}
	return m
}

// Column returns the column index mapped to field.
func (m ColumnMapping) Column(field string) (int, bool) {
	i, ok := m.fields[field]
	return i, ok
}

// Columns returns the inverse view: column index -> field.
func (m ColumnMapping) Columns() map[int]string {
	out := make(map[int]string, len(m.fields))
	for f, i := range m.fields {
		out[i] = f
	}
	return out
}

// Unmatched lists the non-empty header cells that matched no synonym.
func (m ColumnMapping) Unmatched() []string {
	return append([]string(nil), m.unmatched...)
}

// Require fails with a ConfigError listing every required field without a column.
func (m ColumnMapping) Require(required []string) error {
	var missing []string
	for _, f := range required {
		if _, ok := m.fields[f]; !ok {
			missing = append(missing, f)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ConfigError{Missing: missing, Headers: m.Unmatched()}
}
