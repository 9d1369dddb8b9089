package importer

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

var zipMagic = []byte("PK\x03\x04")

// ReadGrid loads a delimited-text, workbook or SQL-dump file into rows of
// cells, header row first. The format is picked from the extension, falling
// back to content sniffing for workbooks.
func ReadGrid(filename string, r io.Reader) ([][]string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &MalformedInputError{Filename: filename, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, &MalformedInputError{Filename: filename, Err: errors.New("file is empty")}
	}

	var grid [][]string
	switch ext := strings.ToLower(filepath.Ext(filename)); {
	case ext == ".xlsx" || ext == ".xlsm" || bytes.HasPrefix(data, zipMagic):
		grid, err = readWorkbook(data)
	case ext == ".sql":
		grid, err = ParseSQLDump(bytes.NewReader(data))
	default:
		grid, err = readDelimited(data)
	}
	if err != nil {
		return nil, &MalformedInputError{Filename: filename, Err: err}
	}
	return checkGrid(grid)
}

// QueryGrid runs query and returns column names followed by the rows, with
// NULL read as an empty cell.
func QueryGrid(ctx context.Context, db *sql.DB, query string, args ...any) ([][]string, error) {
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to run source query: %w", err)
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	grid := [][]string{cols}

	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("failed to scan source row: %w", err)
		}
		row := make([]string, len(cols))
		for i, v := range vals {
			row[i] = v.String
		}
		grid = append(grid, row)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return checkGrid(grid)
}

func checkGrid(grid [][]string) ([][]string, error) {
	if len(grid) == 0 {
		return nil, &MalformedInputError{Filename: "input", Err: errors.New("no header row")}
	}
	for _, row := range grid[1:] {
		if !blankRow(row) {
			return grid, nil
		}
	}
	return nil, ErrNoDataRows
}

// DetectDelimiter picks ';' when the header line contains one, ',' otherwise.
func DetectDelimiter(headerLine string) rune {
	if strings.ContainsRune(headerLine, ';') {
		return ';'
	}
	return ','
}

func readDelimited(data []byte) ([][]string, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	firstLine := string(data)
	if i := strings.IndexAny(firstLine, "\r\n"); i >= 0 {
		firstLine = firstLine[:i]
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectDelimiter(firstLine)
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	// Rows are padded so grid[i] sits i lines below the header: an empty row
	// per skipped blank line and a nil row per line continued inside a
	// quoted cell.
	var grid [][]string
	next := 0
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("invalid delimited text: %w", err)
		}
		line, _ := reader.FieldPos(0)
		if len(grid) > 0 {
			for ; next < line; next++ {
				grid = append(grid, []string{})
			}
		}
		grid = append(grid, record)

		span := 0
		for _, field := range record {
			span += strings.Count(field, "\n")
		}
		for range span {
			grid = append(grid, nil)
		}
		next = line + span + 1
	}
	return grid, nil
}

func readWorkbook(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("invalid workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	for i, row := range rows {
		if row == nil {
			rows[i] = []string{}
		}
	}
	return rows, nil
}
