package importer

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
)

// ParseSQLDump turns the INSERT statements of a dump into a grid. Each
// statement must carry a column list; the first one seen becomes the header
// row and later statements must use the same columns. Other lines are ignored.
func ParseSQLDump(r io.Reader) ([][]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	var grid [][]string
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if !hasPrefixFold(line, "INSERT INTO") {
			continue
		}

		cols, rows, err := parseInsert(line)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", lineNo, err)
		}
		if grid == nil {
			grid = [][]string{cols}
		} else if !sameColumns(grid[0], cols) {
			return nil, fmt.Errorf("line %d: column list differs from the first INSERT", lineNo)
		}
		grid = append(grid, rows...)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if grid == nil {
		return nil, errors.New("no INSERT statements found")
	}
	return grid, nil
}

func parseInsert(line string) ([]string, [][]string, error) {
	open := strings.IndexByte(line, '(')
	if open < 0 {
		return nil, nil, errors.New("INSERT without column list")
	}
	closeAt := strings.IndexByte(line[open:], ')')
	if closeAt < 0 {
		return nil, nil, errors.New("unterminated column list")
	}
	closeAt += open
	valuesAt := indexFold(line[closeAt+1:], "VALUES")
	if valuesAt < 0 {
		return nil, nil, errors.New("INSERT without column list")
	}
	valuesAt += closeAt + 1

	var cols []string
	for _, c := range strings.Split(line[open+1:closeAt], ",") {
		cols = append(cols, strings.Trim(strings.TrimSpace(c), "`\"[]"))
	}

	rows, err := parseTuples(line[valuesAt+len("VALUES"):])
	if err != nil {
		return nil, nil, err
	}
	for _, row := range rows {
		if len(row) != len(cols) {
			return nil, nil, fmt.Errorf("tuple has %d values, expected %d", len(row), len(cols))
		}
	}
	return cols, rows, nil
}

// parseTuples reads `(v, v), (v, v);` handling quoted strings with doubled
// or backslash-escaped quotes. NULL becomes an empty cell.
func parseTuples(s string) ([][]string, error) {
	var (
		rows    [][]string
		row     []string
		buf     strings.Builder
		inTuple bool
		inQuote bool
		quoted  bool
	)

	flush := func() {
		v := buf.String()
		if !quoted {
			v = strings.TrimSpace(v)
			if strings.EqualFold(v, "NULL") {
				v = ""
			}
		}
		row = append(row, v)
		buf.Reset()
		quoted = false
	}

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case inQuote:
			switch {
			case c == '\\' && i+1 < len(s):
				i++
				buf.WriteByte(unescape(s[i]))
			case c == '\'' && i+1 < len(s) && s[i+1] == '\'':
				i++
				buf.WriteByte('\'')
			case c == '\'':
				inQuote = false
			default:
				buf.WriteByte(c)
			}
		case !inTuple:
			switch c {
			case '(':
				inTuple = true
				row = nil
			case ',', ';', ' ', '\t':
			default:
				return nil, fmt.Errorf("unexpected %q between tuples", c)
			}
		default:
			switch c {
			case '\'':
				buf.Reset()
				inQuote = true
				quoted = true
			case ',':
				flush()
			case ')':
				flush()
				rows = append(rows, row)
				inTuple = false
			default:
				if !quoted {
					buf.WriteByte(c)
				}
			}
		}
	}
	if inQuote || inTuple {
		return nil, errors.New("unterminated VALUES tuple")
	}
	return rows, nil
}

func unescape(c byte) byte {
	switch c {
	case 'n':
		return '\n'
	case 't':
		return '\t'
	case 'r':
		return '\r'
	case '0':
		return 0
	default:
		return c
	}
}

func sameColumns(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !strings.EqualFold(a[i], b[i]) {
			return false
		}
	}
	return true
}

func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

func indexFold(s, substr string) int {
	return strings.Index(strings.ToUpper(s), strings.ToUpper(substr))
}
