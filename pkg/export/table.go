package export

import "fmt"

// Table is tabular export content. Every row must have one cell per column.
type Table struct {
	Title   string
	Columns []Column
	Rows    [][]string
}

// Column names a field and its relative width in paged formats.
type Column struct {
	Header string
	Weight float64
}

// Headers returns the column headers in order.
func (t Table) Headers() []string {
	headers := make([]string, len(t.Columns))
	for i, col := range t.Columns {
		headers[i] = col.Header
	}
	return headers
}

func (t Table) check() error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("export requires at least one column")
	}
	for i, row := range t.Rows {
		if len(row) != len(t.Columns) {
			return fmt.Errorf("row %d has %d cells, want %d", i, len(row), len(t.Columns))
		}
	}
	return nil
}
