package export

import "fmt"

// Table is a rendered list: one header row and string cells in header order.
type Table struct {
	Title   string
	Columns []string
	Rows    [][]string
}

// Append adds a row, padding or truncating it to the column count.
func (t *Table) Append(cells ...string) {
	row := make([]string, len(t.Columns))
	copy(row, cells)
	t.Rows = append(t.Rows, row)
}

func (t Table) check(kind string) error {
	if len(t.Columns) == 0 {
		return fmt.Errorf("%s requires at least one column", kind)
	}
	return nil
}
