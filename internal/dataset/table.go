package dataset

// Table is a spreadsheet held in memory: a header row and string cells.
// Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string   `json:"columns"`
	Rows    [][]string `json:"rows"`
}

// Count pairs a distinct column value with the number of rows holding it.
type Count struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// ColumnIndex returns the position of column name, or -1.
func (t *Table) ColumnIndex(name string) int {
	for i, c := range t.Columns {
		if c == name {
			return i
		}
	}
	return -1
}

// Unique returns the distinct values of a column in order of first appearance.
func (t *Table) Unique(column string) []string {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil
	}

	seen := make(map[string]struct{})
	var values []string
	for _, row := range t.Rows {
		v := row[idx]
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		values = append(values, v)
	}
	return values
}

// Filter returns a new table with the rows whose column equals value exactly.
// An unknown column yields an empty table with the same header.
func (t *Table) Filter(column, value string) *Table {
	out := &Table{Columns: append([]string(nil), t.Columns...), Rows: [][]string{}}

	idx := t.ColumnIndex(column)
	if idx < 0 {
		return out
	}
	for _, row := range t.Rows {
		if row[idx] == value {
			out.Rows = append(out.Rows, row)
		}
	}
	return out
}

// CountBy tallies rows per distinct value of column, in order of first appearance.
func (t *Table) CountBy(column string) []Count {
	idx := t.ColumnIndex(column)
	if idx < 0 {
		return nil
	}

	pos := make(map[string]int)
	var counts []Count
	for _, row := range t.Rows {
		v := row[idx]
		i, ok := pos[v]
		if !ok {
			i = len(counts)
			pos[v] = i
			counts = append(counts, Count{Value: v})
		}
		counts[i].Count++
	}
	return counts
}

// normalize pads or truncates every row to the header width.
func (t *Table) normalize() {
	width := len(t.Columns)
	for i, row := range t.Rows {
		switch {
		case len(row) < width:
			padded := make([]string, width)
			copy(padded, row)
			t.Rows[i] = padded
		case len(row) > width:
			t.Rows[i] = row[:width]
		}
	}
}
