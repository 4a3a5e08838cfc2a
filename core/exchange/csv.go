package exchange

import (
	"encoding/csv"
	"fmt"
	"os"
)

// csvTable is a decoded CSV file with name-addressed columns.
type csvTable struct {
	header []string
	index  map[string]int
	rows   [][]string
}

func readCSVFile(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(records) == 0 {
		return &csvTable{index: map[string]int{}}, nil
	}

	t := &csvTable{
		header: records[0],
		index:  make(map[string]int, len(records[0])),
		rows:   records[1:],
	}
	for i, col := range t.header {
		if _, dup := t.index[col]; !dup {
			t.index[col] = i
		}
	}
	return t, nil
}

// has reports whether the table carries the named column.
func (t *csvTable) has(col string) bool {
	_, ok := t.index[col]
	return ok
}

// get returns the cell under the named column, "" when the column is
// absent or the row is short.
func (t *csvTable) get(row []string, col string) string {
	i, ok := t.index[col]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}

func writeCSVFile(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
