package apitest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"math"
	"strconv"
	"strings"
)

// table is a parsed CSV: a header and string cells. Empty cells are missing values.
type table struct {
	header []string
	rows   [][]string
}

func parseTable(content []byte) (*table, error) {
	reader := csv.NewReader(bytes.NewReader(content))
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 || len(records[0]) == 0 {
		return nil, errors.New("File is empty")
	}
	if len(records) < 2 {
		return nil, errors.New("File has a header but no data rows")
	}

	t := &table{header: records[0]}
	for _, rec := range records[1:] {
		row := make([]string, len(t.header))
		copy(row, rec)
		t.rows = append(t.rows, row)
	}
	return t, nil
}

func (t *table) columnIndex(name string) int {
	for i, h := range t.header {
		if h == name {
			return i
		}
	}
	return -1
}

func (t *table) column(i int) []string {
	out := make([]string, len(t.rows))
	for r, row := range t.rows {
		out[r] = strings.TrimSpace(row[i])
	}
	return out
}

// numeric returns the parsed values of a column and whether every present value is a number.
func numeric(values []string) ([]float64, bool) {
	var nums []float64
	for _, v := range values {
		if v == "" {
			continue
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return nil, false
		}
		nums = append(nums, f)
	}
	return nums, len(nums) > 0
}

func dtype(values []string) string {
	nums, ok := numeric(values)
	if !ok {
		return "object"
	}
	for _, n := range nums {
		if n != math.Trunc(n) {
			return "float64"
		}
	}
	return "int64"
}

func missing(values []string) int {
	n := 0
	for _, v := range values {
		if v == "" {
			n++
		}
	}
	return n
}

func duplicateRows(t *table) int {
	seen := make(map[string]bool, len(t.rows))
	dups := 0
	for _, row := range t.rows {
		key := strings.Join(row, "\x1f")
		if seen[key] {
			dups++
		}
		seen[key] = true
	}
	return dups
}

func mean(nums []float64) float64 {
	if len(nums) == 0 {
		return 0
	}
	sum := 0.0
	for _, n := range nums {
		sum += n
	}
	return sum / float64(len(nums))
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}

func percent(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return round2(float64(part) / float64(total) * 100)
}
