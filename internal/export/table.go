// Package export turns result snapshots into files: a CSV table, a PNG
// chart and a compressed session archive.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/primebench/primebench/internal/results"
)

// TableHeader is the first row of every exported table.
var TableHeader = []string{"value", "time"}

// ToTable writes snap as CSV, one row per item in log order. Values are
// exact decimal text; times use the shortest representation that parses
// back to the same float64, without an exponent.
func ToTable(snap results.Snapshot) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(TableHeader); err != nil {
		return nil, err
	}
	for _, it := range snap.Items {
		row := []string{it.Value, strconv.FormatFloat(it.Elapsed, 'f', -1, 64)}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("write table: %w", err)
	}
	return buf.Bytes(), nil
}

// ParseTable reads a table produced by ToTable.
func ParseTable(r io.Reader) ([]results.Item, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = len(TableHeader)

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("parse table: missing header")
	}
	if err != nil {
		return nil, fmt.Errorf("parse table: %w", err)
	}
	if header[0] != TableHeader[0] || header[1] != TableHeader[1] {
		return nil, fmt.Errorf("parse table: unexpected header %q", header)
	}

	var items []results.Item
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return items, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse table: %w", err)
		}
		line, _ := cr.FieldPos(0)
		elapsed, err := strconv.ParseFloat(row[1], 64)
		if err != nil {
			return nil, fmt.Errorf("parse table: line %d: %w", line, err)
		}
		item := results.Item{Value: row[0], Elapsed: elapsed}
		if item.Int() == nil {
			return nil, fmt.Errorf("parse table: line %d: value %q is not an integer", line, row[0])
		}
		items = append(items, item)
	}
}
