// Package dataset loads and prepares the tabular training data.
package dataset

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"

	"cardioml/ml"
)

// Load reads a training CSV whose header contains every schema feature plus a
// target column. Empty cells and "?"/"NA"/"NaN" markers become missing values;
// the raw target is binarized to 1 when greater than zero, else 0.
func Load(path string) ([]ml.Row, []int, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	// Exports of the raw dataset sometimes carry a UTF-8 BOM; strip it so
	// the first header cell parses cleanly.
	reader := csv.NewReader(transform.NewReader(file, unicode.UTF8BOM.NewDecoder()))
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, nil, fmt.Errorf("read header: %w", err)
	}

	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[name] = i
	}
	for _, name := range ml.FeatureNames() {
		if _, ok := columns[name]; !ok {
			return nil, nil, fmt.Errorf("column %q missing from %s", name, path)
		}
	}
	targetIdx, ok := columns["target"]
	if !ok {
		return nil, nil, fmt.Errorf("column %q missing from %s", "target", path)
	}

	var rows []ml.Row
	var labels []int
	line := 1
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("line %d: %w", line+1, err)
		}
		line++

		row := make(ml.Row, len(ml.FeatureNames()))
		for _, name := range ml.FeatureNames() {
			row[name] = parseCell(record[columns[name]])
		}

		target := parseCell(record[targetIdx])
		if math.IsNaN(target) {
			return nil, nil, fmt.Errorf("line %d: missing target value", line)
		}

		rows = append(rows, row)
		labels = append(labels, binarizeTarget(target))
	}

	if len(rows) == 0 {
		return nil, nil, fmt.Errorf("no data rows in %s", path)
	}
	return rows, labels, nil
}

// binarizeTarget maps the raw disease severity (0-4 in the source data) to a
// binary presence label.
func binarizeTarget(raw float64) int {
	if raw > 0 {
		return 1
	}
	return 0
}

func parseCell(cell string) float64 {
	switch cell {
	case "", "?", "NA", "NaN":
		return math.NaN()
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return math.NaN()
	}
	return v
}
