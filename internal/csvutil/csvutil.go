// Package csvutil holds the CSV sink helpers shared by the publish log and
// the audit reports.
package csvutil

import (
	"encoding/csv"
	"fmt"
	"os"
	"sort"
	"strings"
)

// Neutralize replaces commas with semicolons so free-form error text can sit
// in a single CSV column.
func Neutralize(s string) string {
	return strings.ReplaceAll(s, ",", ";")
}

// AppendRow appends one row to a CSV file, creating it if needed. The
// publish log grows across runs, so the file is never truncated.
func AppendRow(path string, row []string) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("failed to write log row: %w", err)
	}
	w.Flush()
	return w.Error()
}

// WriteKeyedRows writes a key-indexed report: one row per key, the key in
// the first column and its values in the following columns. Keys are sorted
// so report output is reproducible. The header names the key column and
// numbers the value columns tag_0..tag_N, sized to the widest row.
func WriteKeyedRows(path, keyColumn string, rows map[string][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	keys := make([]string, 0, len(rows))
	widest := 0
	for key, values := range rows {
		keys = append(keys, key)
		if len(values) > widest {
			widest = len(values)
		}
	}
	sort.Strings(keys)

	header := []string{keyColumn}
	for i := 0; i < widest; i++ {
		header = append(header, fmt.Sprintf("tag_%d", i))
	}

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, key := range keys {
		if err := w.Write(append([]string{key}, rows[key]...)); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteRecords writes a uniform report with a fixed header, sorted by the
// first column.
func WriteRecords(path string, header []string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report file: %w", err)
	}
	defer f.Close()

	sorted := make([][]string, len(records))
	copy(sorted, records)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i][0] < sorted[j][0]
	})

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, record := range sorted {
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}
	w.Flush()
	return w.Error()
}
