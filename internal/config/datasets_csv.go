package config

import (
	"encoding/csv"
	"fmt"
	"os"
	"strings"

	"github.com/agrc/agol-shelf/internal/models"
)

// LoadDatasetsCSV reads the control file listing candidate datasets.
//
// Format: header row, then one row per dataset:
//
//	qualified name, display title, credit, disposition
//
// Rows with disposition "removed" are excluded before processing; they never
// enter the batch at all.
func LoadDatasetsCSV(path string) ([]models.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset list: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // validate per row below
	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read dataset list: %w", err)
	}

	if len(records) == 0 {
		return nil, fmt.Errorf("dataset list %s is empty", path)
	}

	var datasets []models.Dataset
	for i, record := range records[1:] { // skip header
		if len(record) < 4 {
			return nil, fmt.Errorf("dataset list row %d has %d columns, want 4", i+2, len(record))
		}

		disposition := models.Disposition(strings.TrimSpace(strings.ToLower(record[3])))
		if disposition == models.DispositionRemoved {
			continue
		}

		datasets = append(datasets, models.Dataset{
			QualifiedName: strings.TrimSpace(record[0]),
			Title:         strings.TrimSpace(record[1]),
			Credit:        strings.TrimSpace(record[2]),
			Disposition:   disposition,
		})
	}

	return datasets, nil
}
