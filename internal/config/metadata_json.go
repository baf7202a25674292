package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/agrc/agol-shelf/internal/models"
)

// LoadMetadataJSON reads the static metadata lookup table: a JSON object
// mapping short dataset names to their metadata records. Loaded once at
// process start; read-only afterwards.
func LoadMetadataJSON(path string) (map[string]models.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read metadata file: %w", err)
	}

	var lookup map[string]models.Metadata
	if err := json.Unmarshal(data, &lookup); err != nil {
		return nil, fmt.Errorf("failed to parse metadata file: %w", err)
	}

	return lookup, nil
}

// LoadTermsOfUse reads the generic terms-of-use text used when a dataset's
// metadata has no license of its own.
func LoadTermsOfUse(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read terms of use: %w", err)
	}

	terms := strings.TrimSpace(string(data))
	if terms == "" {
		return "", fmt.Errorf("terms of use file %s is empty", path)
	}
	return terms, nil
}
