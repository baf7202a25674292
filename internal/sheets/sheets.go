// Package sheets records publish actions in the stewardship tracking
// spreadsheet and the running list of new AGOL items. Both writes are
// best-effort: the pipeline logs failures and keeps going.
package sheets

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2/google"
	sheetsapi "google.golang.org/api/sheets/v4"
	"google.golang.org/api/option"

	"github.com/agrc/agol-shelf/internal/constants"
	"github.com/agrc/agol-shelf/internal/logging"
)

// Stewardship sheet column indexes (0-based). The sheet's layout is owned
// by the stewardship team; these match the current header row.
const (
	colAccessFrom = 1  // "Authoritative Access From"
	colLayerName  = 2  // "SGID Data Layer"
	colEndpoint   = 20 // "Endpoint"
	colNotes      = 23 // "Notes"
)

// stewardshipTab is the second tab of the stewardship document.
const stewardshipTab = "Stewardship"

// Client wraps the two publish-log spreadsheets.
type Client struct {
	service            *sheetsapi.Service
	stewardshipSheetID string
	newItemsSheetID    string
	logger             *logging.Logger
}

// NewClient authenticates with a service-account credentials file and
// returns a client for the configured documents.
func NewClient(ctx context.Context, credentialsFile, stewardshipSheetID, newItemsSheetID string, logger *logging.Logger) (*Client, error) {
	data, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheets credentials: %w", err)
	}

	creds, err := google.CredentialsFromJSON(ctx, data, sheetsapi.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("failed to parse sheets credentials: %w", err)
	}

	service, err := sheetsapi.NewService(ctx, option.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return &Client{
		service:            service,
		stewardshipSheetID: stewardshipSheetID,
		newItemsSheetID:    newItemsSheetID,
		logger:             logger,
	}, nil
}

// UpdateStewardship finds the stewardship row whose layer-name column
// matches layerName and records the move to AGOL: access method, public
// endpoint, and a note prepended with the disposition. Returns the 1-based
// row number updated, or 0 when no row matched (logged, not an error).
func (c *Client) UpdateStewardship(ctx context.Context, layerName, disposition, endpoint string) (int, error) {
	readRange := fmt.Sprintf("%s!A:Z", stewardshipTab)
	resp, err := c.service.Spreadsheets.Values.Get(c.stewardshipSheetID, readRange).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("failed to read stewardship sheet: %w", err)
	}

	updatedRow := 0
	for i, row := range resp.Values {
		if cell(row, colLayerName) != layerName {
			continue
		}

		note := fmt.Sprintf("AGOL category: %s - %s", disposition, cell(row, colNotes))
		rowNum := i + 1

		updates := []*sheetsapi.ValueRange{
			cellUpdate(stewardshipTab, "B", rowNum, "AGRC AGOL"),
			cellUpdate(stewardshipTab, "U", rowNum, endpoint),
			cellUpdate(stewardshipTab, "X", rowNum, note),
		}
		batch := &sheetsapi.BatchUpdateValuesRequest{
			ValueInputOption: "RAW",
			Data:             updates,
		}
		_, err := c.service.Spreadsheets.Values.BatchUpdate(c.stewardshipSheetID, batch).Context(ctx).Do()
		if err != nil {
			return 0, fmt.Errorf("failed to update stewardship row %d: %w", rowNum, err)
		}
		updatedRow = rowNum
	}

	if updatedRow == 0 {
		c.logger.Warn().
			Str("layer", layerName).
			Msg("Layer not found in stewardship doc")
	}
	return updatedRow, nil
}

// AppendNewItem adds a row to the new-items document: title, item id, and
// the item's AGOL page URL.
func (c *Client) AppendNewItem(ctx context.Context, title, itemID string) error {
	row := &sheetsapi.ValueRange{
		Values: [][]interface{}{{
			title,
			itemID,
			fmt.Sprintf(constants.ItemURLFormat, itemID),
		}},
	}

	_, err := c.service.Spreadsheets.Values.
		Append(c.newItemsSheetID, "A:C", row).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to append to new items sheet: %w", err)
	}
	return nil
}

// cell reads a sheet cell as a string, tolerating short rows.
func cell(row []interface{}, index int) string {
	if index >= len(row) {
		return ""
	}
	s, _ := row[index].(string)
	return s
}

// cellUpdate builds a single-cell value range like "Stewardship!U42".
func cellUpdate(tab, column string, rowNum int, value string) *sheetsapi.ValueRange {
	return &sheetsapi.ValueRange{
		Range:  fmt.Sprintf("%s!%s%d", tab, column, rowNum),
		Values: [][]interface{}{{value}},
	}
}
