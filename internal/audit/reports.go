package audit

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/agrc/agol-shelf/internal/csvutil"
	"github.com/agrc/agol-shelf/internal/models"
	"github.com/agrc/agol-shelf/internal/tags"
)

// Sentinel cell values for lookups that failed. A denied group read is not
// the same as an item with no groups, and the report keeps the distinction.
const (
	sentinelError   = "error"
	sentinelUnknown = "unknown"
)

// creditRate is AGOL's monthly credit cost per MB of hosted feature data.
const creditRate = 0.24

// usagePeriod is the trailing window for the data-requests column.
const usagePeriod = "1Y"

// WriteTagsReport writes the tag index: one row per tag with the item count
// and the sorted item titles.
func WriteTagsReport(path string, index tags.Index) error {
	rows := map[string][]string{}
	for tag, items := range index {
		sorted := append([]string(nil), items...)
		sort.Strings(sorted)
		rows[tag] = append([]string{strconv.Itoa(len(items))}, sorted...)
	}
	return csvutil.WriteKeyedRows(path, "tag", rows)
}

// WriteSpacedReport writes the leading-space tag report: one row per
// affected item with its spaced tags.
func WriteSpacedReport(path string, index tags.Index) error {
	return csvutil.WriteKeyedRows(path, "item", tags.LeadingSpaceTags(index))
}

// WriteDupesReport writes the duplicate-tag report: one row per canonical
// tag with its distinct spellings.
func WriteDupesReport(path string, index tags.Index) error {
	return csvutil.WriteKeyedRows(path, "tag", tags.Duplicates(index))
}

// WriteTagCloud writes the sorted unique tag list, one tag per row.
func WriteTagCloud(path string, index tags.Index) error {
	records := make([][]string, 0, len(index))
	for _, tag := range index.SortedTags() {
		records = append(records, []string{tag})
	}
	return csvutil.WriteRecords(path, []string{"tag"}, records)
}

// itemReportHeader fixes the item report's column order.
var itemReportHeader = []string{
	"title", "itemid", "owner", "folder", "groups", "tags",
	"authoritative", "modified", "views", "sizeMB", "credits",
	"data_requests_1Y", "open_data",
}

// WriteItemReport writes one row per feature service with ownership,
// sharing, size, and usage details. Group and usage lookups fail per-item
// without aborting the report; failures become sentinel cells.
func WriteItemReport(ctx context.Context, path string, portal Portal, items []models.Item) error {
	records := make([][]string, 0, len(items))
	for _, item := range items {
		records = append(records, itemRow(ctx, portal, item))
	}
	return csvutil.WriteRecords(path, itemReportHeader, records)
}

func itemRow(ctx context.Context, portal Portal, item models.Item) []string {
	folder := item.Folder
	if folder == "" {
		folder = "_root"
	}

	groups := ""
	openData := "no"
	result := portal.ItemGroups(ctx, item.ID)
	if result.Failed() {
		groups = sentinelError
		openData = sentinelUnknown
	} else {
		groups = strings.Join(result.Titles(), ", ")
		for _, g := range result.Groups {
			if strings.Contains(g.Title, "Utah SGID") {
				openData = "yes"
				break
			}
		}
	}

	requests := sentinelError
	if usage, err := portal.ItemUsage(ctx, item.ID, usagePeriod); err == nil {
		requests = strconv.FormatInt(usage.Requests, 10)
	}

	sizeMB := item.SizeMB()

	return []string{
		item.Title,
		item.ID,
		item.Owner,
		folder,
		groups,
		strings.Join(item.Tags, ", "),
		item.ContentStatus,
		item.ModifiedTime().Format("2006-01-02 15:04:05"),
		strconv.FormatInt(item.NumViews, 10),
		fmt.Sprintf("%.2f", sizeMB),
		fmt.Sprintf("%.2f", sizeMB*creditRate),
		requests,
		openData,
	}
}
