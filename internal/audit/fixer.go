package audit

import (
	"context"
	"errors"

	"github.com/schollz/progressbar/v3"

	"github.com/agrc/agol-shelf/internal/api"
	"github.com/agrc/agol-shelf/internal/logging"
	"github.com/agrc/agol-shelf/internal/models"
	"github.com/agrc/agol-shelf/internal/tags"
)

// FixResult summarizes a fixer run.
type FixResult struct {
	Total        int
	Updated      int
	FailedGroups []string // titles of items whose group lookup failed
	FailedWrites []string // titles of items whose tag write failed
}

// FixTags normalizes every item's tags and writes back the ones that
// changed. Group-lookup failures skip the category step for that item but
// the basic cleanup still runs. A failed write is recorded and the loop
// continues. dryRun logs the would-be changes without writing.
func FixTags(ctx context.Context, portal Portal, logger *logging.Logger, items []models.Item, dryRun bool) (*FixResult, error) {
	result := &FixResult{Total: len(items)}

	bar := progressbar.NewOptions(len(items),
		progressbar.OptionSetDescription("Fixing tags"),
		progressbar.OptionSetWriter(logger.Output()),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for _, item := range items {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		var groupTitles []string
		groupResult := portal.ItemGroups(ctx, item.ID)
		if groupResult.Failed() {
			result.FailedGroups = append(result.FailedGroups, item.Title)
			msg := "Could not determine groups, skipping category tag"
			if api.IsPermissionDenied(groupResult.Err) {
				msg = "No permission to read groups, skipping category tag"
			}
			logger.Warn().
				Str("item", item.Title).
				Err(groupResult.Err).
				Msg(msg)
		} else {
			groupTitles = groupResult.Titles()
		}

		newTags := tags.Normalize(item.Tags, item.Title, groupTitles)

		if tags.SameTagSet(item.Tags, newTags) {
			logger.Debug().
				Str("item", item.Title).
				Strs("tags", item.Tags).
				Msg("Tags unchanged")
			_ = bar.Add(1)
			continue
		}

		logger.Info().
			Str("item", item.Title).
			Strs("old", item.Tags).
			Strs("new", newTags).
			Bool("dryRun", dryRun).
			Msg("Updating tags")

		if !dryRun {
			if err := portal.UpdateItemTags(ctx, item.ID, item.FolderID, newTags); err != nil {
				if errors.Is(err, api.ErrNotFound) {
					// Deleted between the folder walk and the write.
					logger.Warn().
						Str("item", item.Title).
						Msg("Item no longer exists, skipping")
					_ = bar.Add(1)
					continue
				}
				result.FailedWrites = append(result.FailedWrites, item.Title)
				logger.Error().
					Str("item", item.Title).
					Err(err).
					Msg("Tag update failed")
				_ = bar.Add(1)
				continue
			}
		}
		result.Updated++
		_ = bar.Add(1)
	}

	_ = bar.Finish()

	logger.Info().
		Int("updated", result.Updated).
		Int("total", result.Total).
		Msg("Tag fixing complete")
	if len(result.FailedGroups) > 0 {
		logger.Warn().
			Strs("items", result.FailedGroups).
			Msg("Could not determine groups for some items")
	}

	return result, nil
}
