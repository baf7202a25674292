package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrc/agol-shelf/internal/audit"
)

// newFixCmd creates the 'fix' command group.
func newFixCmd() *cobra.Command {
	fixCmd := &cobra.Command{
		Use:   "fix",
		Short: "Fix problems found by the audit reports",
	}

	fixCmd.AddCommand(newFixTagsCmd())

	return fixCmd
}

// newFixTagsCmd creates the 'fix tags' command.
func newFixTagsCmd() *cobra.Command {
	var (
		method string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Normalize every feature service's tags",
		Long: `Rewrite each feature service's tags in place: trim whitespace, uppercase
known acronyms, drop service-definition leftovers and tags redundant with
the title, and reconcile the category tag against the item's open-data
group. Items whose tags already match are left untouched.

Every change is recorded in the tag log file when one is configured.

Use --dry-run to see the changes without writing them.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			logger := GetLogger()

			client, cfg, err := getAPIClient()
			if err != nil {
				return err
			}

			if cfg.TagLogFile != "" {
				if err := logger.TeeToFile(cfg.TagLogFile); err != nil {
					return fmt.Errorf("failed to open tag log: %w", err)
				}
				defer logger.Close()
			}

			items, err := audit.CollectItems(ctx, client, method)
			if err != nil {
				return fmt.Errorf("failed to enumerate items: %w", err)
			}

			result, err := audit.FixTags(ctx, client, logger, items, dryRun)
			if err != nil {
				return err
			}

			if len(result.FailedWrites) > 0 {
				return fmt.Errorf("%d tag updates failed", len(result.FailedWrites))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&method, "method", audit.MethodFolder,
		"Item enumeration: 'owner' (search by owner) or 'folder' (walk every folder)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log the would-be changes without writing")

	return cmd
}
