package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrc/agol-shelf/internal/audit"
	"github.com/agrc/agol-shelf/internal/tags"
)

// newAuditCmd creates the 'audit' command group.
func newAuditCmd() *cobra.Command {
	auditCmd := &cobra.Command{
		Use:   "audit",
		Short: "Report on the org's hosted feature services",
		Long: `Audit commands inspect every feature service in the account and write
CSV reports.

Commands:
  tags   - every tag and the items carrying it
  spaced - items with leading-whitespace tags
  dupes  - tags that differ only in case
  cloud  - the sorted unique tag list
  report - per-item sharing, size, and usage details`,
	}

	auditCmd.AddCommand(newAuditTagsCmd())
	auditCmd.AddCommand(newAuditSpacedCmd())
	auditCmd.AddCommand(newAuditDupesCmd())
	auditCmd.AddCommand(newAuditCloudCmd())
	auditCmd.AddCommand(newAuditReportCmd())

	return auditCmd
}

// addEnumerationFlags attaches the shared --method and --out flags.
func addEnumerationFlags(cmd *cobra.Command, method, out *string) {
	cmd.Flags().StringVar(method, "method", audit.MethodFolder,
		"Item enumeration: 'owner' (search by owner) or 'folder' (walk every folder)")
	cmd.Flags().StringVarP(out, "out", "o", "", "Output CSV path (required)")
	_ = cmd.MarkFlagRequired("out")
}

// buildIndex collects items and builds the tag index for a report command.
func buildIndex(method string) (tags.Index, error) {
	ctx := GetContext()

	client, _, err := getAPIClient()
	if err != nil {
		return nil, err
	}

	items, err := audit.CollectItems(ctx, client, method)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate items: %w", err)
	}
	GetLogger().Info().Int("items", len(items)).Msg("Feature services collected")

	return audit.BuildIndex(items), nil
}

func newAuditTagsCmd() *cobra.Command {
	var method, out string

	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Write the tag index: tag, item count, item titles",
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := buildIndex(method)
			if err != nil {
				return err
			}
			if err := audit.WriteTagsReport(out, index); err != nil {
				return err
			}
			GetLogger().Info().Str("out", out).Int("tags", len(index)).Msg("Tag report written")
			return nil
		},
	}

	addEnumerationFlags(cmd, &method, &out)
	return cmd
}

func newAuditSpacedCmd() *cobra.Command {
	var method, out string

	cmd := &cobra.Command{
		Use:   "spaced",
		Short: "Write items carrying tags with leading whitespace",
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := buildIndex(method)
			if err != nil {
				return err
			}
			if err := audit.WriteSpacedReport(out, index); err != nil {
				return err
			}
			GetLogger().Info().Str("out", out).Msg("Spaced-tag report written")
			return nil
		},
	}

	addEnumerationFlags(cmd, &method, &out)
	return cmd
}

func newAuditDupesCmd() *cobra.Command {
	var method, out string

	cmd := &cobra.Command{
		Use:   "dupes",
		Short: "Write tags that differ only in case",
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := buildIndex(method)
			if err != nil {
				return err
			}
			if err := audit.WriteDupesReport(out, index); err != nil {
				return err
			}
			GetLogger().Info().Str("out", out).Msg("Duplicate-tag report written")
			return nil
		},
	}

	addEnumerationFlags(cmd, &method, &out)
	return cmd
}

func newAuditCloudCmd() *cobra.Command {
	var method, out string

	cmd := &cobra.Command{
		Use:   "cloud",
		Short: "Write the sorted unique tag list",
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := buildIndex(method)
			if err != nil {
				return err
			}
			if err := audit.WriteTagCloud(out, index); err != nil {
				return err
			}
			GetLogger().Info().Str("out", out).Msg("Tag cloud written")
			return nil
		},
	}

	addEnumerationFlags(cmd, &method, &out)
	return cmd
}

func newAuditReportCmd() *cobra.Command {
	var method, out string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write per-item sharing, size, and usage details",
		Long: `Write one CSV row per feature service: title, id, owner, folder,
groups, tags, content status, modified time, views, size, credit burn
estimate, one-year data requests, and whether the item is shared to an
open-data group. Group and usage lookups that fail for an item are recorded
as "error"/"unknown" and the report continues.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()

			client, _, err := getAPIClient()
			if err != nil {
				return err
			}

			items, err := audit.CollectItems(ctx, client, method)
			if err != nil {
				return fmt.Errorf("failed to enumerate items: %w", err)
			}

			if err := audit.WriteItemReport(ctx, out, client, items); err != nil {
				return err
			}
			GetLogger().Info().Str("out", out).Int("items", len(items)).Msg("Item report written")
			return nil
		},
	}

	addEnumerationFlags(cmd, &method, &out)
	return cmd
}
