package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agrc/agol-shelf/internal/config"
	"github.com/agrc/agol-shelf/internal/publish"
	"github.com/agrc/agol-shelf/internal/sheets"
	"github.com/agrc/agol-shelf/internal/staging"
)

// newPublishCmd creates the 'publish' command.
func newPublishCmd() *cobra.Command {
	var (
		listPath string
		logPath  string
		dryRun   bool
		protect  bool
		noSheets bool
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish shelved and static datasets to ArcGIS Online",
		Long: `Publish the datasets listed in the control CSV to ArcGIS Online.

Each row names a source feature class, its display title, a credit string,
and a disposition (shelved or static; removed rows are skipped). Every
dataset is staged through the desktop-GIS worker, uploaded, published,
shared, and moved to its destination folder. Every dataset gets a row in
the run log, success or failure, and successful publishes update the
stewardship and new-items spreadsheets.

Use --dry-run to stage and validate without touching the portal.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := GetContext()
			logger := GetLogger()

			client, cfg, err := getAPIClient()
			if err != nil {
				return err
			}
			if err := cfg.ValidatePublish(); err != nil {
				return err
			}

			datasets, err := config.LoadDatasetsCSV(listPath)
			if err != nil {
				return fmt.Errorf("failed to load control file: %w", err)
			}
			metadata, err := config.LoadMetadataJSON(cfg.MetadataFile)
			if err != nil {
				return fmt.Errorf("failed to load metadata: %w", err)
			}
			genericTerms, err := config.LoadTermsOfUse(cfg.TermsFile)
			if err != nil {
				return fmt.Errorf("failed to load terms of use: %w", err)
			}

			worker, err := staging.NewWorker(cfg.StagingCommand, cfg.SDEPath, cfg.ProjectPath, cfg.MapName, logger)
			if err != nil {
				return err
			}

			var stewardship publish.StewardshipLogger
			if !noSheets && cfg.SheetsCredentialsFile != "" {
				sheetsClient, err := sheets.NewClient(ctx, cfg.SheetsCredentialsFile, cfg.StewardshipSheetID, cfg.NewItemsSheetID, logger)
				if err != nil {
					return fmt.Errorf("failed to set up sheets client: %w", err)
				}
				stewardship = sheetsClient
			} else {
				logger.Warn().Msg("Spreadsheet logging disabled")
			}

			if logPath == "" {
				logPath = cfg.PublishLogFile
			}
			if logPath == "" {
				return fmt.Errorf("no publish log file configured (set publish_log_file or pass --log)")
			}

			pipeline := publish.NewPipeline(client, worker, stewardship, logger, publish.Options{
				DryRun:  dryRun,
				Protect: protect,
				LogPath: logPath,
			})

			result, err := pipeline.Run(ctx, datasets, metadata, genericTerms)
			if err != nil {
				return err
			}

			logger.Info().
				Int("processed", result.Processed).
				Int("published", result.Published).
				Int("skipped", result.Skipped).
				Int("failed", result.Failed).
				Msg("Publish run complete")

			return nil
		},
	}

	cmd.Flags().StringVar(&listPath, "list", "", "Control CSV of datasets to publish (required)")
	cmd.Flags().StringVar(&logPath, "log", "", "Publish log CSV (defaults to the configured path)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Stage and validate without uploading")
	cmd.Flags().BoolVar(&protect, "protect", true, "Enable delete protection on published items")
	cmd.Flags().BoolVar(&noSheets, "no-sheets", false, "Skip the spreadsheet updates")
	_ = cmd.MarkFlagRequired("list")

	return cmd
}
