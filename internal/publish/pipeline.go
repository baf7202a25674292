package publish

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/schollz/progressbar/v3"

	"github.com/agrc/agol-shelf/internal/constants"
	"github.com/agrc/agol-shelf/internal/csvutil"
	"github.com/agrc/agol-shelf/internal/logging"
	"github.com/agrc/agol-shelf/internal/models"
	"github.com/agrc/agol-shelf/internal/staging"
)

// Portal is the slice of the AGOL client the upload sequence needs.
type Portal interface {
	AddItem(ctx context.Context, title, sdPath string) (string, error)
	PublishItem(ctx context.Context, sdItemID string) (string, string, error)
	ShareItem(ctx context.Context, itemID, folderID string, everyone, org bool, groupIDs []string) error
	ProtectItem(ctx context.Context, itemID, folderID string, enable bool) error
	UpdateItem(ctx context.Context, itemID, folderID string, fields url.Values) error
	MoveItem(ctx context.Context, itemID, currentFolderID, destFolderID string) error
	UpdateCapabilities(ctx context.Context, serviceURL, capabilities string) error
	SearchGroups(ctx context.Context, title string) ([]models.Group, error)
	ListFolders(ctx context.Context) ([]models.Folder, error)
	CreateFolder(ctx context.Context, title string) (*models.Folder, error)
}

// Stager is the slice of the staging worker the pipeline needs.
type Stager interface {
	Describe(ctx context.Context, source string) (*staging.DescribeResult, error)
	Stage(ctx context.Context, source, title string) (*staging.StageResult, error)
}

// StewardshipLogger records a published item in the remote spreadsheets.
type StewardshipLogger interface {
	UpdateStewardship(ctx context.Context, layerName, disposition, endpoint string) (int, error)
	AppendNewItem(ctx context.Context, title, itemID string) error
}

// Options controls a pipeline run.
type Options struct {
	DryRun  bool // stage and build info, skip the upload sequence
	Protect bool // enable delete protection on published items
	LogPath string
}

// Result summarizes one run.
type Result struct {
	Processed int
	Published int
	Skipped   int // standalone tables
	Failed    int
}

// Pipeline runs the shelving batch: describe, stage, upload, log.
type Pipeline struct {
	portal  Portal
	stager  Stager
	sheets  StewardshipLogger // nil disables spreadsheet logging
	logger  *logging.Logger
	options Options
}

// NewPipeline assembles a pipeline. sheets may be nil when spreadsheet
// logging is not configured.
func NewPipeline(portal Portal, stager Stager, sheets StewardshipLogger, logger *logging.Logger, options Options) *Pipeline {
	return &Pipeline{
		portal:  portal,
		stager:  stager,
		sheets:  sheets,
		logger:  logger,
		options: options,
	}
}

// Run processes every dataset in order. A dataset's failure is logged and
// the batch continues; only context cancellation stops the run early. Every
// dataset gets a CSV log row, success or failure.
func (p *Pipeline) Run(ctx context.Context, datasets []models.Dataset, metadata map[string]models.Metadata, genericTerms string) (*Result, error) {
	result := &Result{}

	bar := progressbar.NewOptions(len(datasets),
		progressbar.OptionSetDescription("Publishing"),
		progressbar.OptionSetWriter(p.logger.Output()),
		progressbar.OptionShowCount(),
		progressbar.OptionClearOnFinish(),
	)

	for _, dataset := range datasets {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		result.Processed++
		p.logger.Info().
			Str("dataset", dataset.QualifiedName).
			Str("disposition", string(dataset.Disposition)).
			Msg("Starting dataset")

		logRow := p.processDataset(ctx, dataset, metadata, genericTerms, result)

		if err := csvutil.AppendRow(p.options.LogPath, logRow); err != nil {
			p.logger.Error().Err(err).Msg("Error writing log file")
		}
		_ = bar.Add(1)
	}

	_ = bar.Finish()
	return result, nil
}

// processDataset runs one dataset end to end and returns its CSV log row.
// Failures are folded into the row rather than returned.
func (p *Pipeline) processDataset(ctx context.Context, dataset models.Dataset, metadata map[string]models.Metadata, genericTerms string, result *Result) []string {
	describe, err := p.stager.Describe(ctx, dataset.QualifiedName)
	if err != nil {
		result.Failed++
		return p.failureRow(dataset, err)
	}

	if describe.IsTable() {
		result.Skipped++
		p.logger.Warn().
			Str("dataset", dataset.QualifiedName).
			Msg("Standalone table, not uploaded")
		return []string{dataset.Title, "Table: not uploaded"}
	}

	info, err := BuildInfo(dataset, metadata[dataset.ShortName()], genericTerms)
	if err != nil {
		result.Failed++
		return p.failureRow(dataset, err)
	}

	staged, err := p.stager.Stage(ctx, dataset.QualifiedName, ServiceName(dataset.Title))
	if err != nil {
		result.Failed++
		return p.failureRow(dataset, err)
	}

	itemID := "dry-run"
	if !p.options.DryRun {
		itemID, err = p.uploadLayer(ctx, staged.SDPath, info)
		if err != nil {
			result.Failed++
			return p.failureRow(dataset, err)
		}
	}
	result.Published++

	shape := strings.ToLower(staged.ShapeType)
	endpoint := endpointURL(dataset.Title)

	row := []string{
		dataset.Title,
		string(dataset.Disposition),
		dataset.StewardshipName(),
		info.Description,
		info.Credits,
		shape,
		endpoint,
		itemID,
	}

	if p.sheets != nil && !p.options.DryRun {
		p.logStewardship(ctx, dataset, endpoint, itemID)
	}

	return row
}

// uploadLayer runs the full AGOL publish sequence for one staged service
// definition and returns the published item's id. The order matters: the
// item must exist and be published before sharing, info fields before the
// move, and the capability update goes through the live service URL last.
func (p *Pipeline) uploadLayer(ctx context.Context, sdPath string, info *models.PublishInfo) (string, error) {
	p.logger.Info().Msg("Uploading service definition")
	sdItemID, err := p.portal.AddItem(ctx, ServiceName(info.Name), sdPath)
	if err != nil {
		return "", err
	}

	p.logger.Info().Msg("Publishing")
	itemID, serviceURL, err := p.portal.PublishItem(ctx, sdItemID)
	if err != nil {
		return "", err
	}

	p.logger.Info().Msg("Sharing")
	groupIDs, err := p.resolveGroups(ctx, info.Groups)
	if err != nil {
		return "", err
	}
	if err := p.portal.ShareItem(ctx, itemID, "", true, true, groupIDs); err != nil {
		return "", err
	}

	if p.options.Protect {
		p.logger.Info().Msg("Enabling delete protection")
		if err := p.portal.ProtectItem(ctx, itemID, "", true); err != nil {
			return "", err
		}
	}

	p.logger.Info().Msg("Updating item info")
	fields := url.Values{}
	fields.Set("tags", info.Tags)
	fields.Set("description", info.Description)
	fields.Set("licenseInfo", info.TermsOfUse)
	fields.Set("snippet", info.Summary)
	fields.Set("accessInformation", info.Credits)
	if err := p.portal.UpdateItem(ctx, itemID, "", fields); err != nil {
		return "", err
	}

	p.logger.Info().Str("folder", info.Folder).Msg("Moving to folder")
	folderID, err := p.ensureFolder(ctx, info.Folder)
	if err != nil {
		return "", err
	}
	if err := p.portal.MoveItem(ctx, itemID, "", folderID); err != nil {
		return "", err
	}
	if err := p.portal.MoveItem(ctx, sdItemID, "", folderID); err != nil {
		return "", err
	}

	p.logger.Info().Msg("Enabling downloads")
	if err := p.portal.UpdateCapabilities(ctx, serviceURL, "Query,Extract"); err != nil {
		return "", err
	}

	return itemID, nil
}

// resolveGroups looks up each group name, failing when a configured group
// does not exist in the org.
func (p *Pipeline) resolveGroups(ctx context.Context, names []string) ([]string, error) {
	var ids []string
	for _, name := range names {
		groups, err := p.portal.SearchGroups(ctx, name)
		if err != nil {
			return nil, err
		}
		if len(groups) == 0 {
			return nil, fmt.Errorf("group %q not found", name)
		}
		ids = append(ids, groups[0].ID)
	}
	return ids, nil
}

// ensureFolder returns the folder's id, creating the folder when missing.
func (p *Pipeline) ensureFolder(ctx context.Context, title string) (string, error) {
	folders, err := p.portal.ListFolders(ctx)
	if err != nil {
		return "", err
	}
	for _, folder := range folders {
		if folder.Title == title {
			return folder.ID, nil
		}
	}

	folder, err := p.portal.CreateFolder(ctx, title)
	if err != nil {
		return "", err
	}
	return folder.ID, nil
}

// logStewardship performs the best-effort spreadsheet updates.
func (p *Pipeline) logStewardship(ctx context.Context, dataset models.Dataset, endpoint, itemID string) {
	row, err := p.sheets.UpdateStewardship(ctx, dataset.StewardshipName(), string(dataset.Disposition), endpoint)
	if err != nil {
		p.logger.Error().Err(err).Msg("Stewardship sheet update failed")
	} else if row > 0 {
		p.logger.Info().Int("row", row).Msg("Stewardship sheet updated")
	}

	if err := p.sheets.AppendNewItem(ctx, dataset.Title, itemID); err != nil {
		p.logger.Error().Err(err).Msg("New items sheet append failed")
	}
}

// failureRow builds the two-column log row for a failed dataset. The error
// text is neutralized so it stays in one CSV column, and staging worker
// errors are recorded verbatim.
func (p *Pipeline) failureRow(dataset models.Dataset, err error) []string {
	var execErr *staging.ExecError
	message := err.Error()
	if errors.As(err, &execErr) {
		message = execErr.Message
	}

	p.logger.Error().
		Str("dataset", dataset.QualifiedName).
		Err(err).
		Msg("Dataset failed")

	return []string{dataset.Title, csvutil.Neutralize(message)}
}

// endpointURL derives the Open Data page URL from the display title.
func endpointURL(title string) string {
	dashed := strings.ToLower(strings.ReplaceAll(title, " ", "-"))
	return fmt.Sprintf(constants.OpenDataURLFormat, dashed)
}
