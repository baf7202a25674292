// Package publish implements the shelving pipeline: staging source feature
// classes through the desktop-GIS worker, uploading them to AGOL, and
// recording the results in the run log and the stewardship spreadsheets.
package publish

import (
	"errors"
	"fmt"
	"strings"

	"github.com/agrc/agol-shelf/internal/models"
)

// ErrUnknownDisposition marks a control row whose disposition is neither
// shelved nor static. Fatal for that row only.
var ErrUnknownDisposition = errors.New("unknown disposition")

const (
	shelvedGroup  = "AGRC Shelf"
	shelvedFolder = "AGRC_Shelved"

	shelvedDisclaimer = `<i><b>NOTE</b>: This dataset is an older dataset that we have removed from the SGID and 'shelved' in ArcGIS Online. There may be a newer vintage of this dataset in the SGID.</i>`

	staticDisclaimer = `<i><b>NOTE</b>: This dataset holds 'static' data that we don't expect to change. We have removed it from the SDE database and placed it in ArcGIS Online, but it is still considered part of the SGID and shared on opendata.gis.utah.gov.</i>`
)

// baseTags are always present on a published item.
var baseTags = []string{"AGRC", "SGID"}

// BuildInfo derives the AGOL publish record for one control row. Pure and
// deterministic: the same row, metadata, and default license always produce
// the same record.
func BuildInfo(dataset models.Dataset, metadata models.Metadata, genericTerms string) (*models.PublishInfo, error) {
	category := dataset.Category()

	credit := dataset.Credit
	if credit == "" {
		credit = "AGRC"
	}

	tags := assembleTags(metadata.Tags)

	terms := metadata.LicenseInfo
	if terms == "" {
		terms = genericTerms
	}

	description := metadata.Description

	var group, folder string
	switch dataset.Disposition {
	case models.DispositionShelved:
		group = shelvedGroup
		folder = shelvedFolder
		tags = append(tags, "shelved")
		description = fmt.Sprintf("%s <p> </p> <p>%s</p>", shelvedDisclaimer, description)
	case models.DispositionStatic:
		group = fmt.Sprintf("Utah SGID %s", category)
		folder = group
		tags = append(tags, "static", category)
		description = fmt.Sprintf("%s <p> </p> <p>%s</p>", staticDisclaimer, description)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownDisposition, dataset.Disposition)
	}

	// The snippet limit is in characters, not bytes.
	summary := metadata.Snippet
	if runes := []rune(summary); len(runes) > models.SummaryMaxLen {
		summary = string(runes[:models.SummaryMaxLen])
	}

	return &models.PublishInfo{
		Name:        dataset.Title,
		Summary:     summary,
		Groups:      []string{group},
		Tags:        strings.Join(tags, ", "),
		Description: description,
		TermsOfUse:  terms,
		Credits:     credit,
		Folder:      folder,
	}, nil
}

// assembleTags parses the metadata tag string and guarantees the base tags
// are present. Metadata without tags gets exactly the base set.
func assembleTags(metadataTags string) []string {
	if metadataTags == "" {
		return append([]string(nil), baseTags...)
	}

	var tags []string
	for _, tag := range strings.Split(metadataTags, ",") {
		tag = strings.TrimSpace(tag)
		if tag != "" {
			tags = append(tags, tag)
		}
	}
	for _, base := range baseTags {
		if !contains(tags, base) {
			tags = append(tags, base)
		}
	}
	return tags
}

func contains(tags []string, want string) bool {
	for _, tag := range tags {
		if tag == want {
			return true
		}
	}
	return false
}

// ServiceName is the AGOL item title used when staging and publishing. Every
// SGID item in the org carries the "Utah " prefix.
func ServiceName(title string) string {
	if strings.HasPrefix(title, "Utah") {
		return title
	}
	return "Utah " + title
}
