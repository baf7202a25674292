// Package models defines data structures shared across the agol-shelf pipelines.
package models

import (
	"strings"
)

// Disposition is the lifecycle category of a dataset. It controls which
// publish rules apply (group, folder, disclaimer, extra tags).
type Disposition string

const (
	DispositionActive  Disposition = "active"
	DispositionStatic  Disposition = "static"
	DispositionShelved Disposition = "shelved"
	DispositionRemoved Disposition = "removed"
)

// Dataset is one row of the control CSV: a candidate feature class to be
// shelved or made static in AGOL. Immutable once read.
type Dataset struct {
	QualifiedName string // e.g. "SGID10.BIOSCIENCE.Habitat_Pigeon"
	Title         string // display title, e.g. "Pigeon Habitat"
	Credit        string // credit/source attribution, e.g. "DWR"
	Disposition   Disposition
}

// ShortName returns the last segment of the qualified name, which is the key
// into the metadata lookup ("Habitat_Pigeon").
func (d Dataset) ShortName() string {
	parts := strings.Split(d.QualifiedName, ".")
	return parts[len(parts)-1]
}

// Category returns the SGID category segment (second-to-last), title-cased
// ("BIOSCIENCE" -> "Bioscience"). Empty when the name has no category
// segment.
func (d Dataset) Category() string {
	parts := strings.Split(d.QualifiedName, ".")
	if len(parts) < 2 {
		return ""
	}
	cat := strings.ToLower(parts[len(parts)-2])
	if cat == "" {
		return ""
	}
	return strings.ToUpper(cat[:1]) + cat[1:]
}

// StewardshipName returns the layer name used by the stewardship spreadsheet:
// the qualified name with the database owner prefix stripped
// ("SGID10.BIOSCIENCE.Habitat_Pigeon" -> "BIOSCIENCE.Habitat_Pigeon").
func (d Dataset) StewardshipName() string {
	_, after, found := strings.Cut(d.QualifiedName, ".")
	if !found {
		return d.QualifiedName
	}
	return after
}

// Metadata is the read-only record for a dataset from the metadata lookup
// table, keyed by short name.
type Metadata struct {
	Tags        string `json:"tags"` // comma-separated
	Description string `json:"description"`
	Snippet     string `json:"snippet"`
	LicenseInfo string `json:"licenseInfo"`
}

// PublishInfo is the derived, per-dataset record consumed by the upload
// sequence. All fields are final: no further derivation happens downstream.
type PublishInfo struct {
	Name        string   // AGOL item title
	Summary     string   // snippet, truncated to SummaryMaxLen
	Groups      []string // group names to share with
	Tags        string   // comma-joined tag list
	Description string
	TermsOfUse  string
	Credits     string
	Folder      string // destination AGOL folder
}

// SummaryMaxLen is the AGOL snippet length limit.
const SummaryMaxLen = 2047
