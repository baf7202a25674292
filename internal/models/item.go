package models

import "time"

// Item is a content item on the portal. Only tags and sharing are ever
// written back; everything else is read-only from our side.
type Item struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Owner         string   `json:"owner"`
	Type          string   `json:"type"`
	Tags          []string `json:"tags"`
	Snippet       string   `json:"snippet"`
	Description   string   `json:"description"`
	LicenseInfo   string   `json:"licenseInfo"`
	AccessInfo    string   `json:"accessInformation"`
	ContentStatus string   `json:"contentStatus"`
	Protected     bool     `json:"protected"`
	Size          int64    `json:"size"`
	NumViews      int64    `json:"numViews"`
	Modified      int64    `json:"modified"` // epoch milliseconds
	URL           string   `json:"url"`

	// Folder is the title of the containing folder, filled in during a
	// folder walk. "_root" for items at the top level.
	Folder string `json:"-"`

	// FolderID is the containing folder's ID, also filled in during a
	// folder walk. Empty for root items. Updates to foldered items have
	// to go through the folder segment of the user content path.
	FolderID string `json:"-"`
}

// ModifiedTime converts the epoch-millisecond Modified field to a time.Time.
func (i Item) ModifiedTime() time.Time {
	return time.UnixMilli(i.Modified)
}

// SizeMB returns the item size in megabytes.
func (i Item) SizeMB() float64 {
	return float64(i.Size) / 1024 / 1024
}

// Folder is a content folder owned by a portal user.
type Folder struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// Group is a sharing group on the portal.
type Group struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// GroupsResult is the outcome of a group-membership lookup for one item.
// A denied or failed lookup is not the same as an item shared with no
// groups, so the failure reason travels with the result.
type GroupsResult struct {
	Groups []Group
	Err    error // non-nil when the lookup itself failed
}

// Failed reports whether the lookup failed (as opposed to returning an
// empty group list).
func (r GroupsResult) Failed() bool {
	return r.Err != nil
}

// Titles returns the group titles in listing order.
func (r GroupsResult) Titles() []string {
	titles := make([]string, 0, len(r.Groups))
	for _, g := range r.Groups {
		titles = append(titles, g.Title)
	}
	return titles
}

// UsageStats is the usage-statistics read for one item over a period.
type UsageStats struct {
	Requests int64
}
