// Package audit inspects the org's hosted feature services: it enumerates
// items, builds the tag index, runs the tag analyses, and drives the tag
// fixer.
package audit

import (
	"context"
	"fmt"

	"github.com/agrc/agol-shelf/internal/models"
	"github.com/agrc/agol-shelf/internal/tags"
)

// Enumeration strategies for building the item list. Owner search and
// folder walk can disagree when other users' items sit in the account's
// folders.
const (
	MethodOwner  = "owner"
	MethodFolder = "folder"
)

const featureServiceType = "Feature Service"

// Portal is the slice of the AGOL client the audit needs.
type Portal interface {
	SearchItems(ctx context.Context, query, itemType string) ([]models.Item, error)
	ListFolders(ctx context.Context) ([]models.Folder, error)
	ListFolderItems(ctx context.Context, folderID string) ([]models.Item, error)
	ItemGroups(ctx context.Context, itemID string) models.GroupsResult
	ItemUsage(ctx context.Context, itemID, period string) (*models.UsageStats, error)
	UpdateItemTags(ctx context.Context, itemID, folderID string, tagList []string) error
	Username() string
}

// CollectItems enumerates the account's feature services with the chosen
// strategy. The folder walk stamps each item with its folder title, "_root"
// for the top level.
func CollectItems(ctx context.Context, portal Portal, method string) ([]models.Item, error) {
	switch method {
	case MethodOwner:
		return portal.SearchItems(ctx, "owner:"+portal.Username(), featureServiceType)
	case MethodFolder:
		return collectByFolder(ctx, portal)
	default:
		return nil, fmt.Errorf("unknown enumeration method %q", method)
	}
}

func collectByFolder(ctx context.Context, portal Portal) ([]models.Item, error) {
	folders, err := portal.ListFolders(ctx)
	if err != nil {
		return nil, err
	}

	// the root folder first, then every named folder
	var items []models.Item
	rootItems, err := portal.ListFolderItems(ctx, "")
	if err != nil {
		return nil, err
	}
	for _, item := range rootItems {
		if item.Type != featureServiceType {
			continue
		}
		item.Folder = "_root"
		items = append(items, item)
	}

	for _, folder := range folders {
		folderItems, err := portal.ListFolderItems(ctx, folder.ID)
		if err != nil {
			return nil, err
		}
		for _, item := range folderItems {
			if item.Type != featureServiceType {
				continue
			}
			item.Folder = folder.Title
			item.FolderID = folder.ID
			items = append(items, item)
		}
	}

	return items, nil
}

// BuildIndex builds the tag index from scratch: every tag spelling mapped
// to the titles of the items carrying it. Never merged with a prior index.
func BuildIndex(items []models.Item) tags.Index {
	index := tags.Index{}
	for _, item := range items {
		for _, tag := range item.Tags {
			index[tag] = append(index[tag], item.Title)
		}
	}
	return index
}
