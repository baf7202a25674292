// Package tags implements tag hygiene for hosted feature services: the
// normalizer that rewrites an item's tag list from its title and sharing
// groups, and the duplicate detector over a tag index.
package tags

import (
	"sort"
	"strings"
)

// categoryMarker is the group-name prefix that identifies open-data SGID
// groups. The category is whatever follows it.
const categoryMarker = "Utah SGID"

// acronyms maps case-folded spellings to their canonical uppercase form.
var acronyms = map[string]string{
	"sgid": "SGID",
	"agrc": "AGRC",
	"gis":  "GIS",
	"dnr":  "DNR",
	"dwr":  "DWR",
	"udot": "UDOT",
	"ugrc": "UGRC",
	"blm":  "BLM",
	"usfs": "USFS",
	"nhd":  "NHD",
	"dem":  "DEM",
}

// Normalize recomputes an item's tag list from its current tags, its title,
// and the titles of the groups it is shared with. The result is
// deterministic and idempotent: normalizing an already-normalized list is a
// no-op as long as title and groups are unchanged.
func Normalize(current []string, title string, groupTitles []string) []string {
	titleWords := strings.Fields(title)

	newTags := []string{}
	for _, tag := range current {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}

		folded := strings.ToLower(tag)

		if canonical, ok := acronyms[folded]; ok {
			newTags = append(newTags, canonical)
			continue
		}

		// "Utah" is worth keeping unless the title already says it
		if folded == "utah" {
			if !containsWord(titleWords, "Utah") {
				newTags = append(newTags, "Utah")
			}
			continue
		}

		if folded == ".sd" || folded == "service definition" {
			continue
		}

		// drop tags redundant with the title
		if containsWord(titleWords, tag) {
			continue
		}
		if strings.Contains(tag, " ") && strings.Contains(title, tag) {
			continue
		}

		newTags = append(newTags, tag)
	}

	for _, group := range groupTitles {
		category, ok := CategoryFromGroup(group)
		if !ok {
			continue
		}

		// replace a lowercase category tag with the proper form
		if i := indexOf(newTags, strings.ToLower(category)); i >= 0 && strings.ToLower(category) != category {
			newTags[i] = category
		} else if indexOf(newTags, category) < 0 {
			newTags = append(newTags, category)
		}
		if indexOf(newTags, "SGID") < 0 {
			newTags = append(newTags, "SGID")
		}
	}

	return newTags
}

// CategoryFromGroup extracts the category from an open-data group name:
// everything after the "Utah SGID" marker, trimmed. Reports false for
// groups without the marker or with nothing after it.
func CategoryFromGroup(group string) (string, bool) {
	idx := strings.Index(group, categoryMarker)
	if idx < 0 {
		return "", false
	}
	category := strings.TrimSpace(group[idx+len(categoryMarker):])
	if category == "" {
		return "", false
	}
	return category, true
}

// SameTagSet compares two tag lists order-insensitively.
func SameTagSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string(nil), a...)
	bs := append([]string(nil), b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func containsWord(words []string, want string) bool {
	for _, w := range words {
		if w == want {
			return true
		}
	}
	return false
}

func indexOf(tags []string, want string) int {
	for i, tag := range tags {
		if tag == want {
			return i
		}
	}
	return -1
}
