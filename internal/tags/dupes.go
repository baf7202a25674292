package tags

import (
	"sort"
	"strings"
)

// Index maps each tag spelling to the titles of the items carrying it.
type Index map[string][]string

// SortedTags returns the index's tags in lexicographic order.
func (idx Index) SortedTags() []string {
	keys := make([]string, 0, len(idx))
	for tag := range idx {
		keys = append(keys, tag)
	}
	sort.Strings(keys)
	return keys
}

// Duplicates groups the index's tags by their case-folded form and reports
// every group with two or more distinct spellings. Two items sharing one
// spelling is not a duplicate; "SGID" next to "sgid" is. Spellings within a
// group are sorted for reproducible output.
func Duplicates(idx Index) map[string][]string {
	spellings := map[string][]string{}
	for tag := range idx {
		folded := strings.ToLower(tag)
		if indexOf(spellings[folded], tag) < 0 {
			spellings[folded] = append(spellings[folded], tag)
		}
	}

	dupes := map[string][]string{}
	for folded, variants := range spellings {
		if len(variants) < 2 {
			continue
		}
		sort.Strings(variants)
		dupes[folded] = variants
	}
	return dupes
}

// LeadingSpaceTags inverts the index for tags with leading whitespace:
// item title -> the spaced tags it carries. This is the report used to spot
// hand-entered tags that slipped past the comma splitter.
func LeadingSpaceTags(idx Index) map[string][]string {
	spaced := map[string][]string{}
	for tag, items := range idx {
		if !strings.HasPrefix(tag, " ") {
			continue
		}
		for _, item := range items {
			spaced[item] = append(spaced[item], tag)
		}
	}
	for item := range spaced {
		sort.Strings(spaced[item])
	}
	return spaced
}
