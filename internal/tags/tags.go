// Package tags holds the small set operations targets and rules use on tag lists.
package tags

import (
	"sort"
	"strings"
)

// Merge concatenates the lists, dropping blanks and repeats. First occurrence wins.
func Merge(lists ...[]string) []string {
	seen := make(map[string]bool)
	merged := make([]string, 0)

	for _, list := range lists {
		for _, tag := range list {
			tag = strings.TrimSpace(tag)
			if tag == "" || seen[tag] {
				continue
			}
			seen[tag] = true
			merged = append(merged, tag)
		}
	}
	return merged
}

// HasMatching reports whether any rule tag is present. A rule without tags matches everything.
func HasMatching(allTags, ruleTags []string) bool {
	if len(ruleTags) == 0 {
		return true
	}

	tagMap := make(map[string]bool, len(allTags))
	for _, tag := range allTags {
		tagMap[tag] = true
	}

	for _, ruleTag := range ruleTags {
		if tagMap[ruleTag] {
			return true
		}
	}
	return false
}

// Label renders tags as a stable metric label value.
func Label(tags []string) string {
	if len(tags) == 0 {
		return "none"
	}
	sorted := append([]string(nil), tags...)
	sort.Strings(sorted)
	return strings.Join(sorted, ",")
}
