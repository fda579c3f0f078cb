package model

import (
	"sort"
	"strings"
)

// Tags are free-form labels with no identity beyond their text. They are
// lowercased on the way in and restricted to [a-z0-9_-] so they can never
// collide with the record delimiters of the text codec.
func validTag(tag string) bool {
	if tag == "" {
		return false
	}
	for _, c := range tag {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		case c == '-' || c == '_':
		default:
			return false
		}
	}
	return true
}

// NormalizeTags lowercases, validates, deduplicates and sorts the given tags.
// The sorted order makes encoded records deterministic.
func NormalizeTags(tags []string) ([]string, error) {
	if len(tags) == 0 {
		return nil, nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		if !validTag(tag) {
			return nil, &ValidationError{Field: "tag", Value: tag,
				Reason: "tags may only contain lowercase letters, digits, '-' or '_'"}
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out, nil
}

// HasAnyTag reports whether any of the wanted tags is present in tags.
// Both slices are expected to be normalized.
func HasAnyTag(tags, wanted []string) bool {
	for _, w := range wanted {
		for _, t := range tags {
			if t == w {
				return true
			}
		}
	}
	return false
}

// MergeTags returns the normalized union of two already-normalized tag sets.
func MergeTags(a, b []string) []string {
	merged, _ := NormalizeTags(append(append([]string{}, a...), b...))
	return merged
}
