package tags

import (
	"regexp"
	"strings"
)

// All is the implicit category every note belongs to.
const All = "all"

// Word characters are Unicode aware so "#café" and "#заметки" are tags too.
const wordClass = `[\p{L}\p{M}\p{N}_-]`

var (
	reHashtag = regexp.MustCompile(`#(` + wordClass + `+)`)
	reTag     = regexp.MustCompile(`^` + wordClass + `+$`)
)

// Parse extracts the hashtags of text, lower-cased and in first-occurrence
// order, with All always in front. It never fails.
func Parse(text string) []string {
	out := []string{All}
	seen := map[string]bool{All: true}

	for _, m := range reHashtag.FindAllStringSubmatch(text, -1) {
		tag := strings.ToLower(m[1])
		if seen[tag] {
			continue
		}
		seen[tag] = true
		out = append(out, tag)
	}
	return out
}

// Normalize turns user input like " #Work " into "work".
func Normalize(tag string) string {
	tag = strings.TrimSpace(tag)
	tag = strings.TrimLeft(tag, "#")
	return strings.ToLower(tag)
}

// Valid reports whether tag (already normalized) could have come out of Parse.
func Valid(tag string) bool {
	return reTag.MatchString(tag)
}

// Merge appends extra to base, skipping duplicates and anything that is not a
// valid tag. Order of first appearance is kept and All stays first.
func Merge(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	seen := make(map[string]bool, len(base)+len(extra))

	add := func(t string) {
		t = Normalize(t)
		if !Valid(t) || seen[t] {
			return
		}
		seen[t] = true
		out = append(out, t)
	}

	add(All)
	for _, t := range base {
		add(t)
	}
	for _, t := range extra {
		add(t)
	}
	return out
}

// Contains does a case-insensitive membership check.
func Contains(set []string, tag string) bool {
	tag = Normalize(tag)
	for _, t := range set {
		if t == tag {
			return true
		}
	}
	return false
}
