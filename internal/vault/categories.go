package vault

import (
	"context"
	"sort"

	"github.com/eliseohh/brainvaultbot/internal/tags"
)

// Category is a tag in use together with the number of notes carrying it.
type Category struct {
	Name  string
	Count int
}

// Categories derives the user's categories from their notes: "all" first,
// then alphabetical. A category disappears with its last note.
func (s *Store) Categories(ctx context.Context, userID int64) []Category {
	counts := make(map[string]int)
	for _, n := range s.List(ctx, userID) {
		for _, t := range n.Tags {
			counts[t]++
		}
	}

	out := make([]Category, 0, len(counts))
	for name, c := range counts {
		out = append(out, Category{Name: name, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == tags.All || out[j].Name == tags.All {
			return out[i].Name == tags.All
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Selectable is Categories without "all", which needs no picking.
func (s *Store) Selectable(ctx context.Context, userID int64) []Category {
	var out []Category
	for _, c := range s.Categories(ctx, userID) {
		if c.Name != tags.All {
			out = append(out, c)
		}
	}
	return out
}

// Has reports whether at least one of the user's notes carries tag.
func (s *Store) Has(ctx context.Context, userID int64, tag string) bool {
	tag = tags.Normalize(tag)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, n := range s.notes[userID] {
		if tags.Contains(n.Tags, tag) {
			return true
		}
	}
	return false
}
