// Package query derives display views from a wishlist container. Everything
// here is a pure function of its inputs; nothing in this package mutates an
// item or holds state.
package query

import (
	"sort"
	"strings"

	"github.com/avoskres/wishkeeper/internal/models"
)

// Params describes the view a projection should produce.
type Params struct {
	// Search is matched case-insensitively against text, category and notes.
	// Empty matches everything.
	Search string
	// Category, when non-empty, keeps only items whose category equals it
	// exactly.
	Category string
	// Sort orders the pending group. Done items always come last, newest
	// first, regardless of this mode.
	Sort models.SortMode
}

// Project filters and orders items for display: items matching Search and
// Category are split into a pending group sorted per Params.Sort, followed by
// the done group sorted by id descending. Both sorts are stable, so items
// with equal keys keep their relative creation order. The input slice is not
// modified and the result shares the input's item pointers.
func Project(items []*models.Item, p Params) []*models.Item {
	var pending, done []*models.Item
	for _, it := range items {
		if !matches(it, p.Search, p.Category) {
			continue
		}
		if it.Done {
			done = append(done, it)
		} else {
			pending = append(pending, it)
		}
	}

	switch p.Sort {
	case models.SortPriceLow:
		sort.SliceStable(pending, func(i, j int) bool {
			return priceKey(pending[i], unsetLast) < priceKey(pending[j], unsetLast)
		})
	case models.SortPriceHigh:
		sort.SliceStable(pending, func(i, j int) bool {
			return priceKey(pending[i], unsetFirst) > priceKey(pending[j], unsetFirst)
		})
	case models.SortOldest:
		sort.SliceStable(pending, func(i, j int) bool {
			return pending[i].ID < pending[j].ID
		})
	default: // newest
		sort.SliceStable(pending, func(i, j int) bool {
			return pending[i].ID > pending[j].ID
		})
	}

	// Done items sink to the bottom, most recently created first.
	sort.SliceStable(done, func(i, j int) bool {
		return done[i].ID > done[j].ID
	})

	return append(pending, done...)
}

// Categories collects every category present across the full, unfiltered
// container, deduplicated and sorted lexicographically. It deliberately
// ignores search and category filters so that filter controls stay stable
// while the user narrows the view.
func Categories(items []*models.Item) []string {
	seen := make(map[string]struct{})
	var cats []string
	for _, it := range items {
		if it.Category == nil {
			continue
		}
		if _, ok := seen[*it.Category]; ok {
			continue
		}
		seen[*it.Category] = struct{}{}
		cats = append(cats, *it.Category)
	}
	sort.Strings(cats)
	return cats
}

func matches(it *models.Item, search, category string) bool {
	if category != "" && (it.Category == nil || *it.Category != category) {
		return false
	}
	if search == "" {
		return true
	}
	q := strings.ToLower(search)
	if strings.Contains(strings.ToLower(it.Text), q) {
		return true
	}
	if it.Category != nil && strings.Contains(strings.ToLower(*it.Category), q) {
		return true
	}
	if it.Notes != nil && strings.Contains(strings.ToLower(*it.Notes), q) {
		return true
	}
	return false
}

const (
	unsetLast  = true
	unsetFirst = false
)

// priceKey returns the numeric sort key for an item's price. Items without a
// parseable price get +Inf when unsetLast (ascending sorts) or -Inf when
// unsetFirst (descending sorts), so they always rank below priced items.
func priceKey(it *models.Item, last bool) float64 {
	if it.Price != nil {
		if v, ok := ParsePrice(*it.Price); ok {
			return v
		}
	}
	if last {
		return posInf
	}
	return negInf
}
