package engine

import (
	"sort"
	"time"
)

// Presentation is the render-time view of a list's items: pending first,
// completed last, each group in stored order. It is never written back.
type Presentation struct {
	Pending        []Item
	Completed      []Item
	CompletedCount int
}

func PresentItems(items []Item) Presentation {
	p := Presentation{
		Pending:   make([]Item, 0, len(items)),
		Completed: make([]Item, 0),
	}
	for i := range items {
		if items[i].IsCompleted {
			p.Completed = append(p.Completed, cloneItem(items[i]))
			continue
		}
		p.Pending = append(p.Pending, cloneItem(items[i]))
	}
	p.CompletedCount = len(p.Completed)
	return p
}

// Flatten returns the display order. The separator sits at len(p.Pending).
func (p Presentation) Flatten() []Item {
	out := make([]Item, 0, len(p.Pending)+len(p.Completed))
	out = append(out, p.Pending...)
	return append(out, p.Completed...)
}

type SortCriterion string

const (
	SortStored SortCriterion = "stored"
	SortStars  SortCriterion = "stars"
	SortRecent SortCriterion = "recent"
)

// SortLists returns a sorted copy; the input slice and the cache order are
// left untouched. Ties keep their stored order.
func SortLists(lists []List, criterion SortCriterion) []List {
	out := make([]List, len(lists))
	copy(out, lists)

	switch criterion {
	case SortStars:
		sort.SliceStable(out, func(i, j int) bool {
			return out[i].StarsCount > out[j].StarsCount
		})
	case SortRecent:
		sort.SliceStable(out, func(i, j int) bool {
			return recency(out[i]).After(recency(out[j]))
		})
	}
	return out
}

func recency(list List) time.Time {
	if !list.UpdatedAt.IsZero() {
		return list.UpdatedAt
	}
	return list.CreatedAt
}
