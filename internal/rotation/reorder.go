package rotation

import (
	"fmt"

	"github.com/maheshrc27/contentloop/internal/models"
)

// ReorderPolicy decides what happens to identifiers that are not items of
// the loop being reordered.
type ReorderPolicy int

const (
	// IgnoreUnknown drops foreign identifiers and reorders the rest.
	IgnoreUnknown ReorderPolicy = iota
	// RejectUnknown fails the whole reorder without changing anything.
	RejectUnknown
)

// Reorder assigns positions 0..n-1 following order. Repeated identifiers
// count once. Items missing from order keep their relative order after the
// listed ones. The returned slice is in the new order.
func Reorder(items []*models.LoopItem, order []int64, policy ReorderPolicy) ([]*models.LoopItem, error) {
	byID := make(map[int64]*models.LoopItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	seen := make(map[int64]bool, len(order))
	ordered := make([]*models.LoopItem, 0, len(items))
	for _, id := range order {
		item, ok := byID[id]
		if !ok {
			if policy == RejectUnknown {
				return nil, fmt.Errorf("%w: %d", ErrUnknownItem, id)
			}
			continue
		}
		if seen[id] {
			continue
		}
		seen[id] = true
		ordered = append(ordered, item)
	}

	for _, item := range Sorted(items) {
		if !seen[item.ID] {
			ordered = append(ordered, item)
		}
	}

	for i, item := range ordered {
		item.Position = i
	}
	return ordered, nil
}
