package rotation

import (
	"fmt"

	"github.com/maheshrc27/contentloop/internal/models"
)

// Remove takes the item out of the loop, closes the gap it leaves and keeps
// the cursor inside the shortened list. Positions and the cursor are updated
// in place; the caller persists them.
func Remove(loop *models.Loop, items []*models.LoopItem, itemID int64) (*models.LoopItem, []*models.LoopItem, error) {
	var removed *models.LoopItem
	for _, item := range items {
		if item.ID == itemID {
			removed = item
			break
		}
	}
	if removed == nil {
		return nil, nil, fmt.Errorf("%w %d", ErrItemNotInLoop, itemID)
	}

	p := removed.Position
	remaining := make([]*models.LoopItem, 0, len(items)-1)
	for _, item := range Sorted(items) {
		if item.ID == itemID {
			continue
		}
		if item.Position > p {
			item.Position--
		}
		remaining = append(remaining, item)
	}

	if loop.CurrentPosition > p {
		loop.CurrentPosition--
	}
	if loop.CurrentPosition >= len(remaining) {
		loop.CurrentPosition = 0
	}
	return removed, remaining, nil
}
