// Package rotation holds the position arithmetic of a loop: which item is
// next, how the cursor advances and wraps, and how positions are rewritten
// when items are reordered or removed. It never touches storage; callers run
// it inside the loop's locked unit of work.
package rotation

import (
	"fmt"
	"sort"
	"time"

	"github.com/maheshrc27/contentloop/internal/models"
)

var (
	ErrUnknownItem   = fmt.Errorf("%w: item does not belong to this loop", models.ErrInvalidInput)
	ErrItemNotInLoop = fmt.Errorf("%w: loop item", models.ErrNotFound)
)

type Engine struct {
	now func() time.Time
}

func NewEngine() *Engine {
	return &Engine{now: time.Now}
}

func NewEngineWithClock(now func() time.Time) *Engine {
	return &Engine{now: now}
}

// NextItem returns the item at current_position mod n, or nil for an empty loop.
func NextItem(loop *models.Loop, items []*models.LoopItem) *models.LoopItem {
	n := len(items)
	if n == 0 {
		return nil
	}
	want := ((loop.CurrentPosition % n) + n) % n
	for _, item := range items {
		if item.Position == want {
			return item
		}
	}
	return nil
}

// Advance moves the cursor one step for a loop holding itemCount items. It
// is not idempotent: call it once per real dispatch tick.
func (e *Engine) Advance(loop *models.Loop, itemCount int) {
	e.AdvanceAt(loop, itemCount, e.now())
}

// AdvanceAt is Advance with last_fired_at stamped to the tick instant.
func (e *Engine) AdvanceAt(loop *models.Loop, itemCount int, at time.Time) {
	loop.LastFiredAt = &at
	if itemCount <= 0 {
		loop.CurrentPosition = 0
		return
	}
	loop.CurrentPosition++
	if loop.CurrentPosition >= itemCount {
		loop.CurrentPosition = 0
		loop.TotalCyclesCompleted++
	}
}

// Selection is the item chosen for one tick, with the loop state after the
// advance.
type Selection struct {
	Loop models.Loop
	Item *models.LoopItem
	// AlreadyFired is set when another tick fired this loop in the same
	// minute; nothing was advanced.
	AlreadyFired bool
}

// Select picks the next item for the tick at `at` and advances the loop in
// one step. It returns nil when the loop is inactive or empty.
func (e *Engine) Select(loop *models.Loop, items []*models.LoopItem, at time.Time) *Selection {
	if !loop.Active || len(items) == 0 {
		return nil
	}
	if loop.FiredWithin(at) {
		return &Selection{Loop: *loop, AlreadyFired: true}
	}
	item := NextItem(loop, items)
	if item == nil {
		return nil
	}
	e.AdvanceAt(loop, len(items), at)
	return &Selection{Loop: *loop, Item: item}
}

// Sorted returns a copy of items ordered by position.
func Sorted(items []*models.LoopItem) []*models.LoopItem {
	out := make([]*models.LoopItem, len(items))
	copy(out, items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

// NextPosition is the position a newly appended item takes.
func NextPosition(items []*models.LoopItem) int {
	return len(items)
}
