// Package realloc plans row-level mutations that move a dish group's
// aggregate quantity to a target value. Growth extends the oldest row so
// rows already moving through the kitchen stay untouched; shrink unwinds the
// newest rows first. The plan is pure; callers execute it upstream.
package realloc

import (
	pkgerrors "github.com/tableside/tableside/pkg/errors"

	"github.com/tableside/tableside/internal/aggregate"
)

// OpKind discriminates the two row mutations a plan can contain.
type OpKind string

const (
	OpUpdateQuantity OpKind = "update_quantity"
	OpDelete         OpKind = "delete"
)

// Op is one row-level mutation. Ops apply in slice order.
type Op struct {
	Kind     OpKind
	RowID    int64
	Quantity int
}

// MinQuantity and MaxQuantity bound the target a caller may request. The
// bound is display-layer policy enforced here so no caller can skip it.
const (
	MinQuantity = 1
	MaxQuantity = 20
)

// Plan computes the operations that bring the rows' summed quantity to
// target. Rows must be in creation order, oldest first. An empty plan means
// the rows already sum to target.
func Plan(target int, rows []aggregate.ConstituentRow) ([]Op, error) {
	if target < MinQuantity || target > MaxQuantity {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "target quantity out of range").
			WithDetails(map[string]int{"target": target, "min": MinQuantity, "max": MaxQuantity})
	}
	if len(rows) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeIntegrity, "no rows to reallocate")
	}

	current := 0
	for _, row := range rows {
		current += row.Quantity
	}

	switch {
	case target == current:
		return nil, nil
	case target > current:
		return grow(target-current, rows), nil
	default:
		return shrink(current-target, rows)
	}
}

func grow(delta int, rows []aggregate.ConstituentRow) []Op {
	oldest := rows[0]
	return []Op{{
		Kind:     OpUpdateQuantity,
		RowID:    oldest.ID,
		Quantity: oldest.Quantity + delta,
	}}
}

func shrink(delta int, rows []aggregate.ConstituentRow) ([]Op, error) {
	var ops []Op
	remaining := delta
	for i := len(rows) - 1; i >= 0 && remaining > 0; i-- {
		row := rows[i]
		if row.Quantity > remaining {
			ops = append(ops, Op{
				Kind:     OpUpdateQuantity,
				RowID:    row.ID,
				Quantity: row.Quantity - remaining,
			})
			remaining = 0
			break
		}
		ops = append(ops, Op{Kind: OpDelete, RowID: row.ID})
		remaining -= row.Quantity
	}
	if remaining > 0 {
		// The rows sum to less than the delta implies, so the snapshot the
		// caller planned against has diverged from the server. Applying a
		// partial plan would make it worse.
		return nil, pkgerrors.New(pkgerrors.CodeIntegrity, "reallocation exceeds available row quantity").
			WithDetails(map[string]int{"unconsumed": remaining})
	}
	return ops, nil
}
