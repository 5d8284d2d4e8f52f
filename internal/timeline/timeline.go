// Package timeline derives the guest-facing progress step from the draft
// cart, the active order, and that order's rows. The derivation is stateless;
// "transitions" are just different outputs across calls.
package timeline

import (
	"github.com/tableside/tableside/pkg/enums"

	"github.com/tableside/tableside/internal/upstream"
)

// ComputeStep evaluates the step precedence, first match wins:
//
//  1. placing — the guest holds unsent draft lines. Local edits outrank
//     whatever the kitchen is doing, because "what I'm about to send" is the
//     guest's immediate concern.
//  2. cooking — an active order has rows and at least one is not served yet.
//     An active order whose rows have not arrived yet also reads as cooking
//     rather than flickering to finished between snapshots.
//  3. served — an active order exists and every row is served.
//  4. finished — no active order remains.
func ComputeStep(draftCount int, activeOrder *upstream.Order, rows []upstream.OrderItemRow) enums.TimelineStep {
	if draftCount > 0 {
		return enums.TimelineStepPlacing
	}
	if activeOrder == nil {
		return enums.TimelineStepFinished
	}
	if len(rows) == 0 {
		return enums.TimelineStepCooking
	}
	allServed := true
	for _, row := range rows {
		if row.StatusID != enums.ItemStatusServed {
			allServed = false
			break
		}
	}
	if allServed {
		return enums.TimelineStepServed
	}
	return enums.TimelineStepCooking
}
