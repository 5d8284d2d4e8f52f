package timeline

import (
	"testing"

	"github.com/tableside/tableside/pkg/enums"

	"github.com/tableside/tableside/internal/upstream"
)

func activeOrder() *upstream.Order {
	return &upstream.Order{ID: 7, TableID: 3, StatusID: enums.OrderStatusCooking}
}

func rowsWith(statuses ...enums.ItemStatus) []upstream.OrderItemRow {
	rows := make([]upstream.OrderItemRow, 0, len(statuses))
	for i, status := range statuses {
		rows = append(rows, upstream.OrderItemRow{ID: int64(i + 1), OrderID: 7, Quantity: 1, StatusID: status})
	}
	return rows
}

func TestDraftLinesAlwaysWin(t *testing.T) {
	// Even a fully served order yields placing while unsent edits exist.
	step := ComputeStep(2, activeOrder(), rowsWith(enums.ItemStatusServed, enums.ItemStatusServed))
	if step != enums.TimelineStepPlacing {
		t.Fatalf("expected placing, got %s", step)
	}
}

func TestCookingWhileAnyRowInKitchen(t *testing.T) {
	step := ComputeStep(0, activeOrder(), rowsWith(enums.ItemStatusServed, enums.ItemStatusCooking))
	if step != enums.TimelineStepCooking {
		t.Fatalf("expected cooking, got %s", step)
	}
}

func TestCookingWhenRowsReadyButNotServed(t *testing.T) {
	step := ComputeStep(0, activeOrder(), rowsWith(enums.ItemStatusReady, enums.ItemStatusReady))
	if step != enums.TimelineStepCooking {
		t.Fatalf("expected cooking, got %s", step)
	}
}

func TestCookingWhileRowsNotYetLoaded(t *testing.T) {
	step := ComputeStep(0, activeOrder(), nil)
	if step != enums.TimelineStepCooking {
		t.Fatalf("expected cooking, got %s", step)
	}
}

func TestServedWhenEveryRowServed(t *testing.T) {
	step := ComputeStep(0, activeOrder(), rowsWith(enums.ItemStatusServed, enums.ItemStatusServed))
	if step != enums.TimelineStepServed {
		t.Fatalf("expected served, got %s", step)
	}
}

func TestFinishedWithoutActiveOrder(t *testing.T) {
	if step := ComputeStep(0, nil, nil); step != enums.TimelineStepFinished {
		t.Fatalf("expected finished, got %s", step)
	}
}
