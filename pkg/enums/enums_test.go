package enums

import "testing"

func TestItemStatusOrdering(t *testing.T) {
	if !ItemStatusServed.MoreAdvancedThan(ItemStatusReady) {
		t.Fatal("served should outrank ready")
	}
	if ItemStatusPending.MoreAdvancedThan(ItemStatusCooking) {
		t.Fatal("pending should not outrank cooking")
	}
}

func TestItemStatusParse(t *testing.T) {
	status, err := ParseItemStatus(3)
	if err != nil {
		t.Fatalf("ParseItemStatus: %v", err)
	}
	if status != ItemStatusReady {
		t.Fatalf("unexpected status: %s", status)
	}
	if _, err := ParseItemStatus(9); err == nil {
		t.Fatal("expected error for unknown id")
	}
}

func TestOrderStatusLifecycle(t *testing.T) {
	for _, status := range []OrderStatus{OrderStatusPending, OrderStatusCooking} {
		if !status.IsActive() || status.IsTerminal() {
			t.Fatalf("%s should be active and not terminal", status)
		}
	}
	for _, status := range []OrderStatus{OrderStatusCompleted, OrderStatusPaid, OrderStatusCancelled} {
		if status.IsActive() || !status.IsTerminal() {
			t.Fatalf("%s should be terminal and not active", status)
		}
	}
	if OrderStatus(42).IsTerminal() {
		t.Fatal("unknown status must not report terminal")
	}
}
