package enums

import "fmt"

// OrderStatus is the lifecycle state of an order. Numeric values are the
// wire ids used by the order service; completed and later states are
// terminal from the table's point of view.
type OrderStatus int

const (
	OrderStatusPending   OrderStatus = 1
	OrderStatusCooking   OrderStatus = 2
	OrderStatusCompleted OrderStatus = 3
	OrderStatusPaid      OrderStatus = 4
	OrderStatusCancelled OrderStatus = 5
)

var orderStatusLabels = map[OrderStatus]string{
	OrderStatusPending:   "pending",
	OrderStatusCooking:   "cooking",
	OrderStatusCompleted: "completed",
	OrderStatusPaid:      "paid",
	OrderStatusCancelled: "cancelled",
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	if label, ok := orderStatusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("order_status(%d)", int(s))
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	_, ok := orderStatusLabels[s]
	return ok
}

// IsActive reports whether the order still accepts items.
func (s OrderStatus) IsActive() bool {
	return s == OrderStatusPending || s == OrderStatusCooking
}

// IsTerminal reports whether the order has been closed out by staff.
func (s OrderStatus) IsTerminal() bool {
	return s.IsValid() && s >= OrderStatusCompleted
}

// ParseOrderStatus converts a wire id into an OrderStatus.
func ParseOrderStatus(id int) (OrderStatus, error) {
	status := OrderStatus(id)
	if !status.IsValid() {
		return 0, fmt.Errorf("invalid order status id %d", id)
	}
	return status, nil
}
