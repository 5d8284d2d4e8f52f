package enums

import "fmt"

// ItemStatus is the kitchen state of one order-item row. The numeric value
// is the wire id used by the order service, and doubles as the advancement
// order: a higher value is further along the kitchen pipeline.
type ItemStatus int

const (
	ItemStatusPending ItemStatus = 1
	ItemStatusCooking ItemStatus = 2
	ItemStatusReady   ItemStatus = 3
	ItemStatusServed  ItemStatus = 4
)

var itemStatusLabels = map[ItemStatus]string{
	ItemStatusPending: "pending",
	ItemStatusCooking: "cooking",
	ItemStatusReady:   "ready",
	ItemStatusServed:  "served",
}

// String implements fmt.Stringer.
func (s ItemStatus) String() string {
	if label, ok := itemStatusLabels[s]; ok {
		return label
	}
	return fmt.Sprintf("item_status(%d)", int(s))
}

// IsValid reports whether the value is a known ItemStatus.
func (s ItemStatus) IsValid() bool {
	_, ok := itemStatusLabels[s]
	return ok
}

// InKitchen reports whether the row still has work pending in the kitchen.
func (s ItemStatus) InKitchen() bool {
	return s == ItemStatusPending || s == ItemStatusCooking
}

// MoreAdvancedThan compares kitchen progress between two statuses.
func (s ItemStatus) MoreAdvancedThan(other ItemStatus) bool {
	return s > other
}

// ParseItemStatus converts a wire id into an ItemStatus.
func ParseItemStatus(id int) (ItemStatus, error) {
	status := ItemStatus(id)
	if !status.IsValid() {
		return 0, fmt.Errorf("invalid item status id %d", id)
	}
	return status, nil
}
