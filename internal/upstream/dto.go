package upstream

import (
	"github.com/tableside/tableside/pkg/enums"
	"github.com/tableside/tableside/pkg/types"
)

// Dish is the menu entry embedded in every order-item row. The client never
// mutates dishes; the order service owns them.
type Dish struct {
	ID          int64       `json:"id"`
	Name        string      `json:"name"`
	Price       types.Money `json:"price"`
	Description string      `json:"description,omitempty"`
	ImageURL    string      `json:"image_url,omitempty"`
}

// Order is one order record as the order service reports it.
type Order struct {
	ID       int64             `json:"id"`
	TableID  int64             `json:"table_id"`
	StatusID enums.OrderStatus `json:"status_id"`
}

// OrderItemRow is one server-persisted unit of "N of dish D in order O",
// independently status-tracked. Several rows may reference the same dish.
type OrderItemRow struct {
	ID       int64            `json:"id"`
	OrderID  int64            `json:"order_id"`
	Dish     Dish             `json:"dish"`
	Quantity int              `json:"quantity"`
	StatusID enums.ItemStatus `json:"status_id"`
}

// OrderFilter narrows ListOrders. Nil fields are omitted from the query.
type OrderFilter struct {
	TableID  *int64
	StatusID *enums.OrderStatus
}

// CreateOrderInput is the payload for opening a new order on a table.
type CreateOrderInput struct {
	TableID  int64             `json:"table_id"`
	StatusID enums.OrderStatus `json:"status_id"`
}

// UpdateOrderInput carries a staff-side status transition.
type UpdateOrderInput struct {
	StatusID enums.OrderStatus `json:"status_id"`
}

// CreateOrderItemInput is the payload for adding a row to an order.
type CreateOrderItemInput struct {
	OrderID  int64            `json:"order_id"`
	DishID   int64            `json:"dish_id"`
	Quantity int              `json:"quantity"`
	StatusID enums.ItemStatus `json:"status_id"`
}

// UpdateOrderItemInput mutates a row. Nil fields are left untouched.
type UpdateOrderItemInput struct {
	Quantity *int              `json:"quantity,omitempty"`
	StatusID *enums.ItemStatus `json:"status_id,omitempty"`
}
