// Package aggregate folds raw order-item rows into per-dish groups for
// display. It is a pure transform: every new snapshot recomputes the groups
// from scratch, and nothing here mutates rows.
package aggregate

import (
	"github.com/tableside/tableside/pkg/enums"
	"github.com/tableside/tableside/pkg/types"

	"github.com/tableside/tableside/internal/upstream"
)

// ConstituentRow is one underlying order-item row inside a group, in
// creation order (oldest first). The reallocator consumes this shape.
type ConstituentRow struct {
	ID       int64            `json:"id"`
	Quantity int              `json:"quantity"`
	Status   enums.ItemStatus `json:"status"`
}

// Group is the client-derived aggregation of all rows for one dish within
// one order.
type Group struct {
	DishID    int64            `json:"dish_id"`
	Name      string           `json:"name"`
	UnitPrice types.Money      `json:"unit_price"`
	Quantity  int              `json:"quantity"`
	Status    enums.ItemStatus `json:"status"`
	Rows      []ConstituentRow `json:"rows"`
}

// TotalPrice is the group's aggregate quantity times its unit price.
func (g Group) TotalPrice() types.Money {
	return g.UnitPrice.MulInt(g.Quantity)
}

// Groups collapses rows into one Group per distinct dish id, in first-seen
// order. Quantities sum across rows; the display status is the most advanced
// status among the rows, so a dish never shows "pending" once any unit of it
// has started cooking.
func Groups(rows []upstream.OrderItemRow) []Group {
	byDish := make(map[int64]int, len(rows))
	groups := make([]Group, 0, len(rows))

	for _, row := range rows {
		idx, seen := byDish[row.Dish.ID]
		if !seen {
			byDish[row.Dish.ID] = len(groups)
			groups = append(groups, Group{
				DishID:    row.Dish.ID,
				Name:      row.Dish.Name,
				UnitPrice: row.Dish.Price,
				Quantity:  row.Quantity,
				Status:    row.StatusID,
				Rows: []ConstituentRow{{
					ID:       row.ID,
					Quantity: row.Quantity,
					Status:   row.StatusID,
				}},
			})
			continue
		}
		group := &groups[idx]
		group.Quantity += row.Quantity
		if row.StatusID.MoreAdvancedThan(group.Status) {
			group.Status = row.StatusID
		}
		group.Rows = append(group.Rows, ConstituentRow{
			ID:       row.ID,
			Quantity: row.Quantity,
			Status:   row.StatusID,
		})
	}

	return groups
}

// Find returns the group for the given dish id, or nil.
func Find(groups []Group, dishID int64) *Group {
	for i := range groups {
		if groups[i].DishID == dishID {
			return &groups[i]
		}
	}
	return nil
}
