package controllers

import (
	"net/http"

	"github.com/tableside/tableside/api/responses"
	"github.com/tableside/tableside/api/validators"
	"github.com/tableside/tableside/pkg/logger"
	"github.com/tableside/tableside/pkg/types"

	"github.com/tableside/tableside/internal/aggregate"
	"github.com/tableside/tableside/internal/session"
)

type groupView struct {
	aggregate.Group
	TotalPrice types.Money `json:"total_price"`
}

type groupsResponse struct {
	OrderID int64       `json:"order_id,omitempty"`
	Groups  []groupView `json:"groups"`
}

type adjustQuantityRequest struct {
	Quantity int `json:"quantity" validate:"required,min=1,max=20"`
}

type submitResponse struct {
	OrderID int64 `json:"order_id"`
}

// OrderGroups returns the active order's rows folded into per-dish groups.
func OrderGroups(engine *session.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		groups := engine.DishGroups()
		views := make([]groupView, 0, len(groups))
		for _, group := range groups {
			views = append(views, groupView{Group: group, TotalPrice: group.TotalPrice()})
		}
		resp := groupsResponse{Groups: views}
		if active := engine.ActiveOrder(); active != nil {
			resp.OrderID = active.ID
		}
		responses.WriteSuccess(w, resp)
	}
}

// OrderAdjustQuantity moves one dish group's aggregate quantity.
func OrderAdjustQuantity(engine *session.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dishID, err := dishIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req adjustQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := engine.AdjustGroupQuantity(r.Context(), dishID, req.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "adjusted"})
	}
}

// OrderSubmit sends the draft cart upstream.
func OrderSubmit(engine *session.Engine, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		order, err := engine.Submit(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, submitResponse{OrderID: order.ID})
	}
}
