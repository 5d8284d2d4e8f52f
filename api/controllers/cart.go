package controllers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tableside/tableside/api/responses"
	"github.com/tableside/tableside/api/validators"
	pkgerrors "github.com/tableside/tableside/pkg/errors"
	"github.com/tableside/tableside/pkg/logger"
	"github.com/tableside/tableside/pkg/types"

	"github.com/tableside/tableside/internal/draft"
)

type cartView struct {
	Lines      []draft.Line `json:"lines"`
	TotalCount int          `json:"total_count"`
	TotalPrice types.Money  `json:"total_price"`
}

type cartAddRequest struct {
	DishID    int64       `json:"dish_id" validate:"required,gt=0"`
	Name      string      `json:"name" validate:"required"`
	UnitPrice types.Money `json:"unit_price"`
	Quantity  int         `json:"quantity" validate:"min=0"`
}

type cartQuantityRequest struct {
	Quantity int `json:"quantity" validate:"min=0"`
}

func CartFetch(store *draft.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, cartView{
			Lines:      store.Lines(),
			TotalCount: store.TotalCount(),
			TotalPrice: store.TotalPrice(),
		})
	}
}

func CartAdd(store *draft.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req cartAddRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Add(r.Context(), draft.Line{
			DishID:    req.DishID,
			Name:      req.Name,
			UnitPrice: req.UnitPrice,
			Quantity:  req.Quantity,
		})
		responses.WriteSuccessStatus(w, http.StatusCreated, cartView{
			Lines:      store.Lines(),
			TotalCount: store.TotalCount(),
			TotalPrice: store.TotalPrice(),
		})
	}
}

func CartSetQuantity(store *draft.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dishID, err := dishIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var req cartQuantityRequest
		if err := validators.DecodeJSONBody(r, &req); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := store.SetQuantity(r.Context(), dishID, req.Quantity); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cartView{
			Lines:      store.Lines(),
			TotalCount: store.TotalCount(),
			TotalPrice: store.TotalPrice(),
		})
	}
}

func CartRemove(store *draft.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		dishID, err := dishIDParam(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		store.Remove(r.Context(), dishID)
		responses.WriteSuccess(w, map[string]string{"status": "removed"})
	}
}

func CartClear(store *draft.Store, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := store.Clear(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"status": "cleared"})
	}
}

func dishIDParam(r *http.Request) (int64, error) {
	raw := chi.URLParam(r, "dishId")
	dishID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || dishID <= 0 {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "invalid dish id")
	}
	return dishID, nil
}
