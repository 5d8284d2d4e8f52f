package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tableside/tableside/pkg/config"
	"github.com/tableside/tableside/pkg/enums"
	"github.com/tableside/tableside/pkg/logger"
	"github.com/tableside/tableside/pkg/types"

	"github.com/tableside/tableside/internal/draft"
	"github.com/tableside/tableside/internal/session"
	"github.com/tableside/tableside/internal/upstream"
)

// orderServiceStub fakes the upstream REST service behind the engine.
type orderServiceStub struct {
	orders []upstream.Order
	rows   []upstream.OrderItemRow
}

func (s *orderServiceStub) ListOrders(context.Context, upstream.OrderFilter) ([]upstream.Order, error) {
	return s.orders, nil
}

func (s *orderServiceStub) GetOrder(context.Context, int64) (*upstream.Order, error) {
	return nil, nil
}

func (s *orderServiceStub) CreateOrder(_ context.Context, input upstream.CreateOrderInput) (*upstream.Order, error) {
	order := upstream.Order{ID: 90, TableID: input.TableID, StatusID: input.StatusID}
	s.orders = append(s.orders, order)
	return &order, nil
}

func (s *orderServiceStub) UpdateOrder(context.Context, int64, upstream.UpdateOrderInput) (*upstream.Order, error) {
	return nil, nil
}

func (s *orderServiceStub) ListOrderItems(context.Context, int64) ([]upstream.OrderItemRow, error) {
	return s.rows, nil
}

func (s *orderServiceStub) CreateOrderItem(_ context.Context, input upstream.CreateOrderItemInput) (*upstream.OrderItemRow, error) {
	row := upstream.OrderItemRow{
		ID:       int64(len(s.rows) + 1),
		OrderID:  input.OrderID,
		Dish:     upstream.Dish{ID: input.DishID},
		Quantity: input.Quantity,
		StatusID: input.StatusID,
	}
	s.rows = append(s.rows, row)
	return &row, nil
}

func (s *orderServiceStub) UpdateOrderItem(context.Context, int64, upstream.UpdateOrderItemInput) (*upstream.OrderItemRow, error) {
	return nil, nil
}

func (s *orderServiceStub) DeleteOrderItem(context.Context, int64) error {
	return nil
}

func newTestServer(t *testing.T, stub *orderServiceStub) (*httptest.Server, *draft.Store) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	store, err := draft.NewStore(context.Background(), draft.NewMemoryPersistence(), logg)
	require.NoError(t, err)

	engine, err := session.NewEngine(session.Params{
		Logger:   logg,
		Upstream: stub,
		Draft:    store,
		TableID:  3,
		Closure:  config.ClosureConfig{Debounce: time.Second, NotificationTTL: time.Minute},
	})
	require.NoError(t, err)
	require.NoError(t, engine.Reconcile(context.Background()))

	cfg := &config.Config{}
	cfg.App.Env = "dev"
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	handler := NewRouter(cfg, logg, engine, store, prometheus.NewRegistry())
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server, store
}

func getJSON(t *testing.T, url string, dest any) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if dest != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(dest))
	}
	return resp.StatusCode
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestHealthEndpoints(t *testing.T) {
	server, _ := newTestServer(t, &orderServiceStub{})

	assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/health/live", nil))
	assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/health/ready", nil))
}

func TestMetricsEndpointExposed(t *testing.T) {
	server, _ := newTestServer(t, &orderServiceStub{})

	assert.Equal(t, http.StatusOK, getJSON(t, server.URL+"/metrics", nil))
}

func TestCartLifecycleOverHTTP(t *testing.T) {
	server, _ := newTestServer(t, &orderServiceStub{})

	resp := postJSON(t, server.URL+"/api/v1/cart/items", map[string]any{
		"dish_id":    101,
		"name":       "ramen",
		"unit_price": "12.50",
		"quantity":   2,
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var envelope struct {
		Data struct {
			Lines      []draft.Line `json:"lines"`
			TotalCount int          `json:"total_count"`
			TotalPrice types.Money  `json:"total_price"`
		} `json:"data"`
	}
	status := getJSON(t, server.URL+"/api/v1/cart", &envelope)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, envelope.Data.Lines, 1)
	assert.Equal(t, 2, envelope.Data.TotalCount)
	assert.Equal(t, "25.00", envelope.Data.TotalPrice.String())
}

func TestCartRejectsUnknownFields(t *testing.T) {
	server, _ := newTestServer(t, &orderServiceStub{})

	resp := postJSON(t, server.URL+"/api/v1/cart/items", map[string]any{
		"dish_id":  101,
		"name":     "ramen",
		"quantity": 1,
		"surprise": true,
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSubmitAndTimelineOverHTTP(t *testing.T) {
	stub := &orderServiceStub{}
	server, store := newTestServer(t, stub)

	postJSON(t, server.URL+"/api/v1/cart/items", map[string]any{
		"dish_id":  101,
		"name":     "ramen",
		"quantity": 1,
	})

	var timeline struct {
		Data struct {
			Step enums.TimelineStep `json:"step"`
		} `json:"data"`
	}
	getJSON(t, server.URL+"/api/v1/timeline", &timeline)
	assert.Equal(t, enums.TimelineStepPlacing, timeline.Data.Step)

	resp := postJSON(t, server.URL+"/api/v1/order/submit", map[string]any{})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Zero(t, store.TotalCount())
}

func TestSubmitEmptyCartRejected(t *testing.T) {
	server, _ := newTestServer(t, &orderServiceStub{})

	resp := postJSON(t, server.URL+"/api/v1/order/submit", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClosureEndpointsOverHTTP(t *testing.T) {
	server, _ := newTestServer(t, &orderServiceStub{})

	var closureResp struct {
		Data struct {
			Notification *json.RawMessage `json:"notification"`
		} `json:"data"`
	}
	status := getJSON(t, server.URL+"/api/v1/closure", &closureResp)
	require.Equal(t, http.StatusOK, status)
	assert.Nil(t, closureResp.Data.Notification)

	resp := postJSON(t, server.URL+"/api/v1/closure/dismiss", map[string]any{})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
