package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/tableside/tableside/pkg/config"
	pkgerrors "github.com/tableside/tableside/pkg/errors"
	"github.com/tableside/tableside/pkg/logger"
)

// API is the slice of the order service the engine consumes. The REST paths
// are configuration, not business logic; everything above this interface
// reasons in terms of orders and rows only.
type API interface {
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	GetOrder(ctx context.Context, id int64) (*Order, error)
	CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error)
	UpdateOrder(ctx context.Context, id int64, input UpdateOrderInput) (*Order, error)
	ListOrderItems(ctx context.Context, orderID int64) ([]OrderItemRow, error)
	CreateOrderItem(ctx context.Context, input CreateOrderItemInput) (*OrderItemRow, error)
	UpdateOrderItem(ctx context.Context, id int64, input UpdateOrderItemInput) (*OrderItemRow, error)
	DeleteOrderItem(ctx context.Context, id int64) error
}

// Client talks to the order-management REST service.
type Client struct {
	baseURL string
	http    *http.Client
	logg    *logger.Logger
}

// NewClient builds the upstream client and validates the configuration.
func NewClient(cfg config.UpstreamConfig, logg *logger.Logger) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("upstream base url required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Client{
		baseURL: base,
		http:    &http.Client{Timeout: cfg.Timeout},
		logg:    logg,
	}, nil
}

func (c *Client) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	query := url.Values{}
	if filter.TableID != nil {
		query.Set("table_id", strconv.FormatInt(*filter.TableID, 10))
	}
	if filter.StatusID != nil {
		query.Set("status_id", strconv.Itoa(int(*filter.StatusID)))
	}
	var orders []Order
	if err := c.do(ctx, http.MethodGet, "/orders", query, nil, &orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (c *Client) GetOrder(ctx context.Context, id int64) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/orders/%d", id), nil, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) CreateOrder(ctx context.Context, input CreateOrderInput) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", nil, input, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) UpdateOrder(ctx context.Context, id int64, input UpdateOrderInput) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/orders/%d", id), nil, input, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (c *Client) ListOrderItems(ctx context.Context, orderID int64) ([]OrderItemRow, error) {
	query := url.Values{}
	query.Set("order_id", strconv.FormatInt(orderID, 10))
	var rows []OrderItemRow
	if err := c.do(ctx, http.MethodGet, "/order-items", query, nil, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

func (c *Client) CreateOrderItem(ctx context.Context, input CreateOrderItemInput) (*OrderItemRow, error) {
	var row OrderItemRow
	if err := c.do(ctx, http.MethodPost, "/order-items", nil, input, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (c *Client) UpdateOrderItem(ctx context.Context, id int64, input UpdateOrderItemInput) (*OrderItemRow, error) {
	var row OrderItemRow
	if err := c.do(ctx, http.MethodPatch, fmt.Sprintf("/order-items/%d", id), nil, input, &row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (c *Client) DeleteOrderItem(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/order-items/%d", id), nil, nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode request body")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build request")
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("%s %s", method, path))
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return pkgerrors.New(pkgerrors.CodeNotFound, fmt.Sprintf("%s %s: not found", method, path))
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("%s %s: status %d", method, path, resp.StatusCode)).
			WithDetails(map[string]any{"body": string(snippet)})
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, fmt.Sprintf("decode %s %s response", method, path))
	}
	return nil
}
