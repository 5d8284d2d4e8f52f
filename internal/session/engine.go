// Package session is the reconciliation engine for one table. It owns the
// snapshot cells, derives the presentation state (dish groups, timeline
// step, closure banner), and issues the row mutations that keep the order
// service in line with the guest's intent.
package session

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"go.uber.org/multierr"

	"github.com/tableside/tableside/pkg/config"
	"github.com/tableside/tableside/pkg/enums"
	pkgerrors "github.com/tableside/tableside/pkg/errors"
	"github.com/tableside/tableside/pkg/logger"
	"github.com/tableside/tableside/pkg/metrics"

	"github.com/tableside/tableside/internal/aggregate"
	"github.com/tableside/tableside/internal/closure"
	"github.com/tableside/tableside/internal/draft"
	"github.com/tableside/tableside/internal/events"
	"github.com/tableside/tableside/internal/realloc"
	"github.com/tableside/tableside/internal/snapshot"
	"github.com/tableside/tableside/internal/timeline"
	"github.com/tableside/tableside/internal/upstream"
)

// Params configure the engine.
type Params struct {
	Logger   *logger.Logger
	Metrics  *metrics.EngineMetrics
	Upstream upstream.API
	Draft    *draft.Store
	TableID  int64
	Closure  config.ClosureConfig
}

// Engine reconciles server snapshots with local intent for one table.
type Engine struct {
	logg     *logger.Logger
	metrics  *metrics.EngineMetrics
	upstream upstream.API
	draft    *draft.Store
	tableID  int64

	orders *snapshot.Cell[[]upstream.Order]
	items  *snapshot.Cell[[]upstream.OrderItemRow]

	detector *closure.Detector

	// invalidate requests an early poll cycle; wired to the poller's Kick
	// after construction. Nil until then.
	invalidateMu sync.Mutex
	invalidate   func()

	// adjustInFlight serializes quantity adjustments per dish group. A second
	// adjust for the same dish while one is running would plan against a
	// snapshot the first is already invalidating.
	adjustMu       sync.Mutex
	adjustInFlight map[int64]bool
}

// NewEngine builds the engine and its snapshot cells.
func NewEngine(params Params) (*Engine, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Upstream == nil {
		return nil, fmt.Errorf("upstream api required")
	}
	if params.Draft == nil {
		return nil, fmt.Errorf("draft store required")
	}
	if params.TableID <= 0 {
		return nil, fmt.Errorf("table id must be positive")
	}

	e := &Engine{
		logg:           params.Logger,
		metrics:        params.Metrics,
		upstream:       params.Upstream,
		draft:          params.Draft,
		tableID:        params.TableID,
		adjustInFlight: make(map[int64]bool),
	}

	e.orders = snapshot.NewCell("orders", func(ctx context.Context, key string) ([]upstream.Order, error) {
		tableID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad orders key %q: %w", key, err)
		}
		return e.upstream.ListOrders(ctx, upstream.OrderFilter{TableID: &tableID})
	})
	e.orders.SetKey(strconv.FormatInt(params.TableID, 10))

	e.items = snapshot.NewCell("order-items", func(ctx context.Context, key string) ([]upstream.OrderItemRow, error) {
		orderID, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("bad order-items key %q: %w", key, err)
		}
		return e.upstream.ListOrderItems(ctx, orderID)
	})

	detector, err := closure.NewDetector(closure.Params{
		Logger:          params.Logger,
		Metrics:         params.Metrics,
		Debounce:        params.Closure.Debounce,
		NotificationTTL: params.Closure.NotificationTTL,
		Recheck:         e.observeOrders,
		Step:            e.TimelineStep,
		Reset:           e.resetLocalState,
	})
	if err != nil {
		return nil, err
	}
	e.detector = detector
	return e, nil
}

// SetInvalidate wires the poller's kick so mutations and push events can
// request an early refresh.
func (e *Engine) SetInvalidate(fn func()) {
	e.invalidateMu.Lock()
	defer e.invalidateMu.Unlock()
	e.invalidate = fn
}

func (e *Engine) kick() {
	e.invalidateMu.Lock()
	fn := e.invalidate
	e.invalidateMu.Unlock()
	if fn != nil {
		fn()
	}
}

// Reconcile is one full refresh cycle: orders, then the active order's
// items, then the closure check. It is the poller's job body.
func (e *Engine) Reconcile(ctx context.Context) error {
	ordersErr := e.orders.Refresh(ctx)
	if ordersErr != nil {
		// Stale orders make the closure check unsafe; stand down this cycle.
		e.detector.Observe(ctx, closure.Observation{Loading: true})
		return ordersErr
	}

	active := e.ActiveOrder()
	itemsKey := ""
	if active != nil {
		itemsKey = strconv.FormatInt(active.ID, 10)
	}
	e.items.SetKey(itemsKey)

	var itemsErr error
	if itemsKey != "" {
		itemsErr = e.items.Refresh(ctx)
	}

	e.detector.Observe(ctx, e.observeOrders(ctx))
	return itemsErr
}

func (e *Engine) observeOrders(_ context.Context) closure.Observation {
	orders, loaded := e.orders.Get()
	return closure.Observation{
		Loading: !loaded || e.orders.Fetching(),
		Orders:  orders,
	}
}

// ActiveOrder returns the order new items attach to: the newest active order
// on the table, or nil when none is active. More than one active order is a
// server-side anomaly; the newest wins and the rest are logged.
func (e *Engine) ActiveOrder() *upstream.Order {
	orders, _ := e.orders.Get()
	var actives []upstream.Order
	for _, order := range orders {
		if order.StatusID.IsActive() {
			actives = append(actives, order)
		}
	}
	if len(actives) == 0 {
		return nil
	}
	sort.Slice(actives, func(i, j int) bool { return actives[i].ID > actives[j].ID })
	if len(actives) > 1 {
		e.metrics.IncIntegrityFault()
		ctx := e.logg.WithField(context.Background(), "active_orders", len(actives))
		e.logg.Warn(e.logg.WithTableID(ctx, e.tableID), "multiple active orders on table, using newest")
	}
	return &actives[0]
}

// Orders returns the cached order list and whether it has loaded.
func (e *Engine) Orders() ([]upstream.Order, bool) {
	return e.orders.Get()
}

// DishGroups aggregates the active order's rows into per-dish groups.
func (e *Engine) DishGroups() []aggregate.Group {
	rows, _ := e.items.Get()
	return aggregate.Groups(rows)
}

// TimelineStep derives the current progress step.
func (e *Engine) TimelineStep() enums.TimelineStep {
	rows, _ := e.items.Get()
	return timeline.ComputeStep(e.draft.TotalCount(), e.ActiveOrder(), rows)
}

// AdjustGroupQuantity moves a dish group's aggregate quantity to target by
// mutating the underlying rows. One adjustment per dish at a time; a
// concurrent request is rejected rather than queued.
func (e *Engine) AdjustGroupQuantity(ctx context.Context, dishID int64, target int) error {
	if !e.beginAdjust(dishID) {
		return pkgerrors.New(pkgerrors.CodeConflict, "quantity adjustment already in flight for this dish")
	}
	defer e.endAdjust(dishID)

	group := aggregate.Find(e.DishGroups(), dishID)
	if group == nil {
		return pkgerrors.New(pkgerrors.CodeNotFound, "dish not in the current order")
	}

	ops, err := realloc.Plan(target, group.Rows)
	if err != nil {
		if pkgerrors.IsCode(err, pkgerrors.CodeIntegrity) {
			e.metrics.IncIntegrityFault()
			e.kick()
		}
		return err
	}

	for _, op := range ops {
		opErr := e.applyOp(ctx, op)
		e.metrics.ObserveMutation(string(op.Kind), opErr)
		if opErr != nil {
			// Partial application leaves the server authoritative; refetch
			// rather than guess at the remaining state.
			e.kick()
			return pkgerrors.Wrap(pkgerrors.CodeDependency, opErr, "applying quantity adjustment")
		}
	}

	if refreshErr := e.items.Refresh(ctx); refreshErr != nil {
		e.kick()
	}
	return nil
}

func (e *Engine) applyOp(ctx context.Context, op realloc.Op) error {
	switch op.Kind {
	case realloc.OpUpdateQuantity:
		qty := op.Quantity
		_, err := e.upstream.UpdateOrderItem(ctx, op.RowID, upstream.UpdateOrderItemInput{Quantity: &qty})
		return err
	case realloc.OpDelete:
		return e.upstream.DeleteOrderItem(ctx, op.RowID)
	}
	return fmt.Errorf("unknown op kind %q", op.Kind)
}

// Submit sends the draft cart upstream: reuse the active order or open a new
// one, then create one row per draft line. The cart is cleared only after
// every row lands; on partial failure the cart stays intact and the server
// snapshot is refetched.
func (e *Engine) Submit(ctx context.Context) (*upstream.Order, error) {
	lines := e.draft.Lines()
	if len(lines) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "draft cart is empty")
	}

	order := e.ActiveOrder()
	if order == nil {
		created, err := e.upstream.CreateOrder(ctx, upstream.CreateOrderInput{
			TableID:  e.tableID,
			StatusID: enums.OrderStatusPending,
		})
		e.metrics.ObserveMutation("create_order", err)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "opening order")
		}
		order = created
	}

	var wg sync.WaitGroup
	errs := make([]error, len(lines))
	for i, line := range lines {
		wg.Add(1)
		go func(i int, line draft.Line) {
			defer wg.Done()
			_, err := e.upstream.CreateOrderItem(ctx, upstream.CreateOrderItemInput{
				OrderID:  order.ID,
				DishID:   line.DishID,
				Quantity: line.Quantity,
				StatusID: enums.ItemStatusPending,
			})
			e.metrics.ObserveMutation("create_item", err)
			errs[i] = err
		}(i, line)
	}
	wg.Wait()

	if combined := multierr.Combine(errs...); combined != nil {
		// Some rows may have landed; the next refresh shows what did, and
		// the untouched cart lets the guest retry the rest.
		e.kick()
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, combined, "submitting draft lines")
	}

	if err := e.draft.Clear(ctx); err != nil {
		e.logg.Warn(e.logg.WithField(ctx, "error", err.Error()), "draft cart wipe failed after submit")
	}
	if err := e.Reconcile(ctx); err != nil {
		e.kick()
	}
	return order, nil
}

// HandleEvent reacts to a push notification by refreshing early. Push never
// mutates state directly; it only accelerates the poll.
func (e *Engine) HandleEvent(ctx context.Context, evt events.Event) {
	e.logg.Debug(e.logg.WithField(ctx, "event", evt.Event), "push event received")
	e.kick()
}

// Closure returns the active table-closed banner, if any.
func (e *Engine) Closure() *closure.Notification {
	return e.detector.Notification()
}

// DismissClosure drops the banner early.
func (e *Engine) DismissClosure() {
	e.detector.Dismiss()
}

// resetLocalState is the closure detector's one-shot action.
func (e *Engine) resetLocalState(ctx context.Context) error {
	if err := e.draft.Clear(ctx); err != nil {
		return err
	}
	e.items.SetKey("")
	return nil
}

func (e *Engine) beginAdjust(dishID int64) bool {
	e.adjustMu.Lock()
	defer e.adjustMu.Unlock()
	if e.adjustInFlight[dishID] {
		return false
	}
	e.adjustInFlight[dishID] = true
	return true
}

func (e *Engine) endAdjust(dishID int64) {
	e.adjustMu.Lock()
	defer e.adjustMu.Unlock()
	delete(e.adjustInFlight, dishID)
}
