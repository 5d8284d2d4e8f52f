package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/tableside/tableside/pkg/config"
	"github.com/tableside/tableside/pkg/enums"
	pkgerrors "github.com/tableside/tableside/pkg/errors"
	"github.com/tableside/tableside/pkg/logger"
	"github.com/tableside/tableside/pkg/types"

	"github.com/tableside/tableside/internal/draft"
	"github.com/tableside/tableside/internal/events"
	"github.com/tableside/tableside/internal/upstream"
)

func eventsFixture(name string, orderID, tableID int64) events.Event {
	return events.Event{Event: name, Data: events.EventData{OrderID: orderID, TableID: tableID}}
}

// fakeUpstream is an in-memory order service. Mutations apply immediately,
// so a refresh after a mutation observes the new state.
type fakeUpstream struct {
	mu         sync.Mutex
	orders     map[int64]*upstream.Order
	items      map[int64]*upstream.OrderItemRow
	nextID     int64
	failCreate bool
	failItemID int64
}

func newFakeUpstream() *fakeUpstream {
	return &fakeUpstream{
		orders: map[int64]*upstream.Order{},
		items:  map[int64]*upstream.OrderItemRow{},
		nextID: 1,
	}
}

func (f *fakeUpstream) addOrder(tableID int64, status enums.OrderStatus) *upstream.Order {
	f.mu.Lock()
	defer f.mu.Unlock()
	order := &upstream.Order{ID: f.nextID, TableID: tableID, StatusID: status}
	f.nextID++
	f.orders[order.ID] = order
	return order
}

func (f *fakeUpstream) addRow(orderID, dishID int64, name string, qty int, status enums.ItemStatus) *upstream.OrderItemRow {
	f.mu.Lock()
	defer f.mu.Unlock()
	row := &upstream.OrderItemRow{
		ID:       f.nextID,
		OrderID:  orderID,
		Dish:     upstream.Dish{ID: dishID, Name: name, Price: types.MustParseMoney("10.00")},
		Quantity: qty,
		StatusID: status,
	}
	f.nextID++
	f.items[row.ID] = row
	return row
}

func (f *fakeUpstream) ListOrders(_ context.Context, filter upstream.OrderFilter) ([]upstream.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []upstream.Order
	for id := int64(1); id < f.nextID; id++ {
		order, ok := f.orders[id]
		if !ok {
			continue
		}
		if filter.TableID != nil && order.TableID != *filter.TableID {
			continue
		}
		out = append(out, *order)
	}
	return out, nil
}

func (f *fakeUpstream) GetOrder(_ context.Context, id int64) (*upstream.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	copied := *order
	return &copied, nil
}

func (f *fakeUpstream) CreateOrder(_ context.Context, input upstream.CreateOrderInput) (*upstream.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate {
		return nil, errors.New("order service down")
	}
	order := &upstream.Order{ID: f.nextID, TableID: input.TableID, StatusID: input.StatusID}
	f.nextID++
	f.orders[order.ID] = order
	copied := *order
	return &copied, nil
}

func (f *fakeUpstream) UpdateOrder(_ context.Context, id int64, input upstream.UpdateOrderInput) (*upstream.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	order, ok := f.orders[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
	}
	order.StatusID = input.StatusID
	copied := *order
	return &copied, nil
}

func (f *fakeUpstream) ListOrderItems(_ context.Context, orderID int64) ([]upstream.OrderItemRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []upstream.OrderItemRow
	for id := int64(1); id < f.nextID; id++ {
		row, ok := f.items[id]
		if !ok || row.OrderID != orderID {
			continue
		}
		out = append(out, *row)
	}
	return out, nil
}

func (f *fakeUpstream) CreateOrderItem(_ context.Context, input upstream.CreateOrderItemInput) (*upstream.OrderItemRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failItemID != 0 && input.DishID == f.failItemID {
		return nil, errors.New("order service rejected row")
	}
	row := &upstream.OrderItemRow{
		ID:       f.nextID,
		OrderID:  input.OrderID,
		Dish:     upstream.Dish{ID: input.DishID, Name: fmt.Sprintf("dish-%d", input.DishID), Price: types.MustParseMoney("10.00")},
		Quantity: input.Quantity,
		StatusID: input.StatusID,
	}
	f.nextID++
	f.items[row.ID] = row
	copied := *row
	return &copied, nil
}

func (f *fakeUpstream) UpdateOrderItem(_ context.Context, id int64, input upstream.UpdateOrderItemInput) (*upstream.OrderItemRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.items[id]
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "row not found")
	}
	if input.Quantity != nil {
		row.Quantity = *input.Quantity
	}
	if input.StatusID != nil {
		row.StatusID = *input.StatusID
	}
	copied := *row
	return &copied, nil
}

func (f *fakeUpstream) DeleteOrderItem(_ context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.items[id]; !ok {
		return pkgerrors.New(pkgerrors.CodeNotFound, "row not found")
	}
	delete(f.items, id)
	return nil
}

func newTestEngine(t *testing.T, api upstream.API) (*Engine, *draft.Store) {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test"})
	store, err := draft.NewStore(context.Background(), draft.NewMemoryPersistence(), logg)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	engine, err := NewEngine(Params{
		Logger:   logg,
		Upstream: api,
		Draft:    store,
		TableID:  3,
		Closure:  config.ClosureConfig{Debounce: 5 * time.Millisecond, NotificationTTL: time.Minute},
	})
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	return engine, store
}

func reconcile(t *testing.T, engine *Engine) {
	t.Helper()
	if err := engine.Reconcile(context.Background()); err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
}

func addLine(t *testing.T, store *draft.Store, dishID int64, qty int) {
	t.Helper()
	store.Add(context.Background(), draft.Line{
		DishID:    dishID,
		Name:      fmt.Sprintf("dish-%d", dishID),
		UnitPrice: types.MustParseMoney("10.00"),
		Quantity:  qty,
	})
}

func TestReconcilePicksNewestActiveOrder(t *testing.T) {
	api := newFakeUpstream()
	api.addOrder(3, enums.OrderStatusPaid)
	api.addOrder(3, enums.OrderStatusPending)
	newer := api.addOrder(3, enums.OrderStatusCooking)
	api.addOrder(7, enums.OrderStatusPending) // another table

	engine, _ := newTestEngine(t, api)
	reconcile(t, engine)

	active := engine.ActiveOrder()
	if active == nil || active.ID != newer.ID {
		t.Fatalf("expected newest active order %d, got %+v", newer.ID, active)
	}
}

func TestDishGroupsFollowActiveOrder(t *testing.T) {
	api := newFakeUpstream()
	order := api.addOrder(3, enums.OrderStatusPending)
	api.addRow(order.ID, 101, "ramen", 2, enums.ItemStatusCooking)
	api.addRow(order.ID, 101, "ramen", 1, enums.ItemStatusPending)
	api.addRow(order.ID, 102, "gyoza", 1, enums.ItemStatusPending)

	engine, _ := newTestEngine(t, api)
	reconcile(t, engine)

	groups := engine.DishGroups()
	if len(groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(groups))
	}
	if groups[0].DishID != 101 || groups[0].Quantity != 3 || groups[0].Status != enums.ItemStatusCooking {
		t.Fatalf("unexpected first group: %+v", groups[0])
	}
}

func TestTimelineStepPrecedence(t *testing.T) {
	api := newFakeUpstream()
	engine, store := newTestEngine(t, api)
	reconcile(t, engine)

	// No orders, no draft: the session reads as finished.
	if got := engine.TimelineStep(); got != enums.TimelineStepFinished {
		t.Fatalf("expected finished, got %s", got)
	}

	addLine(t, store, 101, 2)
	if got := engine.TimelineStep(); got != enums.TimelineStepPlacing {
		t.Fatalf("expected placing, got %s", got)
	}

	order := api.addOrder(3, enums.OrderStatusPending)
	api.addRow(order.ID, 101, "ramen", 2, enums.ItemStatusCooking)
	reconcile(t, engine)
	// Draft lines still outrank the kitchen.
	if got := engine.TimelineStep(); got != enums.TimelineStepPlacing {
		t.Fatalf("expected placing, got %s", got)
	}

	if err := store.Clear(context.Background()); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if got := engine.TimelineStep(); got != enums.TimelineStepCooking {
		t.Fatalf("expected cooking, got %s", got)
	}
}

func TestAdjustGroupQuantityGrowsOldestRow(t *testing.T) {
	api := newFakeUpstream()
	order := api.addOrder(3, enums.OrderStatusPending)
	oldest := api.addRow(order.ID, 101, "ramen", 2, enums.ItemStatusCooking)
	api.addRow(order.ID, 101, "ramen", 1, enums.ItemStatusPending)

	engine, _ := newTestEngine(t, api)
	reconcile(t, engine)

	if err := engine.AdjustGroupQuantity(context.Background(), 101, 5); err != nil {
		t.Fatalf("AdjustGroupQuantity: %v", err)
	}
	if got := api.items[oldest.ID].Quantity; got != 4 {
		t.Fatalf("expected oldest row quantity 4, got %d", got)
	}
}

func TestAdjustGroupQuantityShrinksNewestFirst(t *testing.T) {
	api := newFakeUpstream()
	order := api.addOrder(3, enums.OrderStatusPending)
	oldest := api.addRow(order.ID, 101, "ramen", 2, enums.ItemStatusServed)
	middle := api.addRow(order.ID, 101, "ramen", 2, enums.ItemStatusCooking)
	newest := api.addRow(order.ID, 101, "ramen", 1, enums.ItemStatusPending)

	engine, _ := newTestEngine(t, api)
	reconcile(t, engine)

	if err := engine.AdjustGroupQuantity(context.Background(), 101, 2); err != nil {
		t.Fatalf("AdjustGroupQuantity: %v", err)
	}
	if _, ok := api.items[newest.ID]; ok {
		t.Fatal("newest row should have been deleted")
	}
	if _, ok := api.items[middle.ID]; ok {
		t.Fatal("middle row should have been deleted")
	}
	if got := api.items[oldest.ID].Quantity; got != 2 {
		t.Fatalf("expected oldest row untouched at 2, got %d", got)
	}
}

func TestAdjustGroupQuantityValidation(t *testing.T) {
	api := newFakeUpstream()
	order := api.addOrder(3, enums.OrderStatusPending)
	api.addRow(order.ID, 101, "ramen", 2, enums.ItemStatusPending)

	engine, _ := newTestEngine(t, api)
	reconcile(t, engine)

	if err := engine.AdjustGroupQuantity(context.Background(), 101, 0); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := engine.AdjustGroupQuantity(context.Background(), 101, 21); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if err := engine.AdjustGroupQuantity(context.Background(), 999, 3); !pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestSubmitOpensOrderAndClearsDraft(t *testing.T) {
	api := newFakeUpstream()
	engine, store := newTestEngine(t, api)
	reconcile(t, engine)

	addLine(t, store, 101, 2)
	addLine(t, store, 102, 1)

	order, err := engine.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if order == nil || !order.StatusID.IsActive() {
		t.Fatalf("expected active order, got %+v", order)
	}
	if store.TotalCount() != 0 {
		t.Fatal("draft cart should be empty after submit")
	}

	rows, err := api.ListOrderItems(context.Background(), order.ID)
	if err != nil {
		t.Fatalf("ListOrderItems: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
}

func TestSubmitReusesActiveOrder(t *testing.T) {
	api := newFakeUpstream()
	existing := api.addOrder(3, enums.OrderStatusCooking)

	engine, store := newTestEngine(t, api)
	reconcile(t, engine)
	addLine(t, store, 101, 1)

	order, err := engine.Submit(context.Background())
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if order.ID != existing.ID {
		t.Fatalf("expected rows to land on order %d, got %d", existing.ID, order.ID)
	}
}

func TestSubmitKeepsDraftOnPartialFailure(t *testing.T) {
	api := newFakeUpstream()
	api.failItemID = 102

	engine, store := newTestEngine(t, api)
	reconcile(t, engine)
	addLine(t, store, 101, 1)
	addLine(t, store, 102, 1)

	_, err := engine.Submit(context.Background())
	if !pkgerrors.IsCode(err, pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency error, got %v", err)
	}
	if store.TotalCount() == 0 {
		t.Fatal("draft cart must survive a partial submit failure")
	}
}

func TestSubmitRejectsEmptyCart(t *testing.T) {
	api := newFakeUpstream()
	engine, _ := newTestEngine(t, api)
	reconcile(t, engine)

	if _, err := engine.Submit(context.Background()); !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestClosureResetFiresOnceAfterTableCloses(t *testing.T) {
	api := newFakeUpstream()
	order := api.addOrder(3, enums.OrderStatusPending)

	engine, store := newTestEngine(t, api)
	reconcile(t, engine)

	// Staff close the order out.
	if _, err := api.UpdateOrder(context.Background(), order.ID, upstream.UpdateOrderInput{StatusID: enums.OrderStatusPaid}); err != nil {
		t.Fatalf("UpdateOrder: %v", err)
	}
	reconcile(t, engine)

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if engine.Closure() != nil {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}
	notification := engine.Closure()
	if notification == nil {
		t.Fatal("expected closure notification after debounce")
	}
	if store.TotalCount() != 0 {
		t.Fatal("reset should have cleared the draft cart")
	}

	engine.DismissClosure()
	if engine.Closure() != nil {
		t.Fatal("dismiss should drop the banner")
	}
}

func TestHandleEventKicksInvalidation(t *testing.T) {
	api := newFakeUpstream()
	engine, _ := newTestEngine(t, api)

	kicked := make(chan struct{}, 1)
	engine.SetInvalidate(func() {
		select {
		case kicked <- struct{}{}:
		default:
		}
	})

	engine.HandleEvent(context.Background(), eventsFixture("order_updated", 12, 3))
	select {
	case <-kicked:
	default:
		t.Fatal("push event must request an early refresh")
	}
}
