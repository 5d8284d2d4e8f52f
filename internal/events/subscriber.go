// Package events consumes push notifications from the order service and
// turns them into early snapshot refreshes. The channel is lossy and
// best-effort; polling remains the correctness floor, so a dropped or
// malformed event costs latency, never correctness.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/sethvargo/go-retry"

	"github.com/tableside/tableside/pkg/config"
	"github.com/tableside/tableside/pkg/logger"
	"github.com/tableside/tableside/pkg/metrics"
)

// Event names published by the order service.
const (
	EventOrderCreated     = "order_created"
	EventOrderUpdated     = "order_updated"
	EventOrderCompleted   = "order_completed"
	EventOrderItemCreated = "order_item_created"
	EventOrderItemUpdated = "order_item_updated"
)

var knownEvents = map[string]struct{}{
	EventOrderCreated:     {},
	EventOrderUpdated:     {},
	EventOrderCompleted:   {},
	EventOrderItemCreated: {},
	EventOrderItemUpdated: {},
}

// Event is one push notification payload.
type Event struct {
	Event string    `json:"event"`
	Data  EventData `json:"data"`
}

// EventData carries the identifiers the engine needs to target a refresh.
type EventData struct {
	OrderID int64 `json:"order_id"`
	TableID int64 `json:"table_id"`
}

// Handler receives decoded events for this table.
type Handler func(ctx context.Context, evt Event)

// SubscriberParams configure the subscriber.
type SubscriberParams struct {
	Logger  *logger.Logger
	Metrics *metrics.EngineMetrics
	Config  config.EventsConfig
	TableID int64
	Handler Handler
}

// Subscriber maintains a NATS subscription to the order-event subject and
// forwards events for its table to the handler.
type Subscriber struct {
	logg    *logger.Logger
	metrics *metrics.EngineMetrics
	cfg     config.EventsConfig
	tableID int64
	handler Handler

	connect func(ctx context.Context) (*nats.Conn, error)
}

// NewSubscriber validates the wiring and builds a subscriber.
func NewSubscriber(params SubscriberParams) (*Subscriber, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Handler == nil {
		return nil, fmt.Errorf("handler required")
	}
	if params.TableID <= 0 {
		return nil, fmt.Errorf("table id must be positive")
	}
	if !params.Config.Enabled() {
		return nil, fmt.Errorf("events url not configured")
	}
	s := &Subscriber{
		logg:    params.Logger,
		metrics: params.Metrics,
		cfg:     params.Config,
		tableID: params.TableID,
		handler: params.Handler,
	}
	s.connect = s.dial
	return s, nil
}

func (s *Subscriber) dial(ctx context.Context) (*nats.Conn, error) {
	return nats.Connect(s.cfg.URL,
		nats.Timeout(s.cfg.ConnectTimeout),
		nats.ReconnectWait(s.cfg.ReconnectWait),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			fields := s.logg.WithField(ctx, "url", s.cfg.URL)
			if err != nil {
				fields = s.logg.WithField(fields, "error", err.Error())
			}
			s.logg.Warn(fields, "event channel disconnected, relying on polling")
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			s.logg.Info(s.logg.WithField(ctx, "url", s.cfg.URL), "event channel reconnected")
		}),
	)
}

// Run connects (retrying on a fixed cadence until the context is canceled),
// subscribes, and blocks until shutdown. The process never fails because
// the push channel is unavailable.
func (s *Subscriber) Run(ctx context.Context) error {
	var conn *nats.Conn
	backoff := retry.NewConstant(s.cfg.ConnectRetry)
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var dialErr error
		conn, dialErr = s.connect(ctx)
		if dialErr != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", dialErr.Error()), "event channel connect failed, retrying")
			return retry.RetryableError(dialErr)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("connecting event channel: %w", err)
	}
	defer conn.Close()

	sub, err := conn.Subscribe(s.cfg.Subject, func(msg *nats.Msg) {
		s.handleMessage(ctx, msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribing to %s: %w", s.cfg.Subject, err)
	}
	defer func() {
		_ = sub.Unsubscribe()
	}()

	s.logg.Info(s.logg.WithField(ctx, "subject", s.cfg.Subject), "event channel subscribed")
	<-ctx.Done()
	return ctx.Err()
}

func (s *Subscriber) handleMessage(ctx context.Context, payload []byte) {
	var evt Event
	if err := json.Unmarshal(payload, &evt); err != nil {
		s.metrics.IncPushDropped()
		s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "dropping undecodable push event")
		return
	}
	if _, ok := knownEvents[evt.Event]; !ok {
		s.metrics.IncPushDropped()
		s.logg.Warn(s.logg.WithField(ctx, "event", evt.Event), "dropping unknown push event")
		return
	}
	if evt.Data.TableID != 0 && evt.Data.TableID != s.tableID {
		// Another table's traffic on the shared subject.
		return
	}
	s.metrics.IncPushEvent(evt.Event)
	s.handler(ctx, evt)
}
