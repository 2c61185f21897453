// Package dispatcher routes simulation events to the sinks registered for
// their topic, optionally through a per-topic buffered worker.
package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var (
	// ErrUnknownTopic is returned by Dispatch when no handler is registered.
	ErrUnknownTopic = errors.New("unknown topic")
	// ErrQueueFull is returned when a non-blocking buffered handler drops an event.
	ErrQueueFull = errors.New("queue full")
	// ErrClosed is returned by Dispatch after Close.
	ErrClosed = errors.New("dispatcher closed")
)

// Event is one unit of work published by the simulation loop.
type Event struct {
	Topic     string
	Tick      uint64
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Warn(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// Dispatcher routes events to registered handlers.
type Dispatcher struct {
	handlers map[string]HandlerFunc
	logger   Logger

	queueSize    metric.Int64ObservableGauge
	registration metric.Registration
	processed    metric.Int64Counter
	dropped      metric.Int64Counter
	failed       metric.Int64Counter

	mu      sync.RWMutex
	buffers map[string]chan Event
	closed  bool
	workers sync.WaitGroup
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		handlers: make(map[string]HandlerFunc),
		buffers:  make(map[string]chan Event),
		logger:   logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events in queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	d.registration, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			for topic, n := range d.QueueSizes() {
				o.ObserveInt64(d.queueSize, int64(n),
					metric.WithAttributes(attribute.String("topic", topic)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total buffered events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given topic with optional configuration.
// Registering a topic twice replaces the earlier handler.
func (d *Dispatcher) Register(topic string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	handler := h

	if cfg.logged {
		handler = d.withLogging(topic, handler)
	}

	if cfg.bufferSize > 0 {
		handler = d.withBuffer(topic, cfg.bufferSize, cfg.blocking, handler)
	}

	d.mu.Lock()
	d.handlers[topic] = handler
	d.mu.Unlock()
}

// Dispatch routes an event to its registered handler. A zero Timestamp is
// filled with the current time.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	h, ok := d.handlers[e.Topic]
	closed := d.closed
	d.mu.RUnlock()
	if closed {
		return nil, ErrClosed
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, e.Topic)
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now()
	}
	return h(e)
}

// HasHandler returns true if a handler is registered for the topic.
func (d *Dispatcher) HasHandler(topic string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.handlers[topic]
	return ok
}

// Topics returns the registered topics in sorted order.
func (d *Dispatcher) Topics() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	topics := make([]string, 0, len(d.handlers))
	for t := range d.handlers {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}

// QueueSizes reports the pending events of every buffered topic.
func (d *Dispatcher) QueueSizes() map[string]int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	sizes := make(map[string]int, len(d.buffers))
	for topic, buf := range d.buffers {
		sizes[topic] = len(buf)
	}
	return sizes
}

// Close stops accepting events, drains every buffered queue and waits for the
// workers to finish.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return
	}
	d.closed = true
	for _, buf := range d.buffers {
		close(buf)
	}
	d.mu.Unlock()

	d.workers.Wait()
	if d.registration != nil {
		_ = d.registration.Unregister()
	}
}

func (d *Dispatcher) withBuffer(topic string, size int, blocking bool, h HandlerFunc) HandlerFunc {
	buffer := make(chan Event, size)

	d.mu.Lock()
	d.buffers[topic] = buffer
	d.mu.Unlock()

	topicAttr := metric.WithAttributes(attribute.String("topic", topic))

	d.workers.Add(1)
	go func() {
		defer d.workers.Done()
		for e := range buffer {
			if _, err := h(e); err != nil {
				d.failed.Add(context.Background(), 1, topicAttr)
				d.logger.Warn("buffered handler failed", "topic", topic, "tick", e.Tick, "error", err)
			}
			d.processed.Add(context.Background(), 1, topicAttr)
		}
	}()

	// The read lock keeps Close from closing the channel mid-send.
	if blocking {
		return func(e Event) (any, error) {
			d.mu.RLock()
			defer d.mu.RUnlock()
			if d.closed {
				return nil, ErrClosed
			}
			buffer <- e
			return "queued", nil
		}
	}

	return func(e Event) (any, error) {
		d.mu.RLock()
		defer d.mu.RUnlock()
		if d.closed {
			return nil, ErrClosed
		}
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, topicAttr)
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, topic)
		}
	}
}

func (d *Dispatcher) withLogging(topic string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "topic", topic, "tick", e.Tick)

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "topic", topic, "tick", e.Tick, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "topic", topic, "duration", time.Since(start))
		}

		return result, err
	}
}
