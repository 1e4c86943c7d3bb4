package events

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Recorder receives delivery counters; internal/infra/metrics implements it.
type Recorder interface {
	EventPublished(eventType string)
	EventDropped(eventType, target string)
	SinkFailed(sink, eventType string)
}

type nopRecorder struct{}

func (nopRecorder) EventPublished(string)       {}
func (nopRecorder) EventDropped(string, string) {}
func (nopRecorder) SinkFailed(string, string)   {}

// Sink delivers events outside the process (Kafka, Telegram, ...).
type Sink interface {
	Name() string
	Deliver(ctx context.Context, e Event) error
}

type Options struct {
	SubscriberBuffer int
	SinkQueue        int
	SinkTimeout      time.Duration
	Recorder         Recorder
}

// Hub is an in-process, best-effort broadcaster. Publish never blocks:
// a subscriber or sink whose buffer is full loses the event.
type Hub struct {
	log  *slog.Logger
	opts Options

	mu   sync.RWMutex
	subs map[int64]map[*Subscription]struct{}

	sinks []*sinkWorker
}

func NewHub(log *slog.Logger, opts Options) *Hub {
	if opts.SubscriberBuffer <= 0 {
		opts.SubscriberBuffer = 64
	}
	if opts.SinkQueue <= 0 {
		opts.SinkQueue = 256
	}
	if opts.SinkTimeout <= 0 {
		opts.SinkTimeout = 5 * time.Second
	}
	if opts.Recorder == nil {
		opts.Recorder = nopRecorder{}
	}
	return &Hub{
		log:  log,
		opts: opts,
		subs: make(map[int64]map[*Subscription]struct{}),
	}
}

// AddSink registers an external sink. Call before Run.
func (h *Hub) AddSink(s Sink) {
	h.sinks = append(h.sinks, &sinkWorker{sink: s, queue: make(chan Event, h.opts.SinkQueue)})
}

type Subscription struct {
	StoreID int64

	hub   *Hub
	types map[Type]struct{}
	ch    chan Event
	once  sync.Once
}

// Subscribe registers a subscriber for storeID. With no types, every event type is delivered.
func (h *Hub) Subscribe(storeID int64, types ...Type) *Subscription {
	s := &Subscription{
		StoreID: storeID,
		hub:     h,
		ch:      make(chan Event, h.opts.SubscriberBuffer),
	}
	if len(types) > 0 {
		s.types = make(map[Type]struct{}, len(types))
		for _, t := range types {
			s.types[t] = struct{}{}
		}
	}

	h.mu.Lock()
	if h.subs[storeID] == nil {
		h.subs[storeID] = make(map[*Subscription]struct{})
	}
	h.subs[storeID][s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (s *Subscription) Events() <-chan Event { return s.ch }

func (s *Subscription) wants(t Type) bool {
	if s.types == nil {
		return true
	}
	_, ok := s.types[t]
	return ok
}

// Close unregisters the subscription and closes its channel. Safe to call twice.
func (s *Subscription) Close() {
	s.once.Do(func() {
		h := s.hub
		h.mu.Lock()
		delete(h.subs[s.StoreID], s)
		if len(h.subs[s.StoreID]) == 0 {
			delete(h.subs, s.StoreID)
		}
		close(s.ch)
		h.mu.Unlock()
	})
}

// Subscribers reports how many live subscriptions storeID has.
func (h *Hub) Subscribers(storeID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs[storeID])
}

func (h *Hub) Publish(e Event) {
	h.opts.Recorder.EventPublished(string(e.Type))

	h.mu.RLock()
	for s := range h.subs[e.StoreID] {
		if !s.wants(e.Type) {
			continue
		}
		select {
		case s.ch <- e:
		default:
			h.opts.Recorder.EventDropped(string(e.Type), "subscriber")
			h.log.Warn("subscriber too slow, event dropped",
				"store_id", e.StoreID, "event_type", e.Type, "event_id", e.ID)
		}
	}
	h.mu.RUnlock()

	for _, w := range h.sinks {
		select {
		case w.queue <- e:
		default:
			h.opts.Recorder.EventDropped(string(e.Type), w.sink.Name())
			h.log.Warn("sink queue full, event dropped",
				"sink", w.sink.Name(), "store_id", e.StoreID, "event_type", e.Type)
		}
	}
}

type sinkWorker struct {
	sink  Sink
	queue chan Event
}

// Run drains every sink queue in FIFO order until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) error {
	g, ctx := errgroup.WithContext(ctx)
	for _, w := range h.sinks {
		g.Go(func() error {
			h.drain(ctx, w)
			return nil
		})
	}
	return g.Wait()
}

func (h *Hub) drain(ctx context.Context, w *sinkWorker) {
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-w.queue:
			dctx, cancel := context.WithTimeout(ctx, h.opts.SinkTimeout)
			err := w.sink.Deliver(dctx, e)
			cancel()
			if err != nil {
				h.opts.Recorder.SinkFailed(w.sink.Name(), string(e.Type))
				h.log.Error("event delivery failed",
					"sink", w.sink.Name(), "store_id", e.StoreID, "event_type", e.Type, "err", err)
			}
		}
	}
}
