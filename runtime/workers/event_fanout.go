package workers

import (
	"context"
	"log/slog"
	"time"

	"pong-chat/contract"
	"pong-chat/domain/event"
)

// EventFanout hands domain events to the permanent in-process sinks
// (search index, statistics).
//
// It is best effort: no delivery, ordering, durability or retry guarantee.
// Publishing never blocks the caller, an event is dropped when the buffer is
// full. Relaying messages to connected users does not go through here.
type EventFanout struct {
	log         *slog.Logger
	events      chan event.DomainEvent
	sinks       []contract.DomainSink
	sinkTimeout time.Duration
	onDrop      func()
}

func NewEventFanout(log *slog.Logger, bufferSize int, sinkTimeout time.Duration, sinks ...contract.DomainSink) *EventFanout {
	return &EventFanout{
		log:         log,
		events:      make(chan event.DomainEvent, bufferSize),
		sinks:       sinks,
		sinkTimeout: sinkTimeout,
	}
}

// OnDrop registers a callback invoked whenever Publish drops an event.
func (w *EventFanout) OnDrop(fn func()) *EventFanout {
	w.onDrop = fn
	return w
}

// Publish enqueues an event without blocking.
func (w *EventFanout) Publish(e event.DomainEvent) {
	select {
	case w.events <- e:
	default:
		w.log.Warn("Event fanout buffer full, event dropped", "conversation", e.Key().String())
		if w.onDrop != nil {
			w.onDrop()
		}
	}
}

func (w *EventFanout) Run(ctx context.Context) error {
	for {
		select {
		case evt := <-w.events:
			w.Fanout(ctx, evt)
		case <-ctx.Done():
			w.log.Debug("Context done, stopping event fanout")
			return nil
		}
	}
}

// Fanout delivers one event to every sink, each bounded by the sink timeout.
// A non-positive timeout means no limit.
// A failing sink is logged and does not prevent delivery to the others.
func (w *EventFanout) Fanout(ctx context.Context, evt event.DomainEvent) {
	for _, sink := range w.sinks {
		sinkCtx, cancel := w.sinkContext(ctx)
		if err := sink.Consume(sinkCtx, evt); err != nil {
			w.log.Warn("Sink failed to consume event", "error", err)
		}
		cancel()
	}
}

func (w *EventFanout) sinkContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if w.sinkTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, w.sinkTimeout)
}
