package websocket

import (
	"context"
	"sync"

	"pong-chat/errors"
	"pong-chat/protocol"
)

// Sink buffers the events of one connection until the write pump sends them.
type Sink struct {
	events    chan protocol.Outbound
	done      chan struct{}
	closeOnce sync.Once
}

func NewSink(bufferSize int) *Sink {
	return &Sink{
		events: make(chan protocol.Outbound, bufferSize),
		done:   make(chan struct{}),
	}
}

// Consume is called by the relay. A full buffer is reported instead of
// blocking the relay on a slow client.
func (s *Sink) Consume(ctx context.Context, e protocol.Outbound) error {
	select {
	case <-s.done:
		return errors.ErrConnectionClosed
	default:
	}

	select {
	case s.events <- e:
		return nil
	case <-s.done:
		return errors.ErrConnectionClosed
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrSinkFull
	}
}

func (s *Sink) Events() <-chan protocol.Outbound { return s.events }

func (s *Sink) Done() <-chan struct{} { return s.done }

// Close stops accepting events. It is safe to call more than once.
func (s *Sink) Close() {
	s.closeOnce.Do(func() { close(s.done) })
}
