//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks -exclude_interfaces=ISupervisor
package contract

import (
	"context"
	"reflect"

	"pong-chat/domain"
	"pong-chat/domain/event"
	"pong-chat/protocol"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink consumes events of one family. Connection sinks consume
// protocol.Outbound, permanent sinks consume event.DomainEvent.
type EventSink[T any] interface {
	Consume(ctx context.Context, e T) error
}

type ConnectionSink = EventSink[protocol.Outbound]

type DomainSink = EventSink[event.DomainEvent]

// IRegistry is the process-local presence registry.
type IRegistry interface {
	Register(connectionID, userID, displayName string, sink ConnectionSink)
	Unregister(connectionID string)
	ListOnlineUserIDs() []string
	IsOnline(userID string) bool
	GetSinksForUser(userID string) []ConnectionSink
	GetAllSinks() []ConnectionSink
	Entries() []domain.PresenceEntry
	Count() int
}

// IUserDirectory is the external user service.
type IUserDirectory interface {
	LookupUser(ctx context.Context, userID string) (domain.User, error)
	AreFriends(ctx context.Context, userA, userB string) (bool, error)
}

// IEventPublisher hands domain events to the in-process fan-out.
type IEventPublisher interface {
	Publish(e event.DomainEvent)
}
