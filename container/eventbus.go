package container

import "reflect"

// MaxEventTypes bounds the number of distinct event types an EventBus can
// register, carried over unchanged from the teacher's eventbus.go.
const MaxEventTypes = 256

// EventBus is the reference manager's event intake and response fan-out,
// adapted verbatim in shape from the teacher's EventBus: subscribe handlers
// by type, publish by type, dispatch synchronously. The reference manager
// uses it for all four event kinds in spec.md §4.5/§6
// (UpdateOuterReferencesRequest/Response,
// UpdateAllReferencesToTypeRequest/Response).
type EventBus struct {
	eventTypeMap    map[reflect.Type]uint8
	handlers        [MaxEventTypes][]any
	nextEventTypeID uint8
}

// NewEventBus creates an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{eventTypeMap: make(map[reflect.Type]uint8)}
}

// Subscribe registers handler to be called whenever an event of type T is
// published.
func Subscribe[T any](bus *EventBus, handler func(T)) {
	t := reflect.TypeFor[T]()
	id := bus.getEventTypeID(t)
	if cap(bus.handlers[id]) == 0 {
		bus.handlers[id] = make([]any, 0, 4)
	}
	bus.handlers[id] = append(bus.handlers[id], handler)
}

// Publish dispatches event to every handler subscribed for type T, in
// subscription order.
func Publish[T any](bus *EventBus, event T) {
	t := reflect.TypeFor[T]()
	if id, ok := bus.eventTypeMap[t]; ok {
		for _, h := range bus.handlers[id] {
			h.(func(T))(event)
		}
	}
}

func (bus *EventBus) getEventTypeID(t reflect.Type) uint8 {
	if id, ok := bus.eventTypeMap[t]; ok {
		return id
	}
	if len(bus.eventTypeMap) >= MaxEventTypes {
		panic("container: too many event types")
	}
	id := bus.nextEventTypeID
	bus.nextEventTypeID++
	bus.eventTypeMap[t] = id
	return id
}
