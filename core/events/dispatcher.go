package events

import "sync"

// Listener receives emitted events of the kind it was registered for.
type Listener func(Event)

type Subscriber interface {
	Subscribe(kind Kind, listener Listener)
}

// Dispatcher is a subscription table from event kind to an ordered list of
// listeners. It is safe to subscribe while events are being emitted; a
// listener added during an emission receives events from the next emission
// on.
type Dispatcher struct {
	mu        sync.RWMutex
	listeners map[Kind][]Listener
}

func NewDispatcher() *Dispatcher {
	return &Dispatcher{listeners: map[Kind][]Listener{}}
}

// Subscribe appends listener to the kind's listener list. The same listener
// may be registered more than once and is then invoked once per
// registration.
func (d *Dispatcher) Subscribe(kind Kind, listener Listener) {
	if listener == nil {
		return
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.listeners == nil {
		d.listeners = map[Kind][]Listener{}
	}
	d.listeners[kind] = append(d.listeners[kind], listener)
}

// Emit invokes every listener registered for the event's kind, synchronously
// and in registration order.
func (d *Dispatcher) Emit(event Event) {
	if d == nil || event == nil {
		return
	}

	d.mu.RLock()
	listeners := d.listeners[event.Kind()]
	d.mu.RUnlock()

	for _, listener := range listeners {
		listener(event)
	}
}

// ListenerCount reports how many listeners are registered for kind.
func (d *Dispatcher) ListenerCount(kind Kind) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.listeners[kind])
}

// On registers a listener typed to a concrete event, deriving the kind from
// the event type. T must be one of the concrete event types of this package.
func On[T Event](subscriber Subscriber, listener func(T)) {
	if listener == nil {
		return
	}

	var zero T
	subscriber.Subscribe(zero.Kind(), func(event Event) {
		if typed, ok := event.(T); ok {
			listener(typed)
		}
	})
}
