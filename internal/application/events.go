package application

import (
	"encoding/json"
	"sync"
)

type EventKind string

const (
	// EventRefresh fires when a bootstrap cycle starts.
	EventRefresh EventKind = "refresh"
	// EventRefreshed fires once per cycle, Err set when the cycle failed.
	EventRefreshed EventKind = "refreshed"
	EventError     EventKind = "error"
	// EventUpdate fires after the character collection merged a payload.
	EventUpdate EventKind = "update"
	// EventChanged fires for every session field that changed value.
	EventChanged EventKind = "changed"
)

type Event struct {
	Kind    EventKind
	Err     error
	Payload json.RawMessage
	Field   string
	From    any
	To      any
}

type observers struct {
	mu     sync.Mutex
	nextID int
	subs   map[int]func(Event)
	order  []int
}

func (o *observers) subscribe(fn func(Event)) func() {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.subs == nil {
		o.subs = map[int]func(Event){}
	}
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.order = append(o.order, id)

	return func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		delete(o.subs, id)
		for i, existing := range o.order {
			if existing == id {
				o.order = append(o.order[:i], o.order[i+1:]...)
				break
			}
		}
	}
}

// emit delivers synchronously in subscription order. Never call with a
// client lock held.
func (o *observers) emit(event Event) {
	o.mu.Lock()
	fns := make([]func(Event), 0, len(o.order))
	for _, id := range o.order {
		fns = append(fns, o.subs[id])
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn(event)
	}
}
