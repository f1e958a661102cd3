// Package eventbus implements EventManager (spec.md §4.8): a fixed set
// of named global events with typed integer properties, each mutated
// only by its own single-threaded scheduler, fanning out property
// changes to per-map listeners in a single total order (spec.md §5
// "Global event property changes are totally ordered by the event's
// scheduler thread; listeners per map observe them in that order.").
package eventbus

import (
	"fmt"
	"sync"
)

// Names of the fixed event set (spec.md §4.8 "Holds a fixed set of
// events (boat, train, subway, genie, airplane, elevator, area_boss,
// global_respawn)").
const (
	Boat          = "boat"
	Train         = "train"
	Subway        = "subway"
	Genie         = "genie"
	Airplane      = "airplane"
	Elevator      = "elevator"
	AreaBoss      = "area_boss"
	GlobalRespawn = "global_respawn"
)

// FixedEvents is the complete, unchanging event name set EventManager
// is constructed with.
var FixedEvents = []string{Boat, Train, Subway, Genie, Airplane, Elevator, AreaBoss, GlobalRespawn}

// PropertyChange describes one set_property fan-out (spec.md §4.8
// "calling event.set_property(i, v) which fans out to registered
// listeners").
type PropertyChange struct {
	Event string
	Index int
	Value int32
}

// Listener receives a PropertyChange. Listener implementations
// typically enqueue a command onto the listening map's Worker rather
// than mutating map state directly (spec.md §4.8 "enqueue a write to
// the map's event fd, which the map's Worker polls"), so the listener
// itself is just a thin adapter around a queue.CommandQueue.Post-
// shaped function.
type Listener func(PropertyChange)

// Event is one named member of the fixed set, with P integer
// properties mutated only by its own scheduler (spec.md §3 GLOSSARY
// "Event").
type Event struct {
	name string

	mu         sync.Mutex
	properties []int32
	listeners  []Listener
}

func newEvent(name string, numProperties int) *Event {
	return &Event{name: name, properties: make([]int32, numProperties)}
}

// Name returns this event's fixed name.
func (e *Event) Name() string { return e.name }

// Get reads property i. Safe to call from any goroutine; readers
// never block on the scheduler (spec.md §5 "readers ... hold no
// locks because they fire on the scheduler thread" — Get is the one
// reader that is not the fan-out itself, so it still takes the mutex
// briefly to avoid a torn read).
func (e *Event) Get(i int) int32 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.properties[i]
}

// AddListener registers l for every future SetProperty call on this
// event. Listeners are never removed individually; EventManager events
// live for the process lifetime (spec.md §3 GLOSSARY "created at
// channel start, never destroyed").
func (e *Event) AddListener(l Listener) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, l)
}

// SetProperty is called only by this event's own scheduler callback
// (spec.md §4.8 "A scheduler function — the only writer for each
// event"). It mutates the property and fans out to every listener, in
// registration order, on the calling goroutine — callers must
// therefore only ever call SetProperty from the single scheduler
// goroutine serializing this event's transitions (see Scheduler).
func (e *Event) SetProperty(i int, v int32) {
	e.mu.Lock()
	e.properties[i] = v
	listeners := make([]Listener, len(e.listeners))
	copy(listeners, e.listeners)
	e.mu.Unlock()

	change := PropertyChange{Event: e.name, Index: i, Value: v}
	for _, l := range listeners {
		l(change)
	}
}

// Manager is EventManager: owns the fixed event set and hands out
// per-event Scheduler handles.
type Manager struct {
	events map[string]*Event
}

// New constructs a Manager with the fixed event set, each given
// numProperties integer-typed properties (spec.md leaves the exact
// property count per event to the caller; each schedule function
// knows its own event's property layout).
func New(numProperties int) *Manager {
	m := &Manager{events: make(map[string]*Event, len(FixedEvents))}
	for _, name := range FixedEvents {
		m.events[name] = newEvent(name, numProperties)
	}
	return m
}

// Event returns the named event, or an error if name is not one of
// FixedEvents — the set is fixed at construction and never grows.
func (m *Manager) Event(name string) (*Event, error) {
	e, ok := m.events[name]
	if !ok {
		return nil, fmt.Errorf("eventbus: unknown event %q", name)
	}
	return e, nil
}

// AddListener is a convenience wrapper over Event(name).AddListener.
func (m *Manager) AddListener(name string, l Listener) error {
	e, err := m.Event(name)
	if err != nil {
		return err
	}
	e.AddListener(l)
	return nil
}
