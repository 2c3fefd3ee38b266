// Package progress implements the per-session Progress Bus:
// an ordered, append-only sequence of events, streamable by index, with
// in-memory-only durability (discarded on process restart).
package progress

import (
	"sync"
	"time"
)

// EventType distinguishes ongoing progress from the terminal events that
// close a stream.
type EventType string

const (
	EventProgress EventType = "progress"
	EventResult   EventType = "result"
	EventDone     EventType = "done"
	EventError    EventType = "error"
)

// Event is one entry on a session's bus.
type Event struct {
	Type      EventType
	Status    string
	Detail    string
	Data      map[string]any
	Message   string
	Timestamp time.Time
}

// Bus holds one session's ordered event log in memory.
type Bus struct {
	mu     sync.Mutex
	events []Event
}

// Emitter is the contextual handle bound to a single session+run that
// components use to emit events. It is always passed explicitly as a
// constructor argument, never reached for as a process-global, so
// concurrent sessions never cross-contaminate each other's streams.
type Emitter interface {
	Emit(status, detail string)
	EmitData(status, detail string, data map[string]any)
	Done(result map[string]any)
	Error(message string)
}

type emitter struct {
	bus *Bus
	now func() time.Time
}

func (e *emitter) Emit(status, detail string) {
	e.EmitData(status, detail, nil)
}

func (e *emitter) EmitData(status, detail string, data map[string]any) {
	e.bus.append(Event{Type: EventProgress, Status: status, Detail: detail, Data: data, Timestamp: e.now()})
}

func (e *emitter) Done(result map[string]any) {
	e.bus.append(Event{Type: EventResult, Data: result, Timestamp: e.now()})
	e.bus.append(Event{Type: EventDone, Timestamp: e.now()})
}

func (e *emitter) Error(message string) {
	e.bus.append(Event{Type: EventError, Message: message, Timestamp: e.now()})
}

func (b *Bus) append(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, ev)
}

// Since returns every event recorded from index onward, plus the new
// total length, for incremental streaming consumers.
func (b *Bus) Since(index int) ([]Event, int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if index < 0 || index > len(b.events) {
		index = len(b.events)
	}
	out := make([]Event, len(b.events)-index)
	copy(out, b.events[index:])
	return out, len(b.events)
}

// IsClosed reports whether a terminal event (done or error) has been
// recorded, so a streaming consumer knows to stop polling.
func (b *Bus) IsClosed() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, e := range b.events {
		if e.Type == EventDone || e.Type == EventError {
			return true
		}
	}
	return false
}

// Registry maps session IDs to their Bus, created on first use.
type Registry struct {
	mu    sync.Mutex
	buses map[string]*Bus
}

// NewRegistry constructs an empty bus registry.
func NewRegistry() *Registry {
	return &Registry{buses: make(map[string]*Bus)}
}

// Bind returns (creating if needed) the Bus for a session and a fresh
// Emitter bound to it for the current run.
func (r *Registry) Bind(sessionID string) (*Bus, Emitter) {
	r.mu.Lock()
	defer r.mu.Unlock()
	bus, ok := r.buses[sessionID]
	if !ok {
		bus = &Bus{}
		r.buses[sessionID] = bus
	}
	return bus, &emitter{bus: bus, now: time.Now}
}

// Drop removes a session's bus entirely, called from delete_session.
func (r *Registry) Drop(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.buses, sessionID)
}
