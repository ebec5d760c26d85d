package session

import "sync"

// Event names published by a Session.
const (
	EventModelsScanned  = "models_scanned"
	EventTriggersLoaded = "triggers_loaded"
)

// Event represents a session event: a name plus optional fields.
type Event struct {
	Name   string
	Fields map[string]any
}

// EventPublisher receives events from the session. Implementations should be
// lightweight and non-blocking; Publish must not panic.
type EventPublisher interface {
	Publish(Event)
}

// noopPublisher is the default; it drops events.
type noopPublisher struct{}

func (noopPublisher) Publish(Event) {}

// MemoryPublisher stores events in-memory for tests.
type MemoryPublisher struct {
	mu     sync.Mutex
	events []Event
}

func NewMemoryPublisher() *MemoryPublisher { return &MemoryPublisher{} }

func (p *MemoryPublisher) Publish(e Event) {
	p.mu.Lock()
	p.events = append(p.events, e)
	p.mu.Unlock()
}

func (p *MemoryPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Event, len(p.events))
	copy(out, p.events)
	return out
}

// Named returns the recorded events with the given name.
func (p *MemoryPublisher) Named(name string) []Event {
	var out []Event
	for _, e := range p.Events() {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}
