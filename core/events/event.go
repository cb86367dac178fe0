package events

// Event represents a structured state change emitted by the debt core.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (e.g. ops API,
// indexers, audit log sinks).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events. It
// is useful when a component wants to optionally expose events.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}
