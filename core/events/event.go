package events

// Event represents a structured state change emitted by a game engine.
type Event interface {
	EventType() string
}

// Emitter broadcasts events to downstream subscribers (RPC, indexers, logs).
type Emitter interface {
	Emit(Event)
}

// NoopEmitter satisfies the Emitter interface while discarding all events.
// Engines default to it so event wiring stays optional.
type NoopEmitter struct{}

// Emit implements the Emitter interface.
func (NoopEmitter) Emit(Event) {}

// Buffer collects events during a staged operation so they can be replayed to
// a real emitter only once the operation commits. A rolled-back operation must
// not leak events.
type Buffer struct {
	pending []Event
}

func (b *Buffer) Emit(event Event) {
	if event == nil {
		return
	}
	b.pending = append(b.pending, event)
}

// Flush replays all buffered events to sink in emission order and clears the
// buffer.
func (b *Buffer) Flush(sink Emitter) {
	if sink == nil {
		b.pending = nil
		return
	}
	for _, event := range b.pending {
		sink.Emit(event)
	}
	b.pending = nil
}

// Reset drops any buffered events without emitting them.
func (b *Buffer) Reset() { b.pending = nil }
