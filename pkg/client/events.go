package client

import (
	"encoding/json"
	"sync"

	"github.com/voximind/agentcall/pkg/audio"
)

// EventType identifies a lifecycle or data notification emitted by a [Client].
type EventType string

// Notification types emitted over the lifetime of a call. The names are part
// of the compatibility contract; consumers match on them as strings.
const (
	// EventCallStarted fires once the session is connected.
	EventCallStarted EventType = "call_started"

	// EventCallReady fires when the agent's audio track is subscribed and the
	// call is ready for audio exchange.
	EventCallReady EventType = "call_ready"

	// EventCallEnded fires when the call terminates, whether by StopCall, by
	// the agent leaving, or by transport disconnection.
	EventCallEnded EventType = "call_ended"

	// EventAgentStartTalking and EventAgentStopTalking bracket the agent's
	// speech turns as reported over the control channel.
	EventAgentStartTalking EventType = "agent_start_talking"
	EventAgentStopTalking  EventType = "agent_stop_talking"

	// EventAudio carries a raw [audio.AudioFrame] from the agent's track.
	// Emitted continuously, and only when [CallConfig.EmitRawAudioSamples]
	// is set.
	EventAudio EventType = "audio"

	// EventUpdate, EventMetadata and EventNodeTransition carry structured
	// control-channel payloads as [json.RawMessage].
	EventUpdate         EventType = "update"
	EventMetadata       EventType = "metadata"
	EventNodeTransition EventType = "node_transition"

	// EventError carries a session-level error.
	EventError EventType = "error"
)

// Event is one notification delivered to registered handlers.
//
// Data depends on the type: [audio.AudioFrame] for [EventAudio],
// [json.RawMessage] for the structured control events, error for
// [EventError], and nil for the plain lifecycle events.
type Event struct {
	Type EventType
	Data any
}

// Handler receives events. Handlers are invoked synchronously on the
// goroutine that produced the event and must not block.
type Handler func(Event)

// emitter is a minimal observer registry keyed by event type.
type emitter struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
}

func newEmitter() *emitter {
	return &emitter{handlers: make(map[EventType][]Handler)}
}

func (e *emitter) on(t EventType, h Handler) {
	if h == nil {
		return
	}
	e.mu.Lock()
	e.handlers[t] = append(e.handlers[t], h)
	e.mu.Unlock()
}

func (e *emitter) emit(t EventType, data any) {
	e.mu.RLock()
	hs := e.handlers[t]
	e.mu.RUnlock()
	for _, h := range hs {
		h(Event{Type: t, Data: data})
	}
}

func (e *emitter) emitAudio(frame audio.AudioFrame) {
	e.emit(EventAudio, frame)
}

func (e *emitter) emitControl(t EventType, payload json.RawMessage) {
	e.emit(t, payload)
}
