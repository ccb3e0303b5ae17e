package client

import (
	"context"
	"encoding/json"
	"log/slog"
)

// controlEnvelope is the discriminator wrapper on every control-channel
// payload. The full payload is forwarded to handlers untouched.
type controlEnvelope struct {
	EventType string `json:"event_type"`
}

// handleControlMessage decodes one control-channel payload from the agent and
// dispatches the matching notification. Malformed payloads are logged and
// suppressed; they never terminate the session. Unknown event types are
// ignored.
func (c *Client) handleControlMessage(payload []byte) {
	var env controlEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		slog.Warn("client: malformed control message", "error", err, "bytes", len(payload))
		c.metrics.RecordControlMessage(context.Background(), "malformed")
		return
	}

	switch env.EventType {
	case "agent_start_talking":
		c.events.emit(EventAgentStartTalking, nil)
	case "agent_stop_talking":
		c.events.emit(EventAgentStopTalking, nil)
	case "update":
		c.events.emitControl(EventUpdate, json.RawMessage(payload))
	case "metadata":
		c.events.emitControl(EventMetadata, json.RawMessage(payload))
	case "node_transition":
		c.events.emitControl(EventNodeTransition, json.RawMessage(payload))
	default:
		slog.Debug("client: ignoring unknown control event", "event_type", env.EventType)
		c.metrics.RecordControlMessage(context.Background(), "ignored")
		return
	}
	c.metrics.RecordControlMessage(context.Background(), "ok")
}
