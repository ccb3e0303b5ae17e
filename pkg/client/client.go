// Package client is the public entry point of the agentcall SDK: a session
// facade over a real-time media transport that joins a voice call with a
// remote conversational agent, relays its lifecycle as events, and, in
// simulation mode, injects buffered audio clips so they arrive at the agent
// indistinguishable from a live microphone feed.
//
// A [Client] drives one call at a time:
//
//	c := client.NewClient(connector)
//	c.On(client.EventCallReady, func(client.Event) { ... })
//	err := c.StartCall(ctx, client.CallConfig{
//		AccessToken:    token,
//		SimulationMode: true,
//	})
//	...
//	err = c.SendAudioBuffer(ctx, clip)
//	_ = c.StopCall()
package client

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voximind/agentcall/internal/micsim"
	"github.com/voximind/agentcall/internal/observe"
	"github.com/voximind/agentcall/pkg/audio"
	"github.com/voximind/agentcall/pkg/transport"
)

// defaultAgentDisconnectGrace is how long the client waits after the agent
// participant leaves before ending the call. The grace period avoids
// truncating trailing audio still in flight.
const defaultAgentDisconnectGrace = 500 * time.Millisecond

// Sentinel errors for precondition failures. These reject synchronously and
// never mutate session state.
var (
	// ErrNotConnected is returned by operations that require a live call.
	ErrNotConnected = errors.New("client: no active call")

	// ErrNotSimulation is returned by [Client.SendAudioBuffer] when the call
	// was started without [CallConfig.SimulationMode].
	ErrNotSimulation = errors.New("client: call not started in simulation mode")

	// ErrAlreadyStarted is returned by [Client.StartCall] while a call is
	// connecting or connected.
	ErrAlreadyStarted = errors.New("client: call already in progress")
)

// callState tracks where the client is in the call lifecycle.
type callState int

const (
	stateDisconnected callState = iota
	stateConnecting
	stateConnected
)

// Client is the session facade. One Client manages at most one call at a
// time; a new call may be started after the previous one ended.
//
// Event handlers registered with [Client.On] are invoked synchronously from
// transport goroutines and must not block. Concurrent overlapping calls to
// [Client.SendAudioBuffer] on the same call are not supported; callers must
// serialize sends.
type Client struct {
	connector transport.Connector
	metrics   *observe.Metrics
	events    *emitter

	grace      time.Duration
	sendConfig micsim.Config

	mu         sync.Mutex
	state      callState
	cfg        CallConfig
	session    transport.Session
	lifecycle  *micsim.Lifecycle
	publisher  *micsim.Publisher
	agentTimer *time.Timer
}

// Option customises a [Client].
type Option func(*Client)

// WithMetrics overrides the metrics instance. Defaults to
// [observe.DefaultMetrics].
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Client) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithAgentDisconnectGrace overrides the delay between the agent participant
// leaving and the call ending. Defaults to 500 ms.
func WithAgentDisconnectGrace(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.grace = d
		}
	}
}

// WithSendTiming overrides the pacing parameters of simulated sends: the
// settle delay before the first chunk, the chunk duration, and the tail
// margin awaited after playback. Zero values keep the defaults.
func WithSendTiming(settleDelay, chunkDuration, tailMargin time.Duration) Option {
	return func(c *Client) {
		c.sendConfig = micsim.Config{
			SettleDelay:   settleDelay,
			ChunkDuration: chunkDuration,
			TailMargin:    tailMargin,
		}
	}
}

// NewClient creates a client on top of the given transport connector.
func NewClient(connector transport.Connector, opts ...Option) *Client {
	c := &Client{
		connector: connector,
		metrics:   observe.DefaultMetrics(),
		events:    newEmitter(),
		grace:     defaultAgentDisconnectGrace,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// On registers a handler for the given event type. Handlers cannot be
// removed; register once, before StartCall.
func (c *Client) On(t EventType, h Handler) {
	c.events.on(t, h)
}

// Connected reports whether a call is currently live.
func (c *Client) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == stateConnected
}

// StartCall connects to the agent and brings the call up. On success an
// [EventCallStarted] notification fires, followed by [EventCallReady] once
// the agent's audio track is subscribed. On setup failure the client emits
// [EventError], tears everything down and returns the error with the client
// back in the disconnected state.
func (c *Client) StartCall(ctx context.Context, cfg CallConfig) error {
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("client: invalid call config: %w", err)
	}
	cfg = cfg.withDefaults()

	c.mu.Lock()
	if c.state != stateDisconnected {
		c.mu.Unlock()
		return ErrAlreadyStarted
	}
	c.state = stateConnecting
	c.cfg = cfg
	c.mu.Unlock()

	hooks := transport.Hooks{
		OnAgentTrackSubscribed: func() {
			c.events.emit(EventCallReady, nil)
		},
		OnDataMessage: func(msg transport.DataMessage) {
			if msg.SenderIdentity == cfg.AgentIdentity {
				c.handleControlMessage(msg.Payload)
			}
		},
		OnParticipantDisconnected: func(identity string) {
			if identity == cfg.AgentIdentity {
				c.scheduleAgentDeparture()
			}
		},
		OnDisconnected: func() {
			c.endCall("transport disconnected")
		},
	}
	if cfg.EmitRawAudioSamples {
		hooks.OnAgentAudioFrame = c.events.emitAudio
	}

	session, err := c.connector.Connect(ctx, transport.ConnectParams{
		URL:              cfg.ServerURL,
		Token:            cfg.AccessToken,
		AgentIdentity:    cfg.AgentIdentity,
		SampleRate:       cfg.SampleRate,
		EmitAudioFrames:  cfg.EmitRawAudioSamples,
		CaptureDeviceID:  cfg.CaptureDeviceID,
		PlaybackDeviceID: cfg.PlaybackDeviceID,
	}, hooks)
	if err != nil {
		c.mu.Lock()
		c.state = stateDisconnected
		c.mu.Unlock()
		err = fmt.Errorf("client: connect: %w", err)
		c.events.emit(EventError, err)
		return err
	}

	if !cfg.SimulationMode {
		if merr := session.SetMicrophoneEnabled(ctx, true); merr != nil {
			_ = session.Disconnect()
			c.mu.Lock()
			c.state = stateDisconnected
			c.mu.Unlock()
			merr = fmt.Errorf("client: enable microphone: %w", merr)
			c.events.emit(EventError, merr)
			return merr
		}
	}
	if aerr := session.StartAudio(); aerr != nil {
		// Deferred-playback resume is best effort; the call itself is fine.
		slog.Warn("client: start audio failed", "err", aerr)
	}

	lifecycle := micsim.NewLifecycle(session, c.metrics)

	c.mu.Lock()
	c.state = stateConnected
	c.session = session
	c.lifecycle = lifecycle
	c.publisher = micsim.NewPublisher(session, lifecycle, c.metrics, c.sendConfig)
	c.mu.Unlock()

	c.metrics.ActiveCalls.Add(ctx, 1)
	slog.Info("client: call started",
		"simulation", cfg.SimulationMode,
		"sample_rate", cfg.SampleRate,
		"agent_identity", cfg.AgentIdentity,
	)
	c.events.emit(EventCallStarted, nil)
	return nil
}

// StopCall ends the current call and releases all call-scoped resources.
// Idempotent: calling it with no call in progress is a no-op.
func (c *Client) StopCall() error {
	return c.endCall("stop requested")
}

// Mute disables the live microphone. No-op in simulation mode, where no
// microphone is captured.
func (c *Client) Mute(ctx context.Context) error {
	return c.setMicrophone(ctx, false)
}

// Unmute re-enables the live microphone. No-op in simulation mode.
func (c *Client) Unmute(ctx context.Context) error {
	return c.setMicrophone(ctx, true)
}

func (c *Client) setMicrophone(ctx context.Context, enabled bool) error {
	c.mu.Lock()
	session, simulation := c.session, c.cfg.SimulationMode
	connected := c.state == stateConnected
	c.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	if simulation {
		return nil
	}
	if err := session.SetMicrophoneEnabled(ctx, enabled); err != nil {
		return fmt.Errorf("client: set microphone %v: %w", enabled, err)
	}
	return nil
}

// SendAudioBuffer plays clip into the call through a fresh simulated
// microphone track, paced chunk by chunk at live-capture cadence. It returns
// after the full clip duration (plus settle delay and tail margin) has
// elapsed, or earlier with an error; the simulated track is retired either
// way.
//
// The clip must already be mono PCM16 at the call's configured sample rate;
// use [audio.Conform] to resample beforehand if needed.
func (c *Client) SendAudioBuffer(ctx context.Context, clip audio.Clip) error {
	c.mu.Lock()
	publisher := c.publisher
	connected := c.state == stateConnected
	simulation := c.cfg.SimulationMode
	rate := c.cfg.SampleRate
	c.mu.Unlock()

	if !connected {
		return ErrNotConnected
	}
	if !simulation {
		return ErrNotSimulation
	}
	if clip.SampleRate != rate {
		return fmt.Errorf("client: clip sample rate %d does not match call rate %d", clip.SampleRate, rate)
	}

	start := time.Now()
	err := publisher.SendChunked(ctx, clip)
	status := "ok"
	if err != nil {
		status = "error"
	}
	c.metrics.RecordSend(ctx, "chunked", status, time.Since(start).Seconds())
	return err
}

// scheduleAgentDeparture arms the grace timer after the agent participant
// leaves. If the call is still up when the timer fires, it ends with a
// call_ended notification.
func (c *Client) scheduleAgentDeparture() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != stateConnected || c.agentTimer != nil {
		return
	}
	slog.Debug("client: agent left, ending call after grace period", "grace", c.grace)
	c.agentTimer = time.AfterFunc(c.grace, func() {
		c.endCall("agent disconnected")
	})
}

// endCall tears the call down: retire any simulated publication, disconnect
// the session, reset state, emit call_ended. Idempotent; only the first call
// per session has observable effect.
func (c *Client) endCall(reason string) error {
	c.mu.Lock()
	if c.state != stateConnected {
		c.mu.Unlock()
		return nil
	}
	c.state = stateDisconnected
	session, lifecycle := c.session, c.lifecycle
	if c.agentTimer != nil {
		c.agentTimer.Stop()
		c.agentTimer = nil
	}
	c.session = nil
	c.lifecycle = nil
	c.publisher = nil
	c.mu.Unlock()

	lifecycle.Close()
	err := session.Disconnect()
	if err != nil {
		slog.Warn("client: disconnect failed", "err", err)
	}

	c.metrics.ActiveCalls.Add(context.Background(), -1)
	slog.Info("client: call ended", "reason", reason)
	c.events.emit(EventCallEnded, nil)
	return err
}
