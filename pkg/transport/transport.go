// Package transport defines the interfaces and types for the real-time media
// session that agentcall runs on top of.
//
// The two primary abstractions are:
//
//   - [Connector] — establishes a session with the remote agent infrastructure
//     and returns a [Session].
//   - [Session] — an active media session, giving callers local-track
//     publish/unpublish primitives, microphone control, and lifecycle hooks.
//
// Implementations are provided by adapter packages (e.g., transport/livekit).
// The client treats the session as an external collaborator: connection
// handshake, NAT traversal, and codec negotiation all live behind these
// interfaces, and the simulated-microphone pipeline only drives the publish
// lifecycle through them.
//
// This package lives under pkg/ because external code (alternative transport
// adapters, test doubles) is expected to implement [Connector] and [Session].
package transport

import (
	"context"

	media "github.com/livekit/media-sdk"

	"github.com/voximind/agentcall/pkg/audio"
)

// TrackSource classifies what a published local track stands in for.
type TrackSource int

const (
	// SourceUnknown is an unclassified track.
	SourceUnknown TrackSource = iota

	// SourceMicrophone marks a track as microphone audio. Simulated
	// utterances publish with this source so the remote endpoint treats
	// them like live capture.
	SourceMicrophone
)

// String returns the human-readable name of the track source.
func (s TrackSource) String() string {
	switch s {
	case SourceMicrophone:
		return "MICROPHONE"
	default:
		return "UNKNOWN"
	}
}

// PublishOptions carries the metadata attached to a local track publication.
type PublishOptions struct {
	// Name is the track name visible at the transport layer. Must be unique
	// within the session lifetime; a stale not-yet-unpublished track with
	// the same name causes ID collisions on some SFUs.
	Name string

	// Source classifies the track for the remote endpoint.
	Source TrackSource
}

// Publication is a handle to one published local track.
type Publication interface {
	// SID returns the server-assigned track ID.
	SID() string

	// Name returns the track name supplied at publish time.
	Name() string
}

// LocalTrack is a synthetic audio-producing track that can be published on a
// session. Samples written to it are encoded and sent to the remote endpoint
// in real time.
//
// A LocalTrack is created fresh for each simulated utterance and closed when
// that utterance ends; it is not reused.
type LocalTrack interface {
	// WriteSample queues mono PCM16 samples for transmission. The track
	// paces transmission itself; WriteSample must not block for the
	// duration of the audio.
	WriteSample(samples media.PCM16Sample) error

	// Close stops the track and releases its encoder resources. Calling
	// Close more than once is safe.
	Close() error
}

// DataMessage is a payload received on the session's data channel.
type DataMessage struct {
	// SenderIdentity is the participant identity that published the payload.
	SenderIdentity string

	// Topic is the optional data-channel topic.
	Topic string

	// Payload is the raw message body.
	Payload []byte
}

// Hooks are the callbacks a session invokes on remote activity. All hooks are
// optional; nil hooks are skipped. Hooks are invoked on internal goroutines —
// implementations must not block.
type Hooks struct {
	// OnAgentTrackSubscribed fires when the remote agent's audio track
	// becomes available, i.e. the call is ready for audio exchange.
	OnAgentTrackSubscribed func()

	// OnAgentAudioFrame delivers live audio frames from the agent's track.
	// Only invoked when frame delivery was requested at connect time.
	OnAgentAudioFrame func(frame audio.AudioFrame)

	// OnDataMessage delivers data-channel payloads.
	OnDataMessage func(msg DataMessage)

	// OnParticipantDisconnected fires when a remote participant leaves.
	OnParticipantDisconnected func(identity string)

	// OnDisconnected fires when the transport itself reports disconnection.
	OnDisconnected func()
}

// ConnectParams carries everything an adapter needs to establish a session.
type ConnectParams struct {
	// URL is the media server endpoint.
	URL string

	// Token is the access credential for the session.
	Token string

	// AgentIdentity is the participant identity of the remote agent. Tracks
	// and data from this participant drive the call lifecycle.
	AgentIdentity string

	// SampleRate is the capture sample rate in Hz for locally published audio.
	SampleRate int

	// EmitAudioFrames enables decoding and delivery of the agent's audio
	// via [Hooks.OnAgentAudioFrame].
	EmitAudioFrames bool

	// CaptureDeviceID and PlaybackDeviceID select audio hardware on
	// adapters that capture or render locally. Adapters without device
	// access ignore them.
	CaptureDeviceID  string
	PlaybackDeviceID string
}

// Session is an active media session with the remote agent infrastructure.
//
// Implementations must be safe for concurrent use.
type Session interface {
	// NewLocalAudioTrack creates a publishable synthetic audio track at the
	// given rate and channel count. The track is not published until it is
	// handed to PublishTrack.
	NewLocalAudioTrack(sampleRate, channels int) (LocalTrack, error)

	// PublishTrack attaches the track to the session. Returns a handle used
	// for the eventual unpublish.
	PublishTrack(ctx context.Context, track LocalTrack, opts PublishOptions) (Publication, error)

	// UnpublishTrack detaches the publication identified by sid. Returns an
	// error if the track is unknown; callers treat unpublish failures as
	// non-fatal.
	UnpublishTrack(sid string) error

	// SetMicrophoneEnabled enables or disables live microphone capture.
	// Sessions started for simulation never enable the microphone.
	SetMicrophoneEnabled(ctx context.Context, enabled bool) error

	// StartAudio resumes deferred remote-audio delivery. Adapters that
	// deliver frames immediately implement this as a no-op.
	StartAudio() error

	// Disconnect tears the session down. Safe to call more than once;
	// subsequent calls are no-ops and return nil.
	Disconnect() error
}

// Connector is the entry point for a media-session provider.
//
// Implementations must be safe for concurrent use.
type Connector interface {
	// Connect establishes a session. The supplied ctx governs the lifetime
	// of the connection attempt only; once connected, the Session remains
	// alive until [Session.Disconnect] is called.
	Connect(ctx context.Context, params ConnectParams, hooks Hooks) (Session, error)
}
