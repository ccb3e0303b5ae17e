// Package livekit adapts a LiveKit room to the [transport.Session] interface.
//
// The adapter connects with a pre-issued access token (see [NewToken] for
// issuing one from an API key pair), auto-subscribes to remote tracks, and
// surfaces the events agentcall cares about: the agent's audio track becoming
// available, data-channel payloads, participant departures, and room
// disconnection. Local audio is published as PCM through the SDK's sample
// track, which paces and Opus-encodes the media itself.
//
// This adapter has no audio device access: microphone enablement is tracked
// as session state only, and remote audio is delivered as decoded frames
// rather than rendered to a playback device.
package livekit

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	protocol "github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	lkmedia "github.com/livekit/server-sdk-go/v2/pkg/media"
	"github.com/pion/webrtc/v4"

	"github.com/voximind/agentcall/pkg/audio"
	"github.com/voximind/agentcall/pkg/transport"
)

// readTimeout bounds each blocking read on the agent's remote track so the
// pump goroutine can notice session shutdown.
const readTimeout = 5 * time.Second

// Connector implements [transport.Connector] for LiveKit rooms.
type Connector struct{}

// NewConnector returns a LiveKit-backed connector.
func NewConnector() *Connector {
	return &Connector{}
}

// Connect implements [transport.Connector]. The room is joined with
// auto-subscribe enabled so the agent's track arrives without an explicit
// subscription round-trip.
func (Connector) Connect(ctx context.Context, params transport.ConnectParams, hooks transport.Hooks) (transport.Session, error) {
	if params.URL == "" {
		return nil, errors.New("livekit: server URL is required")
	}
	if params.Token == "" {
		return nil, errors.New("livekit: access token is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s := &session{
		agentIdentity: params.AgentIdentity,
		emitFrames:    params.EmitAudioFrames,
		hooks:         hooks,
		done:          make(chan struct{}),
	}

	cb := &lksdk.RoomCallback{
		ParticipantCallback: lksdk.ParticipantCallback{
			OnTrackSubscribed: func(track *webrtc.TrackRemote, pub *lksdk.RemoteTrackPublication, rp *lksdk.RemoteParticipant) {
				s.handleTrackSubscribed(track, rp)
			},
			OnDataPacket: func(data lksdk.DataPacket, dp lksdk.DataReceiveParams) {
				s.handleDataPacket(data, dp)
			},
		},
		OnParticipantDisconnected: func(rp *lksdk.RemoteParticipant) {
			if hooks.OnParticipantDisconnected != nil {
				hooks.OnParticipantDisconnected(rp.Identity())
			}
		},
		OnDisconnected: func() {
			s.handleDisconnected()
		},
	}

	room, err := lksdk.ConnectToRoomWithToken(params.URL, params.Token, cb,
		lksdk.WithAutoSubscribe(true),
	)
	if err != nil {
		return nil, fmt.Errorf("livekit: connect to room: %w", err)
	}

	s.mu.Lock()
	s.room = room
	s.mu.Unlock()

	slog.Info("livekit: connected to room",
		"room", room.Name(),
		"agent_identity", params.AgentIdentity,
	)
	return s, nil
}

// session implements [transport.Session] on top of an [lksdk.Room].
type session struct {
	agentIdentity string
	emitFrames    bool
	hooks         transport.Hooks

	mu         sync.Mutex
	room       *lksdk.Room
	micEnabled bool
	closed     bool

	done chan struct{}
}

// localTrack wraps the SDK's PCM track so it satisfies
// [transport.LocalTrack]. The wrapper also lets PublishTrack recover the
// concrete SDK type.
type localTrack struct {
	*lkmedia.PCMLocalTrack
}

func (t *localTrack) Close() error {
	t.PCMLocalTrack.Close()
	return nil
}

// NewLocalAudioTrack implements [transport.Session]. The returned track
// accepts raw PCM16 and handles Opus encoding and transmission pacing
// internally.
func (s *session) NewLocalAudioTrack(sampleRate, channels int) (transport.LocalTrack, error) {
	t, err := lkmedia.NewPCMLocalTrack(sampleRate, channels, nil)
	if err != nil {
		return nil, fmt.Errorf("livekit: create PCM track: %w", err)
	}
	return &localTrack{PCMLocalTrack: t}, nil
}

// PublishTrack implements [transport.Session].
func (s *session) PublishTrack(ctx context.Context, track transport.LocalTrack, opts transport.PublishOptions) (transport.Publication, error) {
	lt, ok := track.(*localTrack)
	if !ok {
		return nil, fmt.Errorf("livekit: track %T was not created by this session", track)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	room := s.currentRoom()
	if room == nil {
		return nil, errors.New("livekit: session closed")
	}
	pub, err := room.LocalParticipant.PublishTrack(lt.PCMLocalTrack, &lksdk.TrackPublicationOptions{
		Name:   opts.Name,
		Source: trackSource(opts.Source),
	})
	if err != nil {
		return nil, fmt.Errorf("livekit: publish track %q: %w", opts.Name, err)
	}
	return pub, nil
}

// UnpublishTrack implements [transport.Session].
func (s *session) UnpublishTrack(sid string) error {
	room := s.currentRoom()
	if room == nil {
		return errors.New("livekit: session closed")
	}
	if err := room.LocalParticipant.UnpublishTrack(sid); err != nil {
		return fmt.Errorf("livekit: unpublish track %q: %w", sid, err)
	}
	return nil
}

// SetMicrophoneEnabled implements [transport.Session]. This adapter has no
// capture device, so the flag is recorded as session state only; a transport
// with hardware access would start or stop capture here.
func (s *session) SetMicrophoneEnabled(_ context.Context, enabled bool) error {
	s.mu.Lock()
	s.micEnabled = enabled
	s.mu.Unlock()
	slog.Debug("livekit: microphone state updated", "enabled", enabled)
	return nil
}

// MicrophoneEnabled reports the last requested microphone state.
func (s *session) MicrophoneEnabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.micEnabled
}

// StartAudio implements [transport.Session]. Frames flow as soon as the
// agent's track is subscribed, so there is no deferred playback to resume.
func (s *session) StartAudio() error {
	return nil
}

// Disconnect implements [transport.Session]. Safe to call more than once.
func (s *session) Disconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	room := s.room
	s.room = nil
	close(s.done)
	s.mu.Unlock()

	if room != nil {
		room.Disconnect()
	}
	return nil
}

func (s *session) currentRoom() *lksdk.Room {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.room
}

func (s *session) handleTrackSubscribed(track *webrtc.TrackRemote, rp *lksdk.RemoteParticipant) {
	if rp.Identity() != s.agentIdentity || track.Kind() != webrtc.RTPCodecTypeAudio {
		return
	}
	slog.Debug("livekit: agent audio track subscribed",
		"participant", rp.Identity(),
		"codec", track.Codec().MimeType,
	)
	if s.emitFrames && s.hooks.OnAgentAudioFrame != nil {
		go s.pumpAgentAudio(track)
	}
	if s.hooks.OnAgentTrackSubscribed != nil {
		s.hooks.OnAgentTrackSubscribed()
	}
}

// pumpAgentAudio reads the agent's RTP stream, decodes each Opus packet to
// PCM16 and hands the frames to the audio hook. Runs until the track ends or
// the session is disconnected.
func (s *session) pumpAgentAudio(track *webrtc.TrackRemote) {
	channels := int(track.Codec().Channels)
	if channels == 0 {
		channels = 2
	}
	dec, err := newOpusDecoder(channels)
	if err != nil {
		slog.Error("livekit: agent audio decoder unavailable", "err", err)
		return
	}
	start := time.Now()

	for {
		select {
		case <-s.done:
			return
		default:
		}

		if err := track.SetReadDeadline(time.Now().Add(readTimeout)); err != nil {
			return
		}
		pkt, _, err := track.ReadRTP()
		if err != nil {
			var netErr net.Error
			if errors.As(err, &netErr) && netErr.Timeout() {
				continue
			}
			if !errors.Is(err, io.EOF) {
				slog.Debug("livekit: agent track read ended", "err", err)
			}
			return
		}
		if pkt == nil || len(pkt.Payload) == 0 {
			continue
		}

		pcm, err := dec.decode(pkt.Payload)
		if err != nil {
			// Skip the corrupt packet; the decoder resynchronises on the next one.
			slog.Warn("livekit: dropping undecodable agent audio packet", "err", err)
			continue
		}
		s.hooks.OnAgentAudioFrame(audio.AudioFrame{
			Data:       pcm,
			SampleRate: opusClockRate,
			Channels:   channels,
			Timestamp:  time.Since(start),
		})
	}
}

func (s *session) handleDataPacket(data lksdk.DataPacket, dp lksdk.DataReceiveParams) {
	if s.hooks.OnDataMessage == nil {
		return
	}
	user := data.ToProto().GetUser()
	if user == nil || len(user.GetPayload()) == 0 {
		return
	}
	s.hooks.OnDataMessage(transport.DataMessage{
		SenderIdentity: dp.SenderIdentity,
		Topic:          user.GetTopic(),
		Payload:        user.GetPayload(),
	})
}

func (s *session) handleDisconnected() {
	s.mu.Lock()
	alreadyClosed := s.closed
	s.mu.Unlock()
	if alreadyClosed {
		// Local Disconnect triggered the callback; nothing to report.
		return
	}
	slog.Info("livekit: room disconnected")
	if s.hooks.OnDisconnected != nil {
		s.hooks.OnDisconnected()
	}
}

// trackSource maps the transport-level source to the LiveKit protocol enum.
func trackSource(src transport.TrackSource) protocol.TrackSource {
	if src == transport.SourceMicrophone {
		return protocol.TrackSource_MICROPHONE
	}
	return protocol.TrackSource_UNKNOWN
}
