// Package mock provides in-memory mock implementations of the
// [transport.Connector], [transport.Session], [transport.LocalTrack], and
// [transport.Publication] interfaces for use in unit tests.
//
// All mocks are safe for concurrent use. They record every method call so
// that tests can assert on call counts and ordering, and they expose exported
// fields that the test can set to control return values and inject failures.
//
// Typical usage:
//
//	sess := mock.NewSession()
//	conn := &mock.Connector{ConnectResult: sess}
//	// ... run the code under test ...
//	if got := sess.Ops(); got[0] != "publish:sim-mic-1" { ... }
package mock

import (
	"context"
	"fmt"
	"sync"

	media "github.com/livekit/media-sdk"

	"github.com/voximind/agentcall/pkg/transport"
)

// ─── Connector ────────────────────────────────────────────────────────────────

// Connector is a mock implementation of [transport.Connector].
type Connector struct {
	mu sync.Mutex

	// ConnectResult is returned by Connect when ConnectError is nil.
	ConnectResult *Session

	// ConnectError, when set, makes Connect fail.
	ConnectError error

	// CallCountConnect records how many times Connect was called.
	CallCountConnect int

	// LastParams holds the params from the most recent Connect call.
	LastParams transport.ConnectParams

	// LastHooks holds the hooks from the most recent Connect call, so tests
	// can drive session events.
	LastHooks transport.Hooks
}

// Connect implements [transport.Connector].
func (c *Connector) Connect(_ context.Context, params transport.ConnectParams, hooks transport.Hooks) (transport.Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCountConnect++
	c.LastParams = params
	c.LastHooks = hooks
	if c.ConnectError != nil {
		return nil, c.ConnectError
	}
	return c.ConnectResult, nil
}

// Hooks returns the hooks captured by the most recent Connect call.
func (c *Connector) Hooks() transport.Hooks {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.LastHooks
}

// ─── Session ──────────────────────────────────────────────────────────────────

// Session is a mock implementation of [transport.Session]. It records an
// ordered operation log ("publish:<name>", "unpublish:<sid>", ...) so tests
// can assert on publish/unpublish sequencing.
type Session struct {
	mu sync.Mutex

	// NewTrackError, when set, makes NewLocalAudioTrack fail.
	NewTrackError error

	// TrackWriteError, when set, is installed as the WriteError of every
	// track subsequently created on this session.
	TrackWriteError error

	// PublishError, when set, makes PublishTrack fail.
	PublishError error

	// UnpublishError, when set, makes UnpublishTrack fail (the caller is
	// expected to treat this as non-fatal).
	UnpublishError error

	// MicrophoneError, when set, makes SetMicrophoneEnabled fail.
	MicrophoneError error

	ops          []string
	tracks       []*LocalTrack
	publications []*Publication
	active       map[string]bool
	nextSID      int

	// CallCountDisconnect records how many times Disconnect was called.
	CallCountDisconnect int

	// MicrophoneEnabled holds the value from the last SetMicrophoneEnabled call.
	MicrophoneEnabled bool

	// CallCountStartAudio records how many times StartAudio was called.
	CallCountStartAudio int
}

// NewSession returns a ready-to-use mock session.
func NewSession() *Session {
	return &Session{active: make(map[string]bool)}
}

// NewLocalAudioTrack implements [transport.Session].
func (s *Session) NewLocalAudioTrack(sampleRate, channels int) (transport.LocalTrack, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.NewTrackError != nil {
		return nil, s.NewTrackError
	}
	t := &LocalTrack{SampleRate: sampleRate, Channels: channels, WriteError: s.TrackWriteError}
	s.tracks = append(s.tracks, t)
	s.ops = append(s.ops, "newtrack")
	return t, nil
}

// PublishTrack implements [transport.Session].
func (s *Session) PublishTrack(_ context.Context, _ transport.LocalTrack, opts transport.PublishOptions) (transport.Publication, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.PublishError != nil {
		s.ops = append(s.ops, "publish-failed:"+opts.Name)
		return nil, s.PublishError
	}
	s.nextSID++
	pub := &Publication{TrackSID: fmt.Sprintf("TR_%d", s.nextSID), TrackName: opts.Name, Source: opts.Source}
	s.publications = append(s.publications, pub)
	s.active[pub.TrackSID] = true
	s.ops = append(s.ops, "publish:"+opts.Name)
	return pub, nil
}

// UnpublishTrack implements [transport.Session].
func (s *Session) UnpublishTrack(sid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ops = append(s.ops, "unpublish:"+sid)
	if s.UnpublishError != nil {
		return s.UnpublishError
	}
	if !s.active[sid] {
		return fmt.Errorf("mock: unknown track %q", sid)
	}
	delete(s.active, sid)
	return nil
}

// SetMicrophoneEnabled implements [transport.Session].
func (s *Session) SetMicrophoneEnabled(_ context.Context, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.MicrophoneError != nil {
		return s.MicrophoneError
	}
	s.MicrophoneEnabled = enabled
	s.ops = append(s.ops, fmt.Sprintf("mic:%t", enabled))
	return nil
}

// StartAudio implements [transport.Session].
func (s *Session) StartAudio() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountStartAudio++
	return nil
}

// Disconnect implements [transport.Session].
func (s *Session) Disconnect() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.CallCountDisconnect++
	s.ops = append(s.ops, "disconnect")
	return nil
}

// Ops returns a snapshot of the ordered operation log.
func (s *Session) Ops() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.ops))
	copy(out, s.ops)
	return out
}

// ActivePublications returns the number of currently published (not yet
// unpublished) tracks.
func (s *Session) ActivePublications() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.active)
}

// Tracks returns all tracks created on this session, in creation order.
func (s *Session) Tracks() []*LocalTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*LocalTrack, len(s.tracks))
	copy(out, s.tracks)
	return out
}

// Publications returns all publications made on this session, in order.
func (s *Session) Publications() []*Publication {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Publication, len(s.publications))
	copy(out, s.publications)
	return out
}

// ─── LocalTrack ───────────────────────────────────────────────────────────────

// LocalTrack is a mock implementation of [transport.LocalTrack]. It records
// every sample batch written to it.
type LocalTrack struct {
	mu sync.Mutex

	// SampleRate and Channels echo the creation parameters.
	SampleRate int
	Channels   int

	// WriteError, when set, makes WriteSample fail.
	WriteError error

	writes [][]int16
	closed int
}

// WriteSample implements [transport.LocalTrack].
func (t *LocalTrack) WriteSample(samples media.PCM16Sample) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.WriteError != nil {
		return t.WriteError
	}
	cp := make([]int16, len(samples))
	copy(cp, samples)
	t.writes = append(t.writes, cp)
	return nil
}

// Close implements [transport.LocalTrack].
func (t *LocalTrack) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed++
	return nil
}

// Writes returns every sample batch written, in order.
func (t *LocalTrack) Writes() [][]int16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([][]int16, len(t.writes))
	copy(out, t.writes)
	return out
}

// WrittenSamples returns all written samples concatenated in order.
func (t *LocalTrack) WrittenSamples() []int16 {
	t.mu.Lock()
	defer t.mu.Unlock()
	var all []int16
	for _, w := range t.writes {
		all = append(all, w...)
	}
	return all
}

// CloseCount returns how many times Close was called.
func (t *LocalTrack) CloseCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}

// ─── Publication ──────────────────────────────────────────────────────────────

// Publication is a mock implementation of [transport.Publication].
type Publication struct {
	// TrackSID is returned by SID.
	TrackSID string

	// TrackName is returned by Name.
	TrackName string

	// Source echoes the publish options.
	Source transport.TrackSource
}

// SID implements [transport.Publication].
func (p *Publication) SID() string { return p.TrackSID }

// Name implements [transport.Publication].
func (p *Publication) Name() string { return p.TrackName }
