// Package micsim implements the simulated-microphone delivery pipeline: it
// takes a fully-buffered audio clip and injects it into a live media session
// so that it arrives at the remote endpoint looking like a live microphone
// feed — paced in small time-accurate increments, sequenced with track
// publish/unpublish lifecycle, and torn down unconditionally on completion,
// failure, or timeout.
//
// The package has two halves. [Lifecycle] owns the one-slot registry of the
// currently published simulated track and guarantees the previous publication
// is retired before a new one starts. [Publisher] creates a fresh track per
// utterance, publishes it through the session, and feeds chunks at
// real-time-accurate offsets.
package micsim

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/voximind/agentcall/internal/observe"
	"github.com/voximind/agentcall/pkg/transport"
)

// State describes where the lifecycle currently is in the per-utterance
// publish cycle.
type State int

const (
	// StateIdle means no simulated publication exists.
	StateIdle State = iota

	// StatePublishing means a track is being created and published.
	StatePublishing

	// StatePublished means one simulated track is live on the session.
	StatePublished

	// StateRetiring means the active publication is being unpublished.
	StateRetiring
)

// String returns the human-readable name of the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StatePublishing:
		return "publishing"
	case StatePublished:
		return "published"
	case StateRetiring:
		return "retiring"
	default:
		return "unknown"
	}
}

// activePublication pairs a publication handle with the track behind it, so
// retirement can both unpublish and stop the producer.
type activePublication struct {
	pub   transport.Publication
	track transport.LocalTrack
}

// Lifecycle tracks the at-most-one active simulated publication for a session
// and owns its retirement. The active slot is an explicit single-writer
// registry: every transition happens under one mutex, so unpublish-then-clear
// is atomic with respect to concurrent teardown.
//
// Lifecycle is safe for concurrent use.
type Lifecycle struct {
	mu      sync.Mutex
	session transport.Session
	metrics *observe.Metrics

	state  State
	active *activePublication

	// trackSeq generates session-unique track names. Reset only on Close so
	// a new publication never reuses the name of a possibly-not-yet-fully
	// unpublished predecessor at the transport layer.
	trackSeq int
}

// NewLifecycle creates a lifecycle manager bound to the given session.
// metrics may be nil.
func NewLifecycle(session transport.Session, metrics *observe.Metrics) *Lifecycle {
	return &Lifecycle{session: session, metrics: metrics}
}

// BeginSend prepares for a new simulated utterance: if a previous publication
// is still active it is unpublished (best-effort — failures are logged, not
// fatal) and cleared. On return, exactly zero simulated publications exist.
func (l *Lifecycle) BeginSend() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.retireLocked()
	l.state = StatePublishing
}

// NextTrackName returns a track name unique within the session lifetime.
func (l *Lifecycle) NextTrackName() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trackSeq++
	return fmt.Sprintf("sim-mic-%d", l.trackSeq)
}

// Register records the newly published track as the active publication.
func (l *Lifecycle) Register(pub transport.Publication, track transport.LocalTrack) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.active = &activePublication{pub: pub, track: track}
	l.state = StatePublished
	if l.metrics != nil {
		l.metrics.ActivePublications.Add(context.Background(), 1)
	}
}

// Teardown unconditionally retires the active publication, if any:
// best-effort unpublish, stop the track, clear the slot. It is idempotent and
// safe to call from both the send path and session shutdown.
func (l *Lifecycle) Teardown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.retireLocked()
	l.state = StateIdle
}

// Close tears down any active publication and resets the track name counter.
// Called only on full session stop.
func (l *Lifecycle) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.retireLocked()
	l.state = StateIdle
	l.trackSeq = 0
}

// Active reports whether a simulated publication is currently live.
func (l *Lifecycle) Active() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.active != nil
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// retireLocked unpublishes and stops the active publication. Caller holds mu.
func (l *Lifecycle) retireLocked() {
	if l.active == nil {
		return
	}
	l.state = StateRetiring

	sid := l.active.pub.SID()
	if err := l.session.UnpublishTrack(sid); err != nil {
		// A failed unpublish of a stale track must not block a new send.
		slog.Warn("micsim: unpublish of simulated track failed",
			"track_sid", sid,
			"track_name", l.active.pub.Name(),
			"err", err,
		)
	}
	if err := l.active.track.Close(); err != nil {
		slog.Warn("micsim: closing simulated track failed",
			"track_sid", sid,
			"err", err,
		)
	}
	l.active = nil
	if l.metrics != nil {
		l.metrics.ActivePublications.Add(context.Background(), -1)
		l.metrics.Teardowns.Add(context.Background(), 1)
	}
}
