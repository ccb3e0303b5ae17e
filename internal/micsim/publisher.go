package micsim

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	media "github.com/livekit/media-sdk"

	"github.com/voximind/agentcall/internal/observe"
	"github.com/voximind/agentcall/pkg/audio"
	"github.com/voximind/agentcall/pkg/transport"
)

const (
	// DefaultSettleDelay is the pause between publishing a new simulated
	// track and writing the first chunk. The remote endpoint's
	// voice-activity detection needs this warm-up window to initialize on
	// the new track before real content arrives; without it the start of
	// the utterance is clipped or missed entirely.
	DefaultSettleDelay = 300 * time.Millisecond

	// DefaultTailMargin is the extra wait after the final chunk's playback
	// position before a send is declared complete, covering encoder and
	// network flush.
	DefaultTailMargin = 200 * time.Millisecond

	// wholeBufferGrace bounds how long the whole-buffer send mode waits for
	// natural completion beyond the clip duration before force-failing.
	wholeBufferGrace = 5 * time.Second
)

// Config carries the tunable timing parameters of a [Publisher]. The zero
// value selects the defaults.
type Config struct {
	// SettleDelay overrides DefaultSettleDelay. Sensible values are in the
	// 150–400 ms range.
	SettleDelay time.Duration

	// ChunkDuration overrides audio.DefaultChunkDuration.
	ChunkDuration time.Duration

	// TailMargin overrides DefaultTailMargin.
	TailMargin time.Duration
}

func (c Config) withDefaults() Config {
	if c.SettleDelay <= 0 {
		c.SettleDelay = DefaultSettleDelay
	}
	if c.ChunkDuration <= 0 {
		c.ChunkDuration = audio.DefaultChunkDuration
	}
	if c.TailMargin <= 0 {
		c.TailMargin = DefaultTailMargin
	}
	return c
}

// Publisher delivers buffered clips onto a session as simulated microphone
// utterances. Each send creates exactly one track, publishes it once, feeds
// chunks progressively at real-time offsets, and tears the track down when
// the operation ends — on success, failure, cancellation, or timeout alike.
//
// Concurrent overlapping sends on the same Publisher are not supported:
// callers must serialize sends. Each send retires whatever the previous one
// left behind, so an overlapping call would cut off the one in flight.
type Publisher struct {
	session   transport.Session
	lifecycle *Lifecycle
	metrics   *observe.Metrics
	cfg       Config
}

// NewPublisher creates a publisher that publishes through session and records
// its publications with lifecycle. metrics may be nil.
func NewPublisher(session transport.Session, lifecycle *Lifecycle, metrics *observe.Metrics, cfg Config) *Publisher {
	return &Publisher{
		session:   session,
		lifecycle: lifecycle,
		metrics:   metrics,
		cfg:       cfg.withDefaults(),
	}
}

// SendChunked plays clip through a fresh simulated track, feeding one chunk
// per chunk interval so the stream resembles live capture to downstream
// turn-taking logic. It returns once the full clip duration plus the tail
// margin has elapsed, or earlier with an error.
//
// Chunk pacing uses absolute offsets from the utterance start rather than
// repeated relative sleeps, so scheduling drift does not accumulate over
// long clips.
func (p *Publisher) SendChunked(ctx context.Context, clip audio.Clip) error {
	chunks, err := audio.Split(clip, p.cfg.ChunkDuration)
	if err != nil {
		return err
	}

	track, err := p.publish(ctx, clip.SampleRate)
	if err != nil {
		return err
	}
	defer p.lifecycle.Teardown()

	if err := sleepCtx(ctx, p.cfg.SettleDelay); err != nil {
		return err
	}

	start := time.Now()
	for i, c := range chunks {
		if err := track.WriteSample(media.PCM16Sample(c.Samples)); err != nil {
			return fmt.Errorf("micsim: write chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if p.metrics != nil {
			p.metrics.ChunksPublished.Add(ctx, 1)
		}
		// Sleep to the end of this chunk's playback slot. For the final
		// (possibly short) chunk, Offset+Duration lands exactly on the
		// clip end rather than overshooting by a full interval.
		if err := sleepUntil(ctx, start.Add(c.Offset+c.Duration())); err != nil {
			return err
		}
	}

	return sleepUntil(ctx, start.Add(clip.Duration()+p.cfg.TailMargin))
}

// SendWhole plays clip through a fresh simulated track as a single write:
// one settle delay, then the entire buffer at once. Completion is awaited
// for the clip duration plus the tail margin, bounded by a safety timeout of
// clip duration plus five seconds, after which the operation force-fails.
//
// This mode delivers faster than real time and therefore does not exercise
// the remote endpoint's turn-taking the way SendChunked does; it exists for
// tests that only need the audio to arrive.
func (p *Publisher) SendWhole(ctx context.Context, clip audio.Clip) error {
	if clip.Empty() {
		return audio.ErrEmptyClip
	}
	if clip.SampleRate <= 0 {
		return fmt.Errorf("micsim: invalid sample rate %d", clip.SampleRate)
	}

	ctx, cancel := context.WithTimeout(ctx, clip.Duration()+wholeBufferGrace)
	defer cancel()

	track, err := p.publish(ctx, clip.SampleRate)
	if err != nil {
		return err
	}
	defer p.lifecycle.Teardown()

	if err := sleepCtx(ctx, p.cfg.SettleDelay); err != nil {
		return err
	}
	if err := track.WriteSample(media.PCM16Sample(clip.Samples)); err != nil {
		return fmt.Errorf("micsim: write buffer: %w", err)
	}
	if err := sleepCtx(ctx, clip.Duration()+p.cfg.TailMargin); err != nil {
		return fmt.Errorf("micsim: playback did not complete: %w", err)
	}
	return nil
}

// publish retires any previous publication, creates one fresh track, and
// publishes it under a session-unique name. On publish failure the track is
// closed before returning.
func (p *Publisher) publish(ctx context.Context, sampleRate int) (transport.LocalTrack, error) {
	p.lifecycle.BeginSend()

	track, err := p.session.NewLocalAudioTrack(sampleRate, 1)
	if err != nil {
		p.lifecycle.Teardown()
		return nil, fmt.Errorf("micsim: create simulated track: %w", err)
	}

	name := p.lifecycle.NextTrackName()
	pub, err := p.session.PublishTrack(ctx, track, transport.PublishOptions{
		Name:   name,
		Source: transport.SourceMicrophone,
	})
	if err != nil {
		_ = track.Close()
		p.lifecycle.Teardown()
		return nil, fmt.Errorf("micsim: publish %s: %w", name, err)
	}
	p.lifecycle.Register(pub, track)

	slog.Debug("micsim: published simulated track",
		"track_name", name,
		"track_sid", pub.SID(),
		"sample_rate", sampleRate,
	)
	return track, nil
}

// sleepCtx waits for d or until ctx is cancelled.
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// sleepUntil waits until the absolute instant at, or until ctx is cancelled.
func sleepUntil(ctx context.Context, at time.Time) error {
	return sleepCtx(ctx, time.Until(at))
}
