package micsim

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/voximind/agentcall/pkg/audio"
	"github.com/voximind/agentcall/pkg/transport"
	"github.com/voximind/agentcall/pkg/transport/mock"
)

// Fast timings so tests complete quickly while still exercising the pacing
// logic. 20 ms chunks at 8 kHz are 160 samples each.
var testCfg = Config{
	SettleDelay:   30 * time.Millisecond,
	ChunkDuration: 20 * time.Millisecond,
	TailMargin:    20 * time.Millisecond,
}

func publishOpts(name string) transport.PublishOptions {
	return transport.PublishOptions{Name: name, Source: transport.SourceMicrophone}
}

func newTestPublisher(sess *mock.Session) (*Publisher, *Lifecycle) {
	lc := NewLifecycle(sess, nil)
	return NewPublisher(sess, lc, nil, testCfg), lc
}

// rampClip builds a clip whose samples encode their own index, so order and
// completeness of delivery are both checkable.
func rampClip(n, rate int) audio.Clip {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(i % 32768)
	}
	return audio.Clip{Samples: samples, SampleRate: rate}
}

func TestSendChunked_DeliversClipExactly(t *testing.T) {
	sess := mock.NewSession()
	p, lc := newTestPublisher(sess)

	clip := rampClip(800, 8000) // 100 ms, 5 chunks of 160
	if err := p.SendChunked(t.Context(), clip); err != nil {
		t.Fatalf("SendChunked: %v", err)
	}

	tracks := sess.Tracks()
	if len(tracks) != 1 {
		t.Fatalf("created %d tracks, want exactly 1 for the whole operation", len(tracks))
	}
	writes := tracks[0].Writes()
	if len(writes) != 5 {
		t.Fatalf("wrote %d chunks, want 5", len(writes))
	}
	got := tracks[0].WrittenSamples()
	if len(got) != len(clip.Samples) {
		t.Fatalf("delivered %d samples, want %d", len(got), len(clip.Samples))
	}
	for i := range got {
		if got[i] != clip.Samples[i] {
			t.Fatalf("sample %d = %d, want %d", i, got[i], clip.Samples[i])
		}
	}

	if lc.Active() {
		t.Fatal("publication still active after completion")
	}
	if got := sess.ActivePublications(); got != 0 {
		t.Fatalf("%d publications left on session, want 0", got)
	}
	if got := tracks[0].CloseCount(); got != 1 {
		t.Fatalf("track closed %d times, want 1", got)
	}
}

func TestSendChunked_ShortFinalChunk(t *testing.T) {
	sess := mock.NewSession()
	p, _ := newTestPublisher(sess)

	// 110 ms at 8 kHz: 5 full chunks of 160 plus a final one of 80.
	clip := rampClip(880, 8000)
	if err := p.SendChunked(t.Context(), clip); err != nil {
		t.Fatalf("SendChunked: %v", err)
	}

	writes := sess.Tracks()[0].Writes()
	if len(writes) != 6 {
		t.Fatalf("wrote %d chunks, want 6", len(writes))
	}
	if n := len(writes[5]); n != 80 {
		t.Fatalf("final chunk has %d samples, want 80", n)
	}
}

func TestSendChunked_ResolvesNoEarlierThanClipPlayback(t *testing.T) {
	sess := mock.NewSession()
	p, _ := newTestPublisher(sess)

	clip := rampClip(800, 8000) // 100 ms

	start := time.Now()
	if err := p.SendChunked(t.Context(), clip); err != nil {
		t.Fatalf("SendChunked: %v", err)
	}
	elapsed := time.Since(start)

	min := testCfg.SettleDelay + clip.Duration() + testCfg.TailMargin
	if elapsed < min {
		t.Fatalf("send resolved after %v, want at least %v", elapsed, min)
	}
	// Drift bound: pacing uses absolute offsets, so even with scheduler
	// slack the overshoot should stay small.
	if elapsed > min+150*time.Millisecond {
		t.Fatalf("send took %v, want close to %v", elapsed, min)
	}
}

func TestSendChunked_RetiresPreviousBeforePublishing(t *testing.T) {
	sess := mock.NewSession()
	p, _ := newTestPublisher(sess)

	clip := rampClip(160, 8000)
	if err := p.SendChunked(t.Context(), clip); err != nil {
		t.Fatalf("first send: %v", err)
	}
	if err := p.SendChunked(t.Context(), clip); err != nil {
		t.Fatalf("second send: %v", err)
	}

	pubs := sess.Publications()
	if len(pubs) != 2 {
		t.Fatalf("%d publications, want 2", len(pubs))
	}
	if pubs[0].TrackName == pubs[1].TrackName {
		t.Fatalf("track names collide: %q", pubs[0].TrackName)
	}
	if pubs[0].TrackName != "sim-mic-1" || pubs[1].TrackName != "sim-mic-2" {
		t.Fatalf("track names = %q, %q; want sim-mic-1, sim-mic-2", pubs[0].TrackName, pubs[1].TrackName)
	}

	// The first publication must be fully retired before the second publish
	// reaches the session.
	ops := sess.Ops()
	firstUnpublish, secondPublish := -1, -1
	for i, op := range ops {
		if op == "unpublish:"+pubs[0].TrackSID && firstUnpublish == -1 {
			firstUnpublish = i
		}
		if op == "publish:sim-mic-2" {
			secondPublish = i
		}
	}
	if firstUnpublish == -1 || secondPublish == -1 {
		t.Fatalf("expected ops missing from log: %v", ops)
	}
	if firstUnpublish > secondPublish {
		t.Fatalf("second publish (op %d) preceded retirement of first track (op %d): %v",
			secondPublish, firstUnpublish, ops)
	}
	if got := sess.ActivePublications(); got != 0 {
		t.Fatalf("%d publications left active, want 0", got)
	}
}

func TestSendChunked_EmptyClip(t *testing.T) {
	sess := mock.NewSession()
	p, _ := newTestPublisher(sess)

	err := p.SendChunked(t.Context(), audio.Clip{SampleRate: 8000})
	if !errors.Is(err, audio.ErrEmptyClip) {
		t.Fatalf("err = %v, want ErrEmptyClip", err)
	}
	if ops := sess.Ops(); len(ops) != 0 {
		t.Fatalf("empty clip touched the session: %v", ops)
	}
}

func TestSendChunked_PublishFailureTearsDown(t *testing.T) {
	sess := mock.NewSession()
	sess.PublishError = errors.New("permission denied")
	p, lc := newTestPublisher(sess)

	err := p.SendChunked(t.Context(), rampClip(160, 8000))
	if err == nil || !strings.Contains(err.Error(), "publish") {
		t.Fatalf("err = %v, want publish failure", err)
	}
	if lc.Active() {
		t.Fatal("publication registered despite publish failure")
	}
	if got := sess.Tracks()[0].CloseCount(); got != 1 {
		t.Fatalf("orphaned track closed %d times, want 1", got)
	}
}

func TestSendChunked_WriteFailureTearsDown(t *testing.T) {
	sess := mock.NewSession()
	sess.TrackWriteError = errors.New("track closed")
	p, lc := newTestPublisher(sess)

	err := p.SendChunked(t.Context(), rampClip(800, 8000))
	if err == nil || !strings.Contains(err.Error(), "write chunk") {
		t.Fatalf("err = %v, want write failure", err)
	}
	if lc.Active() {
		t.Fatal("publication still active after failed send")
	}
	if got := sess.ActivePublications(); got != 0 {
		t.Fatalf("%d publications left on session, want 0", got)
	}
	if got := sess.Tracks()[0].CloseCount(); got != 1 {
		t.Fatalf("track closed %d times, want 1", got)
	}
}

func TestSendChunked_CancellationTearsDown(t *testing.T) {
	sess := mock.NewSession()
	p, lc := newTestPublisher(sess)

	ctx, cancel := context.WithTimeout(t.Context(), 40*time.Millisecond)
	defer cancel()

	// 1 s clip, cancelled mid-settle or during the first chunks.
	err := p.SendChunked(ctx, rampClip(8000, 8000))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want deadline exceeded", err)
	}
	if lc.Active() {
		t.Fatal("publication still active after cancellation")
	}
	if got := sess.ActivePublications(); got != 0 {
		t.Fatalf("%d publications left on session, want 0", got)
	}
}

func TestSendWhole_SingleWrite(t *testing.T) {
	sess := mock.NewSession()
	p, lc := newTestPublisher(sess)

	clip := rampClip(800, 8000) // 100 ms

	start := time.Now()
	if err := p.SendWhole(t.Context(), clip); err != nil {
		t.Fatalf("SendWhole: %v", err)
	}
	elapsed := time.Since(start)

	writes := sess.Tracks()[0].Writes()
	if len(writes) != 1 {
		t.Fatalf("wrote %d batches, want 1", len(writes))
	}
	if len(writes[0]) != len(clip.Samples) {
		t.Fatalf("wrote %d samples, want %d", len(writes[0]), len(clip.Samples))
	}

	min := testCfg.SettleDelay + clip.Duration() + testCfg.TailMargin
	if elapsed < min {
		t.Fatalf("send resolved after %v, want at least %v", elapsed, min)
	}
	if lc.Active() {
		t.Fatal("publication still active after completion")
	}
}

func TestSendWhole_TimeoutStillTearsDown(t *testing.T) {
	sess := mock.NewSession()
	p, lc := newTestPublisher(sess)

	// Parent context expires while waiting out playback of a 400 ms clip.
	ctx, cancel := context.WithTimeout(t.Context(), 120*time.Millisecond)
	defer cancel()

	err := p.SendWhole(ctx, rampClip(3200, 8000))
	if err == nil || !strings.Contains(err.Error(), "did not complete") {
		t.Fatalf("err = %v, want playback timeout", err)
	}
	if lc.Active() {
		t.Fatal("publication still active after timeout")
	}
	if got := sess.ActivePublications(); got != 0 {
		t.Fatalf("%d publications left on session, want 0", got)
	}
}
