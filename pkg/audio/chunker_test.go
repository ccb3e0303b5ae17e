package audio_test

import (
	"errors"
	"testing"
	"time"

	"github.com/voximind/agentcall/pkg/audio"
)

// makeClip creates a clip with a recognisable ramp so reassembly errors are
// visible in failures.
func makeClip(n, rate int) audio.Clip {
	samples := make([]int16, n)
	for i := range samples {
		samples[i] = int16(i % 32768)
	}
	return audio.Clip{Samples: samples, SampleRate: rate}
}

func TestSplit_EvenlyDivisible(t *testing.T) {
	// 1.0 s at 24 kHz with 20 ms chunks: exactly 50 chunks of 480 samples.
	clip := makeClip(24000, 24000)
	chunks, err := audio.Split(clip, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 50 {
		t.Fatalf("chunk count = %d, want 50", len(chunks))
	}
	for i, c := range chunks {
		if len(c.Samples) != 480 {
			t.Fatalf("chunk[%d] has %d samples, want 480", i, len(c.Samples))
		}
		if c.SampleRate != 24000 {
			t.Fatalf("chunk[%d] sample rate = %d, want 24000", i, c.SampleRate)
		}
		if want := time.Duration(i) * 20 * time.Millisecond; c.Offset != want {
			t.Fatalf("chunk[%d] offset = %v, want %v", i, c.Offset, want)
		}
	}
}

func TestSplit_ShortFinalChunk(t *testing.T) {
	// 0.35 s at 24 kHz: 8400 samples = 17 full chunks of 480 + one of 240.
	clip := makeClip(8400, 24000)
	chunks, err := audio.Split(clip, 20*time.Millisecond)
	if err != nil {
		t.Fatalf("Split: %v", err)
	}
	if len(chunks) != 18 {
		t.Fatalf("chunk count = %d, want 18", len(chunks))
	}
	for i := 0; i < 17; i++ {
		if len(chunks[i].Samples) != 480 {
			t.Fatalf("chunk[%d] has %d samples, want 480", i, len(chunks[i].Samples))
		}
	}
	if last := chunks[17]; len(last.Samples) != 240 {
		t.Fatalf("final chunk has %d samples, want 240", len(last.Samples))
	}
	if want := 10 * time.Millisecond; chunks[17].Duration() != want {
		t.Fatalf("final chunk duration = %v, want %v", chunks[17].Duration(), want)
	}
}

func TestSplit_RoundTrip(t *testing.T) {
	// Concatenating chunks in order must reproduce the original sample
	// sequence exactly, for a spread of lengths including non-multiples.
	for _, n := range []int{1, 479, 480, 481, 7919, 24000, 100000} {
		clip := makeClip(n, 24000)
		chunks, err := audio.Split(clip, 20*time.Millisecond)
		if err != nil {
			t.Fatalf("n=%d: Split: %v", n, err)
		}

		size := audio.ChunkSamples(24000, 20*time.Millisecond)
		if want := audio.ChunkCount(n, size); len(chunks) != want {
			t.Fatalf("n=%d: chunk count = %d, want %d", n, len(chunks), want)
		}

		var rejoined []int16
		for _, c := range chunks {
			rejoined = append(rejoined, c.Samples...)
		}
		if len(rejoined) != n {
			t.Fatalf("n=%d: rejoined %d samples", n, len(rejoined))
		}
		for i := range rejoined {
			if rejoined[i] != clip.Samples[i] {
				t.Fatalf("n=%d: sample %d = %d, want %d", n, i, rejoined[i], clip.Samples[i])
			}
		}
	}
}

func TestSplit_EmptyClip(t *testing.T) {
	_, err := audio.Split(audio.Clip{SampleRate: 24000}, 20*time.Millisecond)
	if !errors.Is(err, audio.ErrEmptyClip) {
		t.Fatalf("err = %v, want ErrEmptyClip", err)
	}
}

func TestSplit_InvalidParams(t *testing.T) {
	clip := makeClip(480, 24000)

	if _, err := audio.Split(audio.Clip{Samples: clip.Samples}, 20*time.Millisecond); err == nil {
		t.Error("zero sample rate accepted")
	}
	if _, err := audio.Split(clip, 0); err == nil {
		t.Error("zero chunk duration accepted")
	}
	if _, err := audio.Split(clip, -time.Millisecond); err == nil {
		t.Error("negative chunk duration accepted")
	}
}

func TestChunkSamples(t *testing.T) {
	tests := []struct {
		rate int
		dur  time.Duration
		want int
	}{
		{24000, 20 * time.Millisecond, 480},
		{48000, 20 * time.Millisecond, 960},
		{16000, 20 * time.Millisecond, 320},
		{8000, 30 * time.Millisecond, 240},
		{44100, 20 * time.Millisecond, 882},
	}
	for _, tt := range tests {
		if got := audio.ChunkSamples(tt.rate, tt.dur); got != tt.want {
			t.Errorf("ChunkSamples(%d, %v) = %d, want %d", tt.rate, tt.dur, got, tt.want)
		}
	}
}

func TestClipDuration(t *testing.T) {
	clip := makeClip(24000, 24000)
	if d := clip.Duration(); d != time.Second {
		t.Fatalf("Duration = %v, want 1s", d)
	}
	half := makeClip(12000, 24000)
	if d := half.Duration(); d != 500*time.Millisecond {
		t.Fatalf("Duration = %v, want 500ms", d)
	}
	if d := (audio.Clip{Samples: []int16{1}}).Duration(); d != 0 {
		t.Fatalf("Duration with no rate = %v, want 0", d)
	}
}
