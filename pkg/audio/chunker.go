package audio

import (
	"errors"
	"fmt"
	"time"
)

// DefaultChunkDuration is the nominal chunk length for paced delivery. 20 ms
// matches the cadence of a real microphone capture pipeline, which is what
// downstream voice-activity detection is tuned for.
const DefaultChunkDuration = 20 * time.Millisecond

// ErrEmptyClip is returned by Split when the clip carries no samples.
var ErrEmptyClip = errors.New("audio: clip is empty")

// ChunkSamples returns the number of samples in one chunk of the given
// duration at the given rate: floor(rate * ms / 1000).
func ChunkSamples(sampleRate int, chunkDuration time.Duration) int {
	return int(int64(sampleRate) * chunkDuration.Milliseconds() / 1000)
}

// ChunkCount returns the number of chunks needed to cover totalSamples:
// ceil(totalSamples / chunkSamples).
func ChunkCount(totalSamples, chunkSamples int) int {
	if chunkSamples <= 0 {
		return 0
	}
	return (totalSamples + chunkSamples - 1) / chunkSamples
}

// Split slices clip into an ordered sequence of chunks of chunkDuration,
// covering the clip exactly once in temporal order. The final chunk is
// shorter than the nominal duration when the clip length is not an exact
// multiple. Chunks alias the clip's sample data; nothing is copied.
//
// Split is a pure function: it owns no resources and has no side effects.
// It rejects empty clips and degenerate parameters.
func Split(clip Clip, chunkDuration time.Duration) ([]Chunk, error) {
	if clip.Empty() {
		return nil, ErrEmptyClip
	}
	if clip.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", clip.SampleRate)
	}
	if chunkDuration <= 0 {
		return nil, fmt.Errorf("audio: invalid chunk duration %v", chunkDuration)
	}
	size := ChunkSamples(clip.SampleRate, chunkDuration)
	if size <= 0 {
		return nil, fmt.Errorf("audio: chunk duration %v too short for rate %d", chunkDuration, clip.SampleRate)
	}

	total := len(clip.Samples)
	chunks := make([]Chunk, 0, ChunkCount(total, size))
	for start := 0; start < total; start += size {
		end := start + size
		if end > total {
			end = total
		}
		chunks = append(chunks, Chunk{
			Samples:    clip.Samples[start:end],
			SampleRate: clip.SampleRate,
			Offset:     time.Duration(len(chunks)) * chunkDuration,
		})
	}
	return chunks, nil
}
