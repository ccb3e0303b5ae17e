// Package audio defines the PCM data model for agentcall: fully-buffered
// clips, the fixed-duration chunks they are split into for paced delivery,
// and streaming frames received from the remote agent.
//
// All PCM in this package is 16-bit little-endian. Clips are mono — the
// simulated microphone publishes a single-channel track, matching what a
// real capture device would produce. Conversion helpers for callers whose
// source material is stereo or at a different rate live in convert.go.
package audio

import "time"

// Clip is an immutable, fully-materialized audio buffer. It is owned by the
// caller; the send pipeline only reads it. Sub-slices handed out as chunks
// alias the Samples slice, so callers must not mutate it while a send is in
// flight.
type Clip struct {
	// Samples is mono 16-bit PCM.
	Samples []int16

	// SampleRate in Hz (e.g. 24000 for agent sessions, 48000 for WebRTC capture).
	SampleRate int
}

// Duration returns the playback length of the clip.
func (c Clip) Duration() time.Duration {
	if c.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(c.Samples)) * time.Second / time.Duration(c.SampleRate)
}

// Empty reports whether the clip carries no samples.
func (c Clip) Empty() bool {
	return len(c.Samples) == 0
}

// Chunk is an ephemeral sub-range of a Clip, nominally of fixed duration,
// produced by Split and consumed immediately by the paced publisher. The
// final chunk of a clip may be shorter than the nominal duration.
type Chunk struct {
	// Samples aliases the parent clip's sample data.
	Samples []int16

	// SampleRate is inherited from the parent clip.
	SampleRate int

	// Offset is the scheduling offset of this chunk relative to the start
	// of the utterance (i * chunk duration for the i-th chunk).
	Offset time.Duration
}

// Duration returns the playback length of the chunk.
func (k Chunk) Duration() time.Duration {
	if k.SampleRate <= 0 {
		return 0
	}
	return time.Duration(len(k.Samples)) * time.Second / time.Duration(k.SampleRate)
}

// AudioFrame is a single frame of live audio received from the remote agent.
// Frames are emitted to subscribers as they arrive and are not retained.
type AudioFrame struct {
	// Data is the frame payload. For decoded frames this is little-endian
	// 16-bit PCM; transports that skip decoding deliver the codec payload
	// as received (see the transport's documentation).
	Data []byte

	// SampleRate in Hz.
	SampleRate int

	// Channels: 1 for mono, 2 for interleaved stereo.
	Channels int

	// Timestamp marks when this frame was received, relative to stream start.
	Timestamp time.Duration
}
