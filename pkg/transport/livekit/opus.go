package livekit

import (
	"fmt"

	"layeh.com/gopus"

	"github.com/voximind/agentcall/pkg/audio"
)

// LiveKit delivers WebRTC audio as 48 kHz Opus at 20 ms frame size.
const (
	opusClockRate   = 48000
	opusFrameSizeMs = 20
	// opusFrameSize is the number of samples per channel per 20 ms frame.
	opusFrameSize = opusClockRate * opusFrameSizeMs / 1000 // 960
)

// opusDecoder wraps a gopus Opus decoder for one remote track. Each track
// gets its own decoder so decoder state stays consistent across consecutive
// frames.
type opusDecoder struct {
	dec      *gopus.Decoder
	channels int
}

// newOpusDecoder creates a decoder for the given channel count (1 or 2).
func newOpusDecoder(channels int) (*opusDecoder, error) {
	dec, err := gopus.NewDecoder(opusClockRate, channels)
	if err != nil {
		return nil, fmt.Errorf("livekit: create opus decoder: %w", err)
	}
	return &opusDecoder{dec: dec, channels: channels}, nil
}

// decode decodes an Opus packet into interleaved PCM int16 samples and
// returns the result as little-endian bytes.
func (d *opusDecoder) decode(pkt []byte) ([]byte, error) {
	pcm, err := d.dec.Decode(pkt, opusFrameSize, d.channels == 2)
	if err != nil {
		return nil, fmt.Errorf("livekit: opus decode: %w", err)
	}
	return audio.PCM16ToBytes(pcm), nil
}
