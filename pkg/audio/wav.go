package audio

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/youpy/go-wav"
)

// EncodeWAV encodes a clip as a canonical mono 16-bit PCM WAV file.
func EncodeWAV(clip Clip) ([]byte, error) {
	if clip.Empty() {
		return nil, ErrEmptyClip
	}
	if clip.SampleRate <= 0 {
		return nil, fmt.Errorf("audio: invalid sample rate %d", clip.SampleRate)
	}

	var buf bytes.Buffer
	w := wav.NewWriter(&buf, uint32(len(clip.Samples)), 1, uint32(clip.SampleRate), 16)
	if _, err := w.Write(PCM16ToBytes(clip.Samples)); err != nil {
		return nil, fmt.Errorf("audio: write wav data: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeWAV decodes 16-bit PCM WAV data into a clip. Stereo content is
// downmixed to mono. Metadata chunks between "fmt " and "data" are skipped.
func DecodeWAV(data []byte) (Clip, error) {
	r := wav.NewReader(bytes.NewReader(data))

	format, err := r.Format()
	if err != nil {
		return Clip{}, fmt.Errorf("audio: read wav header: %w", err)
	}
	if format.AudioFormat != wav.AudioFormatPCM {
		return Clip{}, fmt.Errorf("audio: unsupported wav format %d (want PCM)", format.AudioFormat)
	}
	if format.BitsPerSample != 16 {
		return Clip{}, fmt.Errorf("audio: unsupported bit depth %d (want 16)", format.BitsPerSample)
	}
	if format.NumChannels != 1 && format.NumChannels != 2 {
		return Clip{}, fmt.Errorf("audio: unsupported channel count %d", format.NumChannels)
	}

	// The reader streams the data chunk, so a corrupt header claiming more
	// data than the file holds yields only the bytes actually present.
	raw, err := io.ReadAll(r)
	if err != nil {
		return Clip{}, fmt.Errorf("audio: read wav samples: %w", err)
	}

	samples := BytesToPCM16(raw)
	if format.NumChannels == 2 {
		samples = StereoToMono(samples)
	}
	if len(samples) == 0 {
		return Clip{}, ErrEmptyClip
	}
	return Clip{Samples: samples, SampleRate: int(format.SampleRate)}, nil
}

// LoadWAV reads and decodes the WAV file at path.
func LoadWAV(path string) (Clip, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Clip{}, fmt.Errorf("audio: read %q: %w", path, err)
	}
	return DecodeWAV(data)
}
