package audio

// Conversion helpers for callers whose source material does not match the
// session capture format. All simulated audio handed to the client must be
// mono PCM at the session sample rate; these functions get arbitrary PCM16
// into that shape.

// BytesToPCM16 converts little-endian bytes to int16 PCM samples. A trailing
// odd byte is dropped.
func BytesToPCM16(b []byte) []int16 {
	pcm := make([]int16, len(b)/2)
	for i := range pcm {
		pcm[i] = int16(b[i*2]) | int16(b[i*2+1])<<8
	}
	return pcm
}

// PCM16ToBytes converts int16 PCM samples to little-endian bytes.
func PCM16ToBytes(pcm []int16) []byte {
	b := make([]byte, len(pcm)*2)
	for i, s := range pcm {
		b[i*2] = byte(s)
		b[i*2+1] = byte(s >> 8)
	}
	return b
}

// StereoToMono averages interleaved L+R sample pairs into mono. Uses int32
// arithmetic to prevent overflow and clamps to the int16 range.
func StereoToMono(pcm []int16) []int16 {
	frames := len(pcm) / 2
	out := make([]int16, frames)
	for i := range frames {
		avg := (int32(pcm[i*2]) + int32(pcm[i*2+1])) / 2
		if avg > 32767 {
			avg = 32767
		} else if avg < -32768 {
			avg = -32768
		}
		out[i] = int16(avg)
	}
	return out
}

// ResampleMono resamples mono int16 PCM from srcRate to dstRate using linear
// interpolation. If the rates match or the input is degenerate, the input
// slice is returned unchanged.
func ResampleMono(pcm []int16, srcRate, dstRate int) []int16 {
	if srcRate <= 0 || dstRate <= 0 || srcRate == dstRate || len(pcm) < 2 {
		return pcm
	}
	dstSamples := int(int64(len(pcm)) * int64(dstRate) / int64(srcRate))
	if dstSamples == 0 {
		return nil
	}

	out := make([]int16, dstSamples)
	ratio := float64(srcRate) / float64(dstRate)
	for i := range dstSamples {
		srcPos := float64(i) * ratio
		srcIdx := int(srcPos)
		frac := srcPos - float64(srcIdx)

		s0 := pcm[srcIdx]
		s1 := s0
		if srcIdx+1 < len(pcm) {
			s1 = pcm[srcIdx+1]
		}
		out[i] = int16(float64(s0)*(1-frac) + float64(s1)*frac)
	}
	return out
}

// Conform returns a copy of clip converted to the target sample rate. Clips
// already at the target rate are returned unchanged.
func Conform(clip Clip, sampleRate int) Clip {
	if clip.SampleRate == sampleRate {
		return clip
	}
	return Clip{
		Samples:    ResampleMono(clip.Samples, clip.SampleRate, sampleRate),
		SampleRate: sampleRate,
	}
}
