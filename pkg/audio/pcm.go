// Package audio provides PCM sample conversion helpers shared by the audio
// pipeline: the upload stream arrives as little-endian 16-bit mono PCM, the
// detection and recognition stages work on float32 samples, and the recording
// stage writes 16-bit PCM back out.
package audio

import "math"

// Float32FromPCM16 decodes little-endian 16-bit PCM into float32 samples in
// [-1, 1]. data must have even length; use [EvenPrefix] to split off a
// trailing odd byte first.
func Float32FromPCM16(data []byte) []float32 {
	out := make([]float32, len(data)/2)
	for i := range out {
		s := int16(uint16(data[i*2]) | uint16(data[i*2+1])<<8)
		out[i] = float32(s) / 32767.0
	}
	return out
}

// PCM16FromFloat32 encodes float32 samples in [-1, 1] as little-endian 16-bit
// PCM. Values outside the range are clamped.
func PCM16FromFloat32(samples []float32) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		v := int16(math.Round(float64(s) * 32767))
		if s >= 1 {
			v = math.MaxInt16
		} else if s <= -1 {
			v = math.MinInt16
		}
		out[i*2] = byte(v)
		out[i*2+1] = byte(uint16(v) >> 8)
	}
	return out
}

// EvenPrefix splits data into the longest even-length prefix and the
// remainder. A stream of 16-bit samples can be cut mid-sample at any frame
// boundary; the remainder carries over to the next frame.
func EvenPrefix(data []byte) (prefix, rest []byte) {
	n := len(data) &^ 1
	return data[:n], data[n:]
}

// MonoToStereo duplicates each 16-bit mono sample into two channels.
func MonoToStereo(pcm []byte) []byte {
	out := make([]byte, 0, len(pcm)*2)
	for i := 0; i+1 < len(pcm); i += 2 {
		out = append(out, pcm[i], pcm[i+1], pcm[i], pcm[i+1])
	}
	return out
}
