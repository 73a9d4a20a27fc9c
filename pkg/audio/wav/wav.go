// Package wav encodes raw PCM audio into an uncompressed RIFF/WAVE container.
//
// The header layout matches the canonical 44-byte PCM WAV header: the RIFF
// chunk descriptor, a 16-byte "fmt " subchunk with format tag 1 (PCM), and the
// "data" subchunk. Multi-byte fields are little-endian.
package wav

import (
	"encoding/binary"
	"fmt"
	"os"
	"time"
)

// headerSize is the fixed size of a canonical PCM WAV header in bytes.
const headerSize = 44

// Format describes the PCM layout of the payload.
type Format struct {
	// SampleRate in Hz (e.g. 16000, 44100).
	SampleRate int

	// Channels is the channel count: 1 = mono, 2 = stereo.
	Channels int

	// BytesPerSample is the sample width in bytes per channel (2 for 16-bit).
	BytesPerSample int
}

// Validate reports whether f describes an encodable format.
func (f Format) Validate() error {
	if f.SampleRate <= 0 {
		return fmt.Errorf("wav: sample rate must be positive, got %d", f.SampleRate)
	}
	if f.Channels <= 0 {
		return fmt.Errorf("wav: channel count must be positive, got %d", f.Channels)
	}
	if f.BytesPerSample <= 0 {
		return fmt.Errorf("wav: bytes per sample must be positive, got %d", f.BytesPerSample)
	}
	return nil
}

// ByteRate returns sample_rate * channels * bytes_per_sample.
func (f Format) ByteRate() int {
	return f.SampleRate * f.Channels * f.BytesPerSample
}

// BlockAlign returns channels * bytes_per_sample.
func (f Format) BlockAlign() int {
	return f.Channels * f.BytesPerSample
}

// Duration returns the playback duration of dataLen bytes of PCM in format f.
func (f Format) Duration(dataLen int) time.Duration {
	br := f.ByteRate()
	if br == 0 {
		return 0
	}
	return time.Duration(float64(dataLen) / float64(br) * float64(time.Second))
}

// Header returns the 44-byte WAV header for a payload of dataLen bytes.
func Header(dataLen int, f Format) []byte {
	h := make([]byte, 0, headerSize)
	h = append(h, 'R', 'I', 'F', 'F')
	h = binary.LittleEndian.AppendUint32(h, uint32(36+dataLen))
	h = append(h, 'W', 'A', 'V', 'E')
	h = append(h, 'f', 'm', 't', ' ')
	h = binary.LittleEndian.AppendUint32(h, 16) // fmt subchunk size
	h = binary.LittleEndian.AppendUint16(h, 1)  // format tag: PCM
	h = binary.LittleEndian.AppendUint16(h, uint16(f.Channels))
	h = binary.LittleEndian.AppendUint32(h, uint32(f.SampleRate))
	h = binary.LittleEndian.AppendUint32(h, uint32(f.ByteRate()))
	h = binary.LittleEndian.AppendUint16(h, uint16(f.BlockAlign()))
	h = binary.LittleEndian.AppendUint16(h, uint16(f.BytesPerSample*8))
	h = append(h, 'd', 'a', 't', 'a')
	h = binary.LittleEndian.AppendUint32(h, uint32(dataLen))
	return h
}

// Encode returns a complete WAV file image: header followed by pcm.
func Encode(pcm []byte, f Format) ([]byte, error) {
	if err := f.Validate(); err != nil {
		return nil, err
	}
	out := make([]byte, 0, headerSize+len(pcm))
	out = append(out, Header(len(pcm), f)...)
	out = append(out, pcm...)
	return out, nil
}

// WriteFile encodes pcm and writes the artifact to path with 0644 permissions.
func WriteFile(path string, pcm []byte, f Format) error {
	data, err := Encode(pcm, f)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("wav: write %q: %w", path, err)
	}
	return nil
}
