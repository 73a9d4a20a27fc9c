package audio

import (
	"math"
	"testing"
)

func TestFloat32FromPCM16(t *testing.T) {
	data := []byte{
		0x00, 0x00, // 0
		0xff, 0x7f, // 32767
		0x01, 0x80, // -32767
	}
	got := Float32FromPCM16(data)
	want := []float32{0, 1, -1}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if math.Abs(float64(got[i]-want[i])) > 1e-4 {
			t.Errorf("sample %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestPCM16FromFloat32_RoundTrip(t *testing.T) {
	samples := []float32{0, 0.5, -0.5, 1, -1}
	back := Float32FromPCM16(PCM16FromFloat32(samples))
	for i := range samples {
		if math.Abs(float64(back[i]-samples[i])) > 1e-3 {
			t.Errorf("sample %d = %v, want %v", i, back[i], samples[i])
		}
	}
}

func TestPCM16FromFloat32_ClampsOutOfRange(t *testing.T) {
	out := PCM16FromFloat32([]float32{2, -2})
	if out[0] != 0xff || out[1] != 0x7f {
		t.Errorf("positive clamp = % x, want ff 7f", out[:2])
	}
	if out[2] != 0x00 || out[3] != 0x80 {
		t.Errorf("negative clamp = % x, want 00 80", out[2:])
	}
}

func TestEvenPrefix(t *testing.T) {
	prefix, rest := EvenPrefix([]byte{1, 2, 3, 4, 5})
	if len(prefix) != 4 || len(rest) != 1 || rest[0] != 5 {
		t.Errorf("EvenPrefix = (%v, %v)", prefix, rest)
	}

	prefix, rest = EvenPrefix([]byte{1, 2})
	if len(prefix) != 2 || len(rest) != 0 {
		t.Errorf("EvenPrefix even input = (%v, %v)", prefix, rest)
	}
}

func TestMonoToStereo(t *testing.T) {
	got := MonoToStereo([]byte{0x01, 0x02, 0x03, 0x04})
	want := []byte{0x01, 0x02, 0x01, 0x02, 0x03, 0x04, 0x03, 0x04}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("byte %d = %#x, want %#x", i, got[i], want[i])
		}
	}
}
