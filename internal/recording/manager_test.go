package recording_test

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orangeburn/Realtime-Caption/internal/recording"
	"github.com/orangeburn/Realtime-Caption/pkg/audio/wav"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func newManager(t *testing.T) (*recording.Manager, *fakeClock) {
	t.Helper()
	clock := &fakeClock{t: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	m := recording.NewManager(recording.Config{
		Dir:    t.TempDir(),
		Format: wav.Format{SampleRate: 16000, Channels: 1, BytesPerSample: 2},
	}, recording.WithClock(clock.now))
	return m, clock
}

// halfSecondChunk is 0.5 s of mono 16 kHz int16 audio.
func halfSecondChunk(value int16) []byte {
	b := make([]byte, 2*8000)
	for i := 0; i < len(b); i += 2 {
		binary.LittleEndian.PutUint16(b[i:], uint16(value))
	}
	return b
}

func TestStart_GeneratesSessionIDAndFilename(t *testing.T) {
	m, _ := newManager(t)

	info, err := m.Start(context.Background(), "", "")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if info.SessionID == "" {
		t.Error("generated session ID is empty")
	}
	if info.Filename != "recording_"+info.SessionID+".wav" {
		t.Errorf("filename = %q, want default derived from session ID", info.Filename)
	}
	if !m.Enabled() {
		t.Error("manager not enabled after start")
	}
}

func TestStart_RejectsDuplicate(t *testing.T) {
	m, _ := newManager(t)

	if _, err := m.Start(context.Background(), "s1", ""); err != nil {
		t.Fatalf("start: %v", err)
	}
	if _, err := m.Start(context.Background(), "s1", ""); !errors.Is(err, recording.ErrAlreadyExists) {
		t.Errorf("second start error = %v, want ErrAlreadyExists", err)
	}
}

func TestPauseResume_AccumulatesExactPause(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()

	m.Start(ctx, "s1", "s1.wav")
	m.Append(halfSecondChunk(1))

	if _, err := m.Pause(ctx, "s1"); err != nil {
		t.Fatalf("pause: %v", err)
	}
	if m.Enabled() {
		t.Error("manager still enabled while only session is paused")
	}

	// Double pause is rejected.
	if _, err := m.Pause(ctx, "s1"); !errors.Is(err, recording.ErrAlreadyPaused) {
		t.Errorf("double pause error = %v, want ErrAlreadyPaused", err)
	}

	clock.advance(2 * time.Second)
	if _, err := m.Resume(ctx, "s1"); err != nil {
		t.Fatalf("resume: %v", err)
	}

	clock.advance(time.Second)
	res, err := m.Stop(ctx, "s1")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res.TotalPaused != 2*time.Second {
		t.Errorf("total paused = %v, want 2s", res.TotalPaused)
	}
}

func TestResume_RejectsWhenNotPaused(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.Start(ctx, "s1", "")
	if _, err := m.Resume(ctx, "s1"); !errors.Is(err, recording.ErrNotPaused) {
		t.Errorf("resume error = %v, want ErrNotPaused", err)
	}
}

func TestStop_WhilePausedFoldsTrailingPauseOnce(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()

	m.Start(ctx, "s1", "s1.wav")
	m.Append(halfSecondChunk(1))
	clock.advance(time.Second)
	m.Pause(ctx, "s1")
	clock.advance(3 * time.Second)

	res, err := m.Stop(ctx, "s1")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res.TotalPaused != 3*time.Second {
		t.Errorf("total paused = %v, want 3s (trailing pause folded once)", res.TotalPaused)
	}
	if res.Duration != 4*time.Second {
		t.Errorf("duration = %v, want 4s wall clock", res.Duration)
	}
}

func TestStop_PauseResumeScenario(t *testing.T) {
	// start → three 0.5s chunks → pause → 2s → resume → one chunk → stop.
	m, clock := newManager(t)
	ctx := context.Background()

	m.Start(ctx, "s1", "session.wav")
	for range 3 {
		m.Append(halfSecondChunk(2))
		clock.advance(500 * time.Millisecond)
	}
	m.Pause(ctx, "s1")
	clock.advance(2 * time.Second)
	m.Resume(ctx, "s1")
	m.Append(halfSecondChunk(2))
	clock.advance(500 * time.Millisecond)

	res, err := m.Stop(ctx, "s1")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	if res.TotalPaused != 2*time.Second {
		t.Errorf("total paused = %v, want 2s", res.TotalPaused)
	}
	if res.Duration != 4*time.Second {
		t.Errorf("wall duration = %v, want 4s", res.Duration)
	}

	// Artifact holds 2 s of audio: 4 chunks × 8000 samples.
	wantPCM := 4 * 2 * 8000
	if got := res.FileSize; got != 44+wantPCM {
		t.Errorf("file size = %d, want %d", got, 44+wantPCM)
	}

	data, err := os.ReadFile(res.Path)
	if err != nil {
		t.Fatalf("read artifact: %v", err)
	}
	if len(data) != res.FileSize {
		t.Errorf("on-disk size = %d, want %d", len(data), res.FileSize)
	}
	if string(data[:4]) != "RIFF" || string(data[8:12]) != "WAVE" {
		t.Error("artifact is not a RIFF/WAVE file")
	}
}

func TestStop_PausedSessionReceivesNoAudio(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.Start(ctx, "s1", "")
	m.Pause(ctx, "s1")
	m.Append(halfSecondChunk(1)) // must be dropped

	_, err := m.Stop(ctx, "s1")
	if !errors.Is(err, recording.ErrNoAudio) {
		t.Errorf("stop error = %v, want ErrNoAudio (paused session buffered audio)", err)
	}
}

func TestStop_RemovesSession(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.Start(ctx, "s1", "")
	m.Append(halfSecondChunk(1))
	if _, err := m.Stop(ctx, "s1"); err != nil {
		t.Fatalf("stop: %v", err)
	}

	if _, err := m.Stop(ctx, "s1"); !errors.Is(err, recording.ErrNotFound) {
		t.Errorf("second stop error = %v, want ErrNotFound", err)
	}
	if m.Enabled() {
		t.Error("manager enabled after sole session stopped")
	}
}

func TestStop_FallsBackToLatestSession(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()

	m.Start(ctx, "old", "")
	m.Append(halfSecondChunk(1))
	clock.advance(time.Second)
	m.Start(ctx, "new", "")
	m.Append(halfSecondChunk(1))

	res, err := m.Stop(ctx, "")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if res.SessionID != "new" {
		t.Errorf("stopped session = %q, want most recently started %q", res.SessionID, "new")
	}
}

func TestRelativeTime(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()

	if _, _, ok := m.RelativeTime(clock.now()); ok {
		t.Error("relative time reported with no sessions")
	}

	start := clock.now()
	m.Start(ctx, "s1", "")
	clock.advance(time.Second)
	m.Pause(ctx, "s1")
	clock.advance(2 * time.Second)

	// Suppressed while paused.
	if _, _, ok := m.RelativeTime(clock.now()); ok {
		t.Error("relative time reported while paused")
	}

	m.Resume(ctx, "s1")
	clock.advance(time.Second)

	rel, gotStart, ok := m.RelativeTime(clock.now())
	if !ok {
		t.Fatal("relative time not reported for active session")
	}
	// 4s wall elapsed minus 2s paused.
	if rel != 2*time.Second {
		t.Errorf("relative time = %v, want 2s", rel)
	}
	if !gotStart.Equal(start) {
		t.Errorf("start = %v, want %v", gotStart, start)
	}
}

func TestRelativeTime_FlooredAtZero(t *testing.T) {
	m, clock := newManager(t)
	ctx := context.Background()

	m.Start(ctx, "s1", "")
	rel, _, ok := m.RelativeTime(clock.now().Add(-time.Second))
	if !ok {
		t.Fatal("relative time not reported")
	}
	if rel != 0 {
		t.Errorf("relative time = %v, want 0 floor", rel)
	}
}

func TestGetStatus(t *testing.T) {
	m, _ := newManager(t)
	ctx := context.Background()

	m.Start(ctx, "s1", "")
	m.Append(halfSecondChunk(1))
	m.Append(halfSecondChunk(1))

	st := m.GetStatus()
	if !st.Enabled || st.ActiveSessions != 1 || st.BufferedChunks != 2 {
		t.Errorf("status = %+v, want enabled with 1 active session, 2 chunks", st)
	}

	m.Pause(ctx, "s1")
	st = m.GetStatus()
	if st.Enabled || st.ActiveSessions != 0 {
		t.Errorf("status after pause = %+v, want disabled, 0 active", st)
	}
	if st.BufferedChunks != 2 {
		t.Errorf("buffered chunks after pause = %d, want 2 (buffer retained)", st.BufferedChunks)
	}
}

func TestStereoArtifact(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	dir := t.TempDir()
	m := recording.NewManager(recording.Config{
		Dir:    dir,
		Format: wav.Format{SampleRate: 16000, Channels: 1, BytesPerSample: 2},
		Stereo: true,
	}, recording.WithClock(clock.now))
	ctx := context.Background()

	m.Start(ctx, "s1", "stereo.wav")
	m.Append([]byte{0x01, 0x02, 0x03, 0x04}) // two mono samples

	res, err := m.Stop(ctx, "s1")
	if err != nil {
		t.Fatalf("stop: %v", err)
	}

	// Each mono sample duplicated across two channels.
	if res.FileSize != 44+8 {
		t.Fatalf("file size = %d, want %d", res.FileSize, 44+8)
	}
	pcm := res.Payload[44:]
	want := []byte{0x01, 0x02, 0x01, 0x02, 0x03, 0x04, 0x03, 0x04}
	for i := range want {
		if pcm[i] != want[i] {
			t.Fatalf("stereo pcm = % x, want % x", pcm, want)
		}
	}

	// Header declares two channels.
	if ch := binary.LittleEndian.Uint16(res.Payload[22:24]); ch != 2 {
		t.Errorf("header channels = %d, want 2", ch)
	}

	if _, err := os.Stat(filepath.Join(dir, "stereo.wav")); err != nil {
		t.Errorf("artifact not on disk: %v", err)
	}
}
