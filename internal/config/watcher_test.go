package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orangeburn/Realtime-Caption/internal/config"
)

func writeConfig(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func TestWatcherInitialLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "audio:\n  chunk_ms: 500\n")

	w, err := config.NewWatcher(path, nil, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	if got := w.Current().Audio.ChunkMs; got != 500 {
		t.Errorf("chunk_ms: got %d, want 500", got)
	}
}

func TestWatcherReloadsOnChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "audio:\n  chunk_ms: 300\n")

	changed := make(chan *config.Config, 1)
	w, err := config.NewWatcher(path, func(_, cur *config.Config) {
		changed <- cur
	}, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	// Force a distinct mtime on filesystems with coarse timestamps.
	time.Sleep(20 * time.Millisecond)
	writeConfig(t, path, "audio:\n  chunk_ms: 800\n")
	now := time.Now()
	os.Chtimes(path, now, now)

	select {
	case cur := <-changed:
		if cur.Audio.ChunkMs != 800 {
			t.Errorf("reloaded chunk_ms: got %d, want 800", cur.Audio.ChunkMs)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for reload")
	}
}

func TestWatcherKeepsOldConfigOnInvalidEdit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	writeConfig(t, path, "audio:\n  chunk_ms: 300\n")

	w, err := config.NewWatcher(path, nil, config.WithInterval(10*time.Millisecond))
	if err != nil {
		t.Fatalf("new watcher: %v", err)
	}
	defer w.Stop()

	time.Sleep(20 * time.Millisecond)
	writeConfig(t, path, "audio:\n  chunk_ms: -5\n")
	now := time.Now()
	os.Chtimes(path, now, now)

	// Give the poller a few cycles to observe the bad file.
	time.Sleep(100 * time.Millisecond)

	if got := w.Current().Audio.ChunkMs; got != 300 {
		t.Errorf("chunk_ms after invalid edit: got %d, want 300", got)
	}
}
