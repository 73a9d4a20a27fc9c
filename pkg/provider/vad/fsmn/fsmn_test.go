package fsmn_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/orangeburn/Realtime-Caption/pkg/provider/vad"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/vad/fsmn"
)

func TestDetectSubmitsPCMAndParsesBoundaries(t *testing.T) {
	var gotSession, gotRate string
	var gotPCMLen int

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/vad/detect" {
			t.Errorf("path: got %q, want /vad/detect", r.URL.Path)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		gotSession = r.FormValue("session_id")
		gotRate = r.FormValue("sample_rate")
		f, _, err := r.FormFile("audio")
		if err != nil {
			t.Fatalf("form file: %v", err)
		}
		defer f.Close()
		buf := make([]byte, 1<<16)
		n, _ := f.Read(buf)
		gotPCMLen = n
		json.NewEncoder(w).Encode(map[string]any{
			"segments": [][2]float64{{100, -1}, {-1, 900}},
		})
	}))
	defer srv.Close()

	eng, err := fsmn.New(srv.URL)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	stream, err := eng.NewStream(vad.Config{SampleRate: 16000, WindowMs: 300})
	if err != nil {
		t.Fatalf("new stream: %v", err)
	}

	updates, err := stream.Detect(make([]float32, 4800))
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	want := []vad.Boundary{{BeginMs: 100, EndMs: -1}, {BeginMs: -1, EndMs: 900}}
	if len(updates) != 2 || updates[0] != want[0] || updates[1] != want[1] {
		t.Errorf("updates: got %+v, want %+v", updates, want)
	}
	if gotSession == "" {
		t.Error("session_id field missing")
	}
	if gotRate != "16000" {
		t.Errorf("sample_rate field: got %q, want 16000", gotRate)
	}
	if gotPCMLen != 4800*2 {
		t.Errorf("pcm upload size: got %d, want %d", gotPCMLen, 4800*2)
	}
}

func TestStreamsUseDistinctSessions(t *testing.T) {
	sessions := map[string]bool{}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseMultipartForm(1 << 20)
		sessions[r.FormValue("session_id")] = true
		json.NewEncoder(w).Encode(map[string]any{"segments": [][2]float64{}})
	}))
	defer srv.Close()

	eng, _ := fsmn.New(srv.URL)
	for range 2 {
		stream, err := eng.NewStream(vad.Config{SampleRate: 16000, WindowMs: 300})
		if err != nil {
			t.Fatalf("new stream: %v", err)
		}
		if _, err := stream.Detect(make([]float32, 4800)); err != nil {
			t.Fatalf("detect: %v", err)
		}
	}
	if len(sessions) != 2 {
		t.Errorf("distinct sessions: got %d, want 2", len(sessions))
	}
}

func TestDetectEmptyWindowSkipsRequest(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Error("server should not be called for an empty window")
	}))
	defer srv.Close()

	eng, _ := fsmn.New(srv.URL)
	stream, _ := eng.NewStream(vad.Config{SampleRate: 16000, WindowMs: 300})
	updates, err := stream.Detect(nil)
	if err != nil {
		t.Fatalf("detect: %v", err)
	}
	if updates != nil {
		t.Errorf("updates: got %+v, want nil", updates)
	}
}

func TestDetectServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	eng, _ := fsmn.New(srv.URL)
	stream, _ := eng.NewStream(vad.Config{SampleRate: 16000, WindowMs: 300})
	if _, err := stream.Detect(make([]float32, 160)); err == nil {
		t.Error("expected error for HTTP 500, got nil")
	}
}

func TestDetectAfterCloseFails(t *testing.T) {
	eng, _ := fsmn.New("http://localhost:1")
	stream, _ := eng.NewStream(vad.Config{SampleRate: 16000, WindowMs: 300})
	if err := stream.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := stream.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if _, err := stream.Detect(make([]float32, 160)); err == nil {
		t.Error("expected error for detect on closed stream, got nil")
	}
}

func TestNewStreamValidatesConfig(t *testing.T) {
	eng, _ := fsmn.New("http://localhost:1")
	if _, err := eng.NewStream(vad.Config{SampleRate: 0, WindowMs: 300}); err == nil {
		t.Error("expected error for zero sample rate")
	}
	if _, err := eng.NewStream(vad.Config{SampleRate: 16000, WindowMs: 0}); err == nil {
		t.Error("expected error for zero window duration")
	}
}

func TestNewRequiresServerURL(t *testing.T) {
	if _, err := fsmn.New(""); err == nil {
		t.Error("expected error for empty serverURL, got nil")
	}
}
