// Package funasr provides an asr.Engine backed by a FunASR inference server.
//
// It targets the offline HTTP API exposed by funasr-wss-server style runtimes
// hosting a SenseVoice model: each segment is encoded as a 16-bit mono WAV and
// POSTed to /inference as multipart/form-data; the server replies with a JSON
// body carrying the raw tagged transcript.
//
// Usage:
//
//	eng, err := funasr.New("http://localhost:10095",
//	    funasr.WithLanguage("auto"),
//	    funasr.WithUseITN(true),
//	)
//	results, err := eng.Recognize(ctx, segment, "auto")
package funasr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/orangeburn/Realtime-Caption/pkg/audio"
	"github.com/orangeburn/Realtime-Caption/pkg/audio/wav"
	"github.com/orangeburn/Realtime-Caption/pkg/provider/asr"
)

const (
	defaultLanguage   = "auto"
	defaultSampleRate = 16000
)

// Compile-time assertion that Engine implements asr.Engine.
var _ asr.Engine = (*Engine)(nil)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithLanguage sets the default recognition language hint sent to the server
// (e.g. "auto", "zh", "en"). Defaults to "auto". A non-empty lang argument to
// Recognize overrides it per call.
func WithLanguage(lang string) Option {
	return func(e *Engine) {
		e.language = lang
	}
}

// WithSampleRate sets the sample rate in Hz used when encoding segments for
// upload. Must match the rate of the samples passed to Recognize.
// Defaults to 16000.
func WithSampleRate(rate int) Option {
	return func(e *Engine) {
		e.sampleRate = rate
	}
}

// WithUseITN enables inverse text normalisation on the server (digits,
// punctuation). Defaults to false.
func WithUseITN(useITN bool) Option {
	return func(e *Engine) {
		e.useITN = useITN
	}
}

// WithHTTPClient replaces the default HTTP client (30 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = c
	}
}

// Engine implements asr.Engine against a FunASR HTTP inference server.
// It is stateless per call and safe for concurrent use.
type Engine struct {
	serverURL  string
	language   string
	sampleRate int
	useITN     bool
	httpClient *http.Client
}

// New creates an Engine that connects to the FunASR server at serverURL
// (e.g. "http://localhost:10095"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Engine, error) {
	if serverURL == "" {
		return nil, errors.New("funasr: serverURL must not be empty")
	}
	e := &Engine{
		serverURL:  serverURL,
		language:   defaultLanguage,
		sampleRate: defaultSampleRate,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

// inferenceResponse is the JSON body returned by the server.
type inferenceResponse struct {
	Text   string `json:"text"`
	Result []struct {
		Text string `json:"text"`
	} `json:"result"`
}

// Recognize encodes the segment as WAV and submits it for batch recognition.
func (e *Engine) Recognize(ctx context.Context, samples []float32, lang string) ([]asr.Result, error) {
	if len(samples) == 0 {
		return nil, nil
	}
	if lang == "" {
		lang = e.language
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	fw, err := mw.CreateFormFile("file", "segment.wav")
	if err != nil {
		return nil, fmt.Errorf("funasr: create form file: %w", err)
	}
	img, err := wav.Encode(audio.PCM16FromFloat32(samples), wav.Format{
		SampleRate:     e.sampleRate,
		Channels:       1,
		BytesPerSample: 2,
	})
	if err != nil {
		return nil, fmt.Errorf("funasr: encode segment: %w", err)
	}
	if _, err := fw.Write(img); err != nil {
		return nil, fmt.Errorf("funasr: write wav data: %w", err)
	}
	if err := mw.WriteField("language", lang); err != nil {
		return nil, fmt.Errorf("funasr: write language field: %w", err)
	}
	if e.useITN {
		if err := mw.WriteField("use_itn", "true"); err != nil {
			return nil, fmt.Errorf("funasr: write use_itn field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("funasr: close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serverURL+"/inference", &body)
	if err != nil {
		return nil, fmt.Errorf("funasr: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("funasr: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("funasr: server returned HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("funasr: read response body: %w", err)
	}

	var ir inferenceResponse
	if err := json.Unmarshal(data, &ir); err != nil {
		return nil, fmt.Errorf("funasr: decode response: %w", err)
	}

	if len(ir.Result) > 0 {
		out := make([]asr.Result, 0, len(ir.Result))
		for _, r := range ir.Result {
			out = append(out, asr.Result{Text: r.Text})
		}
		return out, nil
	}
	if ir.Text == "" {
		return nil, nil
	}
	return []asr.Result{{Text: ir.Text}}, nil
}

