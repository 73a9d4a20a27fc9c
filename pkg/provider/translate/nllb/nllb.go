// Package nllb provides a translate.Engine backed by an NLLB-200 serving
// endpoint (a CTranslate2 model behind a small HTTP wrapper such as
// nllb-serve). Requests and responses are JSON.
package nllb

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/orangeburn/Realtime-Caption/pkg/provider/translate"
)

// Compile-time assertion that Engine implements translate.Engine.
var _ translate.Engine = (*Engine)(nil)

// Option is a functional option for configuring an Engine.
type Option func(*Engine)

// WithHTTPClient replaces the default HTTP client (30 s timeout).
func WithHTTPClient(c *http.Client) Option {
	return func(e *Engine) {
		e.httpClient = c
	}
}

// Engine implements translate.Engine against an NLLB HTTP serving endpoint.
// It is stateless per call and safe for concurrent use.
type Engine struct {
	serverURL  string
	httpClient *http.Client
}

// New creates an Engine for the serving endpoint at serverURL (e.g.
// "http://localhost:6060"). serverURL must be non-empty.
func New(serverURL string, opts ...Option) (*Engine, error) {
	if serverURL == "" {
		return nil, errors.New("nllb: serverURL must not be empty")
	}
	e := &Engine{
		serverURL:  serverURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, o := range opts {
		o(e)
	}
	return e, nil
}

type translateRequest struct {
	Text   string `json:"text"`
	Source string `json:"source"`
	Target string `json:"target"`
}

type translateResponse struct {
	TranslatedText string `json:"translated_text"`
	Result         string `json:"result"`
}

// Translate POSTs the text to /translate and returns the translated string.
func (e *Engine) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	body, err := json.Marshal(translateRequest{Text: text, Source: srcLang, Target: tgtLang})
	if err != nil {
		return "", fmt.Errorf("nllb: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.serverURL+"/translate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("nllb: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("nllb: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("nllb: server returned HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("nllb: read response body: %w", err)
	}

	var tr translateResponse
	if err := json.Unmarshal(data, &tr); err != nil {
		return "", fmt.Errorf("nllb: decode response: %w", err)
	}
	if tr.TranslatedText != "" {
		return tr.TranslatedText, nil
	}
	return tr.Result, nil
}
