// Package openai provides a translate.Engine backed by the OpenAI chat
// completions API. It is useful for deployments with no local NLLB serving
// endpoint: translation quality is high and the model is already warm, at the
// cost of per-call latency and API spend.
package openai

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	oai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/shared"

	"github.com/orangeburn/Realtime-Caption/pkg/provider/translate"
)

const defaultModel = "gpt-4o-mini"

// Compile-time assertion that Engine implements translate.Engine.
var _ translate.Engine = (*Engine)(nil)

// config holds optional configuration for the engine.
type config struct {
	model   string
	baseURL string
	timeout time.Duration
}

// Option is a functional option for Engine.
type Option func(*config)

// WithModel selects the chat model used for translation. Defaults to
// "gpt-4o-mini".
func WithModel(model string) Option {
	return func(c *config) {
		c.model = model
	}
}

// WithBaseURL overrides the default OpenAI API base URL, e.g. to target an
// OpenAI-compatible local server.
func WithBaseURL(url string) Option {
	return func(c *config) {
		c.baseURL = url
	}
}

// WithTimeout sets a per-request HTTP timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *config) {
		c.timeout = d
	}
}

// Engine implements translate.Engine using OpenAI chat completions.
type Engine struct {
	client oai.Client
	model  string
}

// New constructs an Engine. apiKey must be non-empty.
func New(apiKey string, opts ...Option) (*Engine, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai: apiKey must not be empty")
	}

	cfg := &config{model: defaultModel}
	for _, o := range opts {
		o(cfg)
	}

	reqOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
	}
	if cfg.baseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.baseURL))
	}
	if cfg.timeout > 0 {
		reqOpts = append(reqOpts, option.WithHTTPClient(&http.Client{
			Timeout: cfg.timeout,
		}))
	}

	return &Engine{client: oai.NewClient(reqOpts...), model: cfg.model}, nil
}

// systemPrompt instructs the model to emit only the translated text so the
// response can be forwarded to the subtitle stream verbatim.
const systemPrompt = "You are a translation engine for live subtitles. " +
	"Translate the user's text from %s to %s. " +
	"Reply with the translation only: no quotes, no notes, no explanations."

// Translate renders text into tgtLang via a single chat completion.
func (e *Engine) Translate(ctx context.Context, text, srcLang, tgtLang string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}

	params := oai.ChatCompletionNewParams{
		Model: shared.ChatModel(e.model),
		Messages: []oai.ChatCompletionMessageParamUnion{
			oai.SystemMessage(fmt.Sprintf(systemPrompt, srcLang, tgtLang)),
			oai.UserMessage(text),
		},
	}

	resp, err := e.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("openai: chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty choices in response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}
