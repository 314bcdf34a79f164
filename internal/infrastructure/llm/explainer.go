// Package llm generates natural-language readings with an OpenAI-compatible
// chat completion API.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/astroask/backend/internal/core/domain/astrology"
	"github.com/astroask/backend/internal/core/ports"
	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Timeout bounds each completion request, retries included.
	Timeout    time.Duration
	MaxRetries int
	// Placeholder is returned when the model answers without text.
	Placeholder string
}

// Explainer implements ports.ExplanationGateway.
type Explainer struct {
	client      openai.Client
	model       string
	placeholder string
	calls       *prometheus.CounterVec
	logger      *logrus.Logger
}

type Option func(*Explainer)

// WithCallCounter records completion outcomes (labels: upstream, kind, result).
func WithCallCounter(calls *prometheus.CounterVec) Option {
	return func(e *Explainer) { e.calls = calls }
}

func NewExplainer(cfg Config, httpClient *http.Client, logger *logrus.Logger, opts ...Option) *Explainer {
	reqOpts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(cfg.MaxRetries),
	}
	if cfg.BaseURL != "" {
		reqOpts = append(reqOpts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.Timeout > 0 {
		reqOpts = append(reqOpts, option.WithRequestTimeout(cfg.Timeout))
	}
	if httpClient != nil {
		reqOpts = append(reqOpts, option.WithHTTPClient(httpClient))
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-3.5-turbo"
	}
	placeholder := cfg.Placeholder
	if placeholder == "" {
		placeholder = "No explanation received."
	}
	e := &Explainer{
		client:      openai.NewClient(reqOpts...),
		model:       model,
		placeholder: placeholder,
		logger:      logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Explain implements ports.ExplanationGateway.
func (e *Explainer) Explain(ctx context.Context, kind astrology.OperationKind, data json.RawMessage, lang astrology.Language) (*astrology.Explanation, error) {
	system, ok := SystemPrompt(kind, lang)
	if !ok {
		return nil, &astrology.ValidationError{Message: "Unsupported explanation type"}
	}
	resp, err := e.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(e.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(string(data)),
		},
	})
	if err != nil {
		e.record(kind, "unavailable")
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{"kind": kind, "model": e.model}).WithError(err).Error("chat completion failed")
		}
		return nil, fmt.Errorf("%w: chat completion: %v", astrology.ErrUpstreamUnavailable, err)
	}

	text := ""
	if len(resp.Choices) > 0 {
		text = strings.TrimSpace(resp.Choices[0].Message.Content)
	}
	if text == "" {
		e.record(kind, "empty")
		if e.logger != nil {
			e.logger.WithFields(logrus.Fields{"kind": kind, "choices": len(resp.Choices)}).Warn("chat completion returned no text; using placeholder")
		}
		return &astrology.Explanation{Text: e.placeholder, Degraded: true}, nil
	}
	e.record(kind, "ok")
	return &astrology.Explanation{Text: text}, nil
}

func (e *Explainer) record(kind astrology.OperationKind, result string) {
	if e.calls != nil {
		e.calls.WithLabelValues("openai", string(kind), result).Inc()
	}
}

var _ ports.ExplanationGateway = (*Explainer)(nil)
