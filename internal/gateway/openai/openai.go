// Package openai reaches an OpenAI-compatible chat completions endpoint and
// turns its JSON answer into a gateway result.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/time/rate"

	"worksheet/internal/domain"
	"worksheet/internal/gateway"
	"worksheet/internal/logger"
	"worksheet/internal/schema"
)

const tracerName = "worksheet/gateway/openai"

type Options struct {
	BaseURL           string            `yaml:"baseURL" json:"base_url"`
	EndpointPath      string            `yaml:"endpointPath" json:"endpoint_path"`
	Model             string            `yaml:"model" json:"model"`
	APIKey            string            `yaml:"-" json:"-"`
	Timeout           time.Duration     `yaml:"timeout" json:"timeout"`
	MaxRetries        int               `yaml:"maxRetries" json:"max_retries"`
	InitialBackoff    time.Duration     `yaml:"initialBackoff" json:"initial_backoff"`
	MaxBackoff        time.Duration     `yaml:"maxBackoff" json:"max_backoff"`
	RequestsPerMinute int               `yaml:"requestsPerMinute" json:"requests_per_minute"`
	Temperature       *float64          `yaml:"temperature,omitempty" json:"temperature,omitempty"`
	ExtraHeaders      map[string]string `yaml:"extraHeaders,omitempty" json:"extra_headers,omitempty"`
}

func (o *Options) defaults() {
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openai.com/v1"
	}
	if o.EndpointPath == "" {
		o.EndpointPath = "/chat/completions"
	}
	if o.Model == "" {
		o.Model = "gpt-4.1-mini"
	}
	if o.Timeout <= 0 {
		o.Timeout = 60 * time.Second
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	}
	if o.InitialBackoff <= 0 {
		o.InitialBackoff = 500 * time.Millisecond
	}
	if o.MaxBackoff <= 0 {
		o.MaxBackoff = 10 * time.Second
	}
}

type Client struct {
	hc      *http.Client
	url     string
	opts    Options
	limiter *rate.Limiter
	log     *logger.Logger
	tracer  trace.Tracer
	sleep   func(ctx context.Context, d time.Duration) error
}

var _ gateway.Gateway = (*Client)(nil)

func New(opts Options, log *logger.Logger) (*Client, error) {
	opts.defaults()
	if opts.APIKey == "" {
		return nil, fmt.Errorf("openai: %w: missing api key", gateway.ErrInvalidRequest)
	}
	if log == nil {
		log = logger.Nop()
	}
	url := opts.EndpointPath
	if !strings.HasPrefix(url, "http://") && !strings.HasPrefix(url, "https://") {
		url = strings.TrimRight(opts.BaseURL, "/") + "/" + strings.TrimLeft(opts.EndpointPath, "/")
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}
	return &Client{
		hc:      &http.Client{Timeout: opts.Timeout},
		url:     url,
		opts:    opts,
		limiter: limiter,
		log:     log.With("component", "gateway.openai", "model", opts.Model),
		tracer:  otel.Tracer(tracerName),
		sleep:   sleepCtx,
	}, nil
}

// ─────────────────────────────────────────────────────────────
// Wire types
// ─────────────────────────────────────────────────────────────

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
			Refusal string `json:"refusal,omitempty"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

// editAnswer is the JSON object the model is asked to produce.
type editAnswer struct {
	Properties map[string]any               `json:"properties"`
	Changes    []domain.WorksheetEditChange `json:"changes"`
	Error      string                       `json:"error"`
}

type httpError struct {
	status     int
	body       string
	retryAfter time.Duration
}

func (e *httpError) Error() string {
	return fmt.Sprintf("openai upstream %d: %s", e.status, truncate(e.body, 300))
}

func (e *httpError) retryable() bool {
	return e.status == http.StatusTooManyRequests || e.status == http.StatusRequestTimeout || e.status >= 500
}

// ─────────────────────────────────────────────────────────────
// Submit
// ─────────────────────────────────────────────────────────────

func (c *Client) Submit(ctx context.Context, req gateway.Request) (gateway.Result, error) {
	ctx, span := c.tracer.Start(ctx, "gateway.openai.Submit",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("worksheet.component_type", req.ComponentType),
			attribute.String("worksheet.element_id", req.Element.ID),
			attribute.String("llm.model", c.opts.Model),
		))
	defer span.End()

	if strings.TrimSpace(req.Instruction) == "" {
		return gateway.Result{}, fmt.Errorf("%w: empty instruction", gateway.ErrInvalidRequest)
	}

	body, err := c.encode(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode")
		return gateway.Result{}, err
	}

	raw, err := c.doWithRetry(ctx, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request")
		return gateway.Result{}, err
	}

	res := decodeAnswer(raw)
	span.SetAttributes(attribute.Bool("worksheet.edit_success", res.Success))
	if !res.Success {
		span.SetStatus(codes.Error, res.Error)
	}
	return res, nil
}

func (c *Client) encode(req gateway.Request) ([]byte, error) {
	var schemaDoc any = map[string]any{}
	if req.Schema != nil {
		schemaDoc = schema.JSONSchema(req.Schema, false)
	}
	schemaJSON, err := json.Marshal(schemaDoc)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal schema: %w", err)
	}
	props, err := domain.EncodePropertyBag(req.Element.Properties)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	ctxJSON, err := json.Marshal(req.Context)
	if err != nil {
		return nil, fmt.Errorf("openai: marshal context: %w", err)
	}

	system := "You edit the properties of one worksheet component. " +
		"Reply with a single JSON object: " +
		`{"properties": {<only the top-level keys you change>}, "changes": [{"field": "<dot path>", "description": "<old → new>"}]}. ` +
		`If the instruction cannot be applied, reply {"error": "<reason>"}. ` +
		"Property values must follow this JSON Schema:\n" + string(schemaJSON)
	user := fmt.Sprintf("Component type: %s\nCurrent properties: %s\nWorksheet context: %s\nInstruction: %s",
		req.ComponentType, props, ctxJSON, req.Instruction)

	return json.Marshal(chatRequest{
		Model: c.opts.Model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature:    c.opts.Temperature,
		ResponseFormat: &responseFormat{Type: "json_object"},
	})
}

func (c *Client) doWithRetry(ctx context.Context, body []byte) ([]byte, error) {
	backoff := c.opts.InitialBackoff
	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("openai: rate limit wait: %w", err)
		}
		raw, err := c.doOnce(ctx, body)
		if err == nil {
			return raw, nil
		}

		var he *httpError
		retryable := errors.As(err, &he) && he.retryable()
		if !retryable || attempt >= c.opts.MaxRetries || ctx.Err() != nil {
			return nil, err
		}

		sleepFor := backoff
		if he.retryAfter > 0 {
			sleepFor = he.retryAfter
		}
		if sleepFor > c.opts.MaxBackoff {
			sleepFor = c.opts.MaxBackoff
		}
		c.log.Warn("OpenAI request retrying",
			"attempt", attempt+1,
			"max_retries", c.opts.MaxRetries,
			"sleep", sleepFor.String(),
			"error", err.Error(),
		)
		if err := c.sleep(ctx, sleepFor); err != nil {
			return nil, err
		}
		backoff *= 2
	}
}

func (c *Client) doOnce(ctx context.Context, body []byte) ([]byte, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)
	for k, v := range c.opts.ExtraHeaders {
		httpReq.Header.Set(k, v)
	}

	resp, err := c.hc.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("openai: read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &httpError{
			status:     resp.StatusCode,
			body:       string(raw),
			retryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
		}
	}
	return raw, nil
}

// decodeAnswer maps a chat completion body to a gateway result. Anything the
// model says that is not a usable patch becomes a failure result.
func decodeAnswer(raw []byte) gateway.Result {
	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return gateway.Failed("malformed response: " + err.Error())
	}
	if len(cr.Choices) == 0 {
		return gateway.Failed("response has no choices")
	}
	msg := cr.Choices[0].Message
	if msg.Refusal != "" {
		return gateway.Failed("refused: " + msg.Refusal)
	}
	if cr.Choices[0].FinishReason == "length" {
		return gateway.Failed("response truncated")
	}

	var ans editAnswer
	if err := json.Unmarshal([]byte(msg.Content), &ans); err != nil {
		return gateway.Failed("malformed patch: " + err.Error())
	}
	if ans.Error != "" {
		return gateway.Failed(ans.Error)
	}
	if ans.Properties == nil {
		return gateway.Failed("patch has no properties")
	}
	return gateway.Succeeded(domain.PropertyBag(ans.Properties), ans.Changes...)
}

func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
	}
	return 0
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
