package replicate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"aecvision/internal/services"
)

const (
	defaultBaseURL        = "https://api.replicate.com/v1"
	defaultHTTPTimeout    = 60 * time.Second
	defaultPollInterval   = 2 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 5
)

// Prediction statuses reported by the API.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Config captures the runtime settings required to run captioning predictions.
type Config struct {
	APIToken       string
	BaseURL        string
	Model          string
	MaxTokens      int
	Temperature    float64
	TopP           float64
	TimeoutSeconds int
}

// Client wraps the Replicate predictions API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	pollInterval     time.Duration
	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithPollInterval overrides how often a running prediction is polled.
func WithPollInterval(interval time.Duration) Option {
	return func(c *Client) {
		c.pollInterval = interval
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 5).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry and poll sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a Replicate client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			APIToken:       strings.TrimSpace(cfg.APIToken),
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			Model:          strings.TrimSpace(cfg.Model),
			MaxTokens:      cfg.MaxTokens,
			Temperature:    cfg.Temperature,
			TopP:           cfg.TopP,
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		pollInterval:     defaultPollInterval,
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.cfg.BaseURL == "" {
		client.cfg.BaseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Model returns the configured model reference.
func (c *Client) Model() string {
	return c.cfg.Model
}

// Prediction mirrors the prediction object returned by the API.
type Prediction struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Output json.RawMessage `json:"output"`
	Error  json.RawMessage `json:"error"`
	Logs   string          `json:"logs"`
	URLs   struct {
		Get    string `json:"get"`
		Cancel string `json:"cancel"`
	} `json:"urls"`
}

// Terminal reports whether the prediction finished, successfully or not.
func (p *Prediction) Terminal() bool {
	switch p.Status {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// Fragments yields the output text pieces in the order the model produced
// them. Models that stream tokens return an array; others a single string.
func (p *Prediction) Fragments() iter.Seq[string] {
	return func(yield func(string) bool) {
		raw := bytes.TrimSpace(p.Output)
		if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
			return
		}
		var parts []string
		if err := json.Unmarshal(raw, &parts); err == nil {
			for _, part := range parts {
				if !yield(part) {
					return
				}
			}
			return
		}
		var single string
		if err := json.Unmarshal(raw, &single); err == nil {
			yield(single)
		}
	}
}

func (p *Prediction) errorMessage() string {
	raw := bytes.TrimSpace(p.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	return strings.TrimSpace(string(raw))
}

// PredictionError reports a prediction that ended in failed or canceled state.
// Logs carries the model's diagnostic output for failure classification.
type PredictionError struct {
	PredictionID string
	Status       string
	Message      string
	Logs         string
}

func (e *PredictionError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = "no error message"
	}
	return fmt.Sprintf("replicate prediction %s %s: %s", e.PredictionID, e.Status, msg)
}

// RequestID returns the prediction identifier for offline investigation.
func (e *PredictionError) RequestID() string {
	return e.PredictionID
}

// DiagnosticLogs returns the prediction logs.
func (e *PredictionError) DiagnosticLogs() string {
	return e.Logs
}

// Unwrap tags prediction failures as model errors.
func (e *PredictionError) Unwrap() error {
	return services.ErrModel
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("replicate request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

type predictionRequest struct {
	Version string         `json:"version,omitempty"`
	Input   map[string]any `json:"input"`
}

// Caption runs the configured vision-language model against imageURL and
// returns its output fragments. A failed prediction returns *PredictionError.
func (c *Client) Caption(ctx context.Context, imageURL, prompt string) (iter.Seq[string], error) {
	imageURL = strings.TrimSpace(imageURL)
	prompt = strings.TrimSpace(prompt)
	if imageURL == "" {
		return nil, errors.New("replicate caption: image url required")
	}
	if prompt == "" {
		return nil, errors.New("replicate caption: prompt required")
	}
	if c.cfg.APIToken == "" {
		return nil, services.Wrap(services.ErrConfiguration, "replicate", "caption", "api token required", nil)
	}
	input := map[string]any{
		"image":  imageURL,
		"prompt": prompt,
		"top_p":  c.cfg.TopP,
	}
	if c.cfg.MaxTokens > 0 {
		input["max_tokens"] = c.cfg.MaxTokens
	}
	input["temperature"] = c.cfg.Temperature

	prediction, err := c.Run(ctx, input)
	if err != nil {
		return nil, err
	}
	return prediction.Fragments(), nil
}

// Run creates a prediction for the configured model and waits until it
// reaches a terminal status.
func (c *Client) Run(ctx context.Context, input map[string]any) (*Prediction, error) {
	endpoint, payload, err := c.createTarget(input)
	if err != nil {
		return nil, err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("replicate request: encode body: %w", err)
	}

	prediction, err := c.doWithRetry(ctx, http.MethodPost, endpoint, encoded, "replicate create")
	if err != nil {
		return nil, err
	}
	for !prediction.Terminal() {
		if prediction.URLs.Get == "" {
			return nil, fmt.Errorf("replicate poll: prediction %s has no poll url", prediction.ID)
		}
		if err := c.sleep(ctx, c.pollInterval); err != nil {
			return nil, err
		}
		prediction, err = c.doWithRetry(ctx, http.MethodGet, prediction.URLs.Get, nil, "replicate poll")
		if err != nil {
			return nil, err
		}
	}
	if prediction.Status != StatusSucceeded {
		return nil, &PredictionError{
			PredictionID: prediction.ID,
			Status:       prediction.Status,
			Message:      prediction.errorMessage(),
			Logs:         prediction.Logs,
		}
	}
	return prediction, nil
}

// createTarget resolves "owner/name:version" to the versioned predictions
// endpoint and "owner/name" to the model-scoped endpoint.
func (c *Client) createTarget(input map[string]any) (string, predictionRequest, error) {
	model := c.cfg.Model
	if model == "" {
		return "", predictionRequest{}, services.Wrap(services.ErrConfiguration, "replicate", "caption", "model required", nil)
	}
	if name, version, ok := strings.Cut(model, ":"); ok {
		if strings.TrimSpace(name) == "" || strings.TrimSpace(version) == "" {
			return "", predictionRequest{}, fmt.Errorf("replicate: invalid model reference %q", model)
		}
		return c.cfg.BaseURL + "/predictions", predictionRequest{Version: version, Input: input}, nil
	}
	owner, name, ok := strings.Cut(model, "/")
	if !ok || owner == "" || name == "" {
		return "", predictionRequest{}, fmt.Errorf("replicate: invalid model reference %q", model)
	}
	endpoint, err := url.JoinPath(c.cfg.BaseURL, "models", owner, name, "predictions")
	if err != nil {
		return "", predictionRequest{}, fmt.Errorf("replicate request: build url: %w", err)
	}
	return endpoint, predictionRequest{Input: input}, nil
}

func (c *Client) doWithRetry(ctx context.Context, method, endpoint string, body []byte, op string) (*Prediction, error) {
	attempts := c.retryAttempts()
	var lastErr error

	for attempt := 1; attempt <= attempts; attempt++ {
		prediction, err := c.doOnce(ctx, method, endpoint, body)
		if err == nil {
			return prediction, nil
		}
		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := c.sleep(ctx, delay); err != nil {
			return nil, err
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return nil, fmt.Errorf("%s: failed after %d attempts: %w", op, attempts, lastErr)
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, body []byte) (*Prediction, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("replicate request: new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIToken)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Prefer", "wait")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("replicate request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("replicate request: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(payload)),
			RetryAfter: retryAfter,
		}
	}
	var prediction Prediction
	if err := json.Unmarshal(payload, &prediction); err != nil {
		return nil, fmt.Errorf("replicate request: decode response: %w", err)
	}
	return &prediction, nil
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts || err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := c.retryBaseDelay
	if base <= 0 {
		return 0
	}
	maxDelay := c.retryMaxDelay
	if maxDelay <= 0 {
		maxDelay = defaultRetryMaxDelay
	}
	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if delay <= 0 {
		return nil
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
