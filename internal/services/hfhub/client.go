package hfhub

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"aecvision/internal/services"
)

const (
	defaultBaseURL        = "https://huggingface.co"
	defaultRevision       = "main"
	defaultHTTPTimeout    = 10 * time.Minute
	defaultRetryAttempts  = 3
	defaultRetryBaseDelay = 2 * time.Second
)

// Config captures the settings needed to publish a dataset file.
type Config struct {
	Token    string
	BaseURL  string
	RepoID   string
	Revision string
}

// Client talks to the Hugging Face Hub HTTP API.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
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

// WithRetry overrides the retry count and base delay.
func WithRetry(attempts int, baseDelay time.Duration) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
		c.retryBaseDelay = baseDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a Hub client.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: Config{
			Token:    strings.TrimSpace(cfg.Token),
			BaseURL:  strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			RepoID:   strings.Trim(strings.TrimSpace(cfg.RepoID), "/"),
			Revision: strings.TrimSpace(cfg.Revision),
		},
		httpClient:       &http.Client{Timeout: defaultHTTPTimeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		sleeper:          time.Sleep,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.cfg.BaseURL == "" {
		c.cfg.BaseURL = defaultBaseURL
	}
	if c.cfg.Revision == "" {
		c.cfg.Revision = defaultRevision
	}
	return c
}

// CommitResult describes a completed upload.
type CommitResult struct {
	CommitURL string `json:"commitUrl"`
	CommitOID string `json:"commitOid"`
}

// APIError reports a non-success response from the Hub.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("hub returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("hub returned status %d: %s", e.StatusCode, e.Message)
}

// Unwrap classifies authentication failures as configuration problems and
// everything else as an unavailable destination.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden {
		return services.ErrConfiguration
	}
	return services.ErrSourceUnavailable
}

func (e *APIError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// CreateRepo creates the dataset repository. An existing repository is not an
// error.
func (c *Client) CreateRepo(ctx context.Context, private bool) error {
	owner, name, ok := strings.Cut(c.cfg.RepoID, "/")
	if !ok || owner == "" || name == "" {
		return services.Wrap(services.ErrConfiguration, "upload", "create repo", fmt.Sprintf("repo id %q must be owner/name", c.cfg.RepoID), nil)
	}
	payload, err := json.Marshal(map[string]any{
		"type":         "dataset",
		"name":         name,
		"organization": owner,
		"private":      private,
	})
	if err != nil {
		return fmt.Errorf("encode create request: %w", err)
	}
	err = c.do(ctx, http.MethodPost, c.cfg.BaseURL+"/api/repos/create", "application/json",
		func() (io.Reader, error) { return bytes.NewReader(payload), nil }, nil)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
		return nil
	}
	return err
}

// UploadFile commits the file at localPath to pathInRepo on the configured
// revision. The file is read in full for every attempt.
func (c *Client) UploadFile(ctx context.Context, localPath, pathInRepo, summary string) (*CommitResult, error) {
	info, err := os.Stat(localPath)
	if err != nil {
		return nil, services.Wrap(services.ErrIO, "upload", "stat", localPath, err)
	}
	if info.IsDir() {
		return nil, services.Wrap(services.ErrIO, "upload", "stat", localPath+" is a directory", nil)
	}
	pathInRepo = strings.TrimLeft(strings.TrimSpace(pathInRepo), "/")
	if pathInRepo == "" {
		pathInRepo = info.Name()
	}

	endpoint := fmt.Sprintf("%s/api/datasets/%s/commit/%s",
		c.cfg.BaseURL, c.cfg.RepoID, url.PathEscape(c.cfg.Revision))
	body := func() (io.Reader, error) {
		file, err := os.Open(localPath)
		if err != nil {
			return nil, services.Wrap(services.ErrIO, "upload", "open", localPath, err)
		}
		return commitBody(file, pathInRepo, summary), nil
	}

	var result CommitResult
	if err := c.do(ctx, http.MethodPost, endpoint, "application/x-ndjson", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// commitBody streams the NDJSON commit payload: a header line followed by one
// base64-encoded file operation. file is closed once fully read.
func commitBody(file io.ReadCloser, pathInRepo, summary string) io.Reader {
	pr, pw := io.Pipe()
	go func() {
		defer file.Close()
		header, _ := json.Marshal(map[string]any{
			"key":   "header",
			"value": map[string]string{"summary": summary, "description": ""},
		})
		prefix, _ := json.Marshal(pathInRepo)
		var err error
		write := func(s []byte) {
			if err == nil {
				_, err = pw.Write(s)
			}
		}
		write(header)
		write([]byte("\n" + `{"key":"file","value":{"path":` + string(prefix) + `,"encoding":"base64","content":"`))
		if err == nil {
			enc := base64.NewEncoder(base64.StdEncoding, pw)
			if _, err = io.Copy(enc, file); err == nil {
				err = enc.Close()
			}
		}
		write([]byte(`"}}` + "\n"))
		pw.CloseWithError(err)
	}()
	return pr
}

func (c *Client) do(ctx context.Context, method, endpoint, contentType string, body func() (io.Reader, error), out any) error {
	attempts := c.retryMaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		lastErr = c.doOnce(ctx, method, endpoint, contentType, body, out)
		if lastErr == nil {
			return nil
		}
		var apiErr *APIError
		if !errors.As(lastErr, &apiErr) || !apiErr.retryable() || attempt == attempts {
			return lastErr
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.sleeper != nil {
			c.sleeper(c.retryBaseDelay * time.Duration(1<<(attempt-1)))
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, endpoint, contentType string, body func() (io.Reader, error), out any) error {
	reader, err := body()
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", "application/json")
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrSourceUnavailable, "upload", method, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}
	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func errorMessage(data []byte) string {
	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err == nil && payload.Error != "" {
		return payload.Error
	}
	return strings.TrimSpace(string(data))
}
