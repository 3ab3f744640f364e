// Package httprequest provides the outbound webhook action.
package httprequest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/dukex/supplyflow/pkg/events"
)

const (
	defaultTimeoutMs = 10000
	maxBodyPreview   = 512
)

var (
	ErrURLRequired     = errors.New("url is required")
	ErrHTTPServerError = errors.New("server error during HTTP request")
	ErrHTTPStatus      = errors.New("unexpected HTTP status")
)

// Action calls a URL with optional headers, body and retries.
type Action struct {
	URL     string
	Method  string
	Headers map[string]string
	Body    any
	Timeout time.Duration
	Retry   RetryConfig

	client *http.Client
}

type RetryConfig struct {
	Attempts int
	Delay    time.Duration
}

func NewAction(params map[string]any, client *http.Client) (*Action, error) {
	url, _ := params["url"].(string)
	if url == "" {
		return nil, ErrURLRequired
	}

	method, _ := params["method"].(string)
	if method == "" {
		method = http.MethodPost
	}

	headers := make(map[string]string)

	if headersMap, ok := params["headers"].(map[string]any); ok {
		for k, v := range headersMap {
			if s, ok := v.(string); ok {
				headers[k] = s
			}
		}
	}

	timeout := time.Duration(intParam(params["timeout_ms"], defaultTimeoutMs)) * time.Millisecond

	retry := RetryConfig{Attempts: 1}
	if retryMap, ok := params["retries"].(map[string]any); ok {
		retry.Attempts = max(1, intParam(retryMap["attempts"], 1))
		retry.Delay = time.Duration(intParam(retryMap["delay_ms"], 0)) * time.Millisecond
	}

	if client == nil {
		client = &http.Client{Timeout: timeout}
	}

	return &Action{
		URL:     url,
		Method:  strings.ToUpper(method),
		Headers: headers,
		Body:    params["body"],
		Timeout: timeout,
		Retry:   retry,
		client:  client,
	}, nil
}

func intParam(v any, fallback int) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return fallback
	}
}

// Execute sends the request, retrying transport errors and 5xx responses.
// Any non-2xx final response is an error.
func (a *Action) Execute(ctx context.Context, event events.SystemEvent, logger *slog.Logger) error {
	logger = logger.With("module", "http_request_action", "method", a.Method, "url", a.URL)

	body, err := a.requestBody(event)
	if err != nil {
		return err
	}

	var lastErr error

	for attempt := 1; attempt <= a.Retry.Attempts; attempt++ {
		if attempt > 1 {
			logger.InfoContext(ctx, "retrying HTTP request", "attempt", attempt, "attempts", a.Retry.Attempts)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(a.Retry.Delay):
			}
		}

		lastErr = a.do(ctx, body, event, logger)
		if lastErr == nil || !retryable(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("all %d attempts failed: %w", a.Retry.Attempts, lastErr)
}

func (a *Action) requestBody(event events.SystemEvent) ([]byte, error) {
	switch body := a.Body.(type) {
	case nil:
		if a.Method == http.MethodGet || a.Method == http.MethodDelete {
			return nil, nil
		}

		data, err := json.Marshal(event)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal event: %w", err)
		}

		return data, nil
	case string:
		return []byte(body), nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal body: %w", err)
		}

		return data, nil
	}
}

func (a *Action) do(ctx context.Context, body []byte, event events.SystemEvent, logger *slog.Logger) error {
	ctx, cancel := context.WithTimeout(ctx, a.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, a.Method, a.URL, reader)
	if err != nil {
		return fmt.Errorf("failed to create http request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	req.Header.Set("X-Supplyflow-Event-Id", event.ID)
	req.Header.Set("X-Supplyflow-Event-Type", string(event.Type))

	for key, value := range a.Headers {
		req.Header.Set(key, value)
	}

	resp, err := a.client.Do(req)
	if err != nil {
		return &transportError{err: err}
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	preview, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyPreview))

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: status %d: %s", ErrHTTPServerError, resp.StatusCode, preview)
	case resp.StatusCode >= http.StatusMultipleChoices:
		return fmt.Errorf("%w: status %d: %s", ErrHTTPStatus, resp.StatusCode, preview)
	}

	logger.InfoContext(ctx, "HTTP request completed", "status", resp.StatusCode)

	return nil
}

type transportError struct {
	err error
}

func (e *transportError) Error() string {
	return "http request failed: " + e.err.Error()
}

func (e *transportError) Unwrap() error {
	return e.err
}

func retryable(err error) bool {
	var transport *transportError

	return errors.Is(err, ErrHTTPServerError) || errors.As(err, &transport)
}
