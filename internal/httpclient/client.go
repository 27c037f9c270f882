// Package httpclient is the single outbound HTTP path to upstream services.
//
// Every call carries the request correlation id in the x-correlation-id header,
// is bounded by a per-attempt timeout, passes through a per-upstream circuit
// breaker and is retried with a flat delay on 5xx responses and transport
// failures. 4xx responses are never retried. Failures surface as *apperr.Error.
package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"

	"aki/bff/internal/apperr"
	"aki/bff/internal/logging"
	"aki/bff/internal/metrics"
)

const (
	CorrelationHeader = "x-correlation-id"

	DefaultTimeout    = 8 * time.Second
	DefaultMaxRetries = 2
	DefaultRetryDelay = time.Second
)

type Config struct {
	// Name labels logs and metrics, e.g. "personas".
	Name       string
	BaseURL    string
	Timeout    time.Duration
	MaxRetries int
	RetryDelay time.Duration
	Breaker    bool
	Transport  http.RoundTripper
}

type Client struct {
	name       string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	http       *http.Client
	breaker    *gobreaker.CircuitBreaker[*response]
}

type response struct {
	status int
	body   []byte
}

func New(cfg Config) *Client {
	c := &Client{
		name:       cfg.Name,
		baseURL:    cfg.BaseURL,
		timeout:    cfg.Timeout,
		maxRetries: cfg.MaxRetries,
		retryDelay: cfg.RetryDelay,
		http:       &http.Client{Transport: cfg.Transport},
	}
	if c.name == "" {
		c.name = cfg.BaseURL
	}
	if c.timeout <= 0 {
		c.timeout = DefaultTimeout
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.retryDelay <= 0 {
		c.retryDelay = DefaultRetryDelay
	}
	if cfg.Breaker {
		c.breaker = newBreaker(c.name)
	}
	return c
}

func (c *Client) Name() string    { return c.name }
func (c *Client) BaseURL() string { return c.baseURL }

// CloseIdleConnections releases pooled keep-alive connections.
func (c *Client) CloseIdleConnections() {
	c.http.CloseIdleConnections()
}

func (c *Client) Get(ctx context.Context, path string, query url.Values, out any) error {
	return c.Do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, nil, body, out)
}

func (c *Client) Put(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.Do(ctx, http.MethodPut, path, query, body, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, nil, out)
}

// Do performs one logical call, retrying up to MaxRetries times. out may be nil
// or any pointer the JSON body decodes into.
//
// An attempt already on the wire runs to completion even when the caller's
// context is cancelled; only the per-attempt timeout bounds it. Cancellation
// stops further retries.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	caller := ctx
	ctx = context.WithoutCancel(ctx)
	correlationID := logging.CorrelationIDFromContext(ctx)
	if correlationID == "" {
		correlationID = logging.NewCorrelationID()
		ctx = logging.ContextWithCorrelationID(ctx, correlationID)
	}

	var payload []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return apperr.Internal("Failed to encode upstream request").Wrap(err).WithTraceID(correlationID)
		}
		payload = encoded
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	for attempt := 0; ; attempt++ {
		resp, retryable, err := c.attempt(ctx, method, target, payload, correlationID)
		if err == nil {
			return c.decode(resp, out, correlationID)
		}
		if !retryable || attempt >= c.maxRetries || caller.Err() != nil {
			logging.Ctx(ctx).Error().Err(err).
				Str("service", c.name).
				Str("method", method).
				Str("url", target).
				Int("status", apperr.StatusOf(err)).
				Int("attempts", attempt+1).
				Msg("upstream request failed")
			return err
		}

		logging.Ctx(ctx).Warn().Err(err).
			Str("service", c.name).
			Str("method", method).
			Str("url", target).
			Int("attempt", attempt+1).
			Dur("delay", c.retryDelay).
			Msg("retrying upstream request")
		metrics.UpstreamRetries.WithLabelValues(c.name).Inc()

		timer := time.NewTimer(c.retryDelay)
		select {
		case <-caller.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

// Ping issues a single GET /health, outside the breaker and without retries.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("%s health returned %d", c.name, resp.StatusCode)
	}
	return nil
}

func (c *Client) attempt(ctx context.Context, method, target string, payload []byte, correlationID string) (*response, bool, error) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(attemptCtx, method, target, reader)
	if err != nil {
		return nil, false, apperr.Internal("Failed to build upstream request").Wrap(err).WithTraceID(correlationID)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(CorrelationHeader, correlationID)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	send := func() (*response, error) {
		return c.send(req, correlationID)
	}

	var resp *response
	if c.breaker != nil {
		resp, err = c.breaker.Execute(send)
	} else {
		resp, err = send()
	}
	if err == nil {
		return resp, false, nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, false, apperr.ServiceUnavailable("Service temporarily unavailable", map[string]any{"service": c.baseURL}).
			Wrap(err).WithTraceID(correlationID)
	}
	return nil, apperr.StatusOf(err) >= http.StatusInternalServerError, err
}

func (c *Client) send(req *http.Request, correlationID string) (*response, error) {
	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordUpstreamAttempt(c.name, req.Method, 0, time.Since(started))
		return nil, c.transportError(err).WithTraceID(correlationID)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordUpstreamAttempt(c.name, req.Method, resp.StatusCode, time.Since(started))
	if err != nil {
		return nil, c.transportError(err).WithTraceID(correlationID)
	}

	logging.Ctx(req.Context()).Debug().
		Str("service", c.name).
		Str("method", req.Method).
		Str("url", req.URL.String()).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("upstream response")

	if resp.StatusCode >= http.StatusBadRequest {
		return nil, upstreamError(resp.StatusCode, body).WithTraceID(correlationID)
	}
	return &response{status: resp.StatusCode, body: body}, nil
}

func (c *Client) transportError(err error) *apperr.Error {
	details := map[string]any{"service": c.baseURL}
	if isTimeout(err) {
		return apperr.ServiceUnavailable("Service request timeout", details).Wrap(err)
	}
	return apperr.ServiceUnavailable("Service unavailable", details).Wrap(err)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func (c *Client) decode(resp *response, out any, correlationID string) error {
	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(resp.body, out); err != nil {
		return apperr.Internal("Invalid upstream response", map[string]any{"service": c.baseURL}).
			Wrap(err).WithTraceID(correlationID)
	}
	return nil
}

type errorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details"`
}

type errorEnvelope struct {
	Error json.RawMessage `json:"error"`
	errorPayload
}

// upstreamError maps an error response onto an *apperr.Error. Both
// {"error":{code,message,details}} and a flat {code,message,details} body are
// understood; anything else keeps only the status.
func upstreamError(status int, body []byte) *apperr.Error {
	var payload errorPayload
	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err == nil {
		payload = envelope.errorPayload
		if len(envelope.Error) > 0 {
			var nested errorPayload
			if err := json.Unmarshal(envelope.Error, &nested); err == nil {
				payload = nested
			}
		}
	}

	code := payload.Code
	if code == "" {
		code = apperr.CodeUpstream
	}
	message := payload.Message
	if message == "" {
		message = fmt.Sprintf("Request failed with status code %d", status)
	}
	return apperr.New(status, code, message, toDetails(payload.Details)...)
}

func toDetails(value any) []any {
	switch v := value.(type) {
	case nil:
		return nil
	case []any:
		return v
	default:
		return []any{v}
	}
}

func newBreaker(name string) *gobreaker.CircuitBreaker[*response] {
	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	return gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= 0.6
		},
		IsSuccessful: func(err error) bool {
			if err == nil || errors.Is(err, context.Canceled) {
				return true
			}
			return apperr.StatusOf(err) < http.StatusInternalServerError
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Warn().Str("service", name).Str("from", from.String()).Str("to", to.String()).
				Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, from.String(), to.String()).Inc()
		},
	})
}

func stateValue(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return 0
	}
}
