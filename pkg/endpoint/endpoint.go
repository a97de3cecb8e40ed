// Copyright 2025 kettlebyte
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package endpoint is the HTTP transport for the workspace item API. It
// owns bearer-token injection, transient-failure retries, and long-running
// operation polling; callers see a single Invoke call that either returns a
// parsed response or fails within the retry budget they passed.
package endpoint

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"
	"golang.org/x/oauth2"
)

// Invoker is the contract the reconciliation core depends on. MaxRetries
// bounds transient-failure retries; zero means the client default.
type Invoker interface {
	Invoke(ctx context.Context, req Request) (*Response, error)
}

// Request describes one API call.
type Request struct {
	Method     string
	URL        string
	Body       any
	MaxRetries int
}

// Response is a completed API call with its JSON body parsed.
type Response struct {
	Status int
	Header http.Header
	Body   map[string]any
}

const (
	defaultMaxRetries = 5
	baseBackoff       = 2 * time.Second
	maxBackoff        = 60 * time.Second
	pollInterval      = 5 * time.Second
)

// Client is the production Invoker.
type Client struct {
	http   *http.Client
	tokens oauth2.TokenSource

	// overridable for tests
	backoffBase  time.Duration
	pollInterval time.Duration
}

// New creates a client that authenticates every call with a bearer token
// from the given source.
func New(tokens oauth2.TokenSource) *Client {
	return NewWithHTTPClient(tokens, &http.Client{Timeout: 120 * time.Second})
}

// NewWithHTTPClient is New with a caller-supplied http.Client, used by tests.
func NewWithHTTPClient(tokens oauth2.TokenSource, hc *http.Client) *Client {
	return &Client{
		http:         hc,
		tokens:       tokens,
		backoffBase:  baseBackoff,
		pollInterval: pollInterval,
	}
}

// Invoke issues the request, retrying throttled (429) and server-side (5xx)
// failures with capped exponential backoff up to the retry budget. A 202
// response with a Location header is treated as a long-running operation
// and polled until it reaches a terminal state.
func (c *Client) Invoke(ctx context.Context, req Request) (*Response, error) {
	logger := zerolog.Ctx(ctx)

	maxRetries := req.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	var lastErr error
	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := retryDelay(lastErr, attempt, c.backoffBase)
			logger.Debug().
				Int("attempt", attempt).
				Dur("delay", delay).
				Str("url", req.URL).
				Msg("retrying request")
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}

		resp, err := c.do(ctx, req)
		if err == nil {
			if resp.Status == http.StatusAccepted {
				return c.awaitOperation(ctx, resp)
			}
			return resp, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
	}

	return nil, errors.Errorf("retries exhausted after %d attempts: %w", maxRetries, lastErr)
}

func (c *Client) do(ctx context.Context, req Request) (*Response, error) {
	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Errorf("encoding request body: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, req.URL, body)
	if err != nil {
		return nil, errors.Errorf("building request: %w", err)
	}

	token, err := c.tokens.Token()
	if err != nil {
		return nil, errors.Errorf("acquiring token: %w", err)
	}
	token.SetAuthHeader(httpReq)
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &transientError{err: errors.Errorf("%s %s: %w", req.Method, req.URL, err)}
	}
	defer httpResp.Body.Close()

	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &transientError{err: errors.Errorf("reading response body: %w", err)}
	}

	resp := &Response{Status: httpResp.StatusCode, Header: httpResp.Header}
	if len(raw) > 0 {
		// some calls (e.g. DELETE) legitimately return an empty body
		if err := json.Unmarshal(raw, &resp.Body); err != nil {
			resp.Body = nil
		}
	}

	switch {
	case httpResp.StatusCode == http.StatusTooManyRequests:
		return nil, &throttledError{retryAfter: retryAfter(httpResp.Header), err: apiError(req, resp)}
	case httpResp.StatusCode >= 500:
		return nil, &transientError{err: apiError(req, resp)}
	case httpResp.StatusCode >= 400:
		return nil, apiError(req, resp)
	}

	return resp, nil
}

// awaitOperation polls the Location of an accepted long-running operation
// until it succeeds or fails. The poll itself is not bounded by the retry
// budget; the server decides how long the operation runs.
func (c *Client) awaitOperation(ctx context.Context, accepted *Response) (*Response, error) {
	location := accepted.Header.Get("Location")
	if location == "" {
		return accepted, nil
	}

	interval := c.pollInterval
	if ra := retryAfter(accepted.Header); ra > 0 {
		interval = ra
	}

	for {
		if err := sleep(ctx, interval); err != nil {
			return nil, err
		}

		resp, err := c.do(ctx, Request{Method: http.MethodGet, URL: location})
		if err != nil {
			return nil, errors.Errorf("polling operation: %w", err)
		}

		status, _ := resp.Body["status"].(string)
		switch status {
		case "Succeeded":
			// the operation result, if any, lives behind /result
			result, err := c.do(ctx, Request{Method: http.MethodGet, URL: location + "/result"})
			if err != nil {
				return resp, nil
			}
			return result, nil
		case "Failed":
			return nil, errors.Errorf("long-running operation failed: %v", resp.Body["error"])
		}

		if ra := retryAfter(resp.Header); ra > 0 {
			interval = ra
		}
	}
}

func apiError(req Request, resp *Response) error {
	code, _ := resp.Body["errorCode"].(string)
	message, _ := resp.Body["message"].(string)
	if code == "" && message == "" {
		return errors.Errorf("%s %s: status %d", req.Method, req.URL, resp.Status)
	}
	return errors.Errorf("%s %s: status %d: %s: %s", req.Method, req.URL, resp.Status, code, message)
}

func retryAfter(h http.Header) time.Duration {
	seconds, err := strconv.Atoi(h.Get("Retry-After"))
	if err != nil || seconds <= 0 {
		return 0
	}
	return time.Duration(seconds) * time.Second
}

func retryDelay(err error, attempt int, base time.Duration) time.Duration {
	var throttled *throttledError
	if errors.As(err, &throttled) && throttled.retryAfter > 0 {
		return throttled.retryAfter
	}
	delay := base << (attempt - 1)
	if delay > maxBackoff {
		return maxBackoff
	}
	return delay
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return errors.Errorf("request cancelled: %w", ctx.Err())
	case <-timer.C:
		return nil
	}
}
