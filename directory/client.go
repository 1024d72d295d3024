// Package directory talks to the remote directory service, the system of
// record for user accounts. Every call is a single JSON POST keyed by an
// action name and bounded by a timeout; calls are never retried.
package directory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/andrebq/puente/internal/logutil"
)

const (
	DefaultTimeout = 20 * time.Second

	maxResponseBody = 1_000_000
)

type (
	Client struct {
		endpoint string
		timeout  time.Duration
		http     *http.Client
	}
)

// NewClient returns a client for endpoint. An empty endpoint is accepted,
// every call then fails with NotConfigured.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		endpoint: endpoint,
		timeout:  timeout,
		// the deadline is enforced through the request context
		http: &http.Client{},
	}
}

func (c *Client) Configured() bool {
	return c.endpoint != ""
}

// Call sends a to the directory and decodes the reply.
//
// Errors are one of NotConfigured, Timeout, TransportError or ProtocolError.
func (c *Client) Call(ctx context.Context, a Action) (*Result, error) {
	if !c.Configured() {
		return nil, NotConfigured{}
	}
	body, err := Envelope(a)
	if err != nil {
		return nil, err
	}
	log := logutil.GetOrDefault(ctx).With().Str("directory.action", a.ActionName()).Logger()

	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, TransportError{Action: a.ActionName(), cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	res, err := c.http.Do(req)
	if err != nil {
		return nil, c.classify(callCtx, a, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBody))
	if err != nil {
		return nil, c.classify(callCtx, a, err)
	}
	log.Debug().Int("status", res.StatusCode).Dur("elapsed", time.Since(start)).Msg("Directory call completed")

	status := http.StatusOK
	if res.StatusCode < 200 || res.StatusCode > 299 {
		status = res.StatusCode
	}
	raw = bytes.TrimSpace(raw)
	if !json.Valid(raw) || len(raw) == 0 || raw[0] != '{' {
		log.Warn().Int("status", res.StatusCode).Int("size", len(raw)).Msg("Directory answered with a non-JSON payload")
		return nil, ProtocolError{Status: status, Raw: string(raw)}
	}
	return &Result{Status: status, Body: json.RawMessage(raw)}, nil
}

func (c *Client) classify(callCtx context.Context, a Action, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
		return Timeout{After: c.timeout}
	}
	return TransportError{Action: a.ActionName(), cause: err}
}
