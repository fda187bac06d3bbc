package portal

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/omarshaarawi/courtside/internal/config"
	"github.com/omarshaarawi/courtside/internal/metrics"
	"github.com/omarshaarawi/courtside/internal/models"
	"github.com/omarshaarawi/courtside/internal/repository"
)

const maxResponseBytes = 1 << 20

// Redirector sends the user back to the unauthenticated entry point.
// Implementations must tolerate being called when the user already left.
type Redirector interface {
	RedirectToLogin()
}

// RedirectorFunc adapts a plain func to Redirector.
type RedirectorFunc func()

func (f RedirectorFunc) RedirectToLogin() {
	f()
}

// Scheduler runs task once after delay. The returned cancel func removes
// the task if it has not run yet.
type Scheduler interface {
	Schedule(delay time.Duration, task func()) (cancel func(), err error)
}

type Client struct {
	httpClient    *http.Client
	baseURL       string
	store         repository.CredentialStore
	scheduler     Scheduler
	redirector    Redirector
	redirectDelay time.Duration
	metrics       *metrics.Metrics

	mu             sync.Mutex
	cancelRedirect func()
	// redirectGen identifies the redirect cancelRedirect belongs to.
	redirectGen uint64
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithRedirect enables the delayed redirect that follows an Unauthorized
// classification.
func WithRedirect(s Scheduler, r Redirector) Option {
	return func(c *Client) {
		c.scheduler = s
		c.redirector = r
	}
}

func NewClient(cfg config.Portal, store repository.CredentialStore, opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		store:         store,
		redirectDelay: cfg.RedirectDelay,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do sends body (JSON encoded, may be nil) to path and decodes a successful
// response into result (may be nil). Every non-nil error is a *RequestError.
func (c *Client) Do(ctx context.Context, method, path string, body, result interface{}) error {
	start := time.Now()
	requestID := uuid.NewString()

	reqErr := c.do(ctx, method, path, requestID, body, result)

	outcome := "ok"
	if reqErr != nil {
		outcome = reqErr.Kind.String()
	}
	c.metrics.ObserveRequest(path, method, outcome, time.Since(start))

	if reqErr != nil {
		slog.Warn("Portal request failed",
			"method", method, "path", path, "request_id", requestID,
			"kind", reqErr.Kind.String(), "status", reqErr.Status, "error", reqErr.Err)
		return reqErr
	}
	slog.Debug("Portal request", "method", method, "path", path, "request_id", requestID, "elapsed", time.Since(start))
	return nil
}

func (c *Client) do(ctx context.Context, method, path, requestID string, body, result interface{}) *RequestError {
	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return unknownError(0, fmt.Errorf("error encoding request: %w", err))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return unknownError(0, fmt.Errorf("error creating request: %w", err))
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setAuthorization(ctx, req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return networkError(fmt.Errorf("error making request: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return networkError(fmt.Errorf("error reading response: %w", err))
	}

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if result == nil {
			return nil
		}
		if err := json.Unmarshal(raw, result); err != nil {
			return unknownError(resp.StatusCode, fmt.Errorf("error decoding response: %w", err))
		}
		return nil
	}

	reqErr := classify(resp.StatusCode, raw)
	if reqErr.Kind == KindUnauthorized {
		c.invalidateSession(ctx)
	}
	return reqErr
}

func (c *Client) setAuthorization(ctx context.Context, req *http.Request) {
	session, err := c.store.Load(ctx)
	if err != nil {
		slog.Error("Error loading session, sending request without token", "error", err)
		return
	}
	if session.Token != "" {
		req.Header.Set("Authorization", "Bearer "+session.Token)
	}
}

// classify maps a non-2xx response to exactly one error kind.
func classify(status int, raw []byte) *RequestError {
	if status == http.StatusUnauthorized {
		return unauthorized(status)
	}

	var body models.ErrorResponse
	if err := json.Unmarshal(raw, &body); err == nil && strings.TrimSpace(body.Error) != "" {
		return serverMessage(status, body.Error)
	}
	return unknownError(status, fmt.Errorf("unexpected status code: %d", status))
}

// invalidateSession is the only place a session is torn down on the
// portal's behalf.
func (c *Client) invalidateSession(ctx context.Context) {
	if err := c.store.Clear(context.WithoutCancel(ctx)); err != nil {
		slog.Error("Error clearing session", "error", err)
	}
	c.metrics.SessionInvalidated()
	c.scheduleRedirect()
}

func (c *Client) scheduleRedirect() {
	if c.scheduler == nil || c.redirector == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancelRedirect != nil {
		return
	}

	c.redirectGen++
	gen := c.redirectGen
	cancel, err := c.scheduler.Schedule(c.redirectDelay, func() {
		c.mu.Lock()
		if c.redirectGen == gen {
			c.cancelRedirect = nil
		}
		c.mu.Unlock()
		c.redirector.RedirectToLogin()
	})
	if err != nil {
		slog.Error("Error scheduling login redirect", "error", err)
		return
	}
	c.cancelRedirect = cancel
}

// RedirectPending reports whether a login redirect is scheduled.
func (c *Client) RedirectPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cancelRedirect != nil
}

// CancelRedirect drops a scheduled login redirect, if any.
func (c *Client) CancelRedirect() {
	c.mu.Lock()
	cancel := c.cancelRedirect
	c.cancelRedirect = nil
	c.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}
