// Package mlclient talks to the external ML prediction API.
package mlclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"
)

// ErrUpstreamStatus marks an upstream reply with a non-2xx status.
var ErrUpstreamStatus = errors.New("unexpected upstream status")

// UpstreamError wraps every failure of a call to the ML API: transport
// errors, timeouts and non-2xx replies.
type UpstreamError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("ml api %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("ml api %s: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Response is a successful upstream reply.
type Response struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// Options tunes a Client. Zero timeouts disable the timeout.
type Options struct {
	HealthTimeout  time.Duration
	PredictTimeout time.Duration
	Logger         *logrus.Logger
	Transport      http.RoundTripper
}

// Client is safe for concurrent use; its connection pool is shared by all
// inbound requests.
type Client struct {
	rc             *resty.Client
	baseURL        string
	healthTimeout  time.Duration
	predictTimeout time.Duration
}

type predictRequest struct {
	Text json.RawMessage `json:"text"`
}

// New returns a client for the ML API rooted at baseURL.
func New(baseURL string, opts Options) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json")
	if opts.Transport != nil {
		rc.SetTransport(opts.Transport)
	}
	if opts.Logger != nil {
		rc.SetLogger(opts.Logger)
	}
	return &Client{
		rc:             rc,
		baseURL:        baseURL,
		healthTimeout:  opts.HealthTimeout,
		predictTimeout: opts.PredictTimeout,
	}
}

// BaseURL returns the upstream base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Predict posts {"text": text} to /predict. text is forwarded verbatim, so
// it may hold any JSON value.
func (c *Client) Predict(ctx context.Context, text json.RawMessage) (*Response, error) {
	if len(text) == 0 {
		text = json.RawMessage("null")
	}
	if c.predictTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.predictTimeout)
		defer cancel()
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(predictRequest{Text: text}).
		Post("/predict")
	return result("predict", resp, err)
}

// Health issues GET / against the ML API, bounded by the health timeout.
func (c *Client) Health(ctx context.Context) (*Response, error) {
	if c.healthTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.healthTimeout)
		defer cancel()
	}

	resp, err := c.rc.R().
		SetContext(ctx).
		Get("/")
	return result("health", resp, err)
}

// Close releases idle upstream connections.
func (c *Client) Close() {
	c.rc.GetClient().CloseIdleConnections()
}

func result(op string, resp *resty.Response, err error) (*Response, error) {
	if err != nil {
		return nil, &UpstreamError{Op: op, Err: err}
	}
	if !resp.IsSuccess() {
		return nil, &UpstreamError{Op: op, StatusCode: resp.StatusCode(), Err: ErrUpstreamStatus}
	}
	return &Response{
		StatusCode:  resp.StatusCode(),
		ContentType: resp.Header().Get("Content-Type"),
		Body:        resp.Body(),
	}, nil
}
