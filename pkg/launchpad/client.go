package launchpad

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/iainlane/prometheus-launchpad-exporter/pkg/version"
)

const (
	DefaultBaseURL    = "https://api.launchpad.net"
	DefaultAPIVersion = "devel"

	// DefaultRequestsPerSecond is also the default burst.
	DefaultRequestsPerSecond = 5

	defaultAttempts   = 3
	defaultRetryDelay = 250 * time.Millisecond
	defaultTimeout    = 60 * time.Second
	defaultMaxPages   = 200
	pageSize          = 300
	maxBodySize       = 32 << 20
	maxErrorBody      = 512
)

var (
	// ErrNotFound is returned when Launchpad answers 404.
	ErrNotFound = errors.New("launchpad: not found")
	// ErrUnknownSeries is returned when a series name does not resolve.
	ErrUnknownSeries = errors.New("launchpad: unknown series")
	// ErrInvalidResponse is returned when a response body is not JSON.
	ErrInvalidResponse = errors.New("launchpad: invalid JSON response")
	// ErrTruncated is returned when a collection has more pages than the
	// client may read.
	ErrTruncated = errors.New("launchpad: collection exceeds page limit")
)

// APIError is a non-2xx response other than 404.
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("launchpad: GET %s: %d %s", e.URL, e.StatusCode, e.Body)
}

// Temporary reports whether the request is worth retrying.
func (e *APIError) Temporary() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// Client is an anonymous, read-only Launchpad web service client.
type Client struct {
	baseURL    string
	apiVersion string
	httpClient *http.Client
	userAgent  string
	limiter    *rate.Limiter
	attempts   uint
	retryDelay time.Duration
	maxPages   int
	log        logrus.FieldLogger
	observe    func(code int)
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL sets the web service root, e.g. "https://api.launchpad.net".
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(baseURL, "/")
	}
}

// WithAPIVersion sets the web service version ("devel", "1.0", ...).
func WithAPIVersion(v string) Option {
	return func(c *Client) {
		c.apiVersion = v
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		c.userAgent = ua
	}
}

// WithRateLimit limits requests per second. A non-positive rate disables
// limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithRetry sets how many times a request is attempted and the initial
// back-off delay.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		if attempts < 1 {
			attempts = 1
		}
		c.attempts = attempts
		c.retryDelay = delay
	}
}

// WithMaxPages bounds how many pages of a collection are read. Zero means
// no bound.
func WithMaxPages(n int) Option {
	return func(c *Client) {
		c.maxPages = n
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Client) {
		c.log = l
	}
}

// WithRequestObserver registers a callback run after every HTTP exchange
// with the response status code, or 0 when no response was received.
func WithRequestObserver(fn func(code int)) Option {
	return func(c *Client) {
		c.observe = fn
	}
}

// NewClient returns a client for the production Launchpad instance unless
// told otherwise.
func NewClient(opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		apiVersion: DefaultAPIVersion,
		httpClient: &http.Client{Timeout: defaultTimeout},
		userAgent:  version.UserAgent(),
		limiter:    rate.NewLimiter(DefaultRequestsPerSecond, DefaultRequestsPerSecond),
		attempts:   defaultAttempts,
		retryDelay: defaultRetryDelay,
		maxPages:   defaultMaxPages,
		log:        logrus.StandardLogger(),
		observe:    func(int) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetJSON fetches ref and parses the body. ref is either an absolute URL, as
// found in self_link fields, or a path below the versioned service root.
func (c *Client) GetJSON(ctx context.Context, ref string, params url.Values) (gjson.Result, error) {
	target, err := c.resolve(ref, params)
	if err != nil {
		return gjson.Result{}, err
	}
	return c.getJSON(ctx, target)
}

func (c *Client) getJSON(ctx context.Context, target string) (gjson.Result, error) {
	body, err := c.get(ctx, target)
	if err != nil {
		return gjson.Result{}, err
	}
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, errors.Wrapf(ErrInvalidResponse, "GET %s", target)
	}
	return gjson.ParseBytes(body), nil
}

func (c *Client) resolve(ref string, params url.Values) (string, error) {
	raw := ref
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		raw = c.baseURL + "/" + c.apiVersion + "/" + strings.TrimPrefix(ref, "/")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", errors.Wrapf(err, "invalid launchpad reference %q", ref)
	}
	if len(params) > 0 {
		q := u.Query()
		for k, vs := range params {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}

func (c *Client) get(ctx context.Context, target string) ([]byte, error) {
	var body []byte
	err := retry.Do(
		func() error {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
			b, err := c.do(ctx, target)
			if err != nil {
				return err
			}
			body = b
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(isRetryable),
		retry.OnRetry(func(n uint, err error) {
			c.log.WithFields(logrus.Fields{
				"url":     target,
				"attempt": n + 1,
				"error":   err,
			}).Debug("retrying launchpad request")
		}),
	)
	return body, err
}

func (c *Client) do(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, errors.Wrap(err, "building launchpad request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.observe(0)
		return nil, errors.Wrapf(err, "GET %s", target)
	}
	defer func() { _ = resp.Body.Close() }()
	c.observe(resp.StatusCode)

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, errors.Wrapf(err, "reading response of %s", target)
	}

	c.log.WithFields(logrus.Fields{
		"url":      target,
		"status":   resp.StatusCode,
		"duration": time.Since(start).Round(time.Millisecond),
	}).Debug("launchpad request")

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, errors.Wrapf(ErrNotFound, "GET %s", target)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		excerpt := string(body)
		if len(excerpt) > maxErrorBody {
			excerpt = excerpt[:maxErrorBody]
		}
		return nil, &APIError{StatusCode: resp.StatusCode, URL: target, Body: strings.TrimSpace(excerpt)}
	}
	return body, nil
}

func isRetryable(err error) bool {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	if errors.Is(err, ErrNotFound) {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Temporary()
	}
	return true
}
