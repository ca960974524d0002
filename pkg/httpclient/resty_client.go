package httpclient

import (
	"context"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

// RestyClient adapts resty.Client to the httpclient.Client interface.
type RestyClient struct {
	client *resty.Client
}

// Option tunes the underlying resty client.
type Option func(*resty.Client)

// WithRetries retries GET requests that fail at the transport level or
// answer 429/5xx, up to n more times with backoff starting at wait.
// POSTs are never retried; the webhook must not summarize twice.
func WithRetries(n int, wait time.Duration) Option {
	return func(c *resty.Client) {
		if n <= 0 {
			return
		}
		c.SetRetryCount(n).
			SetRetryWaitTime(wait).
			SetRetryMaxWaitTime(4 * wait).
			AddRetryCondition(retryableGet)
	}
}

func retryableGet(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	code := r.StatusCode()
	return code == http.StatusTooManyRequests || code >= http.StatusInternalServerError
}

// NewRestyClient creates a RestyClient with the given request timeout.
func NewRestyClient(timeout time.Duration, opts ...Option) *RestyClient {
	return &RestyClient{client: NewRestyHTTPClient(timeout, opts...)}
}

// NewRestyHTTPClient returns the bare resty client for callers that need
// other verbs, such as the HTTP publisher.
func NewRestyHTTPClient(timeout time.Duration, opts ...Option) *resty.Client {
	c := resty.New().SetTimeout(timeout)
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get fetches url with the given headers. Non-2xx responses are returned,
// not turned into errors.
func (r *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// PostJSON marshals payload as the JSON request body and POSTs it.
func (r *RestyClient) PostJSON(ctx context.Context, url string, headers map[string]string, payload any) (Response, error) {
	resp, err := r.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetHeaders(headers).
		SetBody(payload).
		Post(url)
	if err != nil {
		return nil, err
	}
	return resp, nil
}
