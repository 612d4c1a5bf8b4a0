// Package client is a Go client for the kanal REST API.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
)

// Sentinel errors mirroring the service's status codes.
var (
	// ErrWouldBlock: a non-blocking operation could not proceed.
	ErrWouldBlock = errors.New("client: operation would block")
	// ErrInterrupted: a blocking operation was aborted before completion.
	ErrInterrupted = errors.New("client: operation interrupted")
	// ErrRejected: the request was structurally valid but refused (shrink
	// below used bytes).
	ErrRejected = errors.New("client: operation rejected")
	// ErrInvalid: an argument was outside the legal domain.
	ErrInvalid = errors.New("client: invalid argument")
	// ErrNotFound: unknown channel or handle.
	ErrNotFound = errors.New("client: not found")
	// ErrBusy: an open was refused by access policy.
	ErrBusy = errors.New("client: channel busy")
	// ErrAccess: the handle's mode does not permit the operation.
	ErrAccess = errors.New("client: not permitted by open mode")
)

func statusError(wire string) error {
	switch wire {
	case "would_block":
		return ErrWouldBlock
	case "interrupted":
		return ErrInterrupted
	case "rejected":
		return ErrRejected
	case "invalid", "fault":
		return ErrInvalid
	case "not_found":
		return ErrNotFound
	case "busy":
		return ErrBusy
	case "access":
		return ErrAccess
	}
	return fmt.Errorf("client: unexpected status %q", wire)
}

// ChannelStat describes one channel as reported by the service.
type ChannelStat struct {
	ID         int `json:"id"`
	Capacity   int `json:"capacity"`
	Used       int `json:"used"`
	Free       int `json:"free"`
	Readers    int `json:"readers"`
	Writers    int `json:"writers"`
	MaxOpeners int `json:"max_openers"`
}

// Client talks to one kanal service.
type Client struct {
	resty *resty.Client
}

// Option customizes the client.
type Option func(*Client)

// WithTimeout caps each request's duration. Blocking reads and writes abort
// with ErrInterrupted when the cap is hit. Zero removes the cap.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.resty.SetTimeout(d) }
}

// New creates a client for the service at baseURL. Connection-level retries
// apply to idempotent requests only; writes are never retried.
func New(baseURL string, opts ...Option) *Client {
	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 250 * time.Millisecond
	retryClient.RetryWaitMax = 5 * time.Second
	retryClient.Logger = nil

	r := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(resp *resty.Response, err error) bool {
			if resp == nil || resp.Request == nil {
				return false
			}
			return err != nil && resp.Request.Method == http.MethodGet
		}).
		SetHeader("User-Agent", "kanal-client/1.0")
	r.SetTransport(retryClient.HTTPClient.Transport)

	c := &Client{resty: r}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type statusBody struct {
	Status       string `json:"status"`
	Error        string `json:"error"`
	Bytes        int    `json:"bytes"`
	BytesWritten int    `json:"bytes_written"`
	Data         []byte `json:"data"`
}

// Open creates a handle on a channel. Mode is "read", "write" or
// "readwrite".
func (c *Client) Open(ctx context.Context, channel int, mode string) (string, error) {
	var out struct {
		Handle string `json:"handle"`
	}
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(map[string]string{"mode": mode}).
		SetResult(&out).
		SetError(&statusBody{}).
		Post(fmt.Sprintf("/channels/%d/open", channel))
	if err != nil {
		return "", err
	}
	if resp.IsError() {
		return "", statusError(resp.Error().(*statusBody).Status)
	}
	return out.Handle, nil
}

// Close releases a handle.
func (c *Client) Close(ctx context.Context, handle string) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetError(&statusBody{}).
		Delete("/handles/" + handle)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return statusError(resp.Error().(*statusBody).Status)
	}
	return nil
}

// Write commits data through a handle. It returns the number of bytes
// durably written, which can be non-zero even when the error is
// ErrInterrupted.
func (c *Client) Write(ctx context.Context, handle string, data []byte, nonblock bool) (int, error) {
	req := c.resty.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/octet-stream").
		SetBody(data).
		SetResult(&statusBody{}).
		SetError(&statusBody{})
	if nonblock {
		req.SetQueryParam("nonblock", "1")
	}
	resp, err := req.Post("/handles/" + handle + "/write")
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		body := resp.Error().(*statusBody)
		return body.BytesWritten, statusError(body.Status)
	}
	return resp.Result().(*statusBody).BytesWritten, nil
}

// Read fetches up to maxLen bytes through a handle. A short or empty result
// is not an error for blocking reads; non-blocking reads on an empty
// channel return ErrWouldBlock.
func (c *Client) Read(ctx context.Context, handle string, maxLen int, nonblock bool) ([]byte, error) {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(map[string]any{"max_len": maxLen, "nonblock": nonblock}).
		SetResult(&statusBody{}).
		SetError(&statusBody{}).
		Post("/handles/" + handle + "/read")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp.Error().(*statusBody).Status)
	}
	return resp.Result().(*statusBody).Data, nil
}

// Channels lists every channel's stats.
func (c *Client) Channels(ctx context.Context) ([]ChannelStat, error) {
	var out struct {
		Channels []ChannelStat `json:"channels"`
	}
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&statusBody{}).
		Get("/channels")
	if err != nil {
		return nil, err
	}
	if resp.IsError() {
		return nil, statusError(resp.Error().(*statusBody).Status)
	}
	return out.Channels, nil
}

// Capacity reads one channel's buffer capacity.
func (c *Client) Capacity(ctx context.Context, channel int) (int, error) {
	return c.intField(ctx, channel, "capacity")
}

// Used reads one channel's unread byte count.
func (c *Client) Used(ctx context.Context, channel int) (int, error) {
	return c.intField(ctx, channel, "used")
}

// Free reads one channel's free byte count.
func (c *Client) Free(ctx context.Context, channel int) (int, error) {
	return c.intField(ctx, channel, "free")
}

func (c *Client) intField(ctx context.Context, channel int, field string) (int, error) {
	out := map[string]int{}
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&statusBody{}).
		Get(fmt.Sprintf("/channels/%d/%s", channel, field))
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, statusError(resp.Error().(*statusBody).Status)
	}
	return out[field], nil
}

// SetCapacity resizes one channel's buffer. Shrinking below the unread byte
// count returns ErrRejected; the channel is unchanged.
func (c *Client) SetCapacity(ctx context.Context, channel, capacity int) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(map[string]int{"capacity": capacity}).
		SetError(&statusBody{}).
		Put(fmt.Sprintf("/channels/%d/capacity", channel))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return statusError(resp.Error().(*statusBody).Status)
	}
	return nil
}

// MaxOpeners reads one channel's opener limit (0 = unlimited).
func (c *Client) MaxOpeners(ctx context.Context, channel int) (int, error) {
	var out struct {
		MaxOpeners int `json:"max_openers"`
	}
	resp, err := c.resty.R().
		SetContext(ctx).
		SetResult(&out).
		SetError(&statusBody{}).
		Get(fmt.Sprintf("/channels/%d/policy", channel))
	if err != nil {
		return 0, err
	}
	if resp.IsError() {
		return 0, statusError(resp.Error().(*statusBody).Status)
	}
	return out.MaxOpeners, nil
}

// SetMaxOpeners adjusts one channel's opener limit.
func (c *Client) SetMaxOpeners(ctx context.Context, channel, n int) error {
	resp, err := c.resty.R().
		SetContext(ctx).
		SetBody(map[string]int{"max_openers": n}).
		SetError(&statusBody{}).
		Put(fmt.Sprintf("/channels/%d/policy", channel))
	if err != nil {
		return err
	}
	if resp.IsError() {
		return statusError(resp.Error().(*statusBody).Status)
	}
	return nil
}
