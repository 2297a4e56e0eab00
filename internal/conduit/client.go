// Package conduit is a client for the issue tracker's Conduit API: task transaction logs,
// task metadata and identity lookups.
package conduit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sethvargo/go-retry"
	"github.com/tidwall/gjson"
)

const (
	// DefaultTimeout bounds a single Conduit request.
	DefaultTimeout = 30 * time.Second
	// DefaultMaxRetries is the number of retries for transient failures.
	DefaultMaxRetries = 3
	// DefaultRetryBase is the first backoff step between retries.
	DefaultRetryBase = 500 * time.Millisecond
)

// Error is an error reported by the Conduit API itself.
type Error struct {
	Method string
	Code   string
	Info   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("conduit %s: %s: %s", e.Method, e.Code, e.Info)
}

// Config holds connection settings for a Conduit endpoint.
type Config struct {
	BaseURL    string
	Token      string
	Timeout    time.Duration
	MaxRetries uint64
	RetryBase  time.Duration
}

// Client calls Conduit methods over HTTP.
type Client struct {
	http       *resty.Client
	token      string
	maxRetries uint64
	retryBase  time.Duration
}

// NewClient creates a Client for cfg. Zero durations and retry counts take defaults.
func NewClient(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.RetryBase == 0 {
		cfg.RetryBase = DefaultRetryBase
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetHeader("Accept", "application/json")

	return &Client{
		http:       httpClient,
		token:      cfg.Token,
		maxRetries: cfg.MaxRetries,
		retryBase:  cfg.RetryBase,
	}
}

// call invokes a Conduit method and returns its "result" member.
func (c *Client) call(ctx context.Context, method string, params map[string]any) (gjson.Result, error) {
	if params == nil {
		params = make(map[string]any)
	}
	params["__conduit__"] = map[string]string{"token": c.token}

	encoded, err := json.Marshal(params)
	if err != nil {
		return gjson.Result{}, fmt.Errorf("encode %s params: %w", method, err)
	}

	var body []byte
	backoff := retry.WithMaxRetries(c.maxRetries, retry.NewExponential(c.retryBase))
	err = retry.Do(ctx, backoff, func(ctx context.Context) error {
		resp, err := c.http.R().
			SetContext(ctx).
			SetFormData(map[string]string{
				"params":      string(encoded),
				"output":      "json",
				"__conduit__": "1",
			}).
			Post("/api/" + method)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return retry.RetryableError(fmt.Errorf("post %s: %w", method, err))
		}

		switch status := resp.StatusCode(); {
		case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
			slog.Warn("conduit call failed, retrying", "method", method, "status", status)
			return retry.RetryableError(fmt.Errorf("post %s: unexpected status %d", method, status))
		case status != http.StatusOK:
			return fmt.Errorf("post %s: unexpected status %d", method, status)
		}

		body = resp.Body()
		return nil
	})
	if err != nil {
		return gjson.Result{}, err
	}

	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("decode %s response: invalid JSON", method)
	}
	reply := gjson.ParseBytes(body)
	if code := reply.Get("error_code").String(); code != "" {
		return gjson.Result{}, &Error{Method: method, Code: code, Info: reply.Get("error_info").String()}
	}

	return reply.Get("result"), nil
}

// IsAPIError reports whether err is an error returned by the Conduit API.
func IsAPIError(err error) bool {
	var apiErr *Error
	return errors.As(err, &apiErr)
}
