// Package webclient provides an outbound HTTP client built on Fiber's
// agent. Request and response bodies go through the same codec
// registry the server uses, so a client bean speaks whatever formats
// the application declared.
package webclient

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/gofu-framework/gofu/codec"
)

// DefaultTimeout bounds requests when no timeout is configured.
const DefaultTimeout = 30 * time.Second

// Config describes a client.
type Config struct {
	// BaseURL is prepended to request paths. Required.
	BaseURL string

	// Timeout bounds each request. Default 30s.
	Timeout time.Duration

	// Headers are set on every request.
	Headers map[string]string

	// UserAgent overrides the default agent string.
	UserAgent string

	// Username and Password enable basic auth when both are set.
	Username string
	Password string

	// Codecs encode request bodies and decode responses. Defaults to
	// the standard registry (JSON first).
	Codecs *codec.Registry
}

// Client issues HTTP requests against a base URL.
type Client struct {
	baseURL   string
	timeout   time.Duration
	headers   map[string]string
	userAgent string
	username  string
	password  string
	codecs    *codec.Registry
}

// Response is the decoded-independent view of an exchange. Completed
// exchanges never produce a Go error regardless of status code; use
// IsError or Err to inspect the status.
type Response struct {
	StatusCode  int
	Body        []byte
	ContentType string
}

// IsError reports whether the status code is 4xx or 5xx.
func (r *Response) IsError() bool {
	return r.StatusCode >= fiber.StatusBadRequest
}

// Err returns a StatusError for 4xx and 5xx responses, nil otherwise.
func (r *Response) Err() error {
	if !r.IsError() {
		return nil
	}
	return &StatusError{StatusCode: r.StatusCode, Body: r.Body}
}

// StatusError reports a non-2xx response surfaced as an error.
type StatusError struct {
	StatusCode int
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webclient: server returned %d", e.StatusCode)
}

// New creates a client. The base URL must carry a scheme and host.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if !strings.HasPrefix(base, "http://") && !strings.HasPrefix(base, "https://") {
		return nil, fmt.Errorf("webclient: base URL %q must start with http:// or https://", cfg.BaseURL)
	}

	registry := cfg.Codecs
	if registry == nil {
		var err error
		registry, err = codec.NewRegistry()
		if err != nil {
			return nil, err
		}
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &Client{
		baseURL:   base,
		timeout:   timeout,
		headers:   cfg.Headers,
		userAgent: cfg.UserAgent,
		username:  cfg.Username,
		password:  cfg.Password,
		codecs:    registry,
	}, nil
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Get issues a GET and decodes a 2xx response body into out when out
// is non-nil.
func (c *Client) Get(path string, out any) (*Response, error) {
	return c.Do(fiber.MethodGet, path, nil, out)
}

// Post encodes body with the default codec, issues a POST, and decodes
// a 2xx response into out when out is non-nil.
func (c *Client) Post(path string, body, out any) (*Response, error) {
	return c.Do(fiber.MethodPost, path, body, out)
}

// Put issues a PUT with an encoded body.
func (c *Client) Put(path string, body, out any) (*Response, error) {
	return c.Do(fiber.MethodPut, path, body, out)
}

// Delete issues a DELETE.
func (c *Client) Delete(path string, out any) (*Response, error) {
	return c.Do(fiber.MethodDelete, path, nil, out)
}

// Do issues a request. A non-nil body is encoded with the default
// codec; a non-nil out receives the decoded body of 2xx responses,
// picked by the response Content-Type. Transport, encoding, and
// decoding failures return errors; HTTP error statuses do not.
func (c *Client) Do(method, path string, body, out any) (*Response, error) {
	agent := fiber.AcquireAgent()

	req := agent.Request()
	req.Header.SetMethod(method)
	req.SetRequestURI(c.url(path))

	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	if c.userAgent != "" {
		req.Header.SetUserAgent(c.userAgent)
	}
	if c.username != "" || c.password != "" {
		agent.BasicAuth(c.username, c.password)
	}

	if body != nil {
		enc := c.codecs.Default()
		payload, err := enc.Encode(body)
		if err != nil {
			fiber.ReleaseAgent(agent)
			return nil, fmt.Errorf("webclient: encode request: %w", err)
		}
		req.Header.SetContentType(enc.MimeType())
		req.SetBody(payload)
	}

	agent.Timeout(c.timeout)

	if err := agent.Parse(); err != nil {
		fiber.ReleaseAgent(agent)
		return nil, fmt.Errorf("webclient: %w", err)
	}

	resp := fiber.AcquireResponse()
	defer fiber.ReleaseResponse(resp)
	agent.SetResponse(resp)

	code, respBody, errs := agent.Bytes()
	if len(errs) > 0 {
		return nil, fmt.Errorf("webclient: %s %s: %w", method, path, errs[0])
	}

	result := &Response{
		StatusCode:  code,
		Body:        respBody,
		ContentType: string(resp.Header.ContentType()),
	}

	if out != nil && code >= fiber.StatusOK && code < fiber.StatusMultipleChoices {
		if err := c.decode(result, out); err != nil {
			return result, err
		}
	}
	return result, nil
}

func (c *Client) decode(resp *Response, out any) error {
	dec, ok := c.codecs.ForContentType(resp.ContentType)
	if !ok {
		return fmt.Errorf("webclient: no codec for response content type %q", resp.ContentType)
	}
	if err := dec.Decode(resp.Body, out); err != nil {
		return fmt.Errorf("webclient: decode response: %w", err)
	}
	return nil
}

func (c *Client) url(path string) string {
	if path == "" {
		return c.baseURL
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}
