package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultPrefix  = "/api/v1"
	genericMessage = "request failed"
)

// RequestError is returned for every exchange that completes with a non-2xx status.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	if e == nil {
		return ""
	}
	if strings.TrimSpace(e.Message) == "" {
		return genericMessage
	}
	return e.Message
}

type Client struct {
	base   *url.URL
	prefix string
	http   *http.Client
	log    *slog.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		if h != nil {
			c.http = h
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// WithPrefix overrides the versioned path prefix (default /api/v1).
func WithPrefix(p string) Option {
	return func(c *Client) {
		c.prefix = "/" + strings.Trim(strings.TrimSpace(p), "/")
		if c.prefix == "/" {
			c.prefix = ""
		}
	}
}

func New(baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("api: base url is empty")
	}
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("api: parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("api: unsupported scheme %q", u.Scheme)
	}
	u.Path = strings.TrimRight(u.Path, "/")
	c := &Client{
		base:   u,
		prefix: DefaultPrefix,
		// No client timeout: callers bound exchanges with their context.
		http: &http.Client{},
		log:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) BaseURL() string { return c.base.String() }

// URL joins path (optionally carrying a query string) under the base URL and prefix.
func (c *Client) URL(path string) string {
	path = strings.TrimLeft(strings.TrimSpace(path), "/")
	rawQuery := ""
	if i := strings.IndexByte(path, '?'); i >= 0 {
		rawQuery = path[i+1:]
		path = path[:i]
	}
	u := *c.base
	u.Path = c.base.Path + c.prefix + "/" + path
	u.RawQuery = rawQuery
	return u.String()
}

// Do performs one exchange. body is sent as JSON when non-nil; out (if non-nil)
// receives the decoded JSON response. A body that fails to decode leaves out at
// its zero value instead of failing the call.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("api: encode %s %s: %w", method, path, err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.URL(path), rdr)
	if err != nil {
		return fmt.Errorf("api: build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("api exchange failed", "method", method, "path", path, "err", err)
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("api: read %s %s: %w", method, path, err)
	}
	c.log.Debug("api exchange",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &RequestError{Status: resp.StatusCode, Message: errorMessage(raw)}
	}
	if out == nil {
		return nil
	}
	decodeLoose(raw, out)
	return nil
}

func decodeLoose(raw []byte, out any) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || !json.Valid(raw) {
		return
	}
	_ = json.Unmarshal(raw, out)
}

// errorMessage picks the user-facing message from an error payload: detail
// (string or list of {msg}), then error, then message.
func errorMessage(raw []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(bytes.TrimSpace(raw), &payload); err != nil {
		return genericMessage
	}
	for _, key := range []string{"detail", "error", "message"} {
		if msg := messageFrom(payload[key]); msg != "" {
			return msg
		}
	}
	return genericMessage
}

func messageFrom(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	type entry struct {
		Msg string `json:"msg"`
	}
	var list []entry
	if err := json.Unmarshal(raw, &list); err == nil {
		parts := make([]string, 0, len(list))
		for _, e := range list {
			if m := strings.TrimSpace(e.Msg); m != "" {
				parts = append(parts, m)
			}
		}
		return strings.Join(parts, "; ")
	}
	var one entry
	if err := json.Unmarshal(raw, &one); err == nil {
		return strings.TrimSpace(one.Msg)
	}
	return ""
}
